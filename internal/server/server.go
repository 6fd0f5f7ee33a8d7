// Package server exposes a schema over HTTP: parse request bodies, inspect
// the schema, and scrape metrics.
package server

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wiregram/wiregram/engine"
	"github.com/wiregram/wiregram/grammar"
	"github.com/wiregram/wiregram/internal/types"
)

// DefaultMaxBody bounds request bodies accepted by POST /parse.
const DefaultMaxBody = 16 << 20

// Version is reported by /health.
var Version = "dev"

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for request and parse logging.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithCORSOrigins sets the allowed CORS origins. "*" allows any origin.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithMaxBody sets the request body limit in bytes.
func WithMaxBody(n int64) Option {
	return func(s *Server) { s.maxBody = n }
}

// Server serves one schema.
type Server struct {
	types.Logger
	logger  *slog.Logger
	schema  *grammar.Schema
	origins []string
	maxBody int64
	started time.Time
	router  *gin.Engine
}

// New builds the router for schema.
func New(schema *grammar.Schema, opts ...Option) *Server {
	s := &Server{
		schema:  schema,
		maxBody: DefaultMaxBody,
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Logger = types.Logger{L: types.Component(s.logger, "server")}

	RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.Logger))
	r.Use(requestMetrics())
	r.Use(cors.New(corsConfig(s.origins)))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})
	s.router = r
	s.routes()
	return s
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.Log(slog.LevelInfo, "listening", slog.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) routes() {
	r := s.router

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"uptime":      time.Since(s.started).String(),
			"definitions": s.schema.Len(),
			"version":     Version,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/schema", func(c *gin.Context) {
		if c.Query("format") == "yaml" {
			out, err := grammar.EncodeYAML(s.schema)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.Data(http.StatusOK, "application/yaml", out)
			return
		}
		c.JSON(http.StatusOK, s.schema.Serialize())
	})

	r.GET("/schema/check", func(c *gin.Context) {
		diags := s.schema.Check()
		out := make([]gin.H, 0, len(diags))
		for _, d := range diags {
			out = append(out, gin.H{
				"severity": d.Severity.String(),
				"code":     d.Code,
				"path":     d.Path,
				"message":  d.Message,
			})
		}
		c.JSON(http.StatusOK, gin.H{"diagnostics": out})
	})

	r.POST("/parse/:entry", s.handleParse)
}

func (s *Server) handleParse(c *gin.Context) {
	entry := c.Param("entry")
	if _, ok := s.schema.Lookup(entry); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown entry " + strconv.Quote(entry)})
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if c.Query("encoding") == "hex" {
		if data, err = hex.DecodeString(strings.Join(strings.Fields(string(data)), "")); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "hex body: " + err.Error()})
			return
		}
	}

	annotate := truthy(c.Query("annotate"))
	pc := engine.New(s.schema,
		engine.WithEntry(entry),
		engine.WithAnnotate(annotate),
		engine.WithLogger(s.logger))
	pc.Feed(data)

	start := time.Now()
	v, err := pc.Parse()
	elapsed := time.Since(start)

	if err != nil {
		var pe *engine.Error
		if !errors.As(err, &pe) {
			recordParse(entry, "error", 0, elapsed)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		recordParse(entry, pe.Kind.String(), 0, elapsed)
		status := http.StatusUnprocessableEntity
		if pe.Kind == engine.SpecError || pe.Kind == engine.ValueNotFound {
			status = http.StatusInternalServerError
		}
		s.Log(slog.LevelDebug, "parse failed",
			slog.String("entry", entry),
			slog.String("error", err.Error()))
		c.JSON(status, gin.H{
			"entry":   entry,
			"error":   errorBody(pe),
			"partial": engine.JSON(v),
		})
		return
	}

	consumed := pc.Offset()
	recordParse(entry, "ok", consumed, elapsed)
	c.JSON(http.StatusOK, gin.H{
		"entry":      entry,
		"consumed":   consumed,
		"trailing":   pc.Buffered(),
		"value":      engine.JSON(v),
		"categories": pc.Categories(),
	})
}

func errorBody(pe *engine.Error) gin.H {
	return gin.H{
		"kind":          pe.Kind.String(),
		"offset":        pe.Offset,
		"path":          pe.Path,
		"message":       pe.Msg,
		"context":       pe.Context,
		"context_start": pe.ContextStart,
	}
}

func truthy(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
