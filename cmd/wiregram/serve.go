package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/wiregram/wiregram/internal/server"
)

const serveUsage = `wiregram serve - Serve the HTTP API

Usage:
  wiregram serve [options] SCHEMA

Routes:
  POST /parse/:entry   Parse the request body (?annotate=1, ?encoding=hex)
  GET  /schema         Serialized schema (?format=yaml)
  GET  /schema/check   Schema diagnostics
  GET  /health         Liveness and schema size
  GET  /metrics        Prometheus metrics

Options:
  -l, --listen ADDR   Listen address (default from config, 127.0.0.1:8080)
  --max-body N        Request body limit in bytes
  -h, --help          Show help

Examples:
  wiregram serve schemas/
  wiregram serve --listen :9000 ethernet
`

func (c *cli) cmdServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.Usage = func() { _, _ = fmt.Fprint(c.stderr, serveUsage) }

	listen := fs.String("l", c.cfg.Listen, "listen address")
	fs.StringVar(listen, "listen", c.cfg.Listen, "listen address")
	maxBody := fs.Int64("max-body", server.DefaultMaxBody, "request body limit")
	help := fs.Bool("h", false, "show help")
	fs.BoolVar(help, "help", false, "show help")

	if err := fs.Parse(args); err != nil {
		return exitError
	}
	if *help || c.helpFlag {
		_, _ = fmt.Fprint(c.stdout, serveUsage)
		return exitOK
	}
	if fs.NArg() != 1 {
		c.printError("expected one SCHEMA argument")
		_, _ = fmt.Fprint(c.stderr, serveUsage)
		return exitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	schema, err := c.loadSchema(ctx, fs.Arg(0))
	if err != nil {
		c.printError("failed to load schema: %v", err)
		return exitError
	}

	server.Version = version()
	srv := server.New(schema,
		server.WithLogger(c.logger),
		server.WithCORSOrigins(c.cfg.CORSOrigins),
		server.WithMaxBody(*maxBody))
	if err := srv.ListenAndServe(ctx, *listen); err != nil {
		c.printError("%v", err)
		return exitError
	}
	return exitOK
}
