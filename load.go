package wiregram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"github.com/wiregram/wiregram/grammar"
	"github.com/wiregram/wiregram/internal/types"
)

// LoadSchema reads every schema document from source and merges their
// definitions into one schema. Use Multi() to combine multiple sources.
//
// Documents are decoded concurrently but merged in listing order: the
// first definition of a name wins and later ones are reported at Warn.
// The entry point is WithEntry if given, else the first document that
// declares one. Undefined references are reported at Warn and left for
// Check and the parser to report.
//
// Example:
//
//	schema, err := wiregram.LoadSchema(ctx,
//	    wiregram.Multi(wiregram.MustDirTree("/usr/share/wiregram"), wiregram.MustDir("./local")),
//	    wiregram.WithLogger(slog.Default()),
//	)
func LoadSchema(ctx context.Context, source Source, opts ...LoadOption) (*grammar.Schema, error) {
	cfg := loadConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	l := types.Logger{L: types.Component(cfg.logger, "loader")}

	sources := cfg.sources(source, l)
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	var files []sourceFile
	for _, src := range sources {
		paths, err := src.ListFiles()
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			files = append(files, sourceFile{src: src, path: p})
		}
	}

	l.Log(slog.LevelInfo, "loading schema documents", slog.Int("files", len(files)))

	docs, err := decodeAll(ctx, files, cfg.workers)
	if err != nil {
		return nil, err
	}

	merged := grammar.NewSchema()
	for i, doc := range docs {
		mergeInto(merged, doc, files[i].path, l)
	}
	return finish(merged, cfg, l), nil
}

// LoadSchemaByName loads the document named name (file name without
// extension) and, transitively, the documents named after every type it
// references but does not define.
func LoadSchemaByName(ctx context.Context, name string, source Source, opts ...LoadOption) (*grammar.Schema, error) {
	cfg := loadConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	l := types.Logger{L: types.Component(cfg.logger, "loader")}

	sources := cfg.sources(source, l)
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	src := Multi(sources...)

	merged := grammar.NewSchema()
	tried := make(map[string]struct{})
	pending := []string{name}
	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next := pending[0]
		pending = pending[1:]
		if _, ok := tried[next]; ok {
			continue
		}
		tried[next] = struct{}{}

		doc, path, err := findDocument(src, next)
		if errors.Is(err, fs.ErrNotExist) {
			if next == name {
				return nil, fmt.Errorf("schema %q: %w", name, err)
			}
			l.Log(slog.LevelDebug, "no document for reference", slog.String("name", next))
			continue
		}
		if err != nil {
			return nil, err
		}
		if next == name && merged.Entry == "" {
			merged.Entry = doc.Entry
		}
		mergeInto(merged, doc, path, l)
		pending = append(pending, undefinedRefs(merged)...)
	}
	return finish(merged, cfg, l), nil
}

// LoadFile loads a single schema document from disk.
func LoadFile(path string, opts ...LoadOption) (*grammar.Schema, error) {
	cfg := loadConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	l := types.Logger{L: types.Component(cfg.logger, "loader")}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := grammar.DecodeYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return finish(s, cfg, l), nil
}

type sourceFile struct {
	src  Source
	path string
}

func (c *loadConfig) sources(source Source, l types.Logger) []Source {
	var sources []Source
	if source != nil {
		sources = append(sources, source)
	}
	if c.systemPaths {
		sources = append(sources, discoverSystemSources(l)...)
	}
	return sources
}

// decodeAll decodes files concurrently, returning documents in file order.
func decodeAll(ctx context.Context, files []sourceFile, workers int) ([]*grammar.Schema, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	docs := make([]*grammar.Schema, len(files))
	errs := make([]error, len(files))

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	for i, f := range files {
		wg.Add(1)
		go func() {
			defer wg.Done()

			select {
			case <-ctx.Done():
				return
			case sem <- struct{}{}:
			}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}
			docs[i], errs[i] = readDocument(f.src, f.path)
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return docs, nil
}

func readDocument(src Source, path string) (*grammar.Schema, error) {
	r, err := src.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close() //nolint:errcheck // read-only
	return decodeDocument(r, path)
}

func findDocument(src Source, name string) (*grammar.Schema, string, error) {
	r, path, err := src.Find(name)
	if err != nil {
		return nil, path, err
	}
	defer r.Close() //nolint:errcheck // read-only
	doc, err := decodeDocument(r, path)
	return doc, path, err
}

func decodeDocument(r io.Reader, path string) (*grammar.Schema, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc, err := grammar.DecodeYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// mergeInto copies doc's definitions into dst. Existing names win.
func mergeInto(dst, doc *grammar.Schema, path string, l types.Logger) {
	if dst.Entry == "" {
		dst.Entry = doc.Entry
	}
	for _, name := range doc.Names() {
		if _, exists := dst.Lookup(name); exists {
			l.Log(slog.LevelWarn, "duplicate definition ignored",
				slog.String("name", name),
				slog.String("file", path))
			continue
		}
		n, _ := doc.Lookup(name)
		dst.Define(name, n)
	}
	l.Log(slog.LevelDebug, "document merged",
		slog.String("file", path),
		slog.Int("definitions", doc.Len()))
}

func finish(s *grammar.Schema, cfg loadConfig, l types.Logger) *grammar.Schema {
	if cfg.entry != "" {
		s.Entry = cfg.entry
	}
	if err := s.ResolveAll(); err != nil {
		l.Log(slog.LevelWarn, "schema has unresolved references", slog.String("error", err.Error()))
	}
	l.Log(slog.LevelInfo, "schema loaded",
		slog.Int("definitions", s.Len()),
		slog.String("entry", s.Entry))
	return s
}

// undefinedRefs lists referenced names that s does not define.
func undefinedRefs(s *grammar.Schema) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, name := range s.Names() {
		def, _ := s.Lookup(name)
		grammar.Walk(def, name, func(_ string, n grammar.Node) bool {
			named, ok := n.(*grammar.Named)
			if !ok {
				return true
			}
			if _, defined := s.Lookup(named.Ref); defined {
				return true
			}
			if _, dup := seen[named.Ref]; !dup {
				seen[named.Ref] = struct{}{}
				out = append(out, named.Ref)
			}
			return true
		})
	}
	return out
}
