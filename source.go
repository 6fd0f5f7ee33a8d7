package wiregram

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// DefaultExtensions are the file extensions recognized as schema documents.
var DefaultExtensions = []string{".yaml", ".yml", ".wg"}

// Source provides schema documents.
type Source interface {
	// Find locates a schema document by base name (file name without
	// extension). Returns the content, the path for diagnostics, or
	// fs.ErrNotExist if not found.
	Find(name string) (io.ReadCloser, string, error)

	// ListFiles returns the paths of all schema documents known to this
	// source, in a stable order.
	ListFiles() ([]string, error)

	// Open opens a path returned by ListFiles.
	Open(path string) (io.ReadCloser, error)
}

// SourceOption configures a source.
type SourceOption func(*sourceConfig)

type sourceConfig struct {
	extensions []string
}

func defaultSourceConfig() sourceConfig {
	return sourceConfig{
		extensions: DefaultExtensions,
	}
}

// WithExtensions sets the file extensions to recognize for this source.
func WithExtensions(exts ...string) SourceOption {
	return func(c *sourceConfig) {
		c.extensions = exts
	}
}

// fsSource indexes schema documents in an fs.FS on first use. The first
// document found for a name wins, in lexical walk order.
type fsSource struct {
	fsys      fs.FS
	recursive bool
	display   func(rel string) string // reported path for a file in fsys
	exts      map[string]struct{}

	once  sync.Once
	index map[string]string // schema name -> reported path
	rel   map[string]string // reported path -> path in fsys
	files []string
	err   error
}

func newFSSource(fsys fs.FS, recursive bool, display func(string) string, opts []SourceOption) *fsSource {
	cfg := defaultSourceConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &fsSource{
		fsys:      fsys,
		recursive: recursive,
		display:   display,
		exts:      makeExtensionSet(cfg.extensions),
	}
}

// Dir creates a Source over a single directory (no recursion).
func Dir(path string, opts ...SourceOption) (Source, error) {
	return osSource(path, false, opts)
}

// DirTree creates a Source over a directory tree.
func DirTree(root string, opts ...SourceOption) (Source, error) {
	return osSource(root, true, opts)
}

func osSource(root string, recursive bool, opts []SourceOption) (Source, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &os.PathError{Op: "open", Path: root, Err: os.ErrInvalid}
	}
	display := func(rel string) string { return filepath.Join(root, filepath.FromSlash(rel)) }
	return newFSSource(os.DirFS(root), recursive, display, opts), nil
}

// MustDir is like Dir but panics on error.
func MustDir(path string, opts ...SourceOption) Source {
	return must(Dir(path, opts...))
}

// MustDirTree is like DirTree but panics on error.
func MustDirTree(root string, opts ...SourceOption) Source {
	return must(DirTree(root, opts...))
}

func must(src Source, err error) Source {
	if err != nil {
		panic(err)
	}
	return src
}

// FS creates a Source backed by an fs.FS (e.g., embed.FS).
// The name prefixes reported paths.
func FS(name string, fsys fs.FS, opts ...SourceOption) Source {
	return newFSSource(fsys, true, func(rel string) string { return name + ":" + rel }, opts)
}

func (s *fsSource) load() error {
	s.once.Do(func() {
		s.index = make(map[string]string)
		s.rel = make(map[string]string)
		s.err = fs.WalkDir(s.fsys, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if path != "." && !s.recursive {
					return fs.SkipDir
				}
				return nil
			}
			if !hasValidExtension(path, s.exts) {
				return nil
			}
			name := schemaNameFromPath(path)
			if _, exists := s.index[name]; exists {
				return nil
			}
			shown := s.display(path)
			s.index[name] = shown
			s.rel[shown] = path
			s.files = append(s.files, shown)
			return nil
		})
	})
	return s.err
}

func (s *fsSource) Find(name string) (io.ReadCloser, string, error) {
	if err := s.load(); err != nil {
		return nil, "", err
	}
	shown, ok := s.index[name]
	if !ok {
		return nil, "", fs.ErrNotExist
	}
	f, err := s.fsys.Open(s.rel[shown])
	if err != nil {
		return nil, shown, err
	}
	return f, shown, nil
}

func (s *fsSource) ListFiles() ([]string, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	return slices.Clone(s.files), nil
}

func (s *fsSource) Open(path string) (io.ReadCloser, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	rel, ok := s.rel[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return s.fsys.Open(rel)
}

type multiSource struct {
	sources []Source
}

// Multi combines multiple sources into one.
// Find() tries each source in order, returning the first match.
func Multi(sources ...Source) Source {
	return &multiSource{sources: sources}
}

func (s *multiSource) Find(name string) (io.ReadCloser, string, error) {
	for _, src := range s.sources {
		r, path, err := src.Find(name)
		if err == nil {
			return r, path, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, path, err
		}
	}
	return nil, "", fs.ErrNotExist
}

func (s *multiSource) ListFiles() ([]string, error) {
	var files []string
	for _, src := range s.sources {
		f, err := src.ListFiles()
		if err != nil {
			return nil, err
		}
		files = append(files, f...)
	}
	return files, nil
}

func (s *multiSource) Open(path string) (io.ReadCloser, error) {
	for _, src := range s.sources {
		r, err := src.Open(path)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
}

func makeExtensionSet(extensions []string) map[string]struct{} {
	set := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		set[strings.ToLower(ext)] = struct{}{}
	}
	return set
}

func hasValidExtension(path string, extSet map[string]struct{}) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, ok := extSet[ext]
	return ok
}

func schemaNameFromPath(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext)
}
