package grammar

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	// ErrNoEntry is returned when a schema has no entry point to parse.
	ErrNoEntry = errors.New("schema has no entry point")
	// ErrUnbound is returned when a Named node was never added to a Schema.
	ErrUnbound = errors.New("reference is not bound to a schema")
)

// UndefinedReferenceError reports a name with no definition in the schema.
type UndefinedReferenceError struct {
	Name string
}

func (e *UndefinedReferenceError) Error() string {
	return fmt.Sprintf("undefined reference %q", e.Name)
}

// Schema is a set of named type definitions plus a designated entry point.
//
// Definitions are added with Define before parsing starts. A Schema may be
// shared by concurrent parses once ResolveAll has succeeded.
type Schema struct {
	// Entry names the definition parsed by default. When empty, the first
	// definition is used.
	Entry string

	mu    sync.RWMutex
	defs  map[string]Node
	order []string
}

// NewSchema returns an empty schema.
func NewSchema() *Schema {
	return &Schema{defs: make(map[string]Node)}
}

// Define binds name to n, replacing any existing definition. Every Named
// node inside n is bound to s.
func (s *Schema) Define(name string, n Node) {
	Walk(n, name, func(_ string, c Node) bool {
		if named, ok := c.(*Named); ok {
			named.bind(s)
		}
		return true
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.defs == nil {
		s.defs = make(map[string]Node)
	}
	if _, exists := s.defs[name]; !exists {
		s.order = append(s.order, name)
	}
	s.defs[name] = n
}

// Lookup returns the definition for name, if any.
func (s *Schema) Lookup(name string) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.defs[name]
	return n, ok
}

// Resolve returns the definition for name or an *UndefinedReferenceError.
func (s *Schema) Resolve(name string) (Node, error) {
	if n, ok := s.Lookup(name); ok {
		return n, nil
	}
	return nil, &UndefinedReferenceError{Name: name}
}

// Names returns definition names in the order they were first defined.
func (s *Schema) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

// Len returns the number of definitions.
func (s *Schema) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// EntryName returns the effective entry point name.
func (s *Schema) EntryName() (string, error) {
	if s.Entry != "" {
		return s.Entry, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.order) == 0 {
		return "", ErrNoEntry
	}
	return s.order[0], nil
}

// EntryNode resolves the entry point definition.
func (s *Schema) EntryNode() (Node, error) {
	name, err := s.EntryName()
	if err != nil {
		return nil, err
	}
	return s.Resolve(name)
}

// ResolveAll resolves every Named reference in every definition, so that
// later parses only read memoized targets. All failures are returned
// joined.
func (s *Schema) ResolveAll() error {
	var errs []error
	for _, name := range s.Names() {
		def, _ := s.Lookup(name)
		Walk(def, name, func(path string, n Node) bool {
			if named, ok := n.(*Named); ok {
				if _, err := named.Target(); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", path, err))
				}
			}
			return true
		})
	}
	return errors.Join(errs...)
}
