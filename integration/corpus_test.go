// Package integration provides integration tests against the schema test
// corpus.
//
// These tests load the full testdata/corpus/ folder through the public
// loader and parse hand-assembled captures against it. Expected values
// are derived from the protocol layouts, byte by byte.
//
// # File Organization
//
//   - corpus_test.go: Shared infrastructure and basic load test
//   - frames_test.go: Ethernet, IPv4, UDP and ARP decoding
//   - annotate_test.go: Byte ranges over parsed frames
//   - stream_test.go: Chunked feeding and reassembly
package integration

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Velocidex/ordereddict"
	"github.com/stretchr/testify/require"

	"github.com/wiregram/wiregram"
)

// corpusSchema holds the shared schema for all tests.
// Loaded once via loadCorpus().
var (
	corpusSchema *wiregram.Schema
	corpusOnce   sync.Once
	corpusErr    error
)

func corpusPath() string {
	return filepath.Join("..", "testdata", "corpus")
}

// loadCorpus loads the entire corpus once and caches the result.
func loadCorpus(t *testing.T) *wiregram.Schema {
	t.Helper()

	corpusOnce.Do(func() {
		src, err := wiregram.DirTree(corpusPath())
		if err != nil {
			corpusErr = err
			return
		}
		corpusSchema, corpusErr = wiregram.LoadSchema(context.Background(), src)
	})

	require.NoError(t, corpusErr, "failed to load corpus")
	require.NotNil(t, corpusSchema)
	return corpusSchema
}

// get walks a plain value tree by member names.
func get(t *testing.T, v any, path ...string) any {
	t.Helper()
	for _, name := range path {
		d, ok := v.(*ordereddict.Dict)
		require.True(t, ok, "%s: expected record, got %T", name, v)
		v, ok = d.Get(name)
		require.True(t, ok, "missing member %s", name)
	}
	return v
}

func TestCorpusLoads(t *testing.T) {
	s := loadCorpus(t)

	require.Equal(t, "ethernet", s.Entry)
	for _, name := range []string{"ethernet", "mac", "arp", "ipv4", "ipaddr", "udp", "chat_record"} {
		_, ok := s.Lookup(name)
		require.True(t, ok, "definition %s", name)
	}
	for _, d := range s.Check() {
		require.NotEqual(t, wiregram.SeverityError, d.Severity, d.String())
	}
}
