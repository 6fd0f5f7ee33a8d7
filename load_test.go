package wiregram

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/Velocidex/ordereddict"
	"github.com/stretchr/testify/require"
)

func TestLoadSchemaMergesDocuments(t *testing.T) {
	s, err := LoadSchema(context.Background(), FS("mem", testFS()), WithLogger(testLogger(t).L))
	require.NoError(t, err)
	require.Equal(t, []string{"frame", "mac", "ipv4", "addr", "tunnel"}, s.Names())
	require.Equal(t, "frame", s.Entry)

	// The first definition of mac wins: 6 bytes, not 8.
	frame := append(make([]byte, 12), 0x08, 0x00, 0xaa)
	v, err := Parse(s, frame)
	require.NoError(t, err)
	payload, ok := Plain(v).(*ordereddict.Dict).Get("payload")
	require.True(t, ok)
	require.Equal(t, []byte{0xaa}, payload)
}

func TestLoadSchemaEntryOverride(t *testing.T) {
	s, err := LoadSchema(context.Background(), FS("mem", testFS()), WithEntry("tunnel"), WithWorkers(1))
	require.NoError(t, err)
	require.Equal(t, "tunnel", s.Entry)

	v, err := Parse(s, []byte{7, 0x45, 10, 0, 0, 1})
	require.NoError(t, err)
	out, err := jsonString(v)
	require.NoError(t, err)
	require.JSONEq(t, `{"id":7,"inner":{"vihl":{"version":4,"ihl":5},"src":"0a000001"}}`, out)
}

func TestLoadSchemaFromDirTree(t *testing.T) {
	s, err := LoadSchema(context.Background(), MustDirTree(writeSchemaDir(t)))
	require.NoError(t, err)
	require.Equal(t, 5, s.Len())
	require.Empty(t, s.Check())
}

func TestLoadSchemaByName(t *testing.T) {
	s, err := LoadSchemaByName(context.Background(), "tunnel", FS("mem", testFS()))
	require.NoError(t, err)
	require.Equal(t, "tunnel", s.Entry)
	require.Equal(t, []string{"tunnel", "ipv4", "addr", "mac"}, s.Names())

	_, err = LoadSchemaByName(context.Background(), "nope", FS("mem", testFS()))
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoadSchemaErrors(t *testing.T) {
	_, err := LoadSchema(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoSources)
	_, err = LoadSchemaByName(context.Background(), "x", nil)
	require.ErrorIs(t, err, ErrNoSources)

	bad := fstest.MapFS{"bad.yaml": {Data: []byte("types:\n  x: {kind: wat}\n")}}
	_, err = LoadSchema(context.Background(), FS("mem", bad))
	require.ErrorContains(t, err, "mem:bad.yaml")
	require.ErrorContains(t, err, `unknown kind "wat"`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = LoadSchema(ctx, FS("mem", testFS()))
	require.ErrorIs(t, err, context.Canceled)
	_, err = LoadSchemaByName(ctx, "tunnel", FS("mem", testFS()))
	require.ErrorIs(t, err, context.Canceled)
}

func TestLoadSchemaUnresolvedIsNotFatal(t *testing.T) {
	s, err := LoadSchema(context.Background(), FS("mem", fstest.MapFS{"t.yaml": {Data: []byte(tunnelDoc)}}))
	require.NoError(t, err)
	diags := s.Check()
	require.NotEmpty(t, diags)
	require.Equal(t, SeverityError, diags[0].Severity)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(ethernetDoc), 0o644))

	s, err := LoadFile(path, WithEntry("mac"))
	require.NoError(t, err)
	require.Equal(t, "mac", s.Entry)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoadSystemPaths(t *testing.T) {
	t.Setenv(PathEnv, writeSchemaDir(t))
	s, err := LoadSchemaByName(context.Background(), "tunnel", nil, WithSystemPaths())
	require.NoError(t, err)
	require.Equal(t, "tunnel", s.Entry)
}
