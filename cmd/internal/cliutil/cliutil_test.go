package cliutil

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
)

func gzipped(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func zstded(t *testing.T, data []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer func() { _ = enc.Close() }()
	return enc.EncodeAll(data, nil)
}

func TestDecompress(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	tests := []struct {
		name string
		in   []byte
	}{
		{"plain", payload},
		{"gzip", gzipped(t, payload)},
		{"zstd", zstded(t, payload)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Decompress(io.NopCloser(bytes.NewReader(tt.in)))
			require.NoError(t, err)
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			require.NoError(t, r.Close())
			require.Equal(t, payload, got)
		})
	}
}

func TestDecompressShortInput(t *testing.T) {
	r, err := Decompress(io.NopCloser(bytes.NewReader([]byte{0x1f})))
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, []byte{0x1f}, got)
}

func TestReadInput(t *testing.T) {
	dir := t.TempDir()
	hexPath := filepath.Join(dir, "in.hex")
	require.NoError(t, os.WriteFile(hexPath, []byte("0x01 02\n0A ff\n"), 0o644))
	gzPath := filepath.Join(dir, "in.gz")
	require.NoError(t, os.WriteFile(gzPath, gzipped(t, []byte("ab")), 0o644))

	got, err := ReadInput(hexPath, true)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02, 0x0a, 0xff}, got)

	got, err = ReadInput(gzPath, false)
	require.NoError(t, err)
	require.Equal(t, []byte("ab"), got)

	_, err = ReadInput(filepath.Join(dir, "missing"), false)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestDecodeHex(t *testing.T) {
	_, err := DecodeHex("abc")
	require.Error(t, err)

	got, err := DecodeHex("")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, map[string]any{"a": "<b>"}))
	require.Equal(t, "{\"a\":\"<b>\"}\n", buf.String())
}
