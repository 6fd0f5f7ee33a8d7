package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/wiregram/wiregram/grammar"
	"github.com/wiregram/wiregram/internal/config"
)

const packetDoc = `
entry: packet
types:
  packet:
    kind: struct
    members:
      - name: len
        node: UINT8
      - name: data
        node: {kind: field, primitive: BYTES, size: {policy: expr, expr: len}}
  tag:
    kind: struct
    members:
      - name: id
        node: UINT16
`

const brokenDoc = `
entry: frame
types:
  frame:
    kind: struct
    members:
      - name: header
        node: header
`

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv(config.Env, "")
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func decodeLines(t *testing.T, out string) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		lines = append(lines, m)
	}
	return lines
}

func TestParseCommand(t *testing.T) {
	dir := t.TempDir()
	schema := writeFile(t, dir, "packet.yaml", []byte(packetDoc))
	input := writeFile(t, dir, "in.hex", []byte("02 aa bb\n"))

	code, stdout, stderr := runCLI(t, "parse", "--hex", schema, input)
	require.Equal(t, exitOK, code, stderr)
	require.Equal(t, "{\"len\":2,\"data\":\"aabb\"}\n", stdout)
}

func TestParseCompressedInput(t *testing.T) {
	dir := t.TempDir()
	schema := writeFile(t, dir, "packet.yaml", []byte(packetDoc))

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte{0x01, 0xcc, 0xff})
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	input := writeFile(t, dir, "in.bin.gz", buf.Bytes())

	code, stdout, stderr := runCLI(t, "parse", schema, input)
	require.Equal(t, exitOK, code, stderr)
	require.Equal(t, "{\"len\":1,\"data\":\"cc\"}\n", stdout)
	require.Contains(t, stderr, "1 trailing bytes after offset 2")
}

func TestParseEntryAndAnnotate(t *testing.T) {
	dir := t.TempDir()
	schema := writeFile(t, dir, "packet.yaml", []byte(packetDoc))
	input := writeFile(t, dir, "in.bin", []byte{0x00, 0x2a})

	code, stdout, stderr := runCLI(t, "parse", "-e", "tag", "--annotate", schema, input)
	require.Equal(t, exitOK, code, stderr)
	got := decodeLines(t, stdout)[0]
	require.Equal(t, float64(0), got["start"])
	require.Equal(t, float64(2), got["end"])
	require.Equal(t, "tag", got["name"])
}

func TestParseIncomplete(t *testing.T) {
	dir := t.TempDir()
	schema := writeFile(t, dir, "packet.yaml", []byte(packetDoc))
	input := writeFile(t, dir, "in.bin", []byte{0x02, 0xaa})

	code, stdout, stderr := runCLI(t, "parse", schema, input)
	require.Equal(t, exitError, code)
	require.Equal(t, "{\"len\":2,\"data\":null}\n", stdout)
	require.Contains(t, stderr, "error: incomplete at offset 1 in packet.data")
	require.Contains(t, stderr, "00000000  02 aa")
}

func TestParseBySearchPath(t *testing.T) {
	t.Setenv("WIREGRAM_PATH", "")
	dir := t.TempDir()
	writeFile(t, dir, "packet.yaml", []byte(packetDoc))
	input := writeFile(t, t.TempDir(), "in.bin", []byte{0x01, 0x07})

	code, stdout, stderr := runCLI(t, "-p", dir, "parse", "packet", input)
	require.Equal(t, exitOK, code, stderr)
	require.Equal(t, "{\"len\":1,\"data\":\"07\"}\n", stdout)
}

func TestConfigEntry(t *testing.T) {
	dir := t.TempDir()
	schema := writeFile(t, dir, "packet.yaml", []byte(packetDoc))
	input := writeFile(t, dir, "in.bin", []byte{0x01, 0x02})
	cfg := writeFile(t, dir, "wiregram.toml", []byte("entry = \"tag\"\n"))

	code, stdout, stderr := runCLI(t, "--config", cfg, "parse", schema, input)
	require.Equal(t, exitOK, code, stderr)
	require.Equal(t, "{\"id\":258}\n", stdout)

	bad := writeFile(t, dir, "bad.toml", []byte("nope = 1\n"))
	code, _, stderr = runCLI(t, "--config", bad, "parse", schema, input)
	require.Equal(t, exitError, code)
	require.Contains(t, stderr, "nope")
}

func TestStreamCommand(t *testing.T) {
	dir := t.TempDir()
	schema := writeFile(t, dir, "packet.yaml", []byte(packetDoc))
	input := writeFile(t, dir, "in.hex", []byte("01 aa 02 bb cc 01 dd"))

	code, stdout, stderr := runCLI(t, "stream", "-c", "1", "--hex", schema, input)
	require.Equal(t, exitOK, code, stderr)
	lines := decodeLines(t, stdout)
	require.Len(t, lines, 3)
	require.Equal(t, float64(0), lines[0]["offset"])
	require.Equal(t, float64(2), lines[1]["offset"])
	require.Equal(t, float64(5), lines[2]["offset"])
	require.Equal(t, map[string]any{"len": float64(2), "data": "bbcc"}, lines[1]["value"])
}

func TestStreamLeftover(t *testing.T) {
	dir := t.TempDir()
	schema := writeFile(t, dir, "packet.yaml", []byte(packetDoc))
	input := writeFile(t, dir, "in.bin", []byte{0x01, 0xaa, 0x03, 0xbb})

	code, stdout, stderr := runCLI(t, "stream", schema, input)
	require.Equal(t, exitError, code)
	require.Len(t, decodeLines(t, stdout), 1)
	require.Contains(t, stderr, "2 bytes left unparsed at offset 2")
}

func TestStreamBadChunk(t *testing.T) {
	code, _, stderr := runCLI(t, "stream", "-c", "0", "x.yaml")
	require.Equal(t, exitError, code)
	require.Contains(t, stderr, "chunk size must be positive")
}

func TestSchemaCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "packet.yaml", []byte(packetDoc))

	code, stdout, stderr := runCLI(t, "schema", dir)
	require.Equal(t, exitOK, code, stderr)
	back, err := grammar.DecodeYAML([]byte(stdout))
	require.NoError(t, err)
	require.Equal(t, []string{"packet", "tag"}, back.Names())
	require.Equal(t, "packet", back.Entry)

	out := filepath.Join(dir, "schema.json")
	code, _, stderr = runCLI(t, "schema", "--json", "-o", out, dir)
	require.Equal(t, exitOK, code, stderr)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	require.Equal(t, "packet", m["entry"])
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "packet.yaml", []byte(packetDoc))
	broken := writeFile(t, dir, "frame.yaml", []byte(brokenDoc))

	code, stdout, stderr := runCLI(t, "check", good)
	require.Equal(t, exitOK, code, stderr)
	require.Equal(t, "2 definitions, 0 diagnostics\n", stdout)

	code, stdout, _ = runCLI(t, "check", broken)
	require.Equal(t, exitSchema, code)
	require.Contains(t, stdout, "error: [undefined-reference] frame.header")
}

func TestUsage(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
		out  string
	}{
		{"no command", nil, exitError, ""},
		{"help", []string{"help"}, exitOK, "Commands:"},
		{"help flag", []string{"-h"}, exitOK, "Commands:"},
		{"command help", []string{"parse", "-h"}, exitOK, "wiregram parse"},
		{"unknown", []string{"frobnicate"}, exitError, ""},
		{"version", []string{"version"}, exitOK, "wiregram "},
		{"parse without schema", []string{"parse"}, exitError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, _ := runCLI(t, tt.args...)
			require.Equal(t, tt.code, code)
			require.Contains(t, stdout, tt.out)
		})
	}
}
