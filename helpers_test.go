package wiregram

import (
	"encoding/json"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/wiregram/wiregram/engine"
	"github.com/wiregram/wiregram/internal/types"
)

// testLogger returns a logger that writes through t.Log.
func testLogger(t *testing.T) types.Logger {
	t.Helper()
	return types.Logger{L: slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: LevelTrace}))}
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

const ethernetDoc = `
entry: frame
types:
  frame:
    kind: struct
    members:
      - name: dst
        node: mac
      - name: src
        node: mac
      - name: ethertype
        node: UINT16
      - name: payload
        node: {kind: field, primitive: BYTES, size: {policy: remaining}}
  mac:
    kind: field
    primitive: BYTES
    size: 6
`

const ipv4Doc = `
types:
  ipv4:
    kind: struct
    members:
      - name: vihl
        node: {kind: bitstruct, bits: [{name: version, width: 4}, {name: ihl, width: 4}]}
      - name: src
        node: addr
  addr:
    kind: field
    primitive: BYTES
    size: 4
  mac:
    kind: field
    primitive: BYTES
    size: 8
`

const tunnelDoc = `
entry: tunnel
types:
  tunnel:
    kind: struct
    members:
      - name: id
        node: UINT8
      - name: inner
        node: ipv4
`

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"net/ethernet.yaml": {Data: []byte(ethernetDoc)},
		"net/ipv4.yml":      {Data: []byte(ipv4Doc)},
		"tunnel.wg":         {Data: []byte(tunnelDoc)},
		"README.md":         {Data: []byte("not a schema")},
	}
}

func jsonString(v any) (string, error) {
	out, err := json.Marshal(engine.JSON(Plain(v)))
	return string(out), err
}
