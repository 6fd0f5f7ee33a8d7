package types

import (
	"encoding/hex"
	"strings"
)

// ContextWindow is the number of bytes shown on each side of an offset
// in a hex context dump.
const ContextWindow = 16

// HexContext renders the bytes surrounding pos as a hex dump. Offsets in
// the dump are relative to the start of the window; the window start is
// returned so callers can report it with their own display bias.
func HexContext(buf []byte, pos int) (dump string, start int) {
	if len(buf) == 0 {
		return "", 0
	}
	pos = min(max(pos, 0), len(buf))
	start = max(pos-ContextWindow, 0)
	end := min(pos+ContextWindow, len(buf))
	if start >= end {
		return "", start
	}
	return strings.TrimRight(hex.Dump(buf[start:end]), "\n"), start
}
