package grammar

import "fmt"

// Primitive is the decoded representation of a Field.
type Primitive int

const (
	Uint8 Primitive = iota + 1
	Uint16
	Uint32
	Uint64
	Int8
	Int16
	Int32
	Int64
	Uint // unsigned, width given by the size policy (1..8 bytes)
	Int  // signed, width given by the size policy (1..8 bytes)
	Float32
	Float64
	Bytes
	String
	Bool
)

var primitiveNames = map[Primitive]string{
	Uint8:   "UINT8",
	Uint16:  "UINT16",
	Uint32:  "UINT32",
	Uint64:  "UINT64",
	Int8:    "INT8",
	Int16:   "INT16",
	Int32:   "INT32",
	Int64:   "INT64",
	Uint:    "UINT",
	Int:     "INT",
	Float32: "FLOAT32",
	Float64: "FLOAT64",
	Bytes:   "BYTES",
	String:  "STRING",
	Bool:    "BOOL",
}

func (p Primitive) String() string {
	if name, ok := primitiveNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Primitive(%d)", int(p))
}

// ParsePrimitive returns the primitive named s (e.g. "UINT16").
func ParsePrimitive(s string) (Primitive, bool) {
	for p, name := range primitiveNames {
		if name == s {
			return p, true
		}
	}
	return 0, false
}

// Width returns the natural byte width of p, or 0 when the width comes
// from the size policy.
func (p Primitive) Width() int {
	switch p {
	case Uint8, Int8, Bool:
		return 1
	case Uint16, Int16:
		return 2
	case Uint32, Int32, Float32:
		return 4
	case Uint64, Int64, Float64:
		return 8
	}
	return 0
}

// IsInteger reports whether p decodes to an integer.
func (p Primitive) IsInteger() bool {
	switch p {
	case Uint8, Uint16, Uint32, Uint64, Int8, Int16, Int32, Int64, Uint, Int:
		return true
	}
	return false
}

// IsSigned reports whether p is a signed integer.
func (p Primitive) IsSigned() bool {
	switch p {
	case Int8, Int16, Int32, Int64, Int:
		return true
	}
	return false
}
