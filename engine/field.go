package engine

import (
	"bytes"
	"math"
	"slices"
	"strings"

	"github.com/Velocidex/ordereddict"
	"github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/wiregram/wiregram/expr"
	"github.com/wiregram/wiregram/grammar"
)

func (c *Context) runField(f *grammar.Field, depth int) (any, error) {
	length, skip, err := c.fieldLength(f, depth)
	if err != nil {
		return nil, err
	}
	if f.Delegate != nil {
		return c.runDelegate(f, length, skip)
	}
	raw, err := c.take(length)
	if err != nil {
		return nil, err
	}
	c.pos += skip
	return c.decode(f.Primitive, raw)
}

// runDelegate bounds the context to exactly length bytes and parses them
// with the delegate node. The cursor always ends after the sized region.
func (c *Context) runDelegate(f *grammar.Field, length, skip int) (any, error) {
	if err := c.check(length); err != nil {
		return nil, err
	}
	start, saved := c.pos, c.limit
	c.limit = start + length
	v, err := c.eval(f.Delegate, "")
	c.limit = saved
	if err != nil {
		return v, err
	}
	c.pos = start + length + skip
	return v, nil
}

// fieldLength resolves the byte length of a field. For prefixed sizes the
// header is consumed; for terminated sizes skip is the terminator length
// to consume after the value.
func (c *Context) fieldLength(f *grammar.Field, depth int) (length, skip int, err error) {
	size := f.Size
	switch size.Kind {
	case grammar.SizeNatural:
		w := f.Primitive.Width()
		if w == 0 {
			return 0, 0, c.newError(SpecError, nil, "%s has no natural width", f.Primitive)
		}
		return w, 0, nil

	case grammar.SizeFixed:
		return int(size.Bytes), 0, nil

	case grammar.SizeExpr:
		n, err := c.evalInt(size.Expr, "field size")
		if err != nil {
			return 0, 0, err
		}
		if n < 0 || n > math.MaxInt32 {
			return 0, 0, c.newError(Invalid, nil, "field size %d out of range", n)
		}
		return int(n), 0, nil

	case grammar.SizePrefixed:
		width := int64(size.Width)
		if width == 0 {
			if width, err = c.paramInt(grammar.ParamPrefixWidth, 1); err != nil {
				return 0, 0, err
			}
		}
		if width < 1 || width > 8 {
			return 0, 0, c.newError(SpecError, nil, "prefix width %d outside 1..8", width)
		}
		little, err := c.littleEndian()
		if err != nil {
			return 0, 0, err
		}
		raw, err := c.take(int(width))
		if err != nil {
			return 0, 0, err
		}
		n := readUint(raw, little)
		if n > math.MaxInt32 {
			return 0, 0, c.newError(Invalid, nil, "length prefix %d out of range", n)
		}
		c.setMeta(depth, "prefix_length", int64(n))
		return int(n), 0, nil

	case grammar.SizeTerminated:
		term := size.Terminator
		if len(term) == 0 {
			return 0, 0, c.newError(SpecError, nil, "empty terminator")
		}
		idx := bytes.Index(c.buf[c.pos:c.end()], term)
		if idx >= 0 {
			return idx, len(term), nil
		}
		if c.limit >= 0 {
			return 0, 0, c.newError(Invalid, nil, "terminator %x not found in bounded region", term)
		}
		return 0, 0, c.newError(Incomplete, nil, "terminator %x not found", term)

	case grammar.SizeRemaining:
		return c.end() - c.pos, 0, nil
	}
	return 0, 0, c.newError(SpecError, nil, "unknown size policy %s", size.Kind)
}

func (c *Context) littleEndian() (bool, error) {
	endian, err := c.paramString(grammar.ParamEndian, "big")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(endian) {
	case "big", "be":
		return false, nil
	case "little", "le":
		return true, nil
	}
	return false, c.newError(SpecError, nil, "unknown endian %q", endian)
}

func readUint(raw []byte, little bool) uint64 {
	var u uint64
	if little {
		for i := len(raw) - 1; i >= 0; i-- {
			u = u<<8 | uint64(raw[i])
		}
		return u
	}
	for _, b := range raw {
		u = u<<8 | uint64(b)
	}
	return u
}

// decode converts raw bytes to a primitive value. Integers decode to
// int64, except 8-byte unsigned integers which decode to uint64.
func (c *Context) decode(p grammar.Primitive, raw []byte) (any, error) {
	switch {
	case p.IsInteger():
		if w := p.Width(); w > 0 && len(raw) != w {
			return nil, c.newError(SpecError, nil, "%s needs %d bytes, size gives %d", p, w, len(raw))
		}
		if len(raw) < 1 || len(raw) > 8 {
			return nil, c.newError(SpecError, nil, "%s width %d outside 1..8", p, len(raw))
		}
		little, err := c.littleEndian()
		if err != nil {
			return nil, err
		}
		u := readUint(raw, little)
		if p.IsSigned() {
			shift := 64 - 8*len(raw)
			return int64(u<<shift) >> shift, nil
		}
		if len(raw) == 8 {
			return u, nil
		}
		return int64(u), nil

	case p == grammar.Float32, p == grammar.Float64:
		if len(raw) != p.Width() {
			return nil, c.newError(SpecError, nil, "%s needs %d bytes, size gives %d", p, p.Width(), len(raw))
		}
		little, err := c.littleEndian()
		if err != nil {
			return nil, err
		}
		u := readUint(raw, little)
		if p == grammar.Float32 {
			return float64(math.Float32frombits(uint32(u))), nil
		}
		return math.Float64frombits(u), nil

	case p == grammar.Bool:
		return slices.ContainsFunc(raw, func(b byte) bool { return b != 0 }), nil

	case p == grammar.Bytes:
		return slices.Clone(raw), nil

	case p == grammar.String:
		return c.decodeString(raw)
	}
	return nil, c.newError(SpecError, nil, "unsupported primitive %s", p)
}

func (c *Context) decodeString(raw []byte) (any, error) {
	name, err := c.paramString(grammar.ParamEncoding, "utf-8")
	if err != nil {
		return nil, err
	}
	var dec *encoding.Decoder
	switch strings.ToLower(name) {
	case "utf-8", "utf8":
	case "ascii", "us-ascii":
		if i := slices.IndexFunc(raw, func(b byte) bool { return b >= 0x80 }); i >= 0 {
			return nil, c.newError(Invalid, nil, "non-ASCII byte %#02x in string", raw[i])
		}
	case "latin-1", "latin1", "iso-8859-1":
		dec = charmap.ISO8859_1.NewDecoder()
	case "utf-16le":
		dec = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	case "utf-16be", "utf-16":
		dec = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
	default:
		return nil, c.newError(SpecError, nil, "unknown encoding %q", name)
	}

	s := string(raw)
	if dec != nil {
		out, err := dec.Bytes(raw)
		if err != nil {
			return nil, c.newError(Invalid, err, "cannot decode %s string", name)
		}
		s = string(out)
	}

	strip, ok, err := c.param(grammar.ParamStrip)
	if err != nil {
		return nil, err
	}
	if ok && expr.Truthy(strip) {
		s = strings.TrimRight(s, "\x00")
	}
	return s, nil
}

// runBitStruct reads the whole bit-aligned region and slices it into
// unsigned members, most significant bit first. With bit_order "lsb" the
// bytes are reversed before slicing.
func (c *Context) runBitStruct(n *grammar.BitStruct, depth int) (any, error) {
	for _, b := range n.Bits {
		if b.Width < 1 || b.Width > 64 {
			return nil, c.newError(SpecError, nil, "bit member %s width %d outside 1..64", b.Name, b.Width)
		}
	}
	order, err := c.paramString(grammar.ParamBitOrder, "msb")
	if err != nil {
		return nil, err
	}
	start := c.pos
	raw, err := c.take((n.TotalBits() + 7) / 8)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(order) {
	case "msb":
	case "lsb":
		raw = slices.Clone(raw)
		slices.Reverse(raw)
	default:
		return nil, c.newError(SpecError, nil, "unknown bit order %q", order)
	}

	stream := kaitai.NewStream(bytes.NewReader(raw))
	d := ordereddict.NewDict()
	c.frames[depth].fields = d
	offset := 0
	for _, b := range n.Bits {
		u, err := stream.ReadBitsIntBe(b.Width)
		if err != nil {
			return d, c.newError(SpecError, err, "bit member %s", b.Name)
		}
		var v any = int64(u)
		if b.Width == 64 {
			v = u
		}
		if c.cfg.annotate {
			v = &Range{
				Start: c.bias + int64(start+offset/8),
				End:   c.bias + int64(start+(offset+b.Width+7)/8),
				Value: v,
				Name:  b.Name,
				Meta: ordereddict.NewDict().
					Set("bit_offset", int64(offset)).
					Set("bit_width", int64(b.Width)),
			}
		}
		d.Set(b.Name, v)
		offset += b.Width
	}
	return d, nil
}
