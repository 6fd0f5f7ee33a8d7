package grammar

import (
	"github.com/Velocidex/ordereddict"
)

// Parameter keys inherited by descendants that do not declare them.
const (
	ParamEndian      = "endian"       // "big" (default) or "little"
	ParamEncoding    = "encoding"     // STRING encoding, default "utf-8"
	ParamPrefixWidth = "prefix_width" // length-prefix width in bytes, default 1
	ParamBitOrder    = "bit_order"    // "msb" (default) or "lsb"
	ParamStrip       = "strip"        // trim trailing NUL bytes from STRING
)

// Parameter keys read only from the node declaring them.
const (
	ParamMagic          = "magic"           // required decoded value
	ParamReassemble     = "reassemble"      // reassembly category name
	ParamReassembleKey  = "reassemble_key"  // expression or list of expressions
	ParamReassembleMeta = "reassemble_meta" // name -> literal or expression
	ParamDisplay        = "display"         // display name for annotated output
)

// Params is an ordered map of parameter name to value. Values are
// literals (int64, uint64, float64, string, bool, []byte, []any,
// *ordereddict.Dict) or *expr.Expression.
//
// A nil *Params is empty and safe to read.
type Params struct {
	d *ordereddict.Dict
}

// NewParams returns an empty parameter map.
func NewParams() *Params {
	return &Params{d: ordereddict.NewDict()}
}

// Get returns the value stored under key.
func (p *Params) Get(key string) (any, bool) {
	if p == nil || p.d == nil {
		return nil, false
	}
	return p.d.Get(key)
}

// Has reports whether key is declared.
func (p *Params) Has(key string) bool {
	_, ok := p.Get(key)
	return ok
}

// Set stores value under key, keeping the key's original position when it
// already exists.
func (p *Params) Set(key string, value any) *Params {
	if p.d == nil {
		p.d = ordereddict.NewDict()
	}
	p.d.Set(key, value)
	return p
}

// Keys returns parameter names in declaration order.
func (p *Params) Keys() []string {
	if p == nil || p.d == nil {
		return nil
	}
	return p.d.Keys()
}

// Len returns the number of declared parameters.
func (p *Params) Len() int {
	if p == nil || p.d == nil {
		return 0
	}
	return p.d.Len()
}
