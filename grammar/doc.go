// Package grammar defines the type-node model for binary grammars and the
// Schema container that binds named definitions together.
//
// A grammar is a tree of Nodes. Composite kinds (Struct, Union, Variant,
// Repeat, Switch) hold child nodes; BitStruct and Field are leaves, though a
// Field may delegate its bytes to a sub-node; Named refers to another
// definition in the owning Schema by name. Every node carries Params,
// consulted by the node itself. Format keys and user keys are inherited by
// descendants during parsing; magic, display and the reassembly keys are
// not.
//
// Schemas round-trip through a plain map/list/scalar shape (Serialize and
// Deserialize), which is also the YAML document format.
package grammar
