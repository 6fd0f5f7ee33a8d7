// Package expr implements the small value-expression language embedded in
// grammars: sizes, counts, switch discriminants, loop conditions, magic
// values, and reassembly keys.
//
// Expressions are parsed once and evaluated against a Scope, which decides
// what bare names, $parameters, member and index access mean. Evaluation is
// pure: it never mutates the scope, and the only callable functions are the
// pure builtins in the registry.
//
// # Operators
//
// From lowest to highest precedence:
//
//	?:  ||  &&  |  ^  &  == !=  < <= > >=  << >>  + -  * / %  unary - ! ~
//
// && and || short-circuit. Integer arithmetic is 64-bit; any float operand
// makes the result a float.
//
// Division has one compatibility overload: when the left operand is a map,
// a / k looks up key k in it. No other operator is overloaded for maps.
package expr
