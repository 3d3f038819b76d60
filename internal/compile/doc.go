// Package compile turns the loosely-structured upstream analysis into the
// normalized object graph, including the expression IR.
//
// Compilation never fails hard on missing optional fields: documented
// defaults are substituted and a warning is recorded instead. Dangling
// cross-references are preserved verbatim for the validator to flag; the
// compiler neither invents nor drops them.
package compile
