// Package ir is the data model the passes operate on: one Unit per
// class or interface, a small tagged-variant Node tree for declarations
// and method bodies, and per-node markers.
//
// Method bodies are written as s-expressions:
//
//	(block
//	  (assign x (add n 1))
//	  (if (lt x 10) (return x) (return 0)))
//
// Bare identifiers are locals, integers are constants, true/false are 1/0.
package ir
