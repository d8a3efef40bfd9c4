// Package bytecode defines the stack VM image kiln emits: opcodes,
// methods and types, a msgpack codec, a stack-depth verifier and the
// artifact writers (one .kbc per type, or a single .kar archive).
package bytecode
