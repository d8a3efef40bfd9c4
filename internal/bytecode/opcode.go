package bytecode

import "fmt"

type Opcode uint8

const (
	OpNop Opcode = iota
	OpConst
	OpLoad
	OpStore
	OpGetField
	OpPutField
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
	OpNot
	OpNeg
	OpJump
	OpJumpIfFalse
	OpCall
	OpPop
	OpReturn
	OpReturnVoid
	opCount
)

var opNames = [...]string{
	OpNop:         "nop",
	OpConst:       "const",
	OpLoad:        "load",
	OpStore:       "store",
	OpGetField:    "getfield",
	OpPutField:    "putfield",
	OpAdd:         "add",
	OpSub:         "sub",
	OpMul:         "mul",
	OpDiv:         "div",
	OpLt:          "lt",
	OpLe:          "le",
	OpGt:          "gt",
	OpGe:          "ge",
	OpEq:          "eq",
	OpNe:          "ne",
	OpNot:         "not",
	OpNeg:         "neg",
	OpJump:        "jump",
	OpJumpIfFalse: "jumpiffalse",
	OpCall:        "call",
	OpPop:         "pop",
	OpReturn:      "return",
	OpReturnVoid:  "return.void",
}

func (o Opcode) String() string {
	if o < opCount {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}

// Valid reports whether o is a known opcode.
func (o Opcode) Valid() bool { return o < opCount }

// IsJump reports whether A is a branch target.
func (o Opcode) IsJump() bool { return o == OpJump || o == OpJumpIfFalse }

// IsTerminal reports whether control never falls through to the next
// instruction.
func (o Opcode) IsTerminal() bool {
	return o == OpJump || o == OpReturn || o == OpReturnVoid
}

// effect returns how many values the instruction pops and pushes.
func (in Instr) effect() (pop, push int) {
	switch in.Op {
	case OpConst, OpLoad, OpGetField:
		return 0, 1
	case OpStore, OpPutField, OpJumpIfFalse, OpPop, OpReturn:
		return 1, 0
	case OpAdd, OpSub, OpMul, OpDiv, OpLt, OpLe, OpGt, OpGe, OpEq, OpNe:
		return 2, 1
	case OpNot, OpNeg:
		return 1, 1
	case OpCall:
		return int(in.B), 1
	}
	return 0, 0
}

// Instr is one instruction. A is the immediate (constant, local slot,
// field index, jump target or method index); B is the call arity.
type Instr struct {
	Op Opcode `msgpack:"o"`
	A  int64  `msgpack:"a,omitempty"`
	B  int32  `msgpack:"b,omitempty"`
}

func (in Instr) String() string {
	switch in.Op {
	case OpConst, OpLoad, OpStore, OpGetField, OpPutField, OpJump, OpJumpIfFalse:
		return fmt.Sprintf("%s %d", in.Op, in.A)
	case OpCall:
		return fmt.Sprintf("%s %d/%d", in.Op, in.A, in.B)
	}
	return in.Op.String()
}
