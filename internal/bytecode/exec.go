package bytecode

import (
	"errors"
	"fmt"
)

// ErrStepLimit stops runaway loops in Exec.
var ErrStepLimit = errors.New("step limit exceeded")

// Object is an instance of a Type: just its field values.
type Object struct {
	Type   *Type
	Fields []int64
}

// NewObject allocates an instance with zeroed fields and runs <init>
// when the type has one.
func NewObject(t *Type, limit int) (*Object, error) {
	obj := &Object{Type: t, Fields: make([]int64, len(t.Fields))}
	if t.MethodIndex("<init>") >= 0 {
		if _, err := obj.Call("<init>", limit); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

// Call runs the named method with args. limit caps the number of
// executed instructions; <= 0 means one million.
func (o *Object) Call(name string, limit int, args ...int64) (int64, error) {
	idx := o.Type.MethodIndex(name)
	if idx < 0 {
		return 0, fmt.Errorf("%s has no method %s", o.Type.Name, name)
	}
	if limit <= 0 {
		limit = 1_000_000
	}
	budget := limit
	return o.invoke(idx, args, &budget)
}

func (o *Object) invoke(idx int, args []int64, budget *int) (int64, error) {
	m := &o.Type.Methods[idx]
	if m.Abstract {
		return 0, fmt.Errorf("%s.%s is abstract", o.Type.Name, m.Name)
	}
	if len(args) != m.Params {
		return 0, fmt.Errorf("%s.%s takes %d args, got %d", o.Type.Name, m.Name, m.Params, len(args))
	}
	locals := make([]int64, m.MaxLocals)
	copy(locals, args)
	stack := make([]int64, 0, m.MaxStack)
	pop := func() int64 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}

	for pc := 0; pc < len(m.Code); {
		if *budget--; *budget < 0 {
			return 0, ErrStepLimit
		}
		in := m.Code[pc]
		pc++
		switch in.Op {
		case OpNop:
		case OpConst:
			stack = append(stack, in.A)
		case OpLoad:
			stack = append(stack, locals[in.A])
		case OpStore:
			locals[in.A] = pop()
		case OpGetField:
			stack = append(stack, o.Fields[in.A])
		case OpPutField:
			o.Fields[in.A] = pop()
		case OpAdd, OpSub, OpMul, OpDiv, OpLt, OpLe, OpGt, OpGe, OpEq, OpNe:
			b, a := pop(), pop()
			v, err := arith(in.Op, a, b)
			if err != nil {
				return 0, fmt.Errorf("%s.%s@%04d: %w", o.Type.Name, m.Name, pc-1, err)
			}
			stack = append(stack, v)
		case OpNot:
			stack = append(stack, b2i(pop() == 0))
		case OpNeg:
			stack = append(stack, -pop())
		case OpJump:
			pc = int(in.A)
		case OpJumpIfFalse:
			if pop() == 0 {
				pc = int(in.A)
			}
		case OpCall:
			n := int(in.B)
			callArgs := make([]int64, n)
			copy(callArgs, stack[len(stack)-n:])
			stack = stack[:len(stack)-n]
			v, err := o.invoke(int(in.A), callArgs, budget)
			if err != nil {
				return 0, err
			}
			stack = append(stack, v)
		case OpPop:
			pop()
		case OpReturn:
			return pop(), nil
		case OpReturnVoid:
			return 0, nil
		default:
			return 0, fmt.Errorf("unknown opcode %d", in.Op)
		}
	}
	return 0, nil
}

var errDivZero = errors.New("division by zero")

func arith(op Opcode, a, b int64) (int64, error) {
	switch op {
	case OpAdd:
		return a + b, nil
	case OpSub:
		return a - b, nil
	case OpMul:
		return a * b, nil
	case OpDiv:
		if b == 0 {
			return 0, errDivZero
		}
		return a / b, nil
	case OpLt:
		return b2i(a < b), nil
	case OpLe:
		return b2i(a <= b), nil
	case OpGt:
		return b2i(a > b), nil
	case OpGe:
		return b2i(a >= b), nil
	case OpEq:
		return b2i(a == b), nil
	case OpNe:
		return b2i(a != b), nil
	}
	return 0, fmt.Errorf("not an arithmetic opcode: %s", op)
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
