package bytecode

import (
	"errors"
	"fmt"
)

// VerifyError locates a problem in a method body.
type VerifyError struct {
	Method string
	PC     int
	Msg    string
}

func (e *VerifyError) Error() string {
	if e.PC < 0 {
		return fmt.Sprintf("%s: %s", e.Method, e.Msg)
	}
	return fmt.Sprintf("%s@%04d: %s", e.Method, e.PC, e.Msg)
}

// MaxStack computes the maximum operand stack depth of code by walking
// every path. Each instruction must be reached with one consistent
// depth, never underflow, and no path may run off the end.
func MaxStack(code []Instr) (int, error) {
	if len(code) == 0 {
		return 0, &VerifyError{PC: -1, Msg: "empty code"}
	}
	depth := make([]int, len(code))
	for i := range depth {
		depth[i] = -1
	}
	maxDepth := 0
	work := []int{0}
	depth[0] = 0

	flow := func(from, to, d int) error {
		if to < 0 || to >= len(code) {
			return &VerifyError{PC: from, Msg: fmt.Sprintf("branch target %d out of range", to)}
		}
		switch depth[to] {
		case -1:
			depth[to] = d
			work = append(work, to)
		case d:
		default:
			return &VerifyError{PC: to, Msg: fmt.Sprintf("inconsistent stack depth %d vs %d", depth[to], d)}
		}
		return nil
	}

	for len(work) > 0 {
		pc := work[len(work)-1]
		work = work[:len(work)-1]
		in := code[pc]
		if !in.Op.Valid() {
			return 0, &VerifyError{PC: pc, Msg: fmt.Sprintf("unknown opcode %d", in.Op)}
		}
		pop, push := in.effect()
		d := depth[pc]
		if d < pop {
			return 0, &VerifyError{PC: pc, Msg: fmt.Sprintf("stack underflow: %s needs %d, have %d", in.Op, pop, d)}
		}
		d = d - pop + push
		maxDepth = max(maxDepth, d)

		if in.Op.IsJump() {
			if err := flow(pc, int(in.A), d); err != nil {
				return 0, err
			}
		}
		if in.Op.IsTerminal() {
			continue
		}
		if pc+1 >= len(code) {
			return 0, &VerifyError{PC: pc, Msg: "control falls off the end of the method"}
		}
		if err := flow(pc, pc+1, d); err != nil {
			return 0, err
		}
	}
	return maxDepth, nil
}

// VerifyMethod checks m against its owner type.
func VerifyMethod(t *Type, m *Method) error {
	wrap := func(err error) error {
		var ve *VerifyError
		if errors.As(err, &ve) {
			ve.Method = t.Name + "." + m.Name
		}
		return err
	}
	if m.Abstract {
		if len(m.Code) != 0 {
			return wrap(&VerifyError{PC: -1, Msg: "abstract method has code"})
		}
		return nil
	}
	if m.Params > m.MaxLocals {
		return wrap(&VerifyError{PC: -1, Msg: fmt.Sprintf("%d params exceed %d locals", m.Params, m.MaxLocals)})
	}
	for pc, in := range m.Code {
		switch in.Op {
		case OpLoad, OpStore:
			if in.A < 0 || in.A >= int64(m.MaxLocals) {
				return wrap(&VerifyError{PC: pc, Msg: fmt.Sprintf("local slot %d out of range", in.A)})
			}
		case OpGetField, OpPutField:
			if in.A < 0 || in.A >= int64(len(t.Fields)) {
				return wrap(&VerifyError{PC: pc, Msg: fmt.Sprintf("field index %d out of range", in.A)})
			}
		case OpCall:
			if in.A < 0 || in.A >= int64(len(t.Methods)) {
				return wrap(&VerifyError{PC: pc, Msg: fmt.Sprintf("method index %d out of range", in.A)})
			}
			if callee := t.Methods[in.A]; int(in.B) != callee.Params {
				return wrap(&VerifyError{PC: pc, Msg: fmt.Sprintf("call to %s passes %d args, wants %d", callee.Name, in.B, callee.Params)})
			}
		}
	}
	depth, err := MaxStack(m.Code)
	if err != nil {
		return wrap(err)
	}
	if depth != m.MaxStack {
		return wrap(&VerifyError{PC: -1, Msg: fmt.Sprintf("declared max stack %d, computed %d", m.MaxStack, depth)})
	}
	return nil
}

// VerifyType checks every method of t and joins the problems.
func VerifyType(t *Type) error {
	var errs []error
	for i := range t.Methods {
		if err := VerifyMethod(t, &t.Methods[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
