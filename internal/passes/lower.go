package passes

import (
	"context"
	"fmt"

	"fortio.org/safecast"

	"kiln/internal/bytecode"
	"kiln/internal/ir"
	"kiln/internal/sched"
)

// lowerToBytecode compiles every method and attaches a CodeMarker.
func lowerToBytecode(_ context.Context, _ *sched.StepContext, item sched.Item) error {
	u, err := unitOf(item)
	if err != nil {
		return err
	}
	fields := make(map[string]int)
	for i, f := range u.Type.Fields() {
		fields[f.Name] = i
	}
	methods := make(map[string]int)
	for i, m := range u.Type.Methods() {
		methods[m.Name] = i
	}

	// Markers are attached only after every method compiled, so a failure
	// leaves the unit without partial code.
	compiled := make([]*bytecode.Method, 0, len(methods))
	for _, m := range u.Type.Methods() {
		bm, err := compileMethod(m, fields, methods)
		if err != nil {
			return fmt.Errorf("method %s: %w", m.Name, err)
		}
		compiled = append(compiled, bm)
	}
	for i, m := range u.Type.Methods() {
		m.SetMarker(&CodeMarker{Method: compiled[i]})
	}
	return nil
}

type codegen struct {
	code    []bytecode.Instr
	locals  *LocalsMarker
	fields  map[string]int
	methods map[string]int
}

func compileMethod(m *ir.Node, fields, methods map[string]int) (*bytecode.Method, error) {
	out := &bytecode.Method{Name: m.Name, Params: len(m.Params)}
	body := m.Body()
	if body == nil {
		out.Abstract = true
		return out, nil
	}
	lm, ok := ir.MarkerOf[*LocalsMarker](m, MarkerLocals)
	if !ok {
		return nil, fmt.Errorf("no locals computed")
	}
	g := &codegen{locals: lm, fields: fields, methods: methods}
	if err := g.stmt(body); err != nil {
		return nil, err
	}
	if g.needsTrailingReturn() {
		g.emit(bytecode.OpReturnVoid, 0)
	}

	depth, err := bytecode.MaxStack(g.code)
	if err != nil {
		return nil, err
	}
	out.MaxLocals = len(lm.Order)
	out.MaxStack = depth
	out.Code = g.code
	return out, nil
}

func (g *codegen) emit(op bytecode.Opcode, a int64) int {
	g.code = append(g.code, bytecode.Instr{Op: op, A: a})
	return len(g.code) - 1
}

func (g *codegen) patch(at int) {
	g.code[at].A = int64(len(g.code))
}

func (g *codegen) needsTrailingReturn() bool {
	end := int64(len(g.code))
	if end == 0 || !g.code[end-1].Op.IsTerminal() {
		return true
	}
	for _, in := range g.code {
		if in.Op.IsJump() && in.A == end {
			return true
		}
	}
	return false
}

func (g *codegen) stmt(n *ir.Node) error {
	switch n.Kind {
	case ir.KindBlock:
		for _, s := range n.Children {
			if err := g.stmt(s); err != nil {
				return err
			}
		}
	case ir.KindReturn:
		if v := n.Child(0); v != nil {
			if err := g.expr(v); err != nil {
				return err
			}
			g.emit(bytecode.OpReturn, 0)
			return nil
		}
		g.emit(bytecode.OpReturnVoid, 0)
	case ir.KindIf:
		if err := g.expr(n.Child(0)); err != nil {
			return err
		}
		toElse := g.emit(bytecode.OpJumpIfFalse, 0)
		if err := g.stmt(n.Child(1)); err != nil {
			return err
		}
		if els := n.Child(2); els != nil {
			toEnd := g.emit(bytecode.OpJump, 0)
			g.patch(toElse)
			if err := g.stmt(els); err != nil {
				return err
			}
			g.patch(toEnd)
			return nil
		}
		g.patch(toElse)
	case ir.KindWhile:
		top := int64(len(g.code))
		if err := g.expr(n.Child(0)); err != nil {
			return err
		}
		exit := g.emit(bytecode.OpJumpIfFalse, 0)
		if err := g.stmt(n.Child(1)); err != nil {
			return err
		}
		g.emit(bytecode.OpJump, top)
		g.patch(exit)
	case ir.KindAssign:
		slot, ok := g.locals.Slot(n.Name)
		if !ok {
			return fmt.Errorf("no slot for local %q", n.Name)
		}
		if err := g.expr(n.Child(0)); err != nil {
			return err
		}
		g.emit(bytecode.OpStore, int64(slot))
	case ir.KindSetField:
		idx, ok := g.fields[n.Name]
		if !ok {
			return fmt.Errorf("unknown field %q", n.Name)
		}
		if err := g.expr(n.Child(0)); err != nil {
			return err
		}
		g.emit(bytecode.OpPutField, int64(idx))
	case ir.KindExprStmt:
		if err := g.expr(n.Child(0)); err != nil {
			return err
		}
		g.emit(bytecode.OpPop, 0)
	default:
		return fmt.Errorf("%s is not a statement", n.Kind)
	}
	return nil
}

var binaryOps = map[ir.Op]bytecode.Opcode{
	ir.OpAdd: bytecode.OpAdd,
	ir.OpSub: bytecode.OpSub,
	ir.OpMul: bytecode.OpMul,
	ir.OpDiv: bytecode.OpDiv,
	ir.OpLt:  bytecode.OpLt,
	ir.OpLe:  bytecode.OpLe,
	ir.OpGt:  bytecode.OpGt,
	ir.OpGe:  bytecode.OpGe,
	ir.OpEq:  bytecode.OpEq,
	ir.OpNe:  bytecode.OpNe,
	ir.OpNot: bytecode.OpNot,
	ir.OpNeg: bytecode.OpNeg,
}

func (g *codegen) expr(n *ir.Node) error {
	if n == nil {
		return fmt.Errorf("missing expression")
	}
	switch n.Kind {
	case ir.KindConst:
		g.emit(bytecode.OpConst, n.Value)
	case ir.KindLocal:
		slot, ok := g.locals.Slot(n.Name)
		if !ok {
			return fmt.Errorf("no slot for local %q", n.Name)
		}
		g.emit(bytecode.OpLoad, int64(slot))
	case ir.KindFieldRef:
		idx, ok := g.fields[n.Name]
		if !ok {
			return fmt.Errorf("unknown field %q", n.Name)
		}
		g.emit(bytecode.OpGetField, int64(idx))
	case ir.KindBinary, ir.KindUnary:
		for _, c := range n.Children {
			if err := g.expr(c); err != nil {
				return err
			}
		}
		op, ok := binaryOps[n.Op]
		if !ok {
			return fmt.Errorf("unsupported operator %s", n.Op)
		}
		g.emit(op, 0)
	case ir.KindCall:
		idx, ok := g.methods[n.Name]
		if !ok {
			return fmt.Errorf("unknown method %q", n.Name)
		}
		for _, c := range n.Children {
			if err := g.expr(c); err != nil {
				return err
			}
		}
		argc, err := safecast.Conv[int32](len(n.Children))
		if err != nil {
			return fmt.Errorf("call %s: %w", n.Name, err)
		}
		g.code = append(g.code, bytecode.Instr{Op: bytecode.OpCall, A: int64(idx), B: argc})
	default:
		return fmt.Errorf("%s is not an expression", n.Kind)
	}
	return nil
}
