package passes

import (
	"context"
	"fmt"

	"kiln/internal/diag"
	"kiln/internal/ir"
	"kiln/internal/sched"
)

const defaultFoldDepth = 64

// foldConstants evaluates operators over constants and prunes branches
// with constant conditions. Subtrees deeper than the
// "fold-constants.max-depth" tunable are left alone.
func foldConstants(_ context.Context, sc *sched.StepContext, item sched.Item) error {
	u, err := unitOf(item)
	if err != nil {
		return err
	}
	f := folder{limit: sc.Int("fold-constants.max-depth", defaultFoldDepth)}
	for _, fd := range u.Type.Fields() {
		if init := fd.Child(0); init != nil {
			fd.Children[0] = f.fold(init, 0)
		}
	}
	for _, m := range u.Type.Methods() {
		if body := m.Body(); body != nil {
			m.Children[0] = f.fold(body, 0)
		}
	}
	if f.truncated {
		sc.Report(diag.PassFoldDepth, diag.SevWarning, u,
			fmt.Sprintf("expression nesting exceeds %d; deeper parts were not folded", f.limit))
	}
	return nil
}

type folder struct {
	limit     int
	truncated bool
}

func (f *folder) fold(n *ir.Node, depth int) *ir.Node {
	if n == nil {
		return nil
	}
	if depth >= f.limit {
		f.truncated = true
		return n
	}
	for i, c := range n.Children {
		n.Children[i] = f.fold(c, depth+1)
	}

	switch n.Kind {
	case ir.KindBinary:
		a, b := n.Child(0), n.Child(1)
		if a.Kind == ir.KindConst && b.Kind == ir.KindConst {
			if v, ok := evalBinary(n.Op, a.Value, b.Value); ok {
				return ir.Const(v)
			}
		}
	case ir.KindUnary:
		if x := n.Child(0); x.Kind == ir.KindConst {
			return ir.Const(evalUnary(n.Op, x.Value))
		}
	case ir.KindIf:
		if cond := n.Child(0); cond.Kind == ir.KindConst {
			if cond.Value != 0 {
				return n.Child(1)
			}
			if len(n.Children) > 2 {
				return n.Child(2)
			}
			return ir.Block()
		}
	case ir.KindWhile:
		if cond := n.Child(0); cond.Kind == ir.KindConst && cond.Value == 0 {
			return ir.Block()
		}
	case ir.KindBlock:
		// flatten nested blocks left behind by pruning
		var out []*ir.Node
		for _, c := range n.Children {
			if c.Kind == ir.KindBlock {
				out = append(out, c.Children...)
				continue
			}
			out = append(out, c)
		}
		n.Children = out
	}
	return n
}

func bool64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// evalBinary mirrors the VM: wrapping integer arithmetic, division by
// zero is left for run time.
func evalBinary(op ir.Op, a, b int64) (int64, bool) {
	switch op {
	case ir.OpAdd:
		return a + b, true
	case ir.OpSub:
		return a - b, true
	case ir.OpMul:
		return a * b, true
	case ir.OpDiv:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	case ir.OpLt:
		return bool64(a < b), true
	case ir.OpLe:
		return bool64(a <= b), true
	case ir.OpGt:
		return bool64(a > b), true
	case ir.OpGe:
		return bool64(a >= b), true
	case ir.OpEq:
		return bool64(a == b), true
	case ir.OpNe:
		return bool64(a != b), true
	}
	return 0, false
}

func evalUnary(op ir.Op, x int64) int64 {
	if op == ir.OpNot {
		return bool64(x == 0)
	}
	return -x
}
