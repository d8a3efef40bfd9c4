package passes

import (
	"context"

	"kiln/internal/ir"
	"kiln/internal/sched"
)

// simplifyNot removes logical negations where the operand allows it:
//
//	(not (lt a b))      -> (ge a b)
//	(not (not c))       -> c          when c is itself boolean
//	(if (not c) t e)    -> (if c e t)
//
// Must run on the tree, before lowering.
func simplifyNot(_ context.Context, _ *sched.StepContext, item sched.Item) error {
	u, err := unitOf(item)
	if err != nil {
		return err
	}
	for _, m := range u.Type.Methods() {
		if body := m.Body(); body != nil {
			m.Children[0] = ir.Rewrite(body, simplifyNode)
		}
	}
	return nil
}

func simplifyNode(n *ir.Node) *ir.Node {
	switch n.Kind {
	case ir.KindUnary:
		if n.Op != ir.OpNot {
			return n
		}
		x := n.Child(0)
		if x.Kind == ir.KindBinary {
			if neg, ok := x.Op.Negate(); ok {
				x.Op = neg
				return x
			}
		}
		if x.Kind == ir.KindUnary && x.Op == ir.OpNot && isBoolean(x.Child(0)) {
			return x.Child(0)
		}
	case ir.KindIf:
		cond := n.Child(0)
		if len(n.Children) == 3 && cond.Kind == ir.KindUnary && cond.Op == ir.OpNot {
			n.Children = []*ir.Node{cond.Child(0), n.Children[2], n.Children[1]}
		}
	}
	return n
}

// isBoolean reports whether n always evaluates to 0 or 1.
func isBoolean(n *ir.Node) bool {
	switch n.Kind {
	case ir.KindBinary:
		return n.Op.IsComparison()
	case ir.KindUnary:
		return n.Op == ir.OpNot
	case ir.KindConst:
		return n.Value == 0 || n.Value == 1
	}
	return false
}
