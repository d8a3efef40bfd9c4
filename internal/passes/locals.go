package passes

import (
	"context"

	"kiln/internal/ir"
	"kiln/internal/sched"
)

// computeLocals assigns slots: parameters first, then assigned names in
// order of first appearance.
func computeLocals(_ context.Context, _ *sched.StepContext, item sched.Item) error {
	u, err := unitOf(item)
	if err != nil {
		return err
	}
	for _, m := range u.Type.Methods() {
		lm := &LocalsMarker{Slots: make(map[string]int)}
		for _, p := range m.Params {
			lm.add(p)
		}
		ir.Walk(m.Body(), func(n *ir.Node) bool {
			if n.Kind == ir.KindAssign {
				lm.add(n.Name)
			}
			return true
		})
		m.SetMarker(lm)
	}
	return nil
}
