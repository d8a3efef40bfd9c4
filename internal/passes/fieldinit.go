package passes

import (
	"context"

	"kiln/internal/ir"
	"kiln/internal/sched"
)

// InitMethod is the synthesized method that runs field initialisers.
const InitMethod = "<init>"

// lowerFieldInit moves field initialisers into <init>, in declaration
// order, ahead of whatever <init> already did.
func lowerFieldInit(_ context.Context, _ *sched.StepContext, item sched.Item) error {
	u, err := unitOf(item)
	if err != nil {
		return err
	}
	var stmts []*ir.Node
	for _, f := range u.Type.Fields() {
		init := f.Child(0)
		if init == nil {
			continue
		}
		stmts = append(stmts, &ir.Node{Kind: ir.KindSetField, Name: f.Name, Children: []*ir.Node{init}})
		f.Children = nil
	}
	if len(stmts) == 0 {
		return nil
	}

	if m := u.Method(InitMethod); m != nil {
		body := m.Body()
		if body == nil {
			body = ir.Block()
			m.Children = []*ir.Node{body}
		}
		body.Children = append(stmts, body.Children...)
		return nil
	}
	stmts = append(stmts, ir.Return(nil))
	u.Type.Children = append(u.Type.Children, &ir.Node{
		Kind:     ir.KindMethod,
		Name:     InitMethod,
		Children: []*ir.Node{ir.Block(stmts...)},
	})
	return nil
}
