package passes

import (
	"context"
	"errors"
	"fmt"

	"kiln/internal/diag"
	"kiln/internal/ir"
	"kiln/internal/sched"
)

// checker collects structural problems of one unit.
type checker struct {
	unit    *ir.Unit
	fields  map[string]bool
	methods map[string]int // name -> param count
	errs    []error
	sc      *sched.StepContext
}

func (c *checker) fail(code diag.Code, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.errs = append(c.errs, errors.New(msg))
	c.sc.Report(code, diag.SevError, c.unit, msg)
}

func checkStructure(_ context.Context, sc *sched.StepContext, item sched.Item) error {
	u, err := unitOf(item)
	if err != nil {
		return err
	}
	c := &checker{
		unit:    u,
		fields:  make(map[string]bool),
		methods: make(map[string]int),
		sc:      sc,
	}
	c.checkType(u.Type)
	if len(c.errs) > 0 {
		return fmt.Errorf("%d structural problem(s): %w", len(c.errs), errors.Join(c.errs...))
	}
	return nil
}

func (c *checker) checkType(t *ir.Node) {
	if t == nil || t.Kind != ir.KindType {
		c.fail(diag.PassStructure, "unit root is not a type")
		return
	}
	if t.Name == "" {
		c.fail(diag.PassStructure, "type without a name")
	}
	for _, f := range t.Fields() {
		switch {
		case f.Name == "":
			c.fail(diag.PassStructure, "field without a name")
		case c.fields[f.Name]:
			c.fail(diag.PassStructure, "field %q declared twice", f.Name)
		}
		c.fields[f.Name] = true
		if t.Interface {
			c.fail(diag.PassStructure, "interface declares field %q", f.Name)
		}
	}
	for _, m := range t.Methods() {
		switch _, dup := c.methods[m.Name]; {
		case m.Name == "":
			c.fail(diag.PassStructure, "method without a name")
		case dup:
			c.fail(diag.PassStructure, "method %q declared twice", m.Name)
		}
		c.methods[m.Name] = len(m.Params)
	}
	for _, ch := range t.Children {
		if ch.Kind != ir.KindField && ch.Kind != ir.KindMethod {
			c.fail(diag.PassStructure, "unexpected %s in type body", ch.Kind)
		}
	}

	for _, f := range t.Fields() {
		if init := f.Child(0); init != nil {
			c.checkExpr(fmt.Sprintf("field %q", f.Name), init, nil)
		}
	}
	for _, m := range t.Methods() {
		c.checkMethod(t, m)
	}
}

func (c *checker) checkMethod(t *ir.Node, m *ir.Node) {
	where := fmt.Sprintf("method %q", m.Name)
	body := m.Body()
	switch {
	case t.Interface && body != nil:
		c.fail(diag.PassStructure, "%s of interface has a body", where)
		return
	case !t.Interface && body == nil:
		c.fail(diag.PassStructure, "%s has no body", where)
		return
	case body == nil:
		return
	}
	locals := make(map[string]bool, len(m.Params))
	for _, p := range m.Params {
		if locals[p] {
			c.fail(diag.PassStructure, "%s: parameter %q repeated", where, p)
		}
		locals[p] = true
	}
	// Every assigned name is a local of the method.
	ir.Walk(body, func(n *ir.Node) bool {
		if n.Kind == ir.KindAssign {
			locals[n.Name] = true
		}
		return true
	})
	c.checkStmt(where, body, locals)
}

func (c *checker) checkStmt(where string, n *ir.Node, locals map[string]bool) {
	if n == nil {
		c.fail(diag.PassStructure, "%s: missing statement", where)
		return
	}
	if !n.Kind.IsStmt() {
		c.fail(diag.PassStructure, "%s: %s used as a statement", where, ir.Format(n))
		return
	}
	switch n.Kind {
	case ir.KindBlock:
		for _, s := range n.Children {
			c.checkStmt(where, s, locals)
		}
	case ir.KindReturn:
		if v := n.Child(0); v != nil {
			c.checkExpr(where, v, locals)
		}
	case ir.KindIf:
		c.checkExpr(where, n.Child(0), locals)
		c.checkStmt(where, n.Child(1), locals)
		if len(n.Children) > 2 {
			c.checkStmt(where, n.Child(2), locals)
		}
	case ir.KindWhile:
		c.checkExpr(where, n.Child(0), locals)
		c.checkStmt(where, n.Child(1), locals)
	case ir.KindAssign:
		c.checkExpr(where, n.Child(0), locals)
	case ir.KindSetField:
		if !c.fields[n.Name] {
			c.fail(diag.PassUnknownSymbol, "%s: unknown field %q", where, n.Name)
		}
		c.checkExpr(where, n.Child(0), locals)
	case ir.KindExprStmt:
		c.checkExpr(where, n.Child(0), locals)
	}
}

// checkExpr validates an expression; locals == nil means no locals are
// in scope (field initialisers).
func (c *checker) checkExpr(where string, n *ir.Node, locals map[string]bool) {
	if n == nil {
		c.fail(diag.PassStructure, "%s: missing expression", where)
		return
	}
	if !n.Kind.IsExpr() {
		c.fail(diag.PassStructure, "%s: %s used as an expression", where, ir.Format(n))
		return
	}
	switch n.Kind {
	case ir.KindLocal:
		if !locals[n.Name] {
			c.fail(diag.PassUnknownSymbol, "%s: unknown local %q", where, n.Name)
		}
	case ir.KindFieldRef:
		if !c.fields[n.Name] {
			c.fail(diag.PassUnknownSymbol, "%s: unknown field %q", where, n.Name)
		}
	case ir.KindCall:
		params, ok := c.methods[n.Name]
		switch {
		case !ok:
			c.fail(diag.PassUnknownSymbol, "%s: unknown method %q", where, n.Name)
		case params != len(n.Children):
			c.fail(diag.PassStructure, "%s: %q takes %d argument(s), got %d", where, n.Name, params, len(n.Children))
		}
	}
	for _, ch := range n.Children {
		c.checkExpr(where, ch, locals)
	}
}

func unitOf(item sched.Item) (*ir.Unit, error) {
	u, ok := item.(*ir.Unit)
	if !ok {
		return nil, fmt.Errorf("unexpected item type %T", item)
	}
	return u, nil
}
