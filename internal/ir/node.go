package ir

import (
	"fmt"
	"maps"
	"slices"

	"kiln/internal/sched"
)

// Kind is the node variant.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindType
	KindField
	KindMethod
	KindBlock
	KindReturn
	KindIf
	KindWhile
	KindAssign
	KindSetField
	KindExprStmt
	KindBinary
	KindUnary
	KindConst
	KindLocal
	KindFieldRef
	KindCall
)

var kindNames = [...]string{
	KindInvalid:  "invalid",
	KindType:     "type",
	KindField:    "field",
	KindMethod:   "method",
	KindBlock:    "block",
	KindReturn:   "return",
	KindIf:       "if",
	KindWhile:    "while",
	KindAssign:   "assign",
	KindSetField: "setfield",
	KindExprStmt: "expr",
	KindBinary:   "binary",
	KindUnary:    "unary",
	KindConst:    "const",
	KindLocal:    "local",
	KindFieldRef: "field-ref",
	KindCall:     "call",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// IsStmt reports whether nodes of kind k may appear in statement position.
func (k Kind) IsStmt() bool {
	switch k {
	case KindBlock, KindReturn, KindIf, KindWhile, KindAssign, KindSetField, KindExprStmt:
		return true
	}
	return false
}

// IsExpr reports whether nodes of kind k produce a value.
func (k Kind) IsExpr() bool {
	switch k {
	case KindBinary, KindUnary, KindConst, KindLocal, KindFieldRef, KindCall:
		return true
	}
	return false
}

// Op is the operator of Binary and Unary nodes.
type Op uint8

const (
	OpNone Op = iota
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
)

var opNames = [...]string{
	OpNone: "",
	OpAdd:  "add",
	OpSub:  "sub",
	OpMul:  "mul",
	OpDiv:  "div",
	OpLt:   "lt",
	OpLe:   "le",
	OpGt:   "gt",
	OpGe:   "ge",
	OpEq:   "eq",
	OpNe:   "ne",
	OpNot:  "not",
	OpNeg:  "neg",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", o)
}

// IsComparison reports whether o yields a boolean (0/1).
func (o Op) IsComparison() bool {
	return o >= OpLt && o <= OpNe
}

// IsUnary reports whether o takes one operand.
func (o Op) IsUnary() bool {
	return o == OpNot || o == OpNeg
}

// Negate returns the comparison with the opposite result, e.g. lt -> ge.
func (o Op) Negate() (Op, bool) {
	switch o {
	case OpLt:
		return OpGe, true
	case OpLe:
		return OpGt, true
	case OpGt:
		return OpLe, true
	case OpGe:
		return OpLt, true
	case OpEq:
		return OpNe, true
	case OpNe:
		return OpEq, true
	}
	return OpNone, false
}

func opByName(name string) (Op, bool) {
	for i, n := range opNames {
		if n != "" && n == name {
			return Op(i), true
		}
	}
	return OpNone, false
}

// Node is one IR node. Which fields matter depends on Kind:
//
//	Type      Name, Interface, Children = fields then methods
//	Field     Name, Children[0] = optional initialiser
//	Method    Name, Params, Children[0] = body block (absent when abstract)
//	Block     Children = statements
//	Return    Children[0] = optional value
//	If        Children = cond, then, optional else
//	While     Children = cond, body
//	Assign    Name = local, Children[0] = value
//	SetField  Name = field of this, Children[0] = value
//	ExprStmt  Children[0] = expression
//	Binary    Op, Children = lhs, rhs
//	Unary     Op, Children[0]
//	Const     Value
//	Local     Name
//	FieldRef  Name
//	Call      Name = method of this, Children = arguments
type Node struct {
	Kind      Kind
	Op        Op
	Name      string
	Value     int64
	Params    []string
	Interface bool
	Children  []*Node

	markers map[sched.Prop]Marker
}

func Const(v int64) *Node { return &Node{Kind: KindConst, Value: v} }

func Local(name string) *Node { return &Node{Kind: KindLocal, Name: name} }

func FieldRef(name string) *Node { return &Node{Kind: KindFieldRef, Name: name} }

func Binary(op Op, lhs, rhs *Node) *Node {
	return &Node{Kind: KindBinary, Op: op, Children: []*Node{lhs, rhs}}
}

func Unary(op Op, x *Node) *Node {
	return &Node{Kind: KindUnary, Op: op, Children: []*Node{x}}
}

func Block(stmts ...*Node) *Node { return &Node{Kind: KindBlock, Children: stmts} }

func Return(value *Node) *Node {
	n := &Node{Kind: KindReturn}
	if value != nil {
		n.Children = []*Node{value}
	}
	return n
}

// Child returns the i-th child or nil.
func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// Fields returns the Field children of a Type node.
func (n *Node) Fields() []*Node { return n.childrenOf(KindField) }

// Methods returns the Method children of a Type node.
func (n *Node) Methods() []*Node { return n.childrenOf(KindMethod) }

func (n *Node) childrenOf(k Kind) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c != nil && c.Kind == k {
			out = append(out, c)
		}
	}
	return out
}

// Body returns the body block of a Method node.
func (n *Node) Body() *Node {
	if n == nil || n.Kind != KindMethod {
		return nil
	}
	return n.Child(0)
}

// Clone deep-copies the subtree. Every marker decides through
// CloneIfNeeded whether the copy shares it or gets its own instance.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{
		Kind:      n.Kind,
		Op:        n.Op,
		Name:      n.Name,
		Value:     n.Value,
		Params:    slices.Clone(n.Params),
		Interface: n.Interface,
	}
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, ch := range n.Children {
			c.Children[i] = ch.Clone()
		}
	}
	if len(n.markers) > 0 {
		c.markers = make(map[sched.Prop]Marker, len(n.markers))
		for _, k := range slices.Sorted(maps.Keys(n.markers)) {
			c.markers[k] = n.markers[k].CloneIfNeeded()
		}
	}
	return c
}

// Equal compares two subtrees structurally; markers are ignored.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.Op != b.Op || a.Name != b.Name || a.Value != b.Value ||
		a.Interface != b.Interface || !slices.Equal(a.Params, b.Params) || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

// Walk visits n and its descendants in pre-order. Returning false from
// visit skips the children of that node.
func Walk(n *Node, visit func(*Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, visit)
	}
}

// Rewrite replaces nodes bottom-up: children first, then fn on the node
// itself. fn returns the replacement (or the node unchanged).
func Rewrite(n *Node, fn func(*Node) *Node) *Node {
	if n == nil {
		return nil
	}
	for i, c := range n.Children {
		n.Children[i] = Rewrite(c, fn)
	}
	return fn(n)
}
