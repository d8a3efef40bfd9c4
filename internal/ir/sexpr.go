package ir

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// SyntaxError reports a malformed s-expression.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Msg)
}

type sexpr struct {
	atom   string
	list   []*sexpr
	isList bool
	offset int
}

type sreader struct {
	src string
	pos int
}

func (r *sreader) skipSpace() {
	for r.pos < len(r.src) {
		c := r.src[r.pos]
		switch {
		case c == ';': // comment to end of line
			for r.pos < len(r.src) && r.src[r.pos] != '\n' {
				r.pos++
			}
		case unicode.IsSpace(rune(c)):
			r.pos++
		default:
			return
		}
	}
}

func (r *sreader) read() (*sexpr, error) {
	r.skipSpace()
	if r.pos >= len(r.src) {
		return nil, &SyntaxError{Offset: r.pos, Msg: "unexpected end of input"}
	}
	start := r.pos
	switch r.src[r.pos] {
	case '(':
		r.pos++
		list := &sexpr{isList: true, offset: start}
		for {
			r.skipSpace()
			if r.pos >= len(r.src) {
				return nil, &SyntaxError{Offset: start, Msg: "unclosed '('"}
			}
			if r.src[r.pos] == ')' {
				r.pos++
				return list, nil
			}
			item, err := r.read()
			if err != nil {
				return nil, err
			}
			list.list = append(list.list, item)
		}
	case ')':
		return nil, &SyntaxError{Offset: start, Msg: "unexpected ')'"}
	}
	for r.pos < len(r.src) {
		c := r.src[r.pos]
		if c == '(' || c == ')' || c == ';' || unicode.IsSpace(rune(c)) {
			break
		}
		r.pos++
	}
	return &sexpr{atom: r.src[start:r.pos], offset: start}, nil
}

// ParseExpr parses one form (statement or expression).
func ParseExpr(src string) (*Node, error) {
	r := &sreader{src: src}
	sx, err := r.read()
	if err != nil {
		return nil, err
	}
	r.skipSpace()
	if r.pos != len(src) {
		return nil, &SyntaxError{Offset: r.pos, Msg: "trailing input after form"}
	}
	return convert(sx)
}

// MustParse is ParseExpr for tests and static tables.
func MustParse(src string) *Node {
	n, err := ParseExpr(src)
	if err != nil {
		panic(err)
	}
	return n
}

// ParseBody parses a method body; a single statement is wrapped into a block.
func ParseBody(src string) (*Node, error) {
	n, err := ParseExpr(src)
	if err != nil {
		return nil, err
	}
	if n.Kind != KindBlock {
		n = Block(n)
	}
	return n, nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && (unicode.IsDigit(r) || r == '-' || r == '.')) {
			continue
		}
		return false
	}
	return true
}

func convert(sx *sexpr) (*Node, error) {
	fail := func(format string, args ...any) (*Node, error) {
		return nil, &SyntaxError{Offset: sx.offset, Msg: fmt.Sprintf(format, args...)}
	}

	if !sx.isList {
		switch sx.atom {
		case "true":
			return Const(1), nil
		case "false":
			return Const(0), nil
		}
		if v, err := strconv.ParseInt(sx.atom, 10, 64); err == nil {
			return Const(v), nil
		}
		if isIdent(sx.atom) {
			return Local(sx.atom), nil
		}
		return fail("bad atom %q", sx.atom)
	}
	if len(sx.list) == 0 {
		return fail("empty form")
	}
	head := sx.list[0]
	if head.isList {
		return fail("form head must be a keyword")
	}
	args := sx.list[1:]

	convertAll := func(list []*sexpr) ([]*Node, error) {
		out := make([]*Node, 0, len(list))
		for _, a := range list {
			n, err := convert(a)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	}
	name := func(i int) (string, error) {
		if i >= len(args) || args[i].isList || !isIdent(args[i].atom) {
			return "", &SyntaxError{Offset: sx.offset, Msg: fmt.Sprintf("(%s) expects a name", head.atom)}
		}
		return args[i].atom, nil
	}
	arity := func(lo, hi int) error {
		if len(args) < lo || len(args) > hi {
			if lo == hi {
				return &SyntaxError{Offset: sx.offset, Msg: fmt.Sprintf("(%s) takes %d operand(s), got %d", head.atom, lo, len(args))}
			}
			return &SyntaxError{Offset: sx.offset, Msg: fmt.Sprintf("(%s) takes %d..%d operands, got %d", head.atom, lo, hi, len(args))}
		}
		return nil
	}

	if op, ok := opByName(head.atom); ok {
		want := 2
		if op.IsUnary() {
			want = 1
		}
		if err := arity(want, want); err != nil {
			return nil, err
		}
		kids, err := convertAll(args)
		if err != nil {
			return nil, err
		}
		if op.IsUnary() {
			return Unary(op, kids[0]), nil
		}
		return Binary(op, kids[0], kids[1]), nil
	}

	switch head.atom {
	case "block":
		kids, err := convertAll(args)
		if err != nil {
			return nil, err
		}
		return Block(kids...), nil
	case "return":
		if err := arity(0, 1); err != nil {
			return nil, err
		}
		kids, err := convertAll(args)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindReturn, Children: kids}, nil
	case "if":
		if err := arity(2, 3); err != nil {
			return nil, err
		}
		kids, err := convertAll(args)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindIf, Children: kids}, nil
	case "while":
		if err := arity(2, 2); err != nil {
			return nil, err
		}
		kids, err := convertAll(args)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindWhile, Children: kids}, nil
	case "expr":
		if err := arity(1, 1); err != nil {
			return nil, err
		}
		kids, err := convertAll(args)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindExprStmt, Children: kids}, nil
	case "assign", "setfield":
		if err := arity(2, 2); err != nil {
			return nil, err
		}
		target, err := name(0)
		if err != nil {
			return nil, err
		}
		kids, err := convertAll(args[1:])
		if err != nil {
			return nil, err
		}
		kind := KindAssign
		if head.atom == "setfield" {
			kind = KindSetField
		}
		return &Node{Kind: kind, Name: target, Children: kids}, nil
	case "field":
		if err := arity(1, 1); err != nil {
			return nil, err
		}
		target, err := name(0)
		if err != nil {
			return nil, err
		}
		return FieldRef(target), nil
	case "call":
		target, err := name(0)
		if err != nil {
			return nil, err
		}
		kids, err := convertAll(args[1:])
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindCall, Name: target, Children: kids}, nil
	}
	return fail("unknown form %q", head.atom)
}

// Format renders a statement or expression back into s-expression syntax.
func Format(n *Node) string {
	var sb strings.Builder
	format(&sb, n)
	return sb.String()
}

func (n *Node) String() string {
	switch n.Kind {
	case KindType, KindField, KindMethod:
		return n.Kind.String() + " " + n.Name
	}
	return Format(n)
}

func format(sb *strings.Builder, n *Node) {
	if n == nil {
		sb.WriteString("()")
		return
	}
	list := func(head string, extra ...string) {
		sb.WriteByte('(')
		sb.WriteString(head)
		for _, e := range extra {
			sb.WriteByte(' ')
			sb.WriteString(e)
		}
		for _, c := range n.Children {
			sb.WriteByte(' ')
			format(sb, c)
		}
		sb.WriteByte(')')
	}
	switch n.Kind {
	case KindConst:
		sb.WriteString(strconv.FormatInt(n.Value, 10))
	case KindLocal:
		sb.WriteString(n.Name)
	case KindFieldRef:
		list("field", n.Name)
	case KindBinary, KindUnary:
		list(n.Op.String())
	case KindBlock:
		list("block")
	case KindReturn:
		list("return")
	case KindIf:
		list("if")
	case KindWhile:
		list("while")
	case KindExprStmt:
		list("expr")
	case KindAssign:
		list("assign", n.Name)
	case KindSetField:
		list("setfield", n.Name)
	case KindCall:
		list("call", n.Name)
	default:
		fmt.Fprintf(sb, "<%s %s>", n.Kind, n.Name)
	}
}
