package bytecode

import (
	"fmt"
	"io"
	"strings"
)

// Disassemble writes a readable listing of img.
func Disassemble(w io.Writer, img *Image) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; %s image v%d, %d type(s)\n", img.Magic, img.Version, len(img.Types))
	for _, t := range img.Types {
		kind := "class"
		if t.Interface {
			kind = "interface"
		}
		fmt.Fprintf(&sb, "\n%s %s\n", kind, t.Name)
		for i, f := range t.Fields {
			fmt.Fprintf(&sb, "  field %d %s\n", i, f)
		}
		for i, m := range t.Methods {
			if m.Abstract {
				fmt.Fprintf(&sb, "  method %d %s(params=%d) abstract\n", i, m.Name, m.Params)
				continue
			}
			fmt.Fprintf(&sb, "  method %d %s(params=%d locals=%d stack=%d)\n", i, m.Name, m.Params, m.MaxLocals, m.MaxStack)
			for pc, in := range m.Code {
				fmt.Fprintf(&sb, "    %04d  %s%s\n", pc, in, comment(&t, in))
			}
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func comment(t *Type, in Instr) string {
	switch in.Op {
	case OpGetField, OpPutField:
		if in.A >= 0 && in.A < int64(len(t.Fields)) {
			return "\t; " + t.Fields[in.A]
		}
	case OpCall:
		if in.A >= 0 && in.A < int64(len(t.Methods)) {
			return "\t; " + t.Methods[in.A].Name
		}
	}
	return ""
}
