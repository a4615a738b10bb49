package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Format deterministically re-serializes f. It is not a round-trip of the
// original source text (whitespace/comments/macro formatting are gone by
// this stage) -- it exists so two parse trees can be compared for
// equivalence and so diagnostics/tests can show a value without reaching
// into its fields, grounded on the teacher's Directive.String()/Expr.String()
// fmt.Stringer round-trip helpers.
func Format(f *File) string {
	var sb strings.Builder
	for _, n := range f.Root.Body {
		formatNode(&sb, n, 0)
	}
	return sb.String()
}

func indent(sb *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		sb.WriteString("    ")
	}
}

func formatNode(sb *strings.Builder, n Node, depth int) {
	switch v := n.(type) {
	case *Class:
		formatClass(sb, v, depth)
	case *Property:
		formatProperty(sb, v, depth)
	}
}

func formatClass(sb *strings.Builder, c *Class, depth int) {
	indent(sb, depth)
	sb.WriteString("class ")
	sb.WriteString(c.Name)
	if c.HasParent {
		sb.WriteString(": ")
		sb.WriteString(c.Parent)
	}
	if c.Forward {
		sb.WriteString(";\n")
		return
	}
	sb.WriteString(" {\n")
	for _, n := range c.Body {
		formatNode(sb, n, depth+1)
	}
	indent(sb, depth)
	sb.WriteString("};\n")
}

func formatProperty(sb *strings.Builder, p *Property, depth int) {
	indent(sb, depth)
	sb.WriteString(p.Name)
	if p.IsArray {
		sb.WriteString("[]")
	}
	if p.Append {
		sb.WriteString(" += ")
	} else {
		sb.WriteString(" = ")
	}
	sb.WriteString(FormatValue(p.Value))
	sb.WriteString(";\n")
}

// FormatValue renders a single Value the same way formatProperty does,
// usable on its own by diagnostics that want to quote a value.
func FormatValue(v Value) string {
	switch v.Kind {
	case ValueString:
		return `"` + strings.ReplaceAll(v.Str, `"`, `""`) + `"`
	case ValueInt:
		return strconv.FormatInt(v.Int, 10)
	case ValueFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case ValueIdent:
		return v.Ident
	case ValueArray:
		parts := make([]string, len(v.Array))
		for i, el := range v.Array {
			parts[i] = FormatValue(el)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprintf("<invalid value kind %d>", v.Kind)
	}
}
