package ast

import (
	"strconv"
	"strings"
)

// Print renders e as an s-expression such as
// (child (model (name-test a)) (flag (name-test id))).
func Print(e Expr) string {
	p := &printer{}
	Walk(p, e)
	return p.sb.String()
}

type printer struct {
	sb    strings.Builder
	depth int
}

func (p *printer) Visit(e Expr) Visitor {
	if e == nil {
		p.sb.WriteByte(')')
		p.depth--
		return nil
	}
	if p.depth > 0 {
		p.sb.WriteByte(' ')
	}
	p.depth++
	p.sb.WriteByte('(')
	p.sb.WriteString(e.Kind().String())
	if attr := attribute(e); attr != "" {
		p.sb.WriteByte(' ')
		p.sb.WriteString(attr)
	}
	return p
}

func attribute(e Expr) string {
	switch e := e.(type) {
	case *StringLiteral:
		return strconv.Quote(string(e.Value))
	case *IntegerLiteral:
		return e.Value.String()
	case *DecimalLiteral:
		return e.Value.String()
	case *NameTest:
		return e.Name
	case *GeneralComparison:
		return e.Op.String()
	case *ValueComparison:
		return e.Op.Keyword()
	case *FunctionCall:
		return e.Function.Name
	case *Let:
		return "$" + e.Name
	case *VariableRef:
		return "$" + e.Name
	}
	return ""
}
