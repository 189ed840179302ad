// Package operations implements the Metapath operation library: value and
// general comparison, arithmetic over numeric, temporal and duration values,
// atomization and effective boolean value.
package operations

// Operator is a comparison operator shared by value and general comparisons.
type Operator uint8

const (
	EQ Operator = iota
	NE
	LT
	LE
	GT
	GE
)

// String returns the general comparison symbol.
func (op Operator) String() string {
	switch op {
	case EQ:
		return "="
	case NE:
		return "!="
	case LT:
		return "<"
	case LE:
		return "<="
	case GT:
		return ">"
	case GE:
		return ">="
	default:
		return "(unknown)"
	}
}

// Keyword returns the value comparison keyword.
func (op Operator) Keyword() string {
	switch op {
	case EQ:
		return "eq"
	case NE:
		return "ne"
	case LT:
		return "lt"
	case LE:
		return "le"
	case GT:
		return "gt"
	case GE:
		return "ge"
	default:
		return "(unknown)"
	}
}

// ArithOp is an arithmetic operator.
type ArithOp uint8

const (
	Add ArithOp = iota
	Subtract
	Multiply
	Divide
	IntegerDivide
	Modulo
)

func (op ArithOp) String() string {
	switch op {
	case Add:
		return "+"
	case Subtract:
		return "-"
	case Multiply:
		return "*"
	case Divide:
		return "div"
	case IntegerDivide:
		return "idiv"
	case Modulo:
		return "mod"
	default:
		return "(unknown)"
	}
}
