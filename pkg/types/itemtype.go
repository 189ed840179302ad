package types

import (
	"fmt"
	"strings"
)

// Type identifies an item type in the static type lattice.
//
// The lattice is a tree rooted at TypeItem:
//
//	item
//	├── node
//	│   ├── document-node
//	│   ├── flag
//	│   ├── field
//	│   └── assembly
//	└── any-atomic-type
//	    ├── string
//	    ├── boolean
//	    ├── numeric
//	    │   └── decimal
//	    │       └── integer
//	    ├── date
//	    ├── date-time
//	    ├── duration
//	    │   ├── year-month-duration
//	    │   └── day-time-duration
//	    ├── base64-binary
//	    └── untyped-atomic
type Type uint8

const (
	TypeItem Type = iota
	TypeNode
	TypeDocument
	TypeFlag
	TypeField
	TypeAssembly
	TypeAnyAtomic
	TypeString
	TypeBoolean
	TypeNumeric
	TypeDecimal
	TypeInteger
	TypeDate
	TypeDateTime
	TypeDuration
	TypeYearMonthDuration
	TypeDayTimeDuration
	TypeBase64Binary
	TypeUntypedAtomic

	typeCount
)

var parents = [typeCount]Type{
	TypeItem:              TypeItem,
	TypeNode:              TypeItem,
	TypeDocument:          TypeNode,
	TypeFlag:              TypeNode,
	TypeField:             TypeNode,
	TypeAssembly:          TypeNode,
	TypeAnyAtomic:         TypeItem,
	TypeString:            TypeAnyAtomic,
	TypeBoolean:           TypeAnyAtomic,
	TypeNumeric:           TypeAnyAtomic,
	TypeDecimal:           TypeNumeric,
	TypeInteger:           TypeDecimal,
	TypeDate:              TypeAnyAtomic,
	TypeDateTime:          TypeAnyAtomic,
	TypeDuration:          TypeAnyAtomic,
	TypeYearMonthDuration: TypeDuration,
	TypeDayTimeDuration:   TypeDuration,
	TypeBase64Binary:      TypeAnyAtomic,
	TypeUntypedAtomic:     TypeAnyAtomic,
}

var typeNames = [typeCount]string{
	TypeItem:              "item()",
	TypeNode:              "node()",
	TypeDocument:          "document-node()",
	TypeFlag:              "flag()",
	TypeField:             "field()",
	TypeAssembly:          "assembly()",
	TypeAnyAtomic:         "any-atomic-type",
	TypeString:            "string",
	TypeBoolean:           "boolean",
	TypeNumeric:           "numeric",
	TypeDecimal:           "decimal",
	TypeInteger:           "integer",
	TypeDate:              "date",
	TypeDateTime:          "date-time",
	TypeDuration:          "duration",
	TypeYearMonthDuration: "year-month-duration",
	TypeDayTimeDuration:   "day-time-duration",
	TypeBase64Binary:      "base64-binary",
	TypeUntypedAtomic:     "untyped-atomic",
}

// String returns the type name.
func (t Type) String() string {
	if t >= typeCount {
		return "(unknown)"
	}
	return typeNames[t]
}

// Parent returns the direct supertype. The parent of TypeItem is TypeItem.
func (t Type) Parent() Type {
	if t >= typeCount {
		return TypeItem
	}
	return parents[t]
}

// IsSubtypeOf reports whether t is other or derives from it.
func (t Type) IsSubtypeOf(other Type) bool {
	for {
		if t == other {
			return true
		}
		if t == TypeItem {
			return false
		}
		t = t.Parent()
	}
}

// IsNode reports whether t is a node type.
func (t Type) IsNode() bool { return t.IsSubtypeOf(TypeNode) }

// IsAtomic reports whether t is an atomic type.
func (t Type) IsAtomic() bool { return t.IsSubtypeOf(TypeAnyAtomic) }

// CommonAncestor returns the narrowest type that all of ts derive from.
// It returns TypeItem when ts is empty.
func CommonAncestor(ts ...Type) Type {
	if len(ts) == 0 {
		return TypeItem
	}
	anc := ts[0]
	for _, t := range ts[1:] {
		for !t.IsSubtypeOf(anc) {
			anc = anc.Parent()
		}
	}
	return anc
}

// ParseType returns the type with the given name. The "()" suffix of node
// type names is optional.
func ParseType(name string) (Type, bool) {
	for t := TypeItem; t < typeCount; t++ {
		n := typeNames[t]
		if n == name || strings.TrimSuffix(n, "()") == name {
			return t, true
		}
	}
	return 0, false
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	v, ok := ParseType(string(b))
	if !ok {
		return fmt.Errorf("unknown item type %q", b)
	}
	*t = v
	return nil
}
