// Package item implements the atomic values of the Metapath data model.
//
// Every value produced by an expression is an [Item]: either an atomic
// value defined in this package or a node (see package node). Atomic values
// are immutable and carry their own [types.Type].
//
// # Example
//
//	d, err := item.ParseDate("2021-01-01")
//	if err != nil {
//	    return err
//	}
//	s := item.String(d.String()) // "2021-01-01"
package item

import (
	"bytes"

	"github.com/sandrolain/gometapath/pkg/types"
)

// Item is a member of a sequence.
type Item interface {
	Type() types.Type
}

// Atomic is an immutable typed scalar.
type Atomic interface {
	Item
	// String returns the canonical lexical form of the value.
	String() string
	atomic()
}

func (String) atomic()            {}
func (UntypedAtomic) atomic()     {}
func (Boolean) atomic()           {}
func (Integer) atomic()           {}
func (Decimal) atomic()           {}
func (Date) atomic()              {}
func (DateTime) atomic()          {}
func (YearMonthDuration) atomic() {}
func (DayTimeDuration) atomic()   {}
func (Base64Binary) atomic()      {}

// IsAtomic reports whether it is an atomic value.
func IsAtomic(it Item) bool {
	_, ok := it.(Atomic)
	return ok
}

// Equal reports whether a and b are the same item. Atomic values are equal
// when they have the same type and value; any other items are equal only
// when they are identical.
func Equal(a, b Item) bool {
	switch av := a.(type) {
	case Integer:
		bv, ok := b.(Integer)
		return ok && av.dec().Cmp(bv.dec()) == 0
	case Decimal:
		bv, ok := b.(Decimal)
		return ok && av.dec().Cmp(bv.dec()) == 0
	case Date:
		bv, ok := b.(Date)
		return ok && av.tz == bv.tz && av.t.Equal(bv.t)
	case DateTime:
		bv, ok := b.(DateTime)
		return ok && av.tz == bv.tz && av.t.Equal(bv.t)
	case Base64Binary:
		bv, ok := b.(Base64Binary)
		return ok && bytes.Equal(av, bv)
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case UntypedAtomic:
		bv, ok := b.(UntypedAtomic)
		return ok && av == bv
	case Boolean:
		bv, ok := b.(Boolean)
		return ok && av == bv
	case YearMonthDuration:
		bv, ok := b.(YearMonthDuration)
		return ok && av == bv
	case DayTimeDuration:
		bv, ok := b.(DayTimeDuration)
		return ok && av == bv
	default:
		return a == b
	}
}
