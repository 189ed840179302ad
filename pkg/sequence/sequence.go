// Package sequence implements the ordered item sequences produced by
// expression evaluation.
//
// A Sequence has one of four representations:
//   - Empty: the canonical shared empty sequence
//   - Singleton: exactly one item
//   - Materialized: a list of items
//   - Generator: a single-use iterator
//
// A generator-backed sequence can be streamed once. Calling [Sequence.List]
// drains the generator and caches the list, after which the sequence
// behaves as a materialized one. Streaming a generator a second time
// without materializing it first is a state error.
//
// A Sequence may be shared between goroutines. Draining a generator is
// serialized, so concurrent readers calling List all observe the same
// materialized items.
package sequence

import (
	"iter"
	"slices"
	"sync"

	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/types"
)

// Kind identifies the representation of a sequence.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindSingleton
	KindMaterialized
	KindGenerator
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindSingleton:
		return "singleton"
	case KindMaterialized:
		return "materialized"
	case KindGenerator:
		return "generator"
	default:
		return "(unknown)"
	}
}

// Sequence is an ordered, possibly empty collection of items.
type Sequence struct {
	mu       sync.Mutex
	kind     Kind
	one      item.Item
	list     []item.Item
	gen      iter.Seq[item.Item]
	consumed bool
}

var empty = &Sequence{kind: KindEmpty}

// ErrConsumed is returned when a generator-backed sequence is read twice.
var ErrConsumed = types.NewError(types.ErrSequenceConsumed, "sequence generator already consumed", -1)

// Empty returns the canonical empty sequence.
func Empty() *Sequence {
	return empty
}

// Of returns a sequence holding it. A nil item yields the empty sequence.
func Of(it item.Item) *Sequence {
	if it == nil {
		return empty
	}
	return &Sequence{kind: KindSingleton, one: it}
}

// FromList returns a sequence over items. The slice must not be modified
// afterwards.
func FromList(items []item.Item) *Sequence {
	switch len(items) {
	case 0:
		return empty
	case 1:
		return Of(items[0])
	}
	return &Sequence{kind: KindMaterialized, list: items}
}

// FromSeq returns a sequence backed by gen. gen is invoked at most once.
func FromSeq(gen iter.Seq[item.Item]) *Sequence {
	if gen == nil {
		return empty
	}
	return &Sequence{kind: KindGenerator, gen: gen}
}

// Kind returns the current representation.
func (s *Sequence) Kind() Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kind
}

// Consumed reports whether the generator of s has been handed out.
func (s *Sequence) Consumed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consumed
}

// List returns the items of s, draining and caching a generator on first use.
func (s *Sequence) List() ([]item.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.kind {
	case KindEmpty:
		return nil, nil
	case KindSingleton:
		return []item.Item{s.one}, nil
	case KindMaterialized:
		return s.list, nil
	}
	if s.consumed {
		return nil, ErrConsumed
	}
	s.consumed = true
	list := slices.Collect(s.gen)
	s.gen = nil
	s.list = list
	s.kind = KindMaterialized
	return list, nil
}

// Stream returns an iterator over the items. For a generator-backed
// sequence that has not been materialized, the generator itself is returned
// and the sequence is marked as consumed.
func (s *Sequence) Stream() (iter.Seq[item.Item], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.kind {
	case KindEmpty:
		return func(func(item.Item) bool) {}, nil
	case KindSingleton:
		one := s.one
		return func(yield func(item.Item) bool) { yield(one) }, nil
	case KindMaterialized:
		return slices.Values(s.list), nil
	}
	if s.consumed {
		return nil, ErrConsumed
	}
	s.consumed = true
	return s.gen, nil
}

// Size returns the number of items, materializing s if needed.
func (s *Sequence) Size() (int, error) {
	list, err := s.List()
	return len(list), err
}

// IsEmpty reports whether s has no items.
func (s *Sequence) IsEmpty() (bool, error) {
	n, err := s.Size()
	return n == 0, err
}

// First returns the first item of s.
func (s *Sequence) First() (item.Item, bool, error) {
	list, err := s.List()
	if err != nil || len(list) == 0 {
		return nil, false, err
	}
	return list[0], true, nil
}

// Equal reports whether s and other hold equal items in the same order.
func (s *Sequence) Equal(other *Sequence) (bool, error) {
	a, err := s.List()
	if err != nil {
		return false, err
	}
	b, err := other.List()
	if err != nil {
		return false, err
	}
	return slices.EqualFunc(a, b, item.Equal), nil
}

// Concat returns the items of seqs in order.
func Concat(seqs ...*Sequence) (*Sequence, error) {
	var out []item.Item
	for _, s := range seqs {
		list, err := s.List()
		if err != nil {
			return nil, err
		}
		out = append(out, list...)
	}
	return FromList(out), nil
}
