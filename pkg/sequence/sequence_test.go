package sequence_test

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/sequence"
	"github.com/sandrolain/gometapath/pkg/types"
)

func ints(ns ...int64) []item.Item {
	out := make([]item.Item, len(ns))
	for i, n := range ns {
		out[i] = item.NewInteger(n)
	}
	return out
}

func gen(items []item.Item) *sequence.Sequence {
	return sequence.FromSeq(slices.Values(items))
}

func TestKinds(t *testing.T) {
	tests := []struct {
		name string
		seq  *sequence.Sequence
		kind sequence.Kind
		size int
	}{
		{"empty", sequence.Empty(), sequence.KindEmpty, 0},
		{"of nil", sequence.Of(nil), sequence.KindEmpty, 0},
		{"of", sequence.Of(item.NewInteger(1)), sequence.KindSingleton, 1},
		{"from empty list", sequence.FromList(nil), sequence.KindEmpty, 0},
		{"from one", sequence.FromList(ints(1)), sequence.KindSingleton, 1},
		{"from list", sequence.FromList(ints(1, 2, 3)), sequence.KindMaterialized, 3},
		{"from nil seq", sequence.FromSeq(nil), sequence.KindEmpty, 0},
		{"from seq", gen(ints(1, 2)), sequence.KindGenerator, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.seq.Kind(); got != tt.kind {
				t.Errorf("Kind() = %v, want %v", got, tt.kind)
			}
			n, err := tt.seq.Size()
			if err != nil {
				t.Fatal(err)
			}
			if n != tt.size {
				t.Errorf("Size() = %d, want %d", n, tt.size)
			}
		})
	}
}

func TestGeneratorMaterializes(t *testing.T) {
	calls := 0
	s := sequence.FromSeq(func(yield func(item.Item) bool) {
		calls++
		for _, it := range ints(1, 2) {
			if !yield(it) {
				return
			}
		}
	})
	for range 3 {
		if n, err := s.Size(); err != nil || n != 2 {
			t.Fatalf("Size() = %d, %v", n, err)
		}
	}
	if calls != 1 {
		t.Errorf("generator ran %d times", calls)
	}
	if s.Kind() != sequence.KindMaterialized {
		t.Errorf("Kind() = %v after List", s.Kind())
	}
}

func TestConcurrentList(t *testing.T) {
	var calls atomic.Int32
	s := sequence.FromSeq(func(yield func(item.Item) bool) {
		calls.Add(1)
		for _, it := range ints(1, 2, 3) {
			if !yield(it) {
				return
			}
		}
	})
	var wg sync.WaitGroup
	errs := make([]error, 8)
	sizes := make([]int, 8)
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			list, err := s.List()
			sizes[i], errs[i] = len(list), err
		}()
	}
	wg.Wait()
	for i := range 8 {
		if errs[i] != nil || sizes[i] != 3 {
			t.Errorf("reader %d: %d items, %v", i, sizes[i], errs[i])
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("generator ran %d times", n)
	}
}

func TestGeneratorConsumedOnce(t *testing.T) {
	s := gen(ints(1, 2))
	if _, err := s.Stream(); err != nil {
		t.Fatal(err)
	}
	if !s.Consumed() {
		t.Error("Consumed() = false after Stream")
	}
	_, err := s.List()
	if !errors.Is(err, types.ErrState) || types.CodeOf(err) != types.ErrSequenceConsumed {
		t.Errorf("second read: got %v", err)
	}
	if _, err := s.Stream(); err == nil {
		t.Error("second Stream succeeded")
	}
}

func TestFirstAndEqual(t *testing.T) {
	first, ok, err := sequence.FromList(ints(4, 5)).First()
	if err != nil || !ok || first.(item.Integer).String() != "4" {
		t.Errorf("First() = %v, %v, %v", first, ok, err)
	}
	if _, ok, _ := sequence.Empty().First(); ok {
		t.Error("First() of empty reported an item")
	}

	eq, err := gen(ints(1, 2)).Equal(sequence.FromList(ints(1, 2)))
	if err != nil || !eq {
		t.Errorf("Equal = %v, %v", eq, err)
	}
	eq, _ = sequence.FromList(ints(1, 2)).Equal(sequence.FromList(ints(2, 1)))
	if eq {
		t.Error("order ignored by Equal")
	}
}

func TestConcat(t *testing.T) {
	s, err := sequence.Concat(sequence.Of(item.NewInteger(1)), sequence.Empty(), gen(ints(2, 3)))
	if err != nil {
		t.Fatal(err)
	}
	want := sequence.FromList(ints(1, 2, 3))
	if eq, _ := s.Equal(want); !eq {
		list, _ := s.List()
		t.Errorf("Concat = %v", list)
	}
	if empty, _ := sequence.Concat(); empty.Kind() != sequence.KindEmpty {
		t.Error("Concat() is not empty")
	}
}
