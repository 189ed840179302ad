package functions_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/sandrolain/gometapath/pkg/functions"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/node"
	"github.com/sandrolain/gometapath/pkg/sequence"
	"github.com/sandrolain/gometapath/pkg/types"
)

// fakeEnv is a fixed dynamic environment.
type fakeEnv struct {
	focus item.Item
	now   time.Time
	loc   *time.Location
	base  string
	docs  map[string]*node.Document
	err   error
}

func (e *fakeEnv) Focus() (item.Item, bool)         { return e.focus, e.focus != nil }
func (e *fakeEnv) Now() time.Time                   { return e.now }
func (e *fakeEnv) ImplicitTimezone() *time.Location { return e.loc }
func (e *fakeEnv) BaseURI() string                  { return e.base }

func (e *fakeEnv) Document(_ context.Context, uri string) (*node.Document, error) {
	if e.err != nil {
		return nil, e.err
	}
	doc, ok := e.docs[uri]
	if !ok {
		return nil, types.Errorf(types.ErrDocumentLoad, "no document %s", uri)
	}
	return doc, nil
}

func catalog() *node.Document {
	return node.NewDocument("cat.json", map[string]any{
		"catalog": map[string]any{
			"id":   "c1",
			"item": []any{map[string]any{"sku": "a"}, map[string]any{"sku": "b"}},
		},
	})
}

func call(t *testing.T, env functions.Env, name string, args ...*sequence.Sequence) (*sequence.Sequence, error) {
	t.Helper()
	fn, ok := functions.Default().Lookup(name, len(args))
	if !ok {
		t.Fatalf("Lookup(%s, %d) failed", name, len(args))
	}
	return fn.Impl(context.Background(), env, args)
}

func render(t *testing.T, seq *sequence.Sequence) string {
	t.Helper()
	list, err := seq.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	parts := make([]string, len(list))
	for i, it := range list {
		if n, ok := it.(node.Node); ok {
			parts[i] = node.Path(n)
			continue
		}
		parts[i] = it.(item.Atomic).String()
	}
	return strings.Join(parts, ",")
}

func atoms(t *testing.T, lexical ...string) *sequence.Sequence {
	t.Helper()
	items := make([]item.Item, len(lexical))
	for i, s := range lexical {
		typ := types.TypeString
		switch {
		case strings.HasPrefix(s, "P"), strings.HasPrefix(s, "-P"):
			if strings.Contains(s, "T") || strings.HasSuffix(s, "D") {
				typ = types.TypeDayTimeDuration
			} else {
				typ = types.TypeYearMonthDuration
			}
		case strings.Contains(s, "."):
			typ = types.TypeDecimal
		case s != "" && (s[0] == '-' || (s[0] >= '0' && s[0] <= '9')):
			typ = types.TypeInteger
		case s == "true" || s == "false":
			typ = types.TypeBoolean
		}
		a, err := item.Parse(s, typ)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", s, err)
		}
		items[i] = a
	}
	return sequence.FromList(items)
}

func str(s string) *sequence.Sequence { return sequence.Of(item.String(s)) }

func TestLookup(t *testing.T) {
	tests := []struct {
		name  string
		arity int
		want  bool
	}{
		{"count", 1, true},
		{"fn:count", 1, true},
		{"meta:count", 1, true},
		{"count", 2, false},
		{"concat", 5, true},
		{"concat", 1, false},
		{"string", 0, true},
		{"string", 2, false},
		{"xs:count", 1, false},
		{"unknown", 0, false},
	}
	for _, tt := range tests {
		if _, got := functions.Default().Lookup(tt.name, tt.arity); got != tt.want {
			t.Errorf("Lookup(%s, %d) = %v, want %v", tt.name, tt.arity, got, tt.want)
		}
	}
}

func TestFunctionsSorted(t *testing.T) {
	fns := functions.Default().Functions()
	if len(fns) == 0 {
		t.Fatal("no builtins")
	}
	if !sort.SliceIsSorted(fns, func(i, j int) bool { return fns[i].Name < fns[j].Name }) {
		t.Error("Functions() is not sorted by name")
	}
}

func TestFunctionString(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"count", "count#1"},
		{"concat", "concat#2+"},
		{"string", "string#0-1"},
	}
	for _, tt := range tests {
		fn, _ := functions.Default().Lookup(tt.name, 1)
		if fn == nil {
			fn, _ = functions.Default().Lookup(tt.name, 2)
		}
		if got := fn.String(); got != tt.want {
			t.Errorf("%s.String() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestNewRegistryErrors(t *testing.T) {
	impl := func(context.Context, functions.Env, []*sequence.Sequence) (*sequence.Sequence, error) {
		return sequence.Empty(), nil
	}
	tests := []struct {
		name string
		fns  []*functions.Function
	}{
		{"missing impl", []*functions.Function{{Name: "f"}}},
		{"missing name", []*functions.Function{{Impl: impl}}},
		{"bad arity", []*functions.Function{{Name: "f", MinArgs: 2, MaxArgs: 1, Impl: impl}}},
		{"duplicate", []*functions.Function{{Name: "f", Impl: impl}, {Name: "f", Impl: impl}}},
		{"duplicate with prefix", []*functions.Function{{Name: "f", Impl: impl}, {Name: "fn:f", Impl: impl}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := functions.NewRegistry(tt.fns...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestWithReplaces(t *testing.T) {
	constant := func(n int64) functions.Impl {
		return func(context.Context, functions.Env, []*sequence.Sequence) (*sequence.Sequence, error) {
			return sequence.Of(item.NewInteger(n)), nil
		}
	}
	count0 := &functions.Function{Name: "count", MinArgs: 0, MaxArgs: 0, ReturnType: types.TypeInteger, Impl: constant(0)}
	count1 := &functions.Function{Name: "count", MinArgs: 1, MaxArgs: 1, ReturnType: types.TypeInteger, Impl: constant(1)}

	r, err := functions.Default().With(count0)
	if err != nil {
		t.Fatalf("With() error = %v", err)
	}
	if got, ok := r.Lookup("count", 0); !ok || got != count0 {
		t.Error("count#0 not registered")
	}
	if got, ok := r.Lookup("count", 1); !ok || got == count0 {
		t.Error("builtin count#1 lost when adding count#0")
	}

	r, err = r.With(count1)
	if err != nil {
		t.Fatalf("With() error = %v", err)
	}
	if got, ok := r.Lookup("count", 1); !ok || got != count1 {
		t.Error("count#1 not replaced")
	}
	if got, ok := r.Lookup("count", 0); !ok || got != count0 {
		t.Error("count#0 lost when replacing count#1")
	}
	if _, ok := functions.Default().Lookup("count", 0); ok {
		t.Error("With modified the default registry")
	}
}

func TestRegistryOverloads(t *testing.T) {
	impl := func(context.Context, functions.Env, []*sequence.Sequence) (*sequence.Sequence, error) {
		return sequence.Empty(), nil
	}
	one := &functions.Function{Name: "meta:area", MinArgs: 1, MaxArgs: 1, Impl: impl}
	two := &functions.Function{Name: "area", MinArgs: 2, MaxArgs: 3, Impl: impl}
	r, err := functions.NewRegistry(one, two)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name  string
		arity int
		want  *functions.Function
	}{
		{"area", 1, one},
		{"meta:area", 1, one},
		{"fn:area", 1, one},
		{"area", 2, two},
		{"meta:area", 3, two},
		{"area", 0, nil},
		{"area", 4, nil},
	}
	for _, tt := range tests {
		got, _ := r.Lookup(tt.name, tt.arity)
		if got != tt.want {
			t.Errorf("Lookup(%s, %d) = %v, want %v", tt.name, tt.arity, got, tt.want)
		}
	}
	if fns := r.Functions(); len(fns) != 2 || fns[0] != one || fns[1] != two {
		t.Errorf("Functions() = %v", fns)
	}

	variadic := &functions.Function{Name: "fn:area", MinArgs: 3, MaxArgs: -1, Impl: impl}
	if _, err := functions.NewRegistry(one, two, variadic); err == nil {
		t.Error("overlapping arities accepted")
	}
}

func TestBuiltins(t *testing.T) {
	doc := catalog()
	root := doc.Root()
	env := &fakeEnv{focus: root}

	tests := []struct {
		name string
		fn   string
		args []*sequence.Sequence
		want string
	}{
		{"true", "true", nil, "true"},
		{"false", "false", nil, "false"},
		{"not", "not", []*sequence.Sequence{atoms(t, "true")}, "false"},
		{"boolean of empty string", "boolean", []*sequence.Sequence{str("")}, "false"},
		{"boolean of node", "boolean", []*sequence.Sequence{sequence.Of(root)}, "true"},
		{"count", "count", []*sequence.Sequence{atoms(t, "1", "2", "3")}, "3"},
		{"empty", "empty", []*sequence.Sequence{sequence.Empty()}, "true"},
		{"exists", "exists", []*sequence.Sequence{sequence.Empty()}, "false"},
		{"data of flag", "data", []*sequence.Sequence{sequence.Of(mustFlag(t, root, "id"))}, "c1"},
		{"string of decimal", "string", []*sequence.Sequence{atoms(t, "1.50")}, "1.5"},
		{"string of focus", "string", nil, ""},
		{"string-length", "string-length", []*sequence.Sequence{str("héllo")}, "5"},
		{"concat skips empty", "concat", []*sequence.Sequence{str("a"), sequence.Empty(), str("b")}, "ab"},
		{"starts-with", "starts-with", []*sequence.Sequence{str("abc"), str("ab")}, "true"},
		{"ends-with", "ends-with", []*sequence.Sequence{str("abc"), str("ab")}, "false"},
		{"contains empty", "contains", []*sequence.Sequence{str("abc"), str("")}, "true"},
		{"upper-case", "upper-case", []*sequence.Sequence{str("abc")}, "ABC"},
		{"lower-case", "lower-case", []*sequence.Sequence{str("ABC")}, "abc"},
		{"normalize-space", "normalize-space", []*sequence.Sequence{str("  a   b ")}, "a b"},
		{"abs", "abs", []*sequence.Sequence{atoms(t, "-3")}, "3"},
		{"abs decimal", "abs", []*sequence.Sequence{atoms(t, "-2.5")}, "2.5"},
		{"sum", "sum", []*sequence.Sequence{atoms(t, "1", "2", "3")}, "6"},
		{"sum mixed", "sum", []*sequence.Sequence{atoms(t, "1", "2.5")}, "3.5"},
		{"sum empty", "sum", []*sequence.Sequence{sequence.Empty()}, "0"},
		{"sum durations", "sum", []*sequence.Sequence{atoms(t, "P1M", "P1Y")}, "P1Y1M"},
		{"name of focus", "name", nil, "catalog"},
		{"name of empty", "name", []*sequence.Sequence{sequence.Empty()}, ""},
		{"path", "path", []*sequence.Sequence{sequence.Of(mustFlag(t, root, "id"))}, "/catalog/@id"},
		{"root", "root", nil, "/"},
		{"date", "date", []*sequence.Sequence{str("2021-01-01")}, "2021-01-01"},
		{"day-time-duration", "day-time-duration", []*sequence.Sequence{str("PT90M")}, "PT1H30M"},
		{"integer of empty", "integer", []*sequence.Sequence{sequence.Empty()}, ""},
		{"decimal from integer", "decimal", []*sequence.Sequence{atoms(t, "4")}, "4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := call(t, env, tt.fn, tt.args...)
			if err != nil {
				t.Fatalf("%s error = %v", tt.fn, err)
			}
			if s := render(t, got); s != tt.want {
				t.Errorf("%s = %q, want %q", tt.fn, s, tt.want)
			}
		})
	}
}

func mustFlag(t *testing.T, n node.Node, name string) node.Node {
	t.Helper()
	f, ok, err := n.Flag(name)
	if err != nil || !ok {
		t.Fatalf("Flag(%s) = %v, %v", name, ok, err)
	}
	return f
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name string
		env  *fakeEnv
		fn   string
		args []*sequence.Sequence
		code types.ErrorCode
	}{
		{"integer cast", &fakeEnv{}, "integer", []*sequence.Sequence{str("x")}, types.ErrInvalidCast},
		{"absent focus", &fakeEnv{}, "name", nil, types.ErrContextAbsent},
		{"focus not a node", &fakeEnv{focus: item.String("x")}, "name", nil, types.ErrNotANode},
		{"not a singleton", &fakeEnv{}, "upper-case", []*sequence.Sequence{atoms(t, "a", "b")}, types.ErrNotASingleton},
		{"invalid ebv", &fakeEnv{}, "boolean", []*sequence.Sequence{atoms(t, "1", "2")}, types.ErrInvalidEBV},
		{"sum of strings", &fakeEnv{}, "sum", []*sequence.Sequence{atoms(t, "a", "b")}, types.ErrTypeMismatch},
		{"missing document", &fakeEnv{}, "doc", []*sequence.Sequence{str("nope.json")}, types.ErrDocumentLoad},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := call(t, tt.env, tt.fn, tt.args...)
			if got := types.CodeOf(err); got != tt.code {
				t.Errorf("%s error = %v, want %s", tt.fn, err, tt.code)
			}
		})
	}
}

func TestDocuments(t *testing.T) {
	env := &fakeEnv{base: "file:///data/", docs: map[string]*node.Document{"cat.json": catalog()}}

	got, err := call(t, env, "doc", str("cat.json"))
	if err != nil {
		t.Fatalf("doc() error = %v", err)
	}
	list, _ := got.List()
	if len(list) != 1 || list[0].Type() != types.TypeDocument {
		t.Fatalf("doc() = %v, want one document node", list)
	}

	uri, err := call(t, env, "base-uri", got)
	if err != nil {
		t.Fatalf("base-uri() error = %v", err)
	}
	if s := render(t, uri); s != "file:///data/cat.json" {
		t.Errorf("base-uri() = %q", s)
	}

	for uri, want := range map[string]string{"cat.json": "true", "other.json": "false"} {
		got, err := call(t, env, "doc-available", str(uri))
		if err != nil {
			t.Fatalf("doc-available(%s) error = %v", uri, err)
		}
		if s := render(t, got); s != want {
			t.Errorf("doc-available(%s) = %s, want %s", uri, s, want)
		}
	}

	cyclic := &fakeEnv{err: types.NewError(types.ErrImportCycle, "a imports itself", -1)}
	if _, err := call(t, cyclic, "doc-available", str("a.json")); !errors.Is(err, types.ErrCycle) {
		t.Errorf("doc-available on a cycle = %v, want a cycle error", err)
	}
}

func TestCurrentDateTime(t *testing.T) {
	plus2 := time.FixedZone("", 2*60*60)
	env := &fakeEnv{now: time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC), loc: plus2}

	tests := []struct {
		fn   string
		want string
	}{
		{"current-dateTime", "2024-03-02T01:30:00+02:00"},
		{"current-date", "2024-03-02+02:00"},
		{"implicit-timezone", "PT2H"},
	}
	for _, tt := range tests {
		t.Run(tt.fn, func(t *testing.T) {
			got, err := call(t, env, tt.fn)
			if err != nil {
				t.Fatalf("%s error = %v", tt.fn, err)
			}
			if s := render(t, got); s != tt.want {
				t.Errorf("%s = %q, want %q", tt.fn, s, tt.want)
			}
		})
	}
}
