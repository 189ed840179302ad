package evaluator_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/sandrolain/gometapath/pkg/ast"
	"github.com/sandrolain/gometapath/pkg/evaluator"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/node"
	"github.com/sandrolain/gometapath/pkg/sequence"
	"github.com/sandrolain/gometapath/pkg/types"
)

func catalog() *node.Document {
	return node.NewDocument("file:///data/cat.json", map[string]any{
		"catalog": map[string]any{
			"id": "c1",
			"item": []any{
				map[string]any{"sku": "a", "price": 10, "tag": []any{"x", "y"}},
				map[string]any{"sku": "b", "price": 25},
			},
			"group": map[string]any{
				"name": "g",
				"item": map[string]any{"sku": "c", "price": 5},
			},
		},
	})
}

// mapLoader serves documents from memory.
type mapLoader map[string]*node.Document

func (m mapLoader) Load(_ context.Context, uri string) (*node.Document, error) {
	doc, ok := m[uri]
	if !ok {
		return nil, types.Errorf(types.ErrDocumentLoad, "no document at %s", uri)
	}
	return doc, nil
}

func compile(t testing.TB, src string) *ast.Expression {
	t.Helper()
	expr, err := ast.Compile(src)
	if err != nil {
		t.Fatalf("Compile(%q) error = %v", src, err)
	}
	return expr
}

// render maps nodes to their paths and atomic values to their lexical form.
func render(t *testing.T, seq *sequence.Sequence) []string {
	t.Helper()
	list, err := seq.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	out := make([]string, len(list))
	for i, it := range list {
		if n, ok := it.(node.Node); ok {
			out[i] = node.Path(n)
			continue
		}
		out[i] = it.(item.Atomic).String()
	}
	return out
}

func TestEvaluate(t *testing.T) {
	doc := catalog()
	tests := []struct {
		name  string
		expr  string
		focus item.Item
		want  []string
	}{
		{"literal", "'hi'", nil, []string{"hi"}},
		{"add integers", "2 + 3", nil, []string{"5"}},
		{"empty arithmetic", "() + 1", nil, []string{}},
		{"date plus day", "date('2021-01-01') + day-time-duration('P1D')", nil, []string{"2021-01-02"}},
		{"negate", "-(2 + 3)", nil, []string{"-5"}},
		{"value lt", "2 lt 3", nil, []string{"true"}},
		{"value eq", "2 eq 3", nil, []string{"false"}},
		{"value ne", "2 ne 3", nil, []string{"true"}},
		{"value comparison with empty", "() eq 1", nil, []string{}},
		{"general shared value", "(1, 2) = (2, 3)", nil, []string{"true"}},
		{"general no shared value", "(1) = (3)", nil, []string{"false"}},
		{"general with empty", "() = 1", nil, []string{"false"}},
		{"untyped promoted to integer", "untyped-atomic('5') = 5", nil, []string{"true"}},
		{"untyped compared as strings", "untyped-atomic('5') = untyped-atomic('05')", nil, []string{"false"}},
		{"and short circuits", "false() and $missing", nil, []string{"false"}},
		{"or short circuits", "true() or $missing", nil, []string{"true"}},
		{"string concat", "'a' || () || 1", nil, []string{"a1"}},
		{"sequence", "(1, (), (2, 3))", nil, []string{"1", "2", "3"}},
		{"let", "let $x := 1 return $x + 1", nil, []string{"2"}},
		{"let shadowing restores", "let $x := 1 return ((let $x := 2 return $x), $x)", nil, []string{"2", "1"}},
		{"let several bindings", "let $a := 1, $b := $a + 1 return $a + $b", nil, []string{"3"}},

		{"child path", "./item", doc.Root(), []string{"/catalog/item[1]", "/catalog/item[2]"}},
		{"positional predicate", "item[1]", doc.Root(), []string{"/catalog/item[1]"}},
		{"positional out of range", "item[3]", doc.Root(), []string{}},
		{"boolean predicate", "item[@price > 20]", doc.Root(), []string{"/catalog/item[2]"}},
		{"chained predicates", "item[@price > 1][2]", doc.Root(), []string{"/catalog/item[2]"}},
		{"filter expression", "(item, group/item)[@sku = 'c']", doc.Root(), []string{"/catalog/group/item"}},
		{"flag", "@id", doc.Root(), []string{"/catalog/@id"}},
		{"flag wildcard", "item[2]/@*", doc.Root(), []string{"/catalog/item[2]/@price", "/catalog/item[2]/@sku"}},
		{"model wildcard", "*", doc.Root(), []string{"/catalog/group", "/catalog/item[1]", "/catalog/item[2]"}},
		{"fields", "item/tag", doc.Root(), []string{"/catalog/item[1]/tag[1]", "/catalog/item[1]/tag[2]"}},
		{"root", "/", doc.Root(), []string{"/"}},
		{"root path", "/catalog/@id", doc.Root().(node.Node), []string{"/catalog/@id"}},
		{"descendant from document", "//item", doc.Node(), []string{"/catalog/item[1]", "/catalog/item[2]", "/catalog/group/item"}},
		{"descendant from node", "group//item", doc.Root(), []string{"/catalog/group/item"}},
		{
			"descendant flags before model", "//@sku", doc.Node(),
			[]string{"/catalog/group/item/@sku", "/catalog/item[1]/@sku", "/catalog/item[2]/@sku"},
		},
		{"union removes duplicates", "item[1] | item | @id", doc.Root(), []string{"/catalog/item[1]", "/catalog/item[2]", "/catalog/@id"}},
		{"count", "count(//item)", doc.Node(), []string{"3"}},
		{"sum", "sum(item/@price)", doc.Root(), []string{"35"}},
		{"atomized flag", "item[1]/@price + 1", doc.Root(), []string{"11"}},
		{"untyped flag compared to string", "@id = 'c1'", doc.Root(), []string{"true"}},
		{"string of flag", "string(@id)", doc.Root(), []string{"c1"}},
		{"path function", "path(group/item/@sku)", doc.Root(), []string{"/catalog/group/item/@sku"}},
		{"name function", "name(group)", doc.Root(), []string{"group"}},
		{"root function", "root(item[1])", doc.Root(), []string{"/"}},
		{"context item", ".", item.NewInteger(7), []string{"7"}},
		{"arithmetic on focus", ". * 2", item.NewInteger(7), []string{"14"}},
	}
	ev := evaluator.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ev.Eval(context.Background(), compile(t, tt.expr), tt.focus)
			if err != nil {
				t.Fatalf("Eval(%q) error = %v", tt.expr, err)
			}
			if diff := cmp.Diff(tt.want, render(t, got)); diff != "" {
				t.Errorf("Eval(%q) mismatch (-want +got):\n%s", tt.expr, diff)
			}
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	doc := catalog()
	tests := []struct {
		name     string
		expr     string
		focus    item.Item
		code     types.ErrorCode
		category error
	}{
		{"adding year-month durations", "year-month-duration('P1Y') + year-month-duration('P1M')", nil, types.ErrTypeMismatch, types.ErrType},
		{"string plus integer", "'a' + 1", nil, types.ErrTypeMismatch, types.ErrType},
		{"value comparison of sequences", "(1, 2) eq 1", nil, types.ErrNotASingleton, types.ErrType},
		{"arithmetic on sequences", "(1, 2) + 1", nil, types.ErrNotASingleton, types.ErrType},
		{"incomparable values", "1 eq 'a'", nil, types.ErrTypeMismatch, types.ErrType},
		{"division by zero", "1 idiv 0", nil, types.ErrDivisionByZero, types.ErrArithmetic},
		{"failed cast", "integer('x')", nil, types.ErrInvalidCast, types.ErrCast},
		{"unbound variable", "$y + 1", nil, types.ErrUnboundVariable, types.ErrDynamic},
		{"let scope ends", "(let $x := 1 return $x) + $x", nil, types.ErrUnboundVariable, types.ErrDynamic},
		{"absent context", ".", nil, types.ErrContextAbsent, types.ErrDynamic},
		{"absent context in path", "item", nil, types.ErrContextAbsent, types.ErrDynamic},
		{"path from atomic", "item", item.NewInteger(1), types.ErrNotANode, types.ErrType},
		{"union of atomics", "1 | 2", nil, types.ErrTypeMismatch, types.ErrType},
		{"ebv of atomics", "item[(1, 2)]", doc.Root(), types.ErrInvalidEBV, types.ErrType},
		{"node without value", "group + 1", doc.Root(), types.ErrTypeMismatch, types.ErrType},
		{"descendant from atomic", "(1)//item", nil, types.ErrNotANode, types.ErrType},
		{"document without loader", "doc('x.json')", nil, types.ErrDocumentLoad, types.ErrDynamic},
	}
	ev := evaluator.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ev.Eval(context.Background(), compile(t, tt.expr), tt.focus)
			if err == nil {
				t.Fatalf("Eval(%q) succeeded, want %s", tt.expr, tt.code)
			}
			if got := types.CodeOf(err); got != tt.code {
				t.Errorf("code = %s, want %s (%v)", got, tt.code, err)
			}
			if !errors.Is(err, tt.category) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.category)
			}
		})
	}
}

func TestErrorCarriesSource(t *testing.T) {
	const src = "1 + $y"
	_, err := evaluator.New().Eval(context.Background(), compile(t, src), nil)
	var te *types.Error
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want *types.Error", err)
	}
	if te.Expr != src {
		t.Errorf("Expr = %q, want %q", te.Expr, src)
	}
	if te.Position != 4 {
		t.Errorf("Position = %d, want 4", te.Position)
	}
}

func TestIdempotent(t *testing.T) {
	doc := catalog()
	ev := evaluator.New()
	for _, src := range []string{"//item", "item[@price > 5]/@sku", "let $p := sum(item/@price) return $p div 2", "count(*) = 3"} {
		t.Run(src, func(t *testing.T) {
			expr := compile(t, src)
			first, err := ev.Eval(context.Background(), expr, doc.Root())
			if err != nil {
				t.Fatal(err)
			}
			second, err := ev.Eval(context.Background(), expr, doc.Root())
			if err != nil {
				t.Fatal(err)
			}
			eq, err := first.Equal(second)
			if err != nil {
				t.Fatal(err)
			}
			if !eq {
				t.Errorf("results differ: %v vs %v", render(t, first), render(t, second))
			}
		})
	}
}

func TestDynamicContext(t *testing.T) {
	doc := catalog()
	utc2 := time.FixedZone("", 2*3600)
	now := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		expr string
		opts []evaluator.DynamicOption
		want []string
	}{
		{"external variable", "item[@price > $limit]/@sku", []evaluator.DynamicOption{
			evaluator.WithVariable("limit", sequence.Of(item.NewInteger(20))),
		}, []string{"/catalog/item[2]/@sku"}},
		{"current date in implicit timezone", "current-date()", []evaluator.DynamicOption{
			evaluator.WithNow(now), evaluator.WithImplicitTimezone(utc2),
		}, []string{"2024-03-02+02:00"}},
		{"stable now", "current-dateTime() eq current-dateTime()", []evaluator.DynamicOption{
			evaluator.WithNow(now),
		}, []string{"true"}},
		{"document relative to base", "doc('other.json')/catalog/@id", []evaluator.DynamicOption{
			evaluator.WithBaseURI("file:///data/"),
			evaluator.WithDocuments(mapLoader{"file:///data/other.json": doc}),
		}, []string{"/catalog/@id"}},
	}
	ev := evaluator.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ev.Eval(context.Background(), compile(t, tt.expr), doc.Root(), tt.opts...)
			if err != nil {
				t.Fatalf("Eval(%q) error = %v", tt.expr, err)
			}
			if diff := cmp.Diff(tt.want, render(t, got)); diff != "" {
				t.Errorf("Eval(%q) mismatch (-want +got):\n%s", tt.expr, diff)
			}
		})
	}
}

func TestBindRestores(t *testing.T) {
	dc := evaluator.NewDynamicContext(evaluator.WithVariable("x", sequence.Of(item.NewInteger(1))))
	restoreOuter := dc.Bind("x", sequence.Of(item.NewInteger(2)))
	restoreNew := dc.Bind("y", sequence.Of(item.NewInteger(3)))
	restoreNew()
	if _, ok := dc.Lookup("y"); ok {
		t.Error("y still bound after restore")
	}
	restoreOuter()
	v, ok := dc.Lookup("x")
	if !ok {
		t.Fatal("x unbound after restore")
	}
	if first, _, _ := v.First(); !item.Equal(first, item.NewInteger(1)) {
		t.Errorf("x = %v, want 1", first)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		base, uri, want string
	}{
		{"", "a.json", "a.json"},
		{"file:///data/", "a.json", "file:///data/a.json"},
		{"file:///data/cat.json", "sub/a.json", "file:///data/sub/a.json"},
		{"file:///data/", "https://example.com/a.json", "https://example.com/a.json"},
	}
	for _, tt := range tests {
		dc := evaluator.NewDynamicContext(evaluator.WithBaseURI(tt.base))
		got, err := dc.Resolve(tt.uri)
		if err != nil {
			t.Fatalf("Resolve(%q) error = %v", tt.uri, err)
		}
		if got != tt.want {
			t.Errorf("Resolve(%q) against %q = %q, want %q", tt.uri, tt.base, got, tt.want)
		}
	}
}

func TestLimits(t *testing.T) {
	doc := catalog()
	t.Run("descendant nodes", func(t *testing.T) {
		ev := evaluator.New(evaluator.WithMaxDescendantNodes(3))
		_, err := ev.Eval(context.Background(), compile(t, "//item"), doc.Node())
		if got := types.CodeOf(err); got != types.ErrResourceLimit {
			t.Fatalf("code = %s, want %s (%v)", got, types.ErrResourceLimit, err)
		}
	})
	t.Run("depth", func(t *testing.T) {
		ev := evaluator.New(evaluator.WithMaxDepth(5))
		_, err := ev.Eval(context.Background(), compile(t, "1 + (1 + (1 + (1 + (1 + 1))))"), nil)
		if got := types.CodeOf(err); got != types.ErrResourceLimit {
			t.Fatalf("code = %s, want %s (%v)", got, types.ErrResourceLimit, err)
		}
	})
	t.Run("deadline", func(t *testing.T) {
		ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
		defer cancel()
		_, err := evaluator.New().Eval(ctx, compile(t, "1"), nil)
		if got := types.CodeOf(err); got != types.ErrEvaluationTimeout {
			t.Fatalf("code = %s, want %s (%v)", got, types.ErrEvaluationTimeout, err)
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("errors.Is(%v, DeadlineExceeded) = false", err)
		}
	})
	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := evaluator.New().Eval(ctx, compile(t, "1"), nil)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("error = %v, want context.Canceled", err)
		}
	})
}

func TestDescendantOverCyclicDefinitions(t *testing.T) {
	part := &node.Definition{
		Name:  "part",
		Kind:  types.TypeAssembly,
		Flags: []*node.Definition{{Name: "id", Kind: types.TypeFlag, DataType: types.TypeString}},
	}
	part.Model = []*node.Definition{part}
	tree := node.DefinitionTree(part)
	if !node.IsCyclic(tree) {
		t.Fatal("definition tree not reported as cyclic")
	}

	ev := evaluator.New()
	tests := []struct {
		expr string
		want []string
	}{
		{"//part", []string{"/part"}},
		{"//@id", []string{"/part/@id"}},
		{"count(//*)", []string{"1"}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ev.Eval(context.Background(), compile(t, tt.expr), tree)
			if err != nil {
				t.Fatalf("Eval(%q) error = %v", tt.expr, err)
			}
			if diff := cmp.Diff(tt.want, render(t, got)); diff != "" {
				t.Errorf("Eval(%q) mismatch (-want +got):\n%s", tt.expr, diff)
			}
		})
	}
}

func TestEvaluateQueryCaches(t *testing.T) {
	ev := evaluator.New(evaluator.WithCaching(true), evaluator.WithCacheSize(4))
	for i := 0; i < 3; i++ {
		got, err := ev.EvaluateQuery(context.Background(), "1 + 1", nil)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"2"}, render(t, got)); diff != "" {
			t.Fatalf("mismatch (-want +got):\n%s", diff)
		}
	}
	if n := ev.Cache().Len(); n != 1 {
		t.Errorf("cache Len() = %d, want 1", n)
	}
	if _, err := ev.EvaluateQuery(context.Background(), "1 +", nil); types.CodeOf(err) != types.ErrSyntax {
		t.Errorf("error = %v, want %s", err, types.ErrSyntax)
	}
	if n := ev.Cache().Len(); n != 1 {
		t.Errorf("cache Len() after failed compile = %d, want 1", n)
	}
}

func TestEvalMany(t *testing.T) {
	doc := catalog()
	exprs := []*ast.Expression{
		compile(t, "count(item)"),
		compile(t, "string(@id)"),
		compile(t, "sum(//@price)"),
	}
	want := [][]string{{"2"}, {"c1"}, {"40"}}
	for _, concurrent := range []bool{false, true} {
		ev := evaluator.New(evaluator.WithConcurrency(concurrent))
		results, err := ev.EvalMany(context.Background(), exprs, doc.Root())
		if err != nil {
			t.Fatalf("EvalMany(concurrency=%v) error = %v", concurrent, err)
		}
		got := make([][]string, len(results))
		for i, r := range results {
			got[i] = render(t, r)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("EvalMany(concurrency=%v) mismatch (-want +got):\n%s", concurrent, diff)
		}
	}

	exprs = append(exprs, compile(t, "$nope"))
	if _, err := evaluator.New().EvalMany(context.Background(), exprs, doc.Root()); types.CodeOf(err) != types.ErrUnboundVariable {
		t.Errorf("EvalMany error = %v, want %s", err, types.ErrUnboundVariable)
	}
}

func TestSharedVariable(t *testing.T) {
	shared := func() *sequence.Sequence {
		return sequence.FromSeq(slices.Values([]item.Item{item.NewInteger(1), item.NewInteger(2), item.NewInteger(3)}))
	}
	ev := evaluator.New()

	v := shared()
	expr := compile(t, "(count($v), sum($v))")
	var wg sync.WaitGroup
	got := make([][]string, 8)
	errs := make([]error, 8)
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := ev.Eval(context.Background(), expr, nil, evaluator.WithVariable("v", v))
			if err != nil {
				errs[i] = err
				return
			}
			list, err := seq.List()
			if err != nil {
				errs[i] = err
				return
			}
			for _, it := range list {
				got[i] = append(got[i], it.(item.Atomic).String())
			}
		}()
	}
	wg.Wait()
	for i := range 8 {
		if errs[i] != nil {
			t.Errorf("evaluation %d: %v", i, errs[i])
			continue
		}
		if diff := cmp.Diff([]string{"3", "6"}, got[i]); diff != "" {
			t.Errorf("evaluation %d mismatch (-want +got):\n%s", i, diff)
		}
	}

	exprs := []*ast.Expression{compile(t, "count($v)"), compile(t, "sum($v)"), compile(t, "$v[2]")}
	results, err := evaluator.New(evaluator.WithConcurrency(true)).EvalMany(context.Background(), exprs, nil, evaluator.WithVariable("v", shared()))
	if err != nil {
		t.Fatal(err)
	}
	var rendered [][]string
	for _, r := range results {
		rendered = append(rendered, render(t, r))
	}
	if diff := cmp.Diff([][]string{{"3"}, {"6"}, {"2"}}, rendered); diff != "" {
		t.Errorf("EvalMany mismatch (-want +got):\n%s", diff)
	}
}

func TestDebugLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ev := evaluator.New(evaluator.WithDebug(true), evaluator.WithLogger(logger))
	if _, err := ev.Eval(context.Background(), compile(t, "count(1 + 2)"), nil); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"evaluation started", "evaluating node", "calling function", "eval_id=", "kind=add"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestInvalidExpression(t *testing.T) {
	if _, err := evaluator.New().Eval(context.Background(), nil, nil); err == nil {
		t.Error("Eval(nil) succeeded")
	}
}

func BenchmarkEvaluate(b *testing.B) {
	doc := catalog()
	expr := compile(b, "count(//item[@price > 5]) + sum(//@price)")
	ev := evaluator.New()
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ev.Eval(ctx, expr, doc.Node()); err != nil {
			b.Fatal(err)
		}
	}
}
