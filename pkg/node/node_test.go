package node_test

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sandrolain/gometapath/pkg/node"
	"github.com/sandrolain/gometapath/pkg/types"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

// shape renders the children of n as "kind path=value" lines, depth first.
func shape(t *testing.T, n node.Node) []string {
	t.Helper()
	var out []string
	var walk func(node.Node)
	walk = func(n node.Node) {
		line := n.Type().String() + " " + node.Path(n)
		if v, ok := n.Value(); ok {
			line += "=" + v.String() + " (" + v.Type().String() + ")"
		}
		out = append(out, line)
		flags, err := n.Flags()
		if err != nil {
			t.Fatal(err)
		}
		for _, f := range flags {
			walk(f)
		}
		groups, err := n.ModelItems()
		if err != nil {
			t.Fatal(err)
		}
		for _, g := range groups {
			for _, it := range g.Items {
				walk(it)
			}
		}
	}
	walk(n)
	return out
}

func TestSchemaless(t *testing.T) {
	doc := node.NewDocument("file:///c.json", decode(t, `{"catalog": {
		"name": "n", "id": "c1",
		"item": [{"sku": "a"}, {"sku": "b", "price": 2.5}],
		"tag": ["x", "y"],
		"meta": {"k": 1},
		"empty": [],
		"gone": null
	}}`))

	want := []string{
		"document-node() /",
		"assembly() /catalog",
		"flag() /catalog/@id=c1 (untyped-atomic)",
		"flag() /catalog/@name=n (untyped-atomic)",
		"assembly() /catalog/item[1]",
		"flag() /catalog/item[1]/@sku=a (untyped-atomic)",
		"assembly() /catalog/item[2]",
		"flag() /catalog/item[2]/@price=2.5 (decimal)",
		"flag() /catalog/item[2]/@sku=b (untyped-atomic)",
		"assembly() /catalog/meta",
		"flag() /catalog/meta/@k=1 (integer)",
		"field() /catalog/tag[1]=x (untyped-atomic)",
		"field() /catalog/tag[2]=y (untyped-atomic)",
	}
	if diff := cmp.Diff(want, shape(t, doc.Node())); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}

	if doc.Root().Name() != "catalog" || doc.BaseURI() != "file:///c.json" {
		t.Errorf("root = %s, uri = %s", doc.Root().Name(), doc.BaseURI())
	}
	sku, ok, err := doc.Root().Flag("id")
	if err != nil || !ok {
		t.Fatalf("Flag(id) = %v, %v", ok, err)
	}
	if node.Root(sku) != doc.Node() {
		t.Error("Root of a flag is not the document node")
	}
	if node.BaseURI(sku) != "file:///c.json" {
		t.Errorf("BaseURI = %q", node.BaseURI(sku))
	}
	if _, ok, _ := doc.Root().Flag("missing"); ok {
		t.Error("Flag(missing) found a node")
	}
}

func TestRootNaming(t *testing.T) {
	tests := []struct {
		name string
		data string
		opts []node.DocumentOption
		want string
	}{
		{"single object member", `{"a": {"x": 1}}`, nil, "a"},
		{"single array member", `{"a": [1, 2]}`, nil, node.DefaultRootName},
		{"several members", `{"a": {}, "b": {}}`, nil, node.DefaultRootName},
		{"explicit name", `{"a": 1, "b": 2}`, []node.DocumentOption{node.WithRootName("top")}, "top"},
		{"definition wins", `{"a": {}}`, []node.DocumentOption{node.WithDefinition(&node.Definition{Name: "b"})}, "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := node.NewDocument("", decode(t, tt.data), tt.opts...)
			if got := doc.Root().Name(); got != tt.want {
				t.Errorf("root name = %q, want %q", got, tt.want)
			}
		})
	}
}

func orderDefinition() *node.Definition {
	return &node.Definition{
		Name: "order",
		Kind: types.TypeAssembly,
		Flags: []*node.Definition{
			{Name: "id", Kind: types.TypeFlag, DataType: types.TypeInteger},
			{Name: "placed", Kind: types.TypeFlag, DataType: types.TypeDate},
		},
		Model: []*node.Definition{
			{Name: "note", Kind: types.TypeField, DataType: types.TypeString, ValueKey: "text",
				Flags: []*node.Definition{{Name: "lang", Kind: types.TypeFlag}}},
			{Name: "line", Kind: types.TypeAssembly,
				Flags: []*node.Definition{{Name: "qty", Kind: types.TypeFlag, DataType: types.TypeDecimal}}},
		},
	}
}

func TestDefinition(t *testing.T) {
	data := decode(t, `{"order": {
		"placed": "2024-03-01", "id": "7", "ignored": "x",
		"line": [{"qty": 2}, {"qty": "1.50"}],
		"note": {"text": "fragile", "lang": "en"}
	}}`)
	doc := node.NewDocument("", data, node.WithDefinition(orderDefinition()))

	want := []string{
		"document-node() /",
		"assembly() /order",
		"flag() /order/@id=7 (integer)",
		"flag() /order/@placed=2024-03-01 (date)",
		"field() /order/note=fragile (string)",
		"flag() /order/note/@lang=en (untyped-atomic)",
		"assembly() /order/line[1]",
		"flag() /order/line[1]/@qty=2 (decimal)",
		"assembly() /order/line[2]",
		"flag() /order/line[2]/@qty=1.5 (decimal)",
	}
	if diff := cmp.Diff(want, shape(t, doc.Node())); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestDefinitionCastFailure(t *testing.T) {
	doc := node.NewDocument("", decode(t, `{"order": {"id": "seven"}}`), node.WithDefinition(orderDefinition()))
	_, err := doc.Root().Flags()
	if types.CodeOf(err) != types.ErrInvalidCast {
		t.Fatalf("got %v, want a cast error", err)
	}
	if !strings.Contains(err.Error(), "/order/@id") {
		t.Errorf("error %q does not name the node", err)
	}
}

func TestLazyChildren(t *testing.T) {
	doc := node.NewDocument("", decode(t, `{"a": {"b": [{"c": 1}, {"c": 2}]}}`))
	root := doc.Root().(*node.Instance)
	if root.ChildrenComputed() {
		t.Fatal("children computed before access")
	}

	var wg sync.WaitGroup
	results := make([][]node.Group, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			groups, err := root.ModelItems()
			if err != nil {
				t.Error(err)
			}
			results[i] = groups
		}()
	}
	wg.Wait()
	for _, r := range results[1:] {
		if r[0].Items[0] != results[0][0].Items[0] {
			t.Fatal("concurrent callers observed different children")
		}
	}
	if root.ChildrenComputed() {
		t.Error("flags reported computed before access")
	}
	if _, err := root.Flags(); err != nil {
		t.Fatal(err)
	}
	if !root.ChildrenComputed() {
		t.Error("children not reported computed")
	}
}

func TestSchemaResolve(t *testing.T) {
	var s node.Schema
	err := json.Unmarshal([]byte(`{
		"root": "part",
		"definitions": [
			{"name": "part", "kind": "assembly",
			 "flags": [{"name": "id", "kind": "flag", "type": "integer"}],
			 "model": [{"name": "part", "ref": "part"}, {"name": "label", "ref": "label"}]},
			{"name": "label", "kind": "field", "type": "string"}
		]
	}`), &s)
	if err != nil {
		t.Fatal(err)
	}
	root, err := s.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if root.Model[0] != root || root.Model[1].Kind != types.TypeField {
		t.Errorf("references not linked: %+v", root.Model)
	}
	if !root.IsRecursive() {
		t.Error("IsRecursive = false for a self reference")
	}
	if root.Model[1].IsRecursive() {
		t.Error("IsRecursive = true for a leaf")
	}

	tree := node.DefinitionTree(root)
	if !node.IsCyclic(tree) {
		t.Error("definition tree over a recursive definition is not cyclic")
	}
	children, err := tree.ModelItemsByName("part")
	if err != nil || len(children) != 1 || children[0] != tree {
		t.Errorf("recursive child = %v, %v", children, err)
	}
	if v, _ := tree.Flags(); len(v) != 1 {
		t.Errorf("flags = %v", v)
	}

	doc := node.NewDocument("", decode(t, `{"part": {"id": "1"}}`))
	if node.IsCyclic(doc.Node()) {
		t.Error("instance tree reported cyclic")
	}
}

func TestSchemaResolveErrors(t *testing.T) {
	tests := []struct {
		name   string
		schema node.Schema
		want   string
	}{
		{"unknown ref", node.Schema{Root: "a", Definitions: []*node.Definition{
			{Name: "a", Model: []*node.Definition{{Name: "b", Ref: "nope"}}},
		}}, `unknown reference "nope"`},
		{"unknown root", node.Schema{Root: "z", Definitions: []*node.Definition{{Name: "a"}}}, `unknown root definition "z"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.schema.Resolve()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %v, want %q", err, tt.want)
			}
		})
	}
}
