package node

import (
	"fmt"
	"sync"

	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/types"
)

// DefaultValueKey is the member that holds the value of a field with flags.
const DefaultValueKey = "value"

// Definition describes the shape of a flag, field or assembly.
type Definition struct {
	Name string `json:"name"`
	// Kind is types.TypeFlag, types.TypeField or types.TypeAssembly.
	Kind types.Type `json:"kind"`
	// DataType is the atomic type of flag and field values. The zero value
	// leaves values untyped.
	DataType types.Type    `json:"type,omitempty"`
	Flags    []*Definition `json:"flags,omitempty"`
	Model    []*Definition `json:"model,omitempty"`
	// ValueKey names the member holding the value of a field with flags.
	ValueKey string `json:"value-key,omitempty"`
	// Ref names a top-level definition of a Schema to use in place of this one.
	Ref string `json:"ref,omitempty"`
}

func (d *Definition) valueKey() string {
	if d.ValueKey != "" {
		return d.ValueKey
	}
	return DefaultValueKey
}

// convert turns a decoded value into the definition's data type.
func (d *Definition) convert(raw any) (item.Atomic, bool, error) {
	v, ok := item.FromGo(raw)
	if !ok {
		return nil, false, nil
	}
	if d == nil || d.DataType == types.TypeItem {
		return v, true, nil
	}
	cast, err := item.Cast(v, d.DataType)
	if err != nil {
		return nil, false, err
	}
	return cast, true, nil
}

// IsRecursive reports whether d can reach itself through its model.
func (d *Definition) IsRecursive() bool {
	onStack := map[*Definition]bool{}
	done := map[*Definition]bool{}
	var visit func(*Definition) bool
	visit = func(def *Definition) bool {
		if onStack[def] {
			return true
		}
		if done[def] {
			return false
		}
		onStack[def] = true
		for _, m := range def.Model {
			if visit(m) {
				return true
			}
		}
		onStack[def] = false
		done[def] = true
		return false
	}
	return visit(d)
}

// Schema is a set of named top-level definitions.
type Schema struct {
	Root        string        `json:"root"`
	Definitions []*Definition `json:"definitions"`
}

// Resolve links every Ref to the named top-level definition and returns the
// root definition. References may form cycles.
func (s *Schema) Resolve() (*Definition, error) {
	byName := make(map[string]*Definition, len(s.Definitions))
	for _, d := range s.Definitions {
		byName[d.Name] = d
	}
	seen := map[*Definition]bool{}
	var resolve func(list []*Definition) error
	resolve = func(list []*Definition) error {
		for i, d := range list {
			if d.Ref != "" {
				target, ok := byName[d.Ref]
				if !ok {
					return fmt.Errorf("definition %q: unknown reference %q", d.Name, d.Ref)
				}
				list[i] = target
				continue
			}
			if seen[d] {
				continue
			}
			seen[d] = true
			if err := resolve(d.Flags); err != nil {
				return err
			}
			if err := resolve(d.Model); err != nil {
				return err
			}
		}
		return nil
	}
	if err := resolve(s.Definitions); err != nil {
		return nil, err
	}
	root, ok := byName[s.Root]
	if !ok {
		return nil, fmt.Errorf("unknown root definition %q", s.Root)
	}
	return root, nil
}

// kind returns the node type of d, defaulting to assembly.
func (d *Definition) kind() types.Type {
	switch d.Kind {
	case types.TypeFlag, types.TypeField, types.TypeAssembly:
		return d.Kind
	}
	return types.TypeAssembly
}

// defNode navigates a definition graph. Flags are the flag definitions and
// the model holds one node per model definition. Each definition maps to a
// single node, so recursive definitions produce a cyclic tree.
type defNode struct {
	def    *Definition
	parent *defNode
	tree   *defTree
	flags  cell[[]Node]
	model  cell[[]Group]
}

type defTree struct {
	cyclic bool
	mu     sync.Mutex
	nodes  map[*Definition]*defNode
}

func (t *defTree) node(def *Definition, parent *defNode) *defNode {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n, ok := t.nodes[def]; ok {
		return n
	}
	n := &defNode{def: def, parent: parent, tree: t}
	t.nodes[def] = n
	return n
}

// DefinitionTree returns a node over the definition graph rooted at def.
// Recursive definitions make the tree cyclic, which the node reports
// through [MayCycle].
func DefinitionTree(def *Definition) Node {
	t := &defTree{cyclic: def.IsRecursive(), nodes: map[*Definition]*defNode{}}
	return t.node(def, nil)
}

func (n *defNode) Type() types.Type        { return n.def.kind() }
func (n *defNode) Name() string            { return n.def.Name }
func (n *defNode) Definition() *Definition { return n.def }
func (n *defNode) MayCycle() bool          { return n.tree.cyclic }

func (n *defNode) Parent() Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *defNode) Value() (item.Atomic, bool) {
	if n.def.DataType == types.TypeItem {
		return nil, false
	}
	return item.String(n.def.DataType.String()), true
}

func (n *defNode) child(def *Definition) *defNode {
	return n.tree.node(def, n)
}

func (n *defNode) Flags() ([]Node, error) {
	return n.flags.get(func() ([]Node, error) {
		out := make([]Node, 0, len(n.def.Flags))
		for _, f := range n.def.Flags {
			out = append(out, n.child(f))
		}
		return out, nil
	})
}

func (n *defNode) Flag(name string) (Node, bool, error) {
	return flagByName(n, name)
}

func (n *defNode) ModelItems() ([]Group, error) {
	return n.model.get(func() ([]Group, error) {
		out := make([]Group, 0, len(n.def.Model))
		for _, m := range n.def.Model {
			out = append(out, Group{Name: m.Name, Items: []Node{n.child(m)}})
		}
		return out, nil
	})
}

func (n *defNode) ModelItemsByName(name string) ([]Node, error) {
	return modelByName(n, name)
}

func flagByName(n Node, name string) (Node, bool, error) {
	flags, err := n.Flags()
	if err != nil {
		return nil, false, err
	}
	for _, f := range flags {
		if f.Name() == name {
			return f, true, nil
		}
	}
	return nil, false, nil
}

func modelByName(n Node, name string) ([]Node, error) {
	groups, err := n.ModelItems()
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		if g.Name == name {
			return g.Items, nil
		}
	}
	return nil, nil
}
