package node

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/types"
)

// Instance is a node over decoded document data (maps, slices and scalars
// as produced by encoding/json, sigs.k8s.io/yaml or ion-go).
//
// With a definition, flags and model children appear in definition order
// and values are cast to the declared data types. Without one the mapping
// is schemaless: scalar members become flags, object members become
// assemblies, array members become groups, and members are ordered by name.
type Instance struct {
	kind     types.Type
	name     string
	def      *Definition
	parent   *Instance
	position int
	raw      any
	uri      string
	value    item.Atomic
	flags    cell[[]Node]
	model    cell[[]Group]
}

var _ Node = (*Instance)(nil)

func (n *Instance) Type() types.Type        { return n.kind }
func (n *Instance) Name() string            { return n.name }
func (n *Instance) Definition() *Definition { return n.def }

// Position returns the 1-based position of the node in its group, or 0 when
// it is the only member.
func (n *Instance) Position() int { return n.position }

func (n *Instance) Parent() Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *Instance) Value() (item.Atomic, bool) {
	return n.value, n.value != nil
}

// ChildrenComputed reports whether both child collections have been built.
func (n *Instance) ChildrenComputed() bool {
	return n.flags.computed() && n.model.computed()
}

func (n *Instance) Flags() ([]Node, error) {
	return n.flags.get(n.computeFlags)
}

func (n *Instance) Flag(name string) (Node, bool, error) {
	return flagByName(n, name)
}

func (n *Instance) ModelItems() ([]Group, error) {
	return n.model.get(n.computeModel)
}

func (n *Instance) ModelItemsByName(name string) ([]Node, error) {
	return modelByName(n, name)
}

func (n *Instance) String() string {
	return Path(n)
}

// members returns the object members of the raw value, if any.
func (n *Instance) members() (map[string]any, bool) {
	if n.kind == types.TypeFlag {
		return nil, false
	}
	m, ok := n.raw.(map[string]any)
	return m, ok
}

func (n *Instance) computeFlags() ([]Node, error) {
	m, ok := n.members()
	if !ok {
		return nil, nil
	}
	var out []Node
	if n.def != nil {
		for _, fd := range n.def.Flags {
			v, ok := m[fd.Name]
			if !ok || v == nil {
				continue
			}
			f, err := n.leaf(types.TypeFlag, fd.Name, fd, v, 0)
			if err != nil {
				return nil, err
			}
			out = append(out, f)
		}
		return out, nil
	}
	if n.kind == types.TypeField {
		return nil, nil
	}
	for _, k := range sortedKeys(m) {
		if _, scalar := item.FromGo(m[k]); !scalar || isContainer(m[k]) {
			continue
		}
		f, err := n.leaf(types.TypeFlag, k, nil, m[k], 0)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (n *Instance) computeModel() ([]Group, error) {
	if n.kind == types.TypeDocument {
		root, ok := n.raw.(*Instance)
		if !ok {
			return nil, nil
		}
		return []Group{{Name: root.name, Items: []Node{root}}}, nil
	}
	if n.kind != types.TypeAssembly {
		return nil, nil
	}
	m, ok := n.members()
	if !ok {
		return nil, nil
	}
	var out []Group
	if n.def != nil {
		for _, md := range n.def.Model {
			v, ok := m[md.Name]
			if !ok || v == nil {
				continue
			}
			g, err := n.group(md.Name, md, flatten(v))
			if err != nil {
				return nil, err
			}
			if len(g.Items) > 0 {
				out = append(out, g)
			}
		}
		return out, nil
	}
	for _, k := range sortedKeys(m) {
		if !isContainer(m[k]) {
			continue
		}
		g, err := n.group(k, nil, flatten(m[k]))
		if err != nil {
			return nil, err
		}
		if len(g.Items) > 0 {
			out = append(out, g)
		}
	}
	return out, nil
}

func (n *Instance) group(name string, def *Definition, values []any) (Group, error) {
	g := Group{Name: name, Items: make([]Node, 0, len(values))}
	for i, v := range values {
		pos := i + 1
		if len(values) == 1 {
			pos = 0
		}
		kind := types.TypeAssembly
		switch {
		case def != nil:
			kind = def.kind()
		case !isContainer(v):
			kind = types.TypeField
		}
		var child *Instance
		if kind == types.TypeAssembly {
			child = &Instance{kind: kind, name: name, def: def, parent: n, position: pos, raw: v}
		} else {
			var err error
			child, err = n.leaf(kind, name, def, v, pos)
			if err != nil {
				return Group{}, err
			}
		}
		g.Items = append(g.Items, child)
	}
	return g, nil
}

// leaf builds a flag or field node and converts its value eagerly.
func (n *Instance) leaf(kind types.Type, name string, def *Definition, raw any, pos int) (*Instance, error) {
	child := &Instance{kind: kind, name: name, def: def, parent: n, position: pos, raw: raw}
	valueRaw := raw
	if m, ok := raw.(map[string]any); ok && kind == types.TypeField {
		key := DefaultValueKey
		if def != nil {
			key = def.valueKey()
		}
		valueRaw = m[key]
	}
	v, ok, err := def.convert(valueRaw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", Path(child), err)
	}
	if ok {
		child.value = v
	}
	return child, nil
}

func isContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

// flatten returns the members of a group value. Nested arrays are spliced
// in place and nulls are dropped.
func flatten(v any) []any {
	arr, ok := v.([]any)
	if !ok {
		if v == nil {
			return nil
		}
		return []any{v}
	}
	out := make([]any, 0, len(arr))
	for _, e := range arr {
		out = append(out, flatten(e)...)
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}
