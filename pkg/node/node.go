// Package node defines the navigable tree that Metapath expressions walk.
//
// A [Node] exposes zero or one atomic value, an ordered set of singly
// valued flag children, and an ordered set of multi valued model children
// grouped by name. Children are computed lazily and memoized.
//
// The package also provides [Instance], a Node implementation over decoded
// JSON, YAML or Ion data, optionally shaped by a [Definition].
package node

import (
	"strconv"
	"strings"

	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/types"
)

// Node is a node in the navigable tree.
type Node interface {
	item.Item
	// Name returns the effective name of the node.
	Name() string
	// Definition returns the definition the node was built from, or nil.
	Definition() *Definition
	// Parent returns the parent node, or nil for the root. It is only used
	// to render diagnostic paths.
	Parent() Node
	// Value returns the atomic payload of the node.
	Value() (item.Atomic, bool)
	// Flags returns the flag children in document order.
	Flags() ([]Node, error)
	// Flag returns the flag child with the given name.
	Flag(name string) (Node, bool, error)
	// ModelItems returns the model children grouped by name, in document order.
	ModelItems() ([]Group, error)
	// ModelItemsByName returns the model children with the given name.
	ModelItemsByName(name string) ([]Node, error)
}

// Group is the ordered list of model children sharing a name.
type Group struct {
	Name  string
	Items []Node
}

// MayCycle is implemented by trees that can reach a node from itself, such
// as trees built over recursive definitions.
type MayCycle interface {
	MayCycle() bool
}

// IsCyclic reports whether n's tree declares that it may contain cycles.
func IsCyclic(n Node) bool {
	c, ok := n.(MayCycle)
	return ok && c.MayCycle()
}

type positioner interface {
	Position() int
}

// Path renders the location of n, for example /catalog/group[2]/@id.
func Path(n Node) string {
	var parts []string
	for cur := n; cur != nil; cur = cur.Parent() {
		switch {
		case cur.Type() == types.TypeDocument:
		case cur.Type() == types.TypeFlag:
			parts = append(parts, "@"+cur.Name())
		default:
			seg := cur.Name()
			if p, ok := cur.(positioner); ok && p.Position() > 0 {
				seg += "[" + strconv.Itoa(p.Position()) + "]"
			}
			parts = append(parts, seg)
		}
	}
	if len(parts) == 0 {
		return "/"
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return "/" + strings.Join(parts, "/")
}

// Root returns the topmost ancestor of n.
func Root(n Node) Node {
	for {
		p := n.Parent()
		if p == nil {
			return n
		}
		n = p
	}
}
