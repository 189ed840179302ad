package parser

import (
	"strings"
)

// NodeKind identifies the kind of a concrete syntax tree node.
type NodeKind uint8

const (
	NodeString         NodeKind = iota + 1 // "text"
	NodeInteger                            // 42
	NodeDecimal                            // 4.2
	NodeContextItem                        // .
	NodeName                               // item
	NodeWildcard                           // *
	NodeFlag                               // @id, @*
	NodeVariable                           // $x
	NodeEmptySequence                      // ()
	NodeParen                              // ( expr )
	NodeSequence                           // a, b, c
	NodeBinary                             // left op right
	NodeUnary                              // -expr, +expr
	NodeFunctionCall                       // name(args)
	NodeFilter                             // base[predicate]
	NodeRoot                               // /
	NodeRootPath                           // /expr
	NodeRootDescendant                     // //expr
	NodePath                               // left/right, left//right
	NodeLet                                // let $x := bound return body
)

func (k NodeKind) String() string {
	switch k {
	case NodeString:
		return "string"
	case NodeInteger:
		return "integer"
	case NodeDecimal:
		return "decimal"
	case NodeContextItem:
		return "context"
	case NodeName:
		return "name"
	case NodeWildcard:
		return "wildcard"
	case NodeFlag:
		return "flag"
	case NodeVariable:
		return "variable"
	case NodeEmptySequence:
		return "empty"
	case NodeParen:
		return "paren"
	case NodeSequence:
		return "sequence"
	case NodeBinary:
		return "binary"
	case NodeUnary:
		return "unary"
	case NodeFunctionCall:
		return "function"
	case NodeFilter:
		return "filter"
	case NodeRoot:
		return "root"
	case NodeRootPath:
		return "root-path"
	case NodeRootDescendant:
		return "root-descendant"
	case NodePath:
		return "path"
	case NodeLet:
		return "let"
	default:
		return "(unknown)"
	}
}

// Node is a node of the concrete syntax tree.
//
// Value holds the literal text of literals, the name of names, variables,
// flags, functions and lets, and the operator text of binary, unary and
// path nodes ("/" or "//"). Binary operator keywords are lower case.
type Node struct {
	Kind     NodeKind
	Value    string
	Position int
	Children []*Node
}

// String renders n as an s-expression, for example (binary + (integer 1) (integer 2)).
func (n *Node) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *Node) write(b *strings.Builder) {
	b.WriteByte('(')
	b.WriteString(n.Kind.String())
	if n.Value != "" {
		b.WriteByte(' ')
		b.WriteString(n.Value)
	}
	for _, c := range n.Children {
		b.WriteByte(' ')
		c.write(b)
	}
	b.WriteByte(')')
}

// Tree is a parsed expression.
type Tree struct {
	Root   *Node
	Source string
	// arena keeps the node chunks alive for as long as the tree is reachable.
	arena *NodeArena
}

// arenaChunkSize is the number of Node values pre-allocated per arena chunk.
const arenaChunkSize = 64

// NodeArena is a bump-pointer allocator for Node values.
//
// Instead of allocating each node individually on the heap, the arena
// pre-allocates fixed-size chunks and returns pointers into them. A typical
// expression fits in a single chunk.
//
// The arena must stay alive as long as any pointer returned by Alloc is
// reachable; Tree holds on to it. NodeArena is not safe for concurrent use.
type NodeArena struct {
	chunks [][]Node
	pos    int // next free index in the last chunk
}

// NewNodeArena allocates an arena pre-warmed with one initial chunk.
func NewNodeArena() *NodeArena {
	return &NodeArena{
		chunks: [][]Node{make([]Node, arenaChunkSize)},
	}
}

// Alloc returns a pointer to a zero-valued Node inside the arena with Kind
// and Position set.
func (a *NodeArena) Alloc(kind NodeKind, position int) *Node {
	if a.pos >= arenaChunkSize {
		a.chunks = append(a.chunks, make([]Node, arenaChunkSize))
		a.pos = 0
	}
	n := &a.chunks[len(a.chunks)-1][a.pos]
	a.pos++
	n.Kind = kind
	n.Position = position
	return n
}

// Len returns the number of nodes allocated so far.
func (a *NodeArena) Len() int {
	return (len(a.chunks)-1)*arenaChunkSize + a.pos
}
