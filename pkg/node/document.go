package node

import (
	"github.com/sandrolain/gometapath/pkg/types"
)

// DefaultRootName names the root assembly of a schemaless document whose
// top-level value does not identify it.
const DefaultRootName = "root"

// Document is a loaded resource: a base URI and a tree whose document node
// holds a single root assembly.
type Document struct {
	uri     string
	node    *Instance
	imports []*Document
}

// DocumentOption configures NewDocument.
type DocumentOption func(*documentOptions)

type documentOptions struct {
	def      *Definition
	rootName string
	imports  []*Document
}

// WithDefinition shapes the document by the root assembly definition def.
func WithDefinition(def *Definition) DocumentOption {
	return func(o *documentOptions) {
		o.def = def
	}
}

// WithRootName sets the root assembly name of a schemaless document.
func WithRootName(name string) DocumentOption {
	return func(o *documentOptions) {
		o.rootName = name
	}
}

// WithImports records the documents imported by this one.
func WithImports(docs ...*Document) DocumentOption {
	return func(o *documentOptions) {
		o.imports = append(o.imports, docs...)
	}
}

// NewDocument wraps decoded data.
//
// A top-level object with a single member is unwrapped, so {"catalog": {...}}
// yields a root assembly named catalog. With a definition the member must
// match the definition name to be unwrapped.
func NewDocument(uri string, data any, opts ...DocumentOption) *Document {
	var o documentOptions
	for _, opt := range opts {
		opt(&o)
	}

	name, raw := o.rootName, data
	if m, ok := data.(map[string]any); ok && len(m) == 1 {
		for k, v := range m {
			if _, inner := v.(map[string]any); inner && (o.def == nil || o.def.Name == k) {
				name, raw = k, v
			}
		}
	}
	if o.def != nil {
		name = o.def.Name
	}
	if name == "" {
		name = DefaultRootName
	}

	doc := &Instance{kind: types.TypeDocument, uri: uri}
	root := &Instance{kind: types.TypeAssembly, name: name, def: o.def, parent: doc, raw: raw}
	doc.raw = root
	return &Document{uri: uri, node: doc, imports: o.imports}
}

// BaseURI returns the URI the document was loaded from.
func (d *Document) BaseURI() string { return d.uri }

// Node returns the document node.
func (d *Document) Node() Node { return d.node }

// Root returns the root assembly.
func (d *Document) Root() Node { return d.node.raw.(*Instance) }

// Imports returns the documents imported by d.
func (d *Document) Imports() []*Document { return d.imports }

// BaseURI returns the URI of the document containing n, or "" when n does
// not belong to a loaded document.
func BaseURI(n Node) string {
	if inst, ok := Root(n).(*Instance); ok {
		return inst.uri
	}
	return ""
}
