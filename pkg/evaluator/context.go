package evaluator

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/sandrolain/gometapath/pkg/node"
	"github.com/sandrolain/gometapath/pkg/sequence"
	"github.com/sandrolain/gometapath/pkg/types"
)

// DocumentLoader loads documents by absolute URI. Implementations must be
// safe for concurrent use and load each URI at most once; package loader
// provides one.
type DocumentLoader interface {
	Load(ctx context.Context, uri string) (*node.Document, error)
}

// DynamicContext is the per-evaluation state: the evaluation time, the
// implicit timezone, variable bindings and access to documents.
//
// A DynamicContext is used by one evaluation at a time. Its loader may be
// shared.
type DynamicContext struct {
	id      uuid.UUID
	now     time.Time
	tz      *time.Location
	baseURI string
	loader  DocumentLoader
	vars    map[string]*sequence.Sequence
}

// DynamicOption configures a DynamicContext.
type DynamicOption func(*DynamicContext)

// NewDynamicContext creates a dynamic context. The current time is taken
// once, so every call to current-dateTime() in one evaluation agrees.
func NewDynamicContext(opts ...DynamicOption) *DynamicContext {
	dc := &DynamicContext{
		id:   uuid.New(),
		now:  time.Now(),
		tz:   time.UTC,
		vars: make(map[string]*sequence.Sequence),
	}
	for _, opt := range opts {
		opt(dc)
	}
	return dc
}

// WithNow fixes the evaluation time.
func WithNow(t time.Time) DynamicOption {
	return func(dc *DynamicContext) {
		dc.now = t
	}
}

// WithImplicitTimezone sets the timezone used for current-date and
// current-dateTime. Defaults to UTC.
func WithImplicitTimezone(loc *time.Location) DynamicOption {
	return func(dc *DynamicContext) {
		if loc != nil {
			dc.tz = loc
		}
	}
}

// WithDocuments sets the loader used by doc().
func WithDocuments(l DocumentLoader) DynamicOption {
	return func(dc *DynamicContext) {
		dc.loader = l
	}
}

// WithBaseURI sets the URI relative document references resolve against.
func WithBaseURI(uri string) DynamicOption {
	return func(dc *DynamicContext) {
		dc.baseURI = uri
	}
}

// WithVariable binds an external variable. A generator-backed value is
// materialized on binding, so one value may be bound in any number of
// evaluations, including concurrent ones.
func WithVariable(name string, value *sequence.Sequence) DynamicOption {
	return func(dc *DynamicContext) {
		if value == nil {
			value = sequence.Empty()
		}
		_, _ = value.List()
		dc.vars[name] = value
	}
}

// ID identifies the evaluation in log records.
func (dc *DynamicContext) ID() uuid.UUID { return dc.id }

func (dc *DynamicContext) Now() time.Time { return dc.now }

func (dc *DynamicContext) ImplicitTimezone() *time.Location { return dc.tz }

func (dc *DynamicContext) BaseURI() string { return dc.baseURI }

// Bind binds name to value and returns a function that restores the
// previous binding, or its absence.
func (dc *DynamicContext) Bind(name string, value *sequence.Sequence) (restore func()) {
	prev, had := dc.vars[name]
	dc.vars[name] = value
	return func() {
		if had {
			dc.vars[name] = prev
		} else {
			delete(dc.vars, name)
		}
	}
}

// Lookup returns the value bound to name.
func (dc *DynamicContext) Lookup(name string) (*sequence.Sequence, bool) {
	v, ok := dc.vars[name]
	return v, ok
}

// Resolve resolves uri against the base URI.
func (dc *DynamicContext) Resolve(uri string) (string, error) {
	ref, err := url.Parse(uri)
	if err != nil {
		return "", types.Errorf(types.ErrDocumentLoad, "invalid document URI %q", uri).WithCause(err)
	}
	if dc.baseURI == "" || ref.IsAbs() {
		return ref.String(), nil
	}
	base, err := url.Parse(dc.baseURI)
	if err != nil {
		return "", types.Errorf(types.ErrDocumentLoad, "invalid base URI %q", dc.baseURI).WithCause(err)
	}
	return base.ResolveReference(ref).String(), nil
}

// Document loads the document at uri, resolved against the base URI.
func (dc *DynamicContext) Document(ctx context.Context, uri string) (*node.Document, error) {
	if dc.loader == nil {
		return nil, types.Errorf(types.ErrDocumentLoad, "cannot load %s: no document loader configured", uri)
	}
	abs, err := dc.Resolve(uri)
	if err != nil {
		return nil, err
	}
	return dc.loader.Load(ctx, abs)
}
