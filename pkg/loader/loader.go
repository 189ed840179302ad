// Package loader loads documents by URI for the doc() function and the
// command line tools.
//
// A [Loader] reads local files and http(s) resources, decodes JSON, YAML
// and Ion content (optionally zstd compressed) and caches the resulting
// documents by absolute URI. Concurrent loads of one URI share a single
// fetch, and every caller observes the same cached document.
//
// By default a Loader reads any file and any http(s) URL. [WithSchemes]
// and [WithRoot] confine it when URIs come from untrusted callers.
//
// Documents may import other documents through an "import" member listing
// hrefs, resolved against the importing document's URI. A document that
// transitively imports itself fails with a cycle error.
package loader

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sandrolain/gometapath/pkg/node"
	"github.com/sandrolain/gometapath/pkg/types"
)

// DefaultMaxBytes bounds the size of a single document.
const DefaultMaxBytes = 64 << 20

// DefaultTimeout bounds a single fetch.
const DefaultTimeout = 30 * time.Second

// DefaultImportKey is the member listing the documents a document imports.
const DefaultImportKey = "import"

// Loader loads and caches documents. It is safe for concurrent use.
type Loader struct {
	client    *http.Client
	logger    *slog.Logger
	format    Format
	def       *node.Definition
	importKey string
	maxBytes  int64
	schemes   map[string]bool // nil allows every scheme
	root      string
	timeout   time.Duration

	docs    sync.Map // uri -> *node.Document
	content sync.Map // uri -> decoded content
	group   singleflight.Group
}

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPClient sets the client used for http and https URIs.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) {
		l.client = c
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithFormat forces the format of every document instead of detecting it.
func WithFormat(f Format) Option {
	return func(l *Loader) {
		l.format = f
	}
}

// WithDefinition shapes every loaded document with def.
func WithDefinition(def *node.Definition) Option {
	return func(l *Loader) {
		l.def = def
	}
}

// WithImportKey changes the member that lists imports. An empty key
// disables imports.
func WithImportKey(key string) Option {
	return func(l *Loader) {
		l.importKey = key
	}
}

// WithMaxBytes bounds document size. Zero removes the bound.
func WithMaxBytes(n int64) Option {
	return func(l *Loader) {
		l.maxBytes = n
	}
}

// WithTimeout bounds a single fetch. A fetch is shared by every caller
// waiting on the same URI, so it is not canceled when one caller gives up.
// Zero removes the bound. Defaults to DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) {
		l.timeout = d
	}
}

// WithSchemes limits loading to the given URI schemes: "file", "http" and
// "https". Plain paths count as "file". With no schemes nothing can be
// loaded.
func WithSchemes(schemes ...string) Option {
	return func(l *Loader) {
		l.schemes = make(map[string]bool, len(schemes))
		for _, s := range schemes {
			l.schemes[strings.ToLower(s)] = true
		}
	}
}

// WithRoot confines file access to the directory tree at dir. Relative
// paths are resolved from dir, and symlinks may not leave it.
func WithRoot(dir string) Option {
	return func(l *Loader) {
		l.root = dir
	}
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		client:    &http.Client{Timeout: 30 * time.Second},
		importKey: DefaultImportKey,
		maxBytes:  DefaultMaxBytes,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.root != "" {
		if abs, err := filepath.Abs(l.root); err == nil {
			l.root = abs
		}
	}
	return l
}

type chainKey struct{}

// importChain returns the URIs of the documents being loaded on behalf of
// ctx, outermost first.
func importChain(ctx context.Context) []string {
	chain, _ := ctx.Value(chainKey{}).([]string)
	return chain
}

func withImport(ctx context.Context, uri string) context.Context {
	chain := importChain(ctx)
	next := make([]string, len(chain), len(chain)+1)
	copy(next, chain)
	return context.WithValue(ctx, chainKey{}, append(next, uri))
}

// Load returns the document at uri, loading it and its imports on first
// use. Failed loads are not cached.
func (l *Loader) Load(ctx context.Context, uri string) (*node.Document, error) {
	chain := importChain(ctx)
	for i, u := range chain {
		if u == uri {
			cycle := append(append([]string(nil), chain[i:]...), uri)
			return nil, types.Errorf(types.ErrImportCycle, "document import cycle: %s", strings.Join(cycle, " -> "))
		}
	}
	if doc, ok := l.docs.Load(uri); ok {
		return doc.(*node.Document), nil
	}

	data, err := l.decoded(ctx, uri)
	if err != nil {
		return nil, err
	}

	doc := node.NewDocument(uri, data, l.documentOptions()...)
	hrefs, err := l.importsOf(doc)
	if err != nil {
		return nil, types.Errorf(types.ErrDocumentLoad, "cannot read imports of %s", uri).WithCause(err)
	}
	if len(hrefs) > 0 {
		ictx := withImport(ctx, uri)
		imports := make([]*node.Document, 0, len(hrefs))
		for _, h := range hrefs {
			abs, err := resolve(uri, h)
			if err != nil {
				return nil, err
			}
			imp, err := l.Load(ictx, abs)
			if err != nil {
				return nil, err
			}
			imports = append(imports, imp)
		}
		opts := append(l.documentOptions(), node.WithImports(imports...))
		doc = node.NewDocument(uri, data, opts...)
	}

	actual, _ := l.docs.LoadOrStore(uri, doc)
	return actual.(*node.Document), nil
}

// Forget drops uri from the cache.
func (l *Loader) Forget(uri string) {
	l.docs.Delete(uri)
	l.content.Delete(uri)
}

func (l *Loader) documentOptions() []node.DocumentOption {
	if l.def == nil {
		return nil
	}
	return []node.DocumentOption{node.WithDefinition(l.def)}
}

// decoded returns the decoded content at uri. At most one fetch per URI
// is in flight. The fetch outlives callers that stop waiting for it.
func (l *Loader) decoded(ctx context.Context, uri string) (any, error) {
	if v, ok := l.content.Load(uri); ok {
		return v, nil
	}
	ch := l.group.DoChan(uri, func() (any, error) {
		if v, ok := l.content.Load(uri); ok {
			return v, nil
		}
		fctx := context.WithoutCancel(ctx)
		if l.timeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(fctx, l.timeout)
			defer cancel()
		}
		v, err := l.read(fctx, uri)
		if err != nil {
			l.logger.Warn("document load failed", "uri", uri, "error", err)
			return nil, types.Errorf(types.ErrDocumentLoad, "cannot load %s", uri).WithCause(err)
		}
		l.content.Store(uri, v)
		return v, nil
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, types.Errorf(types.ErrDocumentLoad, "cannot load %s", uri).WithCause(ctx.Err())
	}
}

func (l *Loader) read(ctx context.Context, uri string) (any, error) {
	start := time.Now()
	raw, contentType, err := l.fetch(ctx, uri)
	if err != nil {
		return nil, err
	}
	data, err := decompress(raw)
	if err != nil {
		return nil, err
	}
	format := l.format
	if format == FormatAuto {
		format = detect(uri, contentType, data)
	}
	v, err := decode(format, data)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("document loaded",
		"uri", uri,
		"format", string(format),
		"bytes", len(raw),
		"duration", time.Since(start))
	return v, nil
}

// importsOf lists the hrefs imported by doc. Each import is either a
// field holding the href or an assembly with an href flag.
func (l *Loader) importsOf(doc *node.Document) ([]string, error) {
	if l.importKey == "" {
		return nil, nil
	}
	items, err := doc.Root().ModelItemsByName(l.importKey)
	if err != nil {
		return nil, err
	}
	var hrefs []string
	for _, it := range items {
		if v, ok := it.Value(); ok {
			hrefs = append(hrefs, v.String())
			continue
		}
		f, ok, err := it.Flag("href")
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if v, ok := f.Value(); ok {
			hrefs = append(hrefs, v.String())
		}
	}
	return hrefs, nil
}

func resolve(base, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", types.Errorf(types.ErrDocumentLoad, "invalid import %q in %s", href, base).WithCause(err)
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", types.Errorf(types.ErrDocumentLoad, "invalid document URI %q", base).WithCause(err)
	}
	return b.ResolveReference(ref).String(), nil
}

// LoadSchema loads a schema document and resolves its root definition.
// Schemas use the same formats as documents.
func (l *Loader) LoadSchema(ctx context.Context, uri string) (*node.Definition, error) {
	data, err := l.decoded(ctx, uri)
	if err != nil {
		return nil, err
	}
	js, err := json.Marshal(data)
	if err != nil {
		return nil, types.Errorf(types.ErrDocumentLoad, "schema %s", uri).WithCause(err)
	}
	var s node.Schema
	if err := json.Unmarshal(js, &s); err != nil {
		return nil, types.Errorf(types.ErrDocumentLoad, "schema %s", uri).WithCause(err)
	}
	def, err := s.Resolve()
	if err != nil {
		return nil, types.Errorf(types.ErrDocumentLoad, "schema %s", uri).WithCause(err)
	}
	return def, nil
}
