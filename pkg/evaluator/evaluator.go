// Package evaluator implements the Metapath expression evaluation engine.
//
// The evaluator receives a compiled [ast.Expression] and evaluates it
// against a focus item, usually a document node. It supports:
//   - Path navigation over flag and model children, including recursive
//     descendant search
//   - Positional and boolean predicates
//   - General and value comparison, arithmetic, let bindings
//   - Calls into the function registry
//   - Timeout, cancellation and resource limits via context.Context
//
// # Example
//
//	ev := evaluator.New()
//	result, err := ev.Eval(ctx, expr, doc.Node())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Concurrency
//
// An Evaluator is safe for concurrent use. Each evaluation gets its own
// [DynamicContext]; EvalMany evaluates independent expressions in parallel.
//
//	results, err := ev.EvalMany(ctx, exprs, doc.Node())
package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sandrolain/gometapath/pkg/ast"
	"github.com/sandrolain/gometapath/pkg/cache"
	"github.com/sandrolain/gometapath/pkg/functions"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/sequence"
)

// Evaluator evaluates Metapath expressions.
type Evaluator struct {
	opts   EvalOptions
	logger *slog.Logger
	cache  *cache.Cache // non-nil when Caching is enabled
}

// EvalOptions configures evaluator behavior.
type EvalOptions struct {
	// Caching enables expression compilation caching in EvaluateQuery.
	// The default cache holds up to 256 entries with LRU eviction.
	Caching bool
	// CacheSize sets the maximum number of cached expressions.
	// Only used when Caching is true and no explicit Cache is provided.
	CacheSize int
	// Cache is a custom expression cache. If non-nil, Caching is implicitly enabled.
	Cache *cache.Cache
	// Concurrency enables parallel evaluation in EvalMany.
	Concurrency bool
	// MaxDepth limits the nesting of sub-expression evaluation.
	MaxDepth int
	// MaxDescendantNodes limits the number of nodes a single recursive
	// descendant search may visit. Zero disables the limit.
	MaxDescendantNodes int
	// Timeout sets evaluation timeout.
	Timeout time.Duration
	// Debug enables per-node debug logging.
	Debug bool
	// Logger for structured logging.
	Logger *slog.Logger
	// Registry resolves function calls of expressions compiled by
	// EvaluateQuery. Defaults to the built-in registry.
	Registry *functions.Registry
}

// defaultConcurrency controls the default value of EvalOptions.Concurrency.
// It is false on WebAssembly targets, see evaluator_wasm.go.
var defaultConcurrency = true

// Defaults applied by New.
const (
	DefaultMaxDepth           = 10000
	DefaultMaxDescendantNodes = 1_000_000
	DefaultTimeout            = 30 * time.Second
)

// New creates a new Evaluator with default options.
func New(opts ...EvalOption) *Evaluator {
	options := EvalOptions{
		Concurrency:        defaultConcurrency,
		MaxDepth:           DefaultMaxDepth,
		MaxDescendantNodes: DefaultMaxDescendantNodes,
		Timeout:            DefaultTimeout,
	}

	for _, opt := range opts {
		opt(&options)
	}

	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Registry == nil {
		options.Registry = functions.Default()
	}

	var c *cache.Cache
	if options.Cache != nil {
		c = options.Cache
	} else if options.Caching {
		c = cache.New(options.CacheSize)
	}

	return &Evaluator{
		opts:   options,
		logger: options.Logger,
		cache:  c,
	}
}

// Cache returns the expression cache, or nil if caching is disabled.
func (e *Evaluator) Cache() *cache.Cache {
	return e.cache
}

// Options returns the effective options.
func (e *Evaluator) Options() EvalOptions {
	return e.opts
}

// Compile compiles query against the evaluator's registry, through the
// cache when caching is enabled.
func (e *Evaluator) Compile(query string) (*ast.Expression, error) {
	compile := func() (*ast.Expression, error) {
		return ast.Compile(query, ast.WithRegistry(e.opts.Registry))
	}
	if e.cache == nil {
		return compile()
	}
	return e.cache.GetOrCompile(query, compile)
}

// Eval evaluates expr with focus as the context item. A nil focus leaves
// the context item absent. The result is fully materialized.
func (e *Evaluator) Eval(ctx context.Context, expr *ast.Expression, focus item.Item, opts ...DynamicOption) (*sequence.Sequence, error) {
	return e.EvalWithContext(ctx, expr, focus, NewDynamicContext(opts...))
}

// EvalWithContext is like Eval with an explicit dynamic context. The
// dynamic context must not be shared by concurrent evaluations.
func (e *Evaluator) EvalWithContext(ctx context.Context, expr *ast.Expression, focus item.Item, dc *DynamicContext) (*sequence.Sequence, error) {
	if expr == nil || expr.Root() == nil {
		return nil, fmt.Errorf("invalid expression")
	}

	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	in := &interpreter{
		ev:     e,
		ctx:    ctx,
		dc:     dc,
		source: expr.Source(),
		logger: e.logger.With("eval_id", dc.ID().String()),
	}
	if e.opts.Debug {
		in.logger.Debug("evaluation started", "expr", expr.Source())
	}

	result, err := in.eval(expr.Root(), focus)
	if err != nil {
		return nil, err
	}
	items, err := result.List()
	if err != nil {
		return nil, err
	}
	return sequence.FromList(items), nil
}

// EvaluateQuery compiles and evaluates query in one step.
func (e *Evaluator) EvaluateQuery(ctx context.Context, query string, focus item.Item, opts ...DynamicOption) (*sequence.Sequence, error) {
	expr, err := e.Compile(query)
	if err != nil {
		return nil, err
	}
	return e.Eval(ctx, expr, focus, opts...)
}

// EvalMany evaluates independent expressions against the same focus. With
// Concurrency enabled they run in parallel; the first error cancels the
// remaining evaluations. Each expression gets its own dynamic context
// built from opts.
func (e *Evaluator) EvalMany(ctx context.Context, exprs []*ast.Expression, focus item.Item, opts ...DynamicOption) ([]*sequence.Sequence, error) {
	results := make([]*sequence.Sequence, len(exprs))
	if !e.opts.Concurrency {
		for i, expr := range exprs {
			r, err := e.Eval(ctx, expr, focus, opts...)
			if err != nil {
				return nil, err
			}
			results[i] = r
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, expr := range exprs {
		g.Go(func() error {
			r, err := e.Eval(gctx, expr, focus, opts...)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// EvalOption configures evaluation behavior.
type EvalOption func(*EvalOptions)

// WithCaching enables or disables expression compilation caching.
// When enabled, a default LRU cache of 256 entries is created.
// To control the cache size use WithCacheSize; to supply your own cache use WithCache.
func WithCaching(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Caching = enabled
	}
}

// WithCacheSize sets the maximum number of cached expressions.
// Only effective when combined with WithCaching(true).
func WithCacheSize(size int) EvalOption {
	return func(opts *EvalOptions) {
		opts.CacheSize = size
	}
}

// WithCache attaches an external expression cache.
// The evaluator will use this cache regardless of the Caching flag.
func WithCache(c *cache.Cache) EvalOption {
	return func(opts *EvalOptions) {
		opts.Cache = c
	}
}

// WithConcurrency enables or disables parallel evaluation in EvalMany.
func WithConcurrency(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Concurrency = enabled
	}
}

// WithTimeout sets the evaluation timeout. Zero disables it.
func WithTimeout(timeout time.Duration) EvalOption {
	return func(opts *EvalOptions) {
		opts.Timeout = timeout
	}
}

// WithDebug enables or disables debug logging.
func WithDebug(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Debug = enabled
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) EvalOption {
	return func(opts *EvalOptions) {
		opts.Logger = logger
	}
}

// WithMaxDepth sets the maximum evaluation depth.
func WithMaxDepth(depth int) EvalOption {
	return func(opts *EvalOptions) {
		opts.MaxDepth = depth
	}
}

// WithMaxDescendantNodes caps the nodes visited by one '//' search.
func WithMaxDescendantNodes(n int) EvalOption {
	return func(opts *EvalOptions) {
		opts.MaxDescendantNodes = n
	}
}

// WithRegistry sets the function registry used by Compile and
// EvaluateQuery.
func WithRegistry(r *functions.Registry) EvalOption {
	return func(opts *EvalOptions) {
		opts.Registry = r
	}
}
