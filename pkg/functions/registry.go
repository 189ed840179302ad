// Package functions provides the Metapath function registry and the
// built-in function library.
//
// Functions are resolved by name and argument count when an expression is
// compiled. A [Registry] is immutable once built; [Default] returns the
// process-wide registry holding the built-in library.
//
// # Example
//
//	greet := &functions.Function{
//	    Name: "greet", MinArgs: 1, MaxArgs: 1, ReturnType: types.TypeString,
//	    Impl: func(ctx context.Context, env functions.Env, args []*sequence.Sequence) (*sequence.Sequence, error) {
//	        s, err := functions.StringArg(args[0])
//	        if err != nil {
//	            return nil, err
//	        }
//	        return sequence.Of(item.String("Hello, " + s)), nil
//	    },
//	}
//	reg, err := functions.Default().With(greet)
package functions

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/exp/slices"

	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/node"
	"github.com/sandrolain/gometapath/pkg/sequence"
	"github.com/sandrolain/gometapath/pkg/types"
)

// Env is the dynamic environment visible to function bodies.
type Env interface {
	// Focus returns the context item, if any.
	Focus() (item.Item, bool)
	// Now returns the evaluation's current date-time snapshot.
	Now() time.Time
	// ImplicitTimezone returns the timezone used for values without one.
	ImplicitTimezone() *time.Location
	// BaseURI returns the static base URI used to resolve relative URIs.
	BaseURI() string
	// Document loads the document at uri through the evaluation's document cache.
	Document(ctx context.Context, uri string) (*node.Document, error)
}

// Impl is the implementation of a function. args holds one sequence per
// argument, in order.
type Impl func(ctx context.Context, env Env, args []*sequence.Sequence) (*sequence.Sequence, error)

// Function defines a callable function.
type Function struct {
	Name       string
	MinArgs    int
	MaxArgs    int // -1 for unlimited
	ReturnType types.Type
	Impl       Impl
}

// Accepts reports whether f can be called with arity arguments.
func (f *Function) Accepts(arity int) bool {
	return arity >= f.MinArgs && (f.MaxArgs < 0 || arity <= f.MaxArgs)
}

func (f *Function) String() string {
	switch {
	case f.MaxArgs < 0:
		return fmt.Sprintf("%s#%d+", f.Name, f.MinArgs)
	case f.MinArgs == f.MaxArgs:
		return fmt.Sprintf("%s#%d", f.Name, f.MinArgs)
	default:
		return fmt.Sprintf("%s#%d-%d", f.Name, f.MinArgs, f.MaxArgs)
	}
}

// Registry maps function names and arities to definitions. One name may
// have several definitions as long as their arity ranges do not overlap.
// It is safe for concurrent use because it is never modified after
// construction.
type Registry struct {
	byName map[string][]*Function // local name -> overloads
}

// NewRegistry builds a registry from fns. Two functions with the same name
// must not accept the same arity. An fn: or meta: prefix on a name is
// ignored.
func NewRegistry(fns ...*Function) (*Registry, error) {
	r := &Registry{byName: make(map[string][]*Function, len(fns))}
	for _, f := range fns {
		if err := r.add(f); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) add(f *Function) error {
	if f == nil || f.Name == "" || f.Impl == nil {
		return fmt.Errorf("functions: invalid function definition %v", f)
	}
	if f.MaxArgs >= 0 && f.MaxArgs < f.MinArgs {
		return fmt.Errorf("functions: %s: MaxArgs %d < MinArgs %d", f.Name, f.MaxArgs, f.MinArgs)
	}
	name := localName(f.Name)
	for _, g := range r.byName[name] {
		if overlaps(f, g) {
			return fmt.Errorf("functions: %s conflicts with %s", f, g)
		}
	}
	r.byName[name] = append(r.byName[name], f)
	return nil
}

func overlaps(a, b *Function) bool {
	below := func(x, y *Function) bool { return x.MaxArgs >= 0 && x.MaxArgs < y.MinArgs }
	return !below(a, b) && !below(b, a)
}

// With returns a new registry holding the functions of r and fns. A
// function in fns replaces the functions of r with the same name and an
// overlapping arity range.
func (r *Registry) With(fns ...*Function) (*Registry, error) {
	out := &Registry{byName: make(map[string][]*Function, len(r.byName))}
	for name, overloads := range r.byName {
		out.byName[name] = slices.Clone(overloads)
	}
	for _, f := range fns {
		if f != nil && f.Name != "" {
			name := localName(f.Name)
			kept := slices.DeleteFunc(out.byName[name], func(g *Function) bool { return overlaps(f, g) })
			if len(kept) == 0 {
				delete(out.byName, name)
			} else {
				out.byName[name] = kept
			}
		}
		if err := out.add(f); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Lookup returns the function called name that accepts arity arguments.
// An fn: or meta: prefix on name is ignored.
func (r *Registry) Lookup(name string, arity int) (*Function, bool) {
	for _, f := range r.byName[localName(name)] {
		if f.Accepts(arity) {
			return f, true
		}
	}
	return nil, false
}

// Functions returns the registered functions ordered by name, then by
// arity.
func (r *Registry) Functions() []*Function {
	var out []*Function
	for _, overloads := range r.byName {
		out = append(out, overloads...)
	}
	slices.SortFunc(out, func(a, b *Function) int {
		if c := strings.Compare(localName(a.Name), localName(b.Name)); c != 0 {
			return c
		}
		return a.MinArgs - b.MinArgs
	})
	return out
}

func localName(name string) string {
	for _, prefix := range []string{"fn:", "meta:"} {
		if strings.HasPrefix(name, prefix) {
			return name[len(prefix):]
		}
	}
	return name
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the registry of built-in functions.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		r, err := NewRegistry(builtins()...)
		if err != nil {
			panic(err)
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

func builtins() []*Function {
	var out []*Function
	out = append(out, booleanFunctions()...)
	out = append(out, sequenceFunctions()...)
	out = append(out, stringFunctions()...)
	out = append(out, numericFunctions()...)
	out = append(out, nodeFunctions()...)
	out = append(out, documentFunctions()...)
	out = append(out, datetimeFunctions()...)
	out = append(out, constructorFunctions()...)
	return out
}
