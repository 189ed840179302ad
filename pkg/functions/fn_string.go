package functions

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/sequence"
	"github.com/sandrolain/gometapath/pkg/types"
)

func stringFunctions() []*Function {
	return []*Function{
		{Name: "string", MinArgs: 0, MaxArgs: 1, ReturnType: types.TypeString, Impl: fnString},
		{Name: "string-length", MinArgs: 0, MaxArgs: 1, ReturnType: types.TypeInteger, Impl: fnStringLength},
		{Name: "concat", MinArgs: 2, MaxArgs: -1, ReturnType: types.TypeString, Impl: fnConcat},
		{Name: "starts-with", MinArgs: 2, MaxArgs: 2, ReturnType: types.TypeBoolean, Impl: stringPredicate(strings.HasPrefix)},
		{Name: "ends-with", MinArgs: 2, MaxArgs: 2, ReturnType: types.TypeBoolean, Impl: stringPredicate(strings.HasSuffix)},
		{Name: "contains", MinArgs: 2, MaxArgs: 2, ReturnType: types.TypeBoolean, Impl: stringPredicate(strings.Contains)},
		{Name: "upper-case", MinArgs: 1, MaxArgs: 1, ReturnType: types.TypeString, Impl: stringMap(strings.ToUpper)},
		{Name: "lower-case", MinArgs: 1, MaxArgs: 1, ReturnType: types.TypeString, Impl: stringMap(strings.ToLower)},
		{Name: "normalize-space", MinArgs: 0, MaxArgs: 1, ReturnType: types.TypeString, Impl: stringMap(normalizeSpace)},
	}
}

// singleString returns the string value of the first argument or of the
// context item. Nodes without a value yield "".
func singleString(env Env, args []*sequence.Sequence) (string, error) {
	seq, err := argOrFocus(env, args)
	if err != nil {
		return "", err
	}
	list, err := seq.List()
	if err != nil {
		return "", err
	}
	switch len(list) {
	case 0:
		return "", nil
	case 1:
		return stringValue(list[0]), nil
	}
	return "", types.Errorf(types.ErrNotASingleton, "expected at most one item, got %d", len(list))
}

func fnString(_ context.Context, env Env, args []*sequence.Sequence) (*sequence.Sequence, error) {
	s, err := singleString(env, args)
	if err != nil {
		return nil, err
	}
	return sequence.Of(item.String(s)), nil
}

func fnStringLength(_ context.Context, env Env, args []*sequence.Sequence) (*sequence.Sequence, error) {
	s, err := singleString(env, args)
	if err != nil {
		return nil, err
	}
	return sequence.Of(item.NewInteger(int64(utf8.RuneCountInString(s)))), nil
}

func fnConcat(_ context.Context, _ Env, args []*sequence.Sequence) (*sequence.Sequence, error) {
	var b strings.Builder
	for _, arg := range args {
		s, err := StringArg(arg)
		if err != nil {
			return nil, err
		}
		b.WriteString(s)
	}
	return sequence.Of(item.String(b.String())), nil
}

func stringPredicate(fn func(s, sub string) bool) Impl {
	return func(_ context.Context, _ Env, args []*sequence.Sequence) (*sequence.Sequence, error) {
		s, err := StringArg(args[0])
		if err != nil {
			return nil, err
		}
		sub, err := StringArg(args[1])
		if err != nil {
			return nil, err
		}
		return sequence.Of(item.Boolean(fn(s, sub))), nil
	}
}

func stringMap(fn func(string) string) Impl {
	return func(_ context.Context, env Env, args []*sequence.Sequence) (*sequence.Sequence, error) {
		s, err := singleString(env, args)
		if err != nil {
			return nil, err
		}
		return sequence.Of(item.String(fn(s))), nil
	}
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
