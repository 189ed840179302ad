package gometapath_test

import (
	"context"
	"testing"
	"time"

	"github.com/sandrolain/gometapath"
)

var fuzzData = map[string]any{
	"catalog": map[string]any{
		"id": "c1",
		"item": []any{
			map[string]any{"sku": "a", "price": 10},
			map[string]any{"sku": "b", "price": 200},
		},
	},
}

func FuzzEval(f *testing.F) {
	seeds := []string{
		`/catalog/@id`,
		`//item[@price > 100]/@sku`,
		`sum(//@price)`,
		`count(//*)`,
		`string(//item[1]/@sku)`,
		`1 div 0`,
		`/missing/path`,
		`''`,
		``,
	}
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, input string) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		_, _ = gometapath.EvalWithContext(ctx, input, fuzzData)
	})
}
