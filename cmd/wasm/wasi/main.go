//go:build wasip1

// Command metapath-wasi evaluates one Metapath expression per invocation
// under the WebAssembly System Interface.
//
// Protocol: a single JSON object on stdin, a single JSON object on stdout.
//
//	stdin:  { "expression": "<metapath>", "data": <any JSON value> }
//	stdout: { "result": [ ... ] }                 on success
//	        { "error": "<message>", "code": "..." } on failure (exit code 1)
//
// Build:
//
//	GOOS=wasip1 GOARCH=wasm go build -o metapath.wasm ./cmd/wasm/wasi/
//
// Usage with the wasmtime CLI:
//
//	echo '{"expression":"count(//item)","data":{"item":[1,2]}}' | wasmtime metapath.wasm
package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/sandrolain/gometapath"
	"github.com/sandrolain/gometapath/pkg/evaluator"
	"github.com/sandrolain/gometapath/pkg/types"
)

type request struct {
	Expression string `json:"expression"`
	Data       any    `json:"data"`
}

type response struct {
	Result []any  `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
	Code   string `json:"code,omitempty"`
}

func writeResponse(r response, exitCode int) {
	_ = json.NewEncoder(os.Stdout).Encode(r)
	os.Exit(exitCode)
}

func fail(err error) {
	r := response{Error: err.Error()}
	var te *types.Error
	if errors.As(err, &te) {
		r.Code = string(te.Code)
	}
	writeResponse(r, 1)
}

func main() {
	var req request
	dec := json.NewDecoder(os.Stdin)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeResponse(response{Error: "invalid request JSON: " + err.Error()}, 1)
	}

	seq, err := gometapath.EvalWithContext(context.Background(), req.Expression, req.Data,
		evaluator.WithConcurrency(false),
	)
	if err != nil {
		fail(err)
	}
	result, err := gometapath.ToJSON(seq)
	if err != nil {
		fail(err)
	}
	writeResponse(response{Result: result}, 0)
}
