//go:build (js && wasm) || wasip1

package evaluator

// WebAssembly hosts run goroutines on a single thread, so EvalMany
// evaluates sequentially there by default.
func init() {
	defaultConcurrency = false
}
