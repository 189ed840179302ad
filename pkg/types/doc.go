// Package types defines the core type system for gometapath.
//
// This package contains type definitions for:
//   - Type: the static item type lattice used for result type inference
//   - Error: structured errors with codes and categories
package types
