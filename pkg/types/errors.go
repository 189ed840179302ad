package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a Metapath error code.
type ErrorCode string

// Error codes. The prefix follows the XPath convention: ST static,
// TY type, DY dynamic, FO function/operator.
const (
	// Static (compile) errors
	ErrSyntax             ErrorCode = "MPST0003"
	ErrUnterminatedString ErrorCode = "MPST0004"
	ErrCommentNotClosed   ErrorCode = "MPST0005"
	ErrInvalidNumber      ErrorCode = "MPST0006"
	ErrUnboundVariable    ErrorCode = "MPST0008"
	ErrUnknownFunction    ErrorCode = "MPST0017"
	ErrNestingTooDeep     ErrorCode = "MPST0100"

	// Type errors
	ErrTypeMismatch  ErrorCode = "MPTY0004"
	ErrNotANode      ErrorCode = "MPTY0020"
	ErrNotASingleton ErrorCode = "FORG0003"
	ErrInvalidEBV    ErrorCode = "FORG0006"

	// Cast errors
	ErrInvalidCast ErrorCode = "FORG0001"

	// Dynamic errors
	ErrContextAbsent     ErrorCode = "MPDY0002"
	ErrDivisionByZero    ErrorCode = "FOAR0001"
	ErrNumericOverflow   ErrorCode = "FOAR0002"
	ErrDocumentLoad      ErrorCode = "FODC0002"
	ErrImportCycle       ErrorCode = "MPDY0050"
	ErrResourceLimit     ErrorCode = "MPDY0130"
	ErrSequenceConsumed  ErrorCode = "MPST0080"
	ErrInvalidArgument   ErrorCode = "FORG0007"
	ErrEvaluationTimeout ErrorCode = "MPDY0131"
)

// Error categories. Use errors.Is to test which category an *Error belongs to.
var (
	ErrCompile    = errors.New("compile error")
	ErrType       = errors.New("type error")
	ErrCast       = errors.New("cast error")
	ErrState      = errors.New("state error")
	ErrCycle      = errors.New("cycle error")
	ErrArithmetic = errors.New("arithmetic error")
	ErrDynamic    = errors.New("dynamic error")
)

var categories = map[ErrorCode]error{
	ErrSyntax:             ErrCompile,
	ErrUnterminatedString: ErrCompile,
	ErrCommentNotClosed:   ErrCompile,
	ErrInvalidNumber:      ErrCompile,
	ErrUnknownFunction:    ErrCompile,
	ErrNestingTooDeep:     ErrCompile,
	ErrTypeMismatch:       ErrType,
	ErrNotANode:           ErrType,
	ErrNotASingleton:      ErrType,
	ErrInvalidEBV:         ErrType,
	ErrInvalidCast:        ErrCast,
	ErrSequenceConsumed:   ErrState,
	ErrImportCycle:        ErrCycle,
	ErrDivisionByZero:     ErrArithmetic,
	ErrNumericOverflow:    ErrArithmetic,
}

// Category returns the category sentinel for the code. Codes without an
// explicit category are dynamic errors.
func (c ErrorCode) Category() error {
	if cat, ok := categories[c]; ok {
		return cat
	}
	return ErrDynamic
}

// Error represents a structured Metapath error.
type Error struct {
	Code     ErrorCode
	Message  string
	Position int
	Token    string
	// Expr is the source text of the expression, set for compile errors.
	Expr string
	Err  error
}

// NewError creates a new error. Use a negative position when the error is
// not tied to a location in the source text.
func NewError(code ErrorCode, message string, position int) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Position: position,
	}
}

// Errorf creates a new error without position information.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...), -1)
}

// Error implements the error interface.
func (e *Error) Error() string {
	var s string
	if e.Position >= 0 {
		s = fmt.Sprintf("%s at position %d: %s", e.Code, e.Position, e.Message)
	} else {
		s = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Expr != "" {
		s += fmt.Sprintf(" in %q", e.Expr)
	}
	return s
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the category of this error, or an *Error
// with the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return t.Code == e.Code
	}
	return target == e.Code.Category()
}

// Category returns the category sentinel of the error.
func (e *Error) Category() error {
	return e.Code.Category()
}

// WithToken adds token information to the error.
func (e *Error) WithToken(token string) *Error {
	e.Token = token
	return e
}

// WithExpr attaches the expression source text.
func (e *Error) WithExpr(expr string) *Error {
	e.Expr = expr
	return e
}

// WithCause wraps another error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
