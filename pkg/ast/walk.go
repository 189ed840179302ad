package ast

// Visitor is invoked for each node encountered by Walk. If the result
// visitor w is not nil, Walk visits each of the children of the node with
// w, followed by a call of w.Visit(nil).
type Visitor interface {
	Visit(Expr) Visitor
}

// Walk traverses e in depth-first order.
func Walk(v Visitor, e Expr) {
	w := v.Visit(e)
	if w == nil {
		return
	}
	for _, c := range e.Children() {
		Walk(w, c)
	}
	w.Visit(nil)
}

type inspector func(Expr) bool

func (f inspector) Visit(e Expr) Visitor {
	if f(e) {
		return f
	}
	return nil
}

// Inspect traverses e in depth-first order, calling f for each node. If f
// returns false the children of that node are skipped. After the children
// of a node have been visited, f is called with nil.
func Inspect(e Expr, f func(Expr) bool) {
	Walk(inspector(f), e)
}
