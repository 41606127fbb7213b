package query

import "fmt"

// Node is one node of a parsed boolean query. The tree is immutable once
// produced; tests compare nodes structurally.
type Node interface {
	node()
	String() string
}

// Term is an atomic filter: a field name from the closed field set and the
// value it must equal. Bare and quoted search words parse to a Term on the
// default field "text".
type Term struct {
	Field string
	Value string
}

// And is the conjunction of two subqueries. Juxtaposed terms with no
// explicit operator parse to And as well.
type And struct {
	Left  Node
	Right Node
}

// Or is the disjunction of two subqueries.
type Or struct {
	Left  Node
	Right Node
}

// Not negates its operand.
type Not struct {
	Operand Node
}

func (Term) node() {}
func (And) node()  {}
func (Or) node()   {}
func (Not) node()  {}

func (t Term) String() string { return fmt.Sprintf("%s:%q", t.Field, t.Value) }
func (a And) String() string  { return fmt.Sprintf("(%s AND %s)", a.Left, a.Right) }
func (o Or) String() string   { return fmt.Sprintf("(%s OR %s)", o.Left, o.Right) }
func (n Not) String() string  { return fmt.Sprintf("(NOT %s)", n.Operand) }
