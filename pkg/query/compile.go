package query

import (
	"fmt"

	"podgraph/pkg/logger"
	"podgraph/pkg/store"
)

// DefaultLimit caps document search results when the caller supplies no
// limit.
const DefaultLimit = 50

// EmptyTraversal matches no vertices. Malformed query strings compile to it
// so a bad query is a safe no-op instead of a fault.
const EmptyTraversal = "g.V().none()"

// Compile turns a boolean keyword query into an executable traversal over
// document vertices: parse to an AST, rewrite it into a filter predicate,
// then wrap with dedup, the result cap, and full property projection. Every
// literal is escaped before embedding. Parse failures return
// EmptyTraversal.
func Compile(input string, limit int) string {
	if limit <= 0 {
		limit = DefaultLimit
	}

	node, err := Parse(input)
	if err != nil {
		logger.Debug("[Query] Degrading malformed query to empty traversal", "query", input, "err", err)
		return EmptyTraversal
	}

	return fmt.Sprintf(
		"g.V().has('category','document').where(%s).dedup().limit(%d).valueMap(true)",
		compileNode(node),
		limit,
	)
}

// compileNode rewrites an AST node into an anonymous traversal predicate
// over a document vertex. A term matches documents with an incoming
// appearance edge from an entity whose field equals the value; the boolean
// operators map onto and/or/not steps.
func compileNode(node Node) string {
	switch n := node.(type) {
	case Term:
		return fmt.Sprintf("__.in('appears_in').has('entity','%s','%s')",
			store.EscapeString(n.Field), store.EscapeString(n.Value))
	case And:
		return fmt.Sprintf("__.and(%s,%s)", compileNode(n.Left), compileNode(n.Right))
	case Or:
		return fmt.Sprintf("__.or(%s,%s)", compileNode(n.Left), compileNode(n.Right))
	case Not:
		return fmt.Sprintf("__.not(%s)", compileNode(n.Operand))
	default:
		// Unreachable with the closed Node set; compile to nothing rather
		// than a partial predicate.
		return "__.none()"
	}
}
