package query

import (
	"fmt"
	"strings"
)

// DefaultField is the field a bare or quoted search word filters on.
const DefaultField = "text"

// fieldNames is the closed set of field names usable in field:value terms.
var fieldNames = map[string]string{
	"category":    "category",
	"subcategory": "subCategory",
	"type":        "type",
}

type parser struct {
	tokens []token
	pos    int
}

// Parse turns a query string into its AST. Operator precedence from lowest
// to highest: OR, AND (explicit or juxtaposition), NOT, parenthesized group,
// term. A syntax error yields a nil tree; callers degrade it to an
// empty-result traversal rather than surfacing a fault.
func Parse(input string) (Node, error) {
	tokens, err := tokenize(input)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	if p.peek().kind == tokEOF {
		return nil, fmt.Errorf("empty query")
	}

	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("unexpected token at position %d", p.peek().pos)
	}

	return node, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

// peekKeyword reports whether the next token is the given bare keyword,
// case-insensitively. Quoted strings never match.
func (p *parser) peekKeyword(keyword string) bool {
	t := p.peek()
	return t.kind == tokIdent && strings.EqualFold(t.text, keyword)
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.peekKeyword("OR") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Or{Left: left, Right: right}
	}

	return left, nil
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		if p.peekKeyword("AND") {
			p.next()
		} else if !p.startsOperand() {
			return left, nil
		}
		// Either an explicit AND or two adjacent operands: juxtaposition
		// conjoins at the same precedence as AND.
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = And{Left: left, Right: right}
	}
}

// startsOperand reports whether the next token can begin an operand, which
// is what distinguishes implicit AND from the end of the expression. OR is
// handled by the caller; a bare AND here would be consumed as an explicit
// operator first.
func (p *parser) startsOperand() bool {
	if p.peekKeyword("OR") {
		return false
	}
	switch p.peek().kind {
	case tokLParen, tokIdent, tokString:
		return true
	}
	return false
}

func (p *parser) parseUnary() (Node, error) {
	if p.peekKeyword("NOT") {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Not{Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	switch t := p.peek(); t.kind {
	case tokLParen:
		p.next()
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, fmt.Errorf("missing closing parenthesis at position %d", p.peek().pos)
		}
		p.next()
		return node, nil
	case tokIdent, tokString:
		return p.parseTerm()
	default:
		return nil, fmt.Errorf("expected a term at position %d", t.pos)
	}
}

func (p *parser) parseTerm() (Node, error) {
	t := p.next()

	// A keyword in term position means a malformed query ("a AND OR b");
	// quote it to search for the literal word.
	if t.kind == tokIdent {
		for _, keyword := range []string{"AND", "OR", "NOT"} {
			if strings.EqualFold(t.text, keyword) {
				return nil, fmt.Errorf("unexpected keyword %q at position %d", t.text, t.pos)
			}
		}
	}

	// field:value only applies to bare identifiers; a quoted string is
	// always a text term even if a colon follows.
	if t.kind == tokIdent && p.peek().kind == tokColon {
		p.next()
		field, ok := fieldNames[strings.ToLower(t.text)]
		if !ok {
			return nil, fmt.Errorf("unknown field %q at position %d", t.text, t.pos)
		}

		value := p.next()
		if value.kind != tokIdent && value.kind != tokString {
			return nil, fmt.Errorf("missing value for field %q at position %d", t.text, t.pos)
		}
		return Term{Field: field, Value: value.text}, nil
	}

	return Term{Field: DefaultField, Value: t.text}, nil
}
