package query

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokLParen tokenKind = iota
	tokRParen
	tokColon
	tokIdent  // bare word: [A-Za-z0-9._-]+
	tokString // double-quoted, escapes resolved
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func isIdentByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b == '.', b == '_', b == '-':
		return true
	}
	return false
}

// tokenize splits a raw query string into tokens. AND/OR/NOT keyword
// recognition happens in the parser so a quoted "and" stays an ordinary
// search term.
func tokenize(input string) ([]token, error) {
	var tokens []token

	i := 0
	for i < len(input) {
		b := input[i]
		switch {
		case b == ' ' || b == '\t' || b == '\n' || b == '\r':
			i++
		case b == '(':
			tokens = append(tokens, token{kind: tokLParen, pos: i})
			i++
		case b == ')':
			tokens = append(tokens, token{kind: tokRParen, pos: i})
			i++
		case b == ':':
			tokens = append(tokens, token{kind: tokColon, pos: i})
			i++
		case b == '"':
			text, next, err := lexQuoted(input, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokString, text: text, pos: i})
			i = next
		case isIdentByte(b):
			start := i
			for i < len(input) && isIdentByte(input[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokIdent, text: input[start:i], pos: start})
		default:
			return nil, fmt.Errorf("unexpected character %q at position %d", b, i)
		}
	}

	tokens = append(tokens, token{kind: tokEOF, pos: len(input)})
	return tokens, nil
}

// lexQuoted reads a double-quoted string starting at the opening quote,
// resolving \" and \\ escapes. Returns the unquoted text and the index just
// past the closing quote.
func lexQuoted(input string, start int) (string, int, error) {
	var b strings.Builder

	i := start + 1
	for i < len(input) {
		switch input[i] {
		case '"':
			return b.String(), i + 1, nil
		case '\\':
			if i+1 >= len(input) {
				return "", 0, fmt.Errorf("dangling escape at position %d", i)
			}
			b.WriteByte(input[i+1])
			i += 2
		default:
			b.WriteByte(input[i])
			i++
		}
	}

	return "", 0, fmt.Errorf("unterminated quote starting at position %d", start)
}
