// Package sql parses the textual surfaces of the engine: row-filter
// conditions, column definitions, and update assignment lists. Parsed
// conditions implement types.RowFilter and are cached by source text.
package sql

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokOp     // = <> < <= > >=
	tokLParen
	tokRParen
	tokKeyword // AND OR NOT LIKE IS NULL TRUE FALSE
)

var keywords = map[string]bool{
	"AND": true, "OR": true, "NOT": true,
	"LIKE": true, "IS": true, "NULL": true,
	"TRUE": true, "FALSE": true,
}

type token struct {
	kind tokenKind
	text string
}

// lexer walks a condition string and yields tokens. Keywords are
// recognized case-insensitively and normalized to upper case.
type lexer struct {
	src string
	pos int
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) && unicode.IsSpace(rune(l.src[l.pos])) {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token{kind: tokEOF}, nil
	}
	c := l.src[l.pos]
	switch {
	case c == '(':
		l.pos++
		return token{kind: tokLParen, text: "("}, nil
	case c == ')':
		l.pos++
		return token{kind: tokRParen, text: ")"}, nil
	case c == '\'' || c == '"':
		return l.lexString(c)
	case c == '=':
		l.pos++
		return token{kind: tokOp, text: "="}, nil
	case c == '<':
		l.pos++
		if l.pos < len(l.src) && l.src[l.pos] == '>' {
			l.pos++
			return token{kind: tokOp, text: "<>"}, nil
		}
		if l.pos < len(l.src) && l.src[l.pos] == '=' {
			l.pos++
			return token{kind: tokOp, text: "<="}, nil
		}
		return token{kind: tokOp, text: "<"}, nil
	case c == '>':
		l.pos++
		if l.pos < len(l.src) && l.src[l.pos] == '=' {
			l.pos++
			return token{kind: tokOp, text: ">="}, nil
		}
		return token{kind: tokOp, text: ">"}, nil
	case c == '!':
		if l.pos+1 < len(l.src) && l.src[l.pos+1] == '=' {
			l.pos += 2
			return token{kind: tokOp, text: "<>"}, nil
		}
		return token{}, fmt.Errorf("unexpected %q at offset %d: %w", c, l.pos, types.ErrParse)
	case c == '-' || c == '.' || unicode.IsDigit(rune(c)):
		return l.lexNumber()
	case c == '_' || unicode.IsLetter(rune(c)):
		return l.lexWord()
	default:
		return token{}, fmt.Errorf("unexpected %q at offset %d: %w", c, l.pos, types.ErrParse)
	}
}

func (l *lexer) lexString(quote byte) (token, error) {
	start := l.pos
	l.pos++
	for l.pos < len(l.src) {
		if l.src[l.pos] == quote {
			text := l.src[start+1 : l.pos]
			l.pos++
			return token{kind: tokString, text: text}, nil
		}
		l.pos++
	}
	return token{}, fmt.Errorf("unterminated string at offset %d: %w", start, types.ErrParse)
}

func (l *lexer) lexNumber() (token, error) {
	start := l.pos
	if l.src[l.pos] == '-' {
		l.pos++
	}
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if unicode.IsDigit(rune(c)) || c == '.' {
			l.pos++
			continue
		}
		break
	}
	text := l.src[start:l.pos]
	if text == "-" || text == "." {
		return token{}, fmt.Errorf("malformed number %q: %w", text, types.ErrParse)
	}
	return token{kind: tokNumber, text: text}, nil
}

func (l *lexer) lexWord() (token, error) {
	start := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '_' || unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c)) {
			l.pos++
			continue
		}
		break
	}
	text := l.src[start:l.pos]
	if upper := strings.ToUpper(text); keywords[upper] {
		return token{kind: tokKeyword, text: upper}, nil
	}
	return token{kind: tokIdent, text: text}, nil
}
