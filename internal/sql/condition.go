package sql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// tri is a Kleene truth value. Comparisons touching NULL evaluate to
// triUnknown, which is treated as false at the top of a condition.
type tri int8

const (
	triFalse tri = iota
	triUnknown
	triTrue
)

func triOf(b bool) tri {
	if b {
		return triTrue
	}
	return triFalse
}

func (t tri) not() tri {
	switch t {
	case triTrue:
		return triFalse
	case triFalse:
		return triTrue
	default:
		return triUnknown
	}
}

func (t tri) and(o tri) tri {
	if t == triFalse || o == triFalse {
		return triFalse
	}
	if t == triUnknown || o == triUnknown {
		return triUnknown
	}
	return triTrue
}

func (t tri) or(o tri) tri {
	if t == triTrue || o == triTrue {
		return triTrue
	}
	if t == triUnknown || o == triUnknown {
		return triUnknown
	}
	return triFalse
}

// expr is a parsed condition node.
type expr interface {
	eval(row types.Row) (tri, error)
}

type binaryExpr struct {
	op    string // "AND" | "OR"
	left  expr
	right expr
}

func (e *binaryExpr) eval(row types.Row) (tri, error) {
	l, err := e.left.eval(row)
	if err != nil {
		return triUnknown, err
	}
	// Kleene short-circuit: a decided side settles the result without
	// evaluating the other.
	if e.op == "AND" && l == triFalse {
		return triFalse, nil
	}
	if e.op == "OR" && l == triTrue {
		return triTrue, nil
	}
	r, err := e.right.eval(row)
	if err != nil {
		return triUnknown, err
	}
	if e.op == "AND" {
		return l.and(r), nil
	}
	return l.or(r), nil
}

type notExpr struct {
	inner expr
}

func (e *notExpr) eval(row types.Row) (tri, error) {
	v, err := e.inner.eval(row)
	if err != nil {
		return triUnknown, err
	}
	return v.not(), nil
}

// operand is either a column reference or a literal.
type operand struct {
	column  string
	literal types.Value
	isCol   bool
}

func (o operand) resolve(row types.Row) (types.Value, error) {
	if !o.isCol {
		return o.literal, nil
	}
	v, ok := row[o.column]
	if !ok {
		return types.Value{}, fmt.Errorf("column %q: %w", o.column, types.ErrNotFound)
	}
	return v, nil
}

type cmpExpr struct {
	left  operand
	op    string
	right operand
}

func (e *cmpExpr) eval(row types.Row) (tri, error) {
	l, err := e.left.resolve(row)
	if err != nil {
		return triUnknown, err
	}
	r, err := e.right.resolve(row)
	if err != nil {
		return triUnknown, err
	}
	switch e.op {
	case "=":
		return triOf(conditionEqual(l, r)), nil
	case "<>":
		return triOf(!conditionEqual(l, r)), nil
	}
	cmp, ok := l.Compare(r)
	if !ok {
		return triUnknown, nil
	}
	switch e.op {
	case "<":
		return triOf(cmp < 0), nil
	case "<=":
		return triOf(cmp <= 0), nil
	case ">":
		return triOf(cmp > 0), nil
	case ">=":
		return triOf(cmp >= 0), nil
	default:
		return triUnknown, fmt.Errorf("operator %q: %w", e.op, types.ErrParse)
	}
}

// conditionEqual applies the engine's equality to condition operands:
// Null equals Null, and Integer compares numerically against Real.
func conditionEqual(a, b types.Value) bool {
	if a.IsNull() || b.IsNull() {
		return a.IsNull() && b.IsNull()
	}
	if cmp, ok := a.Compare(b); ok {
		return cmp == 0
	}
	return a.Equal(b)
}

type isNullExpr struct {
	column  string
	negated bool
}

func (e *isNullExpr) eval(row types.Row) (tri, error) {
	v, ok := row[e.column]
	if !ok {
		return triUnknown, fmt.Errorf("column %q: %w", e.column, types.ErrNotFound)
	}
	return triOf(v.IsNull() != e.negated), nil
}

type likeExpr struct {
	column  string
	pattern string
	re      *regexp.Regexp
}

func (e *likeExpr) eval(row types.Row) (tri, error) {
	v, ok := row[e.column]
	if !ok {
		return triUnknown, fmt.Errorf("column %q: %w", e.column, types.ErrNotFound)
	}
	if v.IsNull() {
		return triUnknown, nil
	}
	if v.Type != types.String {
		return triFalse, nil
	}
	return triOf(e.re.MatchString(v.S)), nil
}

// compileLike translates a LIKE pattern (% and _ wildcards) into an
// anchored regular expression.
func compileLike(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("LIKE pattern %q: %w", pattern, types.ErrParse)
	}
	return re, nil
}

// Condition is a compiled row filter. It satisfies types.RowFilter and
// keeps its source text in Source.
type Condition struct {
	Source string
	root   expr
}

// Matches evaluates the condition against a row projection. Unknown
// (NULL-tainted) results count as no match.
func (c *Condition) Matches(row types.Row) (bool, error) {
	v, err := c.root.eval(row)
	if err != nil {
		return false, err
	}
	return v == triTrue, nil
}

// parser is a recursive-descent parser over the condition grammar:
//
//	expr := or
//	or   := and (OR and)*
//	and  := not (AND not)*
//	not  := NOT not | atom
//	atom := operand op operand | column LIKE pattern |
//	        column IS [NOT] NULL | '(' expr ')'
type parser struct {
	lex lexer
	tok token
}

func parseCondition(src string) (*Condition, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, fmt.Errorf("empty condition: %w", types.ErrParse)
	}
	p := &parser{lex: lexer{src: src}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, fmt.Errorf("trailing input %q in condition %q: %w", p.tok.text, src, types.ErrParse)
	}
	return &Condition{Source: src, root: root}, nil
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) accept(kind tokenKind, text string) (bool, error) {
	if p.tok.kind == kind && (text == "" || p.tok.text == text) {
		if err := p.advance(); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func (p *parser) parseOr() (expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		ok, err := p.accept(tokKeyword, "OR")
		if err != nil {
			return nil, err
		}
		if !ok {
			return left, nil
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{op: "OR", left: left, right: right}
	}
}

func (p *parser) parseAnd() (expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		ok, err := p.accept(tokKeyword, "AND")
		if err != nil {
			return nil, err
		}
		if !ok {
			return left, nil
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{op: "AND", left: left, right: right}
	}
}

func (p *parser) parseNot() (expr, error) {
	ok, err := p.accept(tokKeyword, "NOT")
	if err != nil {
		return nil, err
	}
	if ok {
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &notExpr{inner: inner}, nil
	}
	return p.parseAtom()
}

func (p *parser) parseAtom() (expr, error) {
	ok, err := p.accept(tokLParen, "")
	if err != nil {
		return nil, err
	}
	if ok {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		closed, err := p.accept(tokRParen, "")
		if err != nil {
			return nil, err
		}
		if !closed {
			return nil, fmt.Errorf("missing closing parenthesis: %w", types.ErrParse)
		}
		return inner, nil
	}

	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	if ok, err := p.accept(tokKeyword, "IS"); err != nil {
		return nil, err
	} else if ok {
		if !left.isCol {
			return nil, fmt.Errorf("IS requires a column on the left: %w", types.ErrParse)
		}
		negated, err := p.accept(tokKeyword, "NOT")
		if err != nil {
			return nil, err
		}
		isNull, err := p.accept(tokKeyword, "NULL")
		if err != nil {
			return nil, err
		}
		if !isNull {
			return nil, fmt.Errorf("IS must be followed by [NOT] NULL: %w", types.ErrParse)
		}
		return &isNullExpr{column: left.column, negated: negated}, nil
	}

	if ok, err := p.accept(tokKeyword, "LIKE"); err != nil {
		return nil, err
	} else if ok {
		if !left.isCol {
			return nil, fmt.Errorf("LIKE requires a column on the left: %w", types.ErrParse)
		}
		if p.tok.kind != tokString {
			return nil, fmt.Errorf("LIKE requires a string pattern: %w", types.ErrParse)
		}
		pattern := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		re, err := compileLike(pattern)
		if err != nil {
			return nil, err
		}
		return &likeExpr{column: left.column, pattern: pattern, re: re}, nil
	}

	if p.tok.kind != tokOp {
		return nil, fmt.Errorf("expected comparison operator, got %q: %w", p.tok.text, types.ErrParse)
	}
	op := p.tok.text
	if err := p.advance(); err != nil {
		return nil, err
	}
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return &cmpExpr{left: left, op: op, right: right}, nil
}

func (p *parser) parseOperand() (operand, error) {
	switch p.tok.kind {
	case tokIdent:
		col := p.tok.text
		if err := p.advance(); err != nil {
			return operand{}, err
		}
		return operand{column: col, isCol: true}, nil
	case tokNumber:
		v, err := types.ParseLiteral(p.tok.text)
		if err != nil {
			return operand{}, err
		}
		if err := p.advance(); err != nil {
			return operand{}, err
		}
		return operand{literal: v}, nil
	case tokString:
		v := types.NewString(p.tok.text)
		if err := p.advance(); err != nil {
			return operand{}, err
		}
		return operand{literal: v}, nil
	case tokKeyword:
		switch p.tok.text {
		case "NULL":
			if err := p.advance(); err != nil {
				return operand{}, err
			}
			return operand{literal: types.NewNull()}, nil
		case "TRUE", "FALSE":
			v := types.NewBoolean(p.tok.text == "TRUE")
			if err := p.advance(); err != nil {
				return operand{}, err
			}
			return operand{literal: v}, nil
		}
	}
	return operand{}, fmt.Errorf("expected column or literal, got %q: %w", p.tok.text, types.ErrParse)
}
