package sql

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// ParseColumnDef parses one column definition:
//
//	IDENT TYPE (SPEC)*
//	SPEC := NOT NULL | PRIMARY KEY | UNIQUE | CHECK(<expr>) |
//	        FOREIGN KEY REFERENCES <tbl> | DEFAULT <literal>
//
// Multi-word keywords are atomic; CHECK expressions are compiled through
// the receiver's condition cache. Constraint names follow the
// <column>_<kind>_constraint convention.
func (c *Compiler) ParseColumnDef(def string) (types.ColumnSpec, error) {
	s := newSpecScanner(def)
	name, ok := s.word()
	if !ok {
		return types.ColumnSpec{}, fmt.Errorf("column definition %q needs a name: %w", def, types.ErrParse)
	}
	typeWord, ok := s.word()
	if !ok {
		return types.ColumnSpec{}, fmt.Errorf("column definition %q needs a type: %w", def, types.ErrParse)
	}
	colType, err := types.ParseDataType(typeWord)
	if err != nil {
		return types.ColumnSpec{}, err
	}

	spec := types.ColumnSpec{Name: name, Type: colType}
	for {
		s.skipSpace()
		if s.done() {
			return spec, nil
		}
		switch {
		case s.keyword("NOT", "NULL"):
			spec.Constraints = append(spec.Constraints, types.Constraint{
				Name: types.DefaultConstraintName(name, types.ConstraintNotNull),
				Kind: types.ConstraintNotNull,
			})
		case s.keyword("PRIMARY", "KEY"):
			spec.Constraints = append(spec.Constraints, types.Constraint{
				Name: types.DefaultConstraintName(name, types.ConstraintPrimaryKey),
				Kind: types.ConstraintPrimaryKey,
			})
		case s.keyword("UNIQUE"):
			spec.Constraints = append(spec.Constraints, types.Constraint{
				Name: types.DefaultConstraintName(name, types.ConstraintUnique),
				Kind: types.ConstraintUnique,
			})
		case s.keyword("CHECK"):
			exprSrc, err := s.parenGroup()
			if err != nil {
				return types.ColumnSpec{}, err
			}
			if exprSrc == "" {
				return types.ColumnSpec{}, fmt.Errorf("empty CHECK expression: %w", types.ErrParse)
			}
			filter, err := c.Compile(exprSrc)
			if err != nil {
				return types.ColumnSpec{}, err
			}
			spec.Constraints = append(spec.Constraints, types.Constraint{
				Name:   types.DefaultConstraintName(name, types.ConstraintCheck),
				Kind:   types.ConstraintCheck,
				Expr:   exprSrc,
				Filter: filter,
			})
		case s.keyword("FOREIGN", "KEY"):
			if !s.keyword("REFERENCES") {
				return types.ColumnSpec{}, fmt.Errorf("FOREIGN KEY needs REFERENCES <table>: %w", types.ErrParse)
			}
			parent, ok := s.word()
			if !ok {
				return types.ColumnSpec{}, fmt.Errorf("FOREIGN KEY REFERENCES needs a table name: %w", types.ErrParse)
			}
			spec.Constraints = append(spec.Constraints, types.Constraint{
				Name:   types.DefaultConstraintName(name, types.ConstraintForeignKey),
				Kind:   types.ConstraintForeignKey,
				Parent: parent,
			})
		case s.keyword("DEFAULT"):
			lit, ok := s.literal()
			if !ok {
				return types.ColumnSpec{}, fmt.Errorf("DEFAULT needs a literal: %w", types.ErrParse)
			}
			v, err := types.ParseLiteral(lit)
			if err != nil {
				return types.ColumnSpec{}, err
			}
			if colType == types.Real && v.Type == types.Integer && !v.IsNull() {
				v = types.NewReal(float64(v.I64))
			}
			if !types.Admissible(colType, v) {
				return types.ColumnSpec{}, fmt.Errorf("default %s not admissible for %s: %w", v, colType, types.ErrTypeMismatch)
			}
			spec.Default = &v
		default:
			return types.ColumnSpec{}, fmt.Errorf("unrecognized constraint at %q: %w", s.rest(), types.ErrParse)
		}
	}
}

// ParseModifySpec parses one ALTER modification: either "col TYPE" for a
// type change or "col SPEC..." for a constraint respec.
func (c *Compiler) ParseModifySpec(def string) (types.ModifySpec, error) {
	s := newSpecScanner(def)
	name, ok := s.word()
	if !ok {
		return types.ModifySpec{}, fmt.Errorf("modification %q needs a column name: %w", def, types.ErrParse)
	}
	s.skipSpace()
	rest := strings.TrimSpace(s.rest())
	if rest == "" {
		return types.ModifySpec{}, fmt.Errorf("modification %q needs a type or constraints: %w", def, types.ErrParse)
	}
	if types.IsDataType(rest) {
		t, err := types.ParseDataType(rest)
		if err != nil {
			return types.ModifySpec{}, err
		}
		return types.ModifySpec{Column: name, Type: &t}, nil
	}
	// Reuse the column-definition grammar by prefixing a dummy type; the
	// remainder is exactly the constraint-spec tail.
	spec, err := c.ParseColumnDef(name + " STRING " + rest)
	if err != nil {
		return types.ModifySpec{}, err
	}
	if spec.Default != nil {
		return types.ModifySpec{}, fmt.Errorf("DEFAULT is not a constraint modification: %w", types.ErrParse)
	}
	return types.ModifySpec{Column: name, Constraints: spec.Constraints}, nil
}

// ParseDropSpec parses one ALTER drop entry: "col" drops the column,
// "col <selector>" drops a constraint by name or kind.
func ParseDropSpec(def string) (types.DropSpec, error) {
	fields := strings.Fields(def)
	switch len(fields) {
	case 0:
		return types.DropSpec{}, fmt.Errorf("empty drop entry: %w", types.ErrParse)
	case 1:
		return types.DropSpec{Column: fields[0]}, nil
	default:
		return types.DropSpec{
			Column:     fields[0],
			Constraint: strings.Join(fields[1:], " "),
		}, nil
	}
}

// ParseAssignments parses "column = literal" entries of an UPDATE. A
// right-hand side that is not a recognizable literal is taken as a bare
// string, so both `age = 32` and `name = new_value` work.
func ParseAssignments(entries []string) ([]types.Assignment, error) {
	out := make([]types.Assignment, 0, len(entries))
	for _, entry := range entries {
		eq := strings.Index(entry, "=")
		if eq < 0 {
			return nil, fmt.Errorf("assignment %q needs '=': %w", entry, types.ErrParse)
		}
		column := strings.TrimSpace(entry[:eq])
		if column == "" {
			return nil, fmt.Errorf("assignment %q needs a column: %w", entry, types.ErrParse)
		}
		rhs := strings.TrimSpace(entry[eq+1:])
		if rhs == "" {
			return nil, fmt.Errorf("assignment %q needs a value: %w", entry, types.ErrParse)
		}
		v, err := types.ParseLiteral(rhs)
		if err != nil {
			v = types.NewString(rhs)
		}
		out = append(out, types.Assignment{Column: column, Value: v})
	}
	return out, nil
}

// specScanner walks column-definition text word by word, keeping CHECK
// parenthesized groups and quoted literals intact.
type specScanner struct {
	src string
	pos int
}

func newSpecScanner(src string) *specScanner {
	return &specScanner{src: strings.TrimSpace(src)}
}

func (s *specScanner) done() bool { return s.pos >= len(s.src) }

func (s *specScanner) rest() string { return s.src[s.pos:] }

func (s *specScanner) skipSpace() {
	for s.pos < len(s.src) && unicode.IsSpace(rune(s.src[s.pos])) {
		s.pos++
	}
}

// word returns the next whitespace-delimited bare word.
func (s *specScanner) word() (string, bool) {
	s.skipSpace()
	start := s.pos
	for s.pos < len(s.src) && !unicode.IsSpace(rune(s.src[s.pos])) && s.src[s.pos] != '(' {
		s.pos++
	}
	if s.pos == start {
		return "", false
	}
	return s.src[start:s.pos], true
}

// keyword consumes the given case-insensitive word sequence, restoring
// the position when it does not match.
func (s *specScanner) keyword(words ...string) bool {
	save := s.pos
	for _, want := range words {
		got, ok := s.word()
		if !ok || !strings.EqualFold(got, want) {
			s.pos = save
			return false
		}
	}
	return true
}

// parenGroup consumes a balanced parenthesized group and returns the
// inner text.
func (s *specScanner) parenGroup() (string, error) {
	s.skipSpace()
	if s.done() || s.src[s.pos] != '(' {
		return "", fmt.Errorf("expected '(' at %q: %w", s.rest(), types.ErrParse)
	}
	depth := 0
	start := s.pos + 1
	for ; s.pos < len(s.src); s.pos++ {
		switch s.src[s.pos] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				inner := s.src[start:s.pos]
				s.pos++
				return strings.TrimSpace(inner), nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced parentheses in %q: %w", s.src, types.ErrParse)
}

// literal consumes a literal token: a quoted string (possibly with
// spaces) or a single bare word.
func (s *specScanner) literal() (string, bool) {
	s.skipSpace()
	if s.done() {
		return "", false
	}
	if q := s.src[s.pos]; q == '\'' || q == '"' {
		for i := s.pos + 1; i < len(s.src); i++ {
			if s.src[i] == q {
				lit := s.src[s.pos : i+1]
				s.pos = i + 1
				return lit, true
			}
		}
		return "", false
	}
	return s.word()
}
