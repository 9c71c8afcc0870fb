package types

import (
	"fmt"
)

// ColumnSpec describes one column for table creation and ALTER phases.
type ColumnSpec struct {
	Name        string
	Type        DataType
	Default     *Value
	Constraints []Constraint
}

// ModifySpec describes one column modification: either a type change or
// a replacement of the column's constraint set.
type ModifySpec struct {
	Column      string
	Type        *DataType
	Constraints []Constraint
}

// DropSpec describes one drop within an ALTER phase. An empty Constraint
// selector drops the whole column; otherwise the selector is matched
// first as a constraint name, then as a constraint kind.
type DropSpec struct {
	Column     string
	Constraint string
}

// Assignment is one "column = value" cell rewrite of an UPDATE.
type Assignment struct {
	Column string
	Value  Value
}

// Table is an insertion-ordered mapping of column names to columns with
// a uniform row count. Rows are identified positionally: inserts append,
// deletes compact, updates rewrite in place.
type Table struct {
	order   []string
	columns map[string]*Column
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{columns: make(map[string]*Column)}
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	cp := NewTable()
	cp.order = append([]string(nil), t.order...)
	for name, col := range t.columns {
		cp.columns[name] = col.Clone()
	}
	return cp
}

// ColumnNames returns the column names in insertion order.
func (t *Table) ColumnNames() []string {
	return append([]string(nil), t.order...)
}

// Column returns the named column.
func (t *Table) Column(name string) (*Column, bool) {
	c, ok := t.columns[name]
	return c, ok
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	if len(t.order) == 0 {
		return 0
	}
	return len(t.columns[t.order[0]].Body)
}

// CreateColumn appends a column. When rows already exist the new column
// is padded with its default value, Null otherwise; the padded body must
// still satisfy the column's constraints.
func (t *Table) CreateColumn(spec ColumnSpec, lookup ParentLookup) error {
	if err := ValidateName(spec.Name); err != nil {
		return err
	}
	if t.HasColumn(spec.Name) {
		return fmt.Errorf("column %q: %w", spec.Name, ErrAlreadyExists)
	}
	col := NewColumn(spec.Type)
	col.Default = spec.Default
	for _, con := range spec.Constraints {
		if err := col.AddConstraint(con); err != nil {
			return err
		}
	}
	if n := t.RowCount(); n > 0 {
		pad := col.fill()
		for i := 0; i < n; i++ {
			col.Body = append(col.Body, pad)
		}
		if err := col.revalidate(spec.Name, lookup); err != nil {
			return err
		}
	}
	t.order = append(t.order, spec.Name)
	t.columns[spec.Name] = col
	return nil
}

// DropColumn removes a column and its body.
func (t *Table) DropColumn(name string) error {
	if !t.HasColumn(name) {
		return fmt.Errorf("column %q: %w", name, ErrNotFound)
	}
	delete(t.columns, name)
	for i, n := range t.order {
		if n == name {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return nil
}

// DropConstraint removes constraints from a column. The selector is
// matched first as an exact constraint name, then as a kind keyword
// (which drops every constraint of that kind).
func (t *Table) DropConstraint(column, selector string) error {
	col, ok := t.columns[column]
	if !ok {
		return fmt.Errorf("column %q: %w", column, ErrNotFound)
	}
	if err := col.DropConstraintByName(selector); err == nil {
		return nil
	}
	if kind, ok := ParseConstraintKind(selector); ok {
		if col.DropConstraintsOfKind(kind) > 0 {
			return nil
		}
	}
	return fmt.Errorf("constraint %q on column %q: %w", selector, column, ErrNotFound)
}

// ModifyColumnType changes a column's type. Every stored value must be
// admissible for the new type; Null always is.
func (t *Table) ModifyColumnType(name string, newType DataType) error {
	col, ok := t.columns[name]
	if !ok {
		return fmt.Errorf("column %q: %w", name, ErrNotFound)
	}
	for i, v := range col.Body {
		if !Admissible(newType, v) {
			return fmt.Errorf("row %d value %s not admissible for %s: %w", i, v, newType, ErrTypeMismatch)
		}
	}
	col.Type = newType
	return nil
}

// ModifyColumnConstraints replaces a column's constraint set. The
// existing body must satisfy the new constraints.
func (t *Table) ModifyColumnConstraints(name string, cons []Constraint, lookup ParentLookup) error {
	col, ok := t.columns[name]
	if !ok {
		return fmt.Errorf("column %q: %w", name, ErrNotFound)
	}
	old := col.Constraints
	col.Constraints = nil
	for _, con := range cons {
		if err := col.AddConstraint(con); err != nil {
			col.Constraints = old
			return err
		}
	}
	if err := col.revalidate(name, lookup); err != nil {
		col.Constraints = old
		return err
	}
	return nil
}

// RenameColumn renames a column in place, keeping its position.
func (t *Table) RenameColumn(oldName, newName string) error {
	if err := ValidateName(newName); err != nil {
		return err
	}
	col, ok := t.columns[oldName]
	if !ok {
		return fmt.Errorf("column %q: %w", oldName, ErrNotFound)
	}
	if t.HasColumn(newName) {
		return fmt.Errorf("column %q: %w", newName, ErrAlreadyExists)
	}
	delete(t.columns, oldName)
	t.columns[newName] = col
	for i, n := range t.order {
		if n == oldName {
			t.order[i] = newName
			break
		}
	}
	return nil
}

// Insert appends one row. values[i] is the cell for columns[i]; table
// columns absent from the list receive their default value, Null
// otherwise. Validation covers every cell before anything is appended,
// so a failed insert leaves the table unchanged.
func (t *Table) Insert(columns []string, values []Value, lookup ParentLookup) error {
	if len(columns) != len(values) {
		return fmt.Errorf("%d columns but %d values: %w", len(columns), len(values), ErrParse)
	}
	cells := make(map[string]Value, len(t.order))
	for i, name := range columns {
		if !t.HasColumn(name) {
			return fmt.Errorf("column %q: %w", name, ErrNotFound)
		}
		if _, dup := cells[name]; dup {
			return fmt.Errorf("column %q listed twice: %w", name, ErrParse)
		}
		cells[name] = values[i]
	}
	row := make([]Value, len(t.order))
	for i, name := range t.order {
		col := t.columns[name]
		v, ok := cells[name]
		if !ok {
			v = col.fill()
		}
		if err := col.checkValue(name, v, -1, lookup); err != nil {
			return err
		}
		row[i] = v
	}
	for i, name := range t.order {
		col := t.columns[name]
		col.Body = append(col.Body, row[i])
	}
	return nil
}

// Update rewrites the assigned cells of every row matching filter. A nil
// filter matches all rows. The rewrite is all-or-nothing: any constraint
// violation leaves the table unchanged. Returns the matched row count.
func (t *Table) Update(assigns []Assignment, filter RowFilter, lookup ParentLookup) (int, error) {
	for _, a := range assigns {
		if !t.HasColumn(a.Column) {
			return 0, fmt.Errorf("column %q: %w", a.Column, ErrNotFound)
		}
	}
	matched, err := t.matchRows(filter)
	if err != nil {
		return 0, err
	}
	if len(matched) == 0 {
		return 0, nil
	}
	next := make(map[string]*Column, len(assigns))
	for _, a := range assigns {
		if _, done := next[a.Column]; done {
			continue
		}
		next[a.Column] = t.columns[a.Column].Clone()
	}
	for _, i := range matched {
		for _, a := range assigns {
			col := next[a.Column]
			col.Body[i] = widen(col.Type, a.Value)
		}
	}
	for name, col := range next {
		if err := col.revalidate(name, lookup); err != nil {
			return 0, err
		}
	}
	for name, col := range next {
		t.columns[name] = col
	}
	return len(matched), nil
}

// Delete compacts away every row matching filter. A nil filter matches
// all rows. Returns the removed row count.
func (t *Table) Delete(filter RowFilter) (int, error) {
	matched, err := t.matchRows(filter)
	if err != nil {
		return 0, err
	}
	if len(matched) == 0 {
		return 0, nil
	}
	drop := make(map[int]bool, len(matched))
	for _, i := range matched {
		drop[i] = true
	}
	for _, name := range t.order {
		col := t.columns[name]
		kept := col.Body[:0]
		for i, v := range col.Body {
			if !drop[i] {
				kept = append(kept, v)
			}
		}
		col.Body = kept
	}
	return len(matched), nil
}

// Select materializes the requested columns of every matching row, in
// insertion order. Empty columns selects all; nil filter matches all.
func (t *Table) Select(tableName string, columns []string, filter RowFilter) (*Response, error) {
	if len(columns) == 0 {
		columns = t.order
	}
	for _, name := range columns {
		if !t.HasColumn(name) {
			return nil, fmt.Errorf("column %q: %w", name, ErrNotFound)
		}
	}
	matched, err := t.matchRows(filter)
	if err != nil {
		return nil, err
	}
	resp := NewResponse(tableName, columns)
	for _, i := range matched {
		row := make([]Value, len(columns))
		for j, name := range columns {
			row[j] = t.columns[name].Body[i]
		}
		resp.AppendRow(row)
	}
	return resp, nil
}

// matchRows returns the indices of rows matching filter, ascending.
func (t *Table) matchRows(filter RowFilter) ([]int, error) {
	n := t.RowCount()
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if filter == nil {
			out = append(out, i)
			continue
		}
		ok, err := filter.Matches(t.rowProjection(i))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, i)
		}
	}
	return out, nil
}

// rowProjection builds the name→value view of row i for filters.
func (t *Table) rowProjection(i int) Row {
	row := make(Row, len(t.order))
	for _, name := range t.order {
		row[name] = t.columns[name].Body[i]
	}
	return row
}

// widen converts an Integer value assigned to a REAL column on update.
// Inserts stay strict; only updates widen, and only into REAL columns.
// Other combinations pass through and fail admissibility if the tags
// disagree.
func widen(colType DataType, v Value) Value {
	if colType == Real && !v.Null && v.Type == Integer {
		return NewReal(float64(v.I64))
	}
	return v
}
