package types

import (
	"fmt"
	"regexp"
	"sort"
)

// DatabaseState is the lifecycle state of a Database. Mutating
// operations are valid only in StateCreated and StateInWork; the first
// successful mutation moves a freshly created database into StateInWork.
type DatabaseState int

const (
	StateIdle DatabaseState = iota
	StateReset
	StateCreated
	StateInWork
	StateClosed
)

func (s DatabaseState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateReset:
		return "RESET"
	case StateCreated:
		return "CREATED"
	case StateInWork:
		return "IN_WORK"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("DatabaseState(%d)", int(s))
	}
}

var identifierRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateName rejects empty or malformed database, table, and column
// names.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("empty identifier: %w", ErrInvalidName)
	}
	if !identifierRE.MatchString(name) {
		return fmt.Errorf("identifier %q: %w", name, ErrInvalidName)
	}
	return nil
}

// AlterSpec carries the up-to-three phases of an ALTER TABLE. Phases
// apply in order: add new columns, modify existing ones, drop. A nil
// slice means the phase is absent.
type AlterSpec struct {
	New      []ColumnSpec
	Modified []ModifySpec
	Dropped  []DropSpec
}

// Database is a named, name-ordered collection of tables with a
// lifecycle state and an on-disk image path.
type Database struct {
	Name     string
	FilePath string

	tables map[string]*Table
	state  DatabaseState
}

// NewDatabase creates a database in StateCreated.
func NewDatabase(name, filePath string) (*Database, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	return &Database{
		Name:     name,
		FilePath: filePath,
		tables:   make(map[string]*Table),
		state:    StateCreated,
	}, nil
}

// State returns the current lifecycle state.
func (d *Database) State() DatabaseState { return d.state }

// SetState forces a lifecycle state. The engine uses it when opening an
// image from disk (StateInWork) or discarding a handle (StateReset).
func (d *Database) SetState(s DatabaseState) { d.state = s }

// Reset closes the database; every subsequent mutation fails.
func (d *Database) Reset() { d.state = StateClosed }

// gate rejects operations outside CREATED/IN_WORK.
func (d *Database) gate() error {
	switch d.state {
	case StateCreated, StateInWork:
		return nil
	default:
		return fmt.Errorf("database %q is %s: %w", d.Name, d.state, ErrInvalidState)
	}
}

// markWork records a successful mutation.
func (d *Database) markWork() {
	if d.state == StateCreated {
		d.state = StateInWork
	}
}

// Clone returns a deep copy.
func (d *Database) Clone() *Database {
	cp := &Database{
		Name:     d.Name,
		FilePath: d.FilePath,
		tables:   make(map[string]*Table, len(d.tables)),
		state:    d.state,
	}
	for name, t := range d.tables {
		cp.tables[name] = t.Clone()
	}
	return cp
}

// TableNames returns all table names sorted for deterministic
// enumeration.
func (d *Database) TableNames() []string {
	names := make([]string, 0, len(d.tables))
	for name := range d.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Table returns the named table.
func (d *Database) Table(name string) (*Table, bool) {
	t, ok := d.tables[name]
	return t, ok
}

// ContainsTable reports whether the named table exists.
func (d *Database) ContainsTable(name string) bool {
	_, ok := d.tables[name]
	return ok
}

// table resolves a table or reports it missing.
func (d *Database) table(name string) (*Table, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	t, ok := d.tables[name]
	if !ok {
		return nil, fmt.Errorf("table %q: %w", name, ErrNotFound)
	}
	return t, nil
}

// CreateTable creates a table from column specs.
func (d *Database) CreateTable(name string, specs []ColumnSpec) error {
	if err := d.gate(); err != nil {
		return err
	}
	if err := ValidateName(name); err != nil {
		return err
	}
	if d.ContainsTable(name) {
		return fmt.Errorf("table %q: %w", name, ErrAlreadyExists)
	}
	t := NewTable()
	for _, spec := range specs {
		if err := t.CreateColumn(spec, d); err != nil {
			return fmt.Errorf("table %q: %w", name, err)
		}
	}
	d.tables[name] = t
	d.markWork()
	return nil
}

// PutTable installs a table under the given name, replacing any existing
// one. Undo and image loading use it to restore captured state.
func (d *Database) PutTable(name string, t *Table) {
	d.tables[name] = t
}

// DropTable removes a table.
func (d *Database) DropTable(name string) error {
	if err := d.gate(); err != nil {
		return err
	}
	if _, err := d.table(name); err != nil {
		return err
	}
	delete(d.tables, name)
	d.markWork()
	return nil
}

// RemoveTable deletes a table without the state gate. Undo paths use it
// to reverse a CreateTable.
func (d *Database) RemoveTable(name string) {
	delete(d.tables, name)
}

// RenameTable moves a table to a new name.
func (d *Database) RenameTable(oldName, newName string) error {
	if err := d.gate(); err != nil {
		return err
	}
	t, err := d.table(oldName)
	if err != nil {
		return err
	}
	if err := ValidateName(newName); err != nil {
		return err
	}
	if d.ContainsTable(newName) {
		return fmt.Errorf("table %q: %w", newName, ErrAlreadyExists)
	}
	delete(d.tables, oldName)
	d.tables[newName] = t
	d.markWork()
	return nil
}

// AlterTable applies the spec's phases in order (add, modify, drop).
// The alteration is all-or-nothing: the first failure restores the
// table's pre-alter image.
func (d *Database) AlterTable(name string, alter AlterSpec) error {
	if err := d.gate(); err != nil {
		return err
	}
	t, err := d.table(name)
	if err != nil {
		return err
	}
	backup := t.Clone()
	if err := d.applyAlter(t, alter); err != nil {
		d.tables[name] = backup
		return fmt.Errorf("alter table %q: %w", name, err)
	}
	d.markWork()
	return nil
}

func (d *Database) applyAlter(t *Table, alter AlterSpec) error {
	for _, spec := range alter.New {
		if err := t.CreateColumn(spec, d); err != nil {
			return err
		}
	}
	for _, mod := range alter.Modified {
		switch {
		case mod.Type != nil:
			if err := t.ModifyColumnType(mod.Column, *mod.Type); err != nil {
				return err
			}
		default:
			if err := t.ModifyColumnConstraints(mod.Column, mod.Constraints, d); err != nil {
				return err
			}
		}
	}
	for _, drop := range alter.Dropped {
		if drop.Constraint == "" {
			if err := t.DropColumn(drop.Column); err != nil {
				return err
			}
			continue
		}
		if err := t.DropConstraint(drop.Column, drop.Constraint); err != nil {
			return err
		}
	}
	return nil
}

// Insert appends rows to a table. The whole batch is all-or-nothing:
// a failing row restores the table's pre-insert image.
func (d *Database) Insert(table string, columns []string, rows [][]Value) error {
	if err := d.gate(); err != nil {
		return err
	}
	t, err := d.table(table)
	if err != nil {
		return err
	}
	backup := t.Clone()
	for _, row := range rows {
		if err := t.Insert(columns, row, d); err != nil {
			d.tables[table] = backup
			return fmt.Errorf("insert into %q: %w", table, err)
		}
	}
	d.markWork()
	return nil
}

// Update rewrites matching rows of a table.
func (d *Database) Update(table string, assigns []Assignment, filter RowFilter) (int, error) {
	if err := d.gate(); err != nil {
		return 0, err
	}
	t, err := d.table(table)
	if err != nil {
		return 0, err
	}
	n, err := t.Update(assigns, filter, d)
	if err != nil {
		return 0, fmt.Errorf("update %q: %w", table, err)
	}
	d.markWork()
	return n, nil
}

// Delete compacts matching rows out of a table.
func (d *Database) Delete(table string, filter RowFilter) (int, error) {
	if err := d.gate(); err != nil {
		return 0, err
	}
	t, err := d.table(table)
	if err != nil {
		return 0, err
	}
	n, err := t.Delete(filter)
	if err != nil {
		return 0, fmt.Errorf("delete from %q: %w", table, err)
	}
	d.markWork()
	return n, nil
}

// Select materializes matching rows of a table.
func (d *Database) Select(table string, columns []string, filter RowFilter) (*Response, error) {
	if err := d.gate(); err != nil {
		return nil, err
	}
	t, err := d.table(table)
	if err != nil {
		return nil, err
	}
	resp, err := t.Select(table, columns, filter)
	if err != nil {
		return nil, fmt.Errorf("select from %q: %w", table, err)
	}
	return resp, nil
}

// Restore replaces this database's tables with deep copies of the
// other's. Name, path, and state keep their current values.
func (d *Database) Restore(other *Database) error {
	if other == nil {
		return fmt.Errorf("restore source: %w", ErrNotFound)
	}
	if err := d.gate(); err != nil {
		return err
	}
	d.tables = make(map[string]*Table, len(other.tables))
	for name, t := range other.tables {
		d.tables[name] = t.Clone()
	}
	return nil
}

// PrimaryKeyValues implements ParentLookup against this database: it
// returns the body of the named table's primary key column.
func (d *Database) PrimaryKeyValues(table string) ([]Value, error) {
	t, ok := d.tables[table]
	if !ok {
		return nil, fmt.Errorf("table %q: %w", table, ErrNotFound)
	}
	for _, name := range t.ColumnNames() {
		col, _ := t.Column(name)
		if col.HasKind(ConstraintPrimaryKey) {
			return append([]Value(nil), col.Body...), nil
		}
	}
	return nil, fmt.Errorf("table %q has no primary key: %w", table, ErrNotFound)
}
