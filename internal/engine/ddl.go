package engine

import (
	"fmt"

	"github.com/mesh-intelligence/shelf/internal/sql"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// DDLManager executes schema operations against the open database.
type DDLManager struct {
	ed *Editor
}

// CreateTable creates a table from parsed column specs.
func (m *DDLManager) CreateTable(name string, specs []types.ColumnSpec) error {
	db, err := m.ed.requireOpen()
	if err != nil {
		return err
	}
	return db.CreateTable(name, specs)
}

// AlterTable applies up to three phases of changes parsed from
// definition strings.
func (m *DDLManager) AlterTable(table string, spec types.AlterSpec) error {
	db, err := m.ed.requireOpen()
	if err != nil {
		return err
	}
	return db.AlterTable(table, spec)
}

// DropTable removes a table.
func (m *DDLManager) DropTable(name string) error {
	db, err := m.ed.requireOpen()
	if err != nil {
		return err
	}
	return db.DropTable(name)
}

// RenameTable moves a table to a new name.
func (m *DDLManager) RenameTable(oldName, newName string) error {
	db, err := m.ed.requireOpen()
	if err != nil {
		return err
	}
	return db.RenameTable(oldName, newName)
}

// ParseColumnDefs parses a definition list, requiring at least one.
func ParseColumnDefs(compiler *sql.Compiler, defs []string) ([]types.ColumnSpec, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("at least one column definition required: %w", types.ErrParse)
	}
	specs := make([]types.ColumnSpec, 0, len(defs))
	for _, def := range defs {
		spec, err := compiler.ParseColumnDef(def)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// ParseAlterSpec parses the three optional definition lists of an ALTER
// into a single spec. Nil or empty lists skip their phase.
func ParseAlterSpec(compiler *sql.Compiler, newCols, modifiedCols, droppedCols []string) (types.AlterSpec, error) {
	var spec types.AlterSpec
	for _, def := range newCols {
		col, err := compiler.ParseColumnDef(def)
		if err != nil {
			return types.AlterSpec{}, err
		}
		spec.New = append(spec.New, col)
	}
	for _, def := range modifiedCols {
		mod, err := compiler.ParseModifySpec(def)
		if err != nil {
			return types.AlterSpec{}, err
		}
		spec.Modified = append(spec.Modified, mod)
	}
	for _, def := range droppedCols {
		drop, err := sql.ParseDropSpec(def)
		if err != nil {
			return types.AlterSpec{}, err
		}
		spec.Dropped = append(spec.Dropped, drop)
	}
	return spec, nil
}
