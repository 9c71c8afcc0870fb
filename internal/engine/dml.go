package engine

import (
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// DMLManager executes row operations against the open database.
type DMLManager struct {
	ed *Editor
}

// Insert appends the given rows.
func (m *DMLManager) Insert(table string, columns []string, rows [][]types.Value) error {
	db, err := m.ed.requireOpen()
	if err != nil {
		return err
	}
	return db.Insert(table, columns, rows)
}

// Update rewrites matching rows.
func (m *DMLManager) Update(table string, assigns []types.Assignment, filter types.RowFilter) (int, error) {
	db, err := m.ed.requireOpen()
	if err != nil {
		return 0, err
	}
	return db.Update(table, assigns, filter)
}

// Delete compacts matching rows away.
func (m *DMLManager) Delete(table string, filter types.RowFilter) (int, error) {
	db, err := m.ed.requireOpen()
	if err != nil {
		return 0, err
	}
	return db.Delete(table, filter)
}

// Select materializes matching rows.
func (m *DMLManager) Select(table string, columns []string, filter types.RowFilter) (*types.Response, error) {
	db, err := m.ed.requireOpen()
	if err != nil {
		return nil, err
	}
	return db.Select(table, columns, filter)
}
