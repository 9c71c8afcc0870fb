// Package sqlite exports database images into SQLite files so external
// tooling can inspect shelf data with stock sqlite clients. The export
// is one-way; shelf's own persistence stays with its binary images.
package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Export writes every table of the database into a fresh SQLite file at
// path. Existing files are overwritten table by table via DROP TABLE IF
// EXISTS. NULL cells export as SQL NULLs; booleans as 0/1.
func Export(db *types.Database, path string) error {
	if db == nil {
		return fmt.Errorf("no database to export: %w", types.ErrInvalidState)
	}
	out, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() {
		if err := out.Close(); err != nil {
			slog.Warn("could not close export file", "path", path, "err", err)
		}
	}()

	for _, name := range db.TableNames() {
		tbl, _ := db.Table(name)
		if err := exportTable(out, name, tbl); err != nil {
			return fmt.Errorf("exporting table %q: %w", name, err)
		}
	}
	return nil
}

func exportTable(out *sql.DB, name string, tbl *types.Table) error {
	columns := tbl.ColumnNames()
	if len(columns) == 0 {
		return nil
	}
	if _, err := out.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %q", name)); err != nil {
		return err
	}
	if _, err := out.Exec(createTableSQL(name, columns, tbl)); err != nil {
		return err
	}

	tx, err := out.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(insertSQL(name, columns))
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for row := 0; row < tbl.RowCount(); row++ {
		args := make([]any, len(columns))
		for i, colName := range columns {
			col, _ := tbl.Column(colName)
			args[i] = sqlValue(col.Body[row])
		}
		if _, err := stmt.Exec(args...); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// createTableSQL maps shelf column types onto SQLite storage classes.
func createTableSQL(name string, columns []string, tbl *types.Table) string {
	defs := make([]string, len(columns))
	for i, colName := range columns {
		col, _ := tbl.Column(colName)
		defs[i] = fmt.Sprintf("%q %s", colName, sqliteType(col.Type))
	}
	return fmt.Sprintf("CREATE TABLE %q (%s)", name, strings.Join(defs, ", "))
}

func insertSQL(name string, columns []string) string {
	quoted := make([]string, len(columns))
	holes := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = fmt.Sprintf("%q", c)
		holes[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)",
		name, strings.Join(quoted, ", "), strings.Join(holes, ", "))
}

func sqliteType(t types.DataType) string {
	switch t {
	case types.Integer, types.Boolean:
		return "INTEGER"
	case types.Real:
		return "REAL"
	default:
		return "TEXT"
	}
}

// sqlValue converts a cell for database/sql.
func sqlValue(v types.Value) any {
	if v.IsNull() {
		return nil
	}
	switch v.Type {
	case types.Integer:
		return v.I64
	case types.Real:
		return v.F64
	case types.Boolean:
		if v.B {
			return int64(1)
		}
		return int64(0)
	default:
		return v.S
	}
}
