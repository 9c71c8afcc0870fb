package engine

import (
	"fmt"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Command is one reversible operation against the engine. Execute
// reports whether the command is historical, i.e. belongs on the undo
// stack. Undo restores the pre-image a historical command captured
// during Execute; for everything else it is a no-op.
type Command interface {
	Name() string
	Execute() (bool, error)
	Undo() error
}

// tclCommand marks Begin/Commit/Rollback so the dispatcher and the
// transaction queue can tell them apart from deferrable work.
type tclCommand interface {
	tcl()
}

// noUndo is embedded by non-historical commands.
type noUndo struct{}

func (noUndo) Undo() error { return nil }

// captureTable snapshots a table by value before a command mutates it.
// A missing table yields nil; the mutation itself reports the error.
func captureTable(ed *Editor, name string) *types.Table {
	if ed.db == nil {
		return nil
	}
	tbl, ok := ed.db.Table(name)
	if !ok {
		return nil
	}
	return tbl.Clone()
}

// restoreTable puts a captured pre-image back.
func restoreTable(ed *Editor, name string, pre *types.Table) error {
	db, err := ed.requireOpen()
	if err != nil {
		return err
	}
	if pre == nil {
		return nil
	}
	db.PutTable(name, pre)
	return nil
}

// ---- DDL commands ----

type createDatabaseCommand struct {
	ed   *Editor
	name string
	root string
}

func (c *createDatabaseCommand) Name() string { return fmt.Sprintf("create database %s", c.name) }

func (c *createDatabaseCommand) Execute() (bool, error) {
	if err := c.ed.CreateDatabase(c.name, c.root); err != nil {
		return false, err
	}
	return true, nil
}

func (c *createDatabaseCommand) Undo() error {
	_, err := c.ed.DropDatabase(c.name, c.root)
	return err
}

type createTableCommand struct {
	ed    *Editor
	table string
	specs []types.ColumnSpec
}

func (c *createTableCommand) Name() string { return fmt.Sprintf("create table %s", c.table) }

func (c *createTableCommand) Execute() (bool, error) {
	if err := c.ed.ddl.CreateTable(c.table, c.specs); err != nil {
		return false, err
	}
	return true, nil
}

func (c *createTableCommand) Undo() error {
	db, err := c.ed.requireOpen()
	if err != nil {
		return err
	}
	db.RemoveTable(c.table)
	return nil
}

type alterTableCommand struct {
	ed    *Editor
	table string
	spec  types.AlterSpec
	pre   *types.Table
}

func (c *alterTableCommand) Name() string { return fmt.Sprintf("alter table %s", c.table) }

func (c *alterTableCommand) Execute() (bool, error) {
	c.pre = captureTable(c.ed, c.table)
	if err := c.ed.ddl.AlterTable(c.table, c.spec); err != nil {
		return false, err
	}
	return true, nil
}

func (c *alterTableCommand) Undo() error {
	return restoreTable(c.ed, c.table, c.pre)
}

type dropTableCommand struct {
	ed    *Editor
	table string
	pre   *types.Table
}

func (c *dropTableCommand) Name() string { return fmt.Sprintf("drop table %s", c.table) }

func (c *dropTableCommand) Execute() (bool, error) {
	c.pre = captureTable(c.ed, c.table)
	if err := c.ed.ddl.DropTable(c.table); err != nil {
		return false, err
	}
	return true, nil
}

func (c *dropTableCommand) Undo() error {
	return restoreTable(c.ed, c.table, c.pre)
}

type dropDatabaseCommand struct {
	ed   *Editor
	name string
	root string
	pre  *types.Database
}

func (c *dropDatabaseCommand) Name() string { return fmt.Sprintf("drop database %s", c.name) }

func (c *dropDatabaseCommand) Execute() (bool, error) {
	pre, err := c.ed.DropDatabase(c.name, c.root)
	if err != nil {
		return false, err
	}
	c.pre = pre
	return true, nil
}

func (c *dropDatabaseCommand) Undo() error {
	if c.pre == nil {
		return nil
	}
	return c.ed.RestoreDatabase(c.pre)
}

type renameTableCommand struct {
	ed      *Editor
	oldName string
	newName string
}

func (c *renameTableCommand) Name() string {
	return fmt.Sprintf("rename table %s to %s", c.oldName, c.newName)
}

func (c *renameTableCommand) Execute() (bool, error) {
	if err := c.ed.ddl.RenameTable(c.oldName, c.newName); err != nil {
		return false, err
	}
	return true, nil
}

func (c *renameTableCommand) Undo() error {
	return c.ed.ddl.RenameTable(c.newName, c.oldName)
}

type renameDatabaseCommand struct {
	ed      *Editor
	oldName string
	newName string
}

func (c *renameDatabaseCommand) Name() string {
	return fmt.Sprintf("rename database %s to %s", c.oldName, c.newName)
}

func (c *renameDatabaseCommand) Execute() (bool, error) {
	if err := c.ed.RenameDatabase(c.oldName, c.newName); err != nil {
		return false, err
	}
	return true, nil
}

func (c *renameDatabaseCommand) Undo() error {
	return c.ed.RenameDatabase(c.newName, c.oldName)
}

// ---- DML commands ----

type insertCommand struct {
	ed      *Editor
	table   string
	columns []string
	rows    [][]types.Value
	pre     *types.Table
}

func (c *insertCommand) Name() string { return fmt.Sprintf("insert into %s", c.table) }

func (c *insertCommand) Execute() (bool, error) {
	c.pre = captureTable(c.ed, c.table)
	if err := c.ed.dml.Insert(c.table, c.columns, c.rows); err != nil {
		return false, err
	}
	return true, nil
}

func (c *insertCommand) Undo() error {
	return restoreTable(c.ed, c.table, c.pre)
}

type updateCommand struct {
	ed      *Editor
	table   string
	assigns []types.Assignment
	filter  types.RowFilter
	pre     *types.Table
}

func (c *updateCommand) Name() string { return fmt.Sprintf("update %s", c.table) }

func (c *updateCommand) Execute() (bool, error) {
	c.pre = captureTable(c.ed, c.table)
	if _, err := c.ed.dml.Update(c.table, c.assigns, c.filter); err != nil {
		return false, err
	}
	return true, nil
}

func (c *updateCommand) Undo() error {
	return restoreTable(c.ed, c.table, c.pre)
}

type deleteCommand struct {
	ed     *Editor
	table  string
	filter types.RowFilter
	pre    *types.Table
}

func (c *deleteCommand) Name() string { return fmt.Sprintf("delete from %s", c.table) }

func (c *deleteCommand) Execute() (bool, error) {
	c.pre = captureTable(c.ed, c.table)
	if _, err := c.ed.dml.Delete(c.table, c.filter); err != nil {
		return false, err
	}
	return true, nil
}

func (c *deleteCommand) Undo() error {
	return restoreTable(c.ed, c.table, c.pre)
}

type selectCommand struct {
	noUndo
	api     *API
	table   string
	columns []string
	filter  types.RowFilter
}

func (c *selectCommand) Name() string { return fmt.Sprintf("select from %s", c.table) }

func (c *selectCommand) Execute() (bool, error) {
	resp, err := c.api.editor.dml.Select(c.table, c.columns, c.filter)
	if err != nil {
		return false, err
	}
	c.api.lastSelect = resp
	return false, nil
}

// ---- TCL commands ----

type beginCommand struct {
	noUndo
	ed *Editor
}

func (c *beginCommand) tcl()         {}
func (c *beginCommand) Name() string { return "begin" }

func (c *beginCommand) Execute() (bool, error) {
	return false, c.ed.tcl.Begin()
}

type commitCommand struct {
	noUndo
	ed *Editor
}

func (c *commitCommand) tcl()         {}
func (c *commitCommand) Name() string { return "commit" }

func (c *commitCommand) Execute() (bool, error) {
	return false, c.ed.tcl.Commit()
}

type rollbackCommand struct {
	noUndo
	ed *Editor
}

func (c *rollbackCommand) tcl()         {}
func (c *rollbackCommand) Name() string { return "rollback" }

func (c *rollbackCommand) Execute() (bool, error) {
	return false, c.ed.tcl.Rollback()
}

// ---- service commands ----

type openCommand struct {
	noUndo
	ed   *Editor
	name string
	root string
}

func (c *openCommand) Name() string { return fmt.Sprintf("open %s", c.name) }

func (c *openCommand) Execute() (bool, error) {
	return false, c.ed.OpenDatabase(c.name, c.root)
}

type showDatabasesCommand struct {
	noUndo
	api  *API
	root string
}

func (c *showDatabasesCommand) Name() string { return "show databases" }

func (c *showDatabasesCommand) Execute() (bool, error) {
	names, err := c.api.editor.util.ListDatabases(c.root)
	if err != nil {
		return false, err
	}
	c.api.lastSelect = listingResponse("databases", names)
	return false, nil
}

type showTablesCommand struct {
	noUndo
	api *API
}

func (c *showTablesCommand) Name() string { return "show tables" }

func (c *showTablesCommand) Execute() (bool, error) {
	names, err := c.api.editor.util.ListTables()
	if err != nil {
		return false, err
	}
	c.api.lastSelect = listingResponse("tables", names)
	return false, nil
}

type helpCommand struct {
	noUndo
	api   *API
	topic string
}

func (c *helpCommand) Name() string { return "help" }

func (c *helpCommand) Execute() (bool, error) {
	return false, c.api.writeHelp(c.topic)
}
