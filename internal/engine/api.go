package engine

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mesh-intelligence/shelf/internal/help"
	"github.com/mesh-intelligence/shelf/internal/printer"
	"github.com/mesh-intelligence/shelf/internal/sql"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// API is the engine façade. It constructs commands, routes them through
// the transaction manager, and records historical ones for undo. A
// mutex serializes command execution, so callers may share one API
// across goroutines; at any moment at most one command touches the
// database. The façade implements no kernel logic of its own.
type API struct {
	mu         sync.Mutex
	editor     *Editor
	history    *History
	catalog    *help.Catalog
	lastSelect *types.Response
	out        io.Writer
}

// New creates an engine handle for the given configuration. No database
// is open until Create or Open succeeds.
func New(cfg types.Config) (*API, error) {
	history := NewHistory()
	ed, err := NewEditor(cfg, history)
	if err != nil {
		return nil, err
	}
	catalog, err := help.Load()
	if err != nil {
		return nil, err
	}
	return &API{
		editor:  ed,
		history: history,
		catalog: catalog,
		out:     os.Stdout,
	}, nil
}

// SetOutput redirects console output (help, printed responses).
func (a *API) SetOutput(w io.Writer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.out = w
}

// Editor exposes the underlying editor for tooling (listing, export).
func (a *API) Editor() *Editor { return a.editor }

// dispatch runs one command under the engine lock. Inside an active
// transaction every non-TCL command is queued instead of executed;
// otherwise the command runs and, when historical, lands on the undo
// stack. Failing commands are never recorded.
func (a *API) dispatch(cmd Command) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.editor.tcl.Active() {
		if _, isTCL := cmd.(tclCommand); !isTCL {
			return a.editor.tcl.Enqueue(cmd)
		}
	}
	historical, err := cmd.Execute()
	if err != nil {
		return err
	}
	if historical {
		a.history.Push(cmd)
	}
	return nil
}

// Open loads an existing database. An empty root uses the configured
// data dir.
func (a *API) Open(name, root string) error {
	return a.dispatch(&openCommand{ed: a.editor, name: name, root: root})
}

// ShowDatabases lists databases under a root and keeps the listing as
// the last response for Print.
func (a *API) ShowDatabases(root string) error {
	return a.dispatch(&showDatabasesCommand{api: a, root: root})
}

// ShowTables lists the open database's tables.
func (a *API) ShowTables() error {
	return a.dispatch(&showTablesCommand{api: a})
}

// Help prints help for one command, or the whole catalog when topic is
// empty.
func (a *API) Help(topic string) error {
	return a.dispatch(&helpCommand{api: a, topic: topic})
}

// Create creates and opens a fresh database.
func (a *API) Create(name, root string) error {
	return a.dispatch(&createDatabaseCommand{ed: a.editor, name: name, root: root})
}

// CreateTable creates a table from textual column definitions, e.g.
// "id INTEGER PRIMARY KEY".
func (a *API) CreateTable(table string, columnDefs []string) error {
	specs, err := ParseColumnDefs(a.editor.compiler, columnDefs)
	if err != nil {
		return err
	}
	return a.dispatch(&createTableCommand{ed: a.editor, table: table, specs: specs})
}

// Alter applies up to three phases to a table: newCols adds columns,
// modifiedCols changes types or constraint sets, droppedCols removes
// columns ("col") or constraints ("col selector"). Nil lists skip their
// phase.
func (a *API) Alter(table string, newCols, modifiedCols, droppedCols []string) error {
	spec, err := ParseAlterSpec(a.editor.compiler, newCols, modifiedCols, droppedCols)
	if err != nil {
		return err
	}
	return a.dispatch(&alterTableCommand{ed: a.editor, table: table, spec: spec})
}

// Rename renames a table, or the open database when isDatabase is set.
func (a *API) Rename(oldName, newName string, isDatabase bool) error {
	if isDatabase {
		return a.dispatch(&renameDatabaseCommand{ed: a.editor, oldName: oldName, newName: newName})
	}
	return a.dispatch(&renameTableCommand{ed: a.editor, oldName: oldName, newName: newName})
}

// Drop removes a table, or a whole database when isDatabase is set.
func (a *API) Drop(name string, isDatabase bool) error {
	if isDatabase {
		return a.dispatch(&dropDatabaseCommand{ed: a.editor, name: name})
	}
	return a.dispatch(&dropTableCommand{ed: a.editor, table: name})
}

// Insert appends rows. Row cells accept native Go values (int, int64,
// float64, string, bool, nil) or types.Value.
func (a *API) Insert(table string, columns []string, rows [][]any) error {
	converted := make([][]types.Value, len(rows))
	for i, row := range rows {
		converted[i] = make([]types.Value, len(row))
		for j, cell := range row {
			v, err := types.FromAny(cell)
			if err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			converted[i][j] = v
		}
	}
	return a.dispatch(&insertCommand{ed: a.editor, table: table, columns: columns, rows: converted})
}

// Update rewrites cells of matching rows. Assignments are "column =
// literal" strings; an empty condition matches every row.
func (a *API) Update(table string, assignments []string, condition string) error {
	assigns, err := sql.ParseAssignments(assignments)
	if err != nil {
		return err
	}
	filter, err := a.editor.compiler.Compile(condition)
	if err != nil {
		return err
	}
	return a.dispatch(&updateCommand{ed: a.editor, table: table, assigns: assigns, filter: filter})
}

// Delete removes matching rows; an empty condition matches every row.
func (a *API) Delete(table string, condition string) error {
	filter, err := a.editor.compiler.Compile(condition)
	if err != nil {
		return err
	}
	return a.dispatch(&deleteCommand{ed: a.editor, table: table, filter: filter})
}

// Select materializes rows and keeps the response retrievable via
// LastSelectResponse. Nil columns selects all; an empty condition
// matches every row.
func (a *API) Select(table string, columns []string, condition string) error {
	filter, err := a.editor.compiler.Compile(condition)
	if err != nil {
		return err
	}
	return a.dispatch(&selectCommand{api: a, table: table, columns: columns, filter: filter})
}

// Begin starts a transaction.
func (a *API) Begin() error {
	return a.dispatch(&beginCommand{ed: a.editor})
}

// Commit drains and executes the transaction queue.
func (a *API) Commit() error {
	return a.dispatch(&commitCommand{ed: a.editor})
}

// Rollback restores the pre-begin snapshot.
func (a *API) Rollback() error {
	return a.dispatch(&rollbackCommand{ed: a.editor})
}

// Undo reverses the most recent historical command. With an empty
// history it is a no-op, not an error.
func (a *API) Undo() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	cmd := a.history.Pop()
	if cmd == nil {
		return nil
	}
	return cmd.Undo()
}

// HistorySize reports how many historical commands are undoable.
func (a *API) HistorySize() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.history.Size()
}

// LastSelectResponse returns the most recent select (or listing)
// response, or nil.
func (a *API) LastSelectResponse() *types.Response {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSelect
}

// Print renders the last select response as a fixed-width table to the
// console or to a file. Without a response it is a no-op. File output
// with an empty path falls back to the configured output path.
func (a *API) Print(kind printer.OutputKind, path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastSelect == nil {
		return nil
	}
	if kind == printer.File && path == "" {
		path = a.editor.cfg.OutputPath
	}
	return printer.Print(a.lastSelect, kind, path, a.out)
}

// Save persists the open database to its image file.
func (a *API) Save() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.editor.SaveDatabase()
}

// writeHelp renders one catalog entry, or all of them.
func (a *API) writeHelp(topic string) error {
	if topic != "" {
		entry, err := a.catalog.Lookup(topic)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(a.out, "%s\n  %s\n  example: %s\n", topic, entry.Description, entry.Example)
		return err
	}
	for _, name := range a.catalog.Names() {
		entry, err := a.catalog.Lookup(name)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(a.out, "%s\n  %s\n  example: %s\n", name, entry.Description, entry.Example); err != nil {
			return err
		}
	}
	return nil
}
