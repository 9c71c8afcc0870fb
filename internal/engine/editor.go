package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/shelf/internal/snapshot"
	"github.com/mesh-intelligence/shelf/internal/sql"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Editor owns the single open database of an engine handle together
// with the managers operating on it. All database lifecycle work
// (create, open, drop, rename, persist) funnels through it.
type Editor struct {
	cfg      types.Config
	compiler *sql.Compiler
	db       *types.Database

	ddl  *DDLManager
	dml  *DMLManager
	tcl  *TCLManager
	util *UtilManager
}

// NewEditor creates an editor with no database open. The history
// receives commands executed during transaction commits.
func NewEditor(cfg types.Config, history *History) (*Editor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Editor{
		cfg:      cfg,
		compiler: sql.NewCompiler(sql.DefaultCacheSize),
	}
	e.ddl = &DDLManager{ed: e}
	e.dml = &DMLManager{ed: e}
	e.util = &UtilManager{ed: e}
	e.tcl = &TCLManager{ed: e, history: history}
	return e, nil
}

// Database returns the open database, or nil.
func (e *Editor) Database() *types.Database { return e.db }

// DatabaseName returns the open database's name, or "".
func (e *Editor) DatabaseName() string {
	if e.db == nil {
		return ""
	}
	return e.db.Name
}

// requireOpen resolves the open database.
func (e *Editor) requireOpen() (*types.Database, error) {
	if e.db == nil {
		return nil, fmt.Errorf("no open database: %w", types.ErrInvalidState)
	}
	return e.db, nil
}

// rootDir resolves an optional root override against the configured
// data dir.
func (e *Editor) rootDir(path string) string {
	if path != "" {
		return path
	}
	return e.cfg.DataDir
}

// databasePath builds <root>/<name>/<name>.db.
func (e *Editor) databasePath(name, root string) string {
	return filepath.Join(e.rootDir(root), name, name+".db")
}

// CreateDatabase creates a fresh database, persists its empty image,
// and opens it.
func (e *Editor) CreateDatabase(name, root string) error {
	db, err := types.NewDatabase(name, e.databasePath(name, root))
	if err != nil {
		return err
	}
	if _, err := os.Stat(db.FilePath); err == nil {
		return fmt.Errorf("database %q: %w", name, types.ErrAlreadyExists)
	}
	if err := snapshot.Save(db, db.FilePath); err != nil {
		return err
	}
	e.db = db
	return nil
}

// OpenDatabase loads a database image from disk and makes it the open
// database.
func (e *Editor) OpenDatabase(name, root string) error {
	path := e.databasePath(name, root)
	db, err := snapshot.Load(path, e.compiler)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("database %q: %w", name, types.ErrNotFound)
		}
		return err
	}
	e.db = db
	return nil
}

// SaveDatabase persists the open database to its image file.
func (e *Editor) SaveDatabase() error {
	db, err := e.requireOpen()
	if err != nil {
		return err
	}
	return snapshot.Save(db, db.FilePath)
}

// DropDatabase deletes a database's directory. The pre-drop image is
// returned so the command layer can reverse the drop. Dropping the open
// database closes it.
func (e *Editor) DropDatabase(name, root string) (*types.Database, error) {
	path := e.databasePath(name, root)
	var pre *types.Database
	if e.db != nil && e.db.Name == name {
		pre = e.db.Clone()
	} else {
		loaded, err := snapshot.Load(path, e.compiler)
		if err != nil {
			return nil, fmt.Errorf("database %q: %w", name, types.ErrNotFound)
		}
		pre = loaded
	}
	if err := os.RemoveAll(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("removing database %q: %w", name, err)
	}
	if e.db != nil && e.db.Name == name {
		e.db.SetState(types.StateReset)
		e.db = nil
	}
	return pre, nil
}

// RestoreDatabase writes a previously captured image back to disk and
// reopens it. Undo of a drop uses it.
func (e *Editor) RestoreDatabase(pre *types.Database) error {
	if err := snapshot.Save(pre, pre.FilePath); err != nil {
		return err
	}
	pre.SetState(types.StateInWork)
	e.db = pre
	return nil
}

// RenameDatabase renames the open database on disk and in memory.
func (e *Editor) RenameDatabase(oldName, newName string) error {
	db, err := e.requireOpen()
	if err != nil {
		return err
	}
	if db.Name != oldName {
		return fmt.Errorf("database %q is not open: %w", oldName, types.ErrNotFound)
	}
	if err := types.ValidateName(newName); err != nil {
		return err
	}
	oldDir := filepath.Dir(db.FilePath)
	newDir := filepath.Join(filepath.Dir(oldDir), newName)
	if _, err := os.Stat(newDir); err == nil {
		return fmt.Errorf("database %q: %w", newName, types.ErrAlreadyExists)
	}
	if err := os.Rename(oldDir, newDir); err != nil {
		return fmt.Errorf("renaming database directory: %w", err)
	}
	oldFile := filepath.Join(newDir, oldName+".db")
	newFile := filepath.Join(newDir, newName+".db")
	if err := os.Rename(oldFile, newFile); err != nil {
		return fmt.Errorf("renaming database image: %w", err)
	}
	db.Name = newName
	db.FilePath = newFile
	return snapshot.Save(db, db.FilePath)
}
