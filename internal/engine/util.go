package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// UtilManager serves the non-mutating service operations: listing
// databases under a root and tables of the open database.
type UtilManager struct {
	ed *Editor
}

// ListDatabases returns the database names found under the root: every
// subdirectory containing a matching <name>.db image, sorted.
func (m *UtilManager) ListDatabases(root string) ([]string, error) {
	dir := m.ed.rootDir(root)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		image := filepath.Join(dir, entry.Name(), entry.Name()+".db")
		if _, err := os.Stat(image); err == nil {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// ListTables returns the open database's table names, sorted.
func (m *UtilManager) ListTables() ([]string, error) {
	db, err := m.ed.requireOpen()
	if err != nil {
		return nil, err
	}
	return db.TableNames(), nil
}

// listingResponse wraps a name list as a single-column response so the
// printer renders database and table listings like any select result.
func listingResponse(title string, names []string) *types.Response {
	resp := types.NewResponse(title, []string{"name"})
	for _, name := range names {
		resp.AppendRow([]types.Value{types.NewString(name)})
	}
	return resp
}
