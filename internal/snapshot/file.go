package snapshot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/shelf/internal/sql"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Save writes the database image to path atomically: the encoding goes
// to a temp file in the same directory, is synced, then renamed over
// the target.
func Save(db *types.Database, path string) error {
	data, err := Encode(db)
	if err != nil {
		return fmt.Errorf("encoding %q: %w", db.Name, err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".image-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing image: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing image: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming image into place: %w", err)
	}
	return nil
}

// Load reads a database image from path. The returned database carries
// path as its FilePath.
func Load(path string, compiler *sql.Compiler) (*types.Database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	db, err := Decode(data, path, compiler)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return db, nil
}
