package engine

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/shelf/internal/snapshot"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// TCLManager brackets command sequences in transactions. Begin writes a
// pre-transaction image of the open database to a snapshot file; queued
// commands execute on commit in FIFO order; rollback restores the
// snapshot. The snapshot path belongs exclusively to this manager
// between Begin and Commit/Rollback.
type TCLManager struct {
	ed      *Editor
	history *History

	active       bool
	snapshotPath string
	queue        []Command
}

// Active reports whether a transaction is in progress.
func (m *TCLManager) Active() bool { return m.active }

// Begin starts a transaction by snapshotting the open database next to
// its image file.
func (m *TCLManager) Begin() error {
	db, err := m.ed.requireOpen()
	if err != nil {
		return err
	}
	if m.active {
		return types.ErrTxActive
	}
	path := filepath.Join(
		filepath.Dir(db.FilePath),
		fmt.Sprintf(".%s.tx-%s.snapshot", db.Name, uuid.NewString()),
	)
	if err := snapshot.Save(db, path); err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	m.snapshotPath = path
	m.queue = nil
	m.active = true
	return nil
}

// Enqueue defers a command until commit. TCL commands cannot nest
// inside a transaction.
func (m *TCLManager) Enqueue(cmd Command) error {
	if !m.active {
		return types.ErrTxNotActive
	}
	if _, isTCL := cmd.(tclCommand); isTCL {
		return fmt.Errorf("%s: %w", cmd.Name(), types.ErrTxMisuse)
	}
	m.queue = append(m.queue, cmd)
	return nil
}

// Commit drains the queue in order against the live database. The first
// failing command triggers an implicit rollback and its error is
// surfaced. On success the new state is persisted to the database's
// image file, historical commands are recorded, and the snapshot is
// discarded.
func (m *TCLManager) Commit() error {
	db, err := m.ed.requireOpen()
	if err != nil {
		return err
	}
	if !m.active {
		return types.ErrTxNotActive
	}
	var executed []Command
	for _, cmd := range m.queue {
		historical, err := cmd.Execute()
		if err != nil {
			if rbErr := m.Rollback(); rbErr != nil {
				return fmt.Errorf("%s failed (%w); rollback also failed: %v", cmd.Name(), err, rbErr)
			}
			return fmt.Errorf("transaction rolled back: %s: %w", cmd.Name(), err)
		}
		if historical {
			executed = append(executed, cmd)
		}
	}
	if err := snapshot.Save(db, db.FilePath); err != nil {
		return fmt.Errorf("persisting committed state: %w", err)
	}
	// The transaction held: only now do its commands become undoable.
	for _, cmd := range executed {
		m.history.Push(cmd)
	}
	m.discardSnapshot()
	m.queue = nil
	m.active = false
	return nil
}

// Rollback restores the pre-transaction image and clears the queue.
// The restored state is also persisted so the image file matches the
// pre-begin snapshot again.
func (m *TCLManager) Rollback() error {
	db, err := m.ed.requireOpen()
	if err != nil {
		return err
	}
	if !m.active {
		return types.ErrTxNotActive
	}
	pre, err := snapshot.Load(m.snapshotPath, m.ed.compiler)
	if err != nil {
		return fmt.Errorf("reading transaction snapshot: %w", err)
	}
	if err := db.Restore(pre); err != nil {
		return fmt.Errorf("restoring pre-transaction state: %w", err)
	}
	if err := snapshot.Save(db, db.FilePath); err != nil {
		return fmt.Errorf("persisting restored state: %w", err)
	}
	m.discardSnapshot()
	m.queue = nil
	m.active = false
	return nil
}

// discardSnapshot removes the snapshot file. Removal failures do not
// fail the transaction; the stale file is only garbage at this point.
func (m *TCLManager) discardSnapshot() {
	if err := os.Remove(m.snapshotPath); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not remove transaction snapshot", "path", m.snapshotPath, "err", err)
	}
	m.snapshotPath = ""
}
