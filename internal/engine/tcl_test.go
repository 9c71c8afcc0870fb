package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

func TestTransactionProtocolErrors(t *testing.T) {
	t.Run("begin without open database", func(t *testing.T) {
		api, err := New(types.Config{DataDir: t.TempDir()})
		require.NoError(t, err)
		assert.ErrorIs(t, api.Begin(), types.ErrInvalidState)
	})

	t.Run("double begin", func(t *testing.T) {
		api := newTestAPI(t)
		require.NoError(t, api.Begin())
		assert.ErrorIs(t, api.Begin(), types.ErrTxActive)
		require.NoError(t, api.Rollback())
	})

	t.Run("commit without begin", func(t *testing.T) {
		api := newTestAPI(t)
		assert.ErrorIs(t, api.Commit(), types.ErrTxNotActive)
	})

	t.Run("rollback without begin", func(t *testing.T) {
		api := newTestAPI(t)
		assert.ErrorIs(t, api.Rollback(), types.ErrTxNotActive)
	})
}

func TestTransactionDefersWork(t *testing.T) {
	api := newTestAPI(t)
	require.NoError(t, api.CreateTable("t", []string{"id INTEGER"}))

	require.NoError(t, api.Begin())
	require.NoError(t, api.Insert("t", []string{"id"}, [][]any{{1}}))

	// The insert is queued, not applied: the live table is still empty.
	tbl, _ := api.Editor().Database().Table("t")
	assert.Equal(t, 0, tbl.RowCount())

	require.NoError(t, api.Commit())
	assert.Equal(t, 1, tbl.RowCount())
}

func TestCommitOrderMatchesEnqueueOrder(t *testing.T) {
	api := newTestAPI(t)
	require.NoError(t, api.CreateTable("t", []string{"id INTEGER"}))

	require.NoError(t, api.Begin())
	for i := 1; i <= 3; i++ {
		require.NoError(t, api.Insert("t", []string{"id"}, [][]any{{i}}))
	}
	require.NoError(t, api.Commit())

	require.NoError(t, api.Select("t", nil, ""))
	resp := api.LastSelectResponse()
	require.Equal(t, 3, resp.RowCount())
	for i := 0; i < 3; i++ {
		assert.True(t, respCell(t, resp, "id", i).Equal(types.NewInteger(int64(i+1))))
	}
}

func TestCommitFailureRollsBack(t *testing.T) {
	api := newTestAPI(t)
	require.NoError(t, api.CreateTable("t", []string{"id INTEGER PRIMARY KEY"}))
	require.NoError(t, api.Insert("t", []string{"id"}, [][]any{{1}}))
	historyBefore := api.HistorySize()

	require.NoError(t, api.Begin())
	require.NoError(t, api.Insert("t", []string{"id"}, [][]any{{2}}))
	require.NoError(t, api.Insert("t", []string{"id"}, [][]any{{1}})) // queued; collides at commit

	err := api.Commit()
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConstraintViolation)

	// Implicit rollback: only the pre-begin row remains, nothing new on
	// the history, and no transaction is active anymore.
	tbl, _ := api.Editor().Database().Table("t")
	assert.Equal(t, 1, tbl.RowCount())
	assert.Equal(t, historyBefore, api.HistorySize())
	assert.ErrorIs(t, api.Rollback(), types.ErrTxNotActive)
}

func TestCommittedCommandsAreUndoable(t *testing.T) {
	api := newTestAPI(t)
	require.NoError(t, api.CreateTable("t", []string{"id INTEGER"}))

	require.NoError(t, api.Begin())
	require.NoError(t, api.Insert("t", []string{"id"}, [][]any{{1}}))
	require.NoError(t, api.Commit())

	tbl, _ := api.Editor().Database().Table("t")
	require.Equal(t, 1, tbl.RowCount())

	require.NoError(t, api.Undo())
	tbl, _ = api.Editor().Database().Table("t")
	assert.Equal(t, 0, tbl.RowCount(), "undo reverses the committed insert")
}

func TestSnapshotFileLifecycle(t *testing.T) {
	api := newTestAPI(t)
	require.NoError(t, api.CreateTable("t", []string{"id INTEGER"}))
	dir := filepath.Dir(api.Editor().Database().FilePath)

	require.NoError(t, api.Begin())
	snaps, err := filepath.Glob(filepath.Join(dir, ".*.snapshot"))
	require.NoError(t, err)
	assert.Len(t, snaps, 1, "begin writes one snapshot file")

	require.NoError(t, api.Commit())
	snaps, err = filepath.Glob(filepath.Join(dir, ".*.snapshot"))
	require.NoError(t, err)
	assert.Empty(t, snaps, "commit discards the snapshot")
}

func TestRollbackRestoresAcrossDDL(t *testing.T) {
	api := newTestAPI(t)
	require.NoError(t, api.CreateTable("keep", []string{"id INTEGER"}))

	require.NoError(t, api.Begin())
	require.NoError(t, api.CreateTable("scratch", []string{"id INTEGER"}))
	require.NoError(t, api.Drop("keep", false))
	require.NoError(t, api.Rollback())

	db := api.Editor().Database()
	assert.True(t, db.ContainsTable("keep"))
	assert.False(t, db.ContainsTable("scratch"))
}

func TestStaleDataDirIsNotADatabase(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dataDir, "junk"), 0755))
	api, err := New(types.Config{DataDir: dataDir})
	require.NoError(t, err)

	require.NoError(t, api.ShowDatabases(""))
	assert.Equal(t, 0, api.LastSelectResponse().RowCount(),
		"directories without an image file are not databases")
}
