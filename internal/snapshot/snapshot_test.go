package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shelf/internal/sql"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// buildSampleDatabase assembles a database exercising every value type,
// NULLs, defaults, and every constraint kind.
func buildSampleDatabase(t *testing.T) *types.Database {
	t.Helper()
	c := sql.NewCompiler(0)
	db, err := types.NewDatabase("sample", "/tmp/sample/sample.db")
	require.NoError(t, err)

	deptSpec, err := c.ParseColumnDef("id INTEGER PRIMARY KEY")
	require.NoError(t, err)
	require.NoError(t, db.CreateTable("departments", []types.ColumnSpec{deptSpec}))
	require.NoError(t, db.Insert("departments", []string{"id"}, [][]types.Value{
		{types.NewInteger(1)}, {types.NewInteger(2)},
	}))

	var specs []types.ColumnSpec
	for _, def := range []string{
		"id INTEGER PRIMARY KEY",
		"name STRING UNIQUE",
		"age INTEGER NOT NULL CHECK(age >= 18)",
		"salary REAL DEFAULT 0.0",
		"is_boss BOOLEAN DEFAULT false",
		"dept INTEGER FOREIGN KEY REFERENCES departments",
	} {
		spec, err := c.ParseColumnDef(def)
		require.NoError(t, err)
		specs = append(specs, spec)
	}
	require.NoError(t, db.CreateTable("employees", specs))
	require.NoError(t, db.Insert("employees",
		[]string{"id", "name", "age", "salary", "dept"},
		[][]types.Value{
			{types.NewInteger(1), types.NewString("John"), types.NewInteger(30), types.NewReal(1200.5), types.NewInteger(1)},
			{types.NewInteger(2), types.NewString("Alice"), types.NewInteger(25), types.NewReal(990.0), types.NewNull()},
		}))
	return db
}

// assertDatabasesEqual compares two databases value-wise.
func assertDatabasesEqual(t *testing.T, want, got *types.Database) {
	t.Helper()
	require.Equal(t, want.Name, got.Name)
	require.Equal(t, want.TableNames(), got.TableNames())
	for _, name := range want.TableNames() {
		wt, _ := want.Table(name)
		gt, _ := got.Table(name)
		require.Equal(t, wt.ColumnNames(), gt.ColumnNames(), "table %s", name)
		require.Equal(t, wt.RowCount(), gt.RowCount(), "table %s", name)
		for _, colName := range wt.ColumnNames() {
			wc, _ := wt.Column(colName)
			gc, _ := gt.Column(colName)
			assert.Equal(t, wc.Type, gc.Type, "%s.%s type", name, colName)
			assert.Equal(t, wc.Default, gc.Default, "%s.%s default", name, colName)
			require.Len(t, gc.Constraints, len(wc.Constraints), "%s.%s constraints", name, colName)
			for i := range wc.Constraints {
				assert.Equal(t, wc.Constraints[i].Name, gc.Constraints[i].Name)
				assert.Equal(t, wc.Constraints[i].Kind, gc.Constraints[i].Kind)
				assert.Equal(t, wc.Constraints[i].Expr, gc.Constraints[i].Expr)
				assert.Equal(t, wc.Constraints[i].Parent, gc.Constraints[i].Parent)
			}
			require.Len(t, gc.Body, len(wc.Body))
			for i := range wc.Body {
				assert.True(t, wc.Body[i].Equal(gc.Body[i]),
					"%s.%s[%d] = %v, want %v", name, colName, i, gc.Body[i], wc.Body[i])
			}
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	db := buildSampleDatabase(t)
	data, err := Encode(db)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	got, err := Decode(data, db.FilePath, sql.NewCompiler(0))
	require.NoError(t, err)
	assertDatabasesEqual(t, db, got)
}

func TestEncodeIsDeterministic(t *testing.T) {
	db := buildSampleDatabase(t)
	first, err := Encode(db)
	require.NoError(t, err)
	second, err := Encode(db.Clone())
	require.NoError(t, err)
	assert.Equal(t, first, second, "identical databases must encode identically")
}

func TestDecodedCheckConstraintEnforces(t *testing.T) {
	db := buildSampleDatabase(t)
	data, err := Encode(db)
	require.NoError(t, err)
	got, err := Decode(data, db.FilePath, sql.NewCompiler(0))
	require.NoError(t, err)

	// The recompiled CHECK must still reject under-age rows.
	err = got.Insert("employees", []string{"id", "name", "age"},
		[][]types.Value{{types.NewInteger(9), types.NewString("Kid"), types.NewInteger(10)}})
	assert.ErrorIs(t, err, types.ErrConstraintViolation)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	db := buildSampleDatabase(t)
	path := filepath.Join(t.TempDir(), "sample.db")
	require.NoError(t, Save(db, path))

	got, err := Load(path, sql.NewCompiler(0))
	require.NoError(t, err)
	assert.Equal(t, path, got.FilePath)
	assertDatabasesEqual(t, db, got)
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.db")
	require.NoError(t, os.WriteFile(path, []byte("not a database image"), 0644))
	_, err := Load(path, sql.NewCompiler(0))
	assert.ErrorIs(t, err, ErrBadImage)
}

func TestDecodeRejectsTruncated(t *testing.T) {
	db := buildSampleDatabase(t)
	data, err := Encode(db)
	require.NoError(t, err)
	_, err = Decode(data[:len(data)/2], "", sql.NewCompiler(0))
	assert.ErrorIs(t, err, ErrBadImage)
}
