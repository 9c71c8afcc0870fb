package types

import (
	"errors"
	"testing"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase("test_db", "/tmp/test_db/test_db.db")
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}
	return db
}

func usersSpecs() []ColumnSpec {
	return []ColumnSpec{
		{Name: "id", Type: Integer},
		{Name: "name", Type: String},
	}
}

func TestNewDatabaseValidatesName(t *testing.T) {
	for _, bad := range []string{"", "9lives", "has space", "a-b"} {
		if _, err := NewDatabase(bad, ""); !errors.Is(err, ErrInvalidName) {
			t.Errorf("NewDatabase(%q) error = %v, want ErrInvalidName", bad, err)
		}
	}
}

func TestDatabaseStateMachine(t *testing.T) {
	db := newTestDatabase(t)
	if got := db.State(); got != StateCreated {
		t.Fatalf("initial state = %v, want CREATED", got)
	}
	if err := db.CreateTable("users", usersSpecs()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if got := db.State(); got != StateInWork {
		t.Fatalf("state after first mutation = %v, want IN_WORK", got)
	}

	db.Reset()
	if got := db.State(); got != StateClosed {
		t.Fatalf("state after Reset = %v, want CLOSED", got)
	}
	err := db.CreateTable("more", usersSpecs())
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("CreateTable on closed database error = %v, want ErrInvalidState", err)
	}
	if _, err := db.Select("users", nil, nil); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("Select on closed database error = %v, want ErrInvalidState", err)
	}
}

func TestDatabaseCreateTableDuplicate(t *testing.T) {
	db := newTestDatabase(t)
	if err := db.CreateTable("users", usersSpecs()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := db.CreateTable("users", usersSpecs()); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("duplicate CreateTable error = %v, want ErrAlreadyExists", err)
	}
}

func TestDatabaseDropTable(t *testing.T) {
	db := newTestDatabase(t)
	if err := db.CreateTable("users", usersSpecs()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := db.DropTable("users"); err != nil {
		t.Fatalf("DropTable: %v", err)
	}
	if db.ContainsTable("users") {
		t.Error("table still present after drop")
	}
	if err := db.DropTable("users"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second DropTable error = %v, want ErrNotFound", err)
	}
}

func TestDatabaseRenameTable(t *testing.T) {
	db := newTestDatabase(t)
	if err := db.CreateTable("users", usersSpecs()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := db.RenameTable("users", "people"); err != nil {
		t.Fatalf("RenameTable: %v", err)
	}
	if db.ContainsTable("users") || !db.ContainsTable("people") {
		t.Error("rename did not move the table")
	}
}

func TestDatabaseTableNamesSorted(t *testing.T) {
	db := newTestDatabase(t)
	for _, name := range []string{"zebra", "alpha", "mid"} {
		if err := db.CreateTable(name, usersSpecs()); err != nil {
			t.Fatalf("CreateTable(%s): %v", name, err)
		}
	}
	want := []string{"alpha", "mid", "zebra"}
	got := db.TableNames()
	if len(got) != len(want) {
		t.Fatalf("TableNames = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("TableNames = %v, want %v", got, want)
		}
	}
}

func TestDatabaseAlterPhases(t *testing.T) {
	db := newTestDatabase(t)
	if err := db.CreateTable("users", usersSpecs()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	alter := AlterSpec{
		New:      []ColumnSpec{{Name: "age", Type: Integer}},
		Modified: []ModifySpec{{Column: "id", Type: typePtr(Integer)}},
		Dropped:  []DropSpec{{Column: "name"}},
	}
	if err := db.AlterTable("users", alter); err != nil {
		t.Fatalf("AlterTable: %v", err)
	}
	tbl, _ := db.Table("users")
	if !tbl.HasColumn("age") || tbl.HasColumn("name") {
		t.Errorf("columns after alter = %v", tbl.ColumnNames())
	}
}

func TestDatabaseAlterAtomicity(t *testing.T) {
	db := newTestDatabase(t)
	if err := db.CreateTable("users", usersSpecs()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	// The add phase succeeds, the drop phase names a missing column; the
	// whole alter must roll back, including the added column.
	alter := AlterSpec{
		New:     []ColumnSpec{{Name: "age", Type: Integer}},
		Dropped: []DropSpec{{Column: "ghost"}},
	}
	err := db.AlterTable("users", alter)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("AlterTable error = %v, want ErrNotFound", err)
	}
	tbl, _ := db.Table("users")
	if tbl.HasColumn("age") {
		t.Error("failed alter left its add phase applied")
	}
}

func TestDatabaseInsertBatchAtomicity(t *testing.T) {
	db := newTestDatabase(t)
	specs := []ColumnSpec{
		{Name: "id", Type: Integer, Constraints: []Constraint{
			{Name: "id_primary_key_constraint", Kind: ConstraintPrimaryKey},
		}},
	}
	if err := db.CreateTable("t", specs); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	rows := [][]Value{
		{NewInteger(1)},
		{NewInteger(2)},
		{NewInteger(1)}, // collides with the first row
	}
	err := db.Insert("t", []string{"id"}, rows)
	if !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("Insert error = %v, want ErrConstraintViolation", err)
	}
	tbl, _ := db.Table("t")
	if got := tbl.RowCount(); got != 0 {
		t.Fatalf("RowCount after failed batch = %d, want 0 (no partial insert)", got)
	}
}

func TestDatabaseForeignKey(t *testing.T) {
	db := newTestDatabase(t)
	parent := []ColumnSpec{
		{Name: "id", Type: Integer, Constraints: []Constraint{
			{Name: "id_primary_key_constraint", Kind: ConstraintPrimaryKey},
		}},
	}
	if err := db.CreateTable("departments", parent); err != nil {
		t.Fatalf("CreateTable(departments): %v", err)
	}
	if err := db.Insert("departments", []string{"id"}, [][]Value{{NewInteger(10)}}); err != nil {
		t.Fatalf("Insert(departments): %v", err)
	}
	child := []ColumnSpec{
		{Name: "id", Type: Integer},
		{Name: "dept", Type: Integer, Constraints: []Constraint{
			{Name: "dept_foreign_key_constraint", Kind: ConstraintForeignKey, Parent: "departments"},
		}},
	}
	if err := db.CreateTable("employees", child); err != nil {
		t.Fatalf("CreateTable(employees): %v", err)
	}

	if err := db.Insert("employees", []string{"id", "dept"}, [][]Value{{NewInteger(1), NewInteger(10)}}); err != nil {
		t.Fatalf("Insert with valid parent: %v", err)
	}
	err := db.Insert("employees", []string{"id", "dept"}, [][]Value{{NewInteger(2), NewInteger(99)}})
	if !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("Insert with missing parent error = %v, want ErrConstraintViolation", err)
	}
	// Null references are allowed; NOT NULL is a separate concern.
	if err := db.Insert("employees", []string{"id", "dept"}, [][]Value{{NewInteger(3), NewNull()}}); err != nil {
		t.Fatalf("Insert with NULL reference: %v", err)
	}
}

func TestDatabaseRestore(t *testing.T) {
	db := newTestDatabase(t)
	if err := db.CreateTable("users", usersSpecs()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := db.Insert("users", []string{"id", "name"}, [][]Value{{NewInteger(1), NewString("a")}}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	backup := db.Clone()

	if _, err := db.Delete("users", nil); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := db.CreateTable("extra", usersSpecs()); err != nil {
		t.Fatalf("CreateTable(extra): %v", err)
	}

	if err := db.Restore(backup); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if db.ContainsTable("extra") {
		t.Error("Restore kept a table the backup does not have")
	}
	tbl, _ := db.Table("users")
	if got := tbl.RowCount(); got != 1 {
		t.Errorf("users rows after restore = %d, want 1", got)
	}
}

func TestDatabaseRestoreIsDeep(t *testing.T) {
	db := newTestDatabase(t)
	if err := db.CreateTable("users", usersSpecs()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	backup := db.Clone()
	if err := db.Restore(backup); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	// Mutating the restored database must not leak into the backup.
	if err := db.Insert("users", []string{"id", "name"}, [][]Value{{NewInteger(1), NewString("x")}}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	src, _ := backup.Table("users")
	if got := src.RowCount(); got != 0 {
		t.Errorf("backup mutated through restore: rows = %d, want 0", got)
	}
}
