package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

func TestParseColumnDef(t *testing.T) {
	c := NewCompiler(0)

	t.Run("name and type only", func(t *testing.T) {
		spec, err := c.ParseColumnDef("id INTEGER")
		require.NoError(t, err)
		assert.Equal(t, "id", spec.Name)
		assert.Equal(t, types.Integer, spec.Type)
		assert.Empty(t, spec.Constraints)
	})

	t.Run("full constraint stack", func(t *testing.T) {
		spec, err := c.ParseColumnDef("age INTEGER NOT NULL CHECK(age >= 18)")
		require.NoError(t, err)
		require.Len(t, spec.Constraints, 2)
		assert.Equal(t, "age_not_null_constraint", spec.Constraints[0].Name)
		assert.Equal(t, types.ConstraintNotNull, spec.Constraints[0].Kind)
		assert.Equal(t, "age_check_constraint", spec.Constraints[1].Name)
		assert.Equal(t, types.ConstraintCheck, spec.Constraints[1].Kind)
		assert.Equal(t, "age >= 18", spec.Constraints[1].Expr)
		require.NotNil(t, spec.Constraints[1].Filter)

		ok, err := spec.Constraints[1].Filter.Matches(types.Row{"age": types.NewInteger(21)})
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = spec.Constraints[1].Filter.Matches(types.Row{"age": types.NewInteger(15)})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("primary key and unique", func(t *testing.T) {
		spec, err := c.ParseColumnDef("id INTEGER PRIMARY KEY")
		require.NoError(t, err)
		require.Len(t, spec.Constraints, 1)
		assert.Equal(t, types.ConstraintPrimaryKey, spec.Constraints[0].Kind)

		spec, err = c.ParseColumnDef("name STRING UNIQUE")
		require.NoError(t, err)
		require.Len(t, spec.Constraints, 1)
		assert.Equal(t, types.ConstraintUnique, spec.Constraints[0].Kind)
	})

	t.Run("foreign key", func(t *testing.T) {
		spec, err := c.ParseColumnDef("dept INTEGER FOREIGN KEY REFERENCES departments")
		require.NoError(t, err)
		require.Len(t, spec.Constraints, 1)
		assert.Equal(t, types.ConstraintForeignKey, spec.Constraints[0].Kind)
		assert.Equal(t, "departments", spec.Constraints[0].Parent)
	})

	t.Run("default literal", func(t *testing.T) {
		spec, err := c.ParseColumnDef("is_boss BOOLEAN DEFAULT false")
		require.NoError(t, err)
		require.NotNil(t, spec.Default)
		assert.True(t, spec.Default.Equal(types.NewBoolean(false)))

		spec, err = c.ParseColumnDef("note STRING DEFAULT 'none set'")
		require.NoError(t, err)
		require.NotNil(t, spec.Default)
		assert.True(t, spec.Default.Equal(types.NewString("none set")))

		// Integer defaults widen into REAL columns.
		spec, err = c.ParseColumnDef("salary REAL DEFAULT 0")
		require.NoError(t, err)
		require.NotNil(t, spec.Default)
		assert.True(t, spec.Default.Equal(types.NewReal(0)))
	})

	t.Run("errors", func(t *testing.T) {
		bad := []string{
			"",
			"id",
			"id VARCHAR",
			"age INTEGER CHECK age > 18",
			"age INTEGER CHECK(age > 18",
			"dept INTEGER FOREIGN KEY departments",
			"x INTEGER DEFAULT",
			"x INTEGER WIBBLE",
			"x BOOLEAN DEFAULT 7",
		}
		for _, def := range bad {
			_, err := c.ParseColumnDef(def)
			assert.Error(t, err, "def %q", def)
		}
	})
}

func TestParseModifySpec(t *testing.T) {
	c := NewCompiler(0)

	mod, err := c.ParseModifySpec("age REAL")
	require.NoError(t, err)
	assert.Equal(t, "age", mod.Column)
	require.NotNil(t, mod.Type)
	assert.Equal(t, types.Real, *mod.Type)
	assert.Empty(t, mod.Constraints)

	mod, err = c.ParseModifySpec("name NOT NULL UNIQUE")
	require.NoError(t, err)
	assert.Equal(t, "name", mod.Column)
	assert.Nil(t, mod.Type)
	require.Len(t, mod.Constraints, 2)
	assert.Equal(t, types.ConstraintNotNull, mod.Constraints[0].Kind)
	assert.Equal(t, types.ConstraintUnique, mod.Constraints[1].Kind)

	_, err = c.ParseModifySpec("age")
	assert.ErrorIs(t, err, types.ErrParse)
}

func TestParseDropSpec(t *testing.T) {
	drop, err := ParseDropSpec("age")
	require.NoError(t, err)
	assert.Equal(t, types.DropSpec{Column: "age"}, drop)

	drop, err = ParseDropSpec("age age_check_constraint")
	require.NoError(t, err)
	assert.Equal(t, types.DropSpec{Column: "age", Constraint: "age_check_constraint"}, drop)

	drop, err = ParseDropSpec("age NOT NULL")
	require.NoError(t, err)
	assert.Equal(t, types.DropSpec{Column: "age", Constraint: "NOT NULL"}, drop)

	_, err = ParseDropSpec("   ")
	assert.ErrorIs(t, err, types.ErrParse)
}

func TestParseAssignments(t *testing.T) {
	assigns, err := ParseAssignments([]string{"age = 18", "name = 'John'", "note = new_value"})
	require.NoError(t, err)
	require.Len(t, assigns, 3)
	assert.Equal(t, "age", assigns[0].Column)
	assert.True(t, assigns[0].Value.Equal(types.NewInteger(18)))
	assert.True(t, assigns[1].Value.Equal(types.NewString("John")))
	// A bare word that is no literal is taken as a string.
	assert.True(t, assigns[2].Value.Equal(types.NewString("new_value")))

	_, err = ParseAssignments([]string{"no equals sign"})
	assert.ErrorIs(t, err, types.ErrParse)
	_, err = ParseAssignments([]string{"= 5"})
	assert.ErrorIs(t, err, types.ErrParse)
	_, err = ParseAssignments([]string{"x ="})
	assert.ErrorIs(t, err, types.ErrParse)
}
