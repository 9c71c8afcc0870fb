package printer

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

func sampleResponse() *types.Response {
	resp := types.NewResponse("employees", []string{"id", "name"})
	resp.AppendRow([]types.Value{types.NewInteger(1), types.NewString("John")})
	resp.AppendRow([]types.Value{types.NewInteger(2), types.NewNull()})
	return resp
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(sampleResponse(), &buf))

	want := "" +
		"+----+------+\n" +
		"| id | name |\n" +
		"+----+------+\n" +
		"| 1  | John |\n" +
		"| 2  | NULL |\n" +
		"+----+------+\n"
	assert.Equal(t, want, buf.String())
}

func TestRenderNoColumns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(types.NewResponse("x", nil), &buf))
	assert.Contains(t, buf.String(), "(no columns)")
}

func TestPrintToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, Print(sampleResponse(), File, path, nil))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "| 1  | John |")
}

func TestPrintFileNeedsPath(t *testing.T) {
	err := Print(sampleResponse(), File, "", nil)
	assert.ErrorIs(t, err, types.ErrInvalidName)
}
