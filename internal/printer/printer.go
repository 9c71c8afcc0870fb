// Package printer renders select responses as fixed-width ASCII tables,
// either to a writer (console) or to a file.
package printer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// OutputKind selects the print target.
type OutputKind int

const (
	Console OutputKind = iota
	File
)

// Render writes the response as an ASCII table:
//
//	+----+-------+
//	| id | name  |
//	+----+-------+
//	| 1  | John  |
//	| 2  | Alice |
//	+----+-------+
func Render(resp *types.Response, w io.Writer) error {
	columns := resp.Columns()
	if len(columns) == 0 {
		_, err := fmt.Fprintln(w, "(no columns)")
		return err
	}
	widths := make([]int, len(columns))
	for i, name := range columns {
		widths[i] = len(name)
	}
	rows := resp.RowCount()
	cells := make([][]string, rows)
	for r := 0; r < rows; r++ {
		cells[r] = make([]string, len(columns))
		for i, name := range columns {
			v, err := resp.Get(name, r)
			if err != nil {
				return err
			}
			s := v.String()
			cells[r][i] = s
			if len(s) > widths[i] {
				widths[i] = len(s)
			}
		}
	}

	var b strings.Builder
	writeRule(&b, widths)
	writeRow(&b, columns, widths)
	writeRule(&b, widths)
	for r := 0; r < rows; r++ {
		writeRow(&b, cells[r], widths)
	}
	writeRule(&b, widths)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeRule(b *strings.Builder, widths []int) {
	for _, w := range widths {
		b.WriteString("+")
		b.WriteString(strings.Repeat("-", w+2))
	}
	b.WriteString("+\n")
}

func writeRow(b *strings.Builder, cells []string, widths []int) {
	for i, cell := range cells {
		b.WriteString("| ")
		b.WriteString(cell)
		b.WriteString(strings.Repeat(" ", widths[i]-len(cell)+1))
	}
	b.WriteString("|\n")
}

// Print renders the response to the chosen target. Console writes to
// console (falling back to stdout); File creates or truncates path.
func Print(resp *types.Response, kind OutputKind, path string, console io.Writer) error {
	switch kind {
	case Console:
		if console == nil {
			console = os.Stdout
		}
		return Render(resp, console)
	case File:
		if path == "" {
			return fmt.Errorf("file output needs a path: %w", types.ErrInvalidName)
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		defer f.Close()
		return Render(resp, f)
	default:
		return fmt.Errorf("output kind %d: %w", kind, types.ErrParse)
	}
}
