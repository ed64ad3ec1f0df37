// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package markdown

import (
	"fmt"
	"strings"
)

// StructuralMismatchError reports a table block whose flat cell sequence
// does not match its declared dimensions. The document fails; the run
// continues.
type StructuralMismatchError struct {
	Rows  int
	Cols  int
	Cells int
}

func (e *StructuralMismatchError) Error() string {
	return fmt.Sprintf("table structure mismatch: %d cells for %dx%d", e.Cells, e.Rows, e.Cols)
}

// Convert renders a parsed document as Markdown. Block outputs are joined
// by exactly one blank line, in document order. Unsupported blocks and
// zero-sized tables emit nothing. The only error is a table whose cell
// count does not equal rows*cols.
func Convert(doc *Document) (string, error) {
	var parts []string
	for _, b := range doc.Blocks {
		switch b.Type {
		case BlockText:
			parts = append(parts, renderText(b))
		case BlockTable:
			out, err := renderTable(b)
			if err != nil {
				return "", err
			}
			if out != "" {
				parts = append(parts, out)
			}
		case BlockUnsupported:
			// No output, but never an error.
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

// renderRun wraps the run text in the canonical nesting order
// bold, italic, strikethrough, inline-code.
func renderRun(r Run) string {
	out := r.Text
	if r.Bold {
		out = "**" + out + "**"
	}
	if r.Italic {
		out = "*" + out + "*"
	}
	if r.Strike {
		out = "~~" + out + "~~"
	}
	if r.Code {
		out = "`" + out + "`"
	}
	return out
}

func renderText(b Block) string {
	var sb strings.Builder
	for _, r := range b.Runs {
		sb.WriteString(renderRun(r))
	}
	out := strings.TrimSpace(sb.String())

	if b.Heading >= 1 && b.Heading <= 6 {
		out = strings.Repeat("#", b.Heading) + " " + out
	}
	if b.Quoted {
		lines := strings.Split(out, "\n")
		for i, line := range lines {
			lines[i] = "> " + line
		}
		out = strings.Join(lines, "\n")
	}
	return out
}

func renderTable(b Block) (string, error) {
	if len(b.Cells) != b.Rows*b.Cols {
		return "", &StructuralMismatchError{Rows: b.Rows, Cols: b.Cols, Cells: len(b.Cells)}
	}
	if b.Rows == 0 || b.Cols == 0 {
		return "", nil
	}

	var lines []string
	row := make([]string, b.Cols)

	for c := 0; c < b.Cols; c++ {
		row[c] = escapeCell(b.Cells[c])
	}
	lines = append(lines, "| "+strings.Join(row, " | ")+" |")

	sep := make([]string, b.Cols)
	for c := range sep {
		sep[c] = "---"
	}
	lines = append(lines, "| "+strings.Join(sep, " | ")+" |")

	for r := 1; r < b.Rows; r++ {
		for c := 0; c < b.Cols; c++ {
			row[c] = escapeCell(b.Cells[r*b.Cols+c])
		}
		lines = append(lines, "| "+strings.Join(row, " | ")+" |")
	}
	return strings.Join(lines, "\n"), nil
}

// escapeCell keeps literal pipes from being read as column separators and
// folds newlines, which Markdown tables cannot represent.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
