// Package report renders fixed-width text tables and key/value blocks for
// model summaries, test results, and influence listings. It is the text
// counterpart of the plots a notebook would draw: the same numbers, rendered
// for terminals and logs.
package report

import (
	"fmt"
	"math"
	"strings"
)

// Float formats a statistic with four decimals. NaN and infinities render as
// text so tables stay aligned.
func Float(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	default:
		return fmt.Sprintf("%.4f", v)
	}
}

// Int formats an integer cell.
func Int(v int) string {
	return fmt.Sprintf("%d", v)
}

// Table accumulates rows and renders them with aligned columns: the first
// column left-aligned (labels), the rest right-aligned (numbers).
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable creates a table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// AddRow appends a row. Missing cells render empty; extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
		}
	}
	t.rows = append(t.rows, row)
}

// NumRows returns the number of data rows added so far.
func (t *Table) NumRows() int {
	return len(t.rows)
}

// String renders the table. Columns are sized to their widest cell and
// separated by two spaces, with a dashed rule under the header.
func (t *Table) String() string {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	total := 0
	for _, w := range widths {
		total += w
	}
	total += 2 * (len(widths) - 1)

	var sb strings.Builder
	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				sb.WriteString("  ")
			}
			if i == 0 {
				sb.WriteString(fmt.Sprintf("%-*s", widths[i], cell))
			} else {
				sb.WriteString(fmt.Sprintf("%*s", widths[i], cell))
			}
		}
		sb.WriteByte('\n')
	}

	writeRow(t.headers)
	sb.WriteString(strings.Repeat("-", total))
	sb.WriteByte('\n')
	for _, row := range t.rows {
		writeRow(row)
	}

	return sb.String()
}

// KeyValues renders label/value pairs as aligned lines:
//
//	Observations:         200
//	Log-likelihood:  -361.2415
func KeyValues(pairs [][2]string) string {
	labelW, valueW := 0, 0
	for _, p := range pairs {
		if len(p[0]) > labelW {
			labelW = len(p[0])
		}
		if len(p[1]) > valueW {
			valueW = len(p[1])
		}
	}

	var sb strings.Builder
	for _, p := range pairs {
		sb.WriteString(fmt.Sprintf("%-*s  %*s\n", labelW+1, p[0]+":", valueW, p[1]))
	}

	return sb.String()
}

// Section renders a title with an underline rule sized to the title.
func Section(title string) string {
	return title + "\n" + strings.Repeat("=", len(title)) + "\n"
}
