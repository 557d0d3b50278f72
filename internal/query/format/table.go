package format

import (
	"strings"
	"unicode/utf8"
)

// Table renders a markdown pipe table whose separator cells are two dashes wider than the header.
type Table struct {
	headers []string
	rows    [][]string
}

func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

func (t *Table) Row(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *Table) Len() int {
	return len(t.rows)
}

func (t *Table) Lines() []string {
	lines := make([]string, 0, len(t.rows)+2)
	lines = append(lines, "| "+strings.Join(t.headers, " | ")+" |")

	seps := make([]string, len(t.headers))
	for i, h := range t.headers {
		seps[i] = strings.Repeat("-", utf8.RuneCountInString(h)+2)
	}
	lines = append(lines, "|"+strings.Join(seps, "|")+"|")

	for _, row := range t.rows {
		lines = append(lines, "| "+strings.Join(row, " | ")+" |")
	}
	return lines
}
