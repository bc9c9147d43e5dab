package cmd

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column describes one table column. A zero maxWidth leaves the column
// unbounded; longer cells are cut with an ellipsis.
type column struct {
	title    string
	align    text.Align
	maxWidth int
}

func left(title string) column  { return column{title: title, align: text.AlignLeft} }
func right(title string) column { return column{title: title, align: text.AlignRight} }

func (c column) capped(n int) column {
	c.maxWidth = n
	return c
}

// renderTable draws rows under cols. Missing cells render empty and extra
// cells are dropped.
func renderTable(cols []column, rows [][]string) string {
	if len(cols) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(cols))
	configs := make([]table.ColumnConfig, len(cols))
	for i, c := range cols {
		header[i] = c.title
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       c.align,
			AlignHeader: text.AlignLeft,
		}
		if c.maxWidth > 0 {
			configs[i].WidthMax = c.maxWidth
			configs[i].WidthMaxEnforcer = truncateText
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(cols))
		for i := range cols {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}
	return tw.Render()
}

func truncateText(s string, n int) string {
	rs := []rune(s)
	if n <= 0 || len(rs) <= n {
		return s
	}
	return string(rs[:n-1]) + "…"
}
