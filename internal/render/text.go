package render

import (
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
)

const (
	onMark  = "■"
	offMark = "·"
)

// WriteText prints g as a terminal table, one row per slot.
func WriteText(w io.Writer, g Grid) {
	table := tablewriter.NewWriter(w)
	header := []string{"Time"}
	for _, c := range g.Columns {
		header = append(header, c.Short)
	}
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_CENTER)
	table.SetBorder(false)
	table.SetColumnSeparator(" ")

	for _, row := range g.Rows {
		line := make([]string, 0, len(row.Cells)+1)
		line = append(line, row.Label)
		for _, c := range row.Cells {
			if c.On {
				line = append(line, onMark)
			} else {
				line = append(line, offMark)
			}
		}
		table.Append(line)
	}
	table.Render()
}

// WriteRanges prints the per-day range list followed by the summary line.
func WriteRanges(w io.Writer, g Grid) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Day", "Ranges"})
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	for _, d := range g.Days {
		ranges := "-"
		if len(d.Ranges) > 0 {
			ranges = strings.Join(d.Ranges, ", ")
		}
		table.Append([]string{d.Label, ranges})
	}
	table.Render()
	_, _ = io.WriteString(w, g.Summary+"\n")
}
