// Package render turns a payload into the timetable view: an HTML grid for
// the editor and read-only pages, and a plain-text table for the CLI.
package render

import (
	"wtt/internal/model"
	"wtt/internal/paint"
	"wtt/internal/timetable"
)

// Column widths of the read-only mini grid, in CSS pixels.
const (
	TimeColPx = 90
	DayColPx  = 96
)

// Column is one day header.
type Column struct {
	Day   model.Day
	Label string
	Short string
}

// Cell is one (day, slot) square.
type Cell struct {
	Day  model.Day
	Slot int
	On   bool
}

// Key matches paint.Cell.Key so the pointer shim can address cells.
func (c Cell) Key() string {
	return paint.Cell{Day: c.Day, Slot: c.Slot}.Key()
}

// Row is one time slot across all seven days.
type Row struct {
	Slot  int
	Label string
	Cells []Cell
}

// DayRanges is a per-day list of merged ranges.
type DayRanges struct {
	Column
	Ranges []string
}

// Grid is the view model shared by every renderer.
type Grid struct {
	Columns     []Column
	Rows        []Row
	Days        []DayRanges
	Summary     string
	Compact     string
	Empty       bool
	ReadOnly    bool
	StepMinutes int
}

// BuildGrid lays out p with rows from BuildSlots and columns in week order.
// Read-only grids only label rows that start on the hour.
func BuildGrid(p timetable.Payload, readOnly bool) Grid {
	g := Grid{
		Summary:     p.Summarize(),
		Compact:     p.SummarizeCompact(),
		Empty:       p.Empty(),
		ReadOnly:    readOnly,
		StepMinutes: p.StepMinutes,
	}

	for _, d := range model.Week {
		col := Column{Day: d.Key, Label: d.Label, Short: d.Short}
		g.Columns = append(g.Columns, col)
		g.Days = append(g.Days, DayRanges{Column: col, Ranges: p.DayRanges(d.Key)})
	}

	for _, slot := range p.Slots() {
		row := Row{Slot: slot, Label: rowLabel(slot, p.StepMinutes, readOnly)}
		for _, d := range model.Week {
			row.Cells = append(row.Cells, Cell{Day: d.Key, Slot: slot, On: p.IsSelected(d.Key, slot)})
		}
		g.Rows = append(g.Rows, row)
	}
	return g
}

func rowLabel(slot, step int, readOnly bool) string {
	minutes := slot * step
	// 읽기 전용에서는 정시 라벨만 보여준다.
	if readOnly && minutes%60 != 0 {
		return ""
	}
	return timetable.MinutesToLabel(minutes)
}
