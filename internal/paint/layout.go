package paint

import (
	"math"

	"wtt/internal/model"
)

// GridLayout resolves host coordinates against a rendered grid: one time-label
// column followed by one column per day, one row per slot.
type GridLayout struct {
	OriginX, OriginY float64
	TimeColWidth     float64
	DayColWidth      float64
	RowHeight        float64
	// HeaderHeight is the day label row above the first slot row.
	HeaderHeight float64

	Days  []model.Day
	Slots []int
}

// Resolve is a Resolver. Points over the header, the time column or outside
// the grid do not resolve.
func (g GridLayout) Resolve(ev Event) (Cell, bool) {
	if g.DayColWidth <= 0 || g.RowHeight <= 0 {
		return Cell{}, false
	}
	x := ev.X - g.OriginX - g.TimeColWidth
	y := ev.Y - g.OriginY - g.HeaderHeight
	if x < 0 || y < 0 {
		return Cell{}, false
	}

	col := int(math.Floor(x / g.DayColWidth))
	row := int(math.Floor(y / g.RowHeight))
	if col >= len(g.Days) || row >= len(g.Slots) {
		return Cell{}, false
	}
	return Cell{Day: g.Days[col], Slot: g.Slots[row]}, true
}
