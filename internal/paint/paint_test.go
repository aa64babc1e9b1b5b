package paint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wtt/internal/model"
	"wtt/internal/timetable"
)

// payloadCanvas paints on a timetable payload and counts writes.
type payloadCanvas struct {
	p      timetable.Payload
	writes int
}

func (c *payloadCanvas) IsSelected(day model.Day, slot int) bool {
	return c.p.IsSelected(day, slot)
}

func (c *payloadCanvas) SetSlot(day model.Day, slot int, on bool) {
	c.writes++
	c.p = c.p.SetSlot(day, slot, on)
}

func at(t EventType, id int, day model.Day, slot int) Event {
	return Event{Type: t, PointerID: id, Target: &Cell{Day: day, Slot: slot}}
}

func TestController_DragPaintsOn(t *testing.T) {
	canvas := &payloadCanvas{p: timetable.DefaultPayload().SetSlot(model.Tue, 30, true)}
	c := New(canvas, nil)

	assert.True(t, c.Handle(at(PointerDown, 1, model.Tue, 20)))
	assert.Equal(t, Painting, c.State())
	assert.Equal(t, ModeOn, c.Mode())

	assert.True(t, c.Handle(at(PointerMove, 1, model.Tue, 21)))
	assert.False(t, c.Handle(at(PointerMove, 1, model.Tue, 21)))
	assert.True(t, c.Handle(at(PointerMove, 1, model.Tue, 22)))

	assert.Equal(t, []int{20, 21, 22, 30}, canvas.p.Days[model.Tue])
	assert.Equal(t, 3, canvas.writes)
	assert.True(t, c.Painting())
}

func TestController_FirstCellDecidesOff(t *testing.T) {
	canvas := &payloadCanvas{p: timetable.DefaultPayload().ApplyPreset([]model.Day{model.Mon}, 9, 12)}
	c := New(canvas, nil)

	c.Handle(at(PointerDown, 7, model.Mon, 18))
	require.Equal(t, ModeOff, c.Mode())
	c.Handle(at(PointerEnter, 7, model.Mon, 19))
	// already off: stays off, not toggled back on
	c.Handle(at(PointerEnter, 7, model.Mon, 40))
	c.Handle(at(PointerUp, 7, model.Mon, 40))

	assert.Equal(t, []string{"10:00-12:00"}, canvas.p.DayRanges(model.Mon))
	assert.Equal(t, Idle, c.State())
}

func TestController_IgnoresOtherPointers(t *testing.T) {
	canvas := &payloadCanvas{p: timetable.DefaultPayload()}
	c := New(canvas, nil)

	c.Handle(at(PointerDown, 1, model.Wed, 20))
	assert.False(t, c.Handle(at(PointerMove, 2, model.Wed, 21)))
	assert.False(t, c.Handle(at(PointerDown, 2, model.Fri, 21)))

	c.Handle(at(PointerUp, 2, model.Wed, 21))
	assert.True(t, c.Painting(), "foreign pointer-up must not end the gesture")

	c.Handle(Event{Type: PointerUp, PointerID: 1})
	assert.False(t, c.Painting())
	assert.Equal(t, []int{20}, canvas.p.Days[model.Wed])
	assert.Empty(t, canvas.p.Days[model.Fri])
}

func TestController_UnresolvedTargetsIgnored(t *testing.T) {
	canvas := &payloadCanvas{p: timetable.DefaultPayload()}
	c := New(canvas, nil)

	assert.False(t, c.Handle(Event{Type: PointerDown, PointerID: 1}))
	assert.Equal(t, Idle, c.State())

	c.Handle(at(PointerDown, 1, model.Thu, 20))
	assert.False(t, c.Handle(Event{Type: PointerMove, PointerID: 1}))
	assert.True(t, c.Painting())
	assert.Equal(t, 1, canvas.writes)
}

func TestController_CancelKeepsPaintedCells(t *testing.T) {
	canvas := &payloadCanvas{p: timetable.DefaultPayload()}
	c := New(canvas, nil)

	c.Handle(at(PointerDown, 3, model.Sat, 20))
	c.Handle(at(PointerMove, 3, model.Sat, 21))
	c.Handle(Event{Type: PointerCancel, PointerID: 3})

	assert.False(t, c.Painting())
	assert.False(t, c.Handle(at(PointerMove, 3, model.Sat, 22)))
	assert.Equal(t, []int{20, 21}, canvas.p.Days[model.Sat])
}

func TestController_NewPassIsIndependent(t *testing.T) {
	canvas := &payloadCanvas{p: timetable.DefaultPayload()}
	c := New(canvas, nil)

	c.Handle(at(PointerDown, 1, model.Sun, 20))
	c.Handle(at(PointerUp, 1, model.Sun, 20))
	require.True(t, canvas.p.IsSelected(model.Sun, 20))

	c.Handle(at(PointerDown, 1, model.Sun, 20))
	assert.Equal(t, ModeOff, c.Mode())
	assert.False(t, canvas.p.IsSelected(model.Sun, 20))
}

func TestController_Reset(t *testing.T) {
	canvas := &payloadCanvas{p: timetable.DefaultPayload()}
	c := New(canvas, nil)

	c.Handle(at(PointerDown, 7, model.Mon, 20))
	assert.Equal(t, 7, c.PointerID())
	c.Reset()
	assert.Zero(t, c.PointerID())
	assert.False(t, c.Handle(at(PointerMove, 7, model.Mon, 21)))
}

func TestGridLayout_Resolve(t *testing.T) {
	g := GridLayout{
		OriginX:      10,
		OriginY:      5,
		TimeColWidth: 100,
		DayColWidth:  50,
		RowHeight:    20,
		HeaderHeight: 30,
		Days:         model.Days(),
		Slots:        timetable.BuildSlots(6, 24, 30),
	}

	cell, ok := g.Resolve(Event{X: 10 + 100 + 50*1 + 1, Y: 5 + 30 + 20*2 + 1})
	require.True(t, ok)
	assert.Equal(t, Cell{Day: model.Tue, Slot: 14}, cell)

	_, ok = g.Resolve(Event{X: 50, Y: 100})
	assert.False(t, ok, "time column")
	_, ok = g.Resolve(Event{X: 200, Y: 10})
	assert.False(t, ok, "header row")
	_, ok = g.Resolve(Event{X: 10 + 100 + 50*7 + 1, Y: 100})
	assert.False(t, ok, "right of grid")
	_, ok = g.Resolve(Event{X: 200, Y: 5 + 30 + 20*36 + 1})
	assert.False(t, ok, "below grid")
}

func TestController_WithGridLayout(t *testing.T) {
	g := GridLayout{TimeColWidth: 100, DayColWidth: 50, RowHeight: 20, Days: model.Days(), Slots: timetable.BuildSlots(6, 24, 30)}
	canvas := &payloadCanvas{p: timetable.DefaultPayload()}
	c := New(canvas, g.Resolve)

	c.Handle(Event{Type: PointerDown, PointerID: 1, X: 101, Y: 1})
	c.Handle(Event{Type: PointerMove, PointerID: 1, X: 105, Y: 15})
	c.Handle(Event{Type: PointerMove, PointerID: 1, X: 110, Y: 21})

	assert.Equal(t, []int{12, 13}, canvas.p.Days[model.Mon])
	assert.Equal(t, 2, canvas.writes)
}

func TestParseEventType(t *testing.T) {
	et, ok := ParseEventType("enter")
	assert.True(t, ok)
	assert.Equal(t, PointerEnter, et)

	_, ok = ParseEventType("click")
	assert.False(t, ok)
}
