package widget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wtt/internal/model"
	"wtt/internal/paint"
	"wtt/internal/timetable"
)

func ev(t paint.EventType, day model.Day, slot int) paint.Event {
	return paint.Event{Type: t, PointerID: 1, Target: &paint.Cell{Day: day, Slot: slot}}
}

func TestNew_InitialPrecedence(t *testing.T) {
	fromInput := timetable.DefaultPayload().SetSlot(model.Mon, 18, true).String()
	fromAttr := timetable.DefaultPayload().SetSlot(model.Sun, 18, true).String()

	w := New([]string{fromInput, fromAttr})
	assert.True(t, w.Committed().IsSelected(model.Mon, 18))
	assert.False(t, w.Committed().IsSelected(model.Sun, 18))

	w = New([]string{"  ", fromAttr})
	assert.True(t, w.Committed().IsSelected(model.Sun, 18))

	w = New(nil)
	assert.Equal(t, timetable.DefaultPayload(), w.Committed())
}

func TestImmediate_EmitsOnEveryMutation(t *testing.T) {
	var got []string
	w := New([]string{`"not an object"`}, OnChange(func(s string) { got = append(got, s) }))

	// normalized default is published at init
	require.Len(t, got, 1)
	assert.Equal(t, timetable.DefaultPayload().String(), got[0])

	w.Pointer(ev(paint.PointerDown, model.Tue, 20))
	w.Pointer(ev(paint.PointerMove, model.Tue, 21))
	w.Pointer(ev(paint.PointerMove, model.Tue, 21))
	w.Pointer(ev(paint.PointerMove, model.Tue, 22))
	w.Pointer(paint.Event{Type: paint.PointerUp, PointerID: 1})

	require.Len(t, got, 4)
	assert.Equal(t, w.Value(), got[3])
	assert.Equal(t, []int{20, 21, 22}, w.Committed().Days[model.Tue])
	assert.Equal(t, "Tue / 화: 10:00-11:30", w.Summary())
}

func TestImmediate_PresetAndClear(t *testing.T) {
	count := 0
	w := New(nil, OnChange(func(string) { count++ }))
	count = 0

	require.NoError(t, w.ApplyPreset("weekends-day"))
	assert.Equal(t, []string{"10:00-18:00"}, w.Committed().DayRanges(model.Sat))

	w.Clear()
	assert.True(t, w.Committed().Empty())
	assert.Equal(t, 2, count)

	assert.ErrorIs(t, w.ApplyPreset("nope"), ErrUnknownPreset)
}

func TestPointer_OutsideVisibleGridIgnored(t *testing.T) {
	initial := `{"startHour":9,"endHour":12,"days":{}}`
	w := New([]string{initial})

	assert.False(t, w.Pointer(ev(paint.PointerDown, model.Mon, 12)))
	assert.False(t, w.Pointer(ev(paint.PointerDown, "XYZ", 18)))
	assert.True(t, w.Pointer(ev(paint.PointerDown, model.Mon, 18)))
	assert.False(t, w.Pointer(ev(paint.PointerMove, model.Mon, 24)))
	assert.Equal(t, []int{18}, w.Committed().Days[model.Mon])
}

func TestDraft_CommitsOnlyOnSave(t *testing.T) {
	var got []string
	w := New(nil, WithPolicy(Draft), OnChange(func(s string) { got = append(got, s) }))
	assert.Empty(t, got)

	// closed modal does not accept edits
	assert.False(t, w.Pointer(ev(paint.PointerDown, model.Wed, 20)))

	w.Open()
	w.Pointer(ev(paint.PointerDown, model.Wed, 20))
	require.NoError(t, w.ApplyPreset("weekdays-morning"))
	assert.Empty(t, got)
	assert.True(t, w.Committed().Empty())
	assert.False(t, w.Working().Empty())
	assert.Equal(t, timetable.NotSelected, w.Summary())

	saved := w.Save()
	require.Len(t, got, 1)
	assert.Equal(t, saved, got[0])
	assert.False(t, w.IsOpen())
	assert.True(t, w.Committed().IsSelected(model.Wed, 20))
}

func TestDraft_CloseDiscards(t *testing.T) {
	w := New(nil, WithPolicy(Draft))
	w.Open()
	w.Pointer(ev(paint.PointerDown, model.Fri, 30))
	require.True(t, w.Painting())

	w.Close()
	assert.False(t, w.Painting())
	assert.True(t, w.Working().Empty())
	assert.True(t, w.Committed().Empty())
}

func TestMerge(t *testing.T) {
	w := New(nil)
	w.Merge(timetable.DefaultPayload().ApplyPreset([]model.Day{model.Thu}, 12, 13))
	w.Merge(timetable.DefaultPayload().ApplyPreset([]model.Day{model.Thu}, 13, 15))
	assert.Equal(t, []string{"12:00-15:00"}, w.Committed().DayRanges(model.Thu))
}

func TestParsePolicy(t *testing.T) {
	assert.Equal(t, Draft, ParsePolicy(" Draft "))
	assert.Equal(t, Immediate, ParsePolicy("whatever"))
}
