package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wtt/internal/model"
	"wtt/internal/timetable"
)

var anchor = time.Date(2025, 1, 8, 15, 0, 0, 0, Seoul) // a Wednesday

func calendar(lines ...string) []byte {
	all := append([]string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//test//EN"}, lines...)
	all = append(all, "END:VCALENDAR")
	return []byte(strings.Join(all, "\r\n") + "\r\n")
}

func TestWeekStart(t *testing.T) {
	assert.Equal(t, time.Date(2025, 1, 6, 0, 0, 0, 0, Seoul), WeekStart(anchor))
	// Sunday belongs to the week that started six days earlier
	sunday := time.Date(2025, 1, 12, 23, 59, 0, 0, Seoul)
	assert.Equal(t, time.Date(2025, 1, 6, 0, 0, 0, 0, Seoul), WeekStart(sunday))
}

func TestExport(t *testing.T) {
	p := timetable.DefaultPayload().
		ApplyPreset([]model.Day{model.Mon}, 9, 10).
		SetSlot(model.Mon, 20, true)

	out := Export(p, ExportOptions{Anchor: anchor, Now: anchor})

	assert.Equal(t, 1, strings.Count(out, "BEGIN:VEVENT"))
	assert.Contains(t, out, "UID:MON-18-21@wtt")
	// 09:00 KST is midnight UTC
	assert.Contains(t, out, "DTSTART:20250106T000000Z")
	assert.Contains(t, out, "DTEND:20250106T013000Z")
	assert.Contains(t, out, "RRULE:FREQ=WEEKLY")
	assert.Contains(t, out, "SUMMARY:Available")
}

func TestExport_ClipsOutOfDaySlots(t *testing.T) {
	p := timetable.Load(`{"days":{"TUE":[-2,-1,47,48,49]}}`)
	out := Export(p, ExportOptions{Anchor: anchor, Now: anchor})
	assert.Equal(t, 1, strings.Count(out, "BEGIN:VEVENT"))
	assert.Contains(t, out, "UID:TUE-47-48@wtt")
}

func TestExportImport_RoundTrip(t *testing.T) {
	p := timetable.DefaultPayload().
		ApplyPreset([]model.Day{model.Mon}, 9, 10).
		SetSlot(model.Mon, 20, true).
		SetSlot(model.Sat, 13, true).
		ApplyPreset([]model.Day{model.Sun}, 23, 24)

	body := Export(p, ExportOptions{Anchor: anchor, Now: anchor})
	got, rep, err := Import([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, 3, rep.Events)
	assert.Equal(t, 3, rep.Occurrences)
	assert.Equal(t, p.String(), got.String())
}

func TestImport_DailyRuleWithExdate(t *testing.T) {
	body := calendar(
		"BEGIN:VEVENT",
		"UID:standup",
		"DTSTAMP:20250101T000000Z",
		"DTSTART:20250106T090000Z",
		"DTEND:20250106T100000Z",
		"RRULE:FREQ=DAILY;COUNT=3",
		"EXDATE:20250107T090000Z",
		"END:VEVENT",
	)

	got, rep, err := Import(body)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Occurrences)
	// 09:00Z = 18:00 KST
	assert.Equal(t, []int{36, 37}, got.Days[model.Mon])
	assert.Empty(t, got.Days[model.Tue])
	assert.Equal(t, []int{36, 37}, got.Days[model.Wed])
}

func TestImport_SplitsAtMidnightAndRoundsOut(t *testing.T) {
	body := calendar(
		"BEGIN:VEVENT",
		"UID:late",
		"DTSTAMP:20250101T000000Z",
		"DTSTART;TZID=Asia/Seoul:20250110T231500",
		"DTEND;TZID=Asia/Seoul:20250111T004500",
		"END:VEVENT",
	)

	got, _, err := Import(body)
	require.NoError(t, err)
	assert.Equal(t, []int{46, 47}, got.Days[model.Fri])
	assert.Equal(t, []int{0, 1}, got.Days[model.Sat])
}

func TestImport_AllDayAndSkipped(t *testing.T) {
	body := calendar(
		"BEGIN:VEVENT",
		"UID:holiday",
		"DTSTAMP:20250101T000000Z",
		"DTSTART;VALUE=DATE:20250111",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:standup",
		"DTSTAMP:20250101T000000Z",
		"RECURRENCE-ID:20250107T090000Z",
		"DTSTART:20250107T100000Z",
		"DTEND:20250107T110000Z",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:broken",
		"DTSTAMP:20250101T000000Z",
		"DTSTART:20250107T100000Z",
		"END:VEVENT",
	)

	got, rep, err := Import(body)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Events)
	assert.Equal(t, 2, rep.Skipped)
	assert.Len(t, got.Days[model.Sat], 48)
	assert.Empty(t, got.Days[model.Tue])
}

func TestImport_Errors(t *testing.T) {
	_, _, err := Import(nil)
	assert.Error(t, err)

	_, _, err = Import([]byte("not a calendar"))
	assert.Error(t, err)
}

func TestExpand_BadRule(t *testing.T) {
	start := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	_, err := Expand(Template{Start: start, End: start.Add(time.Hour), RawRRule: "FREQ=SOMETIMES"})
	assert.Error(t, err)
}
