package model

import (
	"strings"
	"time"
)

// Day is one of the seven weekday keys used on the wire ("MON" .. "SUN").
type Day string

const (
	Mon Day = "MON"
	Tue Day = "TUE"
	Wed Day = "WED"
	Thu Day = "THU"
	Fri Day = "FRI"
	Sat Day = "SAT"
	Sun Day = "SUN"
)

// DayInfo carries the display labels for a weekday column.
type DayInfo struct {
	Key Day
	// Label is the bilingual column header, e.g. "Mon / 월".
	Label string
	// Short is used where horizontal space is tight (read-only cards, mini grid).
	Short string
}

// Week lists the days in fixed display order, Monday first.
var Week = []DayInfo{
	{Key: Mon, Label: "Mon / 월", Short: "Mon"},
	{Key: Tue, Label: "Tue / 화", Short: "Tue"},
	{Key: Wed, Label: "Wed / 수", Short: "Wed"},
	{Key: Thu, Label: "Thu / 목", Short: "Thu"},
	{Key: Fri, Label: "Fri / 금", Short: "Fri"},
	{Key: Sat, Label: "Sat / 토", Short: "Sat"},
	{Key: Sun, Label: "Sun / 일", Short: "Sun"},
}

// Weekdays and Weekend are the day groups used by the built-in presets.
var (
	Weekdays = []Day{Mon, Tue, Wed, Thu, Fri}
	Weekend  = []Day{Sat, Sun}
)

// Days returns the seven day keys in week order.
func Days() []Day {
	out := make([]Day, 0, len(Week))
	for _, d := range Week {
		out = append(out, d.Key)
	}
	return out
}

// Valid reports whether d is one of the seven known keys.
func (d Day) Valid() bool {
	_, ok := Info(d)
	return ok
}

// Index returns the 0-based position of d in Week, or -1.
func (d Day) Index() int {
	for i, info := range Week {
		if info.Key == d {
			return i
		}
	}
	return -1
}

// Info looks up the labels for d.
func Info(d Day) (DayInfo, bool) {
	for _, info := range Week {
		if info.Key == d {
			return info, true
		}
	}
	return DayInfo{}, false
}

// ParseDay accepts a key in any letter case ("mon", "Mon", "MON").
func ParseDay(s string) (Day, bool) {
	d := Day(strings.ToUpper(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", false
	}
	return d, true
}

// FromWeekday maps a time.Weekday onto the Monday-first key set.
func FromWeekday(wd time.Weekday) Day {
	// time.Sunday == 0
	return Week[(int(wd)+6)%7].Key
}

// Weekday is the inverse of FromWeekday.
func (d Day) Weekday() time.Weekday {
	return time.Weekday((d.Index() + 1) % 7)
}
