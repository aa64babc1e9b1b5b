// Package ics maps availability payloads to and from iCalendar: export as
// weekly recurring events, import by expanding a calendar's first week.
package ics

import (
	"time"
	_ "time/tzdata"

	"wtt/internal/timetable"
)

// Seoul is the payload timezone. Korea has had no DST since 1988, so the
// fixed zone is an exact fallback when zoneinfo is unavailable.
var Seoul = loadSeoul()

func loadSeoul() *time.Location {
	loc, err := time.LoadLocation(timetable.Timezone)
	if err != nil {
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}

// WeekStart returns Monday 00:00 (Asia/Seoul) of the week containing t.
func WeekStart(t time.Time) time.Time {
	t = t.In(Seoul)
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, Seoul)
}
