package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"wtt/internal/model"
	"wtt/internal/timetable"
)

const (
	ProductID      = "-//wtt//weekly availability//EN"
	DefaultSummary = "Available"
	uidDomain      = "wtt"
)

// ExportOptions controls Export.
type ExportOptions struct {
	// Anchor picks the week the recurring events start in. Zero means now.
	Anchor time.Time
	// Now stamps DTSTAMP. Zero means time.Now().
	Now time.Time
	// Summary is the event title (default "Available").
	Summary string
}

// Export writes one weekly recurring VEVENT per merged run of each day.
// Runs are clipped to the day; indices outside it are not exported.
func Export(p timetable.Payload, opts ExportOptions) string {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	anchor := opts.Anchor
	if anchor.IsZero() {
		anchor = now
	}
	summary := opts.Summary
	if summary == "" {
		summary = DefaultSummary
	}

	step := p.StepMinutes
	if step <= 0 {
		step = timetable.StepMinutes
	}
	perDay := 24 * 60 / step
	monday := WeekStart(anchor)

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)
	cal.SetXWRCalName("Weekly availability")
	cal.SetXWRTimezone(timetable.Timezone)

	for _, d := range model.Week {
		date := monday.AddDate(0, 0, d.Key.Index())
		for _, run := range timetable.Runs(p.Days[d.Key]) {
			start, end := max(run.Start, 0), min(run.End, perDay)
			if start >= end {
				continue
			}

			ev := cal.AddEvent(fmt.Sprintf("%s-%d-%d@%s", d.Key, start, end, uidDomain))
			ev.SetDtStampTime(now)
			ev.SetStartAt(date.Add(time.Duration(start*step) * time.Minute))
			ev.SetEndAt(date.Add(time.Duration(end*step) * time.Minute))
			ev.SetSummary(summary)
			ev.SetDescription(fmt.Sprintf("%s %s", d.Label, timetable.Run{Start: start, End: end}.Label(step)))
			ev.AddRrule("FREQ=WEEKLY")
		}
	}

	return cal.Serialize()
}
