package ics

import (
	"bytes"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/pkg/errors"
	"github.com/teambition/rrule-go"

	appLog "wtt/internal/log"
	"wtt/internal/model"
	"wtt/internal/timetable"
)

// maxOccurrencesPerEvent caps a single template's first-week expansion.
const maxOccurrencesPerEvent = 500

const week = 7 * 24 * time.Hour

// Template is a VEVENT reduced to what availability import needs.
type Template struct {
	UID      string
	Start    time.Time
	End      time.Time
	AllDay   bool
	RawRRule string
	ExDates  []time.Time
}

// Interval is one concrete occurrence.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Report summarizes an import.
type Report struct {
	Events      int `json:"events"`
	Skipped     int `json:"skipped"`
	Occurrences int `json:"occurrences"`
	Slots       int `json:"slots"`
}

// ParseTemplates reads every VEVENT of body. RECURRENCE-ID overrides and
// events without a usable start/end are skipped and counted.
func ParseTemplates(body []byte) ([]Template, int, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, 0, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, 0, errors.Wrap(err, "parse ICS")
	}

	var (
		out     []Template
		skipped int
	)
	for _, ve := range cal.Events() {
		tpl, err := parseVEvent(ve)
		if err != nil {
			appLog.Debug("ics vevent skipped", "reason", err.Error())
			skipped++
			continue
		}
		out = append(out, tpl)
	}
	return out, skipped, nil
}

func parseVEvent(ve *ical.VEvent) (Template, error) {
	var out Template
	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		out.UID = p.Value
	}
	if ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")) != nil {
		return out, errors.New("recurrence override")
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, errors.New("missing DTSTART")
	}
	out.AllDay = isDateValue(dtStart)

	if out.AllDay {
		start, err := parseICSTime(dtStart.Value, tzid(dtStart))
		if err != nil {
			return out, errors.Wrap(err, "DTSTART")
		}
		out.Start = start
		out.End = start.AddDate(0, 0, 1)
		if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil {
			if end, err := parseICSTime(dtEnd.Value, tzid(dtEnd)); err == nil && end.After(start) {
				out.End = end
			}
		}
	} else {
		start, err := ve.GetStartAt()
		if err != nil {
			return out, errors.Wrap(err, "DTSTART")
		}
		end, err := ve.GetEndAt()
		if err != nil {
			return out, errors.Wrap(err, "DTEND")
		}
		out.Start, out.End = start, end
	}
	if !out.End.After(out.Start) {
		return out, errors.New("empty duration")
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		loc := tzid(p)
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part, loc); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}
	return out, nil
}

func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// tzid resolves the TZID parameter, defaulting to Asia/Seoul for floating times.
func tzid(p *ical.IANAProperty) *time.Location {
	if tzs, ok := p.ICalParameters["TZID"]; ok && len(tzs) > 0 {
		if loc, err := time.LoadLocation(tzs[0]); err == nil {
			return loc
		}
	}
	return Seoul
}

func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}

// Expand produces the occurrences of tpl in [Start, Start+7d). Every event is
// read as a weekly template, so one week of a recurrence covers it.
func Expand(tpl Template) ([]Interval, error) {
	dur := tpl.End.Sub(tpl.Start)
	if tpl.RawRRule == "" {
		return []Interval{{Start: tpl.Start, End: tpl.End}}, nil
	}

	r, err := rrule.StrToRRule(tpl.RawRRule)
	if err != nil {
		return nil, errors.Wrapf(err, "parse RRULE %q", tpl.RawRRule)
	}
	r.DTStart(tpl.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range tpl.ExDates {
		set.ExDate(ex.In(tpl.Start.Location()))
	}

	starts := set.Between(tpl.Start, tpl.Start.Add(week-time.Second), true)
	if len(starts) > maxOccurrencesPerEvent {
		appLog.Warn("ics expand truncated", "uid", tpl.UID, "cap", maxOccurrencesPerEvent)
		starts = starts[:maxOccurrencesPerEvent]
	}

	out := make([]Interval, 0, len(starts))
	for _, s := range starts {
		out = append(out, Interval{Start: s, End: s.Add(dur)})
	}
	return out, nil
}

// Apply marks every slot an interval touches: [floor(start/step), ceil(end/step))
// in Asia/Seoul wall time, split at midnight.
func Apply(p timetable.Payload, iv Interval) (timetable.Payload, int) {
	step := p.StepMinutes
	if step <= 0 {
		step = timetable.StepMinutes
	}

	marked := 0
	cur, end := iv.Start.In(Seoul), iv.End.In(Seoul)
	for cur.Before(end) {
		y, m, d := cur.Date()
		midnight := time.Date(y, m, d, 0, 0, 0, 0, Seoul)
		next := midnight.AddDate(0, 0, 1)
		segEnd := end
		if next.Before(segEnd) {
			segEnd = next
		}

		day := model.FromWeekday(cur.Weekday())
		from := int(cur.Sub(midnight)/time.Minute) / step
		to := ceilDiv(int(segEnd.Sub(midnight)/time.Minute), step)
		for s := from; s < to; s++ {
			p = p.SetSlot(day, s, true)
			marked++
		}
		cur = segEnd
	}
	return p, marked
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// Import turns a calendar into a payload (default hours) holding every slot its
// events cover in their first week. Merge the result into an existing value
// the way a preset is applied.
func Import(body []byte) (timetable.Payload, Report, error) {
	var rep Report
	templates, skipped, err := ParseTemplates(body)
	if err != nil {
		return timetable.DefaultPayload(), rep, err
	}
	rep.Events = len(templates)
	rep.Skipped = skipped

	p := timetable.DefaultPayload()
	for _, tpl := range templates {
		ivs, err := Expand(tpl)
		if err != nil {
			appLog.Error("ics expand failed", err, "uid", tpl.UID)
			rep.Skipped++
			continue
		}
		for _, iv := range ivs {
			var n int
			p, n = Apply(p, iv)
			rep.Slots += n
		}
		rep.Occurrences += len(ivs)
	}

	appLog.Info("ics import completed", "events", rep.Events, "skipped", rep.Skipped, "occurrences", rep.Occurrences)
	return p, rep, nil
}
