package timetable

import (
	"bytes"
	"math"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"wtt/internal/model"
)

// Fixed payload constants. They are not configurable per instance; a value read
// from the wire can never override them.
const (
	Timezone         = "Asia/Seoul"
	StepMinutes      = 30
	DefaultStartHour = 6
	DefaultEndHour   = 24

	// NotSelected is the summary placeholder when no day has any slot.
	NotSelected = "Not selected / 선택 안 함"
	// SummarySeparator joins per-day summaries.
	SummarySeparator = " · "
)

// Days maps each weekday key to its selected slot indices.
type Days map[model.Day][]int

// Payload is the serializable weekly availability record.
//
// slotIndex = minutesFromMidnight / StepMinutes, e.g. 09:00 => 18, 09:30 => 19.
type Payload struct {
	TZ          string `json:"tz"`
	StepMinutes int    `json:"stepMinutes"`
	StartHour   int    `json:"startHour"` // inclusive
	EndHour     int    `json:"endHour"`   // exclusive
	Days        Days   `json:"days"`
}

func emptyDays() Days {
	days := make(Days, len(model.Week))
	for _, d := range model.Week {
		days[d.Key] = []int{}
	}
	return days
}

// DefaultPayload returns an empty week over the default 06:00-24:00 range.
func DefaultPayload() Payload {
	return Payload{
		TZ:          Timezone,
		StepMinutes: StepMinutes,
		StartHour:   DefaultStartHour,
		EndHour:     DefaultEndHour,
		Days:        emptyDays(),
	}
}

// ParseExternal decodes a stored or transmitted payload.
//
// Some rows were written double-encoded (a JSON string whose content is the
// JSON object), so a string result is decoded exactly once more. Any failure,
// or a final value that is not a JSON object, yields nil.
func ParseExternal(text string) map[string]any {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil
	}

	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil
	}
	if inner, ok := v.(string); ok {
		v = nil
		if err := json.Unmarshal([]byte(inner), &v); err != nil {
			return nil
		}
	}

	obj, _ := v.(map[string]any)
	return obj
}

// Load is Normalize(ParseExternal(text)).
func Load(text string) Payload {
	obj := ParseExternal(text)
	if obj == nil {
		return DefaultPayload()
	}
	return Normalize(obj)
}

// Normalize turns any candidate into a valid payload and never fails.
//
// Accepted candidates are decoded JSON objects (map[string]any), Payload and
// *Payload; everything else returns DefaultPayload. startHour/endHour are kept
// only when they are integral hours in [0, 24], each field independently. Only
// the seven known day keys survive, and a day whose value is not an array is
// empty. Array elements are kept in the given order, without range checks;
// elements that are not integral numbers cannot be held in a slot list and are
// dropped.
func Normalize(candidate any) Payload {
	switch v := candidate.(type) {
	case Payload:
		return normalizeTyped(v)
	case *Payload:
		if v == nil {
			return DefaultPayload()
		}
		return normalizeTyped(*v)
	case map[string]any:
		return normalizeObject(v)
	default:
		return DefaultPayload()
	}
}

func normalizeTyped(v Payload) Payload {
	out := DefaultPayload()
	if validHour(v.StartHour) {
		out.StartHour = v.StartHour
	}
	if validHour(v.EndHour) {
		out.EndHour = v.EndHour
	}
	for _, d := range model.Week {
		if slots, ok := v.Days[d.Key]; ok && slots != nil {
			out.Days[d.Key] = append([]int{}, slots...)
		}
	}
	return out
}

func normalizeObject(v map[string]any) Payload {
	out := DefaultPayload()

	if h, ok := integral(v["startHour"]); ok && validHour(h) {
		out.StartHour = h
	}
	if h, ok := integral(v["endHour"]); ok && validHour(h) {
		out.EndHour = h
	}

	days, _ := v["days"].(map[string]any)
	for _, d := range model.Week {
		out.Days[d.Key] = slotList(days[string(d.Key)])
	}
	return out
}

func slotList(raw any) []int {
	switch arr := raw.(type) {
	case []any:
		out := make([]int, 0, len(arr))
		for _, x := range arr {
			if n, ok := integral(x); ok {
				out = append(out, n)
			}
		}
		return out
	case []int:
		return append([]int{}, arr...)
	default:
		return []int{}
	}
}

func validHour(h int) bool {
	return h >= 0 && h <= 24
}

// maxExact is the largest magnitude a float64 holds without losing integers.
const maxExact = 1 << 53

// integral accepts the numeric shapes a JSON decoder may hand us.
func integral(x any) (int, bool) {
	var f float64
	switch n := x.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		return n, true
	case int64:
		return int(n), true
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > maxExact {
		return 0, false
	}
	return int(f), true
}

// Clone returns a deep copy, so mutations never alias the receiver's slices.
func (p Payload) Clone() Payload {
	out := p
	out.Days = make(Days, len(p.Days))
	for k, v := range p.Days {
		out.Days[k] = append([]int{}, v...)
	}
	return out
}

// Slots are the visible grid rows for this payload's hour range.
func (p Payload) Slots() []int {
	return BuildSlots(p.StartHour, p.EndHour, p.StepMinutes)
}

// IsSelected reports whether slot is in day's list.
func (p Payload) IsSelected(day model.Day, slot int) bool {
	for _, s := range p.Days[day] {
		if s == slot {
			return true
		}
	}
	return false
}

// SetSlot adds or removes slot from day and keeps the list unique and sorted.
// Unknown day keys are ignored so the seven-key invariant holds.
func (p Payload) SetSlot(day model.Day, slot int, on bool) Payload {
	if !day.Valid() {
		return p
	}
	next := p.Clone()

	set := toSet(next.Days[day])
	if on {
		set[slot] = struct{}{}
	} else {
		delete(set, slot)
	}
	next.Days[day] = fromSet(set)
	return next
}

// ApplyPreset unions [fromHour, toHour) into every target day. It is strictly
// additive and idempotent.
func (p Payload) ApplyPreset(targetDays []model.Day, fromHour, toHour int) Payload {
	next := p.Clone()
	step := next.StepMinutes
	if step <= 0 {
		return next
	}
	fromSlot := fromHour * 60 / step
	toSlot := toHour * 60 / step

	for _, day := range targetDays {
		if !day.Valid() {
			continue
		}
		set := toSet(next.Days[day])
		for s := fromSlot; s < toSlot; s++ {
			set[s] = struct{}{}
		}
		next.Days[day] = fromSet(set)
	}
	return next
}

// ClearAll empties every day and keeps the hour range.
func (p Payload) ClearAll() Payload {
	next := p
	next.Days = emptyDays()
	return next
}

// Empty reports whether no day has a selected slot.
func (p Payload) Empty() bool {
	for _, d := range model.Week {
		if len(p.Days[d.Key]) > 0 {
			return false
		}
	}
	return true
}

// DayRanges is the compressed range list for one day.
func (p Payload) DayRanges(day model.Day) []string {
	return ToRanges(p.Days[day], p.StepMinutes)
}

// Summarize renders "Mon / 월: 09:00-10:30, 14:00-14:30 · Tue / 화: ..." or
// NotSelected.
func (p Payload) Summarize() string {
	return p.summarize(func(d model.DayInfo) string { return d.Label + ": " })
}

// SummarizeCompact is the one-line card variant using short day names.
func (p Payload) SummarizeCompact() string {
	return p.summarize(func(d model.DayInfo) string { return d.Short + " " })
}

func (p Payload) summarize(prefix func(model.DayInfo) string) string {
	parts := make([]string, 0, len(model.Week))
	for _, d := range model.Week {
		slots := p.Days[d.Key]
		if len(slots) == 0 {
			continue
		}
		parts = append(parts, prefix(d)+strings.Join(ToRanges(slots, p.StepMinutes), ", "))
	}
	if len(parts) == 0 {
		return NotSelected
	}
	return strings.Join(parts, SummarySeparator)
}

// String is the serialized wire form handed to host forms.
func (p Payload) String() string {
	b, err := json.Marshal(p)
	if err != nil {
		// Days.MarshalJSON only fails on a broken encoder; degrade like the widget does.
		b, _ = json.Marshal(DefaultPayload())
	}
	return string(b)
}

// MarshalJSON writes the seven days in week order with empty days as [].
func (d Days) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, info := range model.Week {
		if i > 0 {
			buf.WriteByte(',')
		}
		slots := d[info.Key]
		if slots == nil {
			slots = []int{}
		}
		enc, err := json.Marshal(slots)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`"` + string(info.Key) + `":`)
		buf.Write(enc)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func toSet(slots []int) map[int]struct{} {
	set := make(map[int]struct{}, len(slots)+1)
	for _, s := range slots {
		set[s] = struct{}{}
	}
	return set
}

func fromSet(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Ints(out)
	return out
}
