package timetable

import (
	"fmt"
	"sort"
)

// Run is a merged block of consecutive slot indices, End exclusive.
type Run struct {
	Start int
	End   int
}

// MinutesToLabel formats minutes past midnight as zero-padded "HH:MM".
//
// Out-of-range input is not rejected: hours use floor division and minutes the
// non-negative remainder, so -30 becomes "-1:30" and 1440 becomes "24:00".
func MinutesToLabel(minutes int) string {
	h := floorDiv(minutes, 60)
	m := minutes - h*60
	return fmt.Sprintf("%02d:%02d", h, m)
}

// SlotLabel is the start label of a slot at the given step.
func SlotLabel(slot, stepMinutes int) string {
	return MinutesToLabel(slot * stepMinutes)
}

// BuildSlots returns every slot index in [startHour, endHour) at stepMinutes
// granularity, ascending. Hours are clamped to one day. Empty when
// startHour >= endHour.
func BuildSlots(startHour, endHour, stepMinutes int) []int {
	if stepMinutes <= 0 {
		return nil
	}
	startMin := clampHour(startHour) * 60
	endMin := clampHour(endHour) * 60
	if startMin >= endMin {
		return []int{}
	}

	slots := make([]int, 0, (endMin-startMin+stepMinutes-1)/stepMinutes)
	for m := startMin; m < endMin; m += stepMinutes {
		slots = append(slots, floorDiv(m, stepMinutes))
	}
	return slots
}

func clampHour(h int) int {
	if h < 0 {
		return 0
	}
	if h > 24 {
		return 24
	}
	return h
}

// Runs deduplicates and sorts slots, then merges consecutive indices into runs.
func Runs(slots []int) []Run {
	sorted := uniqueSorted(slots)
	runs := make([]Run, 0)

	i := 0
	for i < len(sorted) {
		start := sorted[i]
		end := start + 1
		i++
		for i < len(sorted) && sorted[i] == end {
			end++
			i++
		}
		runs = append(runs, Run{Start: start, End: end})
	}
	return runs
}

// ToRanges compresses slot indices into "HH:MM-HH:MM" strings.
// [18,19,20,28] at step 30 -> ["09:00-10:30", "14:00-14:30"]
func ToRanges(slots []int, stepMinutes int) []string {
	runs := Runs(slots)
	out := make([]string, 0, len(runs))
	for _, r := range runs {
		out = append(out, r.Label(stepMinutes))
	}
	return out
}

// Label renders the run at the given step.
func (r Run) Label(stepMinutes int) string {
	return MinutesToLabel(r.Start*stepMinutes) + "-" + MinutesToLabel(r.End*stepMinutes)
}

func uniqueSorted(in []int) []int {
	seen := make(map[int]struct{}, len(in))
	out := make([]int, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
