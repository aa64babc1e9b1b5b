// Package widget binds one availability payload to a paint controller and a
// commit policy. It is the state half of the presentation adapter; rendering
// lives in internal/render.
package widget

import (
	"errors"
	"strings"

	appLog "wtt/internal/log"
	"wtt/internal/model"
	"wtt/internal/paint"
	"wtt/internal/timetable"
)

// Policy decides when edits reach the host.
type Policy string

const (
	// Immediate serializes and hands the value to the host after every mutation
	// (admin form widget with a hidden input).
	Immediate Policy = "immediate"
	// Draft edits a working copy inside a modal; only Save commits it.
	Draft Policy = "draft"
)

// ParsePolicy falls back to Immediate for unknown names.
func ParsePolicy(s string) Policy {
	if Policy(strings.ToLower(strings.TrimSpace(s))) == Draft {
		return Draft
	}
	return Immediate
}

// ErrUnknownPreset is returned by ApplyPreset for an ID not in the toolbar.
var ErrUnknownPreset = errors.New("unknown preset")

// ChangeFunc receives the serialized payload whenever the committed value changes.
type ChangeFunc func(serialized string)

// Widget is a single editing instance. It is not safe for concurrent use; the
// host owns it exclusively.
type Widget struct {
	policy   Policy
	presets  []timetable.Preset
	onChange ChangeFunc
	resolve  paint.Resolver

	value timetable.Payload // committed
	draft timetable.Payload // working copy; equals value under Immediate
	open  bool

	ctrl *paint.Controller
}

// Option configures a Widget.
type Option func(*Widget)

func WithPolicy(p Policy) Option { return func(w *Widget) { w.policy = p } }

// WithPresets replaces the built-in toolbar presets.
func WithPresets(presets []timetable.Preset) Option {
	return func(w *Widget) { w.presets = presets }
}

// OnChange registers the host sink for serialized values.
func OnChange(fn ChangeFunc) Option { return func(w *Widget) { w.onChange = fn } }

// WithResolver sets how pointer events find their cell (default paint.Targeted).
func WithResolver(r paint.Resolver) Option { return func(w *Widget) { w.resolve = r } }

// New creates a widget from the host's initial text. Candidates are tried in
// order and the first non-blank one wins, so a hidden input value takes
// precedence over a data attribute.
func New(initial []string, opts ...Option) *Widget {
	w := &Widget{
		policy:  Immediate,
		presets: timetable.DefaultPresets(),
	}
	for _, opt := range opts {
		opt(w)
	}

	text := ""
	for _, c := range initial {
		if strings.TrimSpace(c) != "" {
			text = c
			break
		}
	}

	w.value = timetable.Load(text)
	w.draft = w.value.Clone()
	w.ctrl = paint.New(canvas{w}, w.bounded(w.resolve))

	// the host picks up the normalized form right away
	if w.policy == Immediate {
		w.emit()
	}
	return w
}

// bounded keeps pointer events inside the visible grid of the current draft.
func (w *Widget) bounded(base paint.Resolver) paint.Resolver {
	if base == nil {
		base = paint.Targeted
	}
	return func(ev paint.Event) (paint.Cell, bool) {
		cell, ok := base(ev)
		if !ok || !cell.Day.Valid() {
			return paint.Cell{}, false
		}
		for _, s := range w.draft.Slots() {
			if s == cell.Slot {
				return cell, true
			}
		}
		return paint.Cell{}, false
	}
}

// canvas exposes the draft to the paint controller.
type canvas struct{ w *Widget }

func (c canvas) IsSelected(day model.Day, slot int) bool {
	return c.w.draft.IsSelected(day, slot)
}

func (c canvas) SetSlot(day model.Day, slot int, on bool) {
	c.w.mutate(func(p timetable.Payload) timetable.Payload { return p.SetSlot(day, slot, on) })
}

func (w *Widget) mutate(fn func(timetable.Payload) timetable.Payload) {
	w.draft = fn(w.draft)
	if w.policy == Immediate {
		w.value = w.draft.Clone()
		w.emit()
	}
}

func (w *Widget) emit() {
	if w.onChange != nil {
		w.onChange(w.value.String())
	}
}

// Pointer feeds a pointer event to the paint controller and reports whether
// the draft changed.
func (w *Widget) Pointer(ev paint.Event) bool {
	if w.policy == Draft && !w.open {
		return false
	}
	return w.ctrl.Handle(ev)
}

// GesturePointer is the pointer id bound to the gesture in progress.
func (w *Widget) GesturePointer() int { return w.ctrl.PointerID() }

// EndGesture drops the gesture in progress and keeps what it painted.
func (w *Widget) EndGesture() { w.ctrl.Reset() }

// ApplyPreset runs a toolbar preset by ID.
func (w *Widget) ApplyPreset(id string) error {
	preset, ok := timetable.FindPreset(w.presets, id)
	if !ok {
		return ErrUnknownPreset
	}
	if w.policy == Draft && !w.open {
		return nil
	}
	w.mutate(func(p timetable.Payload) timetable.Payload { return p.Apply(preset) })
	appLog.Debug("preset applied", "preset", id, "policy", string(w.policy))
	return nil
}

// Merge unions other's selections into the draft, as a preset would.
func (w *Widget) Merge(other timetable.Payload) {
	if w.policy == Draft && !w.open {
		return
	}
	w.mutate(func(p timetable.Payload) timetable.Payload {
		for _, d := range model.Week {
			for _, s := range other.Days[d.Key] {
				p = p.SetSlot(d.Key, s, true)
			}
		}
		return p
	})
}

// Clear empties every day of the draft.
func (w *Widget) Clear() {
	if w.policy == Draft && !w.open {
		return
	}
	w.mutate(timetable.Payload.ClearAll)
}

// Open starts a draft session seeded from the committed value. Under
// Immediate it only marks the widget open.
func (w *Widget) Open() {
	w.draft = w.value.Clone()
	w.open = true
}

// Close discards an unsaved draft and ends any gesture.
func (w *Widget) Close() {
	w.ctrl.Reset()
	w.open = false
	w.draft = w.value.Clone()
}

// Save commits the draft, closes the modal and returns the serialized value.
func (w *Widget) Save() string {
	w.value = w.draft.Clone()
	w.emit()
	w.ctrl.Reset()
	w.open = false
	return w.value.String()
}

func (w *Widget) Policy() Policy { return w.policy }
func (w *Widget) Presets() []timetable.Preset { return w.presets }
func (w *Widget) IsOpen() bool { return w.open }
func (w *Widget) Painting() bool { return w.ctrl.Painting() }
func (w *Widget) Committed() timetable.Payload { return w.value.Clone() }
func (w *Widget) Working() timetable.Payload { return w.draft.Clone() }
func (w *Widget) Value() string { return w.value.String() }
func (w *Widget) Summary() string { return w.value.Summarize() }
func (w *Widget) DraftSummary() string { return w.draft.Summarize() }
