// Package paint turns pointer gestures over a day/slot grid into slot
// mutations. It knows nothing about DOM, HTTP or terminals: hosts feed it
// events and a Resolver that says which cell an event is over.
package paint

import (
	"strconv"

	"wtt/internal/model"
)

// EventType is the kind of pointer event.
type EventType string

const (
	PointerDown   EventType = "down"
	PointerMove   EventType = "move"
	PointerEnter  EventType = "enter"
	PointerUp     EventType = "up"
	PointerCancel EventType = "cancel"
)

// ParseEventType maps the wire name onto an EventType.
func ParseEventType(s string) (EventType, bool) {
	switch t := EventType(s); t {
	case PointerDown, PointerMove, PointerEnter, PointerUp, PointerCancel:
		return t, true
	}
	return "", false
}

// Cell addresses one grid cell.
type Cell struct {
	Day  model.Day
	Slot int
}

// Key is the "DAY-slot" string used to suppress repeated application.
func (c Cell) Key() string {
	return string(c.Day) + "-" + strconv.Itoa(c.Slot)
}

// Event is a single pointer event as delivered by the host.
type Event struct {
	Type      EventType
	PointerID int

	// X, Y are host coordinates, used by coordinate resolvers.
	X, Y float64

	// Target is the cell the host already resolved (DOM closest(".wtt-slot"),
	// pointer-enter on a cell component). Nil when unknown.
	Target *Cell
}

// Resolver maps an event to the grid cell under it.
type Resolver func(Event) (Cell, bool)

// Targeted resolves events through their pre-resolved Target.
func Targeted(ev Event) (Cell, bool) {
	if ev.Target == nil {
		return Cell{}, false
	}
	return *ev.Target, true
}

// Canvas is the mutable selection the controller paints on.
type Canvas interface {
	IsSelected(day model.Day, slot int) bool
	SetSlot(day model.Day, slot int, on bool)
}

// State of the gesture state machine.
type State int

const (
	Idle State = iota
	Painting
)

func (s State) String() string {
	if s == Painting {
		return "painting"
	}
	return "idle"
}

// Mode is decided by the first cell of a gesture.
type Mode int

const (
	ModeOn Mode = iota
	ModeOff
)

func (m Mode) String() string {
	if m == ModeOff {
		return "off"
	}
	return "on"
}

// Controller is the drag-to-paint state machine.
//
//	Idle --down(cell)--> Painting --up/cancel(bound pointer)--> Idle
//
// While Painting, move/enter events of the bound pointer apply the gesture's
// mode to every newly entered cell exactly once per pass. Events of other
// pointers are ignored, as are events that do not resolve to a cell. There is
// no rollback: cancel keeps everything already painted.
type Controller struct {
	canvas  Canvas
	resolve Resolver

	state     State
	mode      Mode
	pointerID int
	lastKey   string
}

// New builds a controller. A nil resolver means Targeted.
func New(canvas Canvas, resolve Resolver) *Controller {
	if resolve == nil {
		resolve = Targeted
	}
	return &Controller{canvas: canvas, resolve: resolve}
}

// Handle feeds one event and reports whether it mutated the canvas.
func (c *Controller) Handle(ev Event) bool {
	switch ev.Type {
	case PointerDown:
		return c.down(ev)
	case PointerMove, PointerEnter:
		return c.move(ev)
	case PointerUp, PointerCancel:
		c.stop(ev)
		return false
	default:
		return false
	}
}

func (c *Controller) down(ev Event) bool {
	// A second finger landing mid-gesture does not steal the bound pointer.
	if c.state == Painting && ev.PointerID != c.pointerID {
		return false
	}
	cell, ok := c.resolve(ev)
	if !ok {
		return false
	}

	c.state = Painting
	c.pointerID = ev.PointerID
	if c.canvas.IsSelected(cell.Day, cell.Slot) {
		c.mode = ModeOff
	} else {
		c.mode = ModeOn
	}

	c.canvas.SetSlot(cell.Day, cell.Slot, c.mode == ModeOn)
	c.lastKey = cell.Key()
	return true
}

func (c *Controller) move(ev Event) bool {
	if c.state != Painting || ev.PointerID != c.pointerID {
		return false
	}
	cell, ok := c.resolve(ev)
	if !ok {
		return false
	}
	key := cell.Key()
	if key == c.lastKey {
		return false
	}
	c.lastKey = key

	c.canvas.SetSlot(cell.Day, cell.Slot, c.mode == ModeOn)
	return true
}

func (c *Controller) stop(ev Event) {
	if c.state != Painting || ev.PointerID != c.pointerID {
		return
	}
	c.Reset()
}

// Reset drops any gesture in progress, e.g. when the hosting modal closes.
func (c *Controller) Reset() {
	c.state = Idle
	c.pointerID = 0
	c.lastKey = ""
}

func (c *Controller) State() State { return c.state }
func (c *Controller) Mode() Mode   { return c.mode }

// PointerID is the bound pointer while Painting, 0 when Idle.
func (c *Controller) PointerID() int { return c.pointerID }

// Painting reports whether a gesture is in progress.
func (c *Controller) Painting() bool { return c.state == Painting }
