package web

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	appLog "wtt/internal/log"
	"wtt/internal/widget"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("session not found")

// Session is one editing widget owned by the HTTP host. Every access goes
// through With so the widget is only ever touched by one request at a time.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	w        *widget.Widget
	now      func() time.Time
	lastSeen time.Time
	// lastPointer is when the bound pointer of the gesture last reported.
	lastPointer time.Time
	// emitted is the last value handed to the host by the widget.
	emitted string
}

// With runs fn while holding the session lock and marks the session as used.
func (s *Session) With(fn func(w *widget.Widget)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = s.now()
	fn(s.w)
}

// gestureIdle is how long the bound pointer has been silent. Callers hold
// s.mu (it is meant to run inside With).
func (s *Session) gestureIdle() time.Duration {
	return s.lastSeen.Sub(s.lastPointer)
}

func (s *Session) markPointer() {
	s.lastPointer = s.lastSeen
}

// Emitted returns the last value the widget published through OnChange.
func (s *Session) Emitted() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emitted
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Store keeps sessions in memory, keyed by a random UUID.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create builds a widget from initial with opts and registers it.
func (st *Store) Create(initial []string, opts ...widget.Option) *Session {
	now := st.now()
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		now:       st.now,
		lastSeen:  now,
	}
	// OnChange runs inside widget calls, which already hold s.mu.
	opts = append(opts, widget.OnChange(func(v string) { s.emitted = v }))
	s.w = widget.New(initial, opts...)

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(st.sessions, id)
	return nil
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes sessions idle for longer than ttl and returns how many went.
func (st *Store) Sweep(ttl time.Duration) int {
	cutoff := st.now().Add(-ttl)

	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, s := range st.sessions {
		if s.idleSince().Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// Sweeper evicts idle sessions on a cron schedule.
type Sweeper struct {
	cron *cron.Cron
}

// StartSweeper schedules Sweep(ttl) with the given cron schedule and starts it.
func StartSweeper(st *Store, schedule string, ttl time.Duration) (*Sweeper, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if n := st.Sweep(ttl); n > 0 {
			appLog.Info("idle sessions swept", "removed", n, "remaining", st.Len())
		}
	})
	if err != nil {
		return nil, errors.Wrapf(err, "invalid sweep schedule %q", schedule)
	}
	c.Start()
	appLog.Info("session sweeper started", "schedule", schedule, "ttl", ttl.String())
	return &Sweeper{cron: c}, nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (sw *Sweeper) Stop() {
	<-sw.cron.Stop().Done()
}
