package web

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"

	"wtt/internal/capture"
	"wtt/internal/ics"
	appLog "wtt/internal/log"
	"wtt/internal/model"
	"wtt/internal/paint"
	"wtt/internal/render"
	"wtt/internal/timetable"
	"wtt/internal/widget"
)

const maxBodyBytes = 64 << 10

// staleGesture is how long a gesture's pointer may stay silent before a down
// from another pointer is allowed to end it. A lost up/cancel would otherwise
// keep the session bound to a pointer id that will never come back.
const staleGesture = 2 * time.Second

var validate = validator.New()

// sessionResponse is the JSON state of one editing session.
type sessionResponse struct {
	ID           string            `json:"id"`
	Policy       widget.Policy     `json:"policy"`
	Open         bool              `json:"open"`
	Painting     bool              `json:"painting"`
	Value        string            `json:"value"`
	Payload      timetable.Payload `json:"payload"`
	Draft        timetable.Payload `json:"draft"`
	Summary      string            `json:"summary"`
	DraftSummary string            `json:"draft_summary"`
	Changed      *bool             `json:"changed,omitempty"`
	Grid         string            `json:"grid,omitempty"`
	Import       *ics.Report       `json:"import,omitempty"`
}

func snapshot(s *Session, w *widget.Widget, withGrid bool) sessionResponse {
	resp := sessionResponse{
		ID:           s.ID,
		Policy:       w.Policy(),
		Open:         w.IsOpen(),
		Painting:     w.Painting(),
		Value:        w.Value(),
		Payload:      w.Committed(),
		Draft:        w.Working(),
		Summary:      w.Summary(),
		DraftSummary: w.DraftSummary(),
	}
	if withGrid {
		html, err := render.GridHTML(render.BuildGrid(w.Working(), false))
		if err != nil {
			appLog.Error("grid render failed", err, "session", s.ID)
		}
		resp.Grid = html
	}
	return resp
}

// session resolves {id} or writes 404.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sess, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return sess, true
}

type createSessionRequest struct {
	// Value is the host input value: a JSON string (possibly double-encoded)
	// or an already-decoded object.
	Value any `json:"value"`
	// Initial is the attribute/prop fallback used when Value is blank.
	Initial string `json:"initial"`
	Policy  string `json:"policy" validate:"omitempty,oneof=immediate draft"`
}

func candidateText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// POST /api/sessions
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil && err != io.EOF {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	policy := s.policy
	if req.Policy != "" {
		policy = widget.ParsePolicy(req.Policy)
	}

	sess := s.store.Create(
		[]string{candidateText(req.Value), req.Initial},
		widget.WithPolicy(policy),
		widget.WithPresets(s.presets),
	)
	appLog.Info("session created", "session", sess.ID, "policy", string(policy))

	var resp sessionResponse
	sess.With(func(wd *widget.Widget) { resp = snapshot(sess, wd, false) })
	writeJSON(w, http.StatusCreated, resp)
}

// GET /api/sessions/{id}
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var resp sessionResponse
	sess.With(func(wd *widget.Widget) { resp = snapshot(sess, wd, r.URL.Query().Get("grid") == "1") })
	writeJSON(w, http.StatusOK, resp)
}

// DELETE /api/sessions/{id}
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type pointerRequest struct {
	Type      string     `json:"type" validate:"required,oneof=down move enter up cancel"`
	PointerID int        `json:"pointer_id"`
	Day       *model.Day `json:"day,omitempty"`
	Slot      *int       `json:"slot,omitempty"`
	X         float64    `json:"x"`
	Y         float64    `json:"y"`
}

func (p pointerRequest) event() paint.Event {
	t, _ := paint.ParseEventType(p.Type)
	ev := paint.Event{Type: t, PointerID: p.PointerID, X: p.X, Y: p.Y}
	if p.Day != nil && p.Slot != nil {
		ev.Target = &paint.Cell{Day: model.Day(strings.ToUpper(string(*p.Day))), Slot: *p.Slot}
	}
	return ev
}

// POST /api/sessions/{id}/pointer
//
// The shim posts events in the order the browser delivered them; the
// session lock keeps them applied in that order.
func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req pointerRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ev := req.event()
	var resp sessionResponse
	sess.With(func(wd *widget.Widget) {
		if ev.Type == paint.PointerDown && wd.Painting() && wd.GesturePointer() != ev.PointerID {
			if idle := sess.gestureIdle(); idle > staleGesture {
				appLog.Warn("stale gesture dropped", "session", sess.ID, "pointer", wd.GesturePointer(), "idle", idle.String())
				wd.EndGesture()
			}
		}
		changed := wd.Pointer(ev)
		if wd.Painting() && wd.GesturePointer() == ev.PointerID {
			sess.markPointer()
		}
		resp = snapshot(sess, wd, changed)
		resp.Changed = &changed
	})
	writeJSON(w, http.StatusOK, resp)
}

// mutate runs fn on the session widget and answers with the new state and grid.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn func(wd *widget.Widget) error) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var (
		resp sessionResponse
		err  error
	)
	sess.With(func(wd *widget.Widget) {
		if err = fn(wd); err == nil {
			resp = snapshot(sess, wd, true)
		}
	})
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /api/sessions/{id}/presets/{preset}
func (s *Server) handlePreset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "preset")
	s.mutate(w, r, func(wd *widget.Widget) error { return wd.ApplyPreset(id) })
}

// POST /api/sessions/{id}/clear
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(wd *widget.Widget) error { wd.Clear(); return nil })
}

// POST /api/sessions/{id}/open
func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(wd *widget.Widget) error { wd.Open(); return nil })
}

// POST /api/sessions/{id}/close
func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(wd *widget.Widget) error { wd.Close(); return nil })
}

// POST /api/sessions/{id}/save
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(wd *widget.Widget) error {
		wd.Save()
		appLog.Debug("draft saved", "summary", wd.Summary())
		return nil
	})
}

type importRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// POST /api/sessions/{id}/import
//
// Body is either raw text/calendar or {"url": "..."} for a remote feed.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, ics.MaxFeedBytes+1))
	if err != nil || len(body) > ics.MaxFeedBytes {
		writeError(w, http.StatusBadRequest, "calendar body too large or unreadable")
		return
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req importRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		u, err := url.Parse(req.URL)
		if err != nil || !s.cfg.Import.AllowsHost(u.Hostname()) {
			writeError(w, http.StatusForbidden, "remote import not allowed for this host")
			return
		}
		res, err := s.fetcher.Fetch(r.Context(), req.URL)
		if err != nil {
			appLog.Error("ics import fetch failed", err, "session", sess.ID)
			writeError(w, http.StatusBadGateway, "failed to fetch calendar")
			return
		}
		body = res.Body
	}

	imported, rep, err := ics.Import(body)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var resp sessionResponse
	sess.With(func(wd *widget.Widget) {
		wd.Merge(imported)
		resp = snapshot(sess, wd, true)
	})
	resp.Import = &rep
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/sessions/{id}/availability.ics
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var p timetable.Payload
	sess.With(func(wd *widget.Widget) { p = wd.Committed() })

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="availability.ics"`)
	_, _ = io.WriteString(w, ics.Export(p, ics.ExportOptions{}))
}

// GET /api/sessions/{id}/preview.png
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.Capture.Enabled {
		writeError(w, http.StatusNotFound, "capture disabled")
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var value string
	sess.With(func(wd *widget.Widget) { value = wd.Value() })

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(s.cfg.Capture.TimeoutSec)*time.Second)
	defer cancel()

	png, err := s.capturer.CapturePNG(ctx, capture.Options{
		URL:     s.viewURL(value),
		Width:   s.cfg.Capture.Width,
		Height:  s.cfg.Capture.Height,
		Timeout: time.Duration(s.cfg.Capture.TimeoutSec) * time.Second,
	})
	if err != nil {
		appLog.Error("preview capture failed", err, "session", sess.ID)
		writeError(w, http.StatusInternalServerError, "failed to capture preview")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = io.Copy(w, bytes.NewReader(png))
}

// viewURL is how the headless browser reaches the read-only page.
func (s *Server) viewURL(value string) string {
	base := s.cfg.Capture.BaseURL
	if base == "" {
		base = "http://" + s.cfg.Listen
	}
	u, err := url.Parse(strings.TrimRight(base, "/") + "/view")
	if err != nil {
		u = &url.URL{Scheme: "http", Host: s.cfg.Listen, Path: "/view"}
	}
	if s.basicAuthEnabled() {
		u.User = url.UserPassword(s.cfg.BasicAuth.Username, s.cfg.BasicAuth.Password)
	}
	u.RawQuery = url.Values{"value": {value}}.Encode()
	return u.String()
}

type summaryResponse struct {
	Value   string              `json:"value"`
	Summary string              `json:"summary"`
	Compact string              `json:"compact"`
	Empty   bool                `json:"empty"`
	Ranges  map[string][]string `json:"ranges"`
}

// GET /api/summary?value=...
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	p := timetable.Load(r.URL.Query().Get("value"))
	resp := summaryResponse{
		Value:   p.String(),
		Summary: p.Summarize(),
		Compact: p.SummarizeCompact(),
		Empty:   p.Empty(),
		Ranges:  make(map[string][]string, len(model.Week)),
	}
	for _, d := range model.Week {
		resp.Ranges[string(d.Key)] = p.DayRanges(d.Key)
	}
	writeJSON(w, http.StatusOK, resp)
}
