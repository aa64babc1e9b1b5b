package web

import (
	"net/http"

	"wtt/internal/render"
	"wtt/internal/timetable"
	"wtt/internal/widget"
)

// GET /sessions/{id}
func (s *Server) handleEditorPage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var data render.EditorData
	sess.With(func(wd *widget.Widget) {
		data = render.EditorData{
			ID:        sess.ID,
			Policy:    string(wd.Policy()),
			Open:      wd.IsOpen(),
			Presets:   render.Buttons(wd.Presets()),
			Grid:      render.BuildGrid(wd.Working(), false),
			Summary:   wd.Summary(),
			Value:     wd.Value(),
			InputName: r.URL.Query().Get("name"),
		}
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.WriteEditor(w, data); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to render editor")
	}
}

// GET /sessions/{id}/grid
func (s *Server) handleGridFragment(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var g render.Grid
	sess.With(func(wd *widget.Widget) { g = render.BuildGrid(wd.Working(), false) })

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.WriteGrid(w, g); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to render grid")
	}
}

// GET /view?value=...&grid=0
//
// Read-only rendering of any serialized value; malformed input shows the
// empty default.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := timetable.Load(q.Get("value"))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := render.WriteView(w, render.ViewData{
		Grid:     render.BuildGrid(p, true),
		ShowGrid: q.Get("grid") != "0",
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to render view")
	}
}
