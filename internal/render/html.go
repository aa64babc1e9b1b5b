package render

import (
	"bytes"
	"embed"
	"html/template"
	"io"

	"github.com/Masterminds/sprig/v3"
	"github.com/pkg/errors"

	"wtt/internal/timetable"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(
	template.New("wtt").
		Funcs(sprig.FuncMap()).
		Funcs(template.FuncMap{
			"timeCol": func() int { return TimeColPx },
			"dayCol":  func() int { return DayColPx },
		}).
		ParseFS(templateFS, "templates/*.html"),
)

// PresetButton is one toolbar entry on the editor page.
type PresetButton struct {
	ID    string
	Label string
}

// EditorData feeds the interactive editor page.
type EditorData struct {
	ID        string
	Policy    string
	Open      bool
	Presets   []PresetButton
	Grid      Grid
	Summary   string
	Value     string
	InputName string
}

// ViewData feeds the read-only page.
type ViewData struct {
	Grid
	ShowGrid bool
}

// Buttons converts presets for the toolbar.
func Buttons(presets []timetable.Preset) []PresetButton {
	out := make([]PresetButton, 0, len(presets))
	for _, p := range presets {
		out = append(out, PresetButton{ID: p.ID, Label: p.Label})
	}
	return out
}

// WriteGrid renders only the grid table (used for partial refreshes).
func WriteGrid(w io.Writer, g Grid) error {
	return execute(w, "grid", g)
}

// GridHTML is WriteGrid into a string.
func GridHTML(g Grid) (string, error) {
	var buf bytes.Buffer
	if err := WriteGrid(&buf, g); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteEditor renders the full editor page.
func WriteEditor(w io.Writer, d EditorData) error {
	return execute(w, "editor", d)
}

// WriteView renders the read-only page. The root carries data-ready="true"
// so headless capture knows when to shoot.
func WriteView(w io.Writer, d ViewData) error {
	return execute(w, "view", d)
}

func execute(w io.Writer, name string, data any) error {
	// render into a buffer first so a template error never leaves a half page
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return errors.Wrapf(err, "render %s", name)
	}
	_, err := buf.WriteTo(w)
	return err
}
