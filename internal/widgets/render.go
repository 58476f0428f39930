// internal/widgets/render.go
//
// Shared template set for built-in widget bodies.  Each widget has one
// {{ define "<id>" }} block under templates/.  Card chrome (title bar,
// spinner, retry) is drawn by internal/view, not here.

package widgets

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/threadstead/internal/widget"
)

//go:embed templates/*.html
var templateFS embed.FS

var bodies = template.Must(template.New("widgets").Funcs(template.FuncMap{
	"ago":    ago,
	"plural": plural,
}).ParseFS(templateFS, "templates/*.html"))

// renderer returns a RenderFunc that executes the named block.  Template
// errors are logged and produce an empty body instead of a panic.
func renderer(name string) widget.RenderFunc {
	return func(p widget.Props) template.HTML {
		var buf bytes.Buffer
		if err := bodies.ExecuteTemplate(&buf, name, p); err != nil {
			zap.S().Errorw("widget render failed", "widget", name, "err", err)
			return ""
		}
		return template.HTML(buf.String())
	}
}

// ago formats t relative to now ("5m ago").  Zero time renders empty.
func ago(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
