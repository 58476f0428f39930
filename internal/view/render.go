// internal/view/render.go
//
// Central view engine: embedded template set, func-map injection, and the
// card chrome shared by the homepage and the live stream.
//
// Public helpers
// --------------
//   - Render         – write rendered HTML to an http.ResponseWriter.
//   - RenderToString – return template.HTML (cards pushed over websocket).
//   - CardHTML       – one card with chrome, for stream frames.
//   - Static         – file server for the embedded CSS and JS.
//
// All templates live under templates/ and are parsed as one set so
// sub-templates ({{ template "card" . }}) work out-of-the-box.
//
// execName()
// ----------
//   - If the set contains "<name>.html", we run that (file has no define).
//   - Else we fall back to "<name>" (root template defined via {{ define }}).
//
// Style
// -----
// • Oxford commas, two spaces after periods.

package view

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"sync"

	"github.com/yanizio/threadstead/internal/board"
	"github.com/yanizio/threadstead/internal/requestinfo"
	"github.com/yanizio/threadstead/internal/widget"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var (
	once    sync.Once
	set     *template.Template
	initErr error
)

// HomePage is the data handed to the "home" template.
type HomePage struct {
	Title     string
	Viewer    *widget.Viewer
	Cards     []board.Card
	Info      *requestinfo.RequestInfo
	StreamURL string
	Settled   bool // false when render_wait expired with cards still loading
}

// Compact reports whether to use the single-column phone layout.
func (p HomePage) Compact() bool { return p.Info != nil && p.Info.UA.Compact() }

// cardView pairs a card with layout flags for the "card" template.
type cardView struct {
	Card    board.Card
	Compact bool
}

//
// public helpers
//

// Render executes the named template and streams it to w.
func Render(w http.ResponseWriter, name string, data any) error {
	t, err := load()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, execName(t, name), data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err = buf.WriteTo(w)
	return err
}

// RenderToString executes and returns HTML.
func RenderToString(name string, data any) (template.HTML, error) {
	t, err := load()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, execName(t, name), data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// CardHTML renders one card with chrome.
func CardHTML(c board.Card, compact bool) (template.HTML, error) {
	return RenderToString("card", cardView{Card: c, Compact: compact})
}

// Static serves the embedded assets.  Mount it with the /static/ prefix
// stripped.
func Static() http.Handler {
	sub, _ := fs.Sub(staticFS, "static")
	return http.FileServer(http.FS(sub))
}

//
// internal
//

func load() (*template.Template, error) {
	once.Do(func() {
		set, initErr = template.New("view").Funcs(buildFuncMap()).ParseFS(templateFS, "templates/*.html")
	})
	return set, initErr
}

func buildFuncMap() template.FuncMap {
	fm := template.FuncMap{
		"dict": dict,
		"card": func(c board.Card, compact bool) cardView { return cardView{Card: c, Compact: compact} },
	}
	for k, v := range uaFuncMap() {
		fm[k] = v
	}
	return fm
}

// execName picks the template name to execute.
func execName(t *template.Template, name string) string {
	if tmpl := t.Lookup(name + ".html"); tmpl != nil {
		return name + ".html"
	}
	return name
}

// dict builds a map in templates: {{ dict "k" 1 "k2" "v" }}.
func dict(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		m[key] = kv[i+1]
	}
	return m
}
