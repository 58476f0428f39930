package view

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/threadstead/internal/board"
	"github.com/yanizio/threadstead/internal/requestinfo"
	"github.com/yanizio/threadstead/internal/widget"
)

func TestCardHTML_Chrome(t *testing.T) {
	base := board.Card{ID: "feed", Title: "Feed", Size: widget.SizeLarge, RefreshURL: "/r/feed"}

	loading := base
	loading.Loading = true
	loading.Error = "ignored while loading"
	html, err := CardHTML(loading, false)
	require.NoError(t, err)
	assert.Contains(t, string(html), "ts-spinner")
	assert.NotContains(t, string(html), "Retry")

	failed := base
	failed.Error = "upstream <down>"
	failed.Body = "<p>stale</p>"
	html, err = CardHTML(failed, true)
	require.NoError(t, err)
	assert.Contains(t, string(html), "upstream &lt;down&gt;")
	assert.Contains(t, string(html), "Retry")
	assert.Contains(t, string(html), "ts-card--compact")
	assert.NotContains(t, string(html), "stale")

	ok := base
	ok.Body = "<ul><li>hi</li></ul>"
	html, err = CardHTML(ok, false)
	require.NoError(t, err)
	assert.Contains(t, string(html), "<ul><li>hi</li></ul>")
	assert.Contains(t, string(html), `data-refresh="/r/feed"`)
}

func TestCardHTML_StaticHasNoRefresh(t *testing.T) {
	html, err := CardHTML(board.Card{ID: "welcome", Title: "Welcome", Static: true, Body: "hi"}, false)
	require.NoError(t, err)
	assert.NotContains(t, string(html), "data-refresh")
	assert.Contains(t, string(html), "hi")
}

func TestRender_HomePage(t *testing.T) {
	rr := httptest.NewRecorder()
	page := HomePage{
		Title:     "ThreadStead",
		Cards:     []board.Card{{ID: "welcome", Title: "Welcome", Body: "<b>hello</b>"}},
		Info:      &requestinfo.RequestInfo{UA: requestinfo.UA{Device: "Phone", PrimaryLang: "fr"}},
		StreamURL: "/api/home/stream",
	}
	require.NoError(t, Render(rr, "home", page))

	body := rr.Body.String()
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, body, `<html lang="fr">`)
	assert.Contains(t, body, "ts-board--compact")
	assert.Contains(t, body, "ts-device--Phone")
	assert.Contains(t, body, "<b>hello</b>")
	assert.Contains(t, body, "home.js")
}

func TestRender_EmptyBoardWithoutRequestInfo(t *testing.T) {
	rr := httptest.NewRecorder()
	require.NoError(t, Render(rr, "home", HomePage{Title: "x"}))
	assert.Contains(t, rr.Body.String(), "No widgets enabled")
	assert.Contains(t, rr.Body.String(), `lang="en"`)
}

func TestRender_UnknownTemplate(t *testing.T) {
	assert.Error(t, Render(httptest.NewRecorder(), "nope", nil))
}

func TestDict(t *testing.T) {
	m := dict("a", 1, "b", "two", "dangling")
	assert.Equal(t, map[string]any{"a": 1, "b": "two"}, m)
}

func TestStatic(t *testing.T) {
	rr := httptest.NewRecorder()
	Static().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/home.js", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "WebSocket")

	rr = httptest.NewRecorder()
	Static().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/missing.css", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
