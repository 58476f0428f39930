package home

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yanizio/threadstead/internal/board"
	"github.com/yanizio/threadstead/internal/component"
	"github.com/yanizio/threadstead/internal/widget"
)

type allEnabled struct{ reg *widget.Registry }

func (a allEnabled) Resolve(_ context.Context, v *widget.Viewer) ([]string, error) {
	return a.reg.Defaults(v), nil
}

type env struct {
	srv   *httptest.Server
	calls atomic.Int32
	hub   *board.Hub
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{}
	reg := widget.NewRegistry()
	require.NoError(t, reg.Register(widget.Widget{
		Config: widget.Config{ID: "hello", Title: "Hello", DefaultEnabled: true},
		Render: func(widget.Props) template.HTML { return "<p>hi there</p>" },
	}))
	require.NoError(t, reg.Register(widget.Widget{
		Config: widget.Config{ID: "count", Title: "Count", DefaultEnabled: true},
		Render: func(p widget.Props) template.HTML {
			if p.Data == nil {
				return ""
			}
			return template.HTML("<p>calls=" + itoa(p.Data["n"].(int32)) + "</p>")
		},
		Fetch: func(context.Context, *widget.Viewer) (widget.Data, error) {
			return widget.Data{"n": e.calls.Add(1)}, nil
		},
	}))

	log := zap.NewNop().Sugar()
	e.hub = board.NewHub(reg, allEnabled{reg}, log, board.HubOptions{
		BoardOptions: []board.Option{board.WithRefreshURL(RefreshPath)},
	})
	t.Cleanup(e.hub.Close)

	r := chi.NewRouter()
	component.Mount(r, log, New(Deps{Hub: e.hub, RenderWait: time.Second, Log: log}))
	e.srv = httptest.NewServer(r)
	t.Cleanup(e.srv.Close)
	return e
}

func TestPage_RendersSettledCards(t *testing.T) {
	e := newEnv(t)
	resp, err := http.Get(e.srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := readAll(t, resp)
	assert.Contains(t, body, "hi there")
	assert.Contains(t, body, "calls=1")
	assert.Contains(t, body, `data-refresh="/api/home/cards/count/refresh"`)
	assert.Contains(t, body, `data-stream="/api/home/stream"`)
}

func TestCardsAndRefresh(t *testing.T) {
	e := newEnv(t)

	resp, err := http.Get(e.srv.URL + "/api/home/cards")
	require.NoError(t, err)
	var got struct {
		Cards []board.Card `json:"cards"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	resp.Body.Close()
	require.Len(t, got.Cards, 2)
	assert.Equal(t, "hello", got.Cards[0].ID)

	resp, err = http.Post(e.srv.URL+RefreshPath("count"), "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Eventually(t, func() bool { return e.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	resp, err = http.Post(e.srv.URL+RefreshPath("missing"), "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStream_PushesInitialAndChangedCards(t *testing.T) {
	e := newEnv(t)
	wsURL := "ws" + strings.TrimPrefix(e.srv.URL, "http") + StreamPath

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first frame
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "cards", first.Type)
	ids := map[string]bool{}
	for _, c := range first.Cards {
		ids[c.ID] = true
	}
	assert.True(t, ids["hello"])

	before := e.calls.Load()
	require.NoError(t, conn.WriteJSON(inbound{Type: "refresh", ID: "count"}))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var f frame
		require.NoError(t, conn.ReadJSON(&f))
		for _, c := range f.Cards {
			assert.NotEqual(t, "hello", c.ID, "static card is never re-sent")
			if c.ID == "count" && !c.Loading && e.calls.Load() > before {
				assert.Contains(t, c.HTML, "calls=")
				return
			}
		}
	}
	t.Fatal("no refreshed frame for count")
}

func TestStream_ClosesWhenBoardEvicted(t *testing.T) {
	e := newEnv(t)
	wsURL := "ws" + strings.TrimPrefix(e.srv.URL, "http") + StreamPath
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	e.hub.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
			return
		}
	}
}

func TestRefreshPath_Escapes(t *testing.T) {
	assert.Equal(t, "/api/home/cards/a%2Fb/refresh", RefreshPath("a/b"))
}
