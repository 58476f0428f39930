package widgets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yanizio/threadstead/internal/auth"
	"github.com/yanizio/threadstead/internal/board"
	"github.com/yanizio/threadstead/internal/component"
	"github.com/yanizio/threadstead/internal/preferences"
	"github.com/yanizio/threadstead/internal/widget"
)

// memPrefs is an in-memory Preferences.
type memPrefs struct {
	mu   sync.Mutex
	reg  *widget.Registry
	rows map[string][]string
}

func (m *memPrefs) Resolve(_ context.Context, v *widget.Viewer) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v != nil && len(m.rows[v.ID]) > 0 {
		return m.rows[v.ID], nil
	}
	return m.reg.Defaults(v), nil
}

func (m *memPrefs) Customised(_ context.Context, v *widget.Viewer) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return v != nil && len(m.rows[v.ID]) > 0, nil
}

func (m *memPrefs) Save(_ context.Context, v *widget.Viewer, ids []string) error {
	for _, id := range ids {
		if _, ok := m.reg.Get(id); !ok {
			return fmt.Errorf("%w: %q", preferences.ErrUnknownWidget, id)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[v.ID] = ids
	return nil
}

type fixture struct {
	h       http.Handler
	hub     *board.Hub
	calls   atomic.Int32
	gate    chan struct{}
	started chan struct{}
}

var (
	member = &widget.Viewer{ID: "5", Role: "member"}
	admin  = &widget.Viewer{ID: "1", Role: widget.RoleAdmin}
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{gate: make(chan struct{}), started: make(chan struct{}, 8)}
	close(f.gate)

	reg := widget.NewRegistry()
	for _, w := range []widget.Widget{
		{Config: widget.Config{ID: "welcome", Category: widget.CategoryUtility, DefaultEnabled: true}},
		{Config: widget.Config{ID: "feed", Category: widget.CategorySocial, DefaultEnabled: true, RefreshInterval: time.Minute},
			Fetch: func(context.Context, *widget.Viewer) (widget.Data, error) {
				<-f.gate
				return widget.Data{"n": f.calls.Add(1)}, nil
			}},
		{Config: widget.Config{ID: "broken", Category: widget.CategoryExternal},
			Fetch: func(context.Context, *widget.Viewer) (widget.Data, error) { return nil, errors.New("") }},
		{Config: widget.Config{ID: "slow", Category: widget.CategoryExternal},
			Fetch: func(ctx context.Context, _ *widget.Viewer) (widget.Data, error) {
				select {
				case f.started <- struct{}{}:
				default:
				}
				select {
				case <-f.gate:
					return widget.Data{"ok": true}, nil
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}},
		{Config: widget.Config{ID: "home", RequiresAuth: true, DefaultEnabled: true}},
		{Config: widget.Config{ID: "stats", AdminOnly: true}},
	} {
		require.NoError(t, reg.Register(w))
	}

	log := zap.NewNop().Sugar()
	prefs := &memPrefs{reg: reg, rows: map[string][]string{}}
	f.hub = board.NewHub(reg, prefs, log, board.HubOptions{})
	t.Cleanup(f.hub.Close)

	r := chi.NewRouter()
	component.Mount(r, log, New(Deps{Registry: reg, Prefs: prefs, Hub: f.hub, Log: log}))
	f.h = r
	return f
}

func (f *fixture) do(method, path string, v *widget.Viewer, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if v != nil {
		req = req.WithContext(auth.WithViewer(req.Context(), v))
	}
	rr := httptest.NewRecorder()
	f.h.ServeHTTP(rr, req)
	return rr
}

func TestList_FiltersByViewer(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodGet, "/api/widgets", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `"id":"feed"`)
	assert.Contains(t, body, `"refreshInterval":60000`)
	assert.NotContains(t, body, `"id":"home"`)
	assert.NotContains(t, body, `"id":"stats"`)

	rr = f.do(http.MethodGet, "/api/widgets", member, "")
	assert.Contains(t, rr.Body.String(), `"id":"home"`)
	assert.NotContains(t, rr.Body.String(), `"id":"stats"`)
}

func TestData(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodGet, "/api/widgets/feed/data", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"id":"feed","data":{"n":1}}`, rr.Body.String())

	rr = f.do(http.MethodGet, "/api/widgets/welcome/data", nil, "")
	assert.JSONEq(t, `{"id":"welcome","data":null}`, rr.Body.String())

	rr = f.do(http.MethodGet, "/api/widgets/broken/data", nil, "")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.JSONEq(t, `{"error":"Failed to load widget data"}`, rr.Body.String())

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/widgets/stats/data", member, "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/widgets/nope/data", nil, "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/widgets/stats/data", admin, "").Code)
}

func TestData_DeduplicatesConcurrentLoads(t *testing.T) {
	f := newFixture(t)
	f.gate = make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/widgets/feed/data", nil, "").Code)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(f.gate)
	wg.Wait()
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestData_SharedLoadOutlivesFirstCaller(t *testing.T) {
	f := newFixture(t)
	f.gate = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan int, 1)
	go func() {
		req := httptest.NewRequest(http.MethodGet, "/api/widgets/slow/data", nil).WithContext(ctx)
		rr := httptest.NewRecorder()
		f.h.ServeHTTP(rr, req)
		first <- rr.Code
	}()
	<-f.started

	second := make(chan *httptest.ResponseRecorder, 1)
	go func() { second <- f.do(http.MethodGet, "/api/widgets/slow/data", nil, "") }()
	time.Sleep(20 * time.Millisecond)

	cancel()
	time.Sleep(10 * time.Millisecond)
	close(f.gate)

	rr := <-second
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"id":"slow","data":{"ok":true}}`, rr.Body.String())
	assert.Equal(t, http.StatusOK, <-first)
}

func TestPreferences_RoundTrip(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodGet, "/api/widgets/preferences", member, "")
	assert.JSONEq(t, `{"enabled":["welcome","feed","home"],"customised":false}`, rr.Body.String())

	b, err := f.hub.Get(context.Background(), member)
	require.NoError(t, err)

	rr = f.do(http.MethodPut, "/api/widgets/preferences", member, `{"enabled":["feed"]}`)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.True(t, b.Closed(), "saving invalidates the mounted board")

	rr = f.do(http.MethodGet, "/api/widgets/preferences", member, "")
	assert.JSONEq(t, `{"enabled":["feed"],"customised":true}`, rr.Body.String())
}

func TestPreferences_PutErrors(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPut, "/api/widgets/preferences", nil, `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPut, "/api/widgets/preferences", member, `{`).Code)

	rr := f.do(http.MethodPut, "/api/widgets/preferences", member, `{"enabled":["ghost"]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "ghost")
}

func TestAdmin_RequiresRole(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/admin/widgets", nil, "").Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/api/admin/widgets", member, "").Code)

	rr := f.do(http.MethodGet, "/api/admin/widgets", admin, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"id":"stats"`)
	assert.Contains(t, rr.Body.String(), `"widgets":6`)
}
