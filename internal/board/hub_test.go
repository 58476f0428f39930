package board

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yanizio/threadstead/internal/requestinfo"
	"github.com/yanizio/threadstead/internal/widget"
)

type fakePrefs struct {
	calls atomic.Int32
	ids   []string
	err   error
}

func (f *fakePrefs) Resolve(_ context.Context, _ *widget.Viewer) ([]string, error) {
	f.calls.Add(1)
	time.Sleep(5 * time.Millisecond)
	return f.ids, f.err
}

func newHub(t *testing.T, prefs *fakePrefs, o HubOptions) *Hub {
	t.Helper()
	h := NewHub(testRegistry(t, newGate()), prefs, zap.NewNop().Sugar(), o)
	t.Cleanup(h.Close)
	return h
}

func TestHub_SingleflightMount(t *testing.T) {
	prefs := &fakePrefs{ids: []string{"hello"}}
	h := newHub(t, prefs, HubOptions{})

	var wg sync.WaitGroup
	boards := make([]*Board, 8)
	for i := range boards {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := h.Get(context.Background(), nil)
			assert.NoError(t, err)
			boards[i] = b
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), prefs.calls.Load())
	for _, b := range boards {
		assert.Same(t, boards[0], b)
	}
	assert.Equal(t, 1, h.Len())
}

func TestHub_ResolveError(t *testing.T) {
	h := newHub(t, &fakePrefs{err: errors.New("db down")}, HubOptions{})
	_, err := h.Get(context.Background(), nil)
	assert.EqualError(t, err, "db down")
	assert.Zero(t, h.Len())
}

func TestHub_Invalidate(t *testing.T) {
	prefs := &fakePrefs{ids: []string{"hello"}}
	h := newHub(t, prefs, HubOptions{})
	v := &widget.Viewer{ID: "9"}

	first, err := h.Get(context.Background(), v)
	require.NoError(t, err)
	h.Invalidate(v)
	assert.True(t, first.Closed())

	second, err := h.Get(context.Background(), v)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, int32(2), prefs.calls.Load())
}

func TestHub_RoleChangeRemounts(t *testing.T) {
	prefs := &fakePrefs{ids: []string{"ops", "hello"}}
	h := newHub(t, prefs, HubOptions{})

	member, err := h.Get(context.Background(), &widget.Viewer{ID: "3", Role: "member"})
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, member.Mounted())

	admin, err := h.Get(context.Background(), &widget.Viewer{ID: "3", Role: widget.RoleAdmin})
	require.NoError(t, err)
	assert.True(t, member.Closed())
	assert.Equal(t, []string{"ops", "hello"}, admin.Mounted())
}

func TestHub_HandleChangeSwapsViewer(t *testing.T) {
	h := newHub(t, &fakePrefs{ids: []string{"hello"}}, HubOptions{})
	b, err := h.Get(context.Background(), &widget.Viewer{ID: "4", PrimaryHandle: "old"})
	require.NoError(t, err)

	again, err := h.Get(context.Background(), &widget.Viewer{ID: "4", PrimaryHandle: "new"})
	require.NoError(t, err)
	assert.Same(t, b, again)
	assert.Equal(t, "new", b.Viewer().PrimaryHandle)
}

func TestHub_EvictIdleAndLRU(t *testing.T) {
	h := newHub(t, &fakePrefs{ids: []string{"hello"}}, HubOptions{IdleTTL: time.Hour, MaxBoards: 2})

	var boards []*Board
	for _, id := range []string{"1", "2", "3"} {
		b, err := h.Get(context.Background(), &widget.Viewer{ID: id})
		require.NoError(t, err)
		boards = append(boards, b)
		time.Sleep(2 * time.Millisecond)
	}

	h.evict(time.Now())
	assert.Equal(t, 2, h.Len())
	assert.True(t, boards[0].Closed(), "oldest evicted under pressure")

	h.evict(time.Now().Add(2 * time.Hour))
	assert.Zero(t, h.Len())
	assert.True(t, boards[2].Closed())
}

func TestHub_RunClosesOnShutdown(t *testing.T) {
	h := newHub(t, &fakePrefs{ids: []string{"hello"}}, HubOptions{EvictInterval: time.Millisecond})
	b, err := h.Get(context.Background(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()
	time.Sleep(5 * time.Millisecond)
	cancel()

	require.NoError(t, <-done)
	assert.True(t, b.Closed())

	_, ok := h.Peek(nil)
	assert.False(t, ok)
}

func TestHub_SharedBoardIgnoresRequestGeo(t *testing.T) {
	reg := widget.NewRegistry()
	require.NoError(t, reg.Register(widget.Widget{
		Config: widget.Config{ID: "wx", DefaultEnabled: true},
		Fetch: func(ctx context.Context, _ *widget.Viewer) (widget.Data, error) {
			city := ""
			if info := requestinfo.FromContext(ctx); info != nil {
				city = info.Geo.City
			}
			return widget.Data{"city": city}, nil
		},
	}))
	h := NewHub(reg, &fakePrefs{ids: []string{"wx"}}, zap.NewNop().Sugar(), HubOptions{})
	t.Cleanup(h.Close)

	at := func(city string) context.Context {
		return requestinfo.WithInfo(context.Background(), &requestinfo.RequestInfo{
			Geo: requestinfo.Geo{City: city, Located: true},
		})
	}

	paris, err := h.Get(at("Paris"), nil)
	require.NoError(t, err)
	require.True(t, paris.WaitSettled(context.Background(), time.Second))

	tokyo, err := h.Get(at("Tokyo"), nil)
	require.NoError(t, err)
	require.Same(t, paris, tokyo)
	require.NoError(t, tokyo.Refresh("wx"))
	require.True(t, tokyo.WaitSettled(context.Background(), time.Second))

	card, err := tokyo.Card("wx")
	require.NoError(t, err)
	assert.Equal(t, "", card.Data["city"], "a shared board never sees a visitor's location")
}
