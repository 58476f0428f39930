// internal/board/hub.go
//
// Hub keeps one live Board per viewer.
//
// Context
// -------
// Auto-refresh only makes sense if a board outlives the request that built
// it, so the Hub stores boards in a sync.Map keyed by viewer ID ("anon" for
// anonymous visitors).  Concurrent first requests for the same viewer are
// collapsed with singleflight.  The evictor (evictor.go) closes boards that
// sit idle or overflow MaxBoards.
//
// A role change for a known viewer remounts the board, since the visible
// widget set may differ.  Any other viewer change is pushed through
// Board.SetViewer.
//
// Notes
// -----
//   - Boards outlive requests and the anonymous board is shared, so they
//     run on a fresh background context.  Request-scoped values (geo, UA)
//     never reach board loaders; per-request data goes through the one-shot
//     /api/widgets/{id}/data endpoint instead.
//   - Oxford commas, two spaces after periods.
package board

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/threadstead/internal/metrics"
	"github.com/yanizio/threadstead/internal/widget"
)

const anonKey = "anon"

// Resolver yields the widget IDs a viewer has enabled.
type Resolver interface {
	Resolve(ctx context.Context, v *widget.Viewer) ([]string, error)
}

// HubOptions tunes a Hub.  Zero values fall back to the defaults below.
type HubOptions struct {
	IdleTTL       time.Duration
	MaxBoards     int
	EvictInterval time.Duration
	BoardOptions  []Option
}

// Defaults used when HubOptions fields are zero.
const (
	DefaultIdleTTL       = 30 * time.Minute
	DefaultMaxBoards     = 1000
	DefaultEvictInterval = time.Minute
)

// Hub lazily mounts boards and evicts them on idle TTL or LRU pressure.
type Hub struct {
	reg   *widget.Registry
	prefs Resolver
	log   *zap.SugaredLogger
	opts  HubOptions

	sfg singleflight.Group
	m   sync.Map // key → *Board
}

// NewHub constructs a Hub.  Call Run to start eviction.
func NewHub(reg *widget.Registry, prefs Resolver, log *zap.SugaredLogger, opts HubOptions) *Hub {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	if opts.MaxBoards <= 0 {
		opts.MaxBoards = DefaultMaxBoards
	}
	if opts.EvictInterval <= 0 {
		opts.EvictInterval = DefaultEvictInterval
	}
	if log == nil {
		log = zap.S()
	}
	return &Hub{reg: reg, prefs: prefs, log: log, opts: opts}
}

func keyFor(v *widget.Viewer) string {
	if v == nil {
		return anonKey
	}
	return v.ID
}

// Get returns the viewer's board, mounting it on demand.
func (h *Hub) Get(ctx context.Context, v *widget.Viewer) (*Board, error) {
	key := keyFor(v)
	if b, ok := h.lookup(key, v); ok {
		return b, nil
	}

	res, err, _ := h.sfg.Do(key, func() (interface{}, error) {
		// Double-check after singleflight barrier.
		if b, ok := h.lookup(key, v); ok {
			return b, nil
		}
		ids, err := h.prefs.Resolve(ctx, v)
		if err != nil {
			return nil, err
		}
		opts := append([]Option{WithLogger(h.log)}, h.opts.BoardOptions...)
		b := New(context.Background(), h.reg, v, ids, opts...)
		h.m.Store(key, b)
		metrics.BoardCreateTotal.Inc()
		metrics.ActiveBoards.Inc()
		h.log.Debugw("board mounted", "board", b.ID(), "viewer", key, "widgets", b.Mounted())
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*Board), nil
}

// lookup returns a live board for key, remounting on a role change.
func (h *Hub) lookup(key string, v *widget.Viewer) (*Board, bool) {
	val, ok := h.m.Load(key)
	if !ok {
		return nil, false
	}
	b := val.(*Board)
	if b.Closed() {
		h.m.CompareAndDelete(key, b)
		return nil, false
	}
	old := b.Viewer()
	if v != nil && old != nil && old.Role != v.Role {
		h.remove(key, b, "role changed")
		return nil, false
	}
	if v != nil && old != nil && *old != *v {
		b.SetViewer(v)
	}
	b.Touch()
	return b, true
}

// Peek returns the viewer's board without mounting one.
func (h *Hub) Peek(v *widget.Viewer) (*Board, bool) {
	val, ok := h.m.Load(keyFor(v))
	if !ok {
		return nil, false
	}
	return val.(*Board), true
}

// Invalidate drops the viewer's board so the next Get remounts it.  Used
// after preference changes.
func (h *Hub) Invalidate(v *widget.Viewer) {
	key := keyFor(v)
	if val, ok := h.m.Load(key); ok {
		h.remove(key, val.(*Board), "invalidated")
	}
}

// Len reports how many boards are mounted.
func (h *Hub) Len() int {
	n := 0
	h.m.Range(func(_, _ any) bool { n++; return true })
	return n
}

// Close closes every board.  The Hub stays usable.
func (h *Hub) Close() {
	h.m.Range(func(key, val any) bool {
		h.remove(key.(string), val.(*Board), "shutdown")
		return true
	})
}

func (h *Hub) remove(key string, b *Board, reason string) {
	if !h.m.CompareAndDelete(key, b) {
		return
	}
	b.Close()
	metrics.BoardEvictTotal.Inc()
	metrics.ActiveBoards.Dec()
	h.log.Debugw("board closed", "board", b.ID(), "viewer", key, "reason", reason)
}
