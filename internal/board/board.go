// internal/board/board.go
//
// A Board is one viewer's mounted homepage.
//
// Context
// -------
// For every widget the viewer may see *and* has enabled, the Board mounts
// one widget.Controller and starts it.  It then presents the controllers
// uniformly as Cards, each a `{Data, Loading, Error}` snapshot plus the
// widget's rendered body.  Card chrome (spinner while loading, retry while
// failed) is drawn by internal/view.
//
// Subscribers receive a coalesced signal whenever any card changes.  The
// signal carries no payload; readers call Cards() for the current view.
//
// Notes
// -----
//   - Mounting goes through Registry.Enabled, so a Board never holds a
//     widget its viewer cannot see.
//   - Cards follow the order of the ids passed to New, which is the
//     viewer's saved order.
//   - Close stops every controller and closes every subscription.
//   - Oxford commas, two spaces after periods.
package board

import (
	"context"
	"errors"
	"html/template"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yanizio/threadstead/internal/widget"
)

// ErrUnknownWidget is returned for IDs that are not mounted on the board.
var ErrUnknownWidget = errors.New("board: widget not mounted")

// Card is the uniform per-widget view handed to templates and the API.
type Card struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Category   widget.Category `json:"category"`
	Size       widget.Size     `json:"size"`
	Static     bool            `json:"static"`
	Phase      widget.Phase    `json:"phase"`
	Data       widget.Data     `json:"data"`
	Loading    bool            `json:"loading"`
	Error      string          `json:"error,omitempty"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	RefreshURL string          `json:"refreshUrl,omitempty"`
	RefreshMs  int64           `json:"refreshInterval"`
	Body       template.HTML   `json:"html"`
}

// Option customises a Board.
type Option func(*Board)

// WithLogger sets the logger handed to each controller.
func WithLogger(l *zap.SugaredLogger) Option { return func(b *Board) { b.log = l } }

// WithRefreshURL sets how a card's refresh endpoint is spelled.
func WithRefreshURL(fn func(id string) string) Option {
	return func(b *Board) { b.refreshURL = fn }
}

// WithOrderedResults mounts controllers in ordered-results mode.
func WithOrderedResults() Option { return func(b *Board) { b.ordered = true } }

// Board is safe for concurrent use.
type Board struct {
	id         string
	viewer     atomic.Pointer[widget.Viewer]
	log        *zap.SugaredLogger
	refreshURL func(string) string
	ordered    bool
	lastSeen   atomic.Int64 // UnixNano

	order []string
	ctls  map[string]*widget.Controller

	mu      sync.Mutex
	subs    map[int]chan struct{}
	nextSub int
	closed  bool
}

// New mounts and starts the controllers for ids that v may see, in the
// order of ids.  The controllers run until Close; ctx is their parent.
func New(ctx context.Context, reg *widget.Registry, v *widget.Viewer, ids []string, opts ...Option) *Board {
	b := &Board{
		id:         uuid.NewString(),
		refreshURL: func(string) string { return "" },
		ctls:       make(map[string]*widget.Controller),
		subs:       make(map[int]chan struct{}),
	}
	for _, o := range opts {
		o(b)
	}
	if b.log == nil {
		b.log = zap.S()
	}
	b.viewer.Store(v)
	b.Touch()

	copts := []widget.ControllerOption{
		widget.WithLogger(b.log),
		widget.WithOnChange(func(widget.State) { b.broadcast() }),
	}
	if b.ordered {
		copts = append(copts, widget.WithOrderedResults())
	}
	rank := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, ok := rank[id]; !ok {
			rank[id] = i
		}
	}
	enabled := reg.Enabled(ids, v)
	sort.SliceStable(enabled, func(i, j int) bool {
		return rank[enabled[i].Config.ID] < rank[enabled[j].Config.ID]
	})
	for _, w := range enabled {
		b.order = append(b.order, w.Config.ID)
		b.ctls[w.Config.ID] = widget.NewController(w, v, copts...)
	}
	for _, id := range b.order {
		b.ctls[id].Start(ctx)
	}
	return b
}

// ID identifies the board in logs.
func (b *Board) ID() string { return b.id }

// Viewer returns the bound viewer; nil for anonymous.
func (b *Board) Viewer() *widget.Viewer { return b.viewer.Load() }

// Len is the number of mounted widgets.
func (b *Board) Len() int { return len(b.order) }

// Mounted lists the mounted widget IDs in display order.
func (b *Board) Mounted() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Touch marks the board as recently used.
func (b *Board) Touch() { b.lastSeen.Store(time.Now().UnixNano()) }

// LastSeen returns the last Touch time.
func (b *Board) LastSeen() time.Time { return time.Unix(0, b.lastSeen.Load()) }

// SetViewer swaps the viewer reference on every controller.  Controllers
// restart their cycle only when the viewer ID changes.
func (b *Board) SetViewer(v *widget.Viewer) {
	b.viewer.Store(v)
	for _, id := range b.order {
		b.ctls[id].SetViewer(v)
	}
}

// Cards snapshots every mounted widget in display order.
func (b *Board) Cards() []Card {
	out := make([]Card, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.card(id))
	}
	return out
}

// Card snapshots one widget.
func (b *Board) Card(id string) (Card, error) {
	if _, ok := b.ctls[id]; !ok {
		return Card{}, ErrUnknownWidget
	}
	return b.card(id), nil
}

func (b *Board) card(id string) Card {
	ctl := b.ctls[id]
	w := ctl.Widget()
	refresh := b.refreshURL(id)
	p := ctl.Props(refresh)
	s := ctl.State()
	return Card{
		ID:         id,
		Title:      w.Config.Title,
		Category:   w.Config.Category,
		Size:       w.Config.Size,
		Static:     w.Static(),
		Phase:      s.Phase,
		Data:       p.Data,
		Loading:    p.Loading,
		Error:      p.Error,
		UpdatedAt:  s.UpdatedAt,
		RefreshURL: p.RefreshURL,
		RefreshMs:  w.Config.RefreshMillis(),
		Body:       ctl.Render(refresh),
	}
}

// Refresh triggers a manual reload of one card.
func (b *Board) Refresh(id string) error {
	ctl, ok := b.ctls[id]
	if !ok {
		return ErrUnknownWidget
	}
	b.Touch()
	ctl.Refresh()
	return nil
}

// Loading reports whether any card is mid-load.
func (b *Board) Loading() bool {
	for _, id := range b.order {
		if b.ctls[id].State().Loading {
			return true
		}
	}
	return false
}

// WaitSettled blocks until no card is loading, limit elapses, or ctx ends.
// It reports whether the board settled.
func (b *Board) WaitSettled(ctx context.Context, limit time.Duration) bool {
	ch, cancel := b.Subscribe()
	defer cancel()

	timer := time.NewTimer(limit)
	defer timer.Stop()
	for {
		if !b.Loading() {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return false
		case _, ok := <-ch:
			if !ok {
				return false
			}
		}
	}
}

// Subscribe returns a channel that receives a signal after card changes.
// Bursts coalesce into one pending signal.  The channel is closed by
// cancel or by Close.
func (b *Board) Subscribe() (<-chan struct{}, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan struct{}, 1)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextSub
	b.nextSub++
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
}

func (b *Board) broadcast() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close stops every controller and closes every subscription.  Idempotent.
func (b *Board) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	b.mu.Unlock()

	for _, id := range b.order {
		b.ctls[id].Stop()
	}
}

// Closed reports whether Close has run.
func (b *Board) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
