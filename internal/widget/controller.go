// internal/widget/controller.go
//
// Per-instance load, refresh, and error lifecycle.
//
// Context
// -------
// One Controller drives exactly one mounted widget.  It owns the instance
// state `{Data, Loading, Error}` and moves it through four phases:
//
//	Idle ──Start/Refresh──▶ Loading ──ok──▶ Loaded
//	                           └────err──▶ Failed
//
// A static widget (no Loader) stays Idle with nil Data forever.
//
// Lifecycle contract
// ------------------
//   - Start(ctx) runs the first load and arms the auto-refresh ticker.
//   - Stop() tears the ticker down.  Results that settle afterwards are
//     dropped without touching state.
//   - Refresh() starts a load regardless of phase.  It is not blocked by an
//     in-flight automatic load.
//   - SetViewer / SetWidget start a fresh cycle when the viewer ID or the
//     widget ID changes, and discard results from earlier cycles.
//   - An automatic tick that arrives while Loading is skipped, not queued.
//
// Ordering
// --------
// Within one cycle overlapping loads resolve last-settled-wins.  Callers
// that need strict request ordering pass WithOrderedResults, which drops
// any result older than the newest one already applied.
//
// Notes
// -----
//   - The Loader context is cancelled on Stop.  No timeout is imposed.
//   - A panicking Loader is recovered and reported as a failure.
//   - OnChange callbacks run outside the lock, on the goroutine that caused
//     the transition.
package widget

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yanizio/threadstead/internal/metrics"
)

// FallbackError is shown when a Loader fails without a message.
const FallbackError = "Failed to load widget data"

//
// Phase and State
//

// Phase is the coarse lifecycle position of a Controller.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseLoaded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

// MarshalText lets Phase encode as its name in JSON.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText accepts the names produced by MarshalText.
func (p *Phase) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*p = PhaseIdle
	case "loading":
		*p = PhaseLoading
	case "loaded":
		*p = PhaseLoaded
	case "failed":
		*p = PhaseFailed
	default:
		return fmt.Errorf("widget: unknown phase %q", b)
	}
	return nil
}

// State is a point-in-time snapshot of a Controller.
type State struct {
	Phase     Phase     `json:"phase"`
	Data      Data      `json:"data"`
	Loading   bool      `json:"loading"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

//
// Options
//

// ControllerOption customises a Controller at construction.
type ControllerOption func(*Controller)

// WithLogger routes load failures to l.  Defaults to zap.S().
func WithLogger(l *zap.SugaredLogger) ControllerOption {
	return func(c *Controller) { c.log = l }
}

// WithOnChange registers fn to receive every applied transition.
func WithOnChange(fn func(State)) ControllerOption {
	return func(c *Controller) { c.onChange = fn }
}

// WithOrderedResults discards results that settle after a newer load's
// result was already applied.
func WithOrderedResults() ControllerOption {
	return func(c *Controller) { c.ordered = true }
}

//
// Controller
//

// Controller is safe for concurrent use.
type Controller struct {
	id       string
	log      *zap.SugaredLogger
	onChange func(State)
	ordered  bool

	mu      sync.Mutex
	widget  Widget
	viewer  *Viewer
	state   State
	started bool
	stopped bool

	gen     uint64 // bumped on identity change and on Stop
	seq     uint64 // last issued load
	applied uint64 // last applied load (ordered mode)

	ctx      context.Context
	cancel   context.CancelFunc
	ticker   *time.Ticker
	tickDone chan struct{}
}

// NewController binds w to viewer v.  Nothing runs until Start.
func NewController(w Widget, v *Viewer, opts ...ControllerOption) *Controller {
	c := &Controller{
		id:     uuid.NewString(),
		widget: w,
		viewer: v,
	}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = zap.S()
	}
	return c
}

// ID is a unique instance identifier, handy for log correlation.
func (c *Controller) ID() string { return c.id }

// Widget returns the currently bound widget.
func (c *Controller) Widget() Widget {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.widget
}

// Viewer returns the currently bound viewer.
func (c *Controller) Viewer() *Viewer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewer
}

// State returns a snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start begins the first load cycle and arms auto-refresh.  Calling Start
// twice, or after Stop, is a no-op.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started || c.stopped {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.armTickerLocked()
	c.mu.Unlock()

	metrics.ActiveControllers.Inc()
	c.load(false)
}

// Stop cancels the ticker and silences late results.  Idempotent.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	wasStarted := c.started
	c.stopped = true
	c.gen++
	c.disarmTickerLocked()
	cancel := c.cancel
	c.mu.Unlock()

	if wasStarted {
		cancel()
		metrics.ActiveControllers.Dec()
	}
}

// Refresh starts a load cycle regardless of the current phase.
func (c *Controller) Refresh() { c.load(false) }

// SetViewer rebinds the viewer.  A change of viewer ID starts a fresh
// cycle; the same ID only swaps the reference.
func (c *Controller) SetViewer(v *Viewer) {
	c.mu.Lock()
	changed := viewerKey(v) != viewerKey(c.viewer)
	c.viewer = v
	if changed {
		c.gen++
	}
	active := c.started && !c.stopped
	c.mu.Unlock()

	if changed && active {
		c.load(false)
	}
}

// SetWidget rebinds the widget.  A new Config.ID, or gaining a Loader,
// starts a fresh cycle; a new RefreshInterval only rebuilds the ticker.
func (c *Controller) SetWidget(w Widget) {
	c.mu.Lock()
	old := c.widget
	c.widget = w
	idChanged := old.Config.ID != w.Config.ID
	tickChanged := idChanged ||
		old.Config.RefreshInterval != w.Config.RefreshInterval ||
		old.Static() != w.Static()
	if idChanged || w.Static() {
		c.gen++
	}
	if w.Static() {
		c.state = State{}
	}
	active := c.started && !c.stopped
	if active && tickChanged {
		c.disarmTickerLocked()
		c.armTickerLocked()
	}
	snap := c.state
	c.mu.Unlock()

	switch {
	case !active:
	case idChanged, old.Static() && !w.Static():
		c.load(false)
	case w.Static() && !old.Static():
		c.notify(snap)
	}
}

// SetInterval replaces the auto-refresh interval and rebuilds the ticker.
func (c *Controller) SetInterval(d time.Duration) {
	c.mu.Lock()
	w := c.widget
	c.mu.Unlock()
	w.Config.RefreshInterval = d
	c.SetWidget(w)
}

// Props assembles the render input from the current state.
func (c *Controller) Props(refreshURL string) Props {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := Props{
		Config:  c.widget.Config,
		Viewer:  c.viewer,
		Data:    c.state.Data,
		Loading: c.state.Loading,
		Error:   c.state.Error,
	}
	if !c.widget.Static() {
		p.RefreshURL = refreshURL
	}
	return p
}

// Render invokes the widget's RenderFunc with the current state.
func (c *Controller) Render(refreshURL string) template.HTML {
	c.mu.Lock()
	render := c.widget.Render
	c.mu.Unlock()
	if render == nil {
		return ""
	}
	return render(c.Props(refreshURL))
}

//
// load cycle
//

func (c *Controller) load(auto bool) {
	c.mu.Lock()
	if !c.started || c.stopped || c.widget.Static() {
		c.mu.Unlock()
		return
	}
	id := c.widget.Config.ID
	if auto && c.state.Loading {
		c.mu.Unlock()
		metrics.WidgetTickSkippedTotal.WithLabelValues(id).Inc()
		return
	}
	c.seq++
	seq, gen := c.seq, c.gen
	fetch, viewer, ctx := c.widget.Fetch, c.viewer, c.ctx
	c.state.Loading = true
	c.state.Phase = PhaseLoading
	snap := c.state
	c.mu.Unlock()

	c.notify(snap)
	go c.run(ctx, id, fetch, viewer, gen, seq)
}

func (c *Controller) run(ctx context.Context, id string, fetch Loader, v *Viewer, gen, seq uint64) {
	began := time.Now()
	data, err := safeFetch(ctx, fetch, v)
	metrics.WidgetLoadSeconds.WithLabelValues(id).Observe(time.Since(began).Seconds())

	if err != nil {
		metrics.WidgetLoadTotal.WithLabelValues(id, "failure").Inc()
		c.log.Errorw("widget load failed", "widget", id, "instance", c.id, "err", err)
	} else {
		metrics.WidgetLoadTotal.WithLabelValues(id, "success").Inc()
	}

	c.mu.Lock()
	if c.stopped || gen != c.gen || (c.ordered && seq < c.applied) {
		c.mu.Unlock()
		metrics.WidgetResultDiscardedTotal.WithLabelValues(id).Inc()
		return
	}
	c.applied = seq
	if err != nil {
		c.state.Error = errorMessage(err)
		c.state.Phase = PhaseFailed
	} else {
		c.state.Data = data
		c.state.Error = ""
		c.state.Phase = PhaseLoaded
	}
	c.state.Loading = c.ordered && seq < c.seq
	if c.state.Loading {
		c.state.Phase = PhaseLoading
	}
	c.state.UpdatedAt = time.Now()
	snap := c.state
	c.mu.Unlock()

	c.notify(snap)
}

func (c *Controller) notify(s State) {
	if c.onChange != nil {
		c.onChange(s)
	}
}

//
// ticker
//

func (c *Controller) armTickerLocked() {
	d := c.widget.Config.RefreshInterval
	if d <= 0 || c.widget.Static() {
		return
	}
	t := time.NewTicker(d)
	done := make(chan struct{})
	c.ticker, c.tickDone = t, done

	go func() {
		for {
			select {
			case <-done:
				return
			case <-t.C:
				c.tick(done)
			}
		}
	}()
}

func (c *Controller) disarmTickerLocked() {
	if c.ticker == nil {
		return
	}
	c.ticker.Stop()
	close(c.tickDone)
	c.ticker, c.tickDone = nil, nil
}

// tick ignores deliveries from a ticker that has since been replaced.
func (c *Controller) tick(done chan struct{}) {
	c.mu.Lock()
	current := c.tickDone == done
	c.mu.Unlock()
	if current {
		c.load(true)
	}
}

//
// helpers
//

// LoadOnce runs w's Loader a single time outside any Controller, with the
// same panic recovery and error normalisation.  Static widgets yield nil
// Data.
func LoadOnce(ctx context.Context, w Widget, v *Viewer) (Data, error) {
	if w.Static() {
		return nil, nil
	}
	data, err := safeFetch(ctx, w.Fetch, v)
	if err != nil {
		return nil, &LoadError{Widget: w.Config.ID, Message: errorMessage(err), Err: err}
	}
	return data, nil
}

// LoadError carries the card-facing message alongside the cause.
type LoadError struct {
	Widget  string
	Message string
	Err     error
}

func (e *LoadError) Error() string { return e.Message }
func (e *LoadError) Unwrap() error { return e.Err }

func safeFetch(ctx context.Context, fetch Loader, v *Viewer) (d Data, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("widget loader panic: %v", r)
		}
	}()
	return fetch(ctx, v)
}

func errorMessage(err error) string {
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return FallbackError
}
