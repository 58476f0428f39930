// components/home/home.go
//
// ThreadStead homepage component – server-rendered board plus its JSON and
// websocket endpoints.
//
// Routes
//   GET  /                               page, cards rendered server-side
//   GET  /api/home/cards                 current card snapshots (JSON)
//   POST /api/home/cards/{id}/refresh    manual refresh of one card
//   GET  /api/home/stream                websocket, pushes changed cards
//   GET  /static/*                       embedded CSS and JS
//
// The page waits up to RenderWait for first loads so most visitors see data
// instead of spinners.  Cards still loading after that are picked up by the
// stream.
//
//------------------------------------------------------------------------------

package home

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/threadstead/internal/auth"
	"github.com/yanizio/threadstead/internal/board"
	"github.com/yanizio/threadstead/internal/component"
	"github.com/yanizio/threadstead/internal/requestinfo"
	"github.com/yanizio/threadstead/internal/view"
)

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// StreamPath is where the card websocket lives.
const StreamPath = "/api/home/stream"

// RefreshPath spells the refresh endpoint for widget id.  Passed to the
// hub as the board's refresh URL builder.
func RefreshPath(id string) string {
	return "/api/home/cards/" + url.PathEscape(id) + "/refresh"
}

// Deps are the collaborators the component needs.
type Deps struct {
	Hub        *board.Hub
	RenderWait time.Duration
	Title      string
	Log        *zap.SugaredLogger
}

// Component serves the homepage.
type Component struct {
	d Deps
}

// New builds the component.
func New(d Deps) *Component {
	if d.Title == "" {
		d.Title = "ThreadStead"
	}
	if d.Log == nil {
		d.Log = zap.S()
	}
	return &Component{d: d}
}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "home" }

// Routes registers the page and its API.
func (c *Component) Routes(r chi.Router) {
	r.Get("/", c.handlePage)
	r.Handle("/static/*", http.StripPrefix("/static/", view.Static()))
	r.Route("/api/home", func(api chi.Router) {
		api.Get("/cards", c.handleCards)
		api.Post("/cards/{id}/refresh", c.handleRefresh)
		api.Get("/stream", c.handleStream)
	})
}

/*──────────────────────────── Handlers ─────────────────────────────────────*/

func (c *Component) board(w http.ResponseWriter, r *http.Request) (*board.Board, bool) {
	b, err := c.d.Hub.Get(r.Context(), auth.ViewerFrom(r.Context()))
	if err != nil {
		c.d.Log.Errorw("mount board", "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, false
	}
	return b, true
}

func (c *Component) handlePage(w http.ResponseWriter, r *http.Request) {
	b, ok := c.board(w, r)
	if !ok {
		return
	}
	settled := b.WaitSettled(r.Context(), c.d.RenderWait)

	page := view.HomePage{
		Title:     c.d.Title,
		Viewer:    b.Viewer(),
		Cards:     b.Cards(),
		Info:      requestinfo.FromContext(r.Context()),
		StreamURL: StreamPath,
		Settled:   settled,
	}
	if err := view.Render(w, "home", page); err != nil {
		c.d.Log.Errorw("render home", "err", err)
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

func (c *Component) handleCards(w http.ResponseWriter, r *http.Request) {
	b, ok := c.board(w, r)
	if !ok {
		return
	}
	component.JSON(w, http.StatusOK, map[string]any{"board": b.ID(), "cards": b.Cards()})
}

func (c *Component) handleRefresh(w http.ResponseWriter, r *http.Request) {
	b, ok := c.board(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := b.Refresh(id); err != nil {
		if errors.Is(err, board.ErrUnknownWidget) {
			component.Error(w, http.StatusNotFound, "widget not on this board")
			return
		}
		component.Error(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	card, _ := b.Card(id)
	component.JSON(w, http.StatusAccepted, card)
}
