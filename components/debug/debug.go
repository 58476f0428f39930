// components/debug/debug.go
//
// Development component that echoes request metadata and lets a developer
// sign in as any user by ID.  Mounted only when http.debug is set.
//
// Routes
//   GET  /debug           viewer, UA, geo, and mounted-board stats
//   POST /debug/login     form or query value "user" sets the session
//   POST /debug/logout    clears the session
//
//------------------------------------------------------------------------------

package debug

import (
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/threadstead/internal/auth"
	"github.com/yanizio/threadstead/internal/board"
	"github.com/yanizio/threadstead/internal/component"
	"github.com/yanizio/threadstead/internal/requestinfo"
	"github.com/yanizio/threadstead/internal/session"
)

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Component serves the debug routes.
type Component struct {
	hub *board.Hub
	log *zap.SugaredLogger
}

// New builds the component.  hub may be nil.
func New(hub *board.Hub, log *zap.SugaredLogger) *Component {
	if log == nil {
		log = zap.S()
	}
	return &Component{hub: hub, log: log}
}

// Name returns the canonical component key.
func (c *Component) Name() string { return "debug" }

// Routes registers the debug endpoints.
func (c *Component) Routes(r chi.Router) {
	r.Route("/debug", func(d chi.Router) {
		d.Get("/", c.handleEcho)
		d.Post("/login", c.handleLogin)
		d.Post("/logout", c.handleLogout)
	})
}

func (c *Component) handleEcho(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{
		"ip":     clientIP(r),
		"ua":     r.UserAgent(),
		"viewer": auth.ViewerFrom(r.Context()),
	}
	if info := requestinfo.FromContext(r.Context()); info != nil {
		out["ua_parsed"] = info.UA
		out["geo"] = info.Geo
	}
	if c.hub != nil {
		out["boards"] = c.hub.Len()
		if b, ok := c.hub.Peek(auth.ViewerFrom(r.Context())); ok {
			out["board"] = map[string]any{
				"id":      b.ID(),
				"mounted": b.Mounted(),
				"loading": b.Loading(),
			}
		}
	}
	component.JSON(w, http.StatusOK, out)
}

func (c *Component) handleLogin(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.FormValue("user"), 10, 64)
	if err != nil || id <= 0 {
		component.Error(w, http.StatusBadRequest, "user must be a positive integer")
		return
	}
	session.LoginUser(w, r, id)
	c.log.Warnw("debug sign-in", "user", id, "ip", clientIP(r))
	w.WriteHeader(http.StatusNoContent)
}

func (c *Component) handleLogout(w http.ResponseWriter, r *http.Request) {
	session.LogoutUser(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// clientIP grabs the remote address without port.
func clientIP(r *http.Request) string {
	h, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return h
}
