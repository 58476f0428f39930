// components/widgets/widgets.go
//
// ThreadStead widget catalog component – JSON API over the registry and the
// viewer's preferences.
//
// Routes
//   GET /api/widgets                  widgets available to the viewer
//   GET /api/widgets/{id}/data        one-shot load, deduplicated per viewer
//   GET /api/widgets/preferences      enabled IDs and whether customised
//   PUT /api/widgets/preferences      replace enabled IDs (signed-in only)
//   GET /api/admin/widgets            full registry plus runtime stats (admin)
//
// Invisible and unknown widgets both answer 404 so the API never confirms
// the existence of a widget the viewer may not see.
//
//------------------------------------------------------------------------------

package widgets

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/threadstead/internal/acl"
	"github.com/yanizio/threadstead/internal/auth"
	"github.com/yanizio/threadstead/internal/board"
	"github.com/yanizio/threadstead/internal/component"
	"github.com/yanizio/threadstead/internal/preferences"
	"github.com/yanizio/threadstead/internal/widget"
)

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Preferences is the subset of preferences.Store the API needs.
type Preferences interface {
	Resolve(ctx context.Context, v *widget.Viewer) ([]string, error)
	Customised(ctx context.Context, v *widget.Viewer) (bool, error)
	Save(ctx context.Context, v *widget.Viewer, ids []string) error
}

// Deps are the collaborators the component needs.
type Deps struct {
	Registry *widget.Registry
	Prefs    Preferences
	Hub      *board.Hub
	Log      *zap.SugaredLogger
}

// Component serves the catalog API.
type Component struct {
	d   Deps
	sfg singleflight.Group
}

// New builds the component.
func New(d Deps) *Component {
	if d.Log == nil {
		d.Log = zap.S()
	}
	return &Component{d: d}
}

// entry is the JSON shape of one catalog row.
type entry struct {
	widget.Config
	RefreshInterval int64 `json:"refreshInterval"`
	Static          bool  `json:"static"`
	Enabled         bool  `json:"enabled"`
}

func toEntry(w widget.Widget, enabled bool) entry {
	return entry{
		Config:          w.Config,
		RefreshInterval: w.Config.RefreshMillis(),
		Static:          w.Static(),
		Enabled:         enabled,
	}
}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "widgets" }

// Routes registers the catalog API.
func (c *Component) Routes(r chi.Router) {
	r.Route("/api/widgets", func(api chi.Router) {
		api.Get("/", c.handleList)
		api.Get("/preferences", c.handlePrefsGet)
		api.Put("/preferences", c.handlePrefsPut)
		api.Get("/{id}/data", c.handleData)
	})
	r.With(acl.RequireRole(widget.RoleAdmin)).Get("/api/admin/widgets", c.handleAdmin)
}

/*──────────────────────────── Handlers ─────────────────────────────────────*/

func (c *Component) handleList(w http.ResponseWriter, r *http.Request) {
	v := auth.ViewerFrom(r.Context())
	ids, err := c.d.Prefs.Resolve(r.Context(), v)
	if err != nil {
		c.d.Log.Errorw("resolve preferences", "err", err)
		component.Error(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	on := make(map[string]bool, len(ids))
	for _, id := range ids {
		on[id] = true
	}

	avail := c.d.Registry.AvailableFor(v)
	out := make([]entry, 0, len(avail))
	for _, wd := range avail {
		out = append(out, toEntry(wd, on[wd.Config.ID]))
	}
	component.JSON(w, http.StatusOK, map[string]any{"widgets": out})
}

func (c *Component) handleData(w http.ResponseWriter, r *http.Request) {
	v := auth.ViewerFrom(r.Context())
	id := chi.URLParam(r, "id")
	wd, ok := c.d.Registry.Get(id)
	if !ok || !widget.Visible(wd.Config, v) {
		component.Error(w, http.StatusNotFound, "widget not found")
		return
	}

	viewerID := "anon"
	if v != nil {
		viewerID = v.ID
	}
	// Concurrent callers share one load.  It keeps the first caller's
	// request values but not its cancellation, so waiters are not failed
	// by that caller disconnecting.
	shared := context.WithoutCancel(r.Context())
	res, err, _ := c.sfg.Do(id+"|"+viewerID, func() (interface{}, error) {
		return widget.LoadOnce(shared, wd, v)
	})
	if err != nil {
		var le *widget.LoadError
		msg := widget.FallbackError
		if errors.As(err, &le) {
			msg = le.Message
		}
		c.d.Log.Errorw("widget load failed", "widget", id, "err", err)
		component.Error(w, http.StatusBadGateway, msg)
		return
	}
	data, _ := res.(widget.Data)
	component.JSON(w, http.StatusOK, map[string]any{"id": id, "data": data})
}

func (c *Component) handlePrefsGet(w http.ResponseWriter, r *http.Request) {
	v := auth.ViewerFrom(r.Context())
	ids, err := c.d.Prefs.Resolve(r.Context(), v)
	if err != nil {
		c.d.Log.Errorw("resolve preferences", "err", err)
		component.Error(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	custom, err := c.d.Prefs.Customised(r.Context(), v)
	if err != nil {
		c.d.Log.Errorw("preferences customised", "err", err)
		component.Error(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	component.JSON(w, http.StatusOK, map[string]any{"enabled": ids, "customised": custom})
}

func (c *Component) handlePrefsPut(w http.ResponseWriter, r *http.Request) {
	v := auth.ViewerFrom(r.Context())
	if v == nil {
		component.Error(w, http.StatusUnauthorized, "sign in to choose widgets")
		return
	}
	var body struct {
		Enabled []string `json:"enabled"`
	}
	if err := component.DecodeJSON(r, &body); err != nil {
		component.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := c.d.Prefs.Save(r.Context(), v, body.Enabled); err != nil {
		if errors.Is(err, preferences.ErrUnknownWidget) {
			component.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		c.d.Log.Errorw("save preferences", "user", v.ID, "err", err)
		component.Error(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	if c.d.Hub != nil {
		c.d.Hub.Invalidate(v)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *Component) handleAdmin(w http.ResponseWriter, _ *http.Request) {
	all := c.d.Registry.All()
	out := make([]entry, 0, len(all))
	for _, wd := range all {
		out = append(out, toEntry(wd, wd.Config.DefaultEnabled))
	}
	stats := map[string]any{"widgets": len(all)}
	if c.d.Hub != nil {
		stats["boards"] = c.d.Hub.Len()
	}
	component.JSON(w, http.StatusOK, map[string]any{"widgets": out, "stats": stats})
}
