// internal/component/registry.go
//
// Component contract and mounting.
//
// Each HTTP surface lives under components/<name> and satisfies Component.
// Components need runtime dependencies (the widget registry, the board
// hub, the preference store), so cmd/web constructs them explicitly and
// hands them to Mount rather than relying on init() registration.

package component

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Component contract.
//
// Routes registers BOTH page and API endpoints on the router it is given,
// e.g:
//
//	func (c *Component) Routes(r chi.Router) {
//		r.Get("/", c.page)
//		r.Route("/api/home", func(api chi.Router) { ... })
//	}
//
// Components share one router, so two components must not claim the same
// pattern.  Chi panics at boot if they do.
type Component interface {
	Name() string
	Routes(r chi.Router)
}

// Mount registers every component on r, each inside its own Group so
// per-component middleware stays local.
func Mount(r chi.Router, log *zap.SugaredLogger, cs ...Component) {
	if log == nil {
		log = zap.S()
	}
	for _, c := range cs {
		r.Group(c.Routes)
		log.Debugw("component mounted", "component", c.Name())
	}
}
