// internal/widgets/catalog.go
//
// ThreadStead – built-in widget catalog.
//
// Context
//   Bootstrap fills a *widget.Registry with the homepage widgets that ship
//   with ThreadStead.  It is called once by cmd/web after config load, and
//   again by tests.  Calling it twice is harmless: Register replaces by ID.
//
//   | id             | category  | source                           |
//   |----------------|-----------|----------------------------------|
//   | welcome        | utility   | static                           |
//   | weather        | external  | Open-Meteo forecast API          |
//   | ring-directory | community | GET /api/threadrings             |
//   | trending-feed  | social    | GET /api/feed/trending           |
//   | pixel-home     | personal  | GET /api/home/{handle}/config    |
//   | ring-activity  | community | SQL (thread_ring tables)         |
//   | site-stats     | utility   | SQL, admin only                  |
//
//   SQL-backed widgets are skipped when Deps.DB is nil.
//
//------------------------------------------------------------------------------

package widgets

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/threadstead/internal/config"
	"github.com/yanizio/threadstead/internal/fetch"
	"github.com/yanizio/threadstead/internal/widget"
)

// Deps carries everything the built-in loaders need.
type Deps struct {
	API       *fetch.Client // relative to widgets.api_base
	Weather   *fetch.Client // absolute Open-Meteo URLs
	WeatherIn config.Weather
	DB        *sqlx.DB
	Overrides Overrides
	Log       *zap.SugaredLogger
}

// Bootstrap registers the built-in catalog into reg.
func Bootstrap(reg *widget.Registry, d Deps) error {
	if reg == nil {
		return errors.New("widgets: nil registry")
	}
	if d.API == nil || d.Weather == nil {
		return errors.New("widgets: http clients are required")
	}
	if d.Log == nil {
		d.Log = zap.S()
	}

	all := []widget.Widget{
		welcome(),
		weather(d.Weather, d.WeatherIn),
		ringDirectory(d.API),
		trendingFeed(d.API),
		pixelHome(d.API),
	}
	if d.DB != nil {
		all = append(all, ringActivity(d.DB), siteStats(d.DB))
	} else {
		d.Log.Warnw("no database, skipping SQL widgets", "widgets", []string{idRingActivity, idSiteStats})
	}

	known := make(map[string]bool, len(all))
	for _, w := range all {
		known[w.Config.ID] = true
		o, ok := d.Overrides[w.Config.ID]
		if ok && o.Disabled {
			reg.Unregister(w.Config.ID)
			d.Log.Infow("widget disabled by override", "widget", w.Config.ID)
			continue
		}
		if ok {
			o.Apply(&w.Config)
		}
		if err := reg.Register(w); err != nil {
			return fmt.Errorf("register %q: %w", w.Config.ID, err)
		}
	}
	for id := range d.Overrides {
		if !known[id] {
			d.Log.Warnw("override for unknown widget ignored", "widget", id)
		}
	}
	return nil
}
