// internal/config/model.go
//
// Typed configuration model for ThreadStead.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                               – dotenv values,
//   • `conf/global.yaml`                            – primary static file,
//   • `THREADSTEAD_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with `vault:` is resolved through the
// Vault client *before* unmarshalling, so the model never stores Vault
// URIs, only plain strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • Durations accept Go syntax ("90s", "15m").
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import (
	"fmt"
	"strings"
	"time"
)

//
// HTTP section
//

// HTTP holds web-server tunables.  Debug mounts /debug routes, including
// a cookie sign-in that trusts any user ID; never enable it in production.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
	Debug      bool   `koanf:"debug"`
}

//
// Database section
//

// Database holds the DSN template and its secret.  When DSN contains a
// single %s verb the password is substituted there.
type Database struct {
	DSN      string `koanf:"dsn"      validate:"required"`
	Password string `koanf:"password"`
	MaxOpen  int    `koanf:"max_open" validate:"gte=0"`
	MaxIdle  int    `koanf:"max_idle" validate:"gte=0"`
}

// ResolvedDSN returns the DSN with the password filled in.
func (d Database) ResolvedDSN() string {
	if strings.Count(d.DSN, "%s") == 1 {
		return fmt.Sprintf(d.DSN, d.Password)
	}
	return d.DSN
}

//
// Log section
//

type Log struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
}

//
// Widgets section
//

// Widgets configures the built-in catalog and its outbound HTTP client.
// APIBase is the ThreadStead web app that serves directory, feed, and
// home-config JSON.
type Widgets struct {
	APIBase     string        `koanf:"api_base"     validate:"required,url"`
	Catalog     string        `koanf:"catalog"`
	HTTPTimeout time.Duration `koanf:"http_timeout" validate:"gte=0"`
	HTTPRetries int           `koanf:"http_retries" validate:"gte=0,lte=10"`
	RenderWait  time.Duration `koanf:"render_wait"  validate:"gte=0"`
}

// Weather configures the public forecast API used by the weather widget.
type Weather struct {
	BaseURL   string  `koanf:"base_url"  validate:"required,url"`
	Latitude  float64 `koanf:"latitude"  validate:"gte=-90,lte=90"`
	Longitude float64 `koanf:"longitude" validate:"gte=-180,lte=180"`
	Units     string  `koanf:"units"     validate:"omitempty,oneof=celsius fahrenheit"`
}

// Board tunes the in-memory board hub.
type Board struct {
	IdleTTL       time.Duration `koanf:"idle_ttl"       validate:"gte=0"`
	MaxBoards     int           `koanf:"max_boards"     validate:"gte=0"`
	EvictInterval time.Duration `koanf:"evict_interval" validate:"gte=0"`
}

// GeoIP points at a GeoLite2-City database.  Empty disables lookups.
type GeoIP struct {
	Path string `koanf:"path"`
}

type Preferences struct {
	CacheSize int `koanf:"cache_size" validate:"gte=0"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // THREADSTEAD_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP        HTTP        `koanf:"http"`
	Database    Database    `koanf:"database"`
	Log         Log         `koanf:"log"`
	Widgets     Widgets     `koanf:"widgets"`
	Weather     Weather     `koanf:"weather"`
	Board       Board       `koanf:"board"`
	GeoIP       GeoIP       `koanf:"geoip"`
	Preferences Preferences `koanf:"preferences"`
	Paths       Paths       `koanf:"-"`
}

// applyDefaults fills zero values that have a sensible default.
func applyDefaults(c *Config) {
	if c.HTTP.ListenAddr == "" {
		c.HTTP.ListenAddr = ":8080"
	}
	if c.Database.MaxOpen == 0 {
		c.Database.MaxOpen = 15
	}
	if c.Database.MaxIdle == 0 {
		c.Database.MaxIdle = 5
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Widgets.HTTPTimeout == 0 {
		c.Widgets.HTTPTimeout = 10 * time.Second
	}
	if c.Widgets.RenderWait == 0 {
		c.Widgets.RenderWait = 750 * time.Millisecond
	}
	if c.Weather.BaseURL == "" {
		c.Weather.BaseURL = "https://api.open-meteo.com/v1/forecast"
	}
	if c.Weather.Units == "" {
		c.Weather.Units = "celsius"
	}
	if c.Board.IdleTTL == 0 {
		c.Board.IdleTTL = 30 * time.Minute
	}
	if c.Board.MaxBoards == 0 {
		c.Board.MaxBoards = 1000
	}
	if c.Board.EvictInterval == 0 {
		c.Board.EvictInterval = time.Minute
	}
	if c.Preferences.CacheSize == 0 {
		c.Preferences.CacheSize = 4096
	}
}
