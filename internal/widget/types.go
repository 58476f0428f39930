// internal/widget/types.go
//
// Widget descriptors and the data shapes shared by the Registry and the
// Controller.
//
// Context
// -------
// A **Widget** is a self-contained unit of homepage content.  It couples a
// static `Config`, a `RenderFunc` that draws it, and an optional `Loader`
// that fetches its payload.  The Registry decides *which* widgets a viewer
// may see; the Controller drives *how* one mounted widget loads.  The two
// never call each other; they meet only through these types.
//
// Notes
// -----
//   - `Config` is immutable once registered.  Overrides are applied before
//     registration, never after.
//   - `Data` is an open key-value map.  Widget authors own its schema.
//   - Oxford commas, two spaces after periods.
package widget

import (
	"context"
	"html/template"
	"time"
)

//
// Enumerations
//

// Category groups widgets in the catalog UI.
type Category string

const (
	CategorySocial    Category = "social"
	CategoryCommunity Category = "community"
	CategoryPersonal  Category = "personal"
	CategoryUtility   Category = "utility"
	CategoryExternal  Category = "external"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategorySocial, CategoryCommunity, CategoryPersonal, CategoryUtility, CategoryExternal:
		return true
	}
	return false
}

// Size is a layout hint.  The runtime never enforces it.
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

// RoleAdmin is the elevated role that unlocks AdminOnly widgets.
const RoleAdmin = "admin"

//
// Descriptors
//

// Config is the author-supplied descriptor.  RefreshInterval of zero means
// no automatic refresh.
type Config struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	Category        Category      `json:"category"`
	Size            Size          `json:"size"`
	RequiresAuth    bool          `json:"requiresAuth"`
	AdminOnly       bool          `json:"adminOnly,omitempty"`
	DefaultEnabled  bool          `json:"defaultEnabled"`
	RefreshInterval time.Duration `json:"-"`
}

// RefreshMillis returns RefreshInterval in whole milliseconds, the unit
// used by catalogs and the JSON API.
func (c Config) RefreshMillis() int64 { return c.RefreshInterval.Milliseconds() }

// Data is the schema-less payload returned by a Loader.
type Data map[string]any

// Viewer is the authenticated user a widget is computed for.  A nil
// *Viewer means anonymous.  The runtime passes it by reference and never
// mutates it.
type Viewer struct {
	ID            string `json:"id"`
	DID           string `json:"did"`
	Role          string `json:"role"`
	PrimaryHandle string `json:"primaryHandle"`
}

// IsAdmin is nil-safe.
func (v *Viewer) IsAdmin() bool { return v != nil && v.Role == RoleAdmin }

// viewerKey is the identity the Controller watches for changes.
func viewerKey(v *Viewer) string {
	if v == nil {
		return ""
	}
	return v.ID
}

// Loader fetches a widget payload.  It must either return Data or an error
// carrying a human-readable message.
type Loader func(ctx context.Context, v *Viewer) (Data, error)

// Props is everything a RenderFunc may draw from.  Data is nil until the
// first successful load and for static widgets.
type Props struct {
	Config     Config
	Viewer     *Viewer
	Data       Data
	Loading    bool
	Error      string
	RefreshURL string
}

// RenderFunc draws a widget body.  It must not panic on nil Data.
type RenderFunc func(Props) template.HTML

// Widget is one registry entry.  Fetch is nil for static widgets.
type Widget struct {
	Config Config
	Render RenderFunc
	Fetch  Loader
}

// Static reports whether the widget has no Loader.
func (w Widget) Static() bool { return w.Fetch == nil }
