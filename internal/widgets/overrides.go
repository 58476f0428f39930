// internal/widgets/overrides.go
//
// ThreadStead – catalog override loader.
//
// Context
//   Operators tune the built-in catalog without a rebuild by editing
//   conf/widgets.yaml.  Each top-level key is a widget ID:
//
//       weather:
//         refresh_interval: 600000   # ms, 0 disables auto refresh
//         default_enabled: false
//       site-stats:
//         disabled: true
//
//   Overrides are applied to a Config before it is registered.  An override
//   for an unknown ID is logged and ignored, so a stale file never blocks
//   boot.
//
// Style
//   Full sentences, two spaces after periods, Oxford commas.
//
//------------------------------------------------------------------------------

package widgets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yanizio/threadstead/internal/widget"
)

// Override is one entry of the overrides file.  Nil pointers leave the
// built-in value untouched.
type Override struct {
	Title           string `yaml:"title"`
	Description     string `yaml:"description"`
	RefreshInterval *int64 `yaml:"refresh_interval"` // milliseconds
	DefaultEnabled  *bool  `yaml:"default_enabled"`
	Disabled        bool   `yaml:"disabled"`
}

// Overrides maps widget ID → Override.
type Overrides map[string]Override

// LoadOverrides parses path.  A missing file yields empty overrides.
func LoadOverrides(path string) (Overrides, error) {
	if path == "" {
		return Overrides{}, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Overrides{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read overrides: %w", err)
	}
	return ParseOverrides(raw)
}

// ParseOverrides decodes YAML bytes and checks basic sanity.
func ParseOverrides(raw []byte) (Overrides, error) {
	out := Overrides{}
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse overrides: %w", err)
	}
	for id, o := range out {
		if o.RefreshInterval != nil && *o.RefreshInterval < 0 {
			return nil, fmt.Errorf("override %q: refresh_interval must be ≥ 0", id)
		}
	}
	return out, nil
}

// Apply copies the set fields of o onto c.
func (o Override) Apply(c *widget.Config) {
	if o.Title != "" {
		c.Title = o.Title
	}
	if o.Description != "" {
		c.Description = o.Description
	}
	if o.RefreshInterval != nil {
		c.RefreshInterval = time.Duration(*o.RefreshInterval) * time.Millisecond
	}
	if o.DefaultEnabled != nil {
		c.DefaultEnabled = *o.DefaultEnabled
	}
}
