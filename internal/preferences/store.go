// internal/preferences/store.go
//
// Per-viewer enabled widget sets.
//
// Context
// -------
// Table (owned by the web app's migrations):
//
//	user_widget (user_id, widget_id, position, PRIMARY KEY (user_id, widget_id))
//
// A viewer with no rows has never customised the homepage and gets the
// registry's DefaultEnabled set.  Anonymous viewers always get defaults.
// Resolved lists are cached per user in an LRU; Save invalidates.
//
// Notes
// -----
// • Resolve never filters by visibility.  Registry.Enabled does that at
//   mount time, so a demoted admin's saved "site-stats" row is harmless.
// • Oxford commas, two spaces after periods.
package preferences

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/threadstead/internal/cache"
	"github.com/yanizio/threadstead/internal/widget"
)

// ErrUnknownWidget is returned by Save for IDs the registry does not know.
var ErrUnknownWidget = errors.New("preferences: unknown widget id")

// Store reads and writes user_widget rows.
type Store struct {
	db    *sqlx.DB
	reg   *widget.Registry
	cache *cache.LRU[string, []string]
}

// New builds a Store with an LRU of cacheSize entries.
func New(db *sqlx.DB, reg *widget.Registry, cacheSize int) (*Store, error) {
	c, err := cache.New[string, []string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("preferences cache: %w", err)
	}
	return &Store{db: db, reg: reg, cache: c}, nil
}

// Resolve returns the widget IDs v has enabled, or the defaults.
func (s *Store) Resolve(ctx context.Context, v *widget.Viewer) ([]string, error) {
	if v == nil {
		return s.reg.Defaults(nil), nil
	}
	if ids, ok := s.cache.Get(v.ID); ok {
		return withDefaults(ids, s.reg, v), nil
	}

	const q = `SELECT widget_id FROM user_widget WHERE user_id = ? ORDER BY position, widget_id`
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, q, v.ID); err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	s.cache.Add(v.ID, ids)
	return withDefaults(ids, s.reg, v), nil
}

// Customised reports whether v has stored rows.  Anonymous is never
// customised.
func (s *Store) Customised(ctx context.Context, v *widget.Viewer) (bool, error) {
	if v == nil {
		return false, nil
	}
	if ids, ok := s.cache.Get(v.ID); ok {
		return len(ids) > 0, nil
	}
	if _, err := s.Resolve(ctx, v); err != nil {
		return false, err
	}
	ids, _ := s.cache.Get(v.ID)
	return len(ids) > 0, nil
}

// Save replaces v's enabled set with ids, in order.  Duplicates are
// collapsed.  An empty ids resets the viewer to defaults.
func (s *Store) Save(ctx context.Context, v *widget.Viewer, ids []string) error {
	if v == nil {
		return errors.New("preferences: anonymous viewers cannot save")
	}
	clean := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.reg.Get(id); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownWidget, id)
		}
		if !seen[id] {
			seen[id] = true
			clean = append(clean, id)
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_widget WHERE user_id = ?`, v.ID); err != nil {
		return fmt.Errorf("clear preferences: %w", err)
	}
	for pos, id := range clean {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_widget (user_id, widget_id, position) VALUES (?, ?, ?)`,
			v.ID, id, pos); err != nil {
			return fmt.Errorf("insert preference %q: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.cache.Remove(v.ID)
	return nil
}

func withDefaults(ids []string, reg *widget.Registry, v *widget.Viewer) []string {
	if len(ids) == 0 {
		return reg.Defaults(v)
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}
