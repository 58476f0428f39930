// internal/widgets/sql.go
//
// Widgets that query the ThreadStead database directly.  The schema is
// owned by the web app; only read-only SELECTs run here.

package widgets

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/threadstead/internal/widget"
)

const (
	idRingActivity = "ring-activity"
	idSiteStats    = "site-stats"

	activityWindow = 7 * 24 * time.Hour
)

var errSignedOut = errors.New("sign in to see your ThreadRings")

// RingActivity is one ring the viewer belongs to.
type RingActivity struct {
	Slug        string     `db:"slug"         json:"slug"`
	Name        string     `db:"name"         json:"name"`
	RecentPosts int        `db:"recent_posts" json:"recentPosts"`
	LastPostAt  *time.Time `db:"last_post_at" json:"lastPostAt,omitempty"`
}

const ringActivityQuery = `SELECT r.slug, r.name,
       COUNT(p.id) AS recent_posts,
       MAX(p.created_at) AS last_post_at
  FROM thread_ring_member m
  JOIN thread_ring r ON r.id = m.thread_ring_id
  LEFT JOIN post_thread_ring p ON p.thread_ring_id = r.id AND p.created_at > ?
 WHERE m.user_id = ?
 GROUP BY r.id, r.slug, r.name
 ORDER BY recent_posts DESC, r.name
 LIMIT 5`

func ringActivity(db *sqlx.DB) widget.Widget {
	return widget.Widget{
		Config: widget.Config{
			ID:             idRingActivity,
			Title:          "My ThreadRings",
			Description:    "What is new in the rings you belong to.",
			Category:       widget.CategoryCommunity,
			Size:           widget.SizeMedium,
			RequiresAuth:   true,
			DefaultEnabled: true,
		},
		Render: renderer(idRingActivity),
		Fetch: func(ctx context.Context, v *widget.Viewer) (widget.Data, error) {
			if v == nil {
				return nil, errSignedOut
			}
			var rows []RingActivity
			since := time.Now().Add(-activityWindow)
			if err := db.SelectContext(ctx, &rows, ringActivityQuery, since, v.ID); err != nil {
				return nil, err
			}
			return widget.Data{"rings": rows}, nil
		},
	}
}

const siteStatsQuery = `SELECT
       (SELECT COUNT(*) FROM users)       AS users,
       (SELECT COUNT(*) FROM thread_ring) AS rings,
       (SELECT COUNT(*) FROM post WHERE created_at > ?) AS posts_today`

type siteStatsRow struct {
	Users      int64 `db:"users"`
	Rings      int64 `db:"rings"`
	PostsToday int64 `db:"posts_today"`
}

func siteStats(db *sqlx.DB) widget.Widget {
	return widget.Widget{
		Config: widget.Config{
			ID:              idSiteStats,
			Title:           "Site Stats",
			Description:     "Residents, rings, and posts at a glance.",
			Category:        widget.CategoryUtility,
			Size:            widget.SizeSmall,
			AdminOnly:       true,
			RefreshInterval: time.Minute,
		},
		Render: renderer(idSiteStats),
		Fetch: func(ctx context.Context, _ *widget.Viewer) (widget.Data, error) {
			var row siteStatsRow
			err := db.GetContext(ctx, &row, siteStatsQuery, time.Now().Add(-24*time.Hour))
			if errors.Is(err, sql.ErrNoRows) {
				return widget.Data{"users": 0, "rings": 0, "postsToday": 0}, nil
			}
			if err != nil {
				return nil, err
			}
			return widget.Data{
				"users":      row.Users,
				"rings":      row.Rings,
				"postsToday": row.PostsToday,
			}, nil
		},
	}
}
