// internal/widgets/api.go
//
// Widgets that read JSON from the ThreadStead web app.

package widgets

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/yanizio/threadstead/internal/fetch"
	"github.com/yanizio/threadstead/internal/widget"
)

const (
	idRingDirectory = "ring-directory"
	idTrendingFeed  = "trending-feed"
	idPixelHome     = "pixel-home"
)

// Ring is one row of the ThreadRing directory.
type Ring struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MemberCount int    `json:"memberCount"`
	PostCount   int    `json:"postCount"`
}

// Post is one trending feed entry.
type Post struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	AuthorHandle string    `json:"authorHandle"`
	RingSlug     string    `json:"ringSlug,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	CommentCount int       `json:"commentCount"`
}

func ringDirectory(c *fetch.Client) widget.Widget {
	return widget.Widget{
		Config: widget.Config{
			ID:             idRingDirectory,
			Title:          "ThreadRings",
			Description:    "Popular communities to explore.",
			Category:       widget.CategoryCommunity,
			Size:           widget.SizeMedium,
			DefaultEnabled: true,
		},
		Render: renderer(idRingDirectory),
		Fetch: func(ctx context.Context, _ *widget.Viewer) (widget.Data, error) {
			var res struct {
				Rings []Ring `json:"rings"`
			}
			q := url.Values{"limit": {"5"}, "sort": {"trending"}}
			if err := c.GetJSON(ctx, "/api/threadrings", q, &res); err != nil {
				return nil, err
			}
			return widget.Data{"rings": res.Rings}, nil
		},
	}
}

func trendingFeed(c *fetch.Client) widget.Widget {
	return widget.Widget{
		Config: widget.Config{
			ID:              idTrendingFeed,
			Title:           "Trending",
			Description:     "Posts getting attention right now.",
			Category:        widget.CategorySocial,
			Size:            widget.SizeLarge,
			DefaultEnabled:  true,
			RefreshInterval: 5 * time.Minute,
		},
		Render: renderer(idTrendingFeed),
		Fetch: func(ctx context.Context, _ *widget.Viewer) (widget.Data, error) {
			var res struct {
				Posts []Post `json:"posts"`
			}
			if err := c.GetJSON(ctx, "/api/feed/trending", url.Values{"limit": {"5"}}, &res); err != nil {
				return nil, err
			}
			return widget.Data{"posts": res.Posts}, nil
		},
	}
}

type homeConfig struct {
	HouseTemplate string `json:"houseTemplate"`
	Palette       string `json:"palette"`
	SeasonalOptIn bool   `json:"seasonalOptIn"`
	Decorations   []struct {
		ID string `json:"id"`
	} `json:"decorations"`
}

// errNoHandle surfaces to the card as-is.
var errNoHandle = errors.New("set a primary handle to see your pixel home")

func pixelHome(c *fetch.Client) widget.Widget {
	return widget.Widget{
		Config: widget.Config{
			ID:             idPixelHome,
			Title:          "My Pixel Home",
			Description:    "A peek at your pixel home.",
			Category:       widget.CategoryPersonal,
			Size:           widget.SizeSmall,
			RequiresAuth:   true,
			DefaultEnabled: true,
		},
		Render: renderer(idPixelHome),
		Fetch: func(ctx context.Context, v *widget.Viewer) (widget.Data, error) {
			if v == nil || v.PrimaryHandle == "" {
				return nil, errNoHandle
			}
			var res homeConfig
			path := "/api/home/" + url.PathEscape(v.PrimaryHandle) + "/config"
			if err := c.GetJSON(ctx, path, nil, &res); err != nil {
				return nil, err
			}
			return widget.Data{
				"handle":          v.PrimaryHandle,
				"template":        res.HouseTemplate,
				"palette":         res.Palette,
				"seasonal":        res.SeasonalOptIn,
				"decorationCount": len(res.Decorations),
			}, nil
		},
	}
}
