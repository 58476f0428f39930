// internal/auth/context.go
//
// Viewer-in-context helpers.
//
// Usage
// -----
//     // Attach the resolved viewer (Resolve middleware does this).
//     ctx = auth.WithViewer(ctx, v)
//
//     // Downstream code retrieves it; nil means anonymous.
//     v := auth.ViewerFrom(ctx)
//
// Notes
// -----
// • The *widget.Viewer is shared by reference and must be treated as
//   read-only.
// • Oxford commas, two spaces after periods.

package auth

import (
	"context"

	"github.com/yanizio/threadstead/internal/widget"
)

// viewerKey is unexported to avoid context-key collisions.
type viewerKey struct{}

// WithViewer returns a new context carrying v.
func WithViewer(ctx context.Context, v *widget.Viewer) context.Context {
	return context.WithValue(ctx, viewerKey{}, v)
}

// ViewerFrom extracts the viewer from ctx, or nil when anonymous.
func ViewerFrom(ctx context.Context) *widget.Viewer {
	v, _ := ctx.Value(viewerKey{}).(*widget.Viewer)
	return v
}
