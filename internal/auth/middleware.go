// internal/auth/middleware.go
//
// Resolve turns the session cookie into a *widget.Viewer on the request
// context.  Any failure degrades to anonymous; a broken user lookup must
// never take the homepage down.

package auth

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/threadstead/internal/session"
	"github.com/yanizio/threadstead/internal/widget"
)

// ViewerSource loads a viewer by numeric user ID.  It returns
// sql.ErrNoRows for unknown users.
type ViewerSource interface {
	LoadViewer(ctx context.Context, userID int64) (*widget.Viewer, error)
}

// Resolve returns middleware that attaches the session's viewer.
func Resolve(src ViewerSource, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid, ok := session.CurrentUserID(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			v, err := src.LoadViewer(r.Context(), uid)
			if err != nil {
				if !errors.Is(err, sql.ErrNoRows) {
					log.Errorw("viewer lookup failed", "user", uid, "err", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithViewer(r.Context(), v)))
		})
	}
}
