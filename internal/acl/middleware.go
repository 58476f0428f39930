// internal/acl/middleware.go
//
// Chi middleware helpers that enforce RBAC against the resolved viewer.

package acl

import (
	"net/http"

	"github.com/yanizio/threadstead/internal/auth"
)

// RequireRole ensures the current viewer holds ANY of the supplied roles.
// Anonymous requests get 401, everyone else outside the set gets 403.
func RequireRole(names ...string) func(http.Handler) http.Handler {
	if len(names) == 0 {
		panic("acl.RequireRole: at least one role name must be supplied")
	}
	allowSet := make(map[string]struct{}, len(names))
	for _, n := range names {
		allowSet[n] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v := auth.ViewerFrom(r.Context())
			if v == nil {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			if _, ok := allowSet[v.Role]; !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
