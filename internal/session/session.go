// internal/session/session.go
//
// ThreadStead – session cookie helpers.
//
// Context
//   Login and signup live in the main web app.  It sets a cookie named
//   "threadstead_session" carrying the numeric user ID, which this service
//   only reads.  LoginUser and LogoutUser exist for local development and
//   tests.  A production deployment fronts this with the web app's signed
//   session proxy.
//
//------------------------------------------------------------------------------

package session

import (
	"net/http"
	"strconv"
	"time"
)

const cookieName = "threadstead_session"

// LoginUser sets the session cookie for userID.
func LoginUser(w http.ResponseWriter, r *http.Request, userID int64) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    strconv.FormatInt(userID, 10),
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(14 * 24 * time.Hour),
	})
}

// LogoutUser clears the session cookie.
func LogoutUser(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// CurrentUserID returns the user ID stored in the session.
//
// ok == false when the cookie is missing, empty, or not a positive integer.
func CurrentUserID(r *http.Request) (id int64, ok bool) {
	c, err := r.Cookie(cookieName)
	if err != nil || c.Value == "" {
		return 0, false
	}
	id, err = strconv.ParseInt(c.Value, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
