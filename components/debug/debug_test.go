package debug

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/threadstead/internal/auth"
	"github.com/yanizio/threadstead/internal/component"
	"github.com/yanizio/threadstead/internal/widget"
)

func router() http.Handler {
	r := chi.NewRouter()
	component.Mount(r, nil, New(nil, nil))
	return r
}

func TestEcho(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/debug", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	req.Header.Set("User-Agent", "curl/8.0")
	req = req.WithContext(auth.WithViewer(req.Context(), &widget.Viewer{ID: "7", Role: "member"}))

	rr := httptest.NewRecorder()
	router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `"ip":"203.0.113.9"`)
	assert.Contains(t, body, `"ua":"curl/8.0"`)
	assert.Contains(t, body, `"id":"7"`)
}

func TestLoginAndLogout(t *testing.T) {
	h := router()

	req := httptest.NewRequest(http.MethodPost, "/debug/login", strings.NewReader("user=42"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Len(t, rr.Result().Cookies(), 1)
	assert.Equal(t, "42", rr.Result().Cookies()[0].Value)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/debug/logout", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, -1, rr.Result().Cookies()[0].MaxAge)
}

func TestLogin_RejectsBadID(t *testing.T) {
	for _, q := range []string{"", "user=0", "user=abc"} {
		rr := httptest.NewRecorder()
		router().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/debug/login?"+q, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
	}
}
