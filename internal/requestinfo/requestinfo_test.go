package requestinfo

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/avct/uasurfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const iphoneUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 " +
	"(KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1"

func TestHandler_AttachesInfo(t *testing.T) {
	e, err := New("", zap.NewNop().Sugar())
	require.NoError(t, err)
	defer e.Close()

	var got *RequestInfo
	h := e.Handler(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/?x=1", nil)
	req.Header.Set("User-Agent", iphoneUA)
	req.Header.Set("Accept-Language", "en-GB;q=0.9, fr")
	req.Header.Set("X-Forwarded-For", "garbage, 203.0.113.9, 10.0.0.1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	assert.Equal(t, "203.0.113.9", got.Geo.IP.String())
	assert.False(t, got.Geo.Located)
	assert.Equal(t, "Phone", got.UA.Device)
	assert.True(t, got.UA.Compact())
	assert.Equal(t, "en-gb", got.UA.PrimaryLang)
	assert.Equal(t, "/", got.URL.Path)
}

func TestFromContext_NilWithoutMiddleware(t *testing.T) {
	assert.Nil(t, FromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}

func TestClientIP_Fallbacks(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.4:5555"
	assert.Equal(t, "192.0.2.4", clientIP(req).String())

	req.Header.Set("X-Real-Ip", " 198.51.100.2 ")
	assert.Equal(t, "198.51.100.2", clientIP(req).String())
}

func TestTrimVersion(t *testing.T) {
	assert.Equal(t, "124.1", trimVersion(uasurfer.Version{Major: 124, Minor: 1}))
	assert.Equal(t, "17", trimVersion(uasurfer.Version{Major: 17}))
	assert.Equal(t, "0", trimVersion(uasurfer.Version{}))
	assert.Equal(t, "10.0.1", trimVersion(uasurfer.Version{Major: 10, Patch: 1}))
}

func TestNew_BadGeoPath(t *testing.T) {
	_, err := New("/nonexistent/GeoLite2-City.mmdb", zap.NewNop().Sugar())
	assert.Error(t, err)
}
