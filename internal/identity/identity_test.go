package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, req *http.Request) (deviceID, sessionID string, rec *httptest.ResponseRecorder) {
	t.Helper()
	rec = httptest.NewRecorder()
	h := Middleware(true)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		deviceID = DeviceIDFromContext(r.Context())
		sessionID = SessionIDFromContext(r.Context())
	}))
	h.ServeHTTP(rec, req)
	return deviceID, sessionID, rec
}

func TestMiddlewareIssuesDeviceCookie(t *testing.T) {
	deviceID, sessionID, rec := capture(t, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, isValidDeviceID(deviceID))
	assert.Equal(t, DefaultSessionIDValue, sessionID)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, DeviceCookieName, cookies[0].Name)
	assert.Equal(t, deviceID, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestMiddlewareReusesValidCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	existing := "dev_0123456789abcdef0123456789abcdef"
	req.AddCookie(&http.Cookie{Name: DeviceCookieName, Value: existing})

	deviceID, _, _ := capture(t, req)
	assert.Equal(t, existing, deviceID)
}

func TestMiddlewareReplacesInvalidCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DeviceCookieName, Value: "forged"})

	deviceID, _, _ := capture(t, req)
	assert.NotEqual(t, "forged", deviceID)
	assert.True(t, isValidDeviceID(deviceID))
}

func TestSessionIDFromHeaderOrQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?session_id=from-query", nil)
	_, sessionID, _ := capture(t, req)
	assert.Equal(t, "from-query", sessionID)

	req = httptest.NewRequest(http.MethodGet, "/?session_id=from-query", nil)
	req.Header.Set(SessionHeaderName, "from-header")
	_, sessionID, _ = capture(t, req)
	assert.Equal(t, "from-header", sessionID)

	req = httptest.NewRequest(http.MethodGet, "/?session_id=bad%20id!", nil)
	_, sessionID, _ = capture(t, req)
	assert.Equal(t, DefaultSessionIDValue, sessionID)
}

func TestIPFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", IPFromRequest(req))
	req.RemoteAddr = "nohost"
	assert.Equal(t, "nohost", IPFromRequest(req))
}
