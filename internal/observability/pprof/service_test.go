package pprof

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	logx "glassbot/pkg/logx"
)

func get(t *testing.T, h http.Handler, target string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIndexWithoutToken(t *testing.T) {
	h := New(Config{}, logx.Nop()).Handler()
	rec := get(t, h, "/debug/pprof/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goroutine")
}

func TestCustomPrefixRedirectsAndServes(t *testing.T) {
	h := New(Config{Prefix: "prof"}, logx.Nop()).Handler()

	rec := get(t, h, "/prof", nil)
	assert.Equal(t, http.StatusPermanentRedirect, rec.Code)
	assert.Equal(t, "/prof/", rec.Header().Get("Location"))

	rec = get(t, h, "/prof/goroutine?debug=1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTokenRequired(t *testing.T) {
	h := New(Config{Token: "s3cret"}, logx.Nop()).Handler()

	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/debug/pprof/", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/debug/pprof/?token=nope", nil).Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/debug/pprof/?token=s3cret", nil).Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/debug/pprof/", map[string]string{"Authorization": "Bearer s3cret"}).Code)
}

func TestNormalizePrefix(t *testing.T) {
	assert.Equal(t, "/debug/pprof/", normalizePrefix(""))
	assert.Equal(t, "/x/", normalizePrefix("x"))
	assert.Equal(t, "/x/", normalizePrefix("/x/"))
}
