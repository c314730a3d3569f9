package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProtected(t *testing.T) {
	assert.True(t, Protected("/dashboard"))
	assert.True(t, Protected("/billing/portal"))
	assert.False(t, Protected("/dashboards"))
	assert.False(t, Protected("/login"))
	assert.False(t, Protected("/pricing"))
}

func TestSPAHandlerRedirectsAnonymous(t *testing.T) {
	rec := httptest.NewRecorder()
	SPAHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestSPAHandlerServesPublicRoutes(t *testing.T) {
	for _, path := range []string{"/", "/login", "/pricing", "/reset-password"} {
		rec := httptest.NewRecorder()
		SPAHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Body.String(), `<div id="root">`, path)
	}
}
