package web

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/cropadvisor-go/auth"
)

func newPages(t *testing.T) *Pages {
	t.Helper()
	p, err := NewPages()
	require.NoError(t, err)
	return p
}

func TestHandleIndex(t *testing.T) {
	p := newPages(t)

	rec := httptest.NewRecorder()
	p.HandleIndex().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="loginBtn"`)
	assert.NotContains(t, rec.Body.String(), `id="recommendForm"`)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.ContextWithIdentity(req.Context(), &auth.Identity{UserID: 1, Username: "alice"}))
	rec = httptest.NewRecorder()
	p.HandleIndex().ServeHTTP(rec, req)
	assert.Contains(t, rec.Body.String(), `id="recommendForm"`)
	assert.Contains(t, rec.Body.String(), "Signed in as alice")
	assert.NotContains(t, rec.Body.String(), `id="loginBtn"`)
}

func TestHandleDetailed(t *testing.T) {
	p := newPages(t)
	payload := `{"recommendations":[{"crop":"rice","score":0.75},{"crop":"<b>maize</b>","score":0.25}],"user_inputs":{"N":90,"season":"kharif"}}`

	rec := httptest.NewRecorder()
	p.HandleDetailed().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/detailed-recommendations?data="+url.QueryEscape(payload), nil))
	body := rec.Body.String()

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "1. rice")
	assert.Contains(t, body, "75.0%")
	assert.Contains(t, body, "kharif")
	assert.Contains(t, body, "&lt;b&gt;maize&lt;/b&gt;")
}

func TestHandleDetailed_BadData(t *testing.T) {
	p := newPages(t)

	for _, target := range []string{"/detailed-recommendations", "/detailed-recommendations?data=%7Bnope"} {
		rec := httptest.NewRecorder()
		p.HandleDetailed().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Contains(t, rec.Body.String(), `class="error"`, target)
	}
}

func TestStaticHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	StaticHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app.js", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/detailed-recommend")
}

func TestHandleDetailed_DecodesDataOnce(t *testing.T) {
	p := newPages(t)
	payload := `{"recommendations":[{"crop":"mix%41","score":1}],"user_inputs":{}}`

	rec := httptest.NewRecorder()
	p.HandleDetailed().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/detailed-recommendations?data="+url.QueryEscape(payload), nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mix%41")
	assert.NotContains(t, rec.Body.String(), "mixA")
}
