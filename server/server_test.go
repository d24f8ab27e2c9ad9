package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/user/cropadvisor-go/artifacts"
	"github.com/user/cropadvisor-go/auth"
	"github.com/user/cropadvisor-go/classifier"
	"github.com/user/cropadvisor-go/config"
	"github.com/user/cropadvisor-go/db"
	"github.com/user/cropadvisor-go/recommend"
	"github.com/user/cropadvisor-go/trainer"
	"github.com/user/cropadvisor-go/users"
	"github.com/user/cropadvisor-go/web"
)

const cropInfo = `crop,description,season
rice,Staple cereal grown in flooded fields,kharif
maize,Tall cereal,kharif
chickpea,Cool season pulse,rabi
`

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Database:  &config.DatabaseConfig{},
		Artifacts: &config.ArtifactConfig{},
		Server:    &config.ServerConfig{Port: "0", CORSOrigins: []string{"*"}},
		Log:       &config.LogConfig{Level: "error", Format: "json"},
		Auth: &config.AuthConfig{
			SecretKey:    "e2e-secret",
			SessionTTL:   time.Hour,
			SessionStore: config.SessionStoreMemory,
			BcryptCost:   bcrypt.MinCost,
		},
	}
}

// newTestServer trains a model on the three crop fixture and serves the full router.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return newTestServerWith(t, testConfig())
}

func newTestServerWith(t *testing.T, cfg *config.AppConfig) *httptest.Server {
	t.Helper()
	dir := t.TempDir()

	paths := artifacts.Paths{
		Model:    filepath.Join(dir, "model.json"),
		Encoder:  filepath.Join(dir, "label_encoder.json"),
		CropInfo: filepath.Join(dir, "crops_info.csv"),
	}
	require.NoError(t, os.WriteFile(paths.CropInfo, []byte(cropInfo), 0o644))
	require.NoError(t, trainer.Run(trainer.Options{
		DataPath: "../trainer/testdata/three_crops.csv",
		Seed:     classifier.DefaultSeed,
		Out:      paths,
	}))
	ictx, err := artifacts.Load(paths)
	require.NoError(t, err)

	gdb, err := db.OpenSQLite(filepath.Join(dir, "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.CloseSQLite(gdb) })
	repo, err := auth.NewGormUserRepository(gdb)
	require.NoError(t, err)

	sessions := auth.NewSessionManager(auth.NewMemorySessionStore(), cfg.Auth)
	pages, err := web.NewPages()
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(Deps{
		Config:    cfg,
		Sessions:  sessions,
		Auth:      auth.NewHandlers(auth.NewAuthService(repo, cfg.Auth), sessions),
		Users:     users.NewUserHandlers(users.NewUserService(repo)),
		Recommend: recommend.NewHandlers(recommend.NewService(ictx)),
		Pages:     pages,
	}))
	t.Cleanup(srv.Close)
	return srv
}

type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func newClient(t *testing.T, srv *httptest.Server) *client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{t: t, base: srv.URL, http: &http.Client{Jar: jar}}
}

func (c *client) do(method, path string, body any) (int, map[string]any) {
	c.t.Helper()
	return c.doWithHeaders(method, path, body, nil)
}

func (c *client) doWithHeaders(method, path string, body any, headers map[string]string) (int, map[string]any) {
	c.t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.base+path, rdr)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

var riceField = map[string]any{
	"N": 85, "P": 45, "K": 40, "temperature": 23.5, "humidity": 83, "ph": 6.5, "rainfall": 220,
	"season": "kharif",
}

func TestEndToEnd(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)
	creds := map[string]string{"username": "alice", "password": "pw1"}

	status, body := c.do(http.MethodPost, "/api/detailed-recommend", riceField)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Authentication required", body["error"])

	status, body = c.do(http.MethodPost, "/register", creds)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	status, body = c.do(http.MethodPost, "/register", creds)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Username already exists", body["error"])

	status, body = c.do(http.MethodPost, "/login", map[string]string{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid credentials", body["error"])

	status, _ = c.do(http.MethodPost, "/login", creds)
	require.Equal(t, http.StatusOK, status)

	status, body = c.do(http.MethodPost, "/api/detailed-recommend", riceField)
	require.Equal(t, http.StatusOK, status)
	recs := body["recommendations"].([]any)
	require.Len(t, recs, 3)
	top := recs[0].(map[string]any)
	assert.Equal(t, "rice", top["crop"])
	assert.Greater(t, top["score"].(float64), 0.5)
	assert.Equal(t, "Staple cereal grown in flooded fields", top["description"])
	assert.Equal(t, "kharif", body["user_inputs"].(map[string]any)["season"])

	status, body = c.do(http.MethodGet, "/api/me", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", body["username"])

	status, body = c.do(http.MethodPost, "/logout", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	status, _ = c.do(http.MethodPost, "/api/detailed-recommend", riceField)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = c.do(http.MethodGet, "/api/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAuthRateLimit_IgnoresForwardedHeaders(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.RateLimit = 2
	srv := newTestServerWith(t, cfg)
	c := newClient(t, srv)
	creds := map[string]string{"username": "mallory", "password": "guess"}

	for i, header := range []string{"X-Forwarded-For", "X-Real-IP", "X-Forwarded-For"} {
		fake := map[string]string{header: fmt.Sprintf("203.0.113.%d", i+1)}
		status, body := c.doWithHeaders(http.MethodPost, "/login", creds, fake)
		if i < cfg.Auth.RateLimit {
			assert.Equal(t, http.StatusUnauthorized, status, "attempt %d", i+1)
			continue
		}
		assert.Equal(t, http.StatusTooManyRequests, status, "attempt %d", i+1)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "Too many requests", body["error"])
	}
}

func TestPeerKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "198.51.100.7:5555"
	req = req.WithContext(context.WithValue(req.Context(), peerAddrKey{}, "192.0.2.10:4444"))

	key, err := peerKey(req)
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.10", key)

	bare := httptest.NewRequest(http.MethodPost, "/login", nil)
	bare.RemoteAddr = "198.51.100.7"
	key, err = peerKey(bare)
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.7", key)
}

func TestPublicEndpoints(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)

	status, body := c.do(http.MethodGet, "/api/crop-details?crop=%20Rice%20", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "rice", body["crop"])
	assert.Equal(t, true, body["success"])

	status, body = c.do(http.MethodGet, "/api/crop-details?crop=quinoa", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Details for quinoa not found", body["error"])

	status, body = c.do(http.MethodGet, "/api/dataset-info", nil)
	assert.Equal(t, http.StatusOK, status)
	stats := body["stats"].(map[string]any)
	assert.EqualValues(t, 30, stats["num_samples"])
	assert.EqualValues(t, 3, stats["num_crops"])
	assert.Equal(t, "three_crops.csv", stats["source"])

	status, body = c.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	status, _ = c.do(http.MethodGet, "/no-such-route", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestPagesAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	// "/" goes first so the request counter has a sample by the time /metrics is scraped.
	for _, tc := range []struct{ path, want string }{
		{"/", `id="loginBtn"`},
		{"/static/app.js", "/api/detailed-recommend"},
		{"/metrics", "cropadvisor_http_requests_total"},
		{"/swagger/doc.json", "/api/detailed-recommend"},
	} {
		path := tc.path
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err, path)
		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err, path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Contains(t, string(raw), tc.want, path)
	}
}

func TestRecovererWritesJSON(t *testing.T) {
	h := recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "An internal error occurred", body["error"])
	assert.Equal(t, false, body["success"])
}
