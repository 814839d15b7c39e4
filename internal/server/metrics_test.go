package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/stache/internal/registry"
	"github.com/leapstack-labs/stache/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/templates/list/render", `{"items": [1]}`).Code)
	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/templates/missing/render", "").Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/render", `{"template": "{{a}}"}`).Code)
	require.Equal(t, http.StatusUnprocessableEntity, do(t, h, http.MethodPost, "/render", `{"template": "{{#a}}"}`).Code)

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, `stache_renders_total{kind="named",result="ok"} 1`)
	assert.Contains(t, body, `stache_renders_total{kind="named",result="error"} 1`)
	assert.Contains(t, body, `stache_renders_total{kind="inline",result="ok"} 1`)
	assert.Contains(t, body, `stache_renders_total{kind="inline",result="error"} 1`)
	assert.Contains(t, body, `stache_http_requests_total{method="POST",route="/templates/{name}/render",status="200"} 1`)
	assert.Contains(t, body, `stache_http_requests_total{method="POST",route="/render",status="422"} 1`)
	assert.Contains(t, body, "stache_templates_loaded 2")
	assert.Contains(t, body, "stache_http_request_duration_seconds_bucket")
}

func TestMetrics_PerServerRegistry(t *testing.T) {
	// Two servers in one process must not collide on registration.
	a := NewServer(Config{Logger: testutil.NewTestLogger(t)})
	b := NewServer(Config{Logger: testutil.NewTestLogger(t)})

	do(t, a.Handler(), http.MethodGet, "/healthz", "")

	body := do(t, b.Handler(), http.MethodGet, "/metrics", "").Body.String()
	assert.NotContains(t, body, `route="/healthz"`)
	assert.Contains(t, body, "stache_templates_loaded 0")
}

func TestMetrics_Reload(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.txt"), []byte("{{a}}"), 0o600))

	reg := registry.NewTemplateRegistry()
	s := NewServer(Config{Registry: reg, TemplatesDir: dir, Logger: testutil.NewTestLogger(t)})

	s.reload(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.txt"), []byte("{{#a}}"), 0o600))
	s.reload(dir)

	body := do(t, s.Handler(), http.MethodGet, "/metrics", "").Body.String()
	assert.Contains(t, body, `stache_template_reloads_total{result="ok"} 1`)
	assert.Contains(t, body, `stache_template_reloads_total{result="error"} 1`)
	assert.Contains(t, body, "stache_templates_loaded 1")
}

func TestCORS(t *testing.T) {
	s := NewServer(Config{
		CORSOrigins: []string{"https://app.example.com"},
		Logger:      testutil.NewTestLogger(t),
	})
	h := s.Handler()

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/render", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	})

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("other origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("disabled by default", func(t *testing.T) {
		plain := NewServer(Config{Logger: testutil.NewTestLogger(t)})
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		plain.Handler().ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRateLimit(t *testing.T) {
	s := NewServer(Config{RateLimit: 2, Logger: testutil.NewTestLogger(t)})
	h := s.Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodGet, "/healthz", "").Code)
}
