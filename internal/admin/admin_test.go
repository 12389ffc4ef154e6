package admin

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NiveditaB444/v0-personal-website-design1/internal/config"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/feedback"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubRepo struct {
	entries []feedback.Entry
	err     error
}

func (s stubRepo) ListAll(context.Context) ([]feedback.Entry, error) { return s.entries, s.err }
func (s stubRepo) Insert(context.Context, string, string, int) error { return nil }
func (s stubRepo) SubscribeInserts(context.Context, func(feedback.Entry)) (*feedback.Subscription, error) {
	return feedback.NewSubscription(nil), nil
}

var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(context.Background(), filepath.Join(t.TempDir(), "visitors.db"), zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newHandler(t *testing.T, repo feedback.Repository) (*Handler, *gin.Engine) {
	t.Helper()
	cfg := config.AdminConfig{Username: "owner", Password: "s3cret", VisitorRetention: 30 * 24 * time.Hour}
	h, err := New(newStore(t), repo, cfg, false, zap.NewNop().Sugar())
	require.NoError(t, err)
	h.now = func() time.Time { return testNow }

	r := gin.New()
	tmpl := template.Must(template.New("admin-login.html").Parse(`login {{.error}}`))
	for _, name := range []string{"admin-dashboard.html", "admin-visitors.html", "admin-error.html", "privacy.html"} {
		template.Must(tmpl.New(name).Parse(name + ` {{.}}`))
	}
	r.SetHTMLTemplate(tmpl)
	r.Use(h.TrackVisitors())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "home") })
	h.RegisterRoutes(r)
	return h, r
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, r http.Handler) *http.Cookie {
	t.Helper()
	form := url.Values{"username": {"owner"}, "password": {"s3cret"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := do(r, req)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/dashboard", w.Header().Get("Location"))
	for _, c := range w.Result().Cookies() {
		if c.Name == cookieName {
			assert.True(t, c.HttpOnly)
			assert.Equal(t, cookiePath, c.Path)
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestLogin(t *testing.T) {
	_, r := newHandler(t, stubRepo{})

	t.Run("rejects bad credentials", func(t *testing.T) {
		form := url.Values{"username": {"owner"}, "password": {"wrong"}}
		req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := do(r, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid credentials")
	})

	t.Run("protected pages redirect", func(t *testing.T) {
		w := do(r, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/admin/login", w.Header().Get("Location"))

		req := httptest.NewRequest(http.MethodGet, "/admin/api/stats", nil)
		req.AddCookie(&http.Cookie{Name: cookieName, Value: "forged"})
		assert.Equal(t, http.StatusFound, do(r, req).Code)
	})

	t.Run("session grants access", func(t *testing.T) {
		cookie := login(t, r)
		req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
		req.AddCookie(cookie)
		assert.Equal(t, http.StatusOK, do(r, req).Code)
	})
}

func TestTrackVisitors(t *testing.T) {
	h, r := newHandler(t, stubRepo{})

	get := func(path, ip string, hdr map[string]string) {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = ip + ":5555"
		req.Header.Set("User-Agent", "test-agent")
		for k, v := range hdr {
			req.Header.Set(k, v)
		}
		do(r, req)
	}

	get("/", "203.0.113.1", nil)
	get("/", "203.0.113.1", nil)
	get("/", "203.0.113.2", nil)
	get("/", "203.0.113.3", map[string]string{"DNT": "1"})
	get("/privacy", "203.0.113.1", nil)
	get("/static/app.js", "203.0.113.1", nil)
	h.Wait()

	visitors, err := h.store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, visitors, 3)
	for _, v := range visitors {
		assert.Len(t, v.HashedIP, 16)
		assert.NotContains(t, v.HashedIP, "203.0.113")
		assert.Equal(t, "/", v.Path)
		assert.Equal(t, testNow, v.Timestamp)
	}
	assert.Equal(t, h.hashIP("203.0.113.1"), h.hashIP("203.0.113.1"))

	stats, err := h.Stats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalVisitors)
	assert.EqualValues(t, 2, stats.UniqueVisitors)
	assert.EqualValues(t, 3, stats.VisitorsToday)
	assert.Equal(t, []PathStat{{Path: "/", Views: 3}}, stats.TopPaths)
}

func TestStatsIncludeFeedbackSummary(t *testing.T) {
	t.Run("summary", func(t *testing.T) {
		h, r := newHandler(t, stubRepo{entries: []feedback.Entry{{Rating: 5}, {Rating: 3}}})
		stats, err := h.Stats(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Feedback.Count)
		assert.InDelta(t, 4.0, stats.Feedback.Average, 0.001)

		req := httptest.NewRequest(http.MethodGet, "/admin/api/stats", nil)
		req.AddCookie(login(t, r))
		w := do(r, req)
		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Contains(t, body, "total_visitors")
		assert.Contains(t, body, "feedback")
	})

	t.Run("missing table", func(t *testing.T) {
		h, _ := newHandler(t, stubRepo{err: feedback.Schema("list", errors.New("no such table: feedback"))})
		stats, err := h.Stats(context.Background())
		require.NoError(t, err)
		assert.NotEmpty(t, stats.FeedbackError)
		assert.Zero(t, stats.Feedback.Count)
	})
}

func TestCleanupAndForget(t *testing.T) {
	h, r := newHandler(t, stubRepo{})
	ctx := context.Background()

	old := VisitorMetric{HashedIP: "aaaa", Path: "/", Timestamp: testNow.AddDate(0, -2, 0)}
	recent := VisitorMetric{HashedIP: h.hashIP("198.51.100.7"), Path: "/", Timestamp: testNow.Add(-time.Hour)}
	require.NoError(t, h.store.Record(ctx, old))
	require.NoError(t, h.store.Record(ctx, recent))

	h.Cleanup(ctx)
	visitors, err := h.store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, visitors, 1)
	assert.Equal(t, recent.HashedIP, visitors[0].HashedIP)

	req := httptest.NewRequest(http.MethodPost, "/privacy/forget", nil)
	req.RemoteAddr = "198.51.100.7:1000"
	w := do(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"deleted":1`)

	visitors, err = h.store.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, visitors)
}

func TestRunCleanupStopsWithContext(t *testing.T) {
	h, _ := newHandler(t, stubRepo{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.RunCleanup(ctx, time.Hour)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunCleanup did not stop")
	}
}
