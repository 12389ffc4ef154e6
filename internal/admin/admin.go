// Package admin is the site's privacy-conscious visitor tracking and the
// password protected dashboard that reports on it and on feedback.
package admin

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/NiveditaB444/v0-personal-website-design1/internal/config"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/feedback"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/metrics"
)

const (
	cookieName = "admin_token"
	cookiePath = "/admin"
	cookieTTL  = 24 * time.Hour
)

// untracked are path prefixes that never count as a page view.
var untracked = []string{"/static/", "/images/", "/admin/", "/favicon", "/privacy", "/metrics", "/healthz", "/feedback/live", "/feedback/events"}

// Stats is what the dashboard shows.
type Stats struct {
	VisitorStats
	Feedback      feedback.Summary `json:"feedback"`
	FeedbackError string           `json:"feedback_error,omitempty"`
}

// Handler serves the admin pages. A token and an IP hashing salt are
// generated per process, so restarting logs everyone out and rotates the
// visitor hashes.
type Handler struct {
	store *Store
	repo  feedback.Repository
	cfg   config.AdminConfig
	// secure marks the session cookie Secure; set in production.
	secure bool
	log    *zap.SugaredLogger
	now    func() time.Time

	token string
	salt  string

	pending sync.WaitGroup
}

func New(store *Store, repo feedback.Repository, cfg config.AdminConfig, secure bool, log *zap.SugaredLogger) (*Handler, error) {
	token, err := randomHex(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate admin token: %w", err)
	}
	salt, err := randomHex(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate hashing salt: %w", err)
	}

	h := &Handler{
		store:  store,
		repo:   repo,
		cfg:    cfg,
		secure: secure,
		log:    log.Named("admin"),
		now:    time.Now,
		token:  token,
		salt:   salt,
	}
	h.log.Infow("Admin access available", "path", "/admin/login")
	if gin.Mode() == gin.DebugMode {
		h.log.Debugw("Admin token (dev only)", "token", token)
	}
	if cfg.Username == "admin" || cfg.Password == "admin123" {
		h.log.Warn("Using default admin credentials. Set ADMIN_USERNAME and ADMIN_PASSWORD.")
	}
	return h, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// hashIP is consistent per IP for the life of the process.
func (h *Handler) hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip + h.salt))
	return hex.EncodeToString(sum[:])[:16]
}

// RequireAuth redirects to the login page without a valid session cookie.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || subtle.ConstantTimeCompare([]byte(token), []byte(h.token)) != 1 {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// TrackVisitors records page views with a hashed IP. Requests with
// "DNT: 1" are not recorded. Recording happens off the request path.
func (h *Handler) TrackVisitors() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if c.Request.Method != http.MethodGet || c.GetHeader("DNT") == "1" || !tracked(path) {
			c.Next()
			return
		}

		v := VisitorMetric{
			HashedIP:  h.hashIP(c.ClientIP()),
			UserAgent: c.GetHeader("User-Agent"),
			Path:      path,
			Timestamp: h.now(),
		}
		h.pending.Add(1)
		go func() {
			defer h.pending.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.store.Record(ctx, v); err != nil {
				h.log.Errorw("Error recording visitor", "error", err)
				return
			}
			metrics.VisitorsTracked.Inc()
		}()
		c.Next()
	}
}

func tracked(path string) bool {
	for _, p := range untracked {
		if strings.HasPrefix(path, p) {
			return false
		}
	}
	return true
}

// Wait blocks until in-flight visit records are written.
func (h *Handler) Wait() {
	h.pending.Wait()
}

// Cleanup deletes visits older than the retention period.
func (h *Handler) Cleanup(ctx context.Context) {
	n, err := h.store.Cleanup(ctx, h.now().Add(-h.cfg.VisitorRetention))
	if err != nil {
		h.log.Errorw("Error cleaning up old visitor data", "error", err)
		return
	}
	if n > 0 {
		h.log.Infow("Privacy cleanup removed old visitor records", "count", n, "retention", h.cfg.VisitorRetention)
	}
}

// RunCleanup runs Cleanup now and then every interval until ctx is done.
func (h *Handler) RunCleanup(ctx context.Context, interval time.Duration) {
	h.Cleanup(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Cleanup(ctx)
		}
	}
}

// Stats gathers visitor numbers and the feedback summary. A feedback failure
// is reported in the result rather than failing the dashboard.
func (h *Handler) Stats(ctx context.Context) (*Stats, error) {
	vs, err := h.store.Stats(ctx, h.now())
	if err != nil {
		return nil, err
	}
	stats := &Stats{VisitorStats: *vs}

	entries, err := h.repo.ListAll(ctx)
	switch {
	case err == nil:
		stats.Feedback = feedback.Summarize(entries)
	case feedback.IsSchema(err):
		stats.FeedbackError = "The feedback table has not been created yet."
	default:
		h.log.Warnw("Failed to load feedback for dashboard", "error", err)
		stats.FeedbackError = "Feedback is unavailable right now."
	}
	return stats, nil
}

func (h *Handler) credentialsMatch(username, password string) bool {
	u := subtle.ConstantTimeCompare([]byte(username), []byte(h.cfg.Username))
	p := subtle.ConstantTimeCompare([]byte(password), []byte(h.cfg.Password))
	return u&p == 1
}

// RegisterRoutes mounts the privacy page and the /admin routes.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/privacy", h.privacyPage)
	r.POST("/privacy/forget", h.forgetMe)

	r.GET("/admin/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-login.html", gin.H{"title": "Admin Login"})
	})
	r.POST("/admin/login", h.login)
	r.GET("/admin/logout", h.logout)

	group := r.Group("/admin")
	group.Use(h.RequireAuth())
	group.GET("/dashboard", h.dashboard)
	group.GET("/api/stats", h.apiStats)
	group.GET("/visitors", h.visitors)
	group.POST("/privacy/cleanup", h.cleanupNow)
	group.GET("/export/stats", h.exportStats)
}

func (h *Handler) privacyPage(c *gin.Context) {
	c.HTML(http.StatusOK, "privacy.html", gin.H{
		"title":         "Privacy Policy",
		"retentionDays": int(h.cfg.VisitorRetention.Hours() / 24),
	})
}

// forgetMe lets a visitor delete the records made under their own IP.
func (h *Handler) forgetMe(c *gin.Context) {
	n, err := h.store.Forget(c.Request.Context(), h.hashIP(c.ClientIP()))
	if err != nil {
		h.log.Errorw("Error deleting visitor data", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete visitor data"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Your visit records have been deleted", "deleted": n})
}

func (h *Handler) login(c *gin.Context) {
	if h.credentialsMatch(c.PostForm("username"), c.PostForm("password")) {
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(cookieName, h.token, int(cookieTTL.Seconds()), cookiePath, "", h.secure, true)
		h.log.Infow("Admin login successful", "visitor", h.hashIP(c.ClientIP()))
		c.Redirect(http.StatusFound, "/admin/dashboard")
		return
	}
	h.log.Warnw("Failed admin login attempt", "visitor", h.hashIP(c.ClientIP()))
	c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{"error": "Invalid credentials"})
}

func (h *Handler) logout(c *gin.Context) {
	c.SetCookie(cookieName, "", -1, cookiePath, "", h.secure, true)
	h.log.Infow("Admin logout", "visitor", h.hashIP(c.ClientIP()))
	c.Redirect(http.StatusFound, "/admin/login")
}

func (h *Handler) dashboard(c *gin.Context) {
	stats, err := h.Stats(c.Request.Context())
	if err != nil {
		h.log.Errorw("Error loading admin stats", "error", err)
		c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{"error": "Failed to load statistics"})
		return
	}
	c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{"stats": stats})
}

func (h *Handler) apiStats(c *gin.Context) {
	stats, err := h.Stats(c.Request.Context())
	if err != nil {
		h.log.Errorw("Error loading admin stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load statistics"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) visitors(c *gin.Context) {
	visitors, err := h.store.Recent(c.Request.Context(), 200)
	if err != nil {
		h.log.Errorw("Error loading visitors", "error", err)
		c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{"error": "Failed to load visitors"})
		return
	}
	c.HTML(http.StatusOK, "admin-visitors.html", gin.H{"visitors": visitors})
}

func (h *Handler) cleanupNow(c *gin.Context) {
	h.Cleanup(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"message": "Privacy cleanup complete"})
}

func (h *Handler) exportStats(c *gin.Context) {
	stats, err := h.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load statistics"})
		return
	}
	c.Header("Content-Disposition", "attachment; filename=admin-stats.json")
	h.log.Infow("Admin stats exported", "visitor", h.hashIP(c.ClientIP()))
	c.JSON(http.StatusOK, stats)
}
