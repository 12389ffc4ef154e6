// Package server is the site's HTTP surface: the portfolio page, the
// feedback board (HTMX fragments, JSON, server-sent events and a live
// WebSocket), the contact form, health and metrics.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/NiveditaB444/v0-personal-website-design1/internal/admin"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/config"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/contact"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/feedback"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/portfolio"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/ratelimit"
)

// Deps are the collaborators the server is built from. Admin is optional.
type Deps struct {
	Config   *config.Config
	Repo     feedback.Repository
	Site     portfolio.Site
	Contact  contact.Sender
	Limiter  ratelimit.Limiter
	Gatherer prometheus.Gatherer
	Admin    *admin.Handler
	Log      *zap.SugaredLogger
}

type Server struct {
	cfg     *config.Config
	repo    feedback.Repository
	site    portfolio.Site
	contact contact.Sender
	log     *zap.SugaredLogger
	now     func() time.Time

	pingInterval time.Duration
	writeTimeout time.Duration
	storeTimeout time.Duration

	router *gin.Engine
}

func New(d Deps) (*Server, error) {
	if d.Config == nil || d.Repo == nil || d.Contact == nil || d.Limiter == nil || d.Log == nil {
		return nil, errors.New("server: config, repository, contact sender, limiter and logger are required")
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		cfg:          d.Config,
		repo:         d.Repo,
		site:         d.Site,
		contact:      d.Contact,
		log:          d.Log.Named("server"),
		now:          time.Now,
		pingInterval: 30 * time.Second,
		writeTimeout: 10 * time.Second,
		storeTimeout: 30 * time.Second,
	}

	if d.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	if err := r.SetTrustedProxies(d.Config.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)

	r.Use(requestID(), requestLogger(d.Log), gin.Recovery(), metricsMiddleware(), corsMiddleware(d.Config.Server))
	if d.Admin != nil {
		r.Use(d.Admin.TrackVisitors())
	}

	r.StaticFS("/static", staticFiles())
	r.Static("/images", "./images")

	limit := ratelimit.Middleware(d.Limiter, d.Log)

	r.GET("/", s.homePage)
	r.GET("/feedback", s.feedbackFragment)
	r.POST("/feedback", ratelimit.MiddlewareWith(d.Limiter, d.Log, s.rejectFeedbackForm), s.submitFeedbackForm)
	r.GET("/feedback/events", s.feedbackEvents)
	r.GET("/feedback/live", s.liveBoard)

	api := r.Group("/api")
	api.GET("/feedback", s.listFeedback)
	api.POST("/feedback", limit, s.createFeedback)

	r.POST("/contact", ratelimit.MiddlewareWith(d.Limiter, d.Log, s.rejectContact), s.submitContact)

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))

	if d.Admin != nil {
		d.Admin.RegisterRoutes(r)
	}

	s.router = r
	return s, nil
}

// Handler is the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"backend": s.cfg.Feedback.Backend,
		"time":    s.now().UTC().Format(time.RFC3339),
	})
}
