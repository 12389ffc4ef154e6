package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/NiveditaB444/v0-personal-website-design1/internal/board"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/feedback"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/metrics"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/ratelimit"
)

// feedbackFragment renders the board for HTMX swaps.
func (s *Server) feedbackFragment(c *gin.Context) {
	snap := board.Preview(c.Request.Context(), s.repo, s.log)
	c.HTML(http.StatusOK, "feedback-board", s.view(snap))
}

// submitFeedbackForm runs one submission through a short-lived board and
// renders the result. HTMX only swaps 2xx responses, so outcomes are
// reported in the fragment.
func (s *Server) submitFeedbackForm(c *gin.Context) {
	ctx := c.Request.Context()
	ctrl := board.New(s.repo, s.log)
	defer ctrl.Unmount()

	// A board that fails to load rejects the submit with a notice.
	_ = ctrl.Load(ctx)

	rating, _ := strconv.Atoi(c.PostForm("rating"))
	ctrl.SetName(c.PostForm("name"))
	ctrl.SetMessage(c.PostForm("message"))
	ctrl.SelectRating(rating)

	err := ctrl.Submit(ctx)
	recordSubmission(err)
	if err == nil {
		// Nothing streams into this board, so reload to show the new entry.
		_ = ctrl.Load(ctx)
	}
	c.HTML(http.StatusOK, "feedback-board", s.view(ctrl.Snapshot()))
}

// rejectFeedbackForm answers a rate-limited HTMX post with the board and a
// notice, keeping what the visitor typed.
func (s *Server) rejectFeedbackForm(c *gin.Context, retry time.Duration) {
	if !isHTMX(c) {
		ratelimit.RejectJSON(c, retry)
		return
	}
	snap := board.Preview(c.Request.Context(), s.repo, s.log)
	rating, _ := strconv.Atoi(c.PostForm("rating"))
	if feedback.ValidRating(rating) {
		snap.Rating = rating
		snap.Stars = board.RenderStars(rating)
	}
	snap.Name = c.PostForm("name")
	snap.Message = c.PostForm("message")
	snap.Notice = board.Notice{Kind: board.NoticeError, Text: ratelimit.MsgTooMany}
	c.HTML(http.StatusOK, "feedback-board", s.view(snap))
}

func isHTMX(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}

type feedbackRequest struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Rating  int    `json:"rating"`
}

func (s *Server) listFeedback(c *gin.Context) {
	entries, err := s.repo.ListAll(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"summary": feedback.Summarize(entries),
	})
}

func (s *Server) createFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		recordSubmission(feedback.Validation("invalid request body"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "kind": feedback.KindValidation.String()})
		return
	}

	// Validate here too so bad input never reaches the store.
	d, err := feedback.NewDraft(req.Name, req.Message, req.Rating)
	if err == nil {
		err = s.repo.Insert(c.Request.Context(), d.Name, d.Message, d.Rating)
	}
	recordSubmission(err)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": board.MsgThanks})
}

// writeError maps a repository error onto a status and a user-facing text.
func (s *Server) writeError(c *gin.Context, err error) {
	var fe *feedback.Error
	errors.As(err, &fe)
	kind := feedback.KindOf(err)

	switch kind {
	case feedback.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": fe.Detail, "kind": kind.String()})
	case feedback.KindSchema:
		s.log.Warnw("Feedback table is missing", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": board.MsgSetupMissing,
			"kind":  kind.String(),
			"setup": s.cfg.Feedback.SetupHint,
		})
	default:
		s.log.Errorw("Feedback store unavailable", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": board.MsgUnavailable, "kind": feedback.KindConnection.String()})
	}
}

func recordSubmission(err error) {
	result := "created"
	switch {
	case err == nil:
	case feedback.IsValidation(err):
		result = "invalid"
	case feedback.IsSchema(err):
		result = "setup_missing"
	case errors.Is(err, board.ErrNotReady), errors.Is(err, board.ErrSubmitting), errors.Is(err, board.ErrUnmounted):
		result = "rejected"
	default:
		result = "failed"
	}
	metrics.FeedbackSubmissions.WithLabelValues(result).Inc()
}
