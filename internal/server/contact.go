package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/NiveditaB444/v0-personal-website-design1/internal/contact"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/metrics"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/ratelimit"
)

const (
	contactThanks = "Thank you for your message! I'll get back to you soon."
	contactFailed = "Sorry, there was an error sending your message. Please try again later."
)

// submitContact handles the HTMX contact form. Both outcomes are 200 so the
// fragment is swapped in.
func (s *Server) submitContact(c *gin.Context) {
	name := c.PostForm("name")
	if name == "" {
		name = c.PostForm("fullName")
	}

	msg, err := contact.NewMessage(name, c.PostForm("email"), c.PostForm("message"))
	if err != nil {
		metrics.ContactMessages.WithLabelValues(s.contact.Name(), "invalid").Inc()
		c.HTML(http.StatusOK, "contact-error.html", gin.H{"error": contactErrorText(err)})
		return
	}

	if err := s.contact.Send(c.Request.Context(), msg); err != nil {
		metrics.ContactMessages.WithLabelValues(s.contact.Name(), "failed").Inc()
		s.log.Errorw("Failed to deliver contact message", "sender", s.contact.Name(), "error", err)
		c.HTML(http.StatusOK, "contact-error.html", gin.H{"error": contactFailed})
		return
	}

	metrics.ContactMessages.WithLabelValues(s.contact.Name(), "sent").Inc()
	c.HTML(http.StatusOK, "contact-success.html", gin.H{"success": contactThanks})
}

func (s *Server) rejectContact(c *gin.Context, retry time.Duration) {
	if !isHTMX(c) {
		ratelimit.RejectJSON(c, retry)
		return
	}
	metrics.ContactMessages.WithLabelValues(s.contact.Name(), "rate_limited").Inc()
	c.HTML(http.StatusOK, "contact-error.html", gin.H{"error": ratelimit.MsgTooMany})
}

func contactErrorText(err error) string {
	switch {
	case errors.Is(err, contact.ErrInvalidName):
		return "Please enter your name without line breaks."
	case errors.Is(err, contact.ErrInvalidEmail):
		return "Please enter a valid email address."
	case errors.Is(err, contact.ErrTooLong):
		return "Your message is too long. Please shorten it and try again."
	default:
		return "Please fill in your name, email and message."
	}
}
