package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/NiveditaB444/v0-personal-website-design1/internal/board"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/portfolio"
)

// boardView is what the feedback-board fragment renders.
type boardView struct {
	board.Snapshot
	SetupHint string
}

type pageData struct {
	Site      portfolio.Site
	Board     boardView
	Copyright string
}

func (s *Server) view(snap board.Snapshot) boardView {
	v := boardView{Snapshot: snap}
	if snap.State == board.StateSetupMissing {
		v.SetupHint = s.cfg.Feedback.SetupHint
	}
	return v
}

func (s *Server) homePage(c *gin.Context) {
	snap := board.Preview(c.Request.Context(), s.repo, s.log)
	c.HTML(http.StatusOK, "index.html", pageData{
		Site:      s.site,
		Board:     s.view(snap),
		Copyright: s.site.Footer.Copyright(s.now()),
	})
}
