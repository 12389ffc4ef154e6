package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/NiveditaB444/v0-personal-website-design1/internal/board"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/feedback"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/metrics"
)

// sseBuffer is how many inserts a slow SSE client may fall behind by before
// events are dropped for it.
const sseBuffer = 16

// feedbackEvents streams every insert as an "event: feedback" SSE message.
func (s *Server) feedbackEvents(c *gin.Context) {
	ctx := c.Request.Context()
	events := make(chan feedback.Entry, sseBuffer)

	sub, err := s.repo.SubscribeInserts(ctx, func(e feedback.Entry) {
		select {
		case events <- e:
		default:
			s.log.Warnw("Dropping feedback event for slow SSE client", "id", e.ID)
		}
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	defer sub.Close()

	metrics.FeedbackLiveSessions.WithLabelValues("sse").Inc()
	defer metrics.FeedbackLiveSessions.WithLabelValues("sse").Dec()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(s.pingInterval)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case e := <-events:
			c.SSEvent("feedback", e)
			metrics.FeedbackEventsDelivered.WithLabelValues("sse").Inc()
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", s.now().UTC().Format(time.RFC3339))
			return true
		}
	})
}

// clientAction is what the live board page sends.
type clientAction struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

type serverMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) acceptOptions() *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{CompressionMode: websocket.CompressionContextTakeover}
	if !s.cfg.IsProduction() || contains(s.cfg.Server.AllowedOrigins, "*") {
		opts.InsecureSkipVerify = true
	} else {
		opts.OriginPatterns = s.cfg.Server.AllowedOrigins
	}
	return opts
}

// liveBoard gives each connection its own board. The page sends form
// actions and receives a snapshot after every change.
func (s *Server) liveBoard(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, s.acceptOptions())
	if err != nil {
		s.log.Warnw("Failed to accept WebSocket connection", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	metrics.FeedbackLiveSessions.WithLabelValues("websocket").Inc()
	defer metrics.FeedbackLiveSessions.WithLabelValues("websocket").Dec()

	ctrl := board.New(s.repo, s.log)
	defer ctrl.Unmount()

	// Only the latest snapshot matters; a stale pending one is replaced.
	// Listeners are called one at a time, so this never blocks.
	updates := make(chan board.Snapshot, 1)
	ctrl.OnChange(func(snap board.Snapshot) {
		select {
		case <-updates:
		default:
		}
		updates <- snap
	})

	errCh := make(chan error, 3)
	go func() { errCh <- s.writeLoop(ctx, conn, updates) }()
	go func() { errCh <- s.pingLoop(ctx, conn) }()
	go func() { errCh <- s.readLoop(ctx, conn, ctrl) }()

	if err := ctrl.Mount(ctx); err != nil && !errors.Is(err, board.ErrUnmounted) {
		s.log.Infow("Live board mounted without data", "state", ctrl.Snapshot().State, "error", err)
	}

	err = <-errCh
	status := websocket.CloseStatus(err)
	if err != nil && status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
		s.log.Warnw("Live board connection error", "error", err)
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, updates <-chan board.Snapshot) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap := <-updates:
			if err := s.send(ctx, conn, serverMessage{Type: "snapshot", Payload: snap}); err != nil {
				return err
			}
			metrics.FeedbackEventsDelivered.WithLabelValues("websocket").Inc()
		}
	}
}

func (s *Server) pingLoop(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, ctrl *board.Controller) error {
	for {
		var a clientAction
		if err := wsjson.Read(ctx, conn, &a); err != nil {
			return err
		}
		if err := s.apply(ctx, ctrl, a); err != nil {
			_ = s.send(ctx, conn, serverMessage{Type: "error", Error: err.Error()})
		}
	}
}

var errBadAction = errors.New("invalid action")

func (s *Server) apply(ctx context.Context, ctrl *board.Controller, a clientAction) error {
	switch a.Type {
	case "name", "message":
		var v string
		if err := json.Unmarshal(a.Value, &v); err != nil {
			return errBadAction
		}
		if a.Type == "name" {
			ctrl.SetName(v)
		} else {
			ctrl.SetMessage(v)
		}
	case "hover", "rate":
		var v int
		if err := json.Unmarshal(a.Value, &v); err != nil {
			return errBadAction
		}
		if a.Type == "hover" {
			ctrl.HoverStar(v)
		} else {
			ctrl.SelectRating(v)
		}
	case "leave":
		ctrl.LeaveStars()
	case "dismiss":
		ctrl.DismissNotice()
	case "submit":
		// The outcome reaches the client as a snapshot. A visitor who leaves
		// mid-submit still gets their entry stored.
		go func() {
			storeCtx, cancel := s.storeContext(ctx)
			defer cancel()
			recordSubmission(ctrl.Submit(storeCtx))
		}()
	case "retry":
		go func() {
			storeCtx, cancel := s.storeContext(ctx)
			defer cancel()
			_ = ctrl.Mount(storeCtx)
		}()
	default:
		s.log.Debugw("Unknown live board action", "type", a.Type)
		return errBadAction
	}
	return nil
}

// storeContext detaches a repository call from the connection. Closing the
// socket unmounts the board, which discards the result, but never aborts the
// call itself.
func (s *Server) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
}

func (s *Server) send(ctx context.Context, conn *websocket.Conn, msg serverMessage) error {
	writeCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, msg)
}
