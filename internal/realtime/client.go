// Package realtime is a small client for Supabase Realtime, which speaks the
// Phoenix channel protocol over a websocket. It joins one channel filtered
// to Postgres row changes and hands every change to a callback.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Phoenix protocol events.
const (
	EventJoin            = "phx_join"
	EventLeave           = "phx_leave"
	EventReply           = "phx_reply"
	EventError           = "phx_error"
	EventClose           = "phx_close"
	EventHeartbeat       = "heartbeat"
	EventPostgresChanges = "postgres_changes"

	heartbeatTopic = "phoenix"
)

// ErrJoinRejected is returned when the server answers a join with an error status.
var ErrJoinRejected = errors.New("realtime channel join rejected")

// Message is one Phoenix protocol frame.
type Message struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref,omitempty"`
	JoinRef string          `json:"join_ref,omitempty"`
}

// Filter selects which row changes the channel receives.
type Filter struct {
	Event  string `json:"event"`
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Filter string `json:"filter,omitempty"`
}

// Change is the data of a postgres_changes event.
type Change struct {
	Schema          string          `json:"schema"`
	Table           string          `json:"table"`
	Type            string          `json:"type"`
	CommitTimestamp string          `json:"commit_timestamp"`
	Record          json.RawMessage `json:"record"`
}

type Config struct {
	// URL is the project URL, e.g. https://xyz.supabase.co.
	URL    string
	APIKey string

	HeartbeatInterval time.Duration
	JoinTimeout       time.Duration
	WriteTimeout      time.Duration
	RetryDelay        time.Duration
	MaxRetryDelay     time.Duration

	HTTPClient *http.Client
}

func (c Config) withDefaults() Config {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 30 * time.Second
	}
	if c.JoinTimeout <= 0 {
		c.JoinTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = 30 * time.Second
	}
	return c
}

// Endpoint builds the websocket URL for a project URL.
func Endpoint(projectURL, apiKey string) (string, error) {
	u, err := url.Parse(projectURL)
	if err != nil {
		return "", fmt.Errorf("parse realtime url: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported realtime url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/realtime/v1/websocket"
	q := url.Values{}
	q.Set("apikey", apiKey)
	q.Set("vsn", "1.0.0")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Stream is a joined channel. It reconnects and rejoins on its own until
// Close is called.
type Stream struct {
	cfg      Config
	endpoint string
	topic    string
	filter   Filter
	fn       func(Change)
	log      *zap.SugaredLogger

	ref    atomic.Uint64
	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Subscribe dials the server, joins "realtime:<channel>" for filter and
// starts delivering changes to fn. fn runs on the stream's read goroutine,
// one change at a time, in the order the server sent them.
func Subscribe(ctx context.Context, cfg Config, channel string, filter Filter, fn func(Change), log *zap.SugaredLogger) (*Stream, error) {
	cfg = cfg.withDefaults()
	endpoint, err := Endpoint(cfg.URL, cfg.APIKey)
	if err != nil {
		return nil, err
	}
	s := &Stream{
		cfg:      cfg,
		endpoint: endpoint,
		topic:    "realtime:" + channel,
		filter:   filter,
		fn:       fn,
		log:      log.Named("realtime"),
		done:     make(chan struct{}),
	}

	conn, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.setConn(conn)
	go s.run(runCtx, conn)
	return s, nil
}

// Topic returns the joined channel topic.
func (s *Stream) Topic() string { return s.topic }

// Close leaves the channel and waits for the read goroutine to exit.
func (s *Stream) Close() error {
	s.once.Do(func() {
		if conn := s.currentConn(); conn != nil {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			_ = s.write(ctx, conn, Message{Topic: s.topic, Event: EventLeave, Payload: json.RawMessage(`{}`), Ref: s.nextRef()})
			cancel()
		}
		s.cancel()
		<-s.done
	})
	return nil
}

func (s *Stream) nextRef() string {
	return strconv.FormatUint(s.ref.Add(1), 10)
}

func (s *Stream) setConn(c *websocket.Conn) {
	s.mu.Lock()
	s.conn = c
	s.mu.Unlock()
}

func (s *Stream) currentConn() *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

func (s *Stream) write(ctx context.Context, conn *websocket.Conn, m Message) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, m)
}

type joinPayload struct {
	Config struct {
		PostgresChanges []Filter `json:"postgres_changes"`
	} `json:"config"`
	AccessToken string `json:"access_token,omitempty"`
}

type replyPayload struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

// connect dials and joins, waiting for the join reply.
func (s *Stream) connect(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, s.endpoint, &websocket.DialOptions{HTTPClient: s.cfg.HTTPClient})
	if err != nil {
		return nil, fmt.Errorf("dial realtime: %w", err)
	}

	var jp joinPayload
	jp.Config.PostgresChanges = []Filter{s.filter}
	jp.AccessToken = s.cfg.APIKey
	payload, err := json.Marshal(jp)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "")
		return nil, err
	}

	ref := s.nextRef()
	if err := s.write(ctx, conn, Message{Topic: s.topic, Event: EventJoin, Payload: payload, Ref: ref, JoinRef: ref}); err != nil {
		conn.Close(websocket.StatusInternalError, "")
		return nil, fmt.Errorf("send join: %w", err)
	}

	joinCtx, cancel := context.WithTimeout(ctx, s.cfg.JoinTimeout)
	defer cancel()
	for {
		var m Message
		if err := wsjson.Read(joinCtx, conn, &m); err != nil {
			conn.Close(websocket.StatusInternalError, "")
			return nil, fmt.Errorf("await join reply: %w", err)
		}
		if m.Event != EventReply || m.Ref != ref {
			continue
		}
		var reply replyPayload
		if err := json.Unmarshal(m.Payload, &reply); err != nil {
			conn.Close(websocket.StatusProtocolError, "")
			return nil, fmt.Errorf("decode join reply: %w", err)
		}
		if reply.Status != "ok" {
			conn.Close(websocket.StatusNormalClosure, "")
			return nil, fmt.Errorf("%w: %s %s", ErrJoinRejected, reply.Status, string(reply.Response))
		}
		s.log.Debugw("Joined realtime channel", "topic", s.topic)
		return conn, nil
	}
}

func (s *Stream) run(ctx context.Context, conn *websocket.Conn) {
	defer close(s.done)
	for {
		err := s.serve(ctx, conn)
		conn.Close(websocket.StatusNormalClosure, "")
		if ctx.Err() != nil {
			return
		}
		s.log.Warnw("Realtime connection lost", "topic", s.topic, "error", err)

		conn = s.reconnect(ctx)
		if conn == nil {
			return
		}
		s.setConn(conn)
	}
}

// serve runs the heartbeat and read loops until either fails.
func (s *Stream) serve(ctx context.Context, conn *websocket.Conn) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- s.heartbeatLoop(ctx, conn) }()
	go func() { errCh <- s.readLoop(ctx, conn) }()

	err := <-errCh
	cancel()
	return err
}

func (s *Stream) heartbeatLoop(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m := Message{Topic: heartbeatTopic, Event: EventHeartbeat, Payload: json.RawMessage(`{}`), Ref: s.nextRef()}
			if err := s.write(ctx, conn, m); err != nil {
				return err
			}
		}
	}
}

func (s *Stream) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		var m Message
		if err := wsjson.Read(ctx, conn, &m); err != nil {
			return err
		}
		if m.Topic != s.topic {
			continue
		}

		switch m.Event {
		case EventPostgresChanges:
			var p struct {
				Data Change `json:"data"`
			}
			if err := json.Unmarshal(m.Payload, &p); err != nil {
				s.log.Warnw("Dropping undecodable realtime change", "error", err)
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.fn(p.Data)
		case EventError, EventClose:
			return fmt.Errorf("channel %s: %s", m.Event, string(m.Payload))
		}
	}
}

func (s *Stream) reconnect(ctx context.Context) *websocket.Conn {
	delay := s.cfg.RetryDelay
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		conn, err := s.connect(ctx)
		if err == nil {
			s.log.Infow("Rejoined realtime channel", "topic", s.topic, "attempt", attempt)
			return conn
		}
		if ctx.Err() != nil {
			return nil
		}
		s.log.Warnw("Retrying realtime connection", "topic", s.topic, "attempt", attempt, "delay", delay, "error", err)
		delay = min(delay*2, s.cfg.MaxRetryDelay)
	}
}
