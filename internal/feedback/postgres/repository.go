// Package postgres implements feedback.Repository directly on a Postgres
// database with pgx. Live inserts come from LISTEN/NOTIFY: the provisioning
// migration installs a trigger that notifies Channel with the new row's id.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/NiveditaB444/v0-personal-website-design1/internal/feedback"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/logger"
)

// Channel is the notification channel the insert trigger publishes on.
const Channel = "feedback_inserts"

const (
	listQuery   = `SELECT id::text, name, message, rating, created_at FROM feedback ORDER BY created_at DESC`
	getQuery    = `SELECT id::text, name, message, rating, created_at FROM feedback WHERE id = $1`
	insertQuery = `INSERT INTO feedback (name, message, rating) VALUES ($1, $2, $3)`
)

// Querier is the subset of pgxpool.Pool the repository uses. pgxmock pools
// satisfy it as well.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Listener opens a connection that is LISTENing on a channel.
type Listener interface {
	Listen(ctx context.Context, channel string) (NotificationConn, error)
}

// NotificationConn is a dedicated listening connection.
type NotificationConn interface {
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Release()
}

type Repository struct {
	db       Querier
	listener Listener
	log      *zap.SugaredLogger

	// Reconnect backoff for a dropped listening connection.
	retryDelay    time.Duration
	maxRetryDelay time.Duration
}

var _ feedback.Repository = (*Repository)(nil)

func New(db Querier, listener Listener, log *zap.SugaredLogger) *Repository {
	return &Repository{
		db:            db,
		listener:      listener,
		log:           log.Named("feedback.postgres"),
		retryDelay:    time.Second,
		maxRetryDelay: 30 * time.Second,
	}
}

// NewFromPool wires a repository whose change feed listens on a connection
// taken out of pool.
func NewFromPool(pool *pgxpool.Pool, log *zap.SugaredLogger) *Repository {
	return New(pool, PoolListener{Pool: pool}, log)
}

// Connect builds a pool from a connection URL. The pool dials lazily, so an
// unreachable database surfaces later as a connection error on the board
// rather than a startup failure.
func Connect(ctx context.Context, url string, maxConns int32, log *zap.SugaredLogger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		log.Warnw("Database not reachable yet", "url", logger.MaskConnectionString(url), "error", err)
	} else {
		log.Infow("Connected to database", "url", logger.MaskConnectionString(url), "maxConns", cfg.MaxConns)
	}
	return pool, nil
}

func (r *Repository) ListAll(ctx context.Context) ([]feedback.Entry, error) {
	rows, err := r.db.Query(ctx, listQuery)
	if err != nil {
		return nil, classify("list", err)
	}
	defer rows.Close()

	entries := []feedback.Entry{}
	for rows.Next() {
		var e feedback.Entry
		if err := rows.Scan(&e.ID, &e.Name, &e.Message, &e.Rating, &e.CreatedAt); err != nil {
			return nil, classify("list", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list", err)
	}
	return entries, nil
}

func (r *Repository) Insert(ctx context.Context, name, message string, rating int) error {
	d, err := feedback.NewDraft(name, message, rating)
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, insertQuery, d.Name, d.Message, d.Rating); err != nil {
		return classify("insert", err)
	}
	return nil
}

func (r *Repository) get(ctx context.Context, id string) (feedback.Entry, error) {
	var e feedback.Entry
	err := r.db.QueryRow(ctx, getQuery, id).Scan(&e.ID, &e.Name, &e.Message, &e.Rating, &e.CreatedAt)
	if err != nil {
		return feedback.Entry{}, classify("get", err)
	}
	return e, nil
}

// SubscribeInserts opens a listening connection and delivers each notified
// row to fn. A dropped connection is re-established with backoff; rows
// inserted while disconnected are not replayed.
func (r *Repository) SubscribeInserts(ctx context.Context, fn func(feedback.Entry)) (*feedback.Subscription, error) {
	conn, err := r.listener.Listen(ctx, Channel)
	if err != nil {
		return nil, classify("subscribe", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	sub := feedback.NewSubscription(func() {
		cancel()
		<-done
	})

	go func() {
		defer close(done)
		r.listen(runCtx, conn, sub, fn)
	}()
	return sub, nil
}

func (r *Repository) listen(ctx context.Context, conn NotificationConn, sub *feedback.Subscription, fn func(feedback.Entry)) {
	defer func() {
		if conn != nil {
			conn.Release()
		}
	}()

	for {
		n, err := conn.WaitForNotification(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			r.log.Warnw("Lost feedback notification connection", "error", err)
			conn.Release()
			conn = r.reconnect(ctx)
			if conn == nil {
				return
			}
			continue
		}

		e, err := r.get(ctx, n.Payload)
		if err != nil {
			if ctx.Err() == nil {
				r.log.Errorw("Failed to load notified feedback", "id", n.Payload, "error", err)
			}
			continue
		}
		if !sub.Deliver(func() { fn(e) }) {
			return
		}
	}
}

// reconnect retries Listen until it succeeds or ctx ends.
func (r *Repository) reconnect(ctx context.Context) NotificationConn {
	delay := r.retryDelay
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		conn, err := r.listener.Listen(ctx, Channel)
		if err == nil {
			r.log.Infow("Re-established feedback notification connection", "attempt", attempt)
			return conn
		}
		if ctx.Err() != nil {
			return nil
		}
		r.log.Warnw("Retrying feedback notification connection", "attempt", attempt, "delay", delay, "error", err)
		delay = min(delay*2, r.maxRetryDelay)
	}
}

func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgerrcode.UndefinedTable {
			return feedback.Schema(op, err)
		}
		return feedback.Connection(op, err)
	}
	return feedback.Classify(op, err)
}

// PoolListener takes a connection out of the pool for each listener. The
// connection is hijacked on release so its LISTEN state never returns to
// the pool.
type PoolListener struct {
	Pool *pgxpool.Pool
}

func (l PoolListener) Listen(ctx context.Context, channel string) (NotificationConn, error) {
	c, err := l.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := c.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		c.Release()
		return nil, err
	}
	return &poolConn{c: c}, nil
}

type poolConn struct {
	c *pgxpool.Conn
}

func (p *poolConn) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	return p.c.Conn().WaitForNotification(ctx)
}

func (p *poolConn) Release() {
	conn := p.c.Hijack()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = conn.Close(ctx)
}
