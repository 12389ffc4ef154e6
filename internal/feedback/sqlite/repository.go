// Package sqlite stores feedback in a local SQLite file. SQLite has no change
// feed, so inserts made through this process are fanned out by an in-process
// feedback.Broker.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/NiveditaB444/v0-personal-website-design1/internal/feedback"
)

const (
	listQuery = `SELECT id, name, message, rating, created_at FROM feedback
		ORDER BY created_at DESC, rowid DESC`
	insertQuery = `INSERT INTO feedback (id, name, message, rating) VALUES (?, ?, ?, ?)
		RETURNING created_at`
)

// Repository implements feedback.Repository on database/sql.
type Repository struct {
	db     *sql.DB
	broker *feedback.Broker
	log    *zap.SugaredLogger
}

var _ feedback.Repository = (*Repository)(nil)

// Open opens (or creates) the database file at path. It does not create the
// feedback table; run the migrate command for that.
func Open(path string, log *zap.SugaredLogger) (*Repository, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		// Every pooled connection waits on a locked file instead of failing.
		dsn += "?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open feedback db: %w", err)
	}
	// Enable WAL mode so page reads are not blocked by a submission.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	return New(db, feedback.NewBroker(), log), nil
}

// New wraps an open handle.
func New(db *sql.DB, broker *feedback.Broker, log *zap.SugaredLogger) *Repository {
	return &Repository{db: db, broker: broker, log: log.Named("feedback.sqlite")}
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// DB exposes the handle for provisioning and tests.
func (r *Repository) DB() *sql.DB {
	return r.db
}

func (r *Repository) ListAll(ctx context.Context) ([]feedback.Entry, error) {
	rows, err := r.db.QueryContext(ctx, listQuery)
	if err != nil {
		return nil, feedback.Classify("list", err)
	}
	defer rows.Close()

	entries := []feedback.Entry{}
	for rows.Next() {
		var (
			e         feedback.Entry
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Message, &e.Rating, &createdAt); err != nil {
			return nil, feedback.Connection("list", fmt.Errorf("scan feedback row: %w", err))
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, feedback.Connection("list", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, feedback.Classify("list", err)
	}
	return entries, nil
}

func (r *Repository) Insert(ctx context.Context, name, message string, rating int) error {
	d, err := feedback.NewDraft(name, message, rating)
	if err != nil {
		return err
	}

	e := feedback.Entry{ID: uuid.NewString(), Name: d.Name, Message: d.Message, Rating: d.Rating}
	var createdAt string
	err = r.db.QueryRowContext(ctx, insertQuery, e.ID, e.Name, e.Message, e.Rating).Scan(&createdAt)
	if err != nil {
		return feedback.Classify("insert", err)
	}
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		r.log.Warnw("Stored feedback has an unreadable timestamp", "id", e.ID, "created_at", createdAt)
		e.CreatedAt = time.Now().UTC()
	}

	r.broker.Publish(e)
	return nil
}

func (r *Repository) SubscribeInserts(ctx context.Context, fn func(feedback.Entry)) (*feedback.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, feedback.Connection("subscribe", err)
	}
	return r.broker.Subscribe(fn), nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse created_at %q", s)
}
