// Package supabase implements feedback.Repository against a Supabase project:
// reads and writes go through PostgREST and live inserts arrive on a
// Realtime postgres_changes channel.
package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
	"go.uber.org/zap"

	"github.com/NiveditaB444/v0-personal-website-design1/internal/feedback"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/logger"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/realtime"
)

// ChannelName is the Realtime channel the board joins.
const ChannelName = "feedback_changes"

const columns = "id,name,message,rating,created_at"

type Repository struct {
	client   *supabase.Client
	realtime realtime.Config
	log      *zap.SugaredLogger
}

var _ feedback.Repository = (*Repository)(nil)

// New creates a client for the project at url using the public anon key.
// No request is made until the first call.
func New(url, anonKey string, log *zap.SugaredLogger) (*Repository, error) {
	client, err := supabase.NewClient(url, anonKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	log = log.Named("feedback.supabase")
	log.Infow("Supabase feedback backend configured", "url", url, "key", logger.MaskKey(anonKey))
	return &Repository{
		client:   client,
		realtime: realtime.Config{URL: url, APIKey: anonKey},
		log:      log,
	}, nil
}

// WithRealtime overrides the Realtime connection settings.
func (r *Repository) WithRealtime(cfg realtime.Config) *Repository {
	r.realtime = cfg
	return r
}

func (r *Repository) ListAll(ctx context.Context) ([]feedback.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, feedback.Connection("list", err)
	}

	var rows []feedback.Entry
	_, err := r.client.From(feedback.TableName).
		Select(columns, "", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		ExecuteTo(&rows)
	if err != nil {
		return nil, feedback.Classify("list", err)
	}
	if rows == nil {
		rows = []feedback.Entry{}
	}
	return rows, nil
}

type insertRow struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Rating  int    `json:"rating"`
}

func (r *Repository) Insert(ctx context.Context, name, message string, rating int) error {
	d, err := feedback.NewDraft(name, message, rating)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return feedback.Connection("insert", err)
	}

	_, _, err = r.client.From(feedback.TableName).
		Insert(insertRow{Name: d.Name, Message: d.Message, Rating: d.Rating}, false, "", "minimal", "").
		Execute()
	if err != nil {
		return feedback.Classify("insert", err)
	}
	return nil
}

func (r *Repository) SubscribeInserts(ctx context.Context, fn func(feedback.Entry)) (*feedback.Subscription, error) {
	var stream *realtime.Stream
	sub := feedback.NewSubscription(func() {
		if stream != nil {
			_ = stream.Close()
		}
	})

	filter := realtime.Filter{Event: "INSERT", Schema: "public", Table: feedback.TableName}
	stream, err := realtime.Subscribe(ctx, r.realtime, ChannelName, filter, func(c realtime.Change) {
		e, err := decodeRecord(c.Record)
		if err != nil {
			r.log.Warnw("Dropping undecodable feedback change", "error", err)
			return
		}
		sub.Deliver(func() { fn(e) })
	}, r.log)
	if err != nil {
		_ = sub.Close()
		return nil, feedback.Classify("subscribe", err)
	}
	return sub, nil
}

type record struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Message   string `json:"message"`
	Rating    int    `json:"rating"`
	CreatedAt string `json:"created_at"`
}

// Realtime renders timestamptz columns in more than one shape depending on
// the server version.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05.999999-07:00",
}

func decodeRecord(raw json.RawMessage) (feedback.Entry, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return feedback.Entry{}, fmt.Errorf("decode record: %w", err)
	}
	if rec.ID == "" {
		return feedback.Entry{}, fmt.Errorf("record has no id")
	}

	e := feedback.Entry{ID: rec.ID, Name: rec.Name, Message: rec.Message, Rating: rec.Rating}
	ts := strings.TrimSpace(rec.CreatedAt)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			e.CreatedAt = t.UTC()
			return e, nil
		}
	}
	return feedback.Entry{}, fmt.Errorf("parse created_at %q", rec.CreatedAt)
}
