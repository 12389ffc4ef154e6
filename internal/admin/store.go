package admin

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// timeLayout is what visit timestamps are stored as. SQLite's date
// functions understand it and it sorts lexically.
const timeLayout = "2006-01-02 15:04:05"

const createVisitorTable = `
CREATE TABLE IF NOT EXISTS visitors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	hashed_ip TEXT NOT NULL,
	user_agent TEXT,
	path TEXT,
	timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
	country TEXT
)`

const createVisitorIndex = `CREATE INDEX IF NOT EXISTS visitors_timestamp_idx ON visitors (timestamp)`

// VisitorMetric is one recorded page view. The client IP is only ever
// stored hashed.
type VisitorMetric struct {
	ID        int       `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
	Country   string    `json:"country,omitempty"`
}

type PathStat struct {
	Path  string `json:"path"`
	Views int64  `json:"views"`
}

// VisitorStats aggregates the visitors table.
type VisitorStats struct {
	TotalVisitors    int64           `json:"total_visitors"`
	UniqueVisitors   int64           `json:"unique_visitors"`
	VisitorsToday    int64           `json:"visitors_today"`
	VisitorsThisWeek int64           `json:"visitors_this_week"`
	TopPaths         []PathStat      `json:"top_paths"`
	RecentVisitors   []VisitorMetric `json:"recent_visitors"`
}

// Store keeps privacy-conscious visit records in SQLite.
type Store struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

// OpenStore opens (creating if needed) the visitors database at path.
func OpenStore(ctx context.Context, path string, log *zap.SugaredLogger) (*Store, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open visitors database: %w", err)
	}
	s := NewStore(db, log)
	if err := s.Init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func NewStore(db *sql.DB, log *zap.SugaredLogger) *Store {
	return &Store{db: db, log: log.Named("visitors")}
}

// Init creates the visitors table if it does not exist.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createVisitorTable); err != nil {
		return fmt.Errorf("failed to create visitors table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, createVisitorIndex); err != nil {
		return fmt.Errorf("failed to create visitors index: %w", err)
	}
	s.log.Info("Privacy-conscious visitor tracking initialized")
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Record(ctx context.Context, v VisitorMetric) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO visitors (hashed_ip, user_agent, path, timestamp) VALUES (?, ?, ?, ?)`,
		v.HashedIP, v.UserAgent, v.Path, v.Timestamp.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to record visitor: %w", err)
	}
	return nil
}

// Cleanup deletes visits recorded before cutoff.
func (s *Store) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM visitors WHERE timestamp < ?`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to clean up visitors: %w", err)
	}
	return res.RowsAffected()
}

// Forget deletes every visit recorded for one hashed IP.
func (s *Store) Forget(ctx context.Context, hashedIP string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM visitors WHERE hashed_ip = ?`, hashedIP)
	if err != nil {
		return 0, fmt.Errorf("failed to delete visitor data: %w", err)
	}
	return res.RowsAffected()
}

// Stats computes the dashboard numbers relative to now.
func (s *Store) Stats(ctx context.Context, now time.Time) (*VisitorStats, error) {
	stats := &VisitorStats{}
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&stats.TotalVisitors, `SELECT COUNT(*) FROM visitors`, nil},
		{&stats.UniqueVisitors, `SELECT COUNT(DISTINCT hashed_ip) FROM visitors`, nil},
		{&stats.VisitorsToday, `SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{today.Format(timeLayout)}},
		{&stats.VisitorsThisWeek, `SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{now.AddDate(0, 0, -7).Format(timeLayout)}},
	}
	for _, q := range counts {
		if err := s.db.QueryRowContext(ctx, q.query, q.args...).Scan(q.dst); err != nil {
			return nil, fmt.Errorf("failed to count visitors: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT path, COUNT(*) AS views
		FROM visitors
		GROUP BY path
		ORDER BY views DESC, path
		LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("failed to load top paths: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p PathStat
		if err := rows.Scan(&p.Path, &p.Views); err != nil {
			return nil, fmt.Errorf("failed to scan path stat: %w", err)
		}
		stats.TopPaths = append(stats.TopPaths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats.RecentVisitors, err = s.Recent(ctx, 50)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Recent returns the latest visits, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]VisitorMetric, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hashed_ip, COALESCE(user_agent, ''), COALESCE(path, ''), timestamp
		FROM visitors
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load visitors: %w", err)
	}
	defer rows.Close()

	var visitors []VisitorMetric
	for rows.Next() {
		var v VisitorMetric
		var ts any
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan visitor: %w", err)
		}
		v.Timestamp = visitTime(ts)
		visitors = append(visitors, v)
	}
	return visitors, rows.Err()
}

// visitTime reads a timestamp column. The driver hands DATETIME columns back
// as time.Time when it can parse them and as text otherwise.
func visitTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		for _, layout := range []string{timeLayout, time.RFC3339Nano} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed
			}
		}
	case []byte:
		return visitTime(string(t))
	}
	return time.Time{}
}
