package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NiveditaB444/v0-personal-website-design1/internal/feedback"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/migrations"
)

func newMigratedRepo(t *testing.T) *Repository {
	t.Helper()
	log := zap.NewNop().Sugar()
	repo, err := Open(filepath.Join(t.TempDir(), "feedback.db"), log)
	require.NoError(t, err)
	require.NoError(t, migrations.ApplySQLite(repo.DB(), log))
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestInsertThenListAll(t *testing.T) {
	repo := newMigratedRepo(t)
	ctx := context.Background()

	entries, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)

	require.NoError(t, repo.Insert(ctx, "Ada", "Lovely site", 4))
	require.NoError(t, repo.Insert(ctx, "  Grace  ", " Ship it ", 5))

	entries, err = repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "Grace", entries[0].Name)
	assert.Equal(t, "Ship it", entries[0].Message)
	assert.Equal(t, 5, entries[0].Rating)
	assert.Equal(t, "Ada", entries[1].Name)
	assert.Equal(t, 4, entries[1].Rating)
	assert.False(t, entries[0].CreatedAt.Before(entries[1].CreatedAt))
	assert.NotEmpty(t, entries[0].ID)
	assert.NotEqual(t, entries[0].ID, entries[1].ID)
}

func TestListAllOrdersByCreatedAtDescending(t *testing.T) {
	repo := newMigratedRepo(t)
	ctx := context.Background()

	_, err := repo.DB().Exec(`INSERT INTO feedback (id, name, message, rating, created_at) VALUES
		('old', 'A', 'first', 3, '2026-01-01T10:00:00.000Z'),
		('new', 'B', 'second', 4, '2026-01-02T10:00:00.000Z')`)
	require.NoError(t, err)

	entries, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "new", entries[0].ID)
	assert.Equal(t, "old", entries[1].ID)
	assert.Equal(t, time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC), entries[0].CreatedAt)
}

func TestMissingTableIsSchemaError(t *testing.T) {
	log := zap.NewNop().Sugar()
	repo, err := Open(filepath.Join(t.TempDir(), "empty.db"), log)
	require.NoError(t, err)
	defer repo.Close()

	_, err = repo.ListAll(context.Background())
	require.Error(t, err)
	assert.True(t, feedback.IsSchema(err), err.Error())

	err = repo.Insert(context.Background(), "Ada", "hi", 3)
	require.Error(t, err)
	assert.True(t, feedback.IsSchema(err), err.Error())
}

func TestInvalidInputNeverReachesStore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := New(db, feedback.NewBroker(), zap.NewNop().Sugar())
	ctx := context.Background()

	for _, tc := range []struct {
		name, message string
		rating        int
	}{
		{"Ada", "hi", 0},
		{"Ada", "hi", 6},
		{"  ", "hi", 3},
		{"Ada", "\n", 3},
	} {
		err := repo.Insert(ctx, tc.name, tc.message, tc.rating)
		require.Error(t, err)
		assert.True(t, feedback.IsValidation(err))
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, name, message, rating, created_at FROM feedback").
		WillReturnError(errors.New("database is locked"))
	mock.ExpectQuery("INSERT INTO feedback").
		WithArgs(sqlmock.AnyArg(), "Ada", "hi", 3).
		WillReturnError(sql.ErrConnDone)

	repo := New(db, feedback.NewBroker(), zap.NewNop().Sugar())

	_, err = repo.ListAll(context.Background())
	require.Error(t, err)
	assert.True(t, feedback.IsConnection(err))

	err = repo.Insert(context.Background(), "Ada", "hi", 3)
	require.Error(t, err)
	assert.True(t, feedback.IsConnection(err))
	assert.ErrorIs(t, err, sql.ErrConnDone)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscribeDeliversInserts(t *testing.T) {
	repo := newMigratedRepo(t)
	ctx := context.Background()

	var mu sync.Mutex
	var got []feedback.Entry
	delivered := make(chan struct{}, 2)
	sub, err := repo.SubscribeInserts(ctx, func(e feedback.Entry) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
		delivered <- struct{}{}
	})
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, repo.Insert(ctx, "Ada", "one", 2))
	require.NoError(t, repo.Insert(ctx, "Bob", "two", 3))

	for i := 0; i < 2; i++ {
		select {
		case <-delivered:
		case <-time.After(time.Second):
			t.Fatal("insert not delivered")
		}
	}
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, "one", got[0].Message)
	assert.Equal(t, "two", got[1].Message)
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestSubscribeThenCloseDeliversNothing(t *testing.T) {
	repo := newMigratedRepo(t)
	ctx := context.Background()

	var calls int32
	sub, err := repo.SubscribeInserts(ctx, func(feedback.Entry) { atomic.AddInt32(&calls, 1) })
	require.NoError(t, err)
	require.NoError(t, sub.Close())

	require.NoError(t, repo.Insert(ctx, "Ada", "after close", 5))
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestSubscribeWithCancelledContext(t *testing.T) {
	repo := newMigratedRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sub, err := repo.SubscribeInserts(ctx, func(feedback.Entry) {})
	assert.Nil(t, sub)
	assert.True(t, feedback.IsConnection(err))
}
