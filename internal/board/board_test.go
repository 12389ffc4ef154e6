package board

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NiveditaB444/v0-personal-website-design1/internal/feedback"
)

// mockRepo mocks ListAll and Insert with testify and keeps subscriptions by hand
// so tests can push live inserts.
type mockRepo struct {
	mock.Mock

	mu     sync.Mutex
	subs   []*liveSub
	subErr error
	closes atomic.Int32
}

type liveSub struct {
	sub *feedback.Subscription
	fn  func(feedback.Entry)
}

func (m *mockRepo) ListAll(ctx context.Context) ([]feedback.Entry, error) {
	args := m.Called(ctx)
	entries, _ := args.Get(0).([]feedback.Entry)
	return entries, args.Error(1)
}

func (m *mockRepo) Insert(ctx context.Context, name, message string, rating int) error {
	args := m.Called(ctx, name, message, rating)
	return args.Error(0)
}

func (m *mockRepo) SubscribeInserts(ctx context.Context, fn func(feedback.Entry)) (*feedback.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subErr != nil {
		return nil, m.subErr
	}
	s := &liveSub{fn: fn}
	s.sub = feedback.NewSubscription(func() { m.closes.Add(1) })
	m.subs = append(m.subs, s)
	return s.sub, nil
}

// push delivers e to every open subscription, the way a backend would.
func (m *mockRepo) push(e feedback.Entry) {
	m.mu.Lock()
	subs := append([]*liveSub(nil), m.subs...)
	m.mu.Unlock()
	for _, s := range subs {
		s.sub.Deliver(func() { s.fn(e) })
	}
}

func (m *mockRepo) subCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

var (
	t1 = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	t2 = t1.Add(time.Hour)

	older = feedback.Entry{ID: "1", Name: "Ada", Message: "Nice", Rating: 4, CreatedAt: t1}
	newer = feedback.Entry{ID: "2", Name: "Grace", Message: "Great", Rating: 5, CreatedAt: t2}
)

func newController(repo feedback.Repository) *Controller {
	return New(repo, zap.NewNop().Sugar())
}

func mounted(t *testing.T, entries []feedback.Entry) (*Controller, *mockRepo) {
	t.Helper()
	repo := &mockRepo{}
	repo.On("ListAll", mock.Anything).Return(entries, nil).Once()
	c := newController(repo)
	require.NoError(t, c.Mount(context.Background()))
	t.Cleanup(c.Unmount)
	return c, repo
}

func fillForm(c *Controller, name, message string, rating int) {
	c.SetName(name)
	c.SetMessage(message)
	c.SelectRating(rating)
}

func TestMountLoadsAndSubscribes(t *testing.T) {
	c, repo := mounted(t, []feedback.Entry{newer, older})

	snap := c.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.Equal(t, []feedback.Entry{newer, older}, snap.Entries)
	assert.True(t, snap.Live)
	assert.True(t, snap.CanSubmit())
	assert.Equal(t, LabelSubmit, snap.SubmitLabel())
	assert.False(t, snap.Empty())
	assert.Equal(t, 1, repo.subCount())
	repo.AssertExpectations(t)
}

func TestMountWithNoRowsShowsEmptyState(t *testing.T) {
	c, _ := mounted(t, []feedback.Entry{})

	snap := c.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.True(t, snap.Empty())
	assert.Empty(t, snap.Problem)
	assert.Equal(t, NoticeNone, snap.Notice.Kind)
}

func TestMountMissingTable(t *testing.T) {
	repo := &mockRepo{}
	repo.On("ListAll", mock.Anything).Return(nil, feedback.Schema("list", errors.New(`relation "feedback" does not exist`)))
	c := newController(repo)
	defer c.Unmount()

	err := c.Mount(context.Background())
	assert.True(t, feedback.IsSchema(err))

	snap := c.Snapshot()
	assert.Equal(t, StateSetupMissing, snap.State)
	assert.Equal(t, MsgSetupMissing, snap.Problem)
	assert.False(t, snap.CanSubmit())
	assert.Equal(t, LabelUnavailable, snap.SubmitLabel())
	assert.False(t, snap.Empty())
	assert.Zero(t, repo.subCount(), "no subscription without a table")
}

func TestMountConnectionFailure(t *testing.T) {
	repo := &mockRepo{}
	repo.On("ListAll", mock.Anything).Return(nil, feedback.Connection("list", errors.New("timeout")))
	c := newController(repo)
	defer c.Unmount()

	err := c.Mount(context.Background())
	assert.True(t, feedback.IsConnection(err))

	snap := c.Snapshot()
	assert.Equal(t, StateUnavailable, snap.State)
	assert.Equal(t, MsgUnavailable, snap.Problem)
	assert.False(t, snap.CanSubmit())
	assert.Zero(t, repo.subCount())
}

func TestRetryAfterUnavailable(t *testing.T) {
	repo := &mockRepo{}
	repo.On("ListAll", mock.Anything).Return(nil, feedback.Connection("list", errors.New("timeout"))).Once()
	repo.On("ListAll", mock.Anything).Return([]feedback.Entry{older}, nil).Once()
	c := newController(repo)
	defer c.Unmount()

	_ = c.Mount(context.Background())
	require.Equal(t, StateUnavailable, c.Snapshot().State)

	require.NoError(t, c.Mount(context.Background()))
	snap := c.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.Empty(t, snap.Problem)
	assert.True(t, snap.Live)
}

func TestSubscriptionFailureKeepsBoardReady(t *testing.T) {
	repo := &mockRepo{subErr: feedback.Connection("subscribe", errors.New("refused"))}
	repo.On("ListAll", mock.Anything).Return([]feedback.Entry{older}, nil)
	c := newController(repo)
	defer c.Unmount()

	require.NoError(t, c.Mount(context.Background()))
	snap := c.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.False(t, snap.Live)
	assert.True(t, snap.CanSubmit())
}

func TestLiveInsertsArePrepended(t *testing.T) {
	c, repo := mounted(t, []feedback.Entry{older})

	before := c.Snapshot().Entries
	repo.push(newer)

	snap := c.Snapshot()
	assert.Equal(t, []feedback.Entry{newer, older}, snap.Entries)
	assert.Equal(t, []feedback.Entry{older}, before, "earlier snapshots are not mutated")

	// Duplicate deliveries are shown as delivered.
	repo.push(newer)
	assert.Len(t, c.Snapshot().Entries, 3)
}

func TestLiveInsertsAreNotResorted(t *testing.T) {
	c, repo := mounted(t, []feedback.Entry{newer})

	repo.push(older)
	assert.Equal(t, []feedback.Entry{older, newer}, c.Snapshot().Entries)
}

func TestSubmitInvalidNeverCallsRepository(t *testing.T) {
	tests := []struct {
		name    string
		inName  string
		message string
		rating  int
		want    string
	}{
		{name: "no rating", inName: "Ada", message: "hi", rating: 0, want: MsgIncomplete},
		{name: "blank name", inName: "  ", message: "hi", rating: 3, want: MsgIncomplete},
		{name: "blank message", inName: "Ada", message: "\t", rating: 3, want: MsgIncomplete},
		{name: "name too long", inName: strings.Repeat("n", feedback.MaxNameLength+1), message: "hi", rating: 3, want: "Name is too long."},
		{name: "message too long", inName: "Ada", message: strings.Repeat("x", feedback.MaxMessageLength+1), rating: 3, want: "Message is too long."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, repo := mounted(t, nil)
			fillForm(c, tt.inName, tt.message, tt.rating)

			err := c.Submit(context.Background())
			assert.True(t, feedback.IsValidation(err))

			snap := c.Snapshot()
			assert.Equal(t, NoticeValidation, snap.Notice.Kind)
			assert.Equal(t, tt.want, snap.Notice.Text)
			assert.False(t, snap.Submitting)
			repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSubmitSuccessClearsForm(t *testing.T) {
	c, repo := mounted(t, []feedback.Entry{older})
	repo.On("Insert", mock.Anything, "Grace", "Great", 5).Return(nil).Once()

	fillForm(c, "Grace", "Great", 5)
	c.HoverStar(2)
	require.NoError(t, c.Submit(context.Background()))

	snap := c.Snapshot()
	assert.Empty(t, snap.Name)
	assert.Empty(t, snap.Message)
	assert.Zero(t, snap.Rating)
	assert.Zero(t, snap.Hover)
	assert.False(t, snap.Submitting)
	assert.Equal(t, Notice{Kind: NoticeSuccess, Text: MsgThanks}, snap.Notice)
	assert.Equal(t, []feedback.Entry{older}, snap.Entries, "the list only grows through the subscription")

	repo.push(newer)
	assert.Equal(t, []feedback.Entry{newer, older}, c.Snapshot().Entries)
	repo.AssertExpectations(t)
}

func TestSubmitConnectionFailureKeepsForm(t *testing.T) {
	c, repo := mounted(t, nil)
	repo.On("Insert", mock.Anything, "Ada", "hi", 3).Return(feedback.Connection("insert", errors.New("reset"))).Once()

	fillForm(c, "Ada", "hi", 3)
	err := c.Submit(context.Background())
	assert.True(t, feedback.IsConnection(err))

	snap := c.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.Equal(t, "Ada", snap.Name)
	assert.Equal(t, "hi", snap.Message)
	assert.Equal(t, 3, snap.Rating)
	assert.False(t, snap.Submitting)
	assert.Equal(t, Notice{Kind: NoticeError, Text: MsgSubmitFailed}, snap.Notice)
	assert.True(t, snap.CanSubmit())
}

func TestSubmitMissingTableDisablesWrites(t *testing.T) {
	c, repo := mounted(t, nil)
	repo.On("Insert", mock.Anything, "Ada", "hi", 3).Return(feedback.Schema("insert", errors.New("no such table: feedback"))).Once()

	fillForm(c, "Ada", "hi", 3)
	err := c.Submit(context.Background())
	assert.True(t, feedback.IsSchema(err))

	snap := c.Snapshot()
	assert.Equal(t, StateSetupMissing, snap.State)
	assert.Equal(t, NoticeSetup, snap.Notice.Kind)
	assert.False(t, snap.CanSubmit())

	assert.ErrorIs(t, c.Submit(context.Background()), ErrNotReady)
	assert.Equal(t, MsgNotAvailable, c.Snapshot().Notice.Text)
	repo.AssertNumberOfCalls(t, "Insert", 1)
}

func TestSubmitWhileInFlight(t *testing.T) {
	c, repo := mounted(t, nil)
	release := make(chan struct{})
	started := make(chan struct{})
	repo.On("Insert", mock.Anything, "Ada", "hi", 3).Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(nil).Once()

	fillForm(c, "Ada", "hi", 3)
	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background()) }()
	<-started

	snap := c.Snapshot()
	assert.True(t, snap.Submitting)
	assert.False(t, snap.CanSubmit())
	assert.Equal(t, LabelSubmitting, snap.SubmitLabel())
	assert.ErrorIs(t, c.Submit(context.Background()), ErrSubmitting)

	close(release)
	require.NoError(t, <-done)
	repo.AssertNumberOfCalls(t, "Insert", 1)
}

func TestUnmountClosesSubscriptionOnce(t *testing.T) {
	c, repo := mounted(t, []feedback.Entry{older})

	c.Unmount()
	c.Unmount()
	assert.Equal(t, int32(1), repo.closes.Load())

	repo.push(newer)
	assert.Equal(t, []feedback.Entry{older}, c.Snapshot().Entries)

	c.SetName("ignored")
	assert.Empty(t, c.Snapshot().Name)
	assert.ErrorIs(t, c.Submit(context.Background()), ErrUnmounted)
}

func TestLateResultsAfterUnmountAreDiscarded(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		repo := &mockRepo{}
		release := make(chan struct{})
		started := make(chan struct{})
		repo.On("ListAll", mock.Anything).Run(func(mock.Arguments) {
			close(started)
			<-release
		}).Return([]feedback.Entry{older}, nil)
		c := newController(repo)

		done := make(chan error, 1)
		go func() { done <- c.Mount(context.Background()) }()
		<-started
		c.Unmount()
		close(release)

		assert.ErrorIs(t, <-done, ErrUnmounted)
		assert.Equal(t, StateLoading, c.Snapshot().State)
		assert.Zero(t, repo.subCount())
	})

	t.Run("insert", func(t *testing.T) {
		c, repo := mounted(t, nil)
		release := make(chan struct{})
		started := make(chan struct{})
		repo.On("Insert", mock.Anything, "Ada", "hi", 3).Run(func(mock.Arguments) {
			close(started)
			<-release
		}).Return(nil)

		fillForm(c, "Ada", "hi", 3)
		done := make(chan error, 1)
		go func() { done <- c.Submit(context.Background()) }()
		<-started
		c.Unmount()
		close(release)

		assert.ErrorIs(t, <-done, ErrUnmounted)
		assert.Equal(t, "Ada", c.Snapshot().Name, "state is frozen after unmount")
	})
}

func TestOnChangeReceivesOrderedSnapshots(t *testing.T) {
	repo := &mockRepo{}
	repo.On("ListAll", mock.Anything).Return([]feedback.Entry{}, nil)
	c := newController(repo)
	defer c.Unmount()

	var mu sync.Mutex
	var states []State
	c.OnChange(func(s Snapshot) {
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	})
	require.NoError(t, c.Mount(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(states), 2)
	assert.Equal(t, StateLoading, states[0])
	assert.Equal(t, StateReady, states[len(states)-1])
}

func TestStarInputOnController(t *testing.T) {
	c, _ := mounted(t, nil)

	c.HoverStar(4)
	snap := c.Snapshot()
	assert.Equal(t, 4, snap.Stars.Count())
	assert.Zero(t, snap.Rating)
	assert.Equal(t, "Select a rating", snap.RatingCaption())

	c.LeaveStars()
	assert.Zero(t, c.Snapshot().Stars.Count())

	c.SelectRating(3)
	c.HoverStar(5)
	assert.Equal(t, 5, c.Snapshot().Stars.Count())
	c.LeaveStars()
	snap = c.Snapshot()
	assert.Equal(t, 3, snap.Stars.Count())
	assert.Equal(t, "3/5", snap.RatingCaption())
}

func TestPreview(t *testing.T) {
	repo := &mockRepo{}
	repo.On("ListAll", mock.Anything).Return([]feedback.Entry{newer, older}, nil)

	snap := Preview(context.Background(), repo, zap.NewNop().Sugar())
	assert.Equal(t, StateReady, snap.State)
	assert.Len(t, snap.Entries, 2)
	assert.False(t, snap.Live)
	assert.Zero(t, repo.subCount())
}
