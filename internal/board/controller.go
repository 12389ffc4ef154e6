// Package board drives the feedback board: it loads entries, keeps the
// submission form and star input, submits through a feedback.Repository and
// merges live inserts. One Controller serves one viewer.
package board

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/NiveditaB444/v0-personal-website-design1/internal/feedback"
)

var (
	ErrNotReady   = errors.New("feedback board is not ready")
	ErrSubmitting = errors.New("a submission is already in flight")
	ErrUnmounted  = errors.New("feedback board was unmounted")
)

// Controller serializes every state change behind one mutex. Repository
// calls run without the lock held; a result that comes back after Unmount
// is discarded, as is a list superseded by a newer Load.
type Controller struct {
	repo feedback.Repository
	log  *zap.SugaredLogger

	mu         sync.Mutex
	gen        uint64
	unmounted  bool
	state      State
	entries    []feedback.Entry
	name       string
	message    string
	stars      StarInput
	submitting bool
	notice     Notice
	problem    string
	sub        *feedback.Subscription
	listeners  []func(Snapshot)

	// emitMu keeps listener calls in the order the changes were made.
	emitMu sync.Mutex
}

func New(repo feedback.Repository, log *zap.SugaredLogger) *Controller {
	return &Controller{
		repo:    repo,
		log:     log.Named("board"),
		state:   StateLoading,
		entries: []feedback.Entry{},
	}
}

// OnChange registers fn to receive a snapshot after every change. fn must
// not call back into the Controller.
func (c *Controller) OnChange(fn func(Snapshot)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:      c.state,
		Entries:    slices.Clone(c.entries),
		Name:       c.name,
		Message:    c.message,
		Rating:     c.stars.Committed,
		Hover:      c.stars.Hover,
		Stars:      c.stars.Render(),
		Submitting: c.submitting,
		Live:       c.sub != nil,
		Notice:     c.notice,
		Problem:    c.problem,
	}
}

// unlockAndEmit releases c.mu and notifies listeners. It must be called
// with c.mu held.
func (c *Controller) unlockAndEmit() {
	snap := c.snapshotLocked()
	listeners := c.listeners
	c.emitMu.Lock()
	c.mu.Unlock()
	defer c.emitMu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}
}

// Load fetches the full list and moves to Ready, SetupMissing or
// Unavailable. It returns the repository error, if any, for logging.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return ErrUnmounted
	}
	c.gen++
	gen := c.gen
	c.state = StateLoading
	c.problem = ""
	c.unlockAndEmit()

	entries, err := c.repo.ListAll(ctx)

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return ErrUnmounted
	}
	switch {
	case err == nil:
		c.entries = entries
		if c.entries == nil {
			c.entries = []feedback.Entry{}
		}
		c.state = StateReady
	case feedback.IsSchema(err):
		c.state = StateSetupMissing
		c.problem = MsgSetupMissing
		c.log.Warnw("Feedback table is missing", "error", err)
	default:
		c.state = StateUnavailable
		c.problem = MsgUnavailable
		c.log.Errorw("Failed to load feedback", "error", err)
	}
	c.unlockAndEmit()
	return err
}

// Mount loads the list and, once Ready, opens the live subscription. If the
// subscription cannot be opened the board stays Ready without live updates.
func (c *Controller) Mount(ctx context.Context) error {
	if err := c.Load(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	if c.unmounted || c.state != StateReady || c.sub != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	sub, err := c.repo.SubscribeInserts(ctx, c.onInsert)

	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		_ = sub.Close()
		return ErrUnmounted
	}
	if err != nil {
		c.mu.Unlock()
		c.log.Warnw("Live feedback updates unavailable", "error", err)
		return nil
	}
	if c.sub != nil {
		// A concurrent Mount won the race.
		c.mu.Unlock()
		_ = sub.Close()
		return nil
	}
	c.sub = sub
	c.unlockAndEmit()
	return nil
}

// onInsert prepends every delivered entry. There is no de-duplication by id.
func (c *Controller) onInsert(e feedback.Entry) {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return
	}
	entries := make([]feedback.Entry, 0, len(c.entries)+1)
	entries = append(entries, e)
	c.entries = append(entries, c.entries...)
	c.unlockAndEmit()
}

// Unmount closes the subscription. Results that arrive later are dropped.
// Safe to call more than once.
func (c *Controller) Unmount() {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return
	}
	c.unmounted = true
	c.gen++
	sub := c.sub
	c.sub = nil
	c.listeners = nil
	c.mu.Unlock()

	// Closing waits for an in-flight callback, which needs c.mu.
	_ = sub.Close()
}

func (c *Controller) SetName(v string) {
	c.update(func() { c.name = v })
}

func (c *Controller) SetMessage(v string) {
	c.update(func() { c.message = v })
}

func (c *Controller) HoverStar(v int) {
	c.update(func() { c.stars.Enter(v) })
}

func (c *Controller) LeaveStars() {
	c.update(func() { c.stars.Leave() })
}

func (c *Controller) SelectRating(v int) {
	c.update(func() { c.stars.Click(v) })
}

// DismissNotice clears the current notice.
func (c *Controller) DismissNotice() {
	c.update(func() { c.notice = Notice{} })
}

func (c *Controller) update(fn func()) {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return
	}
	fn()
	c.unlockAndEmit()
}

// Submit validates the form and inserts it. Only a Ready board submits;
// the returned error says why nothing was stored.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return ErrUnmounted
	}
	if c.state != StateReady {
		c.notice = Notice{Kind: NoticeError, Text: MsgNotAvailable}
		c.unlockAndEmit()
		return ErrNotReady
	}
	if c.submitting {
		c.mu.Unlock()
		return ErrSubmitting
	}

	name, message, rating := c.name, c.message, c.stars.Committed
	if _, err := feedback.NewDraft(name, message, rating); err != nil {
		c.notice = Notice{Kind: NoticeValidation, Text: validationText(err)}
		c.unlockAndEmit()
		return err
	}
	c.submitting = true
	c.notice = Notice{}
	c.unlockAndEmit()

	err := c.repo.Insert(ctx, name, message, rating)

	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return ErrUnmounted
	}
	c.submitting = false
	switch {
	case err == nil:
		c.name, c.message = "", ""
		c.stars.Reset()
		c.notice = Notice{Kind: NoticeSuccess, Text: MsgThanks}
	case feedback.IsSchema(err):
		c.state = StateSetupMissing
		c.problem = MsgSetupMissing
		c.notice = Notice{Kind: NoticeSetup, Text: MsgSetupRequired}
		c.log.Warnw("Feedback table is missing on submit", "error", err)
	case feedback.IsValidation(err):
		c.notice = Notice{Kind: NoticeValidation, Text: validationText(err)}
	default:
		c.notice = Notice{Kind: NoticeError, Text: MsgSubmitFailed}
		c.log.Errorw("Failed to submit feedback", "error", err)
	}
	c.unlockAndEmit()
	return err
}

// validationText keeps the generic prompt for missing input and spells out
// length problems.
func validationText(err error) string {
	var fe *feedback.Error
	if errors.As(err, &fe) && strings.HasSuffix(fe.Detail, "too long") {
		return strings.ToUpper(fe.Detail[:1]) + fe.Detail[1:] + "."
	}
	return MsgIncomplete
}

// Preview loads a read-only snapshot for server-side rendering without
// opening a subscription.
func Preview(ctx context.Context, repo feedback.Repository, log *zap.SugaredLogger) Snapshot {
	c := New(repo, log)
	_ = c.Load(ctx)
	c.Unmount()
	return c.Snapshot()
}
