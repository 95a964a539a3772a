// Package costcontrol caps LLM usage per day and per run.
package costcontrol

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"
)

// ErrLimitReached matches every LimitError.
var ErrLimitReached = errors.New("LLM call limit reached")

// Tracker counts LLM calls and enforces limits. A zero limit is unlimited.
type Tracker struct {
	mu              sync.Mutex
	dailyCallLimit  int
	perRunCallLimit int
	now             func() time.Time

	// Daily tracking
	dailyCalls     int
	dailyResetTime time.Time
}

// NewTracker creates a tracker with the given limits.
func NewTracker(dailyCallLimit, perRunCallLimit int) *Tracker {
	t := &Tracker{
		dailyCallLimit:  dailyCallLimit,
		perRunCallLimit: perRunCallLimit,
		now:             time.Now,
	}
	t.dailyResetTime = nextMidnight(t.now())
	return t
}

type runKey struct{}

// runUsage is the per-run call count. It lives in the run's context, so it is
// released with the run. Guarded by the Tracker's mutex.
type runUsage struct {
	id    string
	calls int
}

// WithRun tags ctx with the run its LLM calls are charged to. Each call
// starts a fresh count.
func WithRun(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runKey{}, &runUsage{id: runID})
}

func runFromContext(ctx context.Context) *runUsage {
	u, _ := ctx.Value(runKey{}).(*runUsage)
	return u
}

// Reserve checks both limits and, when neither is reached, counts one call
// against the day and against the run tagged on ctx.
func (t *Tracker) Reserve(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.resetDailyIfNeeded()

	if t.dailyCallLimit > 0 && t.dailyCalls >= t.dailyCallLimit {
		return &LimitError{Scope: "daily", Limit: t.dailyCallLimit, Current: t.dailyCalls}
	}

	run := runFromContext(ctx)
	if run != nil && t.perRunCallLimit > 0 && run.calls >= t.perRunCallLimit {
		return &LimitError{Scope: "per-run", Limit: t.perRunCallLimit, Current: run.calls}
	}

	t.dailyCalls++
	if run != nil {
		run.calls++
		if t.perRunCallLimit > 0 && run.calls == t.perRunCallLimit {
			clog.FromContext(ctx).Infof("run %s reached its LLM call limit of %d", run.id, t.perRunCallLimit)
		}
	}
	if t.dailyCallLimit > 0 && t.dailyCalls == t.dailyCallLimit {
		clog.FromContext(ctx).Warnf("daily LLM call limit of %d reached, next reset at %s",
			t.dailyCallLimit, t.dailyResetTime.Format(time.DateTime))
	}
	return nil
}

// resetDailyIfNeeded resets daily counters if a new day has started
func (t *Tracker) resetDailyIfNeeded() {
	now := t.now()
	if now.Before(t.dailyResetTime) {
		return
	}
	t.dailyCalls = 0
	t.dailyResetTime = nextMidnight(now)
}

func nextMidnight(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
}

// Stats returns current usage.
func (t *Tracker) Stats() DailyStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.resetDailyIfNeeded()

	return DailyStats{
		DailyCalls:    t.dailyCalls,
		DailyLimit:    t.dailyCallLimit,
		PerRunLimit:   t.perRunCallLimit,
		NextResetTime: t.dailyResetTime,
	}
}

// DailyStats represents daily usage statistics
type DailyStats struct {
	DailyCalls    int       `json:"daily_calls"`
	DailyLimit    int       `json:"daily_limit"`
	PerRunLimit   int       `json:"per_run_limit"`
	NextResetTime time.Time `json:"next_reset_time"`
}

// LimitError represents a call limit violation
type LimitError struct {
	Scope   string
	Limit   int
	Current int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s LLM call limit reached (%d of %d)", e.Scope, e.Current, e.Limit)
}

func (e *LimitError) Is(target error) bool {
	return target == ErrLimitReached
}
