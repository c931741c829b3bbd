// Package scheduler keeps a single refresh callback armed ahead of credential expiry.
package scheduler

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultLead     = 60 * time.Second
	DefaultMinDelay = 5 * time.Second
)

// Policy decides how far ahead of expiry a refresh fires.
type Policy struct {
	Lead     time.Duration
	MinDelay time.Duration
}

func DefaultPolicy() Policy {
	return Policy{Lead: DefaultLead, MinDelay: DefaultMinDelay}
}

// Delay returns max(MinDelay, expiresAt-now-Lead). The floor keeps an already
// expired credential from spinning in a tight refresh loop.
func (p Policy) Delay(expiresAt, now time.Time) time.Duration {
	d := expiresAt.Sub(now) - p.Lead
	if d < p.MinDelay {
		return p.MinDelay
	}
	return d
}

// Clock is the time source timers are created from.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

func RealClock() Clock { return realClock{} }

// Task is a single-shot callback that can be cancelled or moved. At most one
// timer backs a Task at any time.
type Task struct {
	clock Clock
	fn    func()

	mu    sync.Mutex
	timer Timer
	seq   uint64
	dueAt time.Time
}

func NewTask(clock Clock, fn func()) *Task {
	return &Task{clock: clock, fn: fn}
}

// Reschedule cancels any pending run and arms a new one delay from now.
func (t *Task) Reschedule(delay time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.seq++
	seq := t.seq
	t.dueAt = t.clock.Now().Add(delay)
	t.timer = t.clock.AfterFunc(delay, func() { t.fire(seq) })
}

// Cancel drops the pending run. It reports whether one was pending.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	pending := t.timer != nil
	t.stopLocked()
	t.seq++
	return pending
}

func (t *Task) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}

func (t *Task) DueAt() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer == nil {
		return time.Time{}, false
	}
	return t.dueAt, true
}

func (t *Task) stopLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.dueAt = time.Time{}
}

// fire runs fn unless the timer was cancelled or replaced after it went off.
func (t *Task) fire(seq uint64) {
	t.mu.Lock()
	if seq != t.seq {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	t.dueAt = time.Time{}
	t.mu.Unlock()

	t.fn()
}

// Scheduler arms the refresh task from a credential expiry.
type Scheduler struct {
	clock  Clock
	policy Policy
	task   *Task
	log    *zap.SugaredLogger
}

func New(clock Clock, policy Policy, log *zap.SugaredLogger, onDue func()) *Scheduler {
	return &Scheduler{
		clock:  clock,
		policy: policy,
		task:   NewTask(clock, onDue),
		log:    log,
	}
}

// Schedule replaces the pending refresh with one derived from expiresAt.
// A nil expiresAt leaves nothing scheduled.
func (s *Scheduler) Schedule(expiresAt *time.Time) (time.Duration, bool) {
	if expiresAt == nil {
		s.task.Cancel()
		return 0, false
	}

	delay := s.policy.Delay(*expiresAt, s.clock.Now())
	s.task.Reschedule(delay)
	s.log.Debugw("refresh scheduled", "expires_at", expiresAt.UTC(), "delay", delay)
	return delay, true
}

func (s *Scheduler) Cancel() bool {
	cancelled := s.task.Cancel()
	if cancelled {
		s.log.Debug("pending refresh cancelled")
	}
	return cancelled
}

func (s *Scheduler) Pending() bool {
	return s.task.Pending()
}

func (s *Scheduler) NextRunAt() (time.Time, bool) {
	return s.task.DueAt()
}

func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}
