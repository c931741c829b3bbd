package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/rryowa/session_keeper/internal/models"
	"github.com/rryowa/session_keeper/internal/scheduler"
	"github.com/rryowa/session_keeper/internal/util"
)

var (
	// ErrSessionExpiredDuringRefresh wraps any refresh failure. The session is
	// already torn down when it is returned.
	ErrSessionExpiredDuringRefresh = errors.New("session expired during refresh")
	ErrNotAuthenticated            = errors.New("not authenticated")
	// ErrSuperseded means the session changed while the request was in flight and
	// its result was thrown away.
	ErrSuperseded         = errors.New("session changed before the response arrived")
	ErrNotRunning         = errors.New("session service is not running")
	ErrAlreadyInitialized = errors.New("session service already initialized")
)

const refreshFlightKey = "refresh"

type lifecycle int

const (
	stateCreated lifecycle = iota
	stateRunning
	stateDisposed
)

// SessionService owns the client session: whether the user is signed in, when the
// access credential expires and the single timer that renews it.
type SessionService struct {
	auth   AuthService
	sched  *scheduler.Scheduler
	cfg    *util.RefreshConfig
	log    *zap.SugaredLogger
	flight singleflight.Group

	mu               sync.RWMutex
	state            lifecycle
	baseCtx          context.Context
	cancel           context.CancelFunc
	isAuthenticated  bool
	expiresAt        *time.Time
	refreshExpiresAt *time.Time
	refreshing       int
	// gen changes on every login and teardown; refresh results from an older gen are dropped.
	gen uint64
	// teardowns counts logouts; login results that straddle one are dropped.
	teardowns uint64
}

func NewSessionService(auth AuthService, clock scheduler.Clock, cfg *util.RefreshConfig, log *zap.SugaredLogger) *SessionService {
	s := &SessionService{
		auth: auth,
		cfg:  cfg,
		log:  log,
	}
	policy := scheduler.Policy{Lead: cfg.Lead, MinDelay: cfg.MinDelay}
	s.sched = scheduler.New(clock, policy, log, s.refreshDue)
	return s
}

// Init starts the service with an unauthenticated session. ctx bounds every
// refresh the timer triggers.
func (s *SessionService) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateCreated {
		return ErrAlreadyInitialized
	}
	s.baseCtx, s.cancel = context.WithCancel(ctx)
	s.isAuthenticated = false
	s.expiresAt = nil
	s.refreshExpiresAt = nil
	s.state = stateRunning

	s.log.Info("Session service started")
	return nil
}

// Dispose tears the session down and aborts timer-driven refreshes in flight.
// It is safe to call more than once.
func (s *SessionService) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateDisposed {
		return
	}
	s.teardownLocked()
	if s.cancel != nil {
		s.cancel()
	}
	s.state = stateDisposed
	s.log.Info("Session service disposed")
}

func (s *SessionService) Login(ctx context.Context, req models.LoginRequest) error {
	return s.authenticate(ctx, "login", func(ctx context.Context) (*models.LoginResponse, error) {
		return s.auth.Login(ctx, req)
	})
}

func (s *SessionService) Register(ctx context.Context, req models.RegisterRequest) error {
	return s.authenticate(ctx, "register", func(ctx context.Context) (*models.LoginResponse, error) {
		return s.auth.Register(ctx, req)
	})
}

// Refresh renews the session in place. Concurrent callers share one request.
// Any failure ends the session.
func (s *SessionService) Refresh(ctx context.Context) error {
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	// Callers only share a request made for the same session.
	key := fmt.Sprintf("%s-%d", refreshFlightKey, gen)
	ch := s.flight.DoChan(key, func() (interface{}, error) {
		return nil, s.doRefresh(gen)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogoutLocal forgets the session and cancels the pending refresh. Requests
// already on the wire are not cancelled; their results are discarded.
func (s *SessionService) LogoutLocal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
}

// Logout closes the session locally, then asks the auth service to revoke it.
// The local session is gone whatever the remote call returns.
func (s *SessionService) Logout(ctx context.Context) error {
	s.mu.Lock()
	if s.state != stateRunning {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.teardownLocked()
	s.mu.Unlock()

	if err := s.auth.Logout(ctx); err != nil {
		s.log.Warnw("remote logout failed", "error", err)
		return fmt.Errorf("remote logout: %w", err)
	}
	return nil
}

func (s *SessionService) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isAuthenticated
}

func (s *SessionService) Snapshot() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := models.Session{
		IsAuthenticated:  s.isAuthenticated,
		ExpiresAt:        copyTime(s.expiresAt),
		RefreshExpiresAt: copyTime(s.refreshExpiresAt),
		RefreshInFlight:  s.refreshing > 0,
	}
	if next, ok := s.sched.NextRunAt(); ok {
		out.NextRefreshAt = &next
	}
	return out
}

func (s *SessionService) authenticate(
	ctx context.Context,
	op string,
	call func(context.Context) (*models.LoginResponse, error),
) error {
	s.mu.RLock()
	if s.state != stateRunning {
		s.mu.RUnlock()
		return ErrNotRunning
	}
	teardowns := s.teardowns
	s.mu.RUnlock()

	resp, err := call(ctx)
	if err != nil {
		s.log.Infow("authentication failed", "op", op, "error", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateRunning {
		return ErrNotRunning
	}
	if s.teardowns != teardowns {
		s.log.Infow("discarding authentication that finished after logout", "op", op)
		return ErrSuperseded
	}

	s.isAuthenticated = true
	s.expiresAt = accessExpiry(resp)
	s.refreshExpiresAt = refreshExpiry(resp)
	s.gen++
	s.scheduleLocked()

	if s.expiresAt == nil {
		s.log.Warnw("auth response has no access expiry, session will not be renewed", "op", op)
	} else {
		s.log.Infow("session established", "op", op, "expires_at", *s.expiresAt)
	}
	return nil
}

func (s *SessionService) doRefresh(gen uint64) error {
	s.mu.Lock()
	if s.state != stateRunning {
		s.mu.Unlock()
		return ErrNotRunning
	}
	if !s.isAuthenticated {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	if s.gen != gen {
		s.mu.Unlock()
		return ErrSuperseded
	}
	ctx, cancel := s.refreshContextLocked()
	s.refreshing++
	s.mu.Unlock()
	defer cancel()

	resp, err := s.auth.Refresh(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshing--

	if s.gen != gen {
		s.log.Debugw("discarding refresh result for a replaced session", "error", err)
		if s.isAuthenticated && !s.sched.Pending() {
			s.scheduleLocked()
		}
		return ErrSuperseded
	}
	if err != nil {
		s.log.Warnw("refresh failed, closing session", "error", err)
		s.teardownLocked()
		return fmt.Errorf("%w: %w", ErrSessionExpiredDuringRefresh, err)
	}

	// A reply without a new expiry keeps the previous one.
	if exp := accessExpiry(resp); exp != nil {
		s.expiresAt = exp
	}
	if exp := refreshExpiry(resp); exp != nil {
		s.refreshExpiresAt = exp
	}
	s.scheduleLocked()

	s.log.Infow("session refreshed", "expires_at", s.expiresAt)
	return nil
}

// refreshDue runs when the refresh timer fires.
func (s *SessionService) refreshDue() {
	s.mu.RLock()
	active := s.state == stateRunning && s.isAuthenticated
	ctx := s.baseCtx
	s.mu.RUnlock()

	if !active {
		return
	}

	err := s.Refresh(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrSessionExpiredDuringRefresh):
		// already logged by doRefresh
	default:
		s.log.Debugw("scheduled refresh skipped", "error", err)
	}
}

func (s *SessionService) refreshContextLocked() (context.Context, context.CancelFunc) {
	if s.cfg.Timeout > 0 {
		return context.WithTimeout(s.baseCtx, s.cfg.Timeout)
	}
	return context.WithCancel(s.baseCtx)
}

func (s *SessionService) scheduleLocked() {
	if !s.isAuthenticated || s.expiresAt == nil {
		s.sched.Cancel()
		return
	}
	s.sched.Schedule(s.expiresAt)
}

func (s *SessionService) teardownLocked() {
	wasAuthenticated := s.isAuthenticated

	s.isAuthenticated = false
	s.expiresAt = nil
	s.refreshExpiresAt = nil
	s.sched.Cancel()
	s.gen++
	s.teardowns++

	if wasAuthenticated {
		s.log.Info("Session closed")
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
