// Package session holds the console's single source of truth for "who is the
// current actor and what can they see". The Store owns the session lifecycle
// (bootstrap check, login, logout, forced clear on credential expiry); every
// other component reads immutable snapshots.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/opentrusty/console/internal/adapters/authroles"
	"github.com/opentrusty/console/internal/domain/auth"
	apperrors "github.com/opentrusty/console/internal/errors"
)

// API is the slice of the management API the store drives.
type API interface {
	Login(ctx context.Context, email, password string) (*auth.LoginResult, error)
	Me(ctx context.Context) (*auth.CurrentSession, error)
	Logout(ctx context.Context) error
}

// UnauthorizedNotifier is implemented by the API client adapter. The store
// registers exactly one callback at construction; any request receiving a
// credential-expiry response clears authentication state immediately,
// independent of which operation triggered it.
type UnauthorizedNotifier interface {
	OnUnauthorized(func())
}

// Options groups dependencies for a Store.
type Options struct {
	API      API
	Notifier UnauthorizedNotifier
	Logger   *slog.Logger
}

// Store is the authoritative session state. All mutation funnels through
// CheckSession, Login, Logout, and the registered unauthorized callback;
// there are no ad hoc field writes.
type Store struct {
	api    API
	logger *slog.Logger

	mu            sync.Mutex
	authenticated bool
	user          *auth.User
	assignments   []auth.RoleAssignment
	tenantID      string
	tenantName    string
	loading       int
	checkedAt     time.Time

	// epoch is bumped by every clearing mutation (logout, unauthorized).
	// A session check that began before such a mutation must not commit its
	// response; the stale identity would resurrect a terminated session.
	epoch uint64
}

// New constructs a Store and registers its unauthorized callback with the
// client adapter.
func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{api: opts.API, logger: logger}
	if opts.Notifier != nil {
		opts.Notifier.OnUnauthorized(s.handleUnauthorized)
	}
	return s
}

// Snapshot is an immutable view of session state. Role flags are derived
// from the assignment list on every call, never cached.
type Snapshot struct {
	Authenticated   bool
	Loading         bool
	User            *auth.User
	RoleAssignments []auth.RoleAssignment
	TenantID        string
	TenantName      string
}

// IsPlatformAdmin reports whether the snapshot holds platform_admin at
// platform scope.
func (s Snapshot) IsPlatformAdmin() bool {
	return auth.IsPlatformAdmin(s.RoleAssignments)
}

// IsTenantAdmin reports whether the snapshot holds tenant_admin or
// tenant_owner at tenant scope.
func (s Snapshot) IsTenantAdmin() bool {
	return auth.IsTenantAdmin(s.RoleAssignments)
}

// Snapshot returns a copy of the current session state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Authenticated: s.authenticated,
		Loading:       s.loading > 0,
		TenantID:      s.tenantID,
		TenantName:    s.tenantName,
	}
	if s.user != nil {
		u := *s.user
		if s.user.Profile != nil {
			p := *s.user.Profile
			u.Profile = &p
		}
		snap.User = &u
	}
	if len(s.assignments) > 0 {
		snap.RoleAssignments = make([]auth.RoleAssignment, len(s.assignments))
		copy(snap.RoleAssignments, s.assignments)
	}
	return snap
}

// CheckedAt returns when the last session check committed. Zero when no
// check has succeeded since construction or the last clear.
func (s *Store) CheckedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkedAt
}

// CheckSession asks the management API who is currently authenticated and
// commits the answer. Unauthorized responses are handled by the registered
// callback; any other failure fails closed to unauthenticated. Callers never
// need to handle an error. Safe to invoke concurrently with itself; a check
// that straddles a logout or forced clear discards its response.
func (s *Store) CheckSession(ctx context.Context) {
	epoch := s.beginCheck()
	defer s.endCheck()

	current, err := s.api.Me(ctx)
	if err != nil {
		if apperrors.IsUnauthorized(err) {
			// Already cleared by the unauthorized callback.
			return
		}
		s.logger.Warn("session check failed", "error", err)
		s.failClosed(epoch)
		return
	}

	s.commit(epoch, current)
}

// Login submits credentials and, on success, runs a session check to
// repopulate full identity and role state (the login response itself carries
// minimal data). On failure the error propagates without any state change so
// the caller can display it and allow retry.
func (s *Store) Login(ctx context.Context, email, password string) error {
	if _, err := s.api.Login(ctx, email, password); err != nil {
		return err
	}
	s.CheckSession(ctx)
	return nil
}

// Logout best-effort terminates the upstream session and unconditionally
// clears all session fields. Stale identity data must never survive a
// logout, so the network error is logged, not returned.
func (s *Store) Logout(ctx context.Context) {
	if err := s.api.Logout(ctx); err != nil {
		s.logger.Warn("upstream logout failed", "error", err)
	}
	s.clearAll()
}

func (s *Store) handleUnauthorized() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.authenticated = false
	s.user = nil
	s.assignments = nil
	s.checkedAt = time.Time{}
}

func (s *Store) beginCheck() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading++
	return s.epoch
}

func (s *Store) endCheck() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading--
}

func (s *Store) commit(epoch uint64, current *auth.CurrentSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		s.logger.Debug("discarding stale session check response")
		return
	}

	s.authenticated = true
	u := current.User
	s.user = &u
	s.assignments = authroles.PassthroughMapper{}.Map(current.RoleAssignments)
	if current.CurrentTenant != nil {
		s.tenantID = current.CurrentTenant.TenantID
		s.tenantName = current.CurrentTenant.TenantName
	} else {
		s.tenantID = ""
		s.tenantName = ""
	}
	s.checkedAt = time.Now()
}

func (s *Store) failClosed(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return
	}
	s.authenticated = false
	s.user = nil
	s.assignments = nil
	s.checkedAt = time.Time{}
}

func (s *Store) clearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.authenticated = false
	s.user = nil
	s.assignments = nil
	s.tenantID = ""
	s.tenantName = ""
	s.checkedAt = time.Time{}
}
