package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opentrusty/console/internal/api"
	"github.com/opentrusty/console/internal/domain/auth"
)

// ErrNotFound is returned when a console session id resolves to nothing,
// either unknown or past its expiry.
var ErrNotFound = errors.New("console session not found")

// RecordStore persists console session records across process restarts.
type RecordStore interface {
	Save(ctx context.Context, rec auth.ConsoleSession) error
	Get(ctx context.Context, id string) (auth.ConsoleSession, error)
	Delete(ctx context.Context, id string) error
}

// Handle bundles the per-browser-session state: the dedicated API client
// holding the upstream credential and the session store built on it.
type Handle struct {
	ID     string
	Client *api.Client
	Store  *Store

	mu        sync.Mutex
	expiresAt time.Time
}

// ExpiresAt returns the handle's current expiry.
func (h *Handle) ExpiresAt() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.expiresAt
}

// ManagerOptions groups dependencies for a Manager.
type ManagerOptions struct {
	Records RecordStore
	// NewClient builds a fresh management API client for one console
	// session. Each call must return a client with its own cookie jar.
	NewClient func() (*api.Client, error)
	// TTL is the console session lifetime, extended on every Persist.
	TTL time.Duration
	// Refresh bounds how stale a session check may be before Resolve
	// re-runs it. Zero means the 30s default.
	Refresh time.Duration
	Logger  *slog.Logger
}

const (
	defaultTTL     = 12 * time.Hour
	defaultRefresh = 30 * time.Second
)

// Manager owns the mapping from console session ids to live handles. Handles
// are cached in-process because the client's cookie jar is in-memory state;
// the persisted record exists to rehydrate a handle after a restart or on
// another instance.
type Manager struct {
	records   RecordStore
	newClient func() (*api.Client, error)
	ttl       time.Duration
	refresh   time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	handles map[string]*Handle
}

// NewManager constructs a Manager.
func NewManager(opts ManagerOptions) *Manager {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	refresh := opts.Refresh
	if refresh <= 0 {
		refresh = defaultRefresh
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		records:   opts.Records,
		newClient: opts.NewClient,
		ttl:       ttl,
		refresh:   refresh,
		logger:    logger,
		handles:   make(map[string]*Handle),
	}
}

// Create mints a detached console session handle. The handle starts
// unauthenticated and is neither persisted nor resolvable until the first
// Persist, so an abandoned or failed login leaves no record behind.
func (m *Manager) Create() (*Handle, error) {
	id := uuid.NewString()
	return m.build(id, auth.ConsoleSession{
		ID:        id,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(m.ttl),
	})
}

// Resolve returns the live handle for a console session id, rehydrating it
// from the record store when the process has no cached handle. The handle's
// session state is re-checked when older than the refresh bound, so guards
// never decide on arbitrarily stale role data.
func (m *Manager) Resolve(ctx context.Context, id string) (*Handle, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	m.mu.Lock()
	h, ok := m.handles[id]
	m.mu.Unlock()

	if ok {
		if h.ExpiresAt().Before(time.Now()) {
			m.drop(id)
			return nil, ErrNotFound
		}
		m.freshen(ctx, h)
		return h, nil
	}

	rec, err := m.records.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load console session: %w", err)
	}
	if rec.Expired(time.Now()) {
		return nil, ErrNotFound
	}

	h, err = m.build(id, rec)
	if err != nil {
		return nil, err
	}
	h.Store.CheckSession(ctx)

	m.mu.Lock()
	// Another request may have rehydrated concurrently; keep the first.
	if existing, dup := m.handles[id]; dup {
		m.mu.Unlock()
		return existing, nil
	}
	m.handles[id] = h
	m.mu.Unlock()
	return h, nil
}

// Persist writes the handle's current credential state (cookies, bearer)
// to the record store, slides the expiry forward, and makes the handle
// resolvable by id. Call after any operation that may have changed the
// upstream credential.
func (m *Manager) Persist(ctx context.Context, h *Handle) error {
	h.mu.Lock()
	h.expiresAt = time.Now().Add(m.ttl)
	rec := auth.ConsoleSession{
		ID:        h.ID,
		Cookies:   h.Client.Cookies(),
		Bearer:    h.Client.Bearer(),
		CreatedAt: time.Now(),
		ExpiresAt: h.expiresAt,
	}
	h.mu.Unlock()

	if err := m.records.Save(ctx, rec); err != nil {
		return fmt.Errorf("persist console session: %w", err)
	}

	m.mu.Lock()
	m.handles[h.ID] = h
	m.mu.Unlock()
	return nil
}

// Destroy logs the session out upstream, deletes the persisted record, and
// drops the cached handle. The upstream logout is best effort; the local
// session is gone regardless.
func (m *Manager) Destroy(ctx context.Context, h *Handle) {
	h.Store.Logout(ctx)
	if err := m.records.Delete(ctx, h.ID); err != nil {
		m.logger.Warn("delete console session record", "error", err, "session_id", h.ID)
	}
	m.drop(h.ID)
}

func (m *Manager) build(id string, rec auth.ConsoleSession) (*Handle, error) {
	client, err := m.newClient()
	if err != nil {
		return nil, fmt.Errorf("build api client: %w", err)
	}
	if len(rec.Cookies) > 0 {
		client.RestoreCookies(rec.Cookies)
	}
	if rec.Bearer != "" {
		client.SetBearer(rec.Bearer)
	}

	store := New(Options{
		API:      api.NewAuthService(client),
		Notifier: client,
		Logger:   m.logger,
	})

	return &Handle{
		ID:        id,
		Client:    client,
		Store:     store,
		expiresAt: rec.ExpiresAt,
	}, nil
}

func (m *Manager) freshen(ctx context.Context, h *Handle) {
	checkedAt := h.Store.CheckedAt()
	if checkedAt.IsZero() || time.Since(checkedAt) > m.refresh {
		h.Store.CheckSession(ctx)
	}
}

func (m *Manager) drop(id string) {
	m.mu.Lock()
	delete(m.handles, id)
	m.mu.Unlock()
}
