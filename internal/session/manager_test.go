package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opentrusty/console/internal/api"
	"github.com/opentrusty/console/internal/domain/auth"
)

// memRecords is an in-memory RecordStore for tests.
type memRecords struct {
	mu sync.Mutex
	m  map[string]auth.ConsoleSession
}

func newMemRecords() *memRecords {
	return &memRecords{m: make(map[string]auth.ConsoleSession)}
}

func (r *memRecords) Save(_ context.Context, rec auth.ConsoleSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[rec.ID] = rec
	return nil
}

func (r *memRecords) Get(_ context.Context, id string) (auth.ConsoleSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.m[id]
	if !ok {
		return auth.ConsoleSession{}, ErrNotFound
	}
	return rec, nil
}

func (r *memRecords) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, id)
	return nil
}

// upstream simulates the management API's auth endpoints with a cookie
// credential.
type upstream struct {
	mu      sync.Mutex
	meCalls int
}

const upstreamCookie = "ot_session"

func (u *upstream) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: upstreamCookie, Value: "cred-1", Path: "/"})
		_ = json.NewEncoder(w).Encode(auth.LoginResult{UserID: "u1", Email: "root@platform.io"})
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.meCalls++
		u.mu.Unlock()
		if c, err := r.Cookie(upstreamCookie); err != nil || c.Value != "cred-1" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "no active session"})
			return
		}
		_ = json.NewEncoder(w).Encode(auth.CurrentSession{
			User: auth.User{ID: "u1", Email: "root@platform.io", EmailVerified: true},
			RoleAssignments: []auth.RoleAssignment{
				{RoleID: "r1", RoleName: auth.RolePlatformAdmin, Scope: auth.ScopePlatform},
			},
		})
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: upstreamCookie, Value: "", Path: "/", MaxAge: -1})
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func (u *upstream) meCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.meCalls
}

func newTestManager(t *testing.T, srv *httptest.Server, records RecordStore, opts ManagerOptions) *Manager {
	t.Helper()
	opts.Records = records
	opts.NewClient = func() (*api.Client, error) {
		return api.NewClient(api.Config{BaseURL: srv.URL})
	}
	return NewManager(opts)
}

func TestManager_CreateStaysDetachedUntilPersist(t *testing.T) {
	up := &upstream{}
	srv := httptest.NewServer(up.handler())
	defer srv.Close()
	records := newMemRecords()
	mgr := newTestManager(t, srv, records, ManagerOptions{})

	h, err := mgr.Create()
	require.NoError(t, err)

	assert.NotEmpty(t, h.ID)
	assert.False(t, h.Store.Snapshot().Authenticated)
	_, err = records.Get(context.Background(), h.ID)
	assert.ErrorIs(t, err, ErrNotFound, "a fresh handle must not write a record")
	_, err = mgr.Resolve(context.Background(), h.ID)
	assert.ErrorIs(t, err, ErrNotFound, "a fresh handle must not be resolvable")

	require.NoError(t, mgr.Persist(context.Background(), h))

	rec, err := records.Get(context.Background(), h.ID)
	require.NoError(t, err)
	assert.Equal(t, h.ID, rec.ID)
	assert.True(t, rec.ExpiresAt.After(time.Now()))
	resolved, err := mgr.Resolve(context.Background(), h.ID)
	require.NoError(t, err)
	assert.Same(t, h, resolved)
}

func TestManager_ResolveUnknownID(t *testing.T) {
	up := &upstream{}
	srv := httptest.NewServer(up.handler())
	defer srv.Close()
	mgr := newTestManager(t, srv, newMemRecords(), ManagerOptions{})

	_, err := mgr.Resolve(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = mgr.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_LoginPersistsCredential(t *testing.T) {
	up := &upstream{}
	srv := httptest.NewServer(up.handler())
	defer srv.Close()
	records := newMemRecords()
	mgr := newTestManager(t, srv, records, ManagerOptions{})

	h, err := mgr.Create()
	require.NoError(t, err)
	require.NoError(t, h.Store.Login(context.Background(), "root@platform.io", "secret"))
	require.NoError(t, mgr.Persist(context.Background(), h))

	assert.True(t, h.Store.Snapshot().Authenticated)
	rec, err := records.Get(context.Background(), h.ID)
	require.NoError(t, err)
	require.NotEmpty(t, rec.Cookies, "upstream credential cookie must be persisted")
	assert.Equal(t, upstreamCookie, rec.Cookies[0].Name)
}

func TestManager_RehydratesFromRecord(t *testing.T) {
	up := &upstream{}
	srv := httptest.NewServer(up.handler())
	defer srv.Close()
	records := newMemRecords()
	mgr := newTestManager(t, srv, records, ManagerOptions{})

	h, err := mgr.Create()
	require.NoError(t, err)
	require.NoError(t, h.Store.Login(context.Background(), "root@platform.io", "secret"))
	require.NoError(t, mgr.Persist(context.Background(), h))

	// A second manager simulates a process restart with no cached handle.
	restarted := newTestManager(t, srv, records, ManagerOptions{})
	h2, err := restarted.Resolve(context.Background(), h.ID)
	require.NoError(t, err)

	snap := h2.Store.Snapshot()
	assert.True(t, snap.Authenticated, "restored cookie must authenticate the rehydrated session")
	assert.True(t, snap.IsPlatformAdmin())
}

func TestManager_ResolveExpiredRecord(t *testing.T) {
	up := &upstream{}
	srv := httptest.NewServer(up.handler())
	defer srv.Close()
	records := newMemRecords()
	require.NoError(t, records.Save(context.Background(), auth.ConsoleSession{
		ID:        "stale",
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}))
	mgr := newTestManager(t, srv, records, ManagerOptions{})

	_, err := mgr.Resolve(context.Background(), "stale")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_ResolveSkipsFreshCheck(t *testing.T) {
	up := &upstream{}
	srv := httptest.NewServer(up.handler())
	defer srv.Close()
	mgr := newTestManager(t, srv, newMemRecords(), ManagerOptions{Refresh: time.Hour})

	h, err := mgr.Create()
	require.NoError(t, err)
	require.NoError(t, h.Store.Login(context.Background(), "root@platform.io", "secret"))
	require.NoError(t, mgr.Persist(context.Background(), h))
	before := up.meCount()

	_, err = mgr.Resolve(context.Background(), h.ID)
	require.NoError(t, err)

	assert.Equal(t, before, up.meCount(), "a fresh session must not trigger another check")
}

func TestManager_ResolveRefreshesStaleCheck(t *testing.T) {
	up := &upstream{}
	srv := httptest.NewServer(up.handler())
	defer srv.Close()
	mgr := newTestManager(t, srv, newMemRecords(), ManagerOptions{Refresh: time.Nanosecond})

	h, err := mgr.Create()
	require.NoError(t, err)
	require.NoError(t, h.Store.Login(context.Background(), "root@platform.io", "secret"))
	require.NoError(t, mgr.Persist(context.Background(), h))
	before := up.meCount()
	time.Sleep(2 * time.Millisecond)

	_, err = mgr.Resolve(context.Background(), h.ID)
	require.NoError(t, err)

	assert.Greater(t, up.meCount(), before)
}

func TestManager_DestroyRemovesEverything(t *testing.T) {
	up := &upstream{}
	srv := httptest.NewServer(up.handler())
	defer srv.Close()
	records := newMemRecords()
	mgr := newTestManager(t, srv, records, ManagerOptions{})

	h, err := mgr.Create()
	require.NoError(t, err)
	require.NoError(t, h.Store.Login(context.Background(), "root@platform.io", "secret"))
	require.NoError(t, mgr.Persist(context.Background(), h))

	mgr.Destroy(context.Background(), h)

	assert.False(t, h.Store.Snapshot().Authenticated)
	_, err = records.Get(context.Background(), h.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = mgr.Resolve(context.Background(), h.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
