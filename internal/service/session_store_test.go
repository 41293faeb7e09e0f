package service

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/stockroom-hq/stockroom-go/internal/adapter/outbound/state"
	"github.com/stockroom-hq/stockroom-go/internal/domain/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testSession() *session.Session {
	return &session.Session{
		UserID:      "u-1",
		DisplayName: "Dana",
		Permissions: []session.Grant{
			{Module: "Users", Action: "Read"},
		},
		AccessToken:     "access-token",
		AccessExpiresAt: time.Now().Add(15 * time.Minute),
		RefreshToken:    "refresh-token",
	}
}

// memPersistence is an in-memory session.Persistence for tests.
type memPersistence struct {
	mu   sync.Mutex
	sess *session.Session

	saveErr  error
	clearErr error
}

func (m *memPersistence) Load() (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return nil, session.ErrNoSession
	}
	return m.sess.Clone(), nil
}

func (m *memPersistence) Save(s *session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.sess = s.Clone()
	return nil
}

func (m *memPersistence) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clearErr != nil {
		return m.clearErr
	}
	m.sess = nil
	return nil
}

func (m *memPersistence) stored() *session.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess.Clone()
}

func TestSetThenCurrent(t *testing.T) {
	store := NewSessionStore(&memPersistence{}, nil)

	store.Set(testSession())

	got := store.Current()
	if got == nil {
		t.Fatal("expected a session after Set")
	}
	if got.UserID != "u-1" {
		t.Errorf("unexpected user: %s", got.UserID)
	}
}

func TestCurrentReturnsSnapshot(t *testing.T) {
	store := NewSessionStore(&memPersistence{}, nil)
	store.Set(testSession())

	first := store.Current()
	first.Permissions[0].Action = "Delete"
	first.AccessToken = "mutated"

	second := store.Current()
	if second.Permissions[0].Action != "Read" || second.AccessToken != "access-token" {
		t.Error("mutating a snapshot should not affect the store")
	}
}

func TestClearRemovesEverything(t *testing.T) {
	p := &memPersistence{}
	store := NewSessionStore(p, nil)
	store.Set(testSession())

	store.Clear()

	if store.Current() != nil {
		t.Error("Current should be nil after Clear")
	}
	if p.stored() != nil {
		t.Error("persisted storage should hold no residual credential after Clear")
	}
}

func TestHydration(t *testing.T) {
	p := &memPersistence{sess: testSession()}
	store := NewSessionStore(p, nil)

	got := store.Current()
	if got == nil || got.UserID != "u-1" {
		t.Fatalf("expected hydrated session, got %+v", got)
	}
}

func TestHydrationKeepsExpiredAccessCredential(t *testing.T) {
	sess := testSession()
	sess.AccessExpiresAt = time.Now().Add(-time.Hour)
	store := NewSessionStore(&memPersistence{sess: sess}, nil)

	got := store.Current()
	if got == nil {
		t.Fatal("expired access credential should still hydrate")
	}
	if !got.AccessExpired(0) {
		t.Error("hydrated credential should read as expired")
	}
	if !got.CanRefresh() {
		t.Error("refresh should still be possible")
	}
}

func TestHydrationNoSession(t *testing.T) {
	store := NewSessionStore(&memPersistence{}, nil)
	if store.Current() != nil {
		t.Error("empty persistence should hydrate as unauthenticated")
	}
}

func TestHydrationFromCorruptFile(t *testing.T) {
	// Real file backend with garbage on disk: hydrate as unauthenticated.
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")
	fs := state.NewFileStore(path, nil)

	store := NewSessionStore(fs, nil)
	if store.Current() != nil {
		t.Error("missing file should hydrate as unauthenticated")
	}

	store.Set(testSession())
	reloaded := NewSessionStore(state.NewFileStore(path, nil), nil)
	if reloaded.Current() == nil {
		t.Error("session should survive a restart via the file backend")
	}
}

func TestListenersNotifiedSynchronously(t *testing.T) {
	store := NewSessionStore(&memPersistence{}, nil)

	var got []*session.Session
	unsubscribe := store.Subscribe(func(s *session.Session) {
		got = append(got, s)
	})
	defer unsubscribe()

	store.Set(testSession())
	if len(got) != 1 || got[0] == nil {
		t.Fatalf("listener should have observed the set before Set returned, got %v", got)
	}

	store.Clear()
	if len(got) != 2 || got[1] != nil {
		t.Fatalf("listener should have observed nil on Clear, got %v", got)
	}
}

func TestAllListenersNotified(t *testing.T) {
	store := NewSessionStore(&memPersistence{}, nil)

	var count int
	for i := 0; i < 3; i++ {
		defer store.Subscribe(func(*session.Session) { count++ })()
	}

	store.Set(testSession())
	if count != 3 {
		t.Errorf("expected all 3 listeners notified, got %d", count)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	store := NewSessionStore(&memPersistence{}, nil)

	var count int
	unsubscribe := store.Subscribe(func(*session.Session) { count++ })

	store.Set(testSession())
	unsubscribe()
	unsubscribe() // second call is a no-op
	store.Clear()

	if count != 1 {
		t.Errorf("expected exactly 1 notification, got %d", count)
	}
}

func TestListenerGetsOwnSnapshot(t *testing.T) {
	store := NewSessionStore(&memPersistence{}, nil)

	var seen *session.Session
	defer store.Subscribe(func(s *session.Session) { seen = s })()

	store.Set(testSession())
	seen.AccessToken = "mutated"

	if store.Current().AccessToken != "access-token" {
		t.Error("listener snapshot should not alias the store's copy")
	}
}

func TestSetNilClears(t *testing.T) {
	p := &memPersistence{}
	store := NewSessionStore(p, nil)
	store.Set(testSession())

	store.Set(nil)
	if store.Current() != nil || p.stored() != nil {
		t.Error("Set(nil) should behave like Clear")
	}
}

func TestPersistFailureKeepsInMemorySession(t *testing.T) {
	p := &memPersistence{saveErr: errors.New("disk full")}
	store := NewSessionStore(p, nil)

	store.Set(testSession())

	if store.Current() == nil {
		t.Error("in-memory session should stand even when persistence fails")
	}
}

func TestConcurrentSetAndRead(t *testing.T) {
	store := NewSessionStore(&memPersistence{}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			store.Set(testSession())
		}()
		go func() {
			defer wg.Done()
			_ = store.Current()
		}()
	}
	wg.Wait()

	if store.Current() == nil {
		t.Error("expected a session after concurrent sets")
	}
}
