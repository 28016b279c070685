package game

import (
	"errors"
	"testing"
	"time"
)

func TestNewManager(t *testing.T) {
	m := NewManager(ManagerConfig{})
	if m.sessions == nil {
		t.Fatal("sessions map should be initialized")
	}
	if code, s := m.Active(); code != "" || s != nil {
		t.Fatal("active session should be empty initially")
	}
}

func TestCreateSession(t *testing.T) {
	m := NewManager(ManagerConfig{Session: DefaultSessionConfig()})

	code, token, s := m.Create()
	if code == "" {
		t.Fatal("session code should not be empty")
	}
	if len(code) != 5 {
		t.Fatalf("expected a 5 character code, got %q", code)
	}
	if token == "" {
		t.Fatal("player token should not be empty")
	}

	got, err := m.Get(code)
	if err != nil {
		t.Fatalf("should be able to retrieve created session: %v", err)
	}
	if got != s {
		t.Fatal("Get should return the created session")
	}
	if got.Snapshot().Phase != PhaseIntro {
		t.Fatalf("expected phase %s, got %s", PhaseIntro, got.Snapshot().Phase)
	}
	if active, _ := m.Active(); active != code {
		t.Fatalf("expected active %s, got %s", code, active)
	}
}

func TestGetUnknownSession(t *testing.T) {
	m := NewManager(ManagerConfig{})
	if _, err := m.Get("NOPE1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestAuthorize(t *testing.T) {
	m := NewManager(ManagerConfig{})
	code, token, _ := m.Create()

	if _, err := m.Authorize(code, "invalid-token"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized with invalid token, got %v", err)
	}
	if _, err := m.Authorize(code, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized with empty token, got %v", err)
	}
	if _, err := m.Authorize("NOPE1", token); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := m.Authorize(code, token); err != nil {
		t.Fatalf("should authorize with valid token: %v", err)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	m := NewManager(ManagerConfig{}, WithScheduler(&manualScheduler{}))
	_, _, a := m.Create()
	_, _, b := m.Create()
	if m.Len() != 2 {
		t.Fatalf("expected 2 sessions, got %d", m.Len())
	}

	a.Start()
	if b.Snapshot().Phase != PhaseIntro {
		t.Fatal("starting one session must not affect another")
	}
}

func TestSingleSessionReplacesOld(t *testing.T) {
	m := NewManager(ManagerConfig{SingleSession: true})
	oldCode, _, old := m.Create()
	newCode, _, _ := m.Create()

	if m.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", m.Len())
	}
	if _, err := m.Get(oldCode); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("old session should be gone, got %v", err)
	}
	if _, err := old.Start(); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("old session should be closed, got %v", err)
	}
	if active, _ := m.Active(); active != newCode {
		t.Fatalf("expected active %s, got %s", newCode, active)
	}
}

func TestOnCreateHooks(t *testing.T) {
	m := NewManager(ManagerConfig{}, WithScheduler(&manualScheduler{}))
	var seen []Event
	m.OnCreate(func(s *Session) {
		s.Subscribe(func(snap Snapshot) { seen = append(seen, snap.Event) })
	})
	_, _, s := m.Create()
	s.Start()
	if len(seen) != 1 || seen[0] != EventStarted {
		t.Fatalf("hook subscriber should see start, got %v", seen)
	}
}

func TestSeededManagerIsDeterministic(t *testing.T) {
	a := NewManager(ManagerConfig{Seed: 99})
	b := NewManager(ManagerConfig{Seed: 99})
	codeA, _, _ := a.Create()
	codeB, _, _ := b.Create()
	if codeA != codeB {
		t.Fatalf("same seed should give same codes, got %s and %s", codeA, codeB)
	}
}

func TestRemoveSession(t *testing.T) {
	m := NewManager(ManagerConfig{})
	code, _, _ := m.Create()
	if err := m.Remove(code); err != nil {
		t.Fatalf("should be able to remove: %v", err)
	}
	if err := m.Remove(code); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on second remove, got %v", err)
	}
	if active, _ := m.Active(); active != "" {
		t.Fatalf("active should be cleared, got %s", active)
	}
}

func TestSweepRemovesIdleSessions(t *testing.T) {
	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	now := base
	m := NewManager(ManagerConfig{}, WithClock(func() time.Time { return now }), WithScheduler(&manualScheduler{}))

	_, _, idle := m.Create()
	now = base.Add(20 * time.Minute)
	_, _, busy := m.Create()
	busy.Start()

	removed := m.Sweep(base.Add(40*time.Minute), 30*time.Minute)
	if removed != 1 {
		t.Fatalf("expected 1 idle session removed, got %d", removed)
	}
	if _, err := m.Get(idle.Code); !errors.Is(err, ErrSessionNotFound) {
		t.Fatal("idle session should be removed")
	}
	if _, err := m.Get(busy.Code); err != nil {
		t.Fatalf("busy session should remain: %v", err)
	}
}

func TestOnRemoveHooks(t *testing.T) {
	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	m := NewManager(ManagerConfig{SingleSession: true}, WithClock(func() time.Time { return base }))
	var gone []string
	m.OnRemove(func(s *Session) {
		if _, err := s.Start(); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("session should be closed before the hook runs, got %v", err)
		}
		gone = append(gone, s.Code)
	})

	first, _, _ := m.Create()
	second, _, _ := m.Create()
	if len(gone) != 1 || gone[0] != first {
		t.Fatalf("eviction should fire the hook for %s, got %v", first, gone)
	}

	if err := m.Remove(second); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(gone) != 2 || gone[1] != second {
		t.Fatalf("remove should fire the hook for %s, got %v", second, gone)
	}
	m.Remove(second)
	if len(gone) != 2 {
		t.Fatalf("removing a missing session must not fire the hook, got %v", gone)
	}

	third, _, _ := m.Create()
	if n := m.Sweep(base.Add(time.Hour), time.Minute); n != 1 {
		t.Fatalf("expected one swept session, got %d", n)
	}
	if len(gone) != 3 || gone[2] != third {
		t.Fatalf("sweep should fire the hook for %s, got %v", third, gone)
	}
	if m.Sweep(base.Add(2*time.Hour), time.Minute) != 0 || len(gone) != 3 {
		t.Fatalf("empty sweep must not fire the hook, got %v", gone)
	}
}
