package session

import (
	"testing"
	"time"
)

func TestCreateAndGet(t *testing.T) {
	m := NewManager()
	s := m.Create("owner-1", "Alice", "alice@example.com", "127.0.0.1", time.Hour)
	if s.ID == "" {
		t.Fatal("session id must not be empty")
	}

	got, ok := m.Get(s.ID)
	if !ok {
		t.Fatal("session should be retrievable by id")
	}
	if got.OwnerID != "owner-1" || got.Email != "alice@example.com" {
		t.Errorf("got %+v", got)
	}
}

func TestReLoginRefreshesExistingSession(t *testing.T) {
	m := NewManager()
	first := m.Create("owner-1", "Alice", "alice@example.com", "127.0.0.1", time.Hour)
	second := m.Create("owner-1", "Alice", "alice@example.com", "10.0.0.5", time.Hour)

	if first.ID != second.ID {
		t.Error("re-login should reuse the existing session id")
	}
	if second.ClientIP != "10.0.0.5" {
		t.Errorf("re-login should refresh client IP, got %s", second.ClientIP)
	}
	if m.Count() != 1 {
		t.Errorf("expected 1 session, got %d", m.Count())
	}
}

func TestGetExpiredSession(t *testing.T) {
	m := NewManager()
	s := m.Create("owner-1", "Alice", "alice@example.com", "127.0.0.1", -time.Minute)

	if _, ok := m.Get(s.ID); ok {
		t.Error("expired session must not resolve")
	}
	if m.Count() != 0 {
		t.Error("expired session should be removed on Get")
	}
}

func TestDelete(t *testing.T) {
	m := NewManager()
	s := m.Create("owner-1", "Alice", "alice@example.com", "127.0.0.1", time.Hour)

	if !m.Delete(s.ID) {
		t.Fatal("delete of existing session should succeed")
	}
	if m.Delete(s.ID) {
		t.Error("second delete should report not found")
	}
	if _, ok := m.Get(s.ID); ok {
		t.Error("deleted session must not resolve")
	}
}

func TestCleanupExpired(t *testing.T) {
	m := NewManager()
	m.Create("owner-1", "Alice", "alice@example.com", "127.0.0.1", -time.Minute)
	live := m.Create("owner-2", "Bob", "bob@example.com", "127.0.0.1", time.Hour)

	m.CleanupExpired()

	if m.Count() != 1 {
		t.Fatalf("expected 1 live session, got %d", m.Count())
	}
	if _, ok := m.Get(live.ID); !ok {
		t.Error("live session should survive cleanup")
	}
}
