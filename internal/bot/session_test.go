package bot

import (
	"testing"
	"time"

	"tabelbot/internal/storage"
)

func TestSessionFlows(t *testing.T) {
	s := NewSessions()

	if got := s.State(1); got != StateIdle {
		t.Fatalf("fresh user state = %v", got)
	}

	s.AwaitName(1)
	if got := s.State(1); got != StateAwaitName {
		t.Fatalf("state = %v, want StateAwaitName", got)
	}

	s.AwaitLocation(1, storage.ActionDeparted)
	action, ok := s.PendingAction(1)
	if !ok || action != storage.ActionDeparted {
		t.Fatalf("PendingAction = %v, %v", action, ok)
	}
	if _, ok := s.RenameTarget(1); ok {
		t.Fatal("RenameTarget answered in location state")
	}

	s.AwaitComment(1, storage.ActionDeparted, "Штаб")
	action, loc, ok := s.PendingSubmission(1)
	if !ok || action != storage.ActionDeparted || loc != "Штаб" {
		t.Fatalf("PendingSubmission = %v, %q, %v", action, loc, ok)
	}

	s.AwaitRename(1, 42)
	target, ok := s.RenameTarget(1)
	if !ok || target != 42 {
		t.Fatalf("RenameTarget = %d, %v", target, ok)
	}
	if _, ok := s.PendingAction(1); ok {
		t.Fatal("PendingAction answered in rename state")
	}

	s.Clear(1)
	if got := s.State(1); got != StateIdle {
		t.Fatalf("state after Clear = %v", got)
	}
}

func TestSessionExpiry(t *testing.T) {
	s := NewSessions()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.AwaitLocation(7, storage.ActionDeparted)

	now = now.Add(sessionTTL - time.Second)
	if _, ok := s.PendingAction(7); !ok {
		t.Fatal("session expired early")
	}

	now = now.Add(2 * time.Second)
	if _, ok := s.PendingAction(7); ok {
		t.Fatal("session survived past TTL")
	}
	if got := s.State(7); got != StateIdle {
		t.Fatalf("expired state = %v", got)
	}
}

func TestSessionSweep(t *testing.T) {
	s := NewSessions()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.AwaitName(1)
	now = now.Add(5 * time.Minute)
	s.AwaitSearch(2)

	now = now.Add(sessionTTL - 4*time.Minute)
	s.Sweep()

	s.mu.Lock()
	_, first := s.m[1]
	_, second := s.m[2]
	s.mu.Unlock()
	if first {
		t.Fatal("stale session survived sweep")
	}
	if !second {
		t.Fatal("live session dropped by sweep")
	}
}
