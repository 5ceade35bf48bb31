package bot

import (
	"sync"
	"time"

	"tabelbot/internal/storage"
)

// SessionState is where a user currently is in a multi-step input flow.
// Every flow starts and ends at StateIdle; an expired session falls back
// to idle and the user is re-prompted.
type SessionState int

const (
	StateIdle SessionState = iota
	StateAwaitName
	StateAwaitLocation
	StateAwaitComment
	StateAwaitSearch
	StateAwaitRename
)

const sessionTTL = 10 * time.Minute

type session struct {
	state    SessionState
	action   storage.Action // pending action for StateAwaitLocation/StateAwaitComment
	location string         // chosen location for StateAwaitComment
	target   int64          // target user for StateAwaitRename
	touched  time.Time
}

// Sessions is the per-user conversational state, an in-memory map keyed
// by user id. Entries expire after sessionTTL; a janitor sweep runs from
// the router loop.
type Sessions struct {
	mu  sync.Mutex
	m   map[int64]*session
	ttl time.Duration
	now func() time.Time // test hook
}

func NewSessions() *Sessions {
	return &Sessions{m: map[int64]*session{}, ttl: sessionTTL, now: time.Now}
}

// State returns the user's current state, expiring stale sessions.
func (s *Sessions) State(userID int64) SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[userID]
	if !ok {
		return StateIdle
	}
	if s.now().Sub(sess.touched) > s.ttl {
		delete(s.m, userID)
		return StateIdle
	}
	return sess.state
}

func (s *Sessions) get(userID int64) (session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[userID]
	if !ok || s.now().Sub(sess.touched) > s.ttl {
		delete(s.m, userID)
		return session{}, false
	}
	return *sess, true
}

func (s *Sessions) set(userID int64, sess session) {
	sess.touched = s.now()
	s.mu.Lock()
	s.m[userID] = &sess
	s.mu.Unlock()
}

// AwaitName puts the user into the registration name prompt.
func (s *Sessions) AwaitName(userID int64) {
	s.set(userID, session{state: StateAwaitName})
}

// AwaitLocation parks a pending departure until the user types a location.
func (s *Sessions) AwaitLocation(userID int64, action storage.Action) {
	s.set(userID, session{state: StateAwaitLocation, action: action})
}

// AwaitComment parks a located departure until the user adds a comment
// or skips it.
func (s *Sessions) AwaitComment(userID int64, action storage.Action, location string) {
	s.set(userID, session{state: StateAwaitComment, action: action, location: location})
}

// AwaitSearch awaits a personnel search query from an admin.
func (s *Sessions) AwaitSearch(userID int64) {
	s.set(userID, session{state: StateAwaitSearch})
}

// AwaitRename awaits a corrected full name for the target user.
func (s *Sessions) AwaitRename(userID, target int64) {
	s.set(userID, session{state: StateAwaitRename, target: target})
}

// PendingAction returns the action parked by AwaitLocation.
func (s *Sessions) PendingAction(userID int64) (storage.Action, bool) {
	sess, ok := s.get(userID)
	if !ok || sess.state != StateAwaitLocation {
		return "", false
	}
	return sess.action, true
}

// PendingSubmission returns the action and location parked by AwaitComment.
func (s *Sessions) PendingSubmission(userID int64) (storage.Action, string, bool) {
	sess, ok := s.get(userID)
	if !ok || sess.state != StateAwaitComment {
		return "", "", false
	}
	return sess.action, sess.location, true
}

// RenameTarget returns the user id parked by AwaitRename.
func (s *Sessions) RenameTarget(userID int64) (int64, bool) {
	sess, ok := s.get(userID)
	if !ok || sess.state != StateAwaitRename {
		return 0, false
	}
	return sess.target, true
}

// Clear resets the user to idle (flow completed or cancelled).
func (s *Sessions) Clear(userID int64) {
	s.mu.Lock()
	delete(s.m, userID)
	s.mu.Unlock()
}

// Sweep drops expired sessions. Called periodically by the router.
func (s *Sessions) Sweep() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.m {
		if now.Sub(sess.touched) > s.ttl {
			delete(s.m, id)
		}
	}
}
