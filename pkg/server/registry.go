package server

import (
	"sync"

	"github.com/osuAkatsuki/bancho-core/pkg/privileges"
)

// Sessions is the server-wide session registry (§4.B). It is the single
// source of truth for "who is online"; every lookup by id, name, or token
// goes through here, and every other registry (channels, matches) refers
// to a session only by id, resolving through Sessions at the point of use
// rather than holding a *Session across a suspension point (§9).
//
// Adapted from the teacher's single mutex-protected players map
// (pkg/server/server.go), generalized into three parallel indexes since
// the bancho protocol looks sessions up by id, safe name, and token with
// comparable frequency.
type Sessions struct {
	mu      sync.RWMutex
	byID    map[int32]*Session
	byName  map[string]*Session // keyed by SafeName
	byToken map[string]*Session
}

// NewSessions constructs an empty session registry.
func NewSessions() *Sessions {
	return &Sessions{
		byID:    make(map[int32]*Session),
		byName:  make(map[string]*Session),
		byToken: make(map[string]*Session),
	}
}

// Add registers s under all three indexes. Replaces any prior session with
// the same id, name, or token (the caller is responsible for evicting a
// ghost first, per §4.G step 4).
func (s *Sessions) Add(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[sess.ID()] = sess
	s.byName[SafeName(sess.Name)] = sess
	s.byToken[sess.Token] = sess
}

// Remove unregisters sess from all three indexes. A no-op if sess has
// already been replaced by a newer session under the same id (so a
// stale logout can never evict a fresher login).
func (s *Sessions) Remove(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.byID[sess.ID()]; ok && cur == sess {
		delete(s.byID, sess.ID())
	}
	if cur, ok := s.byName[SafeName(sess.Name)]; ok && cur == sess {
		delete(s.byName, SafeName(sess.Name))
	}
	if cur, ok := s.byToken[sess.Token]; ok && cur == sess {
		delete(s.byToken, sess.Token)
	}
}

// ByID looks up a session by player id.
func (s *Sessions) ByID(id int32) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.byID[id]
	return sess, ok
}

// ByName looks up a session by username, case- and space-insensitively
// (§4.B).
func (s *Sessions) ByName(name string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.byName[SafeName(name)]
	return sess, ok
}

// ByToken looks up a session by its bancho session token, as sent in the
// osu-token request header (§4.G, §4.H).
func (s *Sessions) ByToken(token string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.byToken[token]
	return sess, ok
}

// All returns a snapshot of every logged-in session.
func (s *Sessions) All() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Session, 0, len(s.byID))
	for _, sess := range s.byID {
		out = append(out, sess)
	}
	return out
}

// Unrestricted returns a snapshot of every logged-in session that is not
// restricted, used for the ordinary user_presence/user_stats fan-out
// (§4.D).
func (s *Sessions) Unrestricted() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Session, 0, len(s.byID))
	for _, sess := range s.byID {
		if !sess.Restricted() {
			out = append(out, sess)
		}
	}
	return out
}

// Staff returns a snapshot of every logged-in session holding at least one
// staff privilege bit, used to route moderation-only broadcasts.
func (s *Sessions) Staff() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Session, 0)
	for _, sess := range s.byID {
		if sess.Priv.Has(privileges.Moderator) || sess.Priv.Has(privileges.Administrator) || sess.Priv.Has(privileges.Developer) {
			out = append(out, sess)
		}
	}
	return out
}

// Count returns the number of logged-in sessions.
func (s *Sessions) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Broadcast enqueues data onto every session for which include returns
// true. include may be nil, in which case every session receives data.
// Mirrors the teacher's broadcast-to-all-players loop
// (pkg/server/broadcast.go), generalized with a predicate since bancho
// fan-out almost always needs to filter (skip self, restricted-only,
// friends-only presence, etc.) rather than reach literally everyone.
func (s *Sessions) Broadcast(data []byte, include func(*Session) bool) {
	if len(data) == 0 {
		return
	}
	s.mu.RLock()
	targets := make([]*Session, 0, len(s.byID))
	for _, sess := range s.byID {
		if include == nil || include(sess) {
			targets = append(targets, sess)
		}
	}
	s.mu.RUnlock()

	for _, sess := range targets {
		sess.Enqueue(data)
	}
}
