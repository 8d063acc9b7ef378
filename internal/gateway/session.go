// Package gateway implements the client-facing multiplexer: WebSocket
// handshake, session/turn bookkeeping, per-client rate limiting, and
// forwarding of chat.send/tool.approve/turn.resume to the Agent daemon
// over the internal protocol. Session/Turn state is kept in-process
// only, with no persistence beyond process lifetime.
package gateway

import (
	"sync"

	"github.com/google/uuid"
)

// TurnPhase is a Turn's lifecycle state.
type TurnPhase string

const (
	TurnRunning          TurnPhase = "running"
	TurnAwaitingApproval TurnPhase = "awaiting_approval"
	TurnAwaitingInput    TurnPhase = "awaiting_input"
	TurnDone             TurnPhase = "done"
	TurnCancelled        TurnPhase = "cancelled"
	TurnFailed           TurnPhase = "failed"
)

// TurnState tracks the one in-flight turn a Session may have.
type TurnState struct {
	ID                string
	Phase             TurnPhase
	PendingToolCallID string
}

// Session is exclusively owned by the Gateway — the Agent never sees or
// mutates this struct, only the opaque session_id string that
// correlates it on the wire.
type Session struct {
	ID       string
	DeviceID string
	Mode     string
	MaxTurns int

	mu   sync.Mutex
	turn *TurnState
}

// CurrentTurn returns the session's in-flight turn, if any.
func (s *Session) CurrentTurn() (*TurnState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turn, s.turn != nil
}

// StartTurn records a new in-flight turn. Returns false if a turn is
// already in flight — at most one live turn per session.
func (s *Session) StartTurn(turnID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.turn != nil && s.turn.Phase != TurnDone && s.turn.Phase != TurnCancelled && s.turn.Phase != TurnFailed {
		return false
	}
	s.turn = &TurnState{ID: turnID, Phase: TurnRunning}
	return true
}

// SetPhase transitions the current turn's phase. Transitions are
// monotonic except Awaiting* -> Running on resume.
func (s *Session) SetPhase(turnID string, phase TurnPhase, pendingToolCallID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.turn == nil || s.turn.ID != turnID {
		return
	}
	switch s.turn.Phase {
	case TurnDone, TurnCancelled, TurnFailed:
		return
	}
	s.turn.Phase = phase
	s.turn.PendingToolCallID = pendingToolCallID
}

// SessionStore is the Gateway's session table: a guarded map from
// session_id to {owner device_id, current turn state}.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// Create allocates a new session owned by deviceID.
func (s *SessionStore) Create(deviceID, mode string, maxTurns int) *Session {
	sess := &Session{ID: "sess_" + uuid.NewString(), DeviceID: deviceID, Mode: mode, MaxTurns: maxTurns}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// List returns every session owned by deviceID.
func (s *SessionStore) List(deviceID string) []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Session
	for _, sess := range s.sessions {
		if sess.DeviceID == deviceID {
			out = append(out, sess)
		}
	}
	return out
}

// Remove destroys a session, e.g. on client disconnect.
func (s *SessionStore) Remove(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Owns reports whether deviceID owns session id — the same test the
// request handlers apply before answering `forbidden` for a non-owned
// session.
func (s *SessionStore) Owns(id, deviceID string) bool {
	sess, ok := s.Get(id)
	return ok && sess.DeviceID == deviceID
}
