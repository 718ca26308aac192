package core

import (
	"sync"

	"github.com/dkeye/Meet/internal/domain"
)

type SessionID string

// SessionState is the per-connection protocol state:
// Unjoined -> Joined -> Left. A connection joins at most once.
type SessionState int

const (
	SessionUnjoined SessionState = iota
	SessionJoined
	SessionLeft
)

// Session binds one signaling connection to its protocol state.
// Events fanned out to the connection before the join response has
// been written are buffered in a bounded pending queue and flushed
// exactly once by MarkReady; afterwards delivery is direct.
type Session struct {
	conn SignalConnection

	mu          sync.Mutex
	state       SessionState
	room        domain.RoomID
	participant domain.ParticipantID
	username    string
	ready       bool
	pending     []Frame
	maxPending  int
}

func NewSession(conn SignalConnection, maxPending int) *Session {
	return &Session{conn: conn, maxPending: maxPending}
}

func (s *Session) Conn() SignalConnection { return s.conn }

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Join moves Unjoined -> Joined. Any later state fails with
// ErrAlreadyInRoom and mutates nothing.
func (s *Session) Join(room domain.RoomID, pid domain.ParticipantID, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionUnjoined {
		return ErrAlreadyInRoom
	}
	s.state = SessionJoined
	s.room = room
	s.participant = pid
	s.username = username
	return nil
}

// Member returns the joined identity, or ok=false while not Joined.
func (s *Session) Member() (domain.RoomID, domain.ParticipantID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionJoined {
		return "", "", false
	}
	return s.room, s.participant, true
}

func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// Leave moves Joined -> Left and reports the identity that left.
// Idempotent: a second call returns ok=false.
func (s *Session) Leave() (domain.RoomID, domain.ParticipantID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionJoined {
		return "", "", false
	}
	s.state = SessionLeft
	return s.room, s.participant, true
}

// Deliver sends a frame to the connection, queuing it while the
// session is not yet ready.
func (s *Session) Deliver(f Frame) error {
	s.mu.Lock()
	if !s.ready {
		if len(s.pending) >= s.maxPending {
			s.mu.Unlock()
			return ErrPendingOverflow
		}
		s.pending = append(s.pending, f)
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	return s.conn.TrySend(f)
}

// MarkReady flushes the pending queue in order. The queue is drained
// exactly once and never re-entered. A failed send does not abort the
// flush; the remaining frames are still attempted and the first error
// is returned.
func (s *Session) MarkReady() error {
	s.mu.Lock()
	if s.ready {
		s.mu.Unlock()
		return nil
	}
	s.ready = true
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	var firstErr error
	for _, f := range pending {
		if err := s.conn.TrySend(f); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
