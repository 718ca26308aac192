package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

type sessionEntry struct {
	Session *core.Session
	Cancel  context.CancelFunc
}

// Registry tracks live signaling connections. The coordinator looks
// sessions up here but never owns connection lifetime; the transport
// adapter does.
type Registry struct {
	mu            sync.RWMutex
	sessions      map[core.SessionID]*sessionEntry
	byParticipant map[domain.ParticipantID]core.SessionID
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:      make(map[core.SessionID]*sessionEntry),
		byParticipant: make(map[domain.ParticipantID]core.SessionID),
	}
}

func (r *Registry) Bind(sid core.SessionID, sess *core.Session, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{Session: sess, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound session")
}

func (r *Registry) Get(sid core.SessionID) (*core.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Session, true
	}
	return nil, false
}

// Unbind drops the session and cancels its connection-scoped
// context, so the pumps behind a finished connection always exit.
func (r *Registry) Unbind(sid core.SessionID) {
	r.mu.Lock()
	e, ok := r.sessions[sid]
	delete(r.sessions, sid)
	r.mu.Unlock()
	if ok && e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
}

// BindParticipant records which connection speaks for a joined
// participant; fan-out resolves through it.
func (r *Registry) BindParticipant(pid domain.ParticipantID, sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byParticipant[pid] = sid
}

func (r *Registry) UnbindParticipant(pid domain.ParticipantID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byParticipant, pid)
}

func (r *Registry) SessionOf(pid domain.ParticipantID) (*core.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sid, ok := r.byParticipant[pid]
	if !ok {
		return nil, false
	}
	if e, ok := r.sessions[sid]; ok {
		return e.Session, true
	}
	return nil, false
}
