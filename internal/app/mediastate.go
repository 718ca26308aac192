package app

import (
	"sync"

	"github.com/dkeye/Meet/internal/domain"
)

type stateKey struct {
	pid  domain.ParticipantID
	kind domain.Kind
}

// MediaStateTracker maps (participant, kind) to the logical
// enabled/disabled flag. The flag exists independently of whether a
// stream is currently published: state set before producing is
// remembered and applied once the stream appears.
type MediaStateTracker struct {
	mu     sync.RWMutex
	states map[stateKey]bool
}

func NewMediaStateTracker() *MediaStateTracker {
	return &MediaStateTracker{states: make(map[stateKey]bool)}
}

func (t *MediaStateTracker) SetState(pid domain.ParticipantID, kind domain.Kind, enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states[stateKey{pid, kind}] = enabled
}

// GetState defaults to enabled when unset.
func (t *MediaStateTracker) GetState(pid domain.ParticipantID, kind domain.Kind) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	enabled, ok := t.states[stateKey{pid, kind}]
	if !ok {
		return true
	}
	return enabled
}

// Forget drops all flags for the participant; runs with the rest of
// the leave cleanup.
func (t *MediaStateTracker) Forget(pid domain.ParticipantID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, kind := range domain.Kinds() {
		delete(t.states, stateKey{pid, kind})
	}
}
