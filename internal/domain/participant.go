// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const MaxUsernameLen = 36

var (
	ErrUsernameTooLong    = errors.New("username too long")
	ErrUsernameEmpty      = errors.New("username empty")
	ErrParticipantIDEmpty = errors.New("participant id empty")
)

// ParticipantID is caller-supplied and opaque to the server.
type ParticipantID string

type Participant struct {
	ID       ParticipantID `json:"id"`
	Username string        `json:"username"`
}

// NewParticipant is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewParticipant(id ParticipantID, username string) (*Participant, error) {
	if id == "" {
		return nil, ErrParticipantIDEmpty
	}
	if len(username) == 0 {
		return nil, ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return nil, ErrUsernameTooLong
	}
	return &Participant{ID: id, Username: username}, nil
}
