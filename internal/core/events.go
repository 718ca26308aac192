package core

import "github.com/dkeye/Meet/internal/domain"

// Outbound notification events. Each is delivered to every other
// current member of the participant's room at time of emission.

type ParticipantJoined struct {
	Type          string               `json:"type"`
	ParticipantID domain.ParticipantID `json:"participantId"`
	Username      string               `json:"username"`
}

func NewParticipantJoined(pid domain.ParticipantID, username string) ParticipantJoined {
	return ParticipantJoined{Type: "participant-joined", ParticipantID: pid, Username: username}
}

type ParticipantLeft struct {
	Type          string               `json:"type"`
	ParticipantID domain.ParticipantID `json:"participantId"`
}

func NewParticipantLeft(pid domain.ParticipantID) ParticipantLeft {
	return ParticipantLeft{Type: "participant-left", ParticipantID: pid}
}

type NewStream struct {
	Type          string               `json:"type"`
	StreamID      Handle               `json:"streamId"`
	ParticipantID domain.ParticipantID `json:"participantId"`
	Username      string               `json:"username"`
	Kind          domain.Kind          `json:"kind"`
}

func NewNewStream(h Handle, pid domain.ParticipantID, username string, kind domain.Kind) NewStream {
	return NewStream{Type: "new-stream", StreamID: h, ParticipantID: pid, Username: username, Kind: kind}
}

type MediaStateChange struct {
	Type          string               `json:"type"`
	ParticipantID domain.ParticipantID `json:"participantId"`
	Kind          domain.Kind          `json:"kind"`
	Enabled       bool                 `json:"enabled"`
}

func NewMediaStateChange(pid domain.ParticipantID, kind domain.Kind, enabled bool) MediaStateChange {
	return MediaStateChange{Type: "media-state-change", ParticipantID: pid, Kind: kind, Enabled: enabled}
}
