package signal

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

// envelope carries the type tag and request id of every inbound
// message. Anything that does not decode into one of the typed
// payloads below is a parse failure, not a silent no-op.
type envelope struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

type joinRoomPayload struct {
	RoomID        string `json:"roomId"`
	ParticipantID string `json:"participantId"`
	Username      string `json:"username"`
}

type createTransportPayload struct {
	RoomID    string `json:"roomId"`
	Producing bool   `json:"producing"`
}

type connectTransportPayload struct {
	TransportID    string          `json:"transportId"`
	DTLSParameters json.RawMessage `json:"dtlsParams"`
}

type createProducerPayload struct {
	TransportID   string          `json:"transportId"`
	Kind          string          `json:"kind"`
	RTPParameters json.RawMessage `json:"rtpParams"`
	ParticipantID string          `json:"participantId"`
}

type consumePayload struct {
	RoomID       string          `json:"roomId"`
	TransportID  string          `json:"transportId"`
	StreamID     string          `json:"streamId"`
	Capabilities json.RawMessage `json:"capabilities"`
}

type mediaStatePayload struct {
	Kind    string `json:"kind"`
	Enabled bool   `json:"enabled"`
}

// response is the reply half of a request/response pair, correlated
// by the request id.
type response struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Data  any    `json:"data,omitempty"`
}

type joinRoomResult struct {
	EngineCapabilities json.RawMessage `json:"engineCapabilities"`
}

type createProducerResult struct {
	StreamID core.Handle `json:"streamId"`
}

const (
	codeBadPayload     = "bad-payload"
	codeAlreadyInRoom  = "already-in-room"
	codeNotJoined      = "not-joined"
	codeRoomNotFound   = "room-not-found"
	codeStreamNotFound = "stream-not-found"
	codeOwnStream      = "own-stream"
	codeEngineTimeout  = "engine-timeout"
	codeEngineError    = "engine-error"
	codeRateLimited    = "rate-limited"
)

func errorCode(err error) string {
	switch {
	case errors.Is(err, core.ErrAlreadyInRoom):
		return codeAlreadyInRoom
	case errors.Is(err, core.ErrNotJoined):
		return codeNotJoined
	case errors.Is(err, core.ErrRoomNotFound):
		return codeRoomNotFound
	case errors.Is(err, core.ErrStreamNotFound):
		return codeStreamNotFound
	case errors.Is(err, core.ErrOwnStream):
		return codeOwnStream
	case errors.Is(err, core.ErrEngineTimeout):
		return codeEngineTimeout
	case errors.Is(err, domain.ErrUnknownKind),
		errors.Is(err, domain.ErrUsernameEmpty),
		errors.Is(err, domain.ErrUsernameTooLong),
		errors.Is(err, domain.ErrParticipantIDEmpty):
		return codeBadPayload
	default:
		return codeEngineError
	}
}
