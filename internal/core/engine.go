package core

import (
	"context"
	"encoding/json"

	"github.com/dkeye/Meet/internal/domain"
)

// Handle is an opaque engine-side identifier for a producer or
// consumer. The engine owns the resource; the registries only map it.
type Handle string

type TransportID string

// TransportDescription is what the client needs to connect an
// engine-side transport.
type TransportDescription struct {
	ID        TransportID     `json:"id"`
	Producing bool            `json:"producing"`
	Offer     json.RawMessage `json:"offer"`
}

// ConsumerDescription describes an engine-side consumer bound to a
// source stream.
type ConsumerDescription struct {
	ID            Handle               `json:"consumerId"`
	StreamID      Handle               `json:"sourceStreamId"`
	ParticipantID domain.ParticipantID `json:"participantId"`
	Kind          domain.Kind          `json:"kind"`
	RTPParameters json.RawMessage      `json:"rtpParameters"`
}

// MediaEngine is the consumed capability set of the external media
// engine. All calls may suspend; the coordinator bounds them with a
// timeout. NotFound and opaque failures both surface as errors, never
// silently swallowed.
type MediaEngine interface {
	// CreateRouter is idempotent per room.
	CreateRouter(ctx context.Context, room domain.RoomID) error
	CloseRouter(ctx context.Context, room domain.RoomID) error
	// Capabilities returns the router's negotiation capabilities,
	// opaque to the coordinator.
	Capabilities(ctx context.Context, room domain.RoomID) (json.RawMessage, error)

	CreateTransport(ctx context.Context, room domain.RoomID, producing bool) (*TransportDescription, error)
	ConnectTransport(ctx context.Context, id TransportID, dtlsParams json.RawMessage) error

	CreateProducer(ctx context.Context, id TransportID, kind domain.Kind, rtpParams json.RawMessage) (Handle, error)
	CreateConsumer(ctx context.Context, room domain.RoomID, id TransportID, stream Handle, capabilities json.RawMessage) (*ConsumerDescription, error)

	Pause(ctx context.Context, h Handle) error
	Resume(ctx context.Context, h Handle) error
	Close(ctx context.Context, h Handle) error
}
