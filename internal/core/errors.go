package core

import "errors"

var (
	// ErrAlreadyInRoom is returned for a join from a participant or
	// connection that is already a member of any room.
	ErrAlreadyInRoom = errors.New("already in a room")
	// ErrNotJoined is returned for events received before join completes.
	ErrNotJoined = errors.New("not joined")

	ErrRoomNotFound   = errors.New("room not found")
	ErrStreamNotFound = errors.New("stream not found")
	ErrOwnStream      = errors.New("cannot consume own stream")

	// ErrEngineTimeout is a media engine call that did not complete
	// within the configured bound. It fails that one operation, never
	// the whole room.
	ErrEngineTimeout = errors.New("media engine timeout")
	// ErrEngine wraps an opaque media engine failure.
	ErrEngine = errors.New("media engine failure")

	ErrBackpressure    = errors.New("backpressure")
	ErrPendingOverflow = errors.New("pending queue overflow")
)
