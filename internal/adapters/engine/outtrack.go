package engine

import (
	"sync/atomic"

	"github.com/pion/webrtc/v4"
)

type trackState int32

const (
	trackStateOk trackState = iota
	trackStatePaused
	trackStateDelete
)

// outTrack is a single outgoing track to one consumer.
type outTrack struct {
	track *webrtc.TrackLocalStaticRTP
	state atomic.Int32 // Zero by default (trackStateOk)
}

func newOutTrack(track *webrtc.TrackLocalStaticRTP) *outTrack {
	return &outTrack{track: track}
}

func (ot *outTrack) State() trackState {
	return trackState(ot.state.Load())
}

func (ot *outTrack) MarkOk() {
	ot.state.Store(int32(trackStateOk))
}

func (ot *outTrack) MarkPaused() {
	ot.state.Store(int32(trackStatePaused))
}

func (ot *outTrack) MarkDelete() {
	ot.state.Store(int32(trackStateDelete))
}
