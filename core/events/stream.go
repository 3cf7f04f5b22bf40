package events

import "github.com/ansnik/halo-core/core/transport"

const (
	// KindStreamPlaying identifies successful playback starts.
	KindStreamPlaying Kind = "stream.playing"
	// KindStreamFailed identifies failed playback attempts.
	KindStreamFailed Kind = "stream.failed"
	// KindStreamReady identifies the first decodable video frame.
	KindStreamReady Kind = "stream.ready"
	// KindStreamNotReady identifies loss (or absence) of renderable video.
	KindStreamNotReady Kind = "stream.not_ready"
	// KindStreamRemoved identifies engine-side stream removal.
	KindStreamRemoved Kind = "stream.removed"
)

// StreamPlaying marks a stream whose playback started.
type StreamPlaying struct {
	Base
	StreamID string
	Tracks   transport.TrackCounts
}

// NewStreamPlaying creates a playback-started event.
func NewStreamPlaying(streamID string, tracks transport.TrackCounts) StreamPlaying {
	return StreamPlaying{Base: NewBase(KindStreamPlaying), StreamID: streamID, Tracks: tracks}
}

// StreamFailed marks a failed playback attempt.
type StreamFailed struct {
	Base
	StreamID string
	Reason   string
}

// NewStreamFailed creates a playback-failed event.
func NewStreamFailed(streamID, reason string) StreamFailed {
	return StreamFailed{Base: NewBase(KindStreamFailed), StreamID: streamID, Reason: reason}
}

// StreamReady marks a remote video stream that produced a decodable frame.
type StreamReady struct {
	Base
	StreamID string
}

// NewStreamReady creates a stream-ready event.
func NewStreamReady(streamID string) StreamReady {
	return StreamReady{Base: NewBase(KindStreamReady), StreamID: streamID}
}

// StreamNotReady marks the agent video stream as not renderable.
type StreamNotReady struct {
	Base
	StreamID string
}

// NewStreamNotReady creates a stream-not-ready event.
func NewStreamNotReady(streamID string) StreamNotReady {
	return StreamNotReady{Base: NewBase(KindStreamNotReady), StreamID: streamID}
}

// StreamRemoved marks a stream removed by the engine.
type StreamRemoved struct {
	Base
	StreamID string
}

// NewStreamRemoved creates a stream-removed event.
func NewStreamRemoved(streamID string) StreamRemoved {
	return StreamRemoved{Base: NewBase(KindStreamRemoved), StreamID: streamID}
}
