// Package transport declares the boundary to the real-time media engine.
//
// The engine itself (codecs, jitter buffering, network transport) is an
// external collaborator; the coordinator only consumes this narrow surface.
package transport

import (
	"context"
	"errors"
)

// ErrAlreadyPlaying is returned by StartPlaying when playback for the stream
// is already in progress. Callers are expected to treat it as success.
var ErrAlreadyPlaying = errors.New("stream already playing")

// Kind describes what a remote stream carries.
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
	// KindUnified marks a single stream carrying both the agent's audio and
	// video.
	KindUnified Kind = "unified"
	KindUnknown Kind = "unknown"
)

// Stream is a remote stream announced by the engine.
type Stream struct {
	ID   string
	Kind Kind
}

// TrackCounts reports how many tracks of each kind a playing stream exposes.
type TrackCounts struct {
	Video int
	Audio int
}

// StreamChange distinguishes add from remove notifications.
type StreamChange string

const (
	StreamsAdded   StreamChange = "added"
	StreamsRemoved StreamChange = "removed"
)

// PlayerState is a point-in-time player notification for a stream.
type PlayerState struct {
	StreamID  string
	State     string
	ErrorCode int
}

// PlayOptions configures a playback request.
type PlayOptions struct {
	// ExpectVideo gates the first-frame wait: streams expected to carry
	// video are not reported ready until a decodable frame is observed.
	ExpectVideo bool
	Muted       bool
}

// AudioRenderOptions configures audio rendering for a playing stream.
type AudioRenderOptions struct {
	Muted  bool
	Volume int
}

// VideoRenderOptions configures video rendering for a playing stream.
type VideoRenderOptions struct {
	// Surface is an opaque reference to the container the video should be
	// rendered into.
	Surface string
}

// Media is a handle to a stream whose playback has started.
type Media interface {
	StreamID() string
	TrackCounts() TrackCounts
	// AwaitFirstFrame blocks until the first decodable video frame is
	// observed or ctx is done.
	AwaitFirstFrame(ctx context.Context) error
}

// Renderer attaches a playing stream's media to output devices.
type Renderer interface {
	PlayAudio(opts AudioRenderOptions) error
	PlayVideo(opts VideoRenderOptions) error
	SetMuted(muted bool)
	Release()
}

// LocalStream is the locally published audio stream.
type LocalStream interface {
	// SetEnabled toggles the local audio track without tearing the stream
	// down.
	SetEnabled(enabled bool)
	Enabled() bool
	// Send pushes a captured audio frame into the published stream.
	Send(frame []byte) error
	Close() error
}

// Engine is the consumed surface of the real-time transport layer.
type Engine interface {
	Connect(ctx context.Context, roomID, userID, token string) error
	Disconnect(ctx context.Context) error

	// PublishAudio requests a local audio-only publishing stream.
	PublishAudio(ctx context.Context) (LocalStream, error)

	StartPlaying(ctx context.Context, streamID string, opts PlayOptions) (Media, error)
	StopPlaying(streamID string) error

	// OnStreamsChanged registers a listener for stream add/remove
	// notifications. The returned function unsubscribes the listener.
	OnStreamsChanged(func(roomID string, change StreamChange, streams []Stream)) (unsubscribe func())
	// OnPlayerState registers a listener for player-state notifications.
	OnPlayerState(func(state PlayerState)) (unsubscribe func())

	NewRenderer(media Media) Renderer
}
