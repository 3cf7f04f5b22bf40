package session

import (
	"context"
	"time"

	"github.com/ansnik/halo-core/core/audio"
	"github.com/ansnik/halo-core/core/control"
	"github.com/ansnik/halo-core/core/provision"
)

type CoordinatorOption func(*Coordinator)

// ControlChannel delivers decoded control events, e.g. the websocket client
// in the control package.
type ControlChannel interface {
	Subscribe(listener func(control.Event)) (unsubscribe func())
	Close() error
}

// WithControlChannel wires the inbound control channel carrying transcript
// and response deltas.
func WithControlChannel(channel ControlChannel) CoordinatorOption {
	return func(c *Coordinator) { c.channel = channel }
}

// Provisioner is the agent provisioning backend surface the coordinator
// consumes. *provision.Client satisfies it.
type Provisioner interface {
	Token(ctx context.Context, userID, roomID string) (string, error)
	StartAgent(ctx context.Context, roomID, userID string) (provision.AgentSession, error)
	StopAgent(ctx context.Context, sessionID string) error
}

// WithProvisioner wires the provisioning backend used on join to obtain an
// access token and a remote agent session.
func WithProvisioner(provisioner Provisioner) CoordinatorOption {
	return func(c *Coordinator) { c.provisioner = provisioner }
}

// MicrophoneCapture feeds captured audio frames into the local publishing
// stream. The miniaudio and portaudio clients satisfy it.
type MicrophoneCapture interface {
	EncodingInfo() audio.EncodingInfo
	Stream(ctx context.Context, onAudio func(audio []byte)) error
	Close()
}

// WithMicrophoneCapture wires a local microphone source.
func WithMicrophoneCapture(capture MicrophoneCapture) CoordinatorOption {
	return func(c *Coordinator) { c.capture = capture }
}

// WithRetryPolicy overrides the playback retry budget and backoff bounds.
func WithRetryPolicy(maxRetries int, baseDelay, maxDelay time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if maxRetries > 0 {
			c.policy.maxRetries = maxRetries
		}
		if baseDelay > 0 {
			c.policy.baseDelay = baseDelay
		}
		if maxDelay > 0 {
			c.policy.maxDelay = maxDelay
		}
	}
}

// WithFirstFrameTimeout overrides the bounded wait for the first decodable
// video frame.
func WithFirstFrameTimeout(timeout time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if timeout > 0 {
			c.policy.firstFrameTimeout = timeout
		}
	}
}

// WithVideoSurface sets the opaque container reference video is rendered
// into.
func WithVideoSurface(surface string) CoordinatorOption {
	return func(c *Coordinator) { c.videoSurface = surface }
}

// WithAvatar requests a video-avatar render task for the agent session on
// join.
func WithAvatar() CoordinatorOption {
	return func(c *Coordinator) { c.avatarRequested = true }
}
