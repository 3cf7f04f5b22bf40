// Package session coordinates a live voice/video conversation with a remote
// agent: remote stream lifecycle with bounded retry, reconstruction of
// out-of-order control messages into ordered turns, and the turn-taking
// status consumed by the UI.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/ansnik/halo-core/core/control"
	"github.com/ansnik/halo-core/core/conversations"
	"github.com/ansnik/halo-core/core/events"
	"github.com/ansnik/halo-core/core/provision"
	"github.com/ansnik/halo-core/core/transport"
	"go.opentelemetry.io/otel/codes"
)

type activeSession struct {
	roomID         string
	userID         string
	agentSessionID string
	micEnabled     bool

	local  transport.LocalStream
	cancel context.CancelFunc
	unsubs []func()
}

// Coordinator is the externally visible session facade. It is caller-owned:
// construct one with New, Join a room, and Close when done.
type Coordinator struct {
	engine      transport.Engine
	channel     ControlChannel
	provisioner Provisioner
	capture     MicrophoneCapture

	policy          retryPolicy
	videoSurface    string
	avatarRequested bool

	registry *subscriberRegistry
	status   *statusMachine
	streams  *streamManager
	turns    *turnAssembler

	mu      sync.Mutex
	session *activeSession
}

func New(engine transport.Engine, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		engine:   engine,
		policy:   defaultRetryPolicy(),
		registry: newSubscriberRegistry(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.status = newStatusMachine(c.registry.emit)
	c.streams = newStreamManager(engine, c.policy, c.registry.emit)
	c.streams.videoSurface = c.videoSurface
	c.turns = newTurnAssembler(c.registry.emit, c.status)

	return c
}

// Join establishes the session: connect the transport, publish the local
// audio stream and provision the remote agent.
//
// Joining the currently active (roomID, userID) pair is a no-op returning
// success; a different target first performs a full Leave.
func (c *Coordinator) Join(ctx context.Context, roomID, userID string) error {
	ctx, span := tracer.Start(ctx, "join session")
	defer span.End()

	c.mu.Lock()
	current := c.session
	c.mu.Unlock()
	if current != nil {
		if current.roomID == roomID && current.userID == userID {
			return nil
		}
		if err := c.Leave(); err != nil {
			return fmt.Errorf("failed to leave previous session: %w", err)
		}
	}

	fail := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.status.reset()
		return err
	}

	var token string
	if c.provisioner != nil {
		var err error
		if token, err = c.provisioner.Token(ctx, userID, roomID); err != nil {
			return fail(fmt.Errorf("failed to obtain access token: %w", err))
		}
	}

	sessionCtx, cancel := context.WithCancel(context.Background())
	session := &activeSession{
		roomID:     roomID,
		userID:     userID,
		micEnabled: true,
		cancel:     cancel,
	}

	c.streams.configure(sessionCtx)

	// Registered before connecting: streams the engine announces while the
	// join's asynchronous calls are still in flight must not be lost.
	session.unsubs = append(session.unsubs,
		c.engine.OnStreamsChanged(func(notifiedRoomID string, change transport.StreamChange, streams []transport.Stream) {
			if notifiedRoomID != roomID {
				return
			}
			c.streams.onStreamsChanged(change, streams)
		}),
		c.engine.OnPlayerState(c.streams.onPlayerState),
	)

	abort := func(err error) error {
		for _, unsubscribe := range session.unsubs {
			unsubscribe()
		}
		cancel()
		c.streams.teardown()
		return fail(err)
	}

	if err := c.engine.Connect(ctx, roomID, userID, token); err != nil {
		return abort(fmt.Errorf("failed to connect transport: %w", err))
	}

	local, err := c.engine.PublishAudio(ctx)
	if err != nil {
		_ = c.engine.Disconnect(ctx)
		return abort(fmt.Errorf("failed to publish local audio stream: %w", err))
	}
	session.local = local

	if c.provisioner != nil {
		agent, err := c.provisioner.StartAgent(ctx, roomID, userID)
		if err != nil {
			local.Close()
			_ = c.engine.Disconnect(ctx)
			return abort(fmt.Errorf("failed to provision agent session: %w", err))
		}
		session.agentSessionID = agent.SessionID
		c.applyAgentStreams(ctx, agent)
	}

	if c.channel != nil {
		session.unsubs = append(session.unsubs, c.channel.Subscribe(c.handleControlEvent))
	}

	if c.capture != nil {
		go func() {
			if err := c.capture.Stream(sessionCtx, func(frame []byte) {
				if !local.Enabled() {
					return
				}
				if err := local.Send(frame); err != nil {
					logger.Warn("failed to publish captured audio frame", "error", err)
				}
			}); err != nil {
				logger.Warn("microphone capture stopped", "error", err)
			}
		}()
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	c.status.reset()
	c.registry.emit(events.NewSessionJoined(roomID, userID))
	return nil
}

func (c *Coordinator) applyAgentStreams(ctx context.Context, agent provision.AgentSession) {
	videoStreamID := agent.VideoStreamID

	if c.avatarRequested {
		avatarProvisioner, ok := c.provisioner.(interface {
			StartAvatar(ctx context.Context, sessionID string) (provision.AvatarTask, error)
		})
		if ok {
			task, err := avatarProvisioner.StartAvatar(ctx, agent.SessionID)
			if err != nil {
				logger.Warn("failed to schedule avatar task, continuing without video", "error", err)
			} else if task.VideoStreamID != "" {
				videoStreamID = task.VideoStreamID
			}
		}
	}

	c.streams.setPreferredStreams(agent.AudioStreamID, videoStreamID)
}

// Leave tears the session down: stop publishing, disconnect, clear tracked
// streams and reset the status to idle. Safe to call when not joined.
func (c *Coordinator) Leave() error {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.mu.Unlock()

	if session == nil {
		return nil
	}

	ctx, span := tracer.Start(context.Background(), "leave session")
	defer span.End()

	session.cancel()
	for _, unsubscribe := range session.unsubs {
		unsubscribe()
	}

	if c.provisioner != nil && session.agentSessionID != "" {
		if err := c.provisioner.StopAgent(ctx, session.agentSessionID); err != nil {
			logger.Warn("failed to stop agent session", "agentSessionId", session.agentSessionID, "error", err)
		}
	}

	c.streams.teardown()
	c.turns.reset()

	var leaveErr error
	if session.local != nil {
		if err := session.local.Close(); err != nil {
			leaveErr = fmt.Errorf("failed to release local stream: %w", err)
		}
	}
	if err := c.engine.Disconnect(ctx); err != nil {
		leaveErr = fmt.Errorf("failed to disconnect transport: %w", err)
	}

	c.status.reset()
	c.registry.emit(events.NewSessionLeft(session.roomID))

	if leaveErr != nil {
		span.RecordError(leaveErr)
		span.SetStatus(codes.Error, leaveErr.Error())
	}
	return leaveErr
}

// Close tears down the coordinator and its capture client.
func (c *Coordinator) Close() {
	if err := c.Leave(); err != nil {
		logger.Warn("failed to leave session during close", "error", err)
	}
	if c.capture != nil {
		c.capture.Close()
	}
}

// SetMicrophoneEnabled toggles the local audio track. Returns false when no
// local stream exists.
func (c *Coordinator) SetMicrophoneEnabled(enabled bool) bool {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil || session.local == nil {
		return false
	}

	session.local.SetEnabled(enabled)
	c.mu.Lock()
	session.micEnabled = enabled
	c.mu.Unlock()
	return true
}

// SetPreferredVoicePlayback mutes or unmutes the designated agent audio
// stream, remembering the preference until that stream plays.
func (c *Coordinator) SetPreferredVoicePlayback(enabled bool) {
	c.streams.setVoicePlaybackEnabled(enabled)
}

// SetPreferredStreams designates the agent's audio and video stream ids.
// Equal ids mean one unified stream carrying both.
func (c *Coordinator) SetPreferredStreams(audioStreamID, videoStreamID string) {
	c.streams.setPreferredStreams(audioStreamID, videoStreamID)
}

// HandleControlPayload feeds a raw control-channel payload through the
// decoder. Malformed payloads are dropped and reset the status to idle so
// the UI never sticks in a transitional state.
func (c *Coordinator) HandleControlPayload(payload []byte) {
	event, err := control.Decode(payload)
	if err != nil {
		logger.Warn("dropping malformed control payload", "error", err)
		c.status.reset()
		return
	}

	c.handleControlEvent(event)
}

func (c *Coordinator) handleControlEvent(event control.Event) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("control event handling panicked", "recovered", recovered)
			c.status.reset()
		}
	}()

	c.turns.handle(event)
}

// Status returns the current turn-taking status.
func (c *Coordinator) Status() conversations.Status {
	return c.status.Current()
}

// Conversation returns a point-in-time snapshot of finalized turns.
func (c *Coordinator) Conversation() []conversations.Turn {
	return c.turns.Snapshot()
}

// Active reports whether a session is currently joined.
func (c *Coordinator) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}
