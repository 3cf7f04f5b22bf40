package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ansnik/halo-core/core/events"
	"github.com/ansnik/halo-core/core/transport"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type playingState string

const (
	playStateNotStarted playingState = "not-started"
	playStateStarting   playingState = "starting"
	playStatePlaying    playingState = "playing"
	playStateFailed     playingState = "failed"
)

type trackedStream struct {
	stream   transport.Stream
	state    playingState
	tracks   transport.TrackCounts
	media    transport.Media
	renderer transport.Renderer
	retry    *retryState
}

// streamManager owns the set of tracked remote streams: it reacts to add and
// remove notifications, starts and stops playback, and retries the agent
// video stream with bounded backoff.
//
// Duplicate add notifications can race the asynchronous playback call, so a
// stream is marked starting under the lock before that call is issued;
// anything already starting or playing is a no-op.
type streamManager struct {
	mu      sync.Mutex
	streams map[string]*trackedStream

	// audioStreamID and videoStreamID designate the agent's output streams.
	// Equal ids mean one unified stream carrying both.
	audioStreamID string
	videoStreamID string

	// voiceMuted is the remembered playback preference, applied lazily once
	// the designated audio stream starts playing.
	voiceMuted bool

	videoSurface string

	engine    transport.Engine
	policy    retryPolicy
	emitEvent eventEmitter

	baseContext context.Context
	closed      bool
}

func newStreamManager(engine transport.Engine, policy retryPolicy, emitEvent eventEmitter) *streamManager {
	if emitEvent == nil {
		emitEvent = noopEventEmitter
	}
	return &streamManager{
		streams:     map[string]*trackedStream{},
		engine:      engine,
		policy:      policy,
		emitEvent:   emitEvent,
		baseContext: context.Background(),
	}
}

func (m *streamManager) configure(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baseContext = ctx
	m.closed = false
}

func (m *streamManager) onStreamsChanged(change transport.StreamChange, streams []transport.Stream) {
	switch change {
	case transport.StreamsAdded:
		m.onStreamsAdded(streams)
	case transport.StreamsRemoved:
		m.onStreamsRemoved(streams)
	}
}

func (m *streamManager) onStreamsAdded(streams []transport.Stream) {
	for _, stream := range streams {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return
		}

		tracked, ok := m.streams[stream.ID]
		if ok && (tracked.state == playStateStarting || tracked.state == playStatePlaying) {
			m.mu.Unlock()
			continue
		}
		if !ok {
			tracked = &trackedStream{stream: stream}
			m.streams[stream.ID] = tracked
		}
		// Marked before the asynchronous play call returns; this closes the
		// race window against a concurrent duplicate notification.
		tracked.state = playStateStarting
		m.mu.Unlock()

		go m.startPlaying(stream.ID)
	}
}

func (m *streamManager) onStreamsRemoved(streams []transport.Stream) {
	for _, stream := range streams {
		m.mu.Lock()
		tracked, ok := m.streams[stream.ID]
		if !ok {
			m.mu.Unlock()
			continue
		}
		tracked.retry.cancel()
		renderer := tracked.renderer
		delete(m.streams, stream.ID)
		wasAgentVideo := stream.ID == m.videoStreamID
		m.mu.Unlock()

		if err := m.engine.StopPlaying(stream.ID); err != nil {
			logger.Warn("failed to stop playback for removed stream", "streamId", stream.ID, "error", err)
		}
		if renderer != nil {
			renderer.Release()
		}

		if wasAgentVideo {
			m.emitEvent(events.NewStreamNotReady(stream.ID))
		}
		m.emitEvent(events.NewStreamRemoved(stream.ID))
	}
}

func (m *streamManager) onPlayerState(state transport.PlayerState) {
	if state.ErrorCode == 0 {
		return
	}

	logger.Warn("player reported an error state",
		"streamId", state.StreamID, "state", state.State, "errorCode", state.ErrorCode)

	m.mu.Lock()
	tracked, ok := m.streams[state.StreamID]
	if !ok || tracked.state != playStatePlaying {
		m.mu.Unlock()
		return
	}
	tracked.state = playStateFailed
	m.mu.Unlock()

	m.handleFailure(state.StreamID, state.State)
}

func (m *streamManager) startPlaying(streamID string) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	ctx := m.baseContext
	expectVideo := m.expectsVideoLocked(streamID)
	muted := m.voiceMuted && m.isAgentAudioLocked(streamID)
	m.mu.Unlock()

	media, err := m.engine.StartPlaying(ctx, streamID, transport.PlayOptions{
		ExpectVideo: expectVideo,
		Muted:       muted,
	})
	if err != nil && !errors.Is(err, transport.ErrAlreadyPlaying) {
		m.mu.Lock()
		if tracked, ok := m.streams[streamID]; ok {
			tracked.state = playStateFailed
		}
		m.mu.Unlock()

		m.emitEvent(events.NewStreamFailed(streamID, err.Error()))
		m.handleFailure(streamID, err.Error())
		return
	}
	if media == nil {
		// The engine reported playback already in progress. Converge to
		// playing even without a handle so the stream does not sit in
		// starting forever and later notifications see a settled state.
		m.mu.Lock()
		if tracked, ok := m.streams[streamID]; ok {
			tracked.state = playStatePlaying
		}
		m.mu.Unlock()
		return
	}

	tracks := media.TrackCounts()
	if tracks.Video == 0 && tracks.Audio == 0 {
		logger.Warn("stream started playing with no tracks, treating as failure", "streamId", streamID)

		m.mu.Lock()
		if tracked, ok := m.streams[streamID]; ok {
			tracked.state = playStateFailed
		}
		m.mu.Unlock()

		m.emitEvent(events.NewStreamFailed(streamID, "no tracks"))
		m.handleFailure(streamID, "no tracks")
		return
	}

	renderer := m.engine.NewRenderer(media)

	m.mu.Lock()
	tracked, ok := m.streams[streamID]
	if !ok || m.closed {
		// Removed while the play call was in flight.
		m.mu.Unlock()
		renderer.Release()
		_ = m.engine.StopPlaying(streamID)
		return
	}
	tracked.state = playStatePlaying
	tracked.tracks = tracks
	tracked.media = media
	tracked.retry.cancel()
	tracked.retry = nil
	tracked.renderer = renderer
	applyMute := m.voiceMuted && m.isAgentAudioLocked(streamID)
	surface := m.videoSurface
	m.mu.Unlock()

	if tracks.Audio > 0 {
		if err := renderer.PlayAudio(transport.AudioRenderOptions{Muted: applyMute}); err != nil {
			logger.Warn("failed to attach audio renderer", "streamId", streamID, "error", err)
		}
	}
	if tracks.Video > 0 {
		if err := renderer.PlayVideo(transport.VideoRenderOptions{Surface: surface}); err != nil {
			logger.Warn("failed to attach video renderer", "streamId", streamID, "error", err)
		}
	}

	trace.SpanFromContext(ctx).AddEvent("stream playing", trace.WithAttributes(
		attribute.String("stream.id", streamID),
		attribute.Int("stream.video_tracks", tracks.Video),
		attribute.Int("stream.audio_tracks", tracks.Audio),
	))
	m.emitEvent(events.NewStreamPlaying(streamID, tracks))

	if expectVideo || tracks.Video > 0 {
		m.awaitFirstFrame(ctx, media)
	}
}

// awaitFirstFrame gates the ready signal on the first decodable video frame.
// A stream that never produces one within the bound degrades to not-ready
// instead of failing outright.
func (m *streamManager) awaitFirstFrame(ctx context.Context, media transport.Media) {
	frameCtx, cancel := context.WithTimeout(ctx, m.policy.firstFrameTimeout)
	defer cancel()

	if err := media.AwaitFirstFrame(frameCtx); err != nil {
		logger.Warn("no decodable frame within bound", "streamId", media.StreamID(), "error", err)
		m.emitEvent(events.NewStreamNotReady(media.StreamID()))
		return
	}

	m.emitEvent(events.NewStreamReady(media.StreamID()))
}

// handleFailure decides what a failed playback attempt means: the designated
// agent video stream is retried with backoff, anything else is dropped
// silently so the session degrades rather than churns.
func (m *streamManager) handleFailure(streamID, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	if streamID != m.videoStreamID {
		delete(m.streams, streamID)
		return
	}

	tracked, ok := m.streams[streamID]
	if !ok {
		return
	}
	if tracked.retry == nil {
		tracked.retry = newRetryState(m.policy)
	}

	delay, budgetLeft := tracked.retry.next(m.policy)
	if !budgetLeft {
		logger.Warn("giving up on agent video stream after retry budget",
			"streamId", streamID, "attempts", tracked.retry.attempt, "reason", reason)
		tracked.retry = nil
		return
	}

	tracked.retry.timer = time.AfterFunc(delay, func() { m.retryPlay(streamID) })
}

func (m *streamManager) retryPlay(streamID string) {
	m.mu.Lock()
	tracked, ok := m.streams[streamID]
	if !ok || m.closed || tracked.state == playStateStarting || tracked.state == playStatePlaying {
		m.mu.Unlock()
		return
	}
	tracked.state = playStateStarting
	m.mu.Unlock()

	m.startPlaying(streamID)
}

// setPreferredStreams designates which stream ids carry the agent's audio
// and video output. Equal ids mean a single unified stream that is rendered
// and muted once, not twice.
func (m *streamManager) setPreferredStreams(audioStreamID, videoStreamID string) {
	m.mu.Lock()
	m.audioStreamID = audioStreamID
	m.videoStreamID = videoStreamID
	renderer, muted := m.agentAudioRendererLocked()
	m.mu.Unlock()

	if renderer != nil {
		renderer.SetMuted(muted)
	}
}

// setVoicePlaybackEnabled applies the mute preference to whichever stream is
// currently designated agent audio; if that stream has not started playing
// yet the preference is remembered and applied once it does.
func (m *streamManager) setVoicePlaybackEnabled(enabled bool) {
	m.mu.Lock()
	m.voiceMuted = !enabled
	renderer, muted := m.agentAudioRendererLocked()
	m.mu.Unlock()

	if renderer != nil {
		renderer.SetMuted(muted)
	}
}

func (m *streamManager) agentAudioRendererLocked() (transport.Renderer, bool) {
	if m.audioStreamID == "" {
		return nil, false
	}
	tracked, ok := m.streams[m.audioStreamID]
	if !ok || tracked.state != playStatePlaying || tracked.renderer == nil {
		return nil, false
	}
	return tracked.renderer, m.voiceMuted
}

func (m *streamManager) isAgentAudioLocked(streamID string) bool {
	return streamID != "" && streamID == m.audioStreamID
}

func (m *streamManager) expectsVideoLocked(streamID string) bool {
	if streamID == m.videoStreamID && streamID != "" {
		return true
	}
	tracked, ok := m.streams[streamID]
	if !ok {
		return false
	}
	return tracked.stream.Kind == transport.KindVideo || tracked.stream.Kind == transport.KindUnified
}

// trackedCount reports how many streams are currently tracked.
func (m *streamManager) trackedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.streams)
}

// teardown stops every tracked stream, releases renderers and cancels all
// pending retry timers. The manager can be reused after configure.
func (m *streamManager) teardown() {
	m.mu.Lock()
	m.closed = true
	streams := m.streams
	m.streams = map[string]*trackedStream{}
	m.audioStreamID = ""
	m.videoStreamID = ""
	m.voiceMuted = false
	m.mu.Unlock()

	for streamID, tracked := range streams {
		tracked.retry.cancel()
		if tracked.renderer != nil {
			tracked.renderer.Release()
		}
		if err := m.engine.StopPlaying(streamID); err != nil {
			logger.Warn("failed to stop playback during teardown", "streamId", streamID, "error", err)
		}
	}
}
