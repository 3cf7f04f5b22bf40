package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ansnik/halo-core/core/events"
	"github.com/ansnik/halo-core/core/provision"
	"github.com/ansnik/halo-core/core/transport"
)

var errPlaybackRefused = errors.New("playback refused")

type fakeMedia struct {
	id       string
	tracks   transport.TrackCounts
	noFrames bool
}

func (m *fakeMedia) StreamID() string                  { return m.id }
func (m *fakeMedia) TrackCounts() transport.TrackCounts { return m.tracks }

func (m *fakeMedia) AwaitFirstFrame(ctx context.Context) error {
	if m.noFrames {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

type fakeRenderer struct {
	mu          sync.Mutex
	audioCalls  []transport.AudioRenderOptions
	videoCalls  []transport.VideoRenderOptions
	muteCalls   []bool
	released    bool
}

func (r *fakeRenderer) PlayAudio(opts transport.AudioRenderOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audioCalls = append(r.audioCalls, opts)
	return nil
}

func (r *fakeRenderer) PlayVideo(opts transport.VideoRenderOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.videoCalls = append(r.videoCalls, opts)
	return nil
}

func (r *fakeRenderer) SetMuted(muted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.muteCalls = append(r.muteCalls, muted)
}

func (r *fakeRenderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = true
}

type fakeLocalStream struct {
	mu      sync.Mutex
	enabled bool
	frames  [][]byte
	closed  bool
}

func newFakeLocalStream() *fakeLocalStream { return &fakeLocalStream{enabled: true} }

func (s *fakeLocalStream) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

func (s *fakeLocalStream) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *fakeLocalStream) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, append([]byte(nil), frame...))
	return nil
}

func (s *fakeLocalStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type fakeEngine struct {
	mu sync.Mutex

	startCalls     map[string]int
	failuresLeft   map[string]int
	failForever    map[string]bool
	alreadyPlaying map[string]bool
	tracks         map[string]transport.TrackCounts
	noFrames       map[string]bool
	startDelay     time.Duration

	stopCalls map[string]int
	renderers map[string]*fakeRenderer

	local       *fakeLocalStream
	connects    int
	disconnects int
	lastToken   string

	streamHandlers map[int]func(string, transport.StreamChange, []transport.Stream)
	playerHandlers map[int]func(transport.PlayerState)
	nextHandler    int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		startCalls:     map[string]int{},
		failuresLeft:   map[string]int{},
		failForever:    map[string]bool{},
		alreadyPlaying: map[string]bool{},
		tracks:         map[string]transport.TrackCounts{},
		noFrames:       map[string]bool{},
		stopCalls:      map[string]int{},
		renderers:      map[string]*fakeRenderer{},
		local:          newFakeLocalStream(),
		streamHandlers: map[int]func(string, transport.StreamChange, []transport.Stream){},
		playerHandlers: map[int]func(transport.PlayerState){},
	}
}

func (e *fakeEngine) Connect(_ context.Context, _, _, token string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connects++
	e.lastToken = token
	return nil
}

func (e *fakeEngine) Disconnect(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disconnects++
	return nil
}

func (e *fakeEngine) PublishAudio(context.Context) (transport.LocalStream, error) {
	return e.local, nil
}

func (e *fakeEngine) StartPlaying(_ context.Context, streamID string, _ transport.PlayOptions) (transport.Media, error) {
	e.mu.Lock()
	e.startCalls[streamID]++
	delay := e.startDelay
	e.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.alreadyPlaying[streamID] {
		return nil, transport.ErrAlreadyPlaying
	}
	if e.failForever[streamID] {
		return nil, errPlaybackRefused
	}
	if e.failuresLeft[streamID] > 0 {
		e.failuresLeft[streamID]--
		return nil, errPlaybackRefused
	}

	tracks, ok := e.tracks[streamID]
	if !ok {
		tracks = transport.TrackCounts{Video: 1, Audio: 1}
	}
	return &fakeMedia{id: streamID, tracks: tracks, noFrames: e.noFrames[streamID]}, nil
}

func (e *fakeEngine) StopPlaying(streamID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopCalls[streamID]++
	return nil
}

func (e *fakeEngine) OnStreamsChanged(handler func(string, transport.StreamChange, []transport.Stream)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextHandler
	e.nextHandler++
	e.streamHandlers[id] = handler
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.streamHandlers, id)
	}
}

func (e *fakeEngine) OnPlayerState(handler func(transport.PlayerState)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextHandler
	e.nextHandler++
	e.playerHandlers[id] = handler
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.playerHandlers, id)
	}
}

func (e *fakeEngine) NewRenderer(media transport.Media) transport.Renderer {
	e.mu.Lock()
	defer e.mu.Unlock()
	renderer := &fakeRenderer{}
	e.renderers[media.StreamID()] = renderer
	return renderer
}

func (e *fakeEngine) notifyStreams(roomID string, change transport.StreamChange, streams []transport.Stream) {
	e.mu.Lock()
	handlers := make([]func(string, transport.StreamChange, []transport.Stream), 0, len(e.streamHandlers))
	for _, handler := range e.streamHandlers {
		handlers = append(handlers, handler)
	}
	e.mu.Unlock()

	for _, handler := range handlers {
		handler(roomID, change, streams)
	}
}

func (e *fakeEngine) startCallCount(streamID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startCalls[streamID]
}

func (e *fakeEngine) renderer(streamID string) *fakeRenderer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.renderers[streamID]
}

type fakeProvisioner struct {
	mu          sync.Mutex
	token       string
	agent       provision.AgentSession
	stopCalls   []string
	tokenCalls  int
	startCalls  int
}

func (p *fakeProvisioner) Token(_ context.Context, _, _ string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenCalls++
	return p.token, nil
}

func (p *fakeProvisioner) StartAgent(_ context.Context, _, _ string) (provision.AgentSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startCalls++
	return p.agent, nil
}

func (p *fakeProvisioner) StopAgent(_ context.Context, sessionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopCalls = append(p.stopCalls, sessionID)
	return nil
}

// eventRecorder collects emitted session events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) record(event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]events.Kind, 0, len(r.events))
	for _, event := range r.events {
		kinds = append(kinds, event.Kind())
	}
	return kinds
}

func (r *eventRecorder) hasKind(kind events.Kind) bool {
	for _, k := range r.kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

func waitFor(timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return condition()
}
