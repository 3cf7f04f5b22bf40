package main

import (
	"context"
	"sync"

	"github.com/ansnik/halo-core/core/transport"
)

// consoleEngine satisfies transport.Engine without a real media stack. The
// console observes the conversation flow; playback and publishing are no-ops
// and a headless renderer stands in for audio and video output.
type consoleEngine struct {
	mu    sync.Mutex
	local *consoleLocalStream
}

func newConsoleEngine() *consoleEngine {
	return &consoleEngine{local: &consoleLocalStream{enabled: true}}
}

func (e *consoleEngine) Connect(context.Context, string, string, string) error { return nil }
func (e *consoleEngine) Disconnect(context.Context) error                      { return nil }

func (e *consoleEngine) PublishAudio(context.Context) (transport.LocalStream, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.local, nil
}

func (e *consoleEngine) StartPlaying(_ context.Context, streamID string, opts transport.PlayOptions) (transport.Media, error) {
	tracks := transport.TrackCounts{Audio: 1}
	if opts.ExpectVideo {
		tracks.Video = 1
	}
	return &consoleMedia{id: streamID, tracks: tracks}, nil
}

func (e *consoleEngine) StopPlaying(string) error { return nil }

func (e *consoleEngine) OnStreamsChanged(func(string, transport.StreamChange, []transport.Stream)) func() {
	return func() {}
}

func (e *consoleEngine) OnPlayerState(func(transport.PlayerState)) func() {
	return func() {}
}

func (e *consoleEngine) NewRenderer(transport.Media) transport.Renderer {
	return consoleRenderer{}
}

type consoleMedia struct {
	id     string
	tracks transport.TrackCounts
}

func (m *consoleMedia) StreamID() string                   { return m.id }
func (m *consoleMedia) TrackCounts() transport.TrackCounts { return m.tracks }
func (m *consoleMedia) AwaitFirstFrame(context.Context) error {
	return nil
}

type consoleRenderer struct{}

func (consoleRenderer) PlayAudio(transport.AudioRenderOptions) error { return nil }
func (consoleRenderer) PlayVideo(transport.VideoRenderOptions) error { return nil }
func (consoleRenderer) SetMuted(bool)                                {}
func (consoleRenderer) Release()                                     {}

type consoleLocalStream struct {
	mu      sync.Mutex
	enabled bool
}

func (s *consoleLocalStream) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

func (s *consoleLocalStream) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *consoleLocalStream) Send([]byte) error { return nil }
func (s *consoleLocalStream) Close() error      { return nil }
