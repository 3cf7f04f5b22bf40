package session

import (
	"sync"

	"github.com/ansnik/halo-core/core/conversations"
	"github.com/ansnik/halo-core/core/events"
)

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

// subscriberRegistry fans session events out to every registered listener.
// Each registration gets its own unsubscribe handle; registering never
// replaces a previous listener.
type subscriberRegistry struct {
	mu        sync.Mutex
	listeners map[int]func(events.Event)
	nextID    int
}

func newSubscriberRegistry() *subscriberRegistry {
	return &subscriberRegistry{listeners: map[int]func(events.Event){}}
}

func (r *subscriberRegistry) subscribe(listener func(events.Event)) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.listeners[id] = listener

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.listeners, id)
	}
}

func (r *subscriberRegistry) emit(event events.Event) {
	r.mu.Lock()
	listeners := make([]func(events.Event), 0, len(r.listeners))
	for _, listener := range r.listeners {
		listeners = append(listeners, listener)
	}
	r.mu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// OnEvent registers a listener for every session event.
func (c *Coordinator) OnEvent(listener func(events.Event)) (unsubscribe func()) {
	return c.registry.subscribe(listener)
}

// OnTurn registers a listener for turn emissions, both streaming updates and
// finalized turns.
func (c *Coordinator) OnTurn(listener func(turn conversations.Turn)) (unsubscribe func()) {
	return c.registry.subscribe(func(event events.Event) {
		switch typedEvent := event.(type) {
		case events.TurnUpdated:
			listener(typedEvent.Turn)
		case events.TurnFinalized:
			listener(typedEvent.Turn)
		}
	})
}

// OnStatus registers a listener for turn-taking status changes.
func (c *Coordinator) OnStatus(listener func(status conversations.Status)) (unsubscribe func()) {
	return c.registry.subscribe(func(event events.Event) {
		if typedEvent, ok := event.(events.StatusChanged); ok {
			listener(typedEvent.Status)
		}
	})
}

// OnTranscript registers a listener for the transient live transcript of
// in-progress voice input, useful for captioning before the turn finalizes.
func (c *Coordinator) OnTranscript(listener func(transcript string)) (unsubscribe func()) {
	return c.registry.subscribe(func(event events.Event) {
		if typedEvent, ok := event.(events.TranscriptUpdated); ok {
			listener(typedEvent.Transcript)
		}
	})
}

// OnStreamReady registers a listener for agent video readiness changes.
func (c *Coordinator) OnStreamReady(listener func(streamID string, ready bool)) (unsubscribe func()) {
	return c.registry.subscribe(func(event events.Event) {
		switch typedEvent := event.(type) {
		case events.StreamReady:
			listener(typedEvent.StreamID, true)
		case events.StreamNotReady:
			listener(typedEvent.StreamID, false)
		}
	})
}
