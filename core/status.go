package session

import (
	"sync"

	"github.com/ansnik/halo-core/core/conversations"
	"github.com/ansnik/halo-core/core/events"
)

// statusMachine is the flat turn-taking state machine. The enum value is its
// only state; no history is retained here.
type statusMachine struct {
	mu      sync.Mutex
	current conversations.Status

	emitEvent eventEmitter
}

func newStatusMachine(emitEvent eventEmitter) *statusMachine {
	if emitEvent == nil {
		emitEvent = noopEventEmitter
	}
	return &statusMachine{current: conversations.StatusIdle, emitEvent: emitEvent}
}

func (m *statusMachine) Current() conversations.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *statusMachine) set(status conversations.Status) {
	m.mu.Lock()
	if m.current == status {
		m.mu.Unlock()
		return
	}
	m.current = status
	m.mu.Unlock()

	m.emitEvent(events.NewStatusChanged(status))
}

// reset forces the machine back to idle. Every error path and session end
// funnels through here so the UI is never left in a stuck transitional state.
func (m *statusMachine) reset() {
	m.set(conversations.StatusIdle)
}
