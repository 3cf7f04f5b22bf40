package session

import (
	"sort"
	"strings"
	"sync"

	"github.com/ansnik/halo-core/core/control"
	"github.com/ansnik/halo-core/core/conversations"
	"github.com/ansnik/halo-core/core/events"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

// defaultTranscriptKey buckets transcript fragments that arrive before the
// vendor assigns a message id to the voice activity.
const defaultTranscriptKey = "live-transcript"

// turnAssembler rebuilds complete, ordered turns from at-least-once,
// possibly out-of-order control events.
//
// Transcript events carry the full transcript so far and replace the working
// text, latest sequence wins. Response events carry chunks keyed by sequence
// position; content is recomputed by ascending-sequence concatenation, which
// is what makes the reconstruction independent of arrival order.
type turnAssembler struct {
	mu sync.Mutex

	// transcriptSeqs tracks the highest sequence seen per transcript key.
	transcriptSeqs map[string]int
	transcriptText map[string]string

	// fragments maps message id -> sequence id -> text chunk. Last write
	// wins per sequence id.
	fragments map[string]map[int]string

	// finalized holds ids already emitted in non-streaming form; a known id
	// turns later emissions into updates instead of new insertions.
	finalized map[string]struct{}

	history []conversations.Turn

	emitEvent eventEmitter
	status    *statusMachine
}

func newTurnAssembler(emitEvent eventEmitter, status *statusMachine) *turnAssembler {
	if emitEvent == nil {
		emitEvent = noopEventEmitter
	}
	return &turnAssembler{
		transcriptSeqs: map[string]int{},
		transcriptText: map[string]string{},
		fragments:      map[string]map[int]string{},
		finalized:      map[string]struct{}{},
		emitEvent:      emitEvent,
		status:         status,
	}
}

func (a *turnAssembler) handle(event control.Event) {
	switch event.Command {
	case control.CommandTranscript:
		a.handleTranscript(event)
	case control.CommandResponse:
		a.handleResponse(event)
	}
}

func (a *turnAssembler) handleTranscript(event control.Event) {
	key := event.MessageID
	if key == "" {
		key = defaultTranscriptKey
	}

	a.mu.Lock()
	if highest, ok := a.transcriptSeqs[key]; ok && event.SeqID < highest {
		// Stale out-of-order duplicate, a newer snapshot already landed.
		a.mu.Unlock()
		return
	}
	a.transcriptSeqs[key] = event.SeqID
	a.transcriptText[key] = event.Text

	if !event.End {
		a.mu.Unlock()
		a.emitEvent(events.NewTranscriptUpdated(event.Text))
		a.status.set(conversations.StatusListening)
		return
	}

	content := strings.TrimSpace(a.transcriptText[key])
	delete(a.transcriptSeqs, key)
	delete(a.transcriptText, key)

	id := event.MessageID
	if id == "" {
		id = uuid.NewString()
	}
	_, alreadyFinalized := a.finalized[id]

	turn := conversations.Turn{
		ID:       id,
		Sender:   conversations.SenderUser,
		Modality: conversations.ModalityVoice,
		Content:  content,
	}
	if content != "" && !alreadyFinalized {
		a.finalized[id] = struct{}{}
		a.history = append(a.history, turn)
	}
	a.mu.Unlock()

	a.emitEvent(events.NewTranscriptUpdated(""))

	if content == "" {
		// Voice activity that transcribed to nothing, no turn to emit.
		a.status.reset()
		return
	}

	if alreadyFinalized {
		a.emitEvent(events.NewTurnUpdated(turn))
	} else {
		a.emitEvent(events.NewTurnFinalized(turn))
	}
	a.status.set(conversations.StatusThinking)
}

func (a *turnAssembler) handleResponse(event control.Event) {
	if event.MessageID == "" {
		return
	}
	if event.Text == "" && !event.End {
		return
	}

	a.mu.Lock()
	chunks, ok := a.fragments[event.MessageID]
	if !ok {
		chunks = map[int]string{}
		a.fragments[event.MessageID] = chunks
	}
	if event.Text != "" {
		chunks[event.SeqID] = event.Text
	}

	content := concatInSequenceOrder(chunks)

	turn := conversations.Turn{
		ID:        event.MessageID,
		Sender:    conversations.SenderAgent,
		Modality:  conversations.ModalityText,
		Content:   content,
		Streaming: !event.End,
	}

	if !event.End {
		a.mu.Unlock()
		a.emitEvent(events.NewTurnUpdated(turn))
		a.status.set(conversations.StatusSpeaking)
		return
	}

	delete(a.fragments, event.MessageID)

	_, alreadyFinalized := a.finalized[event.MessageID]
	if !alreadyFinalized {
		a.finalized[event.MessageID] = struct{}{}
		a.history = append(a.history, turn)
	}
	a.mu.Unlock()

	if alreadyFinalized {
		a.emitEvent(events.NewTurnUpdated(turn))
	} else {
		a.emitEvent(events.NewTurnFinalized(turn))
	}
	a.status.reset()
}

func concatInSequenceOrder(chunks map[int]string) string {
	seqs := make([]int, 0, len(chunks))
	for seq := range chunks {
		seqs = append(seqs, seq)
	}
	sort.Ints(seqs)

	var builder strings.Builder
	for _, seq := range seqs {
		builder.WriteString(chunks[seq])
	}
	return builder.String()
}

// Snapshot returns a point-in-time deep copy of the finalized conversation.
func (a *turnAssembler) Snapshot() []conversations.Turn {
	a.mu.Lock()
	defer a.mu.Unlock()

	turns := make([]conversations.Turn, 0, len(a.history))
	if err := copier.Copy(&turns, a.history); err != nil {
		logger.Warn("failed to copy conversation history", "error", err)
		return nil
	}
	return turns
}

// reset drops all working buffers, the dedup set and the history. Used on
// session end.
func (a *turnAssembler) reset() {
	a.mu.Lock()
	a.transcriptSeqs = map[string]int{}
	a.transcriptText = map[string]string{}
	a.fragments = map[string]map[int]string{}
	a.finalized = map[string]struct{}{}
	a.history = nil
	a.mu.Unlock()
}
