package events

import "github.com/ansnik/halo-core/core/conversations"

const (
	// KindTranscriptUpdated identifies mutable live-transcript snapshots.
	KindTranscriptUpdated Kind = "conversation.transcript_updated"
	// KindTurnUpdated identifies streaming turn content updates.
	KindTurnUpdated Kind = "conversation.turn_updated"
	// KindTurnFinalized identifies the terminal emission for a turn ID.
	KindTurnFinalized Kind = "conversation.turn_finalized"
	// KindStatusChanged identifies turn-taking status transitions.
	KindStatusChanged Kind = "conversation.status_changed"
)

// TranscriptUpdated carries the mutable in-progress voice transcript.
type TranscriptUpdated struct {
	Base
	Transcript string
}

// NewTranscriptUpdated creates a live-transcript snapshot event.
func NewTranscriptUpdated(transcript string) TranscriptUpdated {
	return TranscriptUpdated{Base: NewBase(KindTranscriptUpdated), Transcript: transcript}
}

// TurnUpdated carries a streaming turn that gained content.
type TurnUpdated struct {
	Base
	Turn conversations.Turn
}

// NewTurnUpdated creates a streaming turn update event.
func NewTurnUpdated(turn conversations.Turn) TurnUpdated {
	return TurnUpdated{Base: NewBase(KindTurnUpdated), Turn: turn}
}

// TurnFinalized carries the terminal form of a turn.
type TurnFinalized struct {
	Base
	Turn conversations.Turn
}

// NewTurnFinalized creates a finalized turn event.
func NewTurnFinalized(turn conversations.Turn) TurnFinalized {
	return TurnFinalized{Base: NewBase(KindTurnFinalized), Turn: turn}
}

// StatusChanged carries a turn-taking status transition.
type StatusChanged struct {
	Base
	Status conversations.Status
}

// NewStatusChanged creates a status transition event.
func NewStatusChanged(status conversations.Status) StatusChanged {
	return StatusChanged{Base: NewBase(KindStatusChanged), Status: status}
}
