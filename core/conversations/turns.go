// Package conversations defines the shared conversation vocabulary: turns,
// senders, modalities and the turn-taking status enum.
package conversations

// Sender identifies which side of the conversation produced a turn.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
)

// Modality identifies the medium a turn arrived through.
type Modality string

const (
	ModalityVoice Modality = "voice"
	ModalityText  Modality = "text"
)

// Turn is one complete utterance or response in the conversation.
//
// While Streaming is true the turn's Content is a partial reconstruction and
// may be re-emitted with more content under the same ID. A turn with
// Streaming false is final: the same ID is never re-inserted, only updated.
type Turn struct {
	ID        string
	Sender    Sender
	Modality  Modality
	Content   string
	Streaming bool
}

// Status is the flat turn-taking state exposed to consumers.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusListening Status = "listening"
	StatusThinking  Status = "thinking"
	StatusSpeaking  Status = "speaking"
)
