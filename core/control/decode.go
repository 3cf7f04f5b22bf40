// Package control decodes the out-of-band control channel: small JSON
// messages carrying live transcript and generated response text deltas.
package control

import (
	"encoding/json"
	"fmt"
)

// Command identifies the control message family.
type Command int

const (
	// CommandTranscript (wire code 3) carries the live speech transcript.
	// Despite the delta-style framing, Text holds the full transcript so
	// far, not an increment.
	CommandTranscript Command = 3
	// CommandResponse (wire code 4) carries a chunk of generated response
	// text at a given sequence position.
	CommandResponse Command = 4
)

// Event is a decoded control message.
//
// SeqID is assigned monotonically by the sender per MessageID but is not
// guaranteed to arrive in order or without gaps.
type Event struct {
	Command   Command
	SeqID     int
	MessageID string
	Text      string
	// End is true on the final fragment of a turn.
	End bool
}

type wireMessage struct {
	Cmd   int `json:"Cmd"`
	SeqID int `json:"SeqId"`
	Data  struct {
		Text      string `json:"Text"`
		MessageID string `json:"MessageId"`
		EndFlag   bool   `json:"EndFlag"`
	} `json:"Data"`
}

// Decode parses an inbound control payload into a typed Event.
//
// Unrecognized commands and malformed payloads are decode errors; the raw
// payload is never handed to business logic.
func Decode(payload []byte) (Event, error) {
	var msg wireMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Event{}, fmt.Errorf("failed to unmarshal control message: %w", err)
	}

	switch Command(msg.Cmd) {
	case CommandTranscript, CommandResponse:
	default:
		return Event{}, fmt.Errorf("unrecognized control command %d", msg.Cmd)
	}

	return Event{
		Command:   Command(msg.Cmd),
		SeqID:     msg.SeqID,
		MessageID: msg.Data.MessageID,
		Text:      msg.Data.Text,
		End:       msg.Data.EndFlag,
	}, nil
}
