package control

import "testing"

func TestDecodeTranscriptMessage(t *testing.T) {
	payload := []byte(`{"Cmd":3,"SeqId":2,"Data":{"Text":"hello there","MessageId":"m1","EndFlag":false}}`)

	event, err := Decode(payload)
	if err != nil {
		t.Fatalf("expected decode to succeed, got %v", err)
	}

	if event.Command != CommandTranscript {
		t.Fatalf("expected transcript command, got %d", event.Command)
	}
	if event.SeqID != 2 {
		t.Fatalf("expected seq id 2, got %d", event.SeqID)
	}
	if event.MessageID != "m1" {
		t.Fatalf("expected message id m1, got %q", event.MessageID)
	}
	if event.Text != "hello there" {
		t.Fatalf("expected text to survive decoding, got %q", event.Text)
	}
	if event.End {
		t.Fatalf("expected end flag to be false")
	}
}

func TestDecodeResponseEndMessage(t *testing.T) {
	payload := []byte(`{"Cmd":4,"SeqId":7,"Data":{"Text":"!","MessageId":"m2","EndFlag":true}}`)

	event, err := Decode(payload)
	if err != nil {
		t.Fatalf("expected decode to succeed, got %v", err)
	}

	if event.Command != CommandResponse {
		t.Fatalf("expected response command, got %d", event.Command)
	}
	if !event.End {
		t.Fatalf("expected end flag to be true")
	}
}

func TestDecodeRejectsUnrecognizedCommand(t *testing.T) {
	payload := []byte(`{"Cmd":9,"SeqId":0,"Data":{"Text":"x","MessageId":"m1","EndFlag":false}}`)

	if _, err := Decode(payload); err == nil {
		t.Fatalf("expected unrecognized command to be a decode error")
	}
}

func TestDecodeRejectsMalformedPayload(t *testing.T) {
	if _, err := Decode([]byte(`{"Cmd":`)); err == nil {
		t.Fatalf("expected malformed payload to be a decode error")
	}
}

func TestDecodeToleratesMissingOptionalFields(t *testing.T) {
	event, err := Decode([]byte(`{"Cmd":3,"SeqId":0}`))
	if err != nil {
		t.Fatalf("expected decode to succeed without Data, got %v", err)
	}

	if event.MessageID != "" || event.Text != "" || event.End {
		t.Fatalf("expected zero-valued optional fields, got %+v", event)
	}
}
