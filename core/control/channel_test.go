package control

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type channelTestServer struct {
	*httptest.Server

	mu         sync.Mutex
	authHeader string
	conn       *websocket.Conn
	ready      chan struct{}
}

func newChannelTestServer(t *testing.T) *channelTestServer {
	t.Helper()

	s := &channelTestServer{ready: make(chan struct{})}
	upgrader := websocket.Upgrader{}

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.authHeader = r.Header.Get("Authorization")
		s.mu.Unlock()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("failed to upgrade test connection: %v", err)
			return
		}

		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()
		close(s.ready)
	}))
	t.Cleanup(s.Close)

	return s
}

func (s *channelTestServer) url() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *channelTestServer) send(t *testing.T, payload string) {
	t.Helper()

	select {
	case <-s.ready:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for the test server connection")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		t.Fatalf("failed to write test payload: %v", err)
	}
}

func TestChannelDeliversDecodedEvents(t *testing.T) {
	server := newChannelTestServer(t)

	channel, err := Dial(context.Background(), server.url(), "secret")
	if err != nil {
		t.Fatalf("failed to dial test server: %v", err)
	}
	defer channel.Close()

	received := make(chan Event, 4)
	channel.Subscribe(func(event Event) { received <- event })

	server.send(t, `{"Cmd":3,"SeqId":2,"Data":{"Text":"hello","MessageId":"m1","EndFlag":true}}`)

	select {
	case event := <-received:
		if event.Command != CommandTranscript || event.SeqID != 2 || event.Text != "hello" || !event.End {
			t.Fatalf("unexpected event: %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for the decoded event")
	}

	server.mu.Lock()
	auth := server.authHeader
	server.mu.Unlock()
	if auth != "Token secret" {
		t.Fatalf("expected token auth header, got %q", auth)
	}
}

func TestChannelDropsMalformedMessages(t *testing.T) {
	server := newChannelTestServer(t)

	channel, err := Dial(context.Background(), server.url(), "secret")
	if err != nil {
		t.Fatalf("failed to dial test server: %v", err)
	}
	defer channel.Close()

	received := make(chan Event, 4)
	channel.Subscribe(func(event Event) { received <- event })

	server.send(t, `{"Cmd":`)
	server.send(t, `{"Cmd":99,"SeqId":0,"Data":{}}`)
	server.send(t, `{"Cmd":4,"SeqId":0,"Data":{"Text":"ok","MessageId":"m1","EndFlag":false}}`)

	select {
	case event := <-received:
		if event.Command != CommandResponse || event.Text != "ok" {
			t.Fatalf("expected only the valid event, got %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for the valid event")
	}

	select {
	case event := <-received:
		t.Fatalf("expected malformed messages to be dropped, got %+v", event)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestChannelUnsubscribeStopsDelivery(t *testing.T) {
	server := newChannelTestServer(t)

	channel, err := Dial(context.Background(), server.url(), "secret")
	if err != nil {
		t.Fatalf("failed to dial test server: %v", err)
	}
	defer channel.Close()

	received := make(chan Event, 4)
	unsubscribe := channel.Subscribe(func(event Event) { received <- event })
	unsubscribe()

	server.send(t, `{"Cmd":4,"SeqId":0,"Data":{"Text":"ok","MessageId":"m1","EndFlag":false}}`)

	select {
	case event := <-received:
		t.Fatalf("expected no delivery after unsubscribe, got %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestChannelCloseIsIdempotent(t *testing.T) {
	server := newChannelTestServer(t)

	channel, err := Dial(context.Background(), server.url(), "secret")
	if err != nil {
		t.Fatalf("failed to dial test server: %v", err)
	}

	if err := channel.Close(); err != nil {
		t.Fatalf("expected close to succeed, got %v", err)
	}
	if err := channel.Close(); err != nil {
		t.Fatalf("expected repeated close to be a no-op, got %v", err)
	}
}
