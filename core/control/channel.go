package control

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const keepAliveInterval = 15 * time.Second

// Channel is a websocket client for the inbound control channel.
//
// Decoded events are fanned out to every registered subscriber; decode
// failures are logged and dropped without disturbing the stream.
type Channel struct {
	conn   *websocket.Conn
	connMu sync.Mutex

	subscribersMu  sync.Mutex
	subscribers    map[int]func(Event)
	nextSubscriber int

	closeOnce sync.Once
	closed    chan struct{}
}

// Dial opens the control channel at url, authenticating with token.
func Dial(ctx context.Context, url, token string) (*Channel, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url,
		http.Header{"Authorization": {"Token " + token}})
	if err != nil {
		return nil, fmt.Errorf("failed to open control channel socket: %w", err)
	}

	c := &Channel{
		conn:        conn,
		subscribers: map[int]func(Event){},
		closed:      make(chan struct{}),
	}

	go c.readAndProcessMessages(ctx, conn)
	go c.keepAlive(ctx)

	return c, nil
}

// Subscribe registers a listener for decoded control events. The returned
// function removes the registration.
func (c *Channel) Subscribe(listener func(Event)) (unsubscribe func()) {
	c.subscribersMu.Lock()
	defer c.subscribersMu.Unlock()

	id := c.nextSubscriber
	c.nextSubscriber++
	c.subscribers[id] = listener

	return func() {
		c.subscribersMu.Lock()
		defer c.subscribersMu.Unlock()
		delete(c.subscribers, id)
	}
}

// Close tears the channel down. Safe to call more than once.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)

		c.connMu.Lock()
		defer c.connMu.Unlock()
		if c.conn != nil {
			err = c.conn.Close()
			c.conn = nil
		}
	})
	return err
}

func (c *Channel) readAndProcessMessages(ctx context.Context, conn *websocket.Conn) {
	defer c.Close()

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
			case <-ctx.Done():
			default:
				logger.WarnContext(ctx, "failed to read control channel message", "error", err)
			}
			return
		}
		if msgType == websocket.BinaryMessage {
			continue
		}

		event, err := Decode(msg)
		if err != nil {
			logger.WarnContext(ctx, "dropping malformed control message", "error", err)
			continue
		}

		c.deliver(event)
	}
}

func (c *Channel) deliver(event Event) {
	c.subscribersMu.Lock()
	listeners := make([]func(Event), 0, len(c.subscribers))
	for _, listener := range c.subscribers {
		listeners = append(listeners, listener)
	}
	c.subscribersMu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

func (c *Channel) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		case <-ticker.C:
			c.sendKeepAlive(ctx)
		}
	}
}

func (c *Channel) sendKeepAlive(ctx context.Context) {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return
	}
	if err := c.conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: "KeepAlive"}); err != nil {
		logger.WarnContext(ctx, "failed to write control channel keep-alive", "error", err)
	}
}
