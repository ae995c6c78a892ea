package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendQueue      = 256
)

// ErrClientGone is returned when sending to a dropped or lagging client.
var ErrClientGone = errors.New("hub: client gone or lagging")

// Conn is the part of a websocket connection a Client needs.
type Conn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one connected presenter.
type Client struct {
	id     string
	hub    *Hub
	conn   Conn
	send   chan Frame
	onRead func(c *Client, data []byte)
	onJoin func(c *Client)

	mu     sync.Mutex
	closed bool
}

// Option configures a Client.
type Option func(*Client)

// OnRead sets the handler for inbound text frames. It runs on the
// client's read goroutine.
func OnRead(fn func(c *Client, data []byte)) Option {
	return func(c *Client) { c.onRead = fn }
}

// OnJoin runs on the hub loop right after the client is registered,
// before any later broadcast reaches it.
func OnJoin(fn func(c *Client)) Option {
	return func(c *Client) { c.onJoin = fn }
}

// NewClient registers a presenter connection with h. If the hub has
// already stopped the client is returned closed.
func NewClient(h *Hub, conn Conn, opts ...Option) *Client {
	c := &Client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan Frame, sendQueue),
	}
	for _, opt := range opts {
		opt(c)
	}
	select {
	case h.register <- c:
	case <-h.done:
		c.closeSend()
	}
	return c
}

// ID identifies the client in logs.
func (c *Client) ID() string { return c.id }

// Send queues f for this client only. It reports false when the queue is
// full or the client has been dropped.
func (c *Client) Send(f Frame) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- f:
		return true
	default:
		return false
	}
}

// SendJSON encodes v and queues it for this client only.
func (c *Client) SendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if !c.Send(data) {
		return ErrClientGone
	}
	return nil
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Run pumps the connection until it closes. Call it from the websocket
// handler; it blocks until both pumps have stopped, so the connection is
// not touched after it returns.
func (c *Client) Run() {
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		c.writePump()
	}()
	c.readPump()
	<-writeDone
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		// Unregistering closes the queue already; this covers a hub that
		// never registered the client. It ends the write pump either way.
		c.closeSend()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			c.hub.logger.Debug("presenter read ended", "client", c.id, "error", err)
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		if msgType == websocket.TextMessage && c.onRead != nil {
			c.onRead(c, data)
		}
	}
}

// writePump is the only writer on the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
