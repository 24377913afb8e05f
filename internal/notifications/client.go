package notifications

import (
	"context"
	"sync"
	"time"

	"socialhub/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// The socket is push-only; inbound frames are pings and acks at most.
	maxMessageSize = 4096

	sendBuffer = 64
)

var dropNotice = []byte(`{"type":"notifications_dropped","payload":{"reason":"buffer_full"}}`)

// WSHub is the part of a hub a client needs.
type WSHub interface {
	UnregisterClient(c *Client)
	Name() string
}

// Client is one live socket owned by an identity.
type Client struct {
	Hub        WSHub
	Conn       *websocket.Conn
	Send       chan []byte
	IdentityID uint

	// OnActivity is called whenever the peer proves it is alive.
	OnActivity func(identityID uint)

	closeOnce  sync.Once
	mu         sync.RWMutex
	closed     bool
	closeFrame []byte
	done       chan struct{}
}

// NewClient creates a Client with a bounded send buffer.
func NewClient(hub WSHub, conn *websocket.Conn, identityID uint) *Client {
	return &Client{
		Hub:        hub,
		Conn:       conn,
		IdentityID: identityID,
		Send:       make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
	}
}

func (c *Client) closeSend() {
	c.closeWith(nil)
}

// closeWith stops the send queue. WritePump owns every write on the socket,
// so it sends frame as the close payload before it exits.
func (c *Client) closeWith(frame []byte) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.closeFrame = frame
		close(c.Send)
		c.mu.Unlock()
	})
}

// Done is closed when WritePump has returned.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) touch() {
	if c.OnActivity != nil {
		c.OnActivity(c.IdentityID)
	}
}

// ReadPump drains inbound frames until the peer goes away.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.touch()
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				observability.NewWSLogger(c.Hub.Name()).LogError(context.Background(), c.IdentityID, err, "read")
			}
			return
		}
		c.touch()
	}
}

// WritePump writes queued payloads and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
		close(c.done)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.mu.RLock()
				frame := c.closeFrame
				c.mu.RUnlock()
				if frame == nil {
					frame = []byte{}
				}
				_ = c.Conn.WriteMessage(websocket.CloseMessage, frame)
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend queues message without blocking. A full buffer drops it and tries to
// tell the client so it can re-fetch the listing.
func (c *Client) TrySend(message []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "closed").Inc()
		return false
	}

	select {
	case c.Send <- message:
		return true
	default:
		observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "full").Inc()
		select {
		case c.Send <- dropNotice:
		default:
		}
		return false
	}
}
