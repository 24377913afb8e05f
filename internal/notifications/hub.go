package notifications

import (
	"context"
	"errors"
	"sync"

	"socialhub/internal/models"
	"socialhub/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	maxConnsPerIdentity = 12
	maxTotalConns       = 10000
)

var (
	ErrServerFull   = errors.New("server connection limit reached")
	ErrIdentityFull = errors.New("identity connection limit reached")
)

// Hub maps identity IDs to their live sockets on this instance.
type Hub struct {
	mu         sync.RWMutex
	conns      map[uint]map[*Client]struct{}
	totalConns int
	presence   *Presence
	logger     *observability.WSLogger
	closed     bool
}

// NewHub creates a Hub. presence may be nil.
func NewHub(presence *Presence) *Hub {
	return &Hub{
		conns:    make(map[uint]map[*Client]struct{}),
		presence: presence,
		logger:   observability.NewWSLogger("notifications"),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "notifications" }

// Register adds a socket for identityID. It fails once either limit is reached.
func (h *Hub) Register(ctx context.Context, identityID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	if h.closed || h.totalConns >= maxTotalConns {
		h.mu.Unlock()
		return nil, ErrServerFull
	}
	m, ok := h.conns[identityID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[identityID] = m
	}
	if len(m) >= maxConnsPerIdentity {
		h.mu.Unlock()
		return nil, ErrIdentityFull
	}

	client := NewClient(h, conn, identityID)
	if h.presence != nil {
		client.OnActivity = func(id uint) { h.presence.Touch(context.Background(), id) }
	}
	m[client] = struct{}{}
	h.totalConns++
	h.mu.Unlock()

	if h.presence != nil {
		h.presence.Register(ctx, identityID)
	}
	h.logger.LogConnect(ctx, identityID)
	return client, nil
}

// UnregisterClient removes a socket. Calling it twice is harmless.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	removed := false
	if m, ok := h.conns[client.IdentityID]; ok {
		if _, exists := m[client]; exists {
			delete(m, client)
			h.totalConns--
			removed = true
			client.closeSend()
		}
		if len(m) == 0 {
			delete(h.conns, client.IdentityID)
		}
	}
	h.mu.Unlock()

	if !removed {
		return
	}
	if h.presence != nil {
		h.presence.Unregister(context.Background(), client.IdentityID)
	}
	h.logger.LogDisconnect(context.Background(), client.IdentityID, "closed")
}

// Deliver queues payload on every socket held by identityID and reports how many accepted it.
func (h *Hub) Deliver(identityID uint, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for c := range h.conns[identityID] {
		if c.TrySend(payload) {
			delivered++
		}
	}
	return delivered
}

// ConnectionCount returns the number of sockets held by identityID.
func (h *Hub) ConnectionCount(identityID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[identityID])
}

// Channel names the in-process delivery path in metrics.
func (h *Hub) Channel() string { return "local" }

// PublishNotification delivers view straight to local sockets. It is used when
// no Redis fan-out is configured and the process is the only API instance.
func (h *Hub) PublishNotification(_ context.Context, view *models.NotificationView) error {
	if view == nil {
		return nil
	}
	payload, err := EncodeNotification(view)
	if err != nil {
		return err
	}
	h.Deliver(view.TargetID, payload)
	return nil
}

// StartWiring forwards everything the notifier's subscriber receives to local sockets.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartSubscriber(ctx, func(identityID uint, payload string) {
		h.Deliver(identityID, []byte(payload))
	})
}

// Shutdown asks every socket to close with a going-away frame and waits for
// the write pumps to send it. Sockets still open when ctx ends are dropped.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	conns := h.conns
	h.conns = make(map[uint]map[*Client]struct{})
	h.totalConns = 0
	h.mu.Unlock()

	goingAway := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, clients := range conns {
		for client := range clients {
			client.closeWith(goingAway)
		}
	}

	for identityID, clients := range conns {
		for client := range clients {
			if client.Conn == nil {
				continue
			}
			select {
			case <-client.Done():
			case <-ctx.Done():
				h.logger.LogError(ctx, identityID, ctx.Err(), "close_frame")
				_ = client.Conn.Close()
			}
		}
	}
	if h.presence != nil {
		h.presence.Stop()
	}
	return nil
}
