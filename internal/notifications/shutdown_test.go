package notifications

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveHub mounts hub on a real listener the same way the API server does.
func serveHub(t *testing.T, hub *Hub, identityID uint) (string, <-chan *Client) {
	t.Helper()
	registered := make(chan *Client, 1)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		client, err := hub.Register(context.Background(), identityID, conn)
		if err != nil {
			return
		}
		registered <- client
		defer hub.UnregisterClient(client)
		go client.WritePump()
		client.ReadPump()
	}))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return "ws://" + ln.Addr().String() + "/ws", registered
}

func TestHub_ShutdownSendsGoingAwayFrame(t *testing.T) {
	hub := NewHub(nil)
	url, registered := serveHub(t, hub, 7)

	conn, resp, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = conn.Close() }()

	var client *Client
	select {
	case client = <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("socket was not registered")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, hub.Shutdown(ctx))

	select {
	case <-client.Done():
	default:
		t.Fatal("write pump still running after shutdown")
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	var closeErr *gorillaws.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, gorillaws.CloseGoingAway, closeErr.Code)
	assert.Equal(t, "server shutting down", closeErr.Text)
}

func TestHub_ShutdownGivesUpAtDeadline(t *testing.T) {
	hub := NewHub(nil)
	url, registered := serveHub(t, hub, 8)

	conn, resp, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = conn.Close() }()
	<-registered

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, hub.Shutdown(ctx))

	_, err = hub.Register(context.Background(), 8, nil)
	assert.ErrorIs(t, err, ErrServerFull)
}
