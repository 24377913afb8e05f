package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"socialhub/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsProbe mounts WSAuthRequired in front of a plain handler so the
// authentication path can be exercised without a socket upgrade.
func wsProbe(h *harness) {
	h.app.Get("/probe/ws", h.server.WSAuthRequired(), func(c *fiber.Ctx) error {
		id, _ := middleware.ActorID(c)
		return c.JSON(fiber.Map{"actor": id})
	})
}

func TestIssueWSTicket(t *testing.T) {
	t.Run("without redis", func(t *testing.T) {
		h := newHarness(t)
		resp := h.do(t, http.MethodPost, "/api/ws/ticket", aliceToken, nil)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("ticket is single use", func(t *testing.T) {
		mr := miniredis.RunT(t)
		h := newHarness(t)
		h.server.redis = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		wsProbe(h)

		resp := h.do(t, http.MethodPost, "/api/ws/ticket", aliceToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decode[map[string]any](t, resp)
		ticket, _ := body["ticket"].(string)
		require.NotEmpty(t, ticket)
		assert.Equal(t, float64(30), body["expires_in"])
		assert.True(t, mr.Exists(wsTicketPrefix+ticket))

		resp = h.do(t, http.MethodGet, "/probe/ws?ticket="+ticket, "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(aliceID), decode[map[string]any](t, resp)["actor"])
		assert.False(t, mr.Exists(wsTicketPrefix+ticket))

		resp = h.do(t, http.MethodGet, "/probe/ws?ticket="+ticket, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("expired ticket", func(t *testing.T) {
		mr := miniredis.RunT(t)
		h := newHarness(t)
		h.server.redis = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		wsProbe(h)

		resp := h.do(t, http.MethodPost, "/api/ws/ticket", aliceToken, nil)
		ticket := decode[map[string]any](t, resp)["ticket"].(string)
		mr.FastForward(wsTicketTTL + 1)

		resp = h.do(t, http.MethodGet, "/probe/ws?ticket="+ticket, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestWSAuthRequired_BearerFallback(t *testing.T) {
	h := newHarness(t)
	wsProbe(h)

	resp := h.do(t, http.MethodGet, "/probe/ws", aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(aliceID), decode[map[string]any](t, resp)["actor"])

	resp = h.do(t, http.MethodGet, "/probe/ws", strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/probe/ws", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/probe/ws?ticket=anything", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "tickets need redis")
}

func TestWebsocketHandler_RequiresUpgrade(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/api/ws", nil)
	req.Header.Set("Authorization", "Bearer "+aliceToken)
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestConsumeTicket_Malformed(t *testing.T) {
	mr := miniredis.RunT(t)
	s := &Server{redis: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	require.NoError(t, mr.Set(wsTicketPrefix+"bad", "not-a-number"))

	_, err := s.consumeTicket(context.Background(), "bad")
	assert.Error(t, err)
}
