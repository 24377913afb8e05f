package server

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"socialhub/internal/middleware"
	"socialhub/internal/models"
	"socialhub/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	wsTicketPrefix = "ws_ticket:"
	wsTicketTTL    = 30 * time.Second
)

var wsLog = observability.NewWSLogger("notifications")

// IssueWSTicket godoc
// @Summary Issue a single-use websocket ticket
// @Description Browsers cannot set headers on upgrade requests; pass the ticket as ?ticket= on /api/ws
// @Tags realtime
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} models.ErrorResponse
// @Router /ws/ticket [post]
// @Security BearerAuth
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	actorID, err := s.actor(c)
	if err != nil {
		return nil
	}
	if s.redis == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
			Error: "WebSocket tickets are unavailable; connect with a bearer token",
			Code:  models.CodeTransient,
		})
	}

	ticket := uuid.NewString()
	if err := s.redis.Set(c.UserContext(), wsTicketPrefix+ticket,
		strconv.FormatUint(uint64(actorID), 10), wsTicketTTL).Err(); err != nil {
		observability.RedisErrorRate.WithLabelValues("ws_ticket_set").Inc()
		return models.RespondWithError(c, fiber.StatusServiceUnavailable, models.NewTransientError(err))
	}

	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(wsTicketTTL.Seconds()),
	})
}

// consumeTicket atomically reads and deletes a ticket.
func (s *Server) consumeTicket(ctx context.Context, ticket string) (uint, error) {
	raw, err := s.redis.GetDel(ctx, wsTicketPrefix+ticket).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			observability.RedisErrorRate.WithLabelValues("ws_ticket_get").Inc()
		}
		return 0, err
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("malformed ticket")
	}
	return uint(id), nil
}

// WSAuthRequired authenticates a websocket upgrade by ticket, falling back
// to a bearer token for clients that can send headers.
func (s *Server) WSAuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if ticket := c.Query("ticket"); ticket != "" {
			if s.redis == nil {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
			}
			actorID, err := s.consumeTicket(c.UserContext(), ticket)
			if err != nil {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
			}
			c.Locals(middleware.LocalActorID, actorID)
			c.SetUserContext(middleware.WithActor(c.UserContext(), actorID))
			return c.Next()
		}

		parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}
		subject, err := s.verifier.Verify(c.UserContext(), parts[1])
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}
		actorID, err := s.svc.Identity.ResolveActorID(c.UserContext(), subject)
		if err != nil {
			if models.IsNotFound(err) {
				return models.RespondWithError(c, fiber.StatusForbidden,
					models.NewPermissionDeniedError("Identity is not registered"))
			}
			return respondErr(c, err)
		}
		c.Locals(middleware.LocalActorID, actorID)
		c.SetUserContext(middleware.WithActor(c.UserContext(), actorID))
		return c.Next()
	}
}

// WebsocketHandler registers the socket with the notification hub and
// streams the identity's notifications until the peer goes away.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		middleware.ActiveWebSockets.Inc()
		defer middleware.ActiveWebSockets.Dec()

		uid, ok := conn.Locals(middleware.LocalActorID).(uint)
		if !ok || uid == 0 || s.hub == nil {
			_ = conn.Close()
			return
		}

		ctx := observability.WithCorrelationID(context.Background(), observability.GenerateCorrelationID())
		client, err := s.hub.Register(ctx, uid, conn)
		if err != nil {
			wsLog.LogError(ctx, uid, err, "register")
			_ = conn.WriteJSON(fiber.Map{"error": err.Error()})
			_ = conn.Close()
			return
		}
		defer s.hub.UnregisterClient(client)

		go client.WritePump()
		client.ReadPump()
	})
}
