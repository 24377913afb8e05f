package server

import (
	"github.com/gofiber/fiber/v2"
)

// ListNotifications godoc
// @Summary List notifications
// @Description Grouped into new (under 24h) and last_week (24h to 7 days)
// @Tags notifications
// @Produce json
// @Success 200 {object} models.NotificationGroups
// @Router /notifications [get]
// @Security BearerAuth
func (s *Server) ListNotifications(c *fiber.Ctx) error {
	actorID, err := s.actor(c)
	if err != nil {
		return nil
	}

	groups, err := s.svc.Notifications.List(c.UserContext(), actorID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(groups)
}

func (s *Server) UnreadCount(c *fiber.Ctx) error {
	actorID, err := s.actor(c)
	if err != nil {
		return nil
	}

	count, err := s.svc.Notifications.UnreadCount(c.UserContext(), actorID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"unread": count})
}

// MarkRead marks one of the caller's notifications as read.
func (s *Server) MarkRead(c *fiber.Ctx) error {
	actorID, err := s.actor(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.svc.Notifications.MarkRead(c.UserContext(), id, actorID); err != nil {
		return respondErr(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) MarkAllRead(c *fiber.Ctx) error {
	actorID, err := s.actor(c)
	if err != nil {
		return nil
	}

	updated, err := s.svc.Notifications.MarkAllRead(c.UserContext(), actorID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"updated": updated})
}
