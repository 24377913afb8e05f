package server

import (
	"github.com/gofiber/fiber/v2"
)

// Follow godoc
// @Summary Follow an identity
// @Tags graph
// @Produce json
// @Param id path int true "Identity to follow"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} models.ErrorResponse
// @Router /identities/{id}/follow [post]
// @Security BearerAuth
func (s *Server) Follow(c *fiber.Ctx) error {
	actorID, err := s.actor(c)
	if err != nil {
		return nil
	}
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	changed, err := s.svc.Graph.Follow(c.UserContext(), actorID, targetID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"following": true, "changed": changed})
}

// Unfollow removes the caller's follow of :id. Removing an absent edge is not an error.
func (s *Server) Unfollow(c *fiber.Ctx) error {
	actorID, err := s.actor(c)
	if err != nil {
		return nil
	}
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	changed, err := s.svc.Graph.Unfollow(c.UserContext(), actorID, targetID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"following": false, "changed": changed})
}

// FollowingStatus reports whether the caller follows :id.
func (s *Server) FollowingStatus(c *fiber.Ctx) error {
	actorID, err := s.actor(c)
	if err != nil {
		return nil
	}
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	following, err := s.svc.Graph.IsFollowing(c.UserContext(), actorID, targetID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"following": following})
}

func (s *Server) ListFollowers(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, defaultPageSize)

	followers, err := s.svc.Graph.ListFollowers(c.UserContext(), id, page.Limit, page.Offset)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(followers)
}

func (s *Server) ListFollowing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, defaultPageSize)

	following, err := s.svc.Graph.ListFollowing(c.UserContext(), id, page.Limit, page.Offset)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(following)
}
