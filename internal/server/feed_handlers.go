package server

import (
	"strconv"
	"time"

	"socialhub/internal/models"
	"socialhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// parseWindowBound reads an optional RFC3339 query parameter.
func parseWindowBound(c *fiber.Ctx, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(name+" must be an RFC3339 timestamp"))
		return time.Time{}, errResponseWritten
	}
	return t, nil
}

// GetFeed godoc
// @Summary Assemble the caller's feed
// @Description Posts in [start, end] newest first, joined with live author data
// @Tags feed
// @Produce json
// @Param start query string false "Window start (RFC3339), default end minus 24 hours"
// @Param end query string false "Window end (RFC3339), default now"
// @Param following query bool false "Only followed authors and the caller"
// @Param limit query int false "Maximum posts"
// @Success 200 {object} service.Feed
// @Failure 400 {object} models.ErrorResponse
// @Router /feed [get]
// @Security BearerAuth
func (s *Server) GetFeed(c *fiber.Ctx) error {
	actorID, err := s.actor(c)
	if err != nil {
		return nil
	}

	start, err := parseWindowBound(c, "start")
	if err != nil {
		return nil
	}
	end, err := parseWindowBound(c, "end")
	if err != nil {
		return nil
	}

	q := service.FeedQuery{
		ViewerID:    actorID,
		WindowStart: start,
		WindowEnd:   end,
		Limit:       parsePagination(c, defaultPageSize).Limit,
	}
	if raw := c.Query("following"); raw != "" {
		following, perr := strconv.ParseBool(raw)
		if perr != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("following must be a boolean"))
		}
		q.FollowingOnly = &following
	}

	feed, err := s.svc.Feed.GetFeed(c.UserContext(), q)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(feed)
}
