package server

import (
	"github.com/gofiber/fiber/v2"
)

// CreateStoryRequest is the body of POST /api/stories.
type CreateStoryRequest struct {
	ImageRef string `json:"image_ref" validate:"required"`
}

// CreateStory godoc
// @Summary Post a story
// @Description Stories expire 24 hours after creation
// @Tags stories
// @Accept json
// @Produce json
// @Param request body CreateStoryRequest true "Story"
// @Success 201 {object} models.Story
// @Router /stories [post]
// @Security BearerAuth
func (s *Server) CreateStory(c *fiber.Ctx) error {
	actorID, err := s.actor(c)
	if err != nil {
		return nil
	}

	var req CreateStoryRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	story, err := s.svc.Content.CreateStory(c.UserContext(), actorID, req.ImageRef)
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(story)
}

// ListStories returns the active stories of the caller and the identities they follow.
func (s *Server) ListStories(c *fiber.Ctx) error {
	actorID, err := s.actor(c)
	if err != nil {
		return nil
	}

	stories, err := s.svc.Content.ListActiveStories(c.UserContext(), actorID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(stories)
}
