package server

import (
	"github.com/gofiber/fiber/v2"
)

// CreateCommentRequest is the body of POST /api/posts/:id/comments.
type CreateCommentRequest struct {
	Text string `json:"text" validate:"required"`
}

// ListComments returns a post's comments, newest first.
func (s *Server) ListComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, defaultPageSize)

	comments, err := s.svc.Engagement.ListComments(c.UserContext(), postID, page.Limit, page.Offset)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(comments)
}

// CreateComment godoc
// @Summary Comment on a post
// @Tags comments
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body CreateCommentRequest true "Comment"
// @Success 201 {object} models.Comment
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/comments [post]
// @Security BearerAuth
func (s *Server) CreateComment(c *fiber.Ctx) error {
	actorID, err := s.actor(c)
	if err != nil {
		return nil
	}
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req CreateCommentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	comment, err := s.svc.Engagement.AddComment(c.UserContext(), postID, actorID, req.Text)
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// DeleteComment removes a comment written by the caller.
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	actorID, err := s.actor(c)
	if err != nil {
		return nil
	}
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}

	if err := s.svc.Engagement.DeleteComment(c.UserContext(), postID, commentID, actorID); err != nil {
		return respondErr(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
