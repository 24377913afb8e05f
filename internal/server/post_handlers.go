package server

import (
	"socialhub/internal/models"
	"socialhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePostRequest is the body of POST /api/posts. Body carries the text of
// a text post or the image reference of an image post.
type CreatePostRequest struct {
	Kind    models.PostKind `json:"kind" validate:"required,oneof=image text"`
	Body    string          `json:"body" validate:"required"`
	Caption string          `json:"caption"`
}

// CreatePost godoc
// @Summary Create a post
// @Tags posts
// @Accept json
// @Produce json
// @Param request body CreatePostRequest true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /posts [post]
// @Security BearerAuth
func (s *Server) CreatePost(c *fiber.Ctx) error {
	actorID, err := s.actor(c)
	if err != nil {
		return nil
	}

	var req CreatePostRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.svc.Content.CreatePost(c.UserContext(), service.CreatePostInput{
		AuthorID: actorID,
		Kind:     req.Kind,
		Body:     req.Body,
		Caption:  req.Caption,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost godoc
// @Summary Get a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
// @Security BearerAuth
func (s *Server) GetPost(c *fiber.Ctx) error {
	actorID, err := s.actor(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.svc.Content.GetPost(c.UserContext(), id, actorID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(post)
}

// DeletePost removes one of the caller's posts.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	actorID, err := s.actor(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.svc.Content.DeletePost(c.UserContext(), actorID, id); err != nil {
		return respondErr(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListIdentityPosts pages through one author's posts, newest first.
func (s *Server) ListIdentityPosts(c *fiber.Ctx) error {
	actorID, err := s.actor(c)
	if err != nil {
		return nil
	}
	authorID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, defaultPageSize)

	posts, err := s.svc.Content.ListPostsByAuthor(c.UserContext(), authorID, page.Limit, page.Offset, actorID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(posts)
}

// LikePost godoc
// @Summary Like a post
// @Description Idempotent; liking twice leaves one like
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} map[string]interface{}
// @Router /posts/{id}/like [post]
// @Security BearerAuth
func (s *Server) LikePost(c *fiber.Ctx) error {
	actorID, err := s.actor(c)
	if err != nil {
		return nil
	}
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	changed, err := s.svc.Engagement.Like(c.UserContext(), postID, actorID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"liked": true, "changed": changed})
}

func (s *Server) UnlikePost(c *fiber.Ctx) error {
	actorID, err := s.actor(c)
	if err != nil {
		return nil
	}
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	changed, err := s.svc.Engagement.Unlike(c.UserContext(), postID, actorID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"liked": false, "changed": changed})
}

// ListLikers returns the identities that liked :id.
func (s *Server) ListLikers(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, defaultPageSize)

	likers, err := s.svc.Engagement.ListLikers(c.UserContext(), postID, page.Limit, page.Offset)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(likers)
}
