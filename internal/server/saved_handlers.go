package server

import (
	"socialhub/internal/models"
	"socialhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SaveRequest is the body of POST /api/saved. Internal saves name a post;
// external saves carry the reference and the snapshot to keep.
type SaveRequest struct {
	Source      models.SourceKind    `json:"source" validate:"required,oneof=internal external"`
	PostID      uint                 `json:"post_id" validate:"required_if=Source internal"`
	ExternalRef string               `json:"external_ref" validate:"required_if=Source external"`
	Snapshot    models.SavedSnapshot `json:"snapshot"`
}

// SaveItem godoc
// @Summary Save a post or external item
// @Description Returns 201 when added and 200 when the item was already saved
// @Tags saved
// @Accept json
// @Produce json
// @Param request body SaveRequest true "Item"
// @Success 201 {object} models.SavedItem
// @Success 200 {object} models.SavedItem
// @Router /saved [post]
// @Security BearerAuth
func (s *Server) SaveItem(c *fiber.Ctx) error {
	actorID, err := s.actor(c)
	if err != nil {
		return nil
	}

	var req SaveRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	item, created, err := s.svc.Saved.Save(c.UserContext(), actorID, service.SaveInput{
		Source:      req.Source,
		PostID:      req.PostID,
		ExternalRef: req.ExternalRef,
		Snapshot:    req.Snapshot,
	})
	if err != nil {
		return respondErr(c, err)
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(item)
}

// UnsaveItem removes /saved/:source/:ref. For internal items ref is the post ID.
func (s *Server) UnsaveItem(c *fiber.Ctx) error {
	actorID, err := s.actor(c)
	if err != nil {
		return nil
	}

	removed, err := s.svc.Saved.Unsave(c.UserContext(), actorID,
		models.SourceKind(c.Params("source")), c.Params("ref"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"removed": removed})
}

func (s *Server) ListSaved(c *fiber.Ctx) error {
	actorID, err := s.actor(c)
	if err != nil {
		return nil
	}
	page := parsePagination(c, defaultPageSize)

	items, err := s.svc.Saved.ListSaved(c.UserContext(), actorID, page.Limit, page.Offset)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(items)
}
