package server

import (
	"socialhub/internal/middleware"
	"socialhub/internal/models"
	"socialhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// RegisterRequest is the body of POST /api/identities.
type RegisterRequest struct {
	Username        string `json:"username" validate:"required"`
	Bio             string `json:"bio" validate:"max=500"`
	ProfilePhotoRef string `json:"profile_photo_ref"`
	CoverPhotoRef   string `json:"cover_photo_ref"`
}

// UpdateProfileRequest is a partial profile update; absent fields are kept.
type UpdateProfileRequest struct {
	Username        *string `json:"username"`
	Bio             *string `json:"bio"`
	ProfilePhotoRef *string `json:"profile_photo_ref"`
	CoverPhotoRef   *string `json:"cover_photo_ref"`
}

// Register godoc
// @Summary Register an identity
// @Description Creates the identity for the verified token subject
// @Tags identities
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Profile"
// @Success 201 {object} models.Identity
// @Failure 409 {object} models.ErrorResponse
// @Router /identities [post]
// @Security BearerAuth
func (s *Server) Register(c *fiber.Ctx) error {
	subject, _ := c.Locals(middleware.LocalSubject).(string)
	if subject == "" {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authorization required"))
	}

	var req RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	identity, err := s.svc.Identity.Register(c.UserContext(), service.RegisterInput{
		ExternalID:      subject,
		Username:        req.Username,
		Bio:             req.Bio,
		ProfilePhotoRef: req.ProfilePhotoRef,
		CoverPhotoRef:   req.CoverPhotoRef,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(identity)
}

// GetMe returns the caller's profile.
func (s *Server) GetMe(c *fiber.Ctx) error {
	actorID, err := s.actor(c)
	if err != nil {
		return nil
	}
	identity, err := s.svc.Identity.GetProfile(c.UserContext(), actorID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(identity)
}

// UpdateMe godoc
// @Summary Update own profile
// @Tags identities
// @Accept json
// @Produce json
// @Param request body UpdateProfileRequest true "Changed fields"
// @Success 200 {object} models.Identity
// @Router /identities/me [put]
// @Security BearerAuth
func (s *Server) UpdateMe(c *fiber.Ctx) error {
	actorID, err := s.actor(c)
	if err != nil {
		return nil
	}

	var req UpdateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	identity, err := s.svc.Identity.UpdateProfile(c.UserContext(), actorID, actorID, service.UpdateProfileInput{
		Username:        req.Username,
		Bio:             req.Bio,
		ProfilePhotoRef: req.ProfilePhotoRef,
		CoverPhotoRef:   req.CoverPhotoRef,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(identity)
}

// SearchIdentities matches usernames by prefix.
func (s *Server) SearchIdentities(c *fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Query parameter q is required"))
	}
	page := parsePagination(c, defaultPageSize)

	found, err := s.svc.Identity.SearchByUsername(c.UserContext(), q, page.Limit)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(found)
}

// GetIdentity godoc
// @Summary Get a profile
// @Tags identities
// @Produce json
// @Param id path int true "Identity ID"
// @Success 200 {object} models.Identity
// @Failure 404 {object} models.ErrorResponse
// @Router /identities/{id} [get]
// @Security BearerAuth
func (s *Server) GetIdentity(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	identity, err := s.svc.Identity.GetProfile(c.UserContext(), id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(identity)
}
