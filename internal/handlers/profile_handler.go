package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/anonto42/mindhaven/backend/internal/apperrors"
	"github.com/anonto42/mindhaven/backend/internal/models"
	"github.com/anonto42/mindhaven/backend/internal/repositories"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type profileLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// ProfileHandler serves read-only profile data. Profiles are written by the
// identity provider.
type ProfileHandler struct {
	profiles profileLookup
}

func NewProfileHandler(profiles profileLookup) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

func (h *ProfileHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.GetProfile)
	g.GET("/users/:id", h.GetUser)
}

// GetProfile returns the caller's full profile
func (h *ProfileHandler) GetProfile(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	profile, err := h.lookup(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": profile})
}

// GetUser returns the compact projection of another user
func (h *ProfileHandler) GetUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperrors.Validation("Invalid user ID", map[string]string{"id": "uuid"})
	}

	profile, err := h.lookup(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": profile.ToCompact()})
}

func (h *ProfileHandler) lookup(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	profile, err := h.profiles.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.NotFound("User profile not found")
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to load profile", err)
	}
	return profile, nil
}
