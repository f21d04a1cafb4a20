package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/mindhaven/backend/internal/models"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const msgResetRequested = "If an account exists for that email, a reset link has been sent."

type accessResetter interface {
	RequestReset(ctx context.Context, ip, email string) error
	VerifyReset(ctx context.Context, token string) (uuid.UUID, error)
}

// AccessResetHandler serves the public access reset endpoints
type AccessResetHandler struct {
	resetter accessResetter
}

func NewAccessResetHandler(resetter accessResetter) *AccessResetHandler {
	return &AccessResetHandler{resetter: resetter}
}

// RegisterAccessResetRoutes registers routes that need no bearer token
func (h *AccessResetHandler) RegisterAccessResetRoutes(g *echo.Group) {
	g.POST("/access-reset", h.RequestReset)
	g.POST("/access-reset/verify", h.VerifyReset)
}

func (h *AccessResetHandler) RequestReset(c echo.Context) error {
	var req models.AccessResetRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.resetter.RequestReset(c.Request().Context(), c.RealIP(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": msgResetRequested})
}

func (h *AccessResetHandler) VerifyReset(c echo.Context) error {
	var req models.AccessResetVerifyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	userID, err := h.resetter.VerifyReset(c.Request().Context(), req.Token)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"userId": userID}})
}
