package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/mindhaven/backend/internal/models"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type subscriptionSyncer interface {
	SyncStatus(ctx context.Context, userID uuid.UUID) (*models.SubscriptionStatusResponse, error)
}

// SubscriptionHandler exposes the caller's plan tier
type SubscriptionHandler struct {
	syncer subscriptionSyncer
}

func NewSubscriptionHandler(syncer subscriptionSyncer) *SubscriptionHandler {
	return &SubscriptionHandler{syncer: syncer}
}

func (h *SubscriptionHandler) RegisterSubscriptionRoutes(g *echo.Group) {
	g.POST("/subscription/status", h.SyncStatus)
}

// SyncStatus refreshes and returns the caller's subscription tier
func (h *SubscriptionHandler) SyncStatus(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	status, err := h.syncer.SyncStatus(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": status})
}
