package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/anonto42/mindhaven/backend/internal/apperrors"
	"github.com/anonto42/mindhaven/backend/internal/models"
	"github.com/anonto42/mindhaven/backend/internal/services"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	msgAlreadyMatched = "You already have an active buddy match"
	msgMatchFound     = "Match found!"
	msgMatchPending   = "Match request submitted! We'll notify you when we find a compatible buddy."
)

type buddyMatcher interface {
	RequestMatch(ctx context.Context, userID uuid.UUID, prefs *models.MatchPreferences) (*services.MatchResult, error)
	CurrentMatch(ctx context.Context, userID uuid.UUID) (*services.CurrentMatch, error)
	History(ctx context.Context, userID uuid.UUID, limit int64) ([]models.MatchEvent, error)
}

// BuddyMatchHandler handles buddy matching HTTP requests
type BuddyMatchHandler struct {
	matcher buddyMatcher
}

// NewBuddyMatchHandler creates a new BuddyMatchHandler
func NewBuddyMatchHandler(matcher buddyMatcher) *BuddyMatchHandler {
	return &BuddyMatchHandler{matcher: matcher}
}

// RegisterBuddyMatchRoutes registers buddy match routes
func (h *BuddyMatchHandler) RegisterBuddyMatchRoutes(g *echo.Group) {
	g.POST("/buddy/match", h.RequestMatch)
	g.GET("/buddy/match", h.GetCurrentMatch)
	g.GET("/buddy/match/history", h.GetHistory)
}

// RequestMatch joins a compatible pending request or files a new one
func (h *BuddyMatchHandler) RequestMatch(c echo.Context) error {
	var req models.BuddyMatchRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	callerID, err := currentUserID(c)
	if err != nil {
		return err
	}
	requestedID, err := uuid.Parse(req.UserID)
	if err != nil {
		return apperrors.Validation("Invalid request body", map[string]string{"userId": "uuid"})
	}
	if requestedID != callerID {
		return apperrors.Authorization("You can only request a buddy match for yourself")
	}

	result, err := h.matcher.RequestMatch(c.Request().Context(), callerID, req.Preferences)
	if err != nil {
		return err
	}

	switch result.Outcome {
	case models.MatchOutcomeAlreadyMatched:
		return c.JSON(http.StatusOK, echo.Map{
			"success": false,
			"message": msgAlreadyMatched,
			"match":   result.Match,
		})
	case models.MatchOutcomeMatched:
		return c.JSON(http.StatusOK, echo.Map{
			"success":      true,
			"message":      msgMatchFound,
			"match":        result.Match,
			"buddyProfile": result.BuddyProfile,
		})
	default:
		return c.JSON(http.StatusOK, echo.Map{
			"success": true,
			"message": msgMatchPending,
			"pending": true,
			"request": result.Request,
		})
	}
}

// GetCurrentMatch returns the caller's active match or open request
func (h *BuddyMatchHandler) GetCurrentMatch(c echo.Context) error {
	callerID, err := currentUserID(c)
	if err != nil {
		return err
	}

	current, err := h.matcher.CurrentMatch(c.Request().Context(), callerID)
	if err != nil {
		return err
	}

	if current.Match != nil {
		return c.JSON(http.StatusOK, echo.Map{"success": true, "match": current.Match})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "pending": true, "request": current.Request})
}

// GetHistory returns the caller's recent match attempts
func (h *BuddyMatchHandler) GetHistory(c echo.Context) error {
	callerID, err := currentUserID(c)
	if err != nil {
		return err
	}

	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	history, err := h.matcher.History(c.Request().Context(), callerID, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"events": history}})
}
