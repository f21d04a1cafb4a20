package middleware

import (
	"errors"
	"strings"

	"github.com/anonto42/mindhaven/backend/internal/apperrors"
	"github.com/anonto42/mindhaven/backend/internal/auth"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	userIDKey       = "userID"
	userIdentityKey = "userIdentity"
)

// Authenticate requires a valid bearer token. The caller's profile ID is
// stored in the echo context, or, for verifiers that defer the profile
// lookup, resolved on the first CurrentUserID call.
func Authenticate(verifier auth.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return apperrors.Authentication("Missing Authorization header", nil)
			}

			// Expecting "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || strings.TrimSpace(parts[1]) == "" {
				return apperrors.Authentication("Invalid Authorization header format", nil)
			}
			token := strings.TrimSpace(parts[1])
			ctx := c.Request().Context()

			if deferred, ok := verifier.(auth.DeferredVerifier); ok {
				identity, err := deferred.VerifyDeferred(ctx, token)
				if err != nil {
					return verifyError(err)
				}
				c.Set(userIdentityKey, identity)
				return next(c)
			}

			userID, err := verifier.Verify(ctx, token)
			if err != nil {
				return verifyError(err)
			}
			c.Set(userIDKey, userID)
			return next(c)
		}
	}
}

// CurrentUserID returns the caller's profile ID set up by Authenticate.
func CurrentUserID(c echo.Context) (uuid.UUID, error) {
	if userID, ok := c.Get(userIDKey).(uuid.UUID); ok {
		return userID, nil
	}
	identity, ok := c.Get(userIdentityKey).(auth.Identity)
	if !ok {
		return uuid.Nil, apperrors.Authentication("User not authenticated", nil)
	}
	userID, err := identity(c.Request().Context())
	if err != nil {
		return uuid.Nil, verifyError(err)
	}
	c.Set(userIDKey, userID)
	return userID, nil
}

func verifyError(err error) error {
	if errors.Is(err, auth.ErrInvalidToken) {
		return apperrors.Authentication("Invalid or expired token", err)
	}
	return apperrors.Internal("Failed to verify token", err)
}
