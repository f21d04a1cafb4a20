// Package auth resolves bearer tokens to the profile ID of the caller.
package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrInvalidToken is returned for tokens that are malformed, expired,
// badly signed, or that do not name a known user.
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenVerifier turns a bearer credential into a profile ID.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (uuid.UUID, error)
}

// Identity resolves a checked credential to a profile ID. It may hit the
// profile store.
type Identity func(ctx context.Context) (uuid.UUID, error)

// DeferredVerifier checks a token without touching the profile store and
// hands back the lookup to run once the rest of the request is valid.
type DeferredVerifier interface {
	VerifyDeferred(ctx context.Context, token string) (Identity, error)
}
