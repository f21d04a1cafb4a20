package auth

import (
	"context"
	"errors"
	"fmt"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/anonto42/mindhaven/backend/internal/models"
	"github.com/anonto42/mindhaven/backend/internal/repositories"
	"github.com/google/uuid"
)

// IDTokenVerifier is the subset of *firebaseauth.Client used here.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

type profileByFirebaseUID interface {
	GetByFirebaseUID(ctx context.Context, firebaseUID string) (*models.Profile, error)
}

// FirebaseVerifier verifies Firebase ID tokens and maps the Firebase UID to
// the linked profile.
type FirebaseVerifier struct {
	client   IDTokenVerifier
	profiles profileByFirebaseUID
}

func NewFirebaseVerifier(client IDTokenVerifier, profiles profileByFirebaseUID) *FirebaseVerifier {
	return &FirebaseVerifier{client: client, profiles: profiles}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (uuid.UUID, error) {
	resolve, err := v.VerifyDeferred(ctx, idToken)
	if err != nil {
		return uuid.Nil, err
	}
	return resolve(ctx)
}

// VerifyDeferred checks the ID token only. The profile lookup runs when the
// returned Identity is called.
func (v *FirebaseVerifier) VerifyDeferred(ctx context.Context, idToken string) (Identity, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	uid := token.UID
	return func(ctx context.Context) (uuid.UUID, error) {
		return v.profileID(ctx, uid)
	}, nil
}

func (v *FirebaseVerifier) profileID(ctx context.Context, uid string) (uuid.UUID, error) {
	profile, err := v.profiles.GetByFirebaseUID(ctx, uid)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return uuid.Nil, fmt.Errorf("%w: no profile linked to firebase uid", ErrInvalidToken)
		}
		return uuid.Nil, fmt.Errorf("lookup profile by firebase uid: %w", err)
	}
	return profile.ID, nil
}
