// Package firebase initialises the Firebase Admin SDK used to verify ID
// tokens when AUTH_PROVIDER=firebase.
package firebase

import (
	"context"
	"errors"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// App holds the initialized Firebase app and auth client
type App struct {
	FirebaseApp *firebase.App
	AuthClient  *auth.Client
}

// ErrCredentialsMissing is returned when the service account file is absent.
var ErrCredentialsMissing = errors.New("firebase credentials not found")

// InitFirebase initializes the Firebase application and authentication client
func InitFirebase(ctx context.Context, credentialsPath string, log *logrus.Logger) (*App, error) {
	if err := checkCredentials(credentialsPath); err != nil {
		return nil, err
	}

	firebaseApp, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase auth client: %w", err)
	}

	log.WithField("credentials", credentialsPath).Info("Firebase auth client initialized")
	return &App{FirebaseApp: firebaseApp, AuthClient: authClient}, nil
}

func checkCredentials(path string) error {
	if path == "" {
		return fmt.Errorf("%w: FIREBASE_CREDENTIALS_PATH is empty", ErrCredentialsMissing)
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: no file at %s", ErrCredentialsMissing, path)
	}
	if err != nil {
		return fmt.Errorf("stat firebase credentials: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrCredentialsMissing, path)
	}
	return nil
}
