package router

import (
	"context"
	"io"
	"testing"
	"time"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/anonto42/mindhaven/backend/internal/auth"
	"github.com/anonto42/mindhaven/backend/internal/mailer"
	"github.com/anonto42/mindhaven/backend/internal/payments"
	"github.com/anonto42/mindhaven/backend/internal/ratelimit"
	"github.com/anonto42/mindhaven/backend/pkg/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubIDTokens struct{}

func (stubIDTokens) VerifyIDToken(context.Context, string) (*firebaseauth.Token, error) {
	return &firebaseauth.Token{UID: "uid"}, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestBuildVerifier(t *testing.T) {
	v, err := buildVerifier(&config.Config{AuthProvider: config.AuthProviderJWT, JWTSecret: "s"}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &auth.JWTVerifier{}, v)

	_, err = buildVerifier(&config.Config{AuthProvider: config.AuthProviderJWT}, nil, nil)
	assert.Error(t, err)

	v, err = buildVerifier(&config.Config{AuthProvider: config.AuthProviderFirebase}, stubIDTokens{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &auth.FirebaseVerifier{}, v)

	_, err = buildVerifier(&config.Config{AuthProvider: config.AuthProviderFirebase}, nil, nil)
	assert.Error(t, err)

	_, err = buildVerifier(&config.Config{AuthProvider: "saml"}, nil, nil)
	assert.Error(t, err)
}

func TestFallbacksWithoutExternalServices(t *testing.T) {
	cfg := &config.Config{ResetRequestsPerHour: 3, ResetTokenTTL: time.Hour}

	assert.IsType(t, &ratelimit.MemoryLimiter{}, buildLimiter(cfg, nil))
	assert.IsType(t, &mailer.LogMailer{}, buildMailer(cfg, quietLogger()))
	assert.IsType(t, payments.NopProvider{}, buildProvider(cfg, quietLogger()))

	cfg.ResendAPIKey = "re_test"
	cfg.StripeSecretKey = "sk_test"
	assert.IsType(t, &mailer.ResendMailer{}, buildMailer(cfg, quietLogger()))
	assert.IsType(t, &payments.StripeProvider{}, buildProvider(cfg, quietLogger()))
}
