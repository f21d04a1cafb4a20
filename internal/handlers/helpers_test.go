package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anonto42/mindhaven/backend/internal/auth"
	"github.com/anonto42/mindhaven/backend/internal/middleware"
	"github.com/anonto42/mindhaven/backend/pkg/config"
	"github.com/anonto42/mindhaven/backend/validators"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type tokenTable map[string]uuid.UUID

func (t tokenTable) Verify(_ context.Context, token string) (uuid.UUID, error) {
	id, ok := t[token]
	if !ok {
		return uuid.Nil, auth.ErrInvalidToken
	}
	return id, nil
}

// deferredTable checks tokens up front and counts the profile lookups
// made afterwards, like the Firebase verifier.
type deferredTable struct {
	tokens  tokenTable
	lookups int
}

func (d *deferredTable) Verify(ctx context.Context, token string) (uuid.UUID, error) {
	identity, err := d.VerifyDeferred(ctx, token)
	if err != nil {
		return uuid.Nil, err
	}
	return identity(ctx)
}

func (d *deferredTable) VerifyDeferred(_ context.Context, token string) (auth.Identity, error) {
	id, ok := d.tokens[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return func(context.Context) (uuid.UUID, error) {
		d.lookups++
		return id, nil
	}, nil
}

// newTestEcho wires the same middleware and error handling as the server.
func newTestEcho(tokens auth.TokenVerifier) (*echo.Echo, *echo.Group, *echo.Group) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	e.HTTPErrorHandler = middleware.ErrorHandler(log)
	config.SetupMiddleware(e, log)

	public := e.Group("/api/v1/auth")
	api := e.Group("/api/v1", middleware.Authenticate(tokens))
	return e, public, api
}

func doJSON(e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, rec.Code, rec.Body.String())
}
