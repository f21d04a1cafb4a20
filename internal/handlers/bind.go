package handlers

import (
	"encoding/json"
	"errors"

	"github.com/anonto42/mindhaven/backend/internal/apperrors"
	"github.com/anonto42/mindhaven/backend/internal/middleware"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// bindAndValidate decodes the JSON body into req and runs the registered
// validator. Both failures come back as validation errors.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return bindError(err)
	}
	return c.Validate(req)
}

func bindError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return apperrors.Validation("Invalid request body", map[string]string{field: "type"})
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return apperrors.Validation("Malformed JSON body", nil)
	}
	return apperrors.Validation("Invalid request body", nil)
}

func currentUserID(c echo.Context) (uuid.UUID, error) {
	return middleware.CurrentUserID(c)
}
