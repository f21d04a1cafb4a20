package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/anonto42/mindhaven/backend/internal/apperrors"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type errorBody struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// ErrorHandler renders every handler error as
// {"success": false, "error": ..., "details": {...}}.
func ErrorHandler(log *logrus.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := render(err)
		if status >= http.StatusInternalServerError {
			log.WithError(err).WithFields(logrus.Fields{
				"method":     c.Request().Method,
				"path":       c.Path(),
				"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
			}).Error("request failed")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.WithError(err).Error("failed to write error response")
		}
	}
}

func render(err error) (int, errorBody) {
	if appErr, ok := apperrors.As(err); ok {
		msg := appErr.Message
		if appErr.Kind == apperrors.KindInternal && msg == "" {
			msg = "Internal server error"
		}
		return appErr.HTTPStatus(), errorBody{Error: msg, Details: appErr.Fields}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok {
			msg = s
		} else if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
		return he.Code, errorBody{Error: msg}
	}

	return http.StatusInternalServerError, errorBody{Error: "Internal server error"}
}

func statusOf(err error) int {
	status, _ := render(err)
	return status
}
