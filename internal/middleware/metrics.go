package middleware

import (
	"strconv"
	"time"

	"github.com/anonto42/mindhaven/backend/pkg/metrics"
	"github.com/labstack/echo/v4"
)

// Metrics records request count and latency per route template.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			done := metrics.TrackInFlight()
			defer done()

			start := time.Now()
			err := next(c)

			// The error handler has not run yet, so derive the status it will write.
			status := c.Response().Status
			if err != nil {
				status = statusOf(err)
			}
			metrics.RecordHTTPRequest(c.Request().Method, c.Path(), strconv.Itoa(status), time.Since(start))
			return err
		}
	}
}
