package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestObserver records one served request.
type RequestObserver func(route, method, status string, took time.Duration)

// Observe reports every request to observe and logs it at debug level.
func Observe(logger *slog.Logger, observe RequestObserver) echo.MiddlewareFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			took := time.Since(start)
			status := strconv.Itoa(c.Response().Status)
			if observe != nil {
				observe(c.Path(), c.Request().Method, status, took)
			}
			logger.Debug("http request",
				"method", c.Request().Method,
				"route", c.Path(),
				"status", c.Response().Status,
				"took", took,
				"request_id", c.Get("request_id"))
			return nil
		}
	}
}
