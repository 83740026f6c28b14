package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"golang.org/x/time/rate"

	"github.com/samcharles93/stratum/pkg/metrics"
)

// RequestID stamps every response with a request id for log correlation.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			c.Response().Header().Set("X-Request-Id", "req_"+uuid.NewString())
			return next(c)
		}
	}
}

// RequestMetrics records request counts and durations per method/path.
func RequestMetrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			start := time.Now()
			err := next(c)

			r := c.Request()
			status := 0
			if resp, _ := echo.UnwrapResponse(c.Response()); resp != nil {
				status = resp.Status
			}
			if err != nil && status < http.StatusBadRequest {
				status = http.StatusInternalServerError
			}
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).
				Observe(time.Since(start).Seconds())
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(status)).Inc()
			return err
		}
	}
}

// RateLimit bounds request throughput with one shared token bucket.
// rps <= 0 disables the limiter.
func RateLimit(rps float64, burst int) echo.MiddlewareFunc {
	var limiter *rate.Limiter
	if rps > 0 {
		if burst <= 0 {
			burst = int(rps)
			if burst == 0 {
				burst = 1
			}
		}
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			if limiter != nil && !limiter.Allow() {
				return writeError(c, http.StatusTooManyRequests, "rate_limit_error", "request rate limit exceeded")
			}
			return next(c)
		}
	}
}
