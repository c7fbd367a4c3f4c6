package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/InbalMary/mistertoy-mongo-backend/internal/infrastructure/ratelimit"
	"github.com/InbalMary/mistertoy-mongo-backend/pkg/errors"
	"github.com/InbalMary/mistertoy-mongo-backend/pkg/logger"
	"github.com/InbalMary/mistertoy-mongo-backend/pkg/response"
)

// RateLimit throttles action per caller. Authenticated callers are keyed by
// user id, everyone else by client IP.
func RateLimit(limiter *ratelimit.Limiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if identity := IdentityFrom(c); identity != nil {
				key = identity.ID
			}

			if ok, wait := limiter.Allow(key, action); !ok {
				logger.Warn("RATE LIMIT: blocked %s from %s (retry in %v)", action, key, wait)
				c.Response().Header().Set("Retry-After", fmt.Sprintf("%d", int(wait.Seconds())+1))
				return response.Error(c, errors.RateLimited("Rate limit exceeded"))
			}
			return next(c)
		}
	}
}
