package middleware

import (
	"context"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"

	"github.com/InbalMary/mistertoy-mongo-backend/internal/domain/entity"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/infrastructure/firebase"
	"github.com/InbalMary/mistertoy-mongo-backend/pkg/errors"
	"github.com/InbalMary/mistertoy-mongo-backend/pkg/response"
)

const identityKey = "identity"

type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
}

// NewAuthMiddleware accepts a nil verifier, in which case every protected route is refused.
func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

// Authenticate requires a valid Firebase ID token and stores the caller identity.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		idToken, err := bearerToken(c)
		if err != nil {
			return response.Error(c, err)
		}

		identity, err := m.verify(c.Request().Context(), idToken)
		if err != nil {
			return response.Error(c, err)
		}

		c.Set(identityKey, identity)
		return next(c)
	}
}

// Optional stores the caller identity when a valid token is present and lets
// anonymous requests through. The websocket upgrade uses it.
func (m *AuthMiddleware) Optional(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		idToken, err := bearerToken(c)
		if err == nil {
			if identity, err := m.verify(c.Request().Context(), idToken); err == nil {
				c.Set(identityKey, identity)
			}
		}
		return next(c)
	}
}

func (m *AuthMiddleware) verify(ctx context.Context, idToken string) (*entity.Identity, error) {
	if m.verifier == nil {
		return nil, errors.Unauthorized("Authentication is not configured", nil)
	}
	token, err := m.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, errors.Unauthorized("Invalid or expired token", err)
	}
	return firebase.IdentityFromToken(token), nil
}

// bearerToken reads the Authorization header. Browsers cannot set headers on a
// websocket handshake, so the token query parameter is accepted too.
func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		if token := c.QueryParam("token"); token != "" {
			return token, nil
		}
		return "", errors.Unauthorized("Authorization header is required", nil)
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errors.Unauthorized("Invalid authorization format", nil)
	}
	return parts[1], nil
}

// IdentityFrom returns the caller stored by Authenticate or Optional, or nil.
func IdentityFrom(c echo.Context) *entity.Identity {
	identity, _ := c.Get(identityKey).(*entity.Identity)
	return identity
}

// WithIdentity stores identity on c. Handler tests use it in place of a token.
func WithIdentity(c echo.Context, identity *entity.Identity) {
	c.Set(identityKey, identity)
}
