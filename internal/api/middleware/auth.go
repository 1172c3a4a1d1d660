package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/xapps/user-management-service/internal/core/domain"
	"github.com/xapps/user-management-service/internal/core/ports"
)

const principalKey = "principal"

// Auth requires a valid bearer token and injects the verified principal
// into the request context.
func Auth(tokens ports.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed authorization header")
			}

			principal, err := tokens.Verify(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(principalKey, principal)
			return next(c)
		}
	}
}

// OptionalAuth injects a principal when a valid bearer token is present
// and lets the request through anonymously otherwise. Used by the one
// endpoint that permits unauthenticated self-registration; the
// authorization decision downstream handles the anonymous case.
func OptionalAuth(tokens ports.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, ok := bearerToken(c); ok {
				if principal, err := tokens.Verify(raw); err == nil {
					c.Set(principalKey, principal)
				}
			}
			return next(c)
		}
	}
}

// PrincipalFrom returns the principal injected by Auth or OptionalAuth,
// or nil for an anonymous request.
func PrincipalFrom(c echo.Context) *domain.Principal {
	principal, _ := c.Get(principalKey).(*domain.Principal)
	return principal
}

func bearerToken(c echo.Context) (string, bool) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}
