package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/xapps/user-management-service/internal/api/metrics"
	"github.com/xapps/user-management-service/internal/core/domain"
)

// RequireRoles blocks the request unless the principal holds one of the
// allowed roles. Must run after Auth.
func RequireRoles(allowed ...domain.RoleName) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal := PrincipalFrom(c)
			if principal == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
			}

			decision := decide(domain.AuthorizationRequest{
				Principal:    principal,
				AllowedRoles: allowed,
			})
			if !decision.Allowed() {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}

// RequireRolesOrOwner additionally allows the owner of the targeted
// record, identified by the :id path parameter. Must run after Auth.
func RequireRolesOrOwner(allowed ...domain.RoleName) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal := PrincipalFrom(c)
			if principal == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
			}

			ownerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
			}

			decision := decide(domain.AuthorizationRequest{
				Principal:       principal,
				AllowedRoles:    allowed,
				ResourceOwnerID: &ownerID,
			})
			if !decision.Allowed() {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}

func decide(req domain.AuthorizationRequest) domain.Decision {
	decision := domain.Decide(req)
	metrics.AuthzDecisionsTotal.WithLabelValues(decision.String()).Inc()
	return decision
}
