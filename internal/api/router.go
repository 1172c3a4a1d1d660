package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/xapps/user-management-service/docs"
	"github.com/xapps/user-management-service/internal/api/handler"
	"github.com/xapps/user-management-service/internal/api/middleware"
	"github.com/xapps/user-management-service/internal/core/domain"
	"github.com/xapps/user-management-service/internal/core/ports"
)

// NewRouter builds and returns the Echo instance with all routes
// registered. The caller owns service construction; the router only
// wires transport concerns around it.
func NewRouter(
	userService ports.UserService,
	tokens ports.TokenService,
	db *mongo.Database,
	rdb *redis.Client,
	log zerolog.Logger,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("user_directory"))

	userHandler := handler.NewUserHandler(userService)
	requireAuth := middleware.Auth(tokens)
	optionalAuth := middleware.OptionalAuth(tokens)
	adminOnly := middleware.RequireRoles(domain.RoleAdministrator)
	adminOrOwner := middleware.RequireRolesOrOwner(domain.RoleAdministrator)

	// --- User directory routes ---
	e.POST("/login", userHandler.Login)
	e.GET("/users", userHandler.ReadAll, requireAuth, adminOnly)
	e.GET("/users/:id", userHandler.Read, requireAuth, adminOrOwner)
	// Create and update render their authorization decision in the
	// service, where the decoded body (the pending role changes) is
	// available to the escalation guard.
	e.POST("/users", userHandler.Create, optionalAuth)
	e.PUT("/users/:id", userHandler.Update, requireAuth)
	e.DELETE("/users/:id", userHandler.Delete, requireAuth, adminOrOwner)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?

	// --- Observability & docs ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoswagger.WrapHandler)

	return e
}
