// Package router wires handlers and guards onto echo routes.
package router

import (
	"notekeeper/internal/delivery/api/middleware"
	"notekeeper/internal/delivery/api/router/handler"
	"notekeeper/internal/domain/entity"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler    *handler.AuthHandler
	UserHandler    *handler.UserHandler
	HealthHandler  *handler.HealthHandler
	AuthMiddleware *middleware.AuthMiddleware
	RateLimit      *middleware.RateLimitMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler    *handler.AuthHandler
	userHandler    *handler.UserHandler
	healthHandler  *handler.HealthHandler
	authMiddleware *middleware.AuthMiddleware
	rateLimit      *middleware.RateLimitMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:    params.AuthHandler,
		userHandler:    params.UserHandler,
		healthHandler:  params.HealthHandler,
		authMiddleware: params.AuthMiddleware,
		rateLimit:      params.RateLimit,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", r.healthHandler.Health)

	v1 := e.Group("/v1")
	v1.GET("/status", r.healthHandler.Status)

	// Public credential exchanges, throttled per client
	authGroup := v1.Group("/auth", r.rateLimit.Handle)
	{
		authGroup.POST("/register", r.authHandler.Register)
		authGroup.POST("/login", r.authHandler.Login)
		authGroup.POST("/refresh-token", r.authHandler.RefreshToken)
		authGroup.POST("/facebook", r.authHandler.Facebook)
		authGroup.POST("/google", r.authHandler.Google)
	}

	usersGroup := v1.Group("/users")
	{
		usersGroup.GET("/profile", r.userHandler.GetProfile, r.authMiddleware.Require(entity.PermissionLogged))
		usersGroup.GET("/:"+middleware.TargetUserParam, r.userHandler.GetUser, r.authMiddleware.Require(entity.PermissionLoggedUser))
		usersGroup.GET("", r.userHandler.FindByEmail, r.authMiddleware.Require(entity.PermissionAdmin))
	}
}
