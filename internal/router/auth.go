package router

import (
	"net/http"

	"github.com/deppfellow/stockroom/internal/handler"
	"github.com/deppfellow/stockroom/internal/middleware"
	"github.com/labstack/echo/v4"
)

// registerAuthRoutes mounts login and logout publicly and account
// management behind the access guard.
func registerAuthRoutes(r *echo.Echo, h *handler.Handlers, m *middleware.Middlewares) {
	auth := r.Group("/auth")
	base := h.Auth.Handler

	auth.GET("/login", handler.Handle(base, h.Auth.LoginPage, http.StatusOK, &handler.EmptyRequest{}))
	auth.POST("/login", handler.Handle(base, h.Auth.Login, http.StatusOK, &handler.LoginRequest{}), m.RateLimit.LoginLimiter())
	auth.POST("/logout", handler.HandleNoContent(base, h.Auth.Logout, http.StatusNoContent, &handler.EmptyRequest{}))

	guarded := auth.Group("", m.Auth.RequireSession)
	guarded.GET("/me", handler.Handle(base, h.Auth.Me, http.StatusOK, &handler.EmptyRequest{}))
	guarded.GET("/roles", handler.Handle(base, h.Auth.Roles, http.StatusOK, &handler.EmptyRequest{}))
	guarded.GET("/users", handler.Handle(base, h.Auth.ListUsers, http.StatusOK, &handler.EmptyRequest{}))
	guarded.POST("/users", handler.Handle(base, h.Auth.CreateUser, http.StatusCreated, &handler.CreateUserRequest{}))
	guarded.PUT("/users/:id", handler.HandleNoContent(base, h.Auth.UpdateUser, http.StatusNoContent, &handler.UpdateUserRequest{}))
	guarded.DELETE("/users/:id", handler.HandleNoContent(base, h.Auth.DeleteUser, http.StatusNoContent, &handler.IDRequest{}))
}
