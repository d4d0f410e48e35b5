package handler

import (
	"github.com/deppfellow/stockroom/internal/middleware"
	"github.com/deppfellow/stockroom/internal/repository"
	"github.com/deppfellow/stockroom/internal/server"
	"github.com/deppfellow/stockroom/internal/service"
	"github.com/deppfellow/stockroom/internal/session"
	"github.com/deppfellow/stockroom/internal/validation"
	"github.com/labstack/echo/v4"
)

type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required,max=50"`
	Password string `json:"password" form:"password" validate:"required,max=72"`
}

func (r *LoginRequest) Validate() error {
	return validation.Validator().Struct(r)
}

type CreateUserRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Password        string `json:"password" validate:"required,max=72,password"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	RoleID          int64  `json:"role_id" validate:"required,gt=0"`
}

func (r *CreateUserRequest) Validate() error {
	return validation.Validator().Struct(r)
}

type UpdateUserRequest struct {
	ID       int64  `param:"id" validate:"required,gt=0"`
	Username string `json:"username" validate:"required,min=3,max=50,alphanum"`
	RoleID   int64  `json:"role_id" validate:"required,gt=0"`
}

func (r *UpdateUserRequest) Validate() error {
	return validation.Validator().Struct(r)
}

type LoginPageResponse struct {
	Authenticated bool   `json:"authenticated"`
	Message       string `json:"message,omitempty"`
}

type AuthHandler struct {
	Handler
	authService *service.AuthService
}

func NewAuthHandler(s *server.Server, authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		Handler:     NewHandler(s),
		authService: authService,
	}
}

// LoginPage hands out the message left by the access guard, once.
func (h *AuthHandler) LoginPage(c echo.Context, _ *EmptyRequest) (*LoginPageResponse, error) {
	_, authenticated := middleware.GetSession(c)
	if !authenticated {
		sess, err := h.server.Sessions.Current(c.Request().Context(), c.Request())
		authenticated = err == nil && sess != nil
	}

	return &LoginPageResponse{
		Authenticated: authenticated,
		Message:       h.authService.PendingFlash(c),
	}, nil
}

func (h *AuthHandler) Login(c echo.Context, req *LoginRequest) (*session.Session, error) {
	return h.authService.Login(c, req.Username, req.Password)
}

func (h *AuthHandler) Logout(c echo.Context, _ *EmptyRequest) error {
	return h.authService.Logout(c)
}

func (h *AuthHandler) Me(c echo.Context, _ *EmptyRequest) (*session.Session, error) {
	return currentSession(c)
}

func (h *AuthHandler) ListUsers(c echo.Context, _ *EmptyRequest) ([]map[string]any, error) {
	return h.authService.ListUsers(c.Request().Context())
}

func (h *AuthHandler) Roles(c echo.Context, _ *EmptyRequest) ([]repository.Role, error) {
	return h.authService.Roles(c.Request().Context())
}

func (h *AuthHandler) CreateUser(c echo.Context, req *CreateUserRequest) (*repository.Credential, error) {
	actor, err := currentSession(c)
	if err != nil {
		return nil, err
	}
	return h.authService.Register(c.Request().Context(), actor, req.Username, req.Password, req.RoleID)
}

func (h *AuthHandler) UpdateUser(c echo.Context, req *UpdateUserRequest) error {
	return h.authService.UpdateUser(c.Request().Context(), req.ID, req.Username, req.RoleID)
}

func (h *AuthHandler) DeleteUser(c echo.Context, req *IDRequest) error {
	actor, err := currentSession(c)
	if err != nil {
		return err
	}
	return h.authService.DeleteUser(c.Request().Context(), actor, req.ID)
}
