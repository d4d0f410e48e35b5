// Package handler holds the HTTP handlers. Handlers bind and validate a
// request DTO, call one service method and shape the response; they never
// touch the database directly.
package handler

import (
	"github.com/deppfellow/stockroom/internal/errs"
	"github.com/deppfellow/stockroom/internal/middleware"
	"github.com/deppfellow/stockroom/internal/session"
	"github.com/deppfellow/stockroom/internal/validation"
	"github.com/labstack/echo/v4"
)

// EmptyRequest is used by routes without input.
type EmptyRequest struct{}

func (r *EmptyRequest) Validate() error { return nil }

// IDRequest carries a numeric :id path parameter.
type IDRequest struct {
	ID int64 `param:"id" validate:"required,gt=0"`
}

func (r *IDRequest) Validate() error {
	return validation.Validator().Struct(r)
}

// currentSession returns the session placed by RequireSession.
func currentSession(c echo.Context) (*session.Session, error) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		return nil, errs.NewUnauthorizedError("Unauthorized", false)
	}
	return sess, nil
}
