package handler

import (
	"github.com/deppfellow/stockroom/internal/repository"
	"github.com/deppfellow/stockroom/internal/server"
	"github.com/deppfellow/stockroom/internal/service"
	"github.com/deppfellow/stockroom/internal/validation"
	"github.com/labstack/echo/v4"
)

type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

func (r *CreateCategoryRequest) Validate() error {
	return validation.Validator().Struct(r)
}

type RenameCategoryRequest struct {
	ID   int64  `param:"id" validate:"required,gt=0"`
	Name string `json:"name" validate:"required,max=100"`
}

func (r *RenameCategoryRequest) Validate() error {
	return validation.Validator().Struct(r)
}

type CategoryHandler struct {
	Handler
	catalogService *service.CatalogService
}

func NewCategoryHandler(s *server.Server, catalogService *service.CatalogService) *CategoryHandler {
	return &CategoryHandler{
		Handler:        NewHandler(s),
		catalogService: catalogService,
	}
}

func (h *CategoryHandler) List(c echo.Context, _ *EmptyRequest) ([]repository.Category, error) {
	return h.catalogService.ListCategories(c.Request().Context())
}

func (h *CategoryHandler) Create(c echo.Context, req *CreateCategoryRequest) (*repository.Category, error) {
	return h.catalogService.CreateCategory(c.Request().Context(), req.Name)
}

func (h *CategoryHandler) Rename(c echo.Context, req *RenameCategoryRequest) (*repository.Category, error) {
	return h.catalogService.RenameCategory(c.Request().Context(), req.ID, req.Name)
}

func (h *CategoryHandler) Delete(c echo.Context, req *IDRequest) error {
	return h.catalogService.DeleteCategory(c.Request().Context(), req.ID)
}
