package router

import (
	"net/http"

	"github.com/deppfellow/stockroom/internal/handler"
	"github.com/labstack/echo/v4"
)

// registerV1Routes mounts the inventory API. The group is already guarded.
func registerV1Routes(v1 *echo.Group, h *handler.Handlers) {
	categories := v1.Group("/categories")
	cat := h.Category.Handler
	categories.GET("", handler.Handle(cat, h.Category.List, http.StatusOK, &handler.EmptyRequest{}))
	categories.POST("", handler.Handle(cat, h.Category.Create, http.StatusCreated, &handler.CreateCategoryRequest{}))
	categories.PUT("/:id", handler.Handle(cat, h.Category.Rename, http.StatusOK, &handler.RenameCategoryRequest{}))
	categories.DELETE("/:id", handler.HandleNoContent(cat, h.Category.Delete, http.StatusNoContent, &handler.IDRequest{}))

	reports := v1.Group("/reports")
	rep := h.Report.Handler
	reports.GET("/low-stock", handler.Handle(rep, h.Report.LowStock, http.StatusOK, &handler.LowStockRequest{}))
	reports.GET("/low-stock.csv", handler.HandleFile(rep, h.Report.LowStockCSV, http.StatusOK, &handler.LowStockRequest{}, "low-stock.csv", "text/csv"))
}
