package handler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/deppfellow/stockroom/internal/repository"
	"github.com/deppfellow/stockroom/internal/server"
	"github.com/deppfellow/stockroom/internal/service"
	"github.com/deppfellow/stockroom/internal/validation"
	"github.com/labstack/echo/v4"
)

// LowStockRequest selects products whose minimum stock is at or below
// Threshold. Zero means repository.DefaultLowStockThreshold.
type LowStockRequest struct {
	Threshold int32 `query:"threshold" validate:"min=0"`
}

func (r *LowStockRequest) Validate() error {
	return validation.Validator().Struct(r)
}

type LowStockResponse struct {
	Threshold int32                     `json:"threshold"`
	Items     []repository.LowStockItem `json:"items"`
}

type ReportHandler struct {
	Handler
	catalogService *service.CatalogService
}

func NewReportHandler(s *server.Server, catalogService *service.CatalogService) *ReportHandler {
	return &ReportHandler{
		Handler:        NewHandler(s),
		catalogService: catalogService,
	}
}

func effectiveThreshold(requested int32) int32 {
	if requested <= 0 {
		return repository.DefaultLowStockThreshold
	}
	return requested
}

func (h *ReportHandler) LowStock(c echo.Context, req *LowStockRequest) (*LowStockResponse, error) {
	items, err := h.catalogService.LowStock(c.Request().Context(), req.Threshold)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []repository.LowStockItem{}
	}

	return &LowStockResponse{
		Threshold: effectiveThreshold(req.Threshold),
		Items:     items,
	}, nil
}

// LowStockCSV renders the same report as a spreadsheet-friendly download.
func (h *ReportHandler) LowStockCSV(c echo.Context, req *LowStockRequest) ([]byte, error) {
	items, err := h.catalogService.LowStock(c.Request().Context(), req.Threshold)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"id", "name", "category", "sale_price", "min_stock"})
	for _, item := range items {
		_ = w.Write([]string{
			strconv.FormatInt(item.ID, 10),
			item.Name,
			item.Category,
			item.SalePrice.StringFixed(2),
			strconv.FormatInt(int64(item.MinStock), 10),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("writing low stock csv: %w", err)
	}

	return buf.Bytes(), nil
}
