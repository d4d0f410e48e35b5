package handler

import (
	"github.com/deppfellow/stockroom/internal/server"
	"github.com/deppfellow/stockroom/internal/service"
)

// Handlers groups every HTTP handler so the router takes a single value.
type Handlers struct {
	Health   *HealthHandler
	Auth     *AuthHandler
	Category *CategoryHandler
	Report   *ReportHandler
}

func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Health:   NewHealthHandler(s),
		Auth:     NewAuthHandler(s, services.Auth),
		Category: NewCategoryHandler(s, services.Catalog),
		Report:   NewReportHandler(s, services.Catalog),
	}
}
