package service

import (
	"context"

	"github.com/deppfellow/stockroom/internal/repository"
)

// CatalogService manages categories and stock reports.
type CatalogService struct {
	categories *repository.CategoryRepository
	products   *repository.ProductRepository
}

func NewCatalogService(categories *repository.CategoryRepository, products *repository.ProductRepository) *CatalogService {
	return &CatalogService{categories: categories, products: products}
}

func (s *CatalogService) CreateCategory(ctx context.Context, name string) (*repository.Category, error) {
	return s.categories.Create(ctx, name)
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]repository.Category, error) {
	return s.categories.List(ctx)
}

func (s *CatalogService) RenameCategory(ctx context.Context, id int64, name string) (*repository.Category, error) {
	return s.categories.Update(ctx, id, name)
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	return s.categories.Delete(ctx, id)
}

// LowStock lists products at or below threshold. A zero threshold means the
// default.
func (s *CatalogService) LowStock(ctx context.Context, threshold int32) ([]repository.LowStockItem, error) {
	if threshold == 0 {
		threshold = repository.DefaultLowStockThreshold
	}
	return s.products.ListLowStock(ctx, threshold)
}
