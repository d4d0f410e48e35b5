package repository

import (
	"context"

	"github.com/deppfellow/stockroom/internal/database"
	"github.com/shopspring/decimal"
)

// DefaultLowStockThreshold is the stock level at or below which a product is
// reported as running low.
const DefaultLowStockThreshold = 30

// LowStockItem is one row of the low-stock report.
type LowStockItem struct {
	ID        int64           `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Category  string          `db:"category" json:"category"`
	SalePrice decimal.Decimal `db:"sale_price" json:"sale_price"`
	MinStock  int32           `db:"min_stock" json:"min_stock"`
}

type ProductRepository struct {
	exec *database.Executor
}

func NewProductRepository(exec *database.Executor) *ProductRepository {
	return &ProductRepository{exec: exec}
}

// ListLowStock returns products whose stock is at or below threshold, lowest
// first.
func (r *ProductRepository) ListLowStock(ctx context.Context, threshold int32) ([]LowStockItem, error) {
	items := []LowStockItem{}
	err := r.exec.FetchAll(ctx, &items, `
		SELECT p.id, p.name, c.name AS category, p.sale_price, p.min_stock
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.min_stock <= $1
		ORDER BY p.min_stock ASC, p.id ASC`, threshold)
	if err != nil {
		return nil, err
	}
	return items, nil
}
