package repository

import (
	"context"
	"testing"

	"github.com/deppfellow/stockroom/internal/database"
	"github.com/deppfellow/stockroom/internal/database/dbtest"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Should create a category with a fresh name", func(t *testing.T) {
		pool, connector := dbtest.NewPool(t, dbtest.Options())
		repo := NewCategoryRepository(database.NewExecutor(pool))

		connector.Mock.ExpectBegin()
		connector.Mock.ExpectQuery(`SELECT id FROM categories WHERE LOWER\(name\) = LOWER\(\$1\)`).
			WithArgs("Tools", int64(0)).
			WillReturnRows(pgxmock.NewRows([]string{"id"}))
		connector.Mock.ExpectQuery(`INSERT INTO categories \(name\) VALUES \(\$1\) RETURNING id, name`).
			WithArgs("Tools").
			WillReturnRows(pgxmock.NewRows([]string{"id", "name"}).AddRow(int64(3), "Tools"))
		connector.Mock.ExpectCommit()

		category, err := repo.Create(ctx, "Tools")

		require.NoError(t, err)
		assert.Equal(t, &Category{ID: 3, Name: "Tools"}, category)
	})

	t.Run("Should reject a name that differs only in case", func(t *testing.T) {
		pool, connector := dbtest.NewPool(t, dbtest.Options())
		repo := NewCategoryRepository(database.NewExecutor(pool))

		connector.Mock.ExpectBegin()
		connector.Mock.ExpectQuery(`SELECT id FROM categories`).
			WithArgs("TOOLS", int64(0)).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))
		connector.Mock.ExpectRollback()

		_, err := repo.Create(ctx, "TOOLS")
		assert.ErrorIs(t, err, ErrDuplicateCategory)
	})

	t.Run("Should report a rename of a missing category", func(t *testing.T) {
		pool, connector := dbtest.NewPool(t, dbtest.Options())
		repo := NewCategoryRepository(database.NewExecutor(pool))

		connector.Mock.ExpectBegin()
		connector.Mock.ExpectQuery(`SELECT id FROM categories`).
			WithArgs("Paint", int64(40)).
			WillReturnRows(pgxmock.NewRows([]string{"id"}))
		connector.Mock.ExpectQuery(`UPDATE categories SET name = \$1 WHERE id = \$2 RETURNING id, name`).
			WithArgs("Paint", int64(40)).
			WillReturnRows(pgxmock.NewRows([]string{"id", "name"}))
		connector.Mock.ExpectRollback()

		_, err := repo.Update(ctx, 40, "Paint")
		assert.ErrorIs(t, err, database.ErrNotFound)
	})

	t.Run("Should list categories and delete by id", func(t *testing.T) {
		pool, connector := dbtest.NewPool(t, dbtest.Options())
		repo := NewCategoryRepository(database.NewExecutor(pool))

		connector.Mock.ExpectBegin()
		connector.Mock.ExpectQuery(`SELECT id, name FROM categories ORDER BY name`).
			WillReturnRows(pgxmock.NewRows([]string{"id", "name"}).
				AddRow(int64(2), "Paint").
				AddRow(int64(1), "Tools"))
		connector.Mock.ExpectCommit()
		connector.Mock.ExpectBegin()
		connector.Mock.ExpectExec(`DELETE FROM categories WHERE id = \$1`).
			WithArgs(int64(9)).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		connector.Mock.ExpectCommit()

		categories, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, categories, 2)

		assert.ErrorIs(t, repo.Delete(ctx, 9), database.ErrNotFound)
	})

	t.Run("Should refuse to delete a category that still has products", func(t *testing.T) {
		pool, connector := dbtest.NewPool(t, dbtest.Options())
		repo := NewCategoryRepository(database.NewExecutor(pool))

		connector.Mock.ExpectBegin()
		connector.Mock.ExpectExec(`DELETE FROM categories WHERE id = \$1`).
			WithArgs(int64(4)).
			WillReturnError(&pgconn.PgError{
				Code:   "23503",
				Detail: `Key (id)=(4) is still referenced from table "products".`,
			})
		connector.Mock.ExpectRollback()

		assert.ErrorIs(t, repo.Delete(ctx, 4), ErrCategoryInUse)
	})
}

func TestProductRepository_ListLowStock(t *testing.T) {
	ctx := context.Background()
	pool, connector := dbtest.NewPool(t, dbtest.Options())
	repo := NewProductRepository(database.NewExecutor(pool))

	connector.Mock.ExpectBegin()
	connector.Mock.ExpectQuery(`WHERE p.min_stock <= \$1`).
		WithArgs(int32(DefaultLowStockThreshold)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "category", "sale_price", "min_stock"}).
			AddRow(int64(4), "Hammer", "Tools", decimal.RequireFromString("12.50"), int32(3)).
			AddRow(int64(9), "Brush", "Paint", decimal.RequireFromString("4.99"), int32(30)))
	connector.Mock.ExpectCommit()

	items, err := repo.ListLowStock(ctx, DefaultLowStockThreshold)

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Hammer", items[0].Name)
	assert.True(t, decimal.RequireFromString("12.5").Equal(items[0].SalePrice))
	assert.Equal(t, int32(30), items[1].MinStock)
}
