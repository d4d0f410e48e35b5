package repository

import (
	"context"
	"errors"

	"github.com/deppfellow/stockroom/internal/database"
)

// ErrDuplicateCategory is returned when a category name is already used,
// compared case-insensitively.
var ErrDuplicateCategory = errors.New("category already exists")

// ErrCategoryInUse is returned when a category still has products and
// cannot be deleted.
var ErrCategoryInUse = errors.New("category is still in use")

type Category struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

type CategoryRepository struct {
	exec *database.Executor
}

func NewCategoryRepository(exec *database.Executor) *CategoryRepository {
	return &CategoryRepository{exec: exec}
}

func ensureCategoryFree(ctx context.Context, scope *database.Scope, name string, exceptID int64) error {
	var existing int64
	err := scope.FetchOne(ctx, &existing,
		`SELECT id FROM categories WHERE LOWER(name) = LOWER($1) AND id <> $2`, name, exceptID)
	switch {
	case err == nil:
		return ErrDuplicateCategory
	case errors.Is(err, database.ErrNotFound):
		return nil
	default:
		return err
	}
}

func (r *CategoryRepository) Create(ctx context.Context, name string) (*Category, error) {
	var category Category
	err := r.exec.WithTx(ctx, func(scope *database.Scope) error {
		if err := ensureCategoryFree(ctx, scope, name, 0); err != nil {
			return err
		}
		return scope.ExecuteReturning(ctx, &category,
			`INSERT INTO categories (name) VALUES ($1) RETURNING id, name`, name)
	})
	if isUniqueViolation(err) {
		return nil, ErrDuplicateCategory
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *CategoryRepository) List(ctx context.Context) ([]Category, error) {
	categories := []Category{}
	if err := r.exec.FetchAll(ctx, &categories, `SELECT id, name FROM categories ORDER BY name`); err != nil {
		return nil, err
	}
	return categories, nil
}

// Update renames a category, keeping names unique regardless of case.
func (r *CategoryRepository) Update(ctx context.Context, id int64, name string) (*Category, error) {
	var category Category
	err := r.exec.WithTx(ctx, func(scope *database.Scope) error {
		if err := ensureCategoryFree(ctx, scope, name, id); err != nil {
			return err
		}
		return scope.ExecuteReturning(ctx, &category,
			`UPDATE categories SET name = $1 WHERE id = $2 RETURNING id, name`, name, id)
	})
	if isUniqueViolation(err) {
		return nil, ErrDuplicateCategory
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	affected, err := r.exec.Execute(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		return ErrCategoryInUse
	}
	if err != nil {
		return err
	}
	if affected == 0 {
		return database.ErrNotFound
	}
	return nil
}
