// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"

	"inkwell/internal/domain/entity"

	"github.com/pkg/errors"
)

// ErrCategoryNotFound is returned when a category is not found.
var ErrCategoryNotFound = errors.New("category not found")

// CategoryRepository defines the operations for category persistence.
type CategoryRepository interface {
	// List retrieves every category ordered by name.
	List(ctx context.Context) ([]*entity.Category, error)

	// FindByName retrieves a category by its unique name.
	FindByName(ctx context.Context, name string) (*entity.Category, error)

	// Create persists a new category.
	Create(ctx context.Context, category *entity.Category) error
}
