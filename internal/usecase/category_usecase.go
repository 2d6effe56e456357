package usecase

import (
	"context"

	"inkwell/internal/domain/entity"
)

// CreateCategoryInput defines the data required to create a category.
type CreateCategoryInput struct {
	Name        string
	Description string
}

// CategoryUsecase defines the interface for category-related business operations.
type CategoryUsecase interface {
	ListCategories(ctx context.Context) ([]*entity.Category, error)
	CreateCategory(ctx context.Context, input *CreateCategoryInput) (*entity.Category, error)
}
