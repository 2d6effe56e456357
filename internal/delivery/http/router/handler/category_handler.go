package handler

import (
	"inkwell/internal/delivery/http/response"
	"inkwell/internal/domain/entity"
	"inkwell/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// CategoryHandler exposes the category endpoints.
type CategoryHandler struct {
	categoryUsecase usecase.CategoryUsecase
}

// CategoryHandlerParams holds dependencies for CategoryHandler, injected by Fx.
type CategoryHandlerParams struct {
	fx.In

	CategoryUsecase usecase.CategoryUsecase
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(params CategoryHandlerParams) *CategoryHandler {
	return &CategoryHandler{categoryUsecase: params.CategoryUsecase}
}

type createCategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

func toCategoryView(category *entity.Category) *categoryView {
	return &categoryView{
		ID:          category.ID.String(),
		Name:        category.Name,
		Description: category.Description,
	}
}

// List handles GET /api/categories.
func (h *CategoryHandler) List(c echo.Context) error {
	categories, err := h.categoryUsecase.ListCategories(c.Request().Context())
	if err != nil {
		return err
	}

	views := make([]*categoryView, 0, len(categories))
	for _, category := range categories {
		views = append(views, toCategoryView(category))
	}

	return response.OK(c, views)
}

// Create handles POST /api/categories. Requires authentication.
func (h *CategoryHandler) Create(c echo.Context) error {
	var req createCategoryRequest
	if err := c.Bind(&req); err != nil {
		return errors.Wrap(err, "failed to bind category request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	category, err := h.categoryUsecase.CreateCategory(c.Request().Context(), &usecase.CreateCategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return err
	}

	return response.Created(c, toCategoryView(category))
}
