package postgres

import (
	"context"
	"strings"

	"inkwell/internal/domain/entity"
	domainerrors "inkwell/internal/domain/errors"
	"inkwell/internal/domain/repository"
	"inkwell/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// sortColumns whitelists the sortable fields a client may ask for. Anything
// else falls back to creation time.
var sortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"title":     "title",
}

// postRepository implements the domain.PostRepository interface using GORM.
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository is the constructor for postRepository.
func NewPostRepository(db *gorm.DB) repository.PostRepository {
	return &postRepository{db: db}
}

// FindByID retrieves a single post with its category resolved.
func (repo *postRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Post, error) {
	var postM model.PostModel
	err := repo.db.WithContext(ctx).
		Preload("Category").
		Where("id = ?", id).
		First(&postM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrPostNotFound
		}

		return nil, errors.Wrap(err, "failed to find post by id")
	}

	return toPostDomain(&postM), nil
}

// List retrieves a page of posts matching the query, pinned posts first,
// together with the total match count before pagination.
func (repo *postRepository) List(ctx context.Context, query repository.PostQuery) ([]*entity.Post, int64, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	tx := repo.db.WithContext(ctx).Model(&model.PostModel{})
	if query.CategoryID != nil {
		tx = tx.Where("category_id = ?", *query.CategoryID)
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		pattern := "%" + search + "%"
		tx = tx.Where("title ILIKE ? OR content ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "failed to count posts")
	}

	var postsM []*model.PostModel
	err := tx.
		Preload("Category").
		Order("is_pinned DESC").
		Order(buildSortClause(query.Sort)).
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&postsM).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list posts")
	}

	posts := make([]*entity.Post, 0, len(postsM))
	for _, postM := range postsM {
		posts = append(posts, toPostDomain(postM))
	}

	return posts, total, nil
}

// Create persists a new post.
func (repo *postRepository) Create(ctx context.Context, post *entity.Post) error {
	postM := fromPostDomain(post)

	if err := repo.db.WithContext(ctx).Create(postM).Error; err != nil {
		if isForeignKeyConstraintViolation(err) {
			return domainerrors.ErrCategoryNotFound.WrapMessage("category does not exist")
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrValidationFailed.WrapMessage("missing required post fields")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create post")
	}

	post.ID = postM.ID
	post.CreatedAt = postM.CreatedAt
	post.UpdatedAt = postM.UpdatedAt

	return nil
}

// Update modifies an existing post.
func (repo *postRepository) Update(ctx context.Context, post *entity.Post) error {
	postM := fromPostDomain(post)

	// Select lists the mutable columns so zero values (unpinned, cleared
	// category) are written rather than skipped.
	result := repo.db.WithContext(ctx).
		Model(&model.PostModel{}).
		Where("id = ?", post.ID).
		Select("title", "content", "category_id", "image_url", "is_pinned", "updated_at").
		Updates(postM)
	if result.Error != nil {
		if isForeignKeyConstraintViolation(result.Error) {
			return domainerrors.ErrCategoryNotFound.WrapMessage("category does not exist")
		}

		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to update post")
	}
	if result.RowsAffected == 0 {
		return repository.ErrPostNotFound
	}

	return nil
}

// Delete removes a post; its comments go with it via the FK cascade.
func (repo *postRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.PostModel{})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete post")
	}
	if result.RowsAffected == 0 {
		return repository.ErrPostNotFound
	}

	return nil
}

// ListComments retrieves all comments of a post in arrival order.
func (repo *postRepository) ListComments(ctx context.Context, postID uuid.UUID) ([]*entity.Comment, error) {
	var commentsM []*model.CommentModel
	err := repo.db.WithContext(ctx).
		Preload("User").
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&commentsM).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list comments")
	}

	comments := make([]*entity.Comment, 0, len(commentsM))
	for _, commentM := range commentsM {
		comments = append(comments, toCommentDomain(commentM))
	}

	return comments, nil
}

// AddComment appends a comment to a post as a single insert.
func (repo *postRepository) AddComment(ctx context.Context, comment *entity.Comment) error {
	commentM := fromCommentDomain(comment)

	if err := repo.db.WithContext(ctx).Create(commentM).Error; err != nil {
		if isForeignKeyConstraintViolation(err) {
			return repository.ErrPostNotFound
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to add comment")
	}

	comment.ID = commentM.ID
	comment.CreatedAt = commentM.CreatedAt

	return nil
}

// FindCommentByID retrieves a single comment of a post.
func (repo *postRepository) FindCommentByID(ctx context.Context, postID, commentID uuid.UUID) (*entity.Comment, error) {
	var commentM model.CommentModel
	err := repo.db.WithContext(ctx).
		Preload("User").
		Where("id = ? AND post_id = ?", commentID, postID).
		First(&commentM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrCommentNotFound
		}

		return nil, errors.Wrap(err, "failed to find comment by id")
	}

	return toCommentDomain(&commentM), nil
}

// DeleteComment removes a comment by its ID, never by position.
func (repo *postRepository) DeleteComment(ctx context.Context, postID, commentID uuid.UUID) error {
	result := repo.db.WithContext(ctx).
		Where("id = ? AND post_id = ?", commentID, postID).
		Delete(&model.CommentModel{})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete comment")
	}
	if result.RowsAffected == 0 {
		return repository.ErrCommentNotFound
	}

	return nil
}

// buildSortClause maps the client-facing sort expression to an ORDER BY
// fragment. A "-" prefix means descending.
func buildSortClause(sort string) string {
	field := strings.TrimSpace(sort)
	direction := "ASC"
	if strings.HasPrefix(field, "-") {
		field = strings.TrimPrefix(field, "-")
		direction = "DESC"
	}

	column, ok := sortColumns[field]
	if !ok {
		return "created_at DESC"
	}

	return column + " " + direction
}

// toPostDomain converts a GORM PostModel to a domain Post entity.
func toPostDomain(data *model.PostModel) *entity.Post {
	if data == nil {
		return nil
	}

	return &entity.Post{
		ID:         data.ID,
		AuthorID:   data.AuthorID,
		Title:      data.Title,
		Content:    data.Content,
		CategoryID: data.CategoryID,
		Category:   toCategoryDomain(data.Category),
		ImageURL:   data.ImageURL,
		IsPinned:   data.IsPinned,
		CreatedAt:  data.CreatedAt,
		UpdatedAt:  data.UpdatedAt,
	}
}

// fromPostDomain converts a domain Post entity to a GORM PostModel.
func fromPostDomain(data *entity.Post) *model.PostModel {
	if data == nil {
		return nil
	}

	return &model.PostModel{
		ID:         data.ID,
		AuthorID:   data.AuthorID,
		Title:      data.Title,
		Content:    data.Content,
		CategoryID: data.CategoryID,
		ImageURL:   data.ImageURL,
		IsPinned:   data.IsPinned,
		UpdatedAt:  data.UpdatedAt,
	}
}

// toCommentDomain converts a GORM CommentModel to a domain Comment entity.
func toCommentDomain(data *model.CommentModel) *entity.Comment {
	if data == nil {
		return nil
	}

	comment := &entity.Comment{
		ID:        data.ID,
		PostID:    data.PostID,
		UserID:    data.UserID,
		Content:   data.Content,
		CreatedAt: data.CreatedAt,
	}
	if data.User != nil {
		comment.AuthorName = data.User.Name
	}

	return comment
}

// fromCommentDomain converts a domain Comment entity to a GORM CommentModel.
func fromCommentDomain(data *entity.Comment) *model.CommentModel {
	if data == nil {
		return nil
	}

	return &model.CommentModel{
		ID:      data.ID,
		PostID:  data.PostID,
		UserID:  data.UserID,
		Content: data.Content,
	}
}
