// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"

	"inkwell/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Domain-specific errors for post and comment persistence.
var (
	// ErrPostNotFound is returned when a post is not found.
	ErrPostNotFound = errors.New("post not found")
	// ErrCommentNotFound is returned when a comment is not found.
	ErrCommentNotFound = errors.New("comment not found")
)

// PostQuery carries the filter, search, sort and pagination parameters for
// listing posts. Zero values mean "no filter".
type PostQuery struct {
	Page       int
	Limit      int
	CategoryID *uuid.UUID
	Search     string // substring match against title and content
	Sort       string // field name, "-" prefix for descending, e.g. "-updatedAt"
}

// PostRepository defines the operations for post and comment persistence.
// Comments are individual rows appended and deleted by ID; there is no
// read-modify-write of an embedded list, so concurrent appends to the same
// post cannot lose updates.
type PostRepository interface {
	// FindByID retrieves a single post with its category resolved. Comments
	// are not loaded; use ListComments.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Post, error)

	// List retrieves a page of posts matching the query, pinned posts first,
	// together with the total match count before pagination.
	List(ctx context.Context, query PostQuery) ([]*entity.Post, int64, error)

	// Create persists a new post.
	Create(ctx context.Context, post *entity.Post) error

	// Update modifies an existing post.
	Update(ctx context.Context, post *entity.Post) error

	// Delete removes a post and its comments.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListComments retrieves all comments of a post in arrival order.
	ListComments(ctx context.Context, postID uuid.UUID) ([]*entity.Comment, error)

	// AddComment appends a comment to a post as a single insert.
	AddComment(ctx context.Context, comment *entity.Comment) error

	// FindCommentByID retrieves a single comment of a post.
	FindCommentByID(ctx context.Context, postID, commentID uuid.UUID) (*entity.Comment, error)

	// DeleteComment removes a comment by its ID, never by position.
	DeleteComment(ctx context.Context, postID, commentID uuid.UUID) error
}
