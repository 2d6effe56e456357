package usecase

import (
	"context"

	"inkwell/internal/domain/entity"

	"github.com/google/uuid"
)

// --- Input DTOs ---

// ListPostsInput defines the filter, search, sort and pagination parameters
// for listing posts.
type ListPostsInput struct {
	Page       int
	Limit      int
	CategoryID *uuid.UUID
	Search     string
	Sort       string
}

// CreatePostInput defines the data required to create a post.
type CreatePostInput struct {
	AuthorID   uuid.UUID
	Title      string
	Content    string
	CategoryID *uuid.UUID
	ImageURL   string
}

// UpdatePostInput defines the data for a full post update. ActorID is the
// authenticated user attempting the mutation.
type UpdatePostInput struct {
	PostID     uuid.UUID
	ActorID    uuid.UUID
	Title      string
	Content    string
	CategoryID *uuid.UUID
	ImageURL   string
}

// AddCommentInput defines the data required to append a comment to a post.
type AddCommentInput struct {
	PostID  uuid.UUID
	UserID  uuid.UUID
	Content string
}

// --- Output DTOs ---

// ListPostsOutput returns a page of posts plus the total match count.
type ListPostsOutput struct {
	Posts []*entity.Post
	Total int64
	Page  int
	Limit int
}

// PostUsecase defines the interface for post-related business operations.
// Mutations carry the acting user's ID; ownership is enforced here, not in
// the delivery layer.
type PostUsecase interface {
	ListPosts(ctx context.Context, input *ListPostsInput) (*ListPostsOutput, error)
	GetPost(ctx context.Context, postID uuid.UUID) (*entity.Post, error)
	CreatePost(ctx context.Context, input *CreatePostInput) (*entity.Post, error)
	UpdatePost(ctx context.Context, input *UpdatePostInput) (*entity.Post, error)
	DeletePost(ctx context.Context, postID, actorID uuid.UUID) error
	TogglePin(ctx context.Context, postID, actorID uuid.UUID) (*entity.Post, error)

	ListComments(ctx context.Context, postID uuid.UUID) ([]*entity.Comment, error)
	AddComment(ctx context.Context, input *AddCommentInput) (*entity.Comment, error)
	DeleteComment(ctx context.Context, postID, commentID, actorID uuid.UUID) error
}
