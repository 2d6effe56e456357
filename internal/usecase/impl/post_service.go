package impl

import (
	"context"
	"log/slog"
	"strings"

	deliverycontext "inkwell/internal/delivery/context"
	"inkwell/internal/domain/entity"
	domainerrors "inkwell/internal/domain/errors"
	"inkwell/internal/domain/repository"
	"inkwell/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// Pagination bounds applied to every post listing.
const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// postService implements the PostUsecase interface.
type postService struct {
	txManager repository.TransactionManager
	postRepo  repository.PostRepository
	logger    *slog.Logger
}

// PostServiceParams holds dependencies for PostService, injected by Fx.
type PostServiceParams struct {
	fx.In

	TxManager repository.TransactionManager
	PostRepo  repository.PostRepository
	Logger    *slog.Logger
}

// NewPostService is the constructor for postService.
func NewPostService(params PostServiceParams) usecase.PostUsecase {
	return &postService{
		txManager: params.TxManager,
		postRepo:  params.PostRepo,
		logger:    params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *postService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// ListPosts retrieves a page of posts matching the input filters. Page and
// limit are clamped here so the response reports the values actually served,
// not the caller's raw input.
func (srv *postService) ListPosts(ctx context.Context, input *usecase.ListPostsInput) (*usecase.ListPostsOutput, error) {
	query := repository.PostQuery{
		Page:       input.Page,
		Limit:      input.Limit,
		CategoryID: input.CategoryID,
		Search:     input.Search,
		Sort:       input.Sort,
	}
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = defaultPageLimit
	}
	if query.Limit > maxPageLimit {
		query.Limit = maxPageLimit
	}

	posts, total, err := srv.postRepo.List(ctx, query)
	if err != nil {
		srv.log(ctx).Error("Failed to list posts", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to list posts")
	}

	return &usecase.ListPostsOutput{
		Posts: posts,
		Total: total,
		Page:  query.Page,
		Limit: query.Limit,
	}, nil
}

// GetPost retrieves a single post with its comments attached.
func (srv *postService) GetPost(ctx context.Context, postID uuid.UUID) (*entity.Post, error) {
	post, err := srv.findPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	comments, err := srv.postRepo.ListComments(ctx, postID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list comments for post")
	}
	post.Comments = comments

	return post, nil
}

// CreatePost persists a new post owned by the acting user.
func (srv *postService) CreatePost(ctx context.Context, input *usecase.CreatePostInput) (*entity.Post, error) {
	srv.log(ctx).Info("Creating post", slog.Any("authorID", input.AuthorID))

	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Content) == "" {
		return nil, errors.Wrap(domainerrors.ErrValidationFailed, "title and content are required")
	}

	post := &entity.Post{
		AuthorID:   input.AuthorID,
		Title:      input.Title,
		Content:    input.Content,
		CategoryID: input.CategoryID,
		ImageURL:   input.ImageURL,
	}

	if err := srv.postRepo.Create(ctx, post); err != nil {
		srv.log(ctx).Error("Failed to create post", slog.Any("authorID", input.AuthorID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to create post")
	}
	srv.log(ctx).Debug("Post created", slog.Any("postID", post.ID))

	return post, nil
}

// UpdatePost replaces the mutable fields of a post. Only the author may
// update their post; anyone else gets an ownership violation regardless of
// the payload.
func (srv *postService) UpdatePost(ctx context.Context, input *usecase.UpdatePostInput) (*entity.Post, error) {
	srv.log(ctx).Info("Updating post", slog.Any("postID", input.PostID), slog.Any("actorID", input.ActorID))

	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Content) == "" {
		return nil, errors.Wrap(domainerrors.ErrValidationFailed, "title and content are required")
	}

	var updated *entity.Post
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		postRepo := repoFactory.PostRepo()

		post, err := postRepo.FindByID(ctx, input.PostID)
		if err != nil {
			if errors.Is(err, repository.ErrPostNotFound) {
				return errors.Wrap(domainerrors.ErrPostNotFound, "post not found")
			}

			return errors.Wrap(err, "failed to find post")
		}

		if post.AuthorID != input.ActorID {
			return errors.Wrap(domainerrors.ErrPostOwnershipViolation, "only the author may update this post")
		}

		post.Title = input.Title
		post.Content = input.Content
		post.CategoryID = input.CategoryID
		if input.ImageURL != "" {
			post.ImageURL = input.ImageURL
		}

		if err := postRepo.Update(ctx, post); err != nil {
			return errors.Wrap(err, "failed to update post")
		}

		updated, err = postRepo.FindByID(ctx, input.PostID)

		return errors.Wrap(err, "failed to reload updated post")
	})
	if err != nil {
		srv.log(ctx).Warn("Failed to update post", slog.Any("postID", input.PostID), slog.Any("error", err))

		return nil, err
	}

	return updated, nil
}

// DeletePost removes a post and its comments. Author-only.
func (srv *postService) DeletePost(ctx context.Context, postID, actorID uuid.UUID) error {
	srv.log(ctx).Info("Deleting post", slog.Any("postID", postID), slog.Any("actorID", actorID))

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		postRepo := repoFactory.PostRepo()

		post, err := postRepo.FindByID(ctx, postID)
		if err != nil {
			if errors.Is(err, repository.ErrPostNotFound) {
				return errors.Wrap(domainerrors.ErrPostNotFound, "post not found")
			}

			return errors.Wrap(err, "failed to find post")
		}

		if post.AuthorID != actorID {
			return errors.Wrap(domainerrors.ErrPostOwnershipViolation, "only the author may delete this post")
		}

		return postRepo.Delete(ctx, postID)
	})
	if err != nil {
		srv.log(ctx).Warn("Failed to delete post", slog.Any("postID", postID), slog.Any("error", err))

		return err
	}

	return nil
}

// TogglePin flips the pinned flag of a post. Author-only.
func (srv *postService) TogglePin(ctx context.Context, postID, actorID uuid.UUID) (*entity.Post, error) {
	srv.log(ctx).Info("Toggling post pin", slog.Any("postID", postID), slog.Any("actorID", actorID))

	var toggled *entity.Post
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		postRepo := repoFactory.PostRepo()

		post, err := postRepo.FindByID(ctx, postID)
		if err != nil {
			if errors.Is(err, repository.ErrPostNotFound) {
				return errors.Wrap(domainerrors.ErrPostNotFound, "post not found")
			}

			return errors.Wrap(err, "failed to find post")
		}

		if post.AuthorID != actorID {
			return errors.Wrap(domainerrors.ErrPostOwnershipViolation, "only the author may pin this post")
		}

		post.IsPinned = !post.IsPinned
		if err := postRepo.Update(ctx, post); err != nil {
			return errors.Wrap(err, "failed to update post pin state")
		}

		toggled = post

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("Failed to toggle post pin", slog.Any("postID", postID), slog.Any("error", err))

		return nil, err
	}

	return toggled, nil
}

// ListComments retrieves all comments of a post in arrival order.
func (srv *postService) ListComments(ctx context.Context, postID uuid.UUID) ([]*entity.Comment, error) {
	if _, err := srv.findPost(ctx, postID); err != nil {
		return nil, err
	}

	comments, err := srv.postRepo.ListComments(ctx, postID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list comments")
	}

	return comments, nil
}

// AddComment appends a comment to a post. Any authenticated user may comment.
func (srv *postService) AddComment(ctx context.Context, input *usecase.AddCommentInput) (*entity.Comment, error) {
	srv.log(ctx).Info("Adding comment", slog.Any("postID", input.PostID), slog.Any("userID", input.UserID))

	if strings.TrimSpace(input.Content) == "" {
		return nil, errors.Wrap(domainerrors.ErrValidationFailed, "comment content is required")
	}

	if _, err := srv.findPost(ctx, input.PostID); err != nil {
		return nil, err
	}

	comment := &entity.Comment{
		PostID:  input.PostID,
		UserID:  input.UserID,
		Content: input.Content,
	}
	if err := srv.postRepo.AddComment(ctx, comment); err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return nil, errors.Wrap(domainerrors.ErrPostNotFound, "post not found")
		}
		srv.log(ctx).Error("Failed to add comment", slog.Any("postID", input.PostID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to add comment")
	}

	return comment, nil
}

// DeleteComment removes a comment. Permitted for the comment author and for
// the author of the post the comment sits on; everyone else is rejected.
func (srv *postService) DeleteComment(ctx context.Context, postID, commentID, actorID uuid.UUID) error {
	srv.log(ctx).Info("Deleting comment", slog.Any("postID", postID), slog.Any("commentID", commentID), slog.Any("actorID", actorID))

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		postRepo := repoFactory.PostRepo()

		post, err := postRepo.FindByID(ctx, postID)
		if err != nil {
			if errors.Is(err, repository.ErrPostNotFound) {
				return errors.Wrap(domainerrors.ErrPostNotFound, "post not found")
			}

			return errors.Wrap(err, "failed to find post")
		}

		comment, err := postRepo.FindCommentByID(ctx, postID, commentID)
		if err != nil {
			if errors.Is(err, repository.ErrCommentNotFound) {
				return errors.Wrap(domainerrors.ErrCommentNotFound, "comment not found")
			}

			return errors.Wrap(err, "failed to find comment")
		}

		if comment.UserID != actorID && post.AuthorID != actorID {
			return errors.Wrap(domainerrors.ErrCommentOwnershipViolation, "not permitted to delete this comment")
		}

		return postRepo.DeleteComment(ctx, postID, commentID)
	})
	if err != nil {
		srv.log(ctx).Warn("Failed to delete comment", slog.Any("commentID", commentID), slog.Any("error", err))

		return err
	}

	return nil
}

func (srv *postService) findPost(ctx context.Context, postID uuid.UUID) (*entity.Post, error) {
	post, err := srv.postRepo.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return nil, errors.Wrap(domainerrors.ErrPostNotFound, "post not found")
		}

		return nil, errors.Wrap(err, "failed to find post")
	}

	return post, nil
}
