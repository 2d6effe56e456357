package impl

import (
	"context"
	"testing"

	"inkwell/internal/domain/entity"
	domainerrors "inkwell/internal/domain/errors"
	"inkwell/internal/domain/repository"
	mockRepo "inkwell/internal/mocks/repository"
	"inkwell/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newPostService(t *testing.T, postRepo repository.PostRepository) usecase.PostUsecase {
	t.Helper()

	factory := &mockRepo.StubRepositoryFactory{PostRepository: postRepo}

	return NewPostService(PostServiceParams{
		TxManager: &mockRepo.StubTransactionManager{Factory: factory},
		PostRepo:  postRepo,
		Logger:    newDiscardLogger(),
	})
}

func TestPostService_CreatePost_Success(t *testing.T) {
	ctx := context.Background()
	authorID := uuid.New()
	postRepo := mockRepo.NewMockPostRepository(t)
	srv := newPostService(t, postRepo)

	postRepo.On("Create", ctx, mock.AnythingOfType("*entity.Post")).
		Run(func(args mock.Arguments) {
			post := args.Get(1).(*entity.Post)
			post.ID = uuid.New()
		}).
		Return(nil)

	post, err := srv.CreatePost(ctx, &usecase.CreatePostInput{
		AuthorID: authorID,
		Title:    "First post",
		Content:  "Hello world",
	})

	require.NoError(t, err)
	assert.Equal(t, authorID, post.AuthorID)
	assert.NotEqual(t, uuid.Nil, post.ID)
}

func TestPostService_CreatePost_MissingFields(t *testing.T) {
	ctx := context.Background()
	postRepo := mockRepo.NewMockPostRepository(t)
	srv := newPostService(t, postRepo)

	_, err := srv.CreatePost(ctx, &usecase.CreatePostInput{
		AuthorID: uuid.New(),
		Title:    "  ",
		Content:  "body",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrValidationFailed))
}

func TestPostService_UpdatePost_AuthorOnly(t *testing.T) {
	ctx := context.Background()
	authorID := uuid.New()
	strangerID := uuid.New()
	postID := uuid.New()
	postRepo := mockRepo.NewMockPostRepository(t)
	srv := newPostService(t, postRepo)

	postRepo.On("FindByID", ctx, postID).
		Return(&entity.Post{ID: postID, AuthorID: authorID, Title: "old", Content: "old"}, nil)

	// A non-author gets an ownership violation before any write happens.
	_, err := srv.UpdatePost(ctx, &usecase.UpdatePostInput{
		PostID:  postID,
		ActorID: strangerID,
		Title:   "new title",
		Content: "new content",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrPostOwnershipViolation))
	postRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestPostService_UpdatePost_Success(t *testing.T) {
	ctx := context.Background()
	authorID := uuid.New()
	postID := uuid.New()
	postRepo := mockRepo.NewMockPostRepository(t)
	srv := newPostService(t, postRepo)

	postRepo.On("FindByID", ctx, postID).
		Return(&entity.Post{ID: postID, AuthorID: authorID, Title: "old", Content: "old"}, nil)
	postRepo.On("Update", ctx, mock.MatchedBy(func(post *entity.Post) bool {
		return post.Title == "new title" && post.Content == "new content"
	})).Return(nil)

	post, err := srv.UpdatePost(ctx, &usecase.UpdatePostInput{
		PostID:  postID,
		ActorID: authorID,
		Title:   "new title",
		Content: "new content",
	})

	require.NoError(t, err)
	require.NotNil(t, post)
}

func TestPostService_DeletePost_AuthorOnly(t *testing.T) {
	ctx := context.Background()
	authorID := uuid.New()
	postID := uuid.New()
	postRepo := mockRepo.NewMockPostRepository(t)
	srv := newPostService(t, postRepo)

	postRepo.On("FindByID", ctx, postID).
		Return(&entity.Post{ID: postID, AuthorID: authorID}, nil)

	err := srv.DeletePost(ctx, postID, uuid.New())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrPostOwnershipViolation))
	postRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestPostService_DeletePost_Success(t *testing.T) {
	ctx := context.Background()
	authorID := uuid.New()
	postID := uuid.New()
	postRepo := mockRepo.NewMockPostRepository(t)
	srv := newPostService(t, postRepo)

	postRepo.On("FindByID", ctx, postID).
		Return(&entity.Post{ID: postID, AuthorID: authorID}, nil)
	postRepo.On("Delete", ctx, postID).Return(nil)

	err := srv.DeletePost(ctx, postID, authorID)

	require.NoError(t, err)
}

func TestPostService_DeletePost_NotFound(t *testing.T) {
	ctx := context.Background()
	postID := uuid.New()
	postRepo := mockRepo.NewMockPostRepository(t)
	srv := newPostService(t, postRepo)

	postRepo.On("FindByID", ctx, postID).Return(nil, repository.ErrPostNotFound)

	err := srv.DeletePost(ctx, postID, uuid.New())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrPostNotFound))
}

func TestPostService_TogglePin(t *testing.T) {
	ctx := context.Background()
	authorID := uuid.New()
	postID := uuid.New()
	postRepo := mockRepo.NewMockPostRepository(t)
	srv := newPostService(t, postRepo)

	postRepo.On("FindByID", ctx, postID).
		Return(&entity.Post{ID: postID, AuthorID: authorID, IsPinned: false}, nil)
	postRepo.On("Update", ctx, mock.MatchedBy(func(post *entity.Post) bool {
		return post.IsPinned
	})).Return(nil)

	post, err := srv.TogglePin(ctx, postID, authorID)

	require.NoError(t, err)
	assert.True(t, post.IsPinned)
}

func TestPostService_TogglePin_NonAuthor(t *testing.T) {
	ctx := context.Background()
	postID := uuid.New()
	postRepo := mockRepo.NewMockPostRepository(t)
	srv := newPostService(t, postRepo)

	postRepo.On("FindByID", ctx, postID).
		Return(&entity.Post{ID: postID, AuthorID: uuid.New()}, nil)

	_, err := srv.TogglePin(ctx, postID, uuid.New())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrPostOwnershipViolation))
}

func TestPostService_AddComment_Success(t *testing.T) {
	ctx := context.Background()
	postID := uuid.New()
	commenterID := uuid.New()
	postRepo := mockRepo.NewMockPostRepository(t)
	srv := newPostService(t, postRepo)

	// Any authenticated user may comment, including non-authors.
	postRepo.On("FindByID", ctx, postID).
		Return(&entity.Post{ID: postID, AuthorID: uuid.New()}, nil)
	postRepo.On("AddComment", ctx, mock.AnythingOfType("*entity.Comment")).
		Run(func(args mock.Arguments) {
			comment := args.Get(1).(*entity.Comment)
			comment.ID = uuid.New()
		}).
		Return(nil)

	comment, err := srv.AddComment(ctx, &usecase.AddCommentInput{
		PostID:  postID,
		UserID:  commenterID,
		Content: "nice post",
	})

	require.NoError(t, err)
	assert.Equal(t, commenterID, comment.UserID)
	assert.NotEqual(t, uuid.Nil, comment.ID)
}

func TestPostService_AddComment_EmptyContent(t *testing.T) {
	ctx := context.Background()
	postRepo := mockRepo.NewMockPostRepository(t)
	srv := newPostService(t, postRepo)

	_, err := srv.AddComment(ctx, &usecase.AddCommentInput{
		PostID:  uuid.New(),
		UserID:  uuid.New(),
		Content: "   ",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrValidationFailed))
}

func TestPostService_DeleteComment_ByCommentAuthor(t *testing.T) {
	ctx := context.Background()
	postID := uuid.New()
	commentID := uuid.New()
	commenterID := uuid.New()
	postRepo := mockRepo.NewMockPostRepository(t)
	srv := newPostService(t, postRepo)

	postRepo.On("FindByID", ctx, postID).
		Return(&entity.Post{ID: postID, AuthorID: uuid.New()}, nil)
	postRepo.On("FindCommentByID", ctx, postID, commentID).
		Return(&entity.Comment{ID: commentID, PostID: postID, UserID: commenterID}, nil)
	postRepo.On("DeleteComment", ctx, postID, commentID).Return(nil)

	err := srv.DeleteComment(ctx, postID, commentID, commenterID)

	require.NoError(t, err)
}

func TestPostService_DeleteComment_ByPostAuthor(t *testing.T) {
	ctx := context.Background()
	postID := uuid.New()
	commentID := uuid.New()
	postAuthorID := uuid.New()
	postRepo := mockRepo.NewMockPostRepository(t)
	srv := newPostService(t, postRepo)

	// The post author may moderate any comment on their post.
	postRepo.On("FindByID", ctx, postID).
		Return(&entity.Post{ID: postID, AuthorID: postAuthorID}, nil)
	postRepo.On("FindCommentByID", ctx, postID, commentID).
		Return(&entity.Comment{ID: commentID, PostID: postID, UserID: uuid.New()}, nil)
	postRepo.On("DeleteComment", ctx, postID, commentID).Return(nil)

	err := srv.DeleteComment(ctx, postID, commentID, postAuthorID)

	require.NoError(t, err)
}

func TestPostService_DeleteComment_ByStranger(t *testing.T) {
	ctx := context.Background()
	postID := uuid.New()
	commentID := uuid.New()
	postRepo := mockRepo.NewMockPostRepository(t)
	srv := newPostService(t, postRepo)

	postRepo.On("FindByID", ctx, postID).
		Return(&entity.Post{ID: postID, AuthorID: uuid.New()}, nil)
	postRepo.On("FindCommentByID", ctx, postID, commentID).
		Return(&entity.Comment{ID: commentID, PostID: postID, UserID: uuid.New()}, nil)

	err := srv.DeleteComment(ctx, postID, commentID, uuid.New())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrCommentOwnershipViolation))
	postRepo.AssertNotCalled(t, "DeleteComment", mock.Anything, mock.Anything, mock.Anything)
}

func TestPostService_GetPost_AttachesComments(t *testing.T) {
	ctx := context.Background()
	postID := uuid.New()
	postRepo := mockRepo.NewMockPostRepository(t)
	srv := newPostService(t, postRepo)

	comments := []*entity.Comment{
		{ID: uuid.New(), PostID: postID, Content: "first"},
		{ID: uuid.New(), PostID: postID, Content: "second"},
	}
	postRepo.On("FindByID", ctx, postID).
		Return(&entity.Post{ID: postID, AuthorID: uuid.New()}, nil)
	postRepo.On("ListComments", ctx, postID).Return(comments, nil)

	post, err := srv.GetPost(ctx, postID)

	require.NoError(t, err)
	require.Len(t, post.Comments, 2)
	assert.Equal(t, "first", post.Comments[0].Content)
}

func TestPostService_ListPosts(t *testing.T) {
	ctx := context.Background()
	postRepo := mockRepo.NewMockPostRepository(t)
	srv := newPostService(t, postRepo)

	posts := []*entity.Post{{ID: uuid.New(), Title: "pinned", IsPinned: true}}
	postRepo.On("List", ctx, mock.AnythingOfType("repository.PostQuery")).
		Return(posts, int64(12), nil)

	output, err := srv.ListPosts(ctx, &usecase.ListPostsInput{Page: 2, Limit: 5, Search: "pin"})

	require.NoError(t, err)
	assert.Equal(t, int64(12), output.Total)
	assert.Len(t, output.Posts, 1)
	assert.Equal(t, 2, output.Page)
}

func TestPostService_ListPosts_DefaultsPagination(t *testing.T) {
	ctx := context.Background()
	postRepo := mockRepo.NewMockPostRepository(t)
	srv := newPostService(t, postRepo)

	postRepo.On("List", ctx, mock.MatchedBy(func(query repository.PostQuery) bool {
		return query.Page == 1 && query.Limit == 10
	})).Return([]*entity.Post{}, int64(0), nil)

	output, err := srv.ListPosts(ctx, &usecase.ListPostsInput{})

	require.NoError(t, err)
	// The response reports the page actually served, not the raw input.
	assert.Equal(t, 1, output.Page)
	assert.Equal(t, 10, output.Limit)
}

func TestPostService_ListPosts_CapsLimit(t *testing.T) {
	ctx := context.Background()
	postRepo := mockRepo.NewMockPostRepository(t)
	srv := newPostService(t, postRepo)

	postRepo.On("List", ctx, mock.MatchedBy(func(query repository.PostQuery) bool {
		return query.Limit == 100
	})).Return([]*entity.Post{}, int64(0), nil)

	output, err := srv.ListPosts(ctx, &usecase.ListPostsInput{Page: 1, Limit: 5000})

	require.NoError(t, err)
	assert.Equal(t, 100, output.Limit)
}
