// Package repository provides testify mocks for the domain repository
// interfaces, used by usecase and delivery tests.
package repository

import (
	"context"
	"testing"

	"inkwell/internal/domain/entity"
	"inkwell/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// StubRepositoryFactory hands out fixed repository instances. Used together
// with StubTransactionManager so transactional usecase code runs against
// mocks without a database.
type StubRepositoryFactory struct {
	UserRepository         repository.UserRepository
	AuthRepository         repository.AuthRepository
	RefreshTokenRepository repository.RefreshTokenRepository
	PostRepository         repository.PostRepository
	CategoryRepository     repository.CategoryRepository
}

func (f *StubRepositoryFactory) UserRepo() repository.UserRepository { return f.UserRepository }
func (f *StubRepositoryFactory) AuthRepo() repository.AuthRepository { return f.AuthRepository }
func (f *StubRepositoryFactory) RefreshTokenRepo() repository.RefreshTokenRepository {
	return f.RefreshTokenRepository
}
func (f *StubRepositoryFactory) PostRepo() repository.PostRepository { return f.PostRepository }
func (f *StubRepositoryFactory) CategoryRepo() repository.CategoryRepository {
	return f.CategoryRepository
}

// StubTransactionManager executes the callback directly against the stub
// factory, without any real transaction semantics.
type StubTransactionManager struct {
	Factory repository.RepositoryFactory
}

func (s *StubTransactionManager) Execute(_ context.Context, fn func(repository.RepositoryFactory) error) error {
	return fn(s.Factory)
}

// MockUserRepository is a testify mock of repository.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func NewMockUserRepository(t *testing.T) *MockUserRepository {
	m := &MockUserRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	args := m.Called(ctx, id)
	if user, ok := args.Get(0).(*entity.User); ok {
		return user, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	if user, ok := args.Get(0).(*entity.User); ok {
		return user, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *entity.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *entity.User) error {
	return m.Called(ctx, user).Error(0)
}

// MockAuthRepository is a testify mock of repository.AuthRepository.
type MockAuthRepository struct {
	mock.Mock
}

func NewMockAuthRepository(t *testing.T) *MockAuthRepository {
	m := &MockAuthRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockAuthRepository) FindAuthentication(ctx context.Context, provider, providerUserID string) (*entity.Authentication, error) {
	args := m.Called(ctx, provider, providerUserID)
	if auth, ok := args.Get(0).(*entity.Authentication); ok {
		return auth, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockAuthRepository) CreateAuthentication(ctx context.Context, auth *entity.Authentication) error {
	return m.Called(ctx, auth).Error(0)
}

// MockRefreshTokenRepository is a testify mock of repository.RefreshTokenRepository.
type MockRefreshTokenRepository struct {
	mock.Mock
}

func NewMockRefreshTokenRepository(t *testing.T) *MockRefreshTokenRepository {
	m := &MockRefreshTokenRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockRefreshTokenRepository) CreateRefreshToken(ctx context.Context, token *entity.RefreshToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockRefreshTokenRepository) FindRefreshTokenByHash(ctx context.Context, tokenHash string) (*entity.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	if token, ok := args.Get(0).(*entity.RefreshToken); ok {
		return token, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockRefreshTokenRepository) DeleteRefreshToken(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRefreshTokenRepository) DeleteRefreshTokenByHash(ctx context.Context, tokenHash string) error {
	return m.Called(ctx, tokenHash).Error(0)
}

func (m *MockRefreshTokenRepository) DeleteRefreshTokensByUserID(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockRefreshTokenRepository) DeleteExpiredRefreshTokens(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockRefreshTokenRepository) CountActiveSessionsByUserID(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)

	return args.Int(0), args.Error(1)
}

// MockPostRepository is a testify mock of repository.PostRepository.
type MockPostRepository struct {
	mock.Mock
}

func NewMockPostRepository(t *testing.T) *MockPostRepository {
	m := &MockPostRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockPostRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Post, error) {
	args := m.Called(ctx, id)
	if post, ok := args.Get(0).(*entity.Post); ok {
		return post, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockPostRepository) List(ctx context.Context, query repository.PostQuery) ([]*entity.Post, int64, error) {
	args := m.Called(ctx, query)
	if posts, ok := args.Get(0).([]*entity.Post); ok {
		return posts, args.Get(1).(int64), args.Error(2)
	}

	return nil, 0, args.Error(2)
}

func (m *MockPostRepository) Create(ctx context.Context, post *entity.Post) error {
	return m.Called(ctx, post).Error(0)
}

func (m *MockPostRepository) Update(ctx context.Context, post *entity.Post) error {
	return m.Called(ctx, post).Error(0)
}

func (m *MockPostRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockPostRepository) ListComments(ctx context.Context, postID uuid.UUID) ([]*entity.Comment, error) {
	args := m.Called(ctx, postID)
	if comments, ok := args.Get(0).([]*entity.Comment); ok {
		return comments, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockPostRepository) AddComment(ctx context.Context, comment *entity.Comment) error {
	return m.Called(ctx, comment).Error(0)
}

func (m *MockPostRepository) FindCommentByID(ctx context.Context, postID, commentID uuid.UUID) (*entity.Comment, error) {
	args := m.Called(ctx, postID, commentID)
	if comment, ok := args.Get(0).(*entity.Comment); ok {
		return comment, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockPostRepository) DeleteComment(ctx context.Context, postID, commentID uuid.UUID) error {
	return m.Called(ctx, postID, commentID).Error(0)
}

// MockCategoryRepository is a testify mock of repository.CategoryRepository.
type MockCategoryRepository struct {
	mock.Mock
}

func NewMockCategoryRepository(t *testing.T) *MockCategoryRepository {
	m := &MockCategoryRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockCategoryRepository) List(ctx context.Context) ([]*entity.Category, error) {
	args := m.Called(ctx)
	if categories, ok := args.Get(0).([]*entity.Category); ok {
		return categories, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockCategoryRepository) FindByName(ctx context.Context, name string) (*entity.Category, error) {
	args := m.Called(ctx, name)
	if category, ok := args.Get(0).(*entity.Category); ok {
		return category, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockCategoryRepository) Create(ctx context.Context, category *entity.Category) error {
	return m.Called(ctx, category).Error(0)
}
