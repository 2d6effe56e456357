package impl

import (
	"context"
	"testing"
	"time"

	"inkwell/internal/domain/entity"
	domainerrors "inkwell/internal/domain/errors"
	"inkwell/internal/domain/repository"
	"inkwell/internal/domain/service"
	mockRepo "inkwell/internal/mocks/repository"
	mockService "inkwell/internal/mocks/service"
	"inkwell/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newUserService(t *testing.T, factory *mockRepo.StubRepositoryFactory, hasher *mockService.MockPasswordHasher, tokenService *mockService.MockTokenService) usecase.UserUsecase {
	t.Helper()

	return NewUserService(UserServiceParams{
		TxManager:        &mockRepo.StubTransactionManager{Factory: factory},
		UserRepo:         factory.UserRepository,
		RefreshTokenRepo: factory.RefreshTokenRepository,
		Hasher:           hasher,
		TokenService:     tokenService,
		Logger:           newDiscardLogger(),
	})
}

func TestUserService_RegisterUser_Success(t *testing.T) {
	ctx := context.Background()
	userRepo := mockRepo.NewMockUserRepository(t)
	authRepo := mockRepo.NewMockAuthRepository(t)
	hasher := mockService.NewMockPasswordHasher(t)
	tokenService := mockService.NewMockTokenService(t)

	factory := &mockRepo.StubRepositoryFactory{
		UserRepository: userRepo,
		AuthRepository: authRepo,
	}
	srv := newUserService(t, factory, hasher, tokenService)

	hasher.On("ValidatePasswordStrength", "StrongPhrase123").Return(nil)
	hasher.On("Hash", "StrongPhrase123").Return("hashed", nil)
	authRepo.On("FindAuthentication", ctx, entity.ProviderTypeEmail, "alice@example.com").
		Return(nil, repository.ErrAuthNotFound)
	userRepo.On("Create", ctx, mock.AnythingOfType("*entity.User")).
		Run(func(args mock.Arguments) {
			user := args.Get(1).(*entity.User)
			user.ID = uuid.New()
		}).
		Return(nil)
	authRepo.On("CreateAuthentication", ctx, mock.AnythingOfType("*entity.Authentication")).Return(nil)

	output, err := srv.RegisterUser(ctx, &usecase.RegisterUserInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "StrongPhrase123",
	})

	require.NoError(t, err)
	require.NotNil(t, output)
	assert.Equal(t, "Alice", output.User.Name)
	assert.NotEqual(t, uuid.Nil, output.User.ID)
}

func TestUserService_RegisterUser_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	authRepo := mockRepo.NewMockAuthRepository(t)
	hasher := mockService.NewMockPasswordHasher(t)
	tokenService := mockService.NewMockTokenService(t)

	factory := &mockRepo.StubRepositoryFactory{AuthRepository: authRepo}
	srv := newUserService(t, factory, hasher, tokenService)

	hasher.On("ValidatePasswordStrength", "StrongPhrase123").Return(nil)
	hasher.On("Hash", "StrongPhrase123").Return("hashed", nil)
	authRepo.On("FindAuthentication", ctx, entity.ProviderTypeEmail, "alice@example.com").
		Return(&entity.Authentication{UserID: uuid.New()}, nil)

	output, err := srv.RegisterUser(ctx, &usecase.RegisterUserInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "StrongPhrase123",
	})

	require.Error(t, err)
	assert.Nil(t, output)
	assert.True(t, errors.Is(err, domainerrors.ErrUserAlreadyExists))
}

func TestUserService_RegisterUser_WeakPassword(t *testing.T) {
	ctx := context.Background()
	hasher := mockService.NewMockPasswordHasher(t)
	tokenService := mockService.NewMockTokenService(t)

	srv := newUserService(t, &mockRepo.StubRepositoryFactory{}, hasher, tokenService)

	hasher.On("ValidatePasswordStrength", "weak").Return(errors.New("too short"))

	output, err := srv.RegisterUser(ctx, &usecase.RegisterUserInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "weak",
	})

	require.Error(t, err)
	assert.Nil(t, output)
	assert.True(t, errors.Is(err, domainerrors.ErrValidationFailed))
}

func TestUserService_Login_Success(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	userRepo := mockRepo.NewMockUserRepository(t)
	authRepo := mockRepo.NewMockAuthRepository(t)
	refreshRepo := mockRepo.NewMockRefreshTokenRepository(t)
	hasher := mockService.NewMockPasswordHasher(t)
	tokenService := mockService.NewMockTokenService(t)

	factory := &mockRepo.StubRepositoryFactory{
		UserRepository:         userRepo,
		AuthRepository:         authRepo,
		RefreshTokenRepository: refreshRepo,
	}
	srv := newUserService(t, factory, hasher, tokenService)

	authRepo.On("FindAuthentication", ctx, entity.ProviderTypeEmail, "alice@example.com").
		Return(&entity.Authentication{UserID: userID, PasswordHash: "hashed"}, nil)
	hasher.On("Check", "StrongPhrase123", "hashed").Return(true)
	userRepo.On("FindByID", ctx, userID).Return(&entity.User{ID: userID, Email: "alice@example.com"}, nil)
	tokenService.On("GenerateTokens", userID).Return("access-token", "refresh-token", nil)
	tokenService.On("HashToken", "refresh-token").Return("refresh-hash")
	tokenService.On("GetRefreshTokenDuration").Return(time.Hour * 24 * 7)
	refreshRepo.On("CreateRefreshToken", ctx, mock.AnythingOfType("*entity.RefreshToken")).Return(nil)

	output, err := srv.Login(ctx, &usecase.LoginInput{Email: "alice@example.com", Password: "StrongPhrase123"})

	require.NoError(t, err)
	assert.Equal(t, "access-token", output.AccessToken)
	assert.Equal(t, "refresh-token", output.RefreshToken)
	assert.Equal(t, userID, output.User.ID)
}

func TestUserService_Login_WrongPassword(t *testing.T) {
	ctx := context.Background()
	authRepo := mockRepo.NewMockAuthRepository(t)
	hasher := mockService.NewMockPasswordHasher(t)
	tokenService := mockService.NewMockTokenService(t)

	factory := &mockRepo.StubRepositoryFactory{AuthRepository: authRepo}
	srv := newUserService(t, factory, hasher, tokenService)

	authRepo.On("FindAuthentication", ctx, entity.ProviderTypeEmail, "alice@example.com").
		Return(&entity.Authentication{UserID: uuid.New(), PasswordHash: "hashed"}, nil)
	hasher.On("Check", "wrong", "hashed").Return(false)

	output, err := srv.Login(ctx, &usecase.LoginInput{Email: "alice@example.com", Password: "wrong"})

	require.Error(t, err)
	assert.Nil(t, output)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
}

func TestUserService_Login_UnknownEmail(t *testing.T) {
	ctx := context.Background()
	authRepo := mockRepo.NewMockAuthRepository(t)
	hasher := mockService.NewMockPasswordHasher(t)
	tokenService := mockService.NewMockTokenService(t)

	factory := &mockRepo.StubRepositoryFactory{AuthRepository: authRepo}
	srv := newUserService(t, factory, hasher, tokenService)

	authRepo.On("FindAuthentication", ctx, entity.ProviderTypeEmail, "ghost@example.com").
		Return(nil, repository.ErrAuthNotFound)

	output, err := srv.Login(ctx, &usecase.LoginInput{Email: "ghost@example.com", Password: "whatever"})

	require.Error(t, err)
	assert.Nil(t, output)
	// Unknown email and wrong password are indistinguishable to the caller.
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
}

func TestUserService_RefreshToken_RotatesToken(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	storedID := uuid.New()
	userRepo := mockRepo.NewMockUserRepository(t)
	refreshRepo := mockRepo.NewMockRefreshTokenRepository(t)
	hasher := mockService.NewMockPasswordHasher(t)
	tokenService := mockService.NewMockTokenService(t)

	factory := &mockRepo.StubRepositoryFactory{
		UserRepository:         userRepo,
		RefreshTokenRepository: refreshRepo,
	}
	srv := newUserService(t, factory, hasher, tokenService)

	tokenService.On("ValidateToken", "old-refresh").
		Return(&service.Claims{UserID: userID, Type: service.TokenTypeRefresh}, nil)
	tokenService.On("HashToken", "old-refresh").Return("old-hash")
	refreshRepo.On("FindRefreshTokenByHash", ctx, "old-hash").
		Return(&entity.RefreshToken{ID: storedID, UserID: userID}, nil)
	userRepo.On("FindByID", ctx, userID).Return(&entity.User{ID: userID}, nil)
	refreshRepo.On("DeleteRefreshToken", ctx, storedID).Return(nil)
	tokenService.On("GenerateTokens", userID).Return("new-access", "new-refresh", nil)
	tokenService.On("HashToken", "new-refresh").Return("new-hash")
	tokenService.On("GetRefreshTokenDuration").Return(time.Hour * 24 * 7)
	refreshRepo.On("CreateRefreshToken", ctx, mock.MatchedBy(func(token *entity.RefreshToken) bool {
		return token.TokenHash == "new-hash" && token.UserID == userID
	})).Return(nil)

	output, err := srv.RefreshToken(ctx, &usecase.RefreshTokenInput{RefreshToken: "old-refresh"})

	require.NoError(t, err)
	assert.Equal(t, "new-access", output.AccessToken)
	assert.Equal(t, "new-refresh", output.RefreshToken)
	refreshRepo.AssertCalled(t, "DeleteRefreshToken", ctx, storedID)
}

func TestUserService_RefreshToken_RevokedToken(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	refreshRepo := mockRepo.NewMockRefreshTokenRepository(t)
	hasher := mockService.NewMockPasswordHasher(t)
	tokenService := mockService.NewMockTokenService(t)

	factory := &mockRepo.StubRepositoryFactory{RefreshTokenRepository: refreshRepo}
	srv := newUserService(t, factory, hasher, tokenService)

	// The JWT itself is still valid, but the session row is gone.
	tokenService.On("ValidateToken", "revoked-refresh").
		Return(&service.Claims{UserID: userID, Type: service.TokenTypeRefresh}, nil)
	tokenService.On("HashToken", "revoked-refresh").Return("revoked-hash")
	refreshRepo.On("FindRefreshTokenByHash", ctx, "revoked-hash").
		Return(nil, repository.ErrRefreshTokenNotFound)

	output, err := srv.RefreshToken(ctx, &usecase.RefreshTokenInput{RefreshToken: "revoked-refresh"})

	require.Error(t, err)
	assert.Nil(t, output)
	assert.True(t, errors.Is(err, domainerrors.ErrRefreshTokenInvalid))
}

func TestUserService_RefreshToken_AccessTokenRejected(t *testing.T) {
	ctx := context.Background()
	hasher := mockService.NewMockPasswordHasher(t)
	tokenService := mockService.NewMockTokenService(t)

	srv := newUserService(t, &mockRepo.StubRepositoryFactory{}, hasher, tokenService)

	// An access token must not be accepted where a refresh token is expected.
	tokenService.On("ValidateToken", "access-token").
		Return(&service.Claims{UserID: uuid.New(), Type: service.TokenTypeAccess}, nil)

	output, err := srv.RefreshToken(ctx, &usecase.RefreshTokenInput{RefreshToken: "access-token"})

	require.Error(t, err)
	assert.Nil(t, output)
	assert.True(t, errors.Is(err, domainerrors.ErrRefreshTokenInvalid))
}

func TestUserService_RefreshToken_DeletedUser(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	userRepo := mockRepo.NewMockUserRepository(t)
	refreshRepo := mockRepo.NewMockRefreshTokenRepository(t)
	hasher := mockService.NewMockPasswordHasher(t)
	tokenService := mockService.NewMockTokenService(t)

	factory := &mockRepo.StubRepositoryFactory{
		UserRepository:         userRepo,
		RefreshTokenRepository: refreshRepo,
	}
	srv := newUserService(t, factory, hasher, tokenService)

	tokenService.On("ValidateToken", "orphan-refresh").
		Return(&service.Claims{UserID: userID, Type: service.TokenTypeRefresh}, nil)
	tokenService.On("HashToken", "orphan-refresh").Return("orphan-hash")
	refreshRepo.On("FindRefreshTokenByHash", ctx, "orphan-hash").
		Return(&entity.RefreshToken{ID: uuid.New(), UserID: userID}, nil)
	userRepo.On("FindByID", ctx, userID).Return(nil, repository.ErrUserNotFound)

	output, err := srv.RefreshToken(ctx, &usecase.RefreshTokenInput{RefreshToken: "orphan-refresh"})

	require.Error(t, err)
	assert.Nil(t, output)
	assert.True(t, errors.Is(err, domainerrors.ErrRefreshTokenInvalid))
}

func TestUserService_Logout_Success(t *testing.T) {
	ctx := context.Background()
	refreshRepo := mockRepo.NewMockRefreshTokenRepository(t)
	hasher := mockService.NewMockPasswordHasher(t)
	tokenService := mockService.NewMockTokenService(t)

	factory := &mockRepo.StubRepositoryFactory{RefreshTokenRepository: refreshRepo}
	srv := newUserService(t, factory, hasher, tokenService)

	tokenService.On("ValidateToken", "refresh-token").
		Return(&service.Claims{UserID: uuid.New(), Type: service.TokenTypeRefresh}, nil)
	tokenService.On("HashToken", "refresh-token").Return("refresh-hash")
	refreshRepo.On("DeleteRefreshTokenByHash", ctx, "refresh-hash").Return(nil)

	err := srv.Logout(ctx, &usecase.LogoutInput{RefreshToken: "refresh-token"})

	require.NoError(t, err)
}

func TestUserService_Logout_UnknownTokenIsIdempotent(t *testing.T) {
	ctx := context.Background()
	refreshRepo := mockRepo.NewMockRefreshTokenRepository(t)
	hasher := mockService.NewMockPasswordHasher(t)
	tokenService := mockService.NewMockTokenService(t)

	factory := &mockRepo.StubRepositoryFactory{RefreshTokenRepository: refreshRepo}
	srv := newUserService(t, factory, hasher, tokenService)

	tokenService.On("ValidateToken", "gone-token").Return(nil, errors.New("expired"))
	tokenService.On("HashToken", "gone-token").Return("gone-hash")
	refreshRepo.On("DeleteRefreshTokenByHash", ctx, "gone-hash").
		Return(repository.ErrRefreshTokenNotFound)

	err := srv.Logout(ctx, &usecase.LogoutInput{RefreshToken: "gone-token"})

	require.NoError(t, err)
}

func TestUserService_GetMe(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	userRepo := mockRepo.NewMockUserRepository(t)
	hasher := mockService.NewMockPasswordHasher(t)
	tokenService := mockService.NewMockTokenService(t)

	factory := &mockRepo.StubRepositoryFactory{UserRepository: userRepo}
	srv := newUserService(t, factory, hasher, tokenService)

	userRepo.On("FindByID", ctx, userID).Return(&entity.User{ID: userID, Name: "Alice"}, nil)

	user, err := srv.GetMe(ctx, userID)

	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)

	missingID := uuid.New()
	userRepo.On("FindByID", ctx, missingID).Return(nil, repository.ErrUserNotFound)

	user, err = srv.GetMe(ctx, missingID)

	require.Error(t, err)
	assert.Nil(t, user)
	assert.True(t, errors.Is(err, domainerrors.ErrUserNotFound))
}
