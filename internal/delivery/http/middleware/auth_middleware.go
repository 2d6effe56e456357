package middleware

import (
	"log/slog"
	"strings"

	deliverycontext "inkwell/internal/delivery/context"
	domainerrors "inkwell/internal/domain/errors"
	"inkwell/internal/domain/repository"
	"inkwell/internal/domain/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const (
	// ContextKeyUserID is where the resolved subject's ID is stored in echo.Context.
	ContextKeyUserID = "auth_user_id"

	bearerPrefix = "Bearer "
)

// AuthMiddleware resolves the request's subject from its bearer token.
// Every failure mode — missing header, malformed token, bad signature,
// expired token, wrong token type, deleted user — yields the same 401, so a
// caller cannot probe which part failed. Permission problems are NOT handled
// here; those are 403s raised by the usecase layer.
type AuthMiddleware struct {
	tokenService service.TokenService
	userRepo     repository.UserRepository
	logger       *slog.Logger
}

// AuthMiddlewareParams holds dependencies for AuthMiddleware, injected by Fx.
type AuthMiddlewareParams struct {
	fx.In

	TokenService service.TokenService
	UserRepo     repository.UserRepository
	Logger       *slog.Logger
}

// NewAuthMiddleware creates a new authentication middleware.
func NewAuthMiddleware(params AuthMiddlewareParams) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: params.TokenService,
		userRepo:     params.UserRepo,
		logger:       params.Logger,
	}
}

// Authenticate guards a route group. On success the subject's user ID is
// stored in the echo context for handlers to read via GetUserID.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := deliverycontext.GetLoggerOrDefault(c.Request().Context(), m.logger)

		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if header == "" || !strings.HasPrefix(header, bearerPrefix) {
			return errors.Wrap(domainerrors.ErrUnauthorized, "missing bearer token")
		}

		tokenString := strings.TrimPrefix(header, bearerPrefix)

		claims, err := m.tokenService.ValidateToken(tokenString)
		if err != nil {
			log.Debug("Token validation failed", slog.Any("error", err))

			return errors.Wrap(domainerrors.ErrUnauthorized, "invalid or expired token")
		}

		// A refresh token must never be usable as an access token.
		if claims.Type != service.TokenTypeAccess {
			return errors.Wrap(domainerrors.ErrUnauthorized, "token is not an access token")
		}

		// The subject must still exist: tokens of deleted accounts are dead.
		user, err := m.userRepo.FindByID(c.Request().Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return errors.Wrap(domainerrors.ErrUnauthorized, "user no longer exists")
			}
			log.Error("Failed to load user during authentication", slog.Any("error", err))

			return errors.Wrap(err, "failed to load user during authentication")
		}

		c.Set(ContextKeyUserID, user.ID)

		return next(c)
	}
}

// GetUserID extracts the authenticated subject's ID placed by Authenticate.
func GetUserID(c echo.Context) (uuid.UUID, error) {
	userID, ok := c.Get(ContextKeyUserID).(uuid.UUID)
	if !ok {
		return uuid.Nil, errors.Wrap(domainerrors.ErrUnauthorized, "no authenticated user in context")
	}

	return userID, nil
}
