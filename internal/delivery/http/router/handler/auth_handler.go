// Package handler contains the HTTP handlers that bind requests, call the
// usecase layer and shape responses.
package handler

import (
	"time"

	"inkwell/internal/delivery/http/middleware"
	"inkwell/internal/delivery/http/response"
	"inkwell/internal/domain/entity"
	"inkwell/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// AuthHandler exposes the authentication endpoints.
type AuthHandler struct {
	userUsecase usecase.UserUsecase
}

// AuthHandlerParams holds dependencies for AuthHandler, injected by Fx.
type AuthHandlerParams struct {
	fx.In

	UserUsecase usecase.UserUsecase
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(params AuthHandlerParams) *AuthHandler {
	return &AuthHandler{userUsecase: params.UserUsecase}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type userView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// tokenPairView serializes the access token under "token", the field name
// clients read it from.
type tokenPairView struct {
	AccessToken  string    `json:"token"`
	RefreshToken string    `json:"refreshToken"`
	User         *userView `json:"user,omitempty"`
}

func toUserView(user *entity.User) *userView {
	if user == nil {
		return nil
	}

	return &userView{
		ID:        user.ID.String(),
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
	}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return errors.Wrap(err, "failed to bind register request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	output, err := h.userUsecase.RegisterUser(c.Request().Context(), &usecase.RegisterUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return response.Created(c, toUserView(output.User))
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return errors.Wrap(err, "failed to bind login request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	output, err := h.userUsecase.Login(c.Request().Context(), &usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return response.OK(c, &tokenPairView{
		AccessToken:  output.AccessToken,
		RefreshToken: output.RefreshToken,
		User:         toUserView(output.User),
	})
}

// RefreshToken handles POST /api/auth/refresh-token. The response carries a
// rotated refresh token the client must store in place of the old one.
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var req refreshTokenRequest
	if err := c.Bind(&req); err != nil {
		return errors.Wrap(err, "failed to bind refresh token request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	output, err := h.userUsecase.RefreshToken(c.Request().Context(), &usecase.RefreshTokenInput{
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		return err
	}

	return response.OK(c, &tokenPairView{
		AccessToken:  output.AccessToken,
		RefreshToken: output.RefreshToken,
	})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req logoutRequest
	if err := c.Bind(&req); err != nil {
		return errors.Wrap(err, "failed to bind logout request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.userUsecase.Logout(c.Request().Context(), &usecase.LogoutInput{
		RefreshToken: req.RefreshToken,
	}); err != nil {
		return err
	}

	return response.NoContent(c)
}

// LogoutAllDevices handles POST /api/auth/logout-all. Requires authentication.
func (h *AuthHandler) LogoutAllDevices(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	if err := h.userUsecase.LogoutAllDevices(c.Request().Context(), userID); err != nil {
		return err
	}

	return response.NoContent(c)
}

// Me handles GET /api/auth/me. Requires authentication.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	user, err := h.userUsecase.GetMe(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	return response.OK(c, toUserView(user))
}
