// Package router wires the HTTP endpoints to their handlers.
package router

import (
	"net/http"

	"inkwell/internal/delivery/http/middleware"
	"inkwell/internal/delivery/http/response"
	"inkwell/internal/delivery/http/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// Router registers every route of the API.
type Router struct {
	authHandler     *handler.AuthHandler
	postHandler     *handler.PostHandler
	categoryHandler *handler.CategoryHandler
	authMiddleware  *middleware.AuthMiddleware
}

// RouterParams holds dependencies for Router, injected by Fx.
type RouterParams struct {
	fx.In

	AuthHandler     *handler.AuthHandler
	PostHandler     *handler.PostHandler
	CategoryHandler *handler.CategoryHandler
	AuthMiddleware  *middleware.AuthMiddleware
}

// New creates a new Router.
func New(params RouterParams) *Router {
	return &Router{
		authHandler:     params.AuthHandler,
		postHandler:     params.PostHandler,
		categoryHandler: params.CategoryHandler,
		authMiddleware:  params.AuthMiddleware,
	}
}

// RegisterRoutes mounts all endpoints on the echo instance. Read endpoints
// are public; every mutation goes through the authentication middleware.
func (r *Router) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return response.OK(c, map[string]string{"status": http.StatusText(http.StatusOK)})
	})

	api := e.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", r.authHandler.Register)
	auth.POST("/login", r.authHandler.Login)
	auth.POST("/refresh-token", r.authHandler.RefreshToken)
	auth.POST("/logout", r.authHandler.Logout)
	auth.POST("/logout-all", r.authHandler.LogoutAllDevices, r.authMiddleware.Authenticate)
	auth.GET("/me", r.authHandler.Me, r.authMiddleware.Authenticate)

	posts := api.Group("/posts")
	posts.GET("", r.postHandler.List)
	posts.GET("/:id", r.postHandler.Get)
	posts.GET("/:id/comments", r.postHandler.ListComments)
	posts.POST("", r.postHandler.Create, r.authMiddleware.Authenticate)
	posts.PUT("/:id", r.postHandler.Update, r.authMiddleware.Authenticate)
	posts.DELETE("/:id", r.postHandler.Delete, r.authMiddleware.Authenticate)
	posts.PUT("/:id/pin", r.postHandler.TogglePin, r.authMiddleware.Authenticate)
	posts.POST("/:id/comments", r.postHandler.AddComment, r.authMiddleware.Authenticate)
	posts.DELETE("/:postId/comments/:commentId", r.postHandler.DeleteComment, r.authMiddleware.Authenticate)

	categories := api.Group("/categories")
	categories.GET("", r.categoryHandler.List)
	categories.POST("", r.categoryHandler.Create, r.authMiddleware.Authenticate)
}
