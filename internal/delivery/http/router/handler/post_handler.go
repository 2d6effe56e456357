package handler

import (
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"inkwell/internal/delivery/http/middleware"
	"inkwell/internal/delivery/http/response"
	"inkwell/internal/domain/entity"
	domainerrors "inkwell/internal/domain/errors"
	"inkwell/internal/domain/service"
	"inkwell/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// PostHandler exposes the post and comment endpoints.
type PostHandler struct {
	postUsecase   usecase.PostUsecase
	uploadService service.UploadService
}

// PostHandlerParams holds dependencies for PostHandler, injected by Fx.
type PostHandlerParams struct {
	fx.In

	PostUsecase   usecase.PostUsecase
	UploadService service.UploadService
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(params PostHandlerParams) *PostHandler {
	return &PostHandler{
		postUsecase:   params.PostUsecase,
		uploadService: params.UploadService,
	}
}

type postPayload struct {
	Title      string `json:"title" form:"title" validate:"required,max=200"`
	Content    string `json:"content" form:"content" validate:"required"`
	CategoryID string `json:"categoryId" form:"categoryId" validate:"omitempty,uuid"`
}

type addCommentRequest struct {
	Content string `json:"content" validate:"required"`
}

type commentView struct {
	ID         string    `json:"id"`
	PostID     string    `json:"postId"`
	UserID     string    `json:"userId"`
	AuthorName string    `json:"authorName"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

type categoryView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type postView struct {
	ID        string         `json:"id"`
	AuthorID  string         `json:"authorId"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Category  *categoryView  `json:"category,omitempty"`
	ImageURL  string         `json:"imageUrl,omitempty"`
	IsPinned  bool           `json:"isPinned"`
	Comments  []*commentView `json:"comments,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func toCommentView(comment *entity.Comment) *commentView {
	return &commentView{
		ID:         comment.ID.String(),
		PostID:     comment.PostID.String(),
		UserID:     comment.UserID.String(),
		AuthorName: comment.AuthorName,
		Content:    comment.Content,
		CreatedAt:  comment.CreatedAt,
	}
}

func toPostView(post *entity.Post) *postView {
	view := &postView{
		ID:        post.ID.String(),
		AuthorID:  post.AuthorID.String(),
		Title:     post.Title,
		Content:   post.Content,
		ImageURL:  post.ImageURL,
		IsPinned:  post.IsPinned,
		CreatedAt: post.CreatedAt,
		UpdatedAt: post.UpdatedAt,
	}
	if post.Category != nil {
		view.Category = &categoryView{
			ID:          post.Category.ID.String(),
			Name:        post.Category.Name,
			Description: post.Category.Description,
		}
	}
	for _, comment := range post.Comments {
		view.Comments = append(view.Comments, toCommentView(comment))
	}

	return view
}

func toPostViews(posts []*entity.Post) []*postView {
	views := make([]*postView, 0, len(posts))
	for _, post := range posts {
		views = append(views, toPostView(post))
	}

	return views
}

// List handles GET /api/posts with pagination, category filter, search and
// sorting.
func (h *PostHandler) List(c echo.Context) error {
	input := &usecase.ListPostsInput{
		Search: strings.TrimSpace(c.QueryParam("search")),
		Sort:   c.QueryParam("sort"),
	}

	if raw := c.QueryParam("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return domainerrors.ErrValidationFailed.WithDetails("page must be an integer")
		}
		input.Page = page
	}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return domainerrors.ErrValidationFailed.WithDetails("limit must be an integer")
		}
		input.Limit = limit
	}
	if raw := c.QueryParam("category"); raw != "" {
		categoryID, err := uuid.Parse(raw)
		if err != nil {
			return domainerrors.ErrValidationFailed.WithDetails("category must be a UUID")
		}
		input.CategoryID = &categoryID
	}

	output, err := h.postUsecase.ListPosts(c.Request().Context(), input)
	if err != nil {
		return err
	}

	views := toPostViews(output.Posts)

	return response.List(c, views, len(views), output.Total, output.Page, output.Limit)
}

// Get handles GET /api/posts/:id.
func (h *PostHandler) Get(c echo.Context) error {
	postID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	post, err := h.postUsecase.GetPost(c.Request().Context(), postID)
	if err != nil {
		return err
	}

	return response.OK(c, toPostView(post))
}

// Create handles POST /api/posts. The body may be JSON or multipart form
// data; multipart additionally accepts an "image" file part.
func (h *PostHandler) Create(c echo.Context) error {
	actorID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	var payload postPayload
	if err := c.Bind(&payload); err != nil {
		return errors.Wrap(err, "failed to bind post payload")
	}
	if err := c.Validate(&payload); err != nil {
		return err
	}

	categoryID, err := parseOptionalUUID(payload.CategoryID)
	if err != nil {
		return err
	}

	imageURL, err := h.saveImageIfPresent(c)
	if err != nil {
		return err
	}

	post, err := h.postUsecase.CreatePost(c.Request().Context(), &usecase.CreatePostInput{
		AuthorID:   actorID,
		Title:      payload.Title,
		Content:    payload.Content,
		CategoryID: categoryID,
		ImageURL:   imageURL,
	})
	if err != nil {
		return err
	}

	return response.Created(c, toPostView(post))
}

// Update handles PUT /api/posts/:id. Only the post author may update; the
// ownership check happens in the usecase.
func (h *PostHandler) Update(c echo.Context) error {
	actorID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	postID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var payload postPayload
	if err := c.Bind(&payload); err != nil {
		return errors.Wrap(err, "failed to bind post payload")
	}
	if err := c.Validate(&payload); err != nil {
		return err
	}

	categoryID, err := parseOptionalUUID(payload.CategoryID)
	if err != nil {
		return err
	}

	imageURL, err := h.saveImageIfPresent(c)
	if err != nil {
		return err
	}

	post, err := h.postUsecase.UpdatePost(c.Request().Context(), &usecase.UpdatePostInput{
		PostID:     postID,
		ActorID:    actorID,
		Title:      payload.Title,
		Content:    payload.Content,
		CategoryID: categoryID,
		ImageURL:   imageURL,
	})
	if err != nil {
		return err
	}

	return response.OK(c, toPostView(post))
}

// Delete handles DELETE /api/posts/:id.
func (h *PostHandler) Delete(c echo.Context) error {
	actorID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	postID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.postUsecase.DeletePost(c.Request().Context(), postID, actorID); err != nil {
		return err
	}

	return response.NoContent(c)
}

// TogglePin handles PUT /api/posts/:id/pin.
func (h *PostHandler) TogglePin(c echo.Context) error {
	actorID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	postID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	post, err := h.postUsecase.TogglePin(c.Request().Context(), postID, actorID)
	if err != nil {
		return err
	}

	return response.OK(c, toPostView(post))
}

// ListComments handles GET /api/posts/:id/comments.
func (h *PostHandler) ListComments(c echo.Context) error {
	postID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	comments, err := h.postUsecase.ListComments(c.Request().Context(), postID)
	if err != nil {
		return err
	}

	views := make([]*commentView, 0, len(comments))
	for _, comment := range comments {
		views = append(views, toCommentView(comment))
	}

	return response.OK(c, views)
}

// AddComment handles POST /api/posts/:id/comments. Any authenticated user may
// comment, not just the post author.
func (h *PostHandler) AddComment(c echo.Context) error {
	actorID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	postID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req addCommentRequest
	if err := c.Bind(&req); err != nil {
		return errors.Wrap(err, "failed to bind comment request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	comment, err := h.postUsecase.AddComment(c.Request().Context(), &usecase.AddCommentInput{
		PostID:  postID,
		UserID:  actorID,
		Content: req.Content,
	})
	if err != nil {
		return err
	}

	return response.Created(c, toCommentView(comment))
}

// DeleteComment handles DELETE /api/posts/:postId/comments/:commentId. The
// usecase allows the comment author or the post author to delete.
func (h *PostHandler) DeleteComment(c echo.Context) error {
	actorID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	postID, err := parseIDParam(c, "postId")
	if err != nil {
		return err
	}
	commentID, err := parseIDParam(c, "commentId")
	if err != nil {
		return err
	}

	if err := h.postUsecase.DeleteComment(c.Request().Context(), postID, commentID, actorID); err != nil {
		return err
	}

	return response.NoContent(c)
}

// saveImageIfPresent stores the optional "image" multipart part and returns
// its public URL. A JSON body simply has no file part.
func (h *PostHandler) saveImageIfPresent(c echo.Context) (string, error) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		// No file part was sent; not an error for JSON or image-less forms.
		return "", nil
	}

	return h.saveImage(c, fileHeader)
}

func (h *PostHandler) saveImage(c echo.Context, fileHeader *multipart.FileHeader) (string, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return "", errors.Wrap(err, "failed to open uploaded image")
	}
	defer src.Close()

	return h.uploadService.SaveImage(c.Request().Context(), fileHeader.Filename, src, fileHeader.Size)
}

func parseIDParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, domainerrors.ErrValidationFailed.WithDetails(name + " must be a UUID")
	}

	return id, nil
}

func parseOptionalUUID(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, domainerrors.ErrValidationFailed.WithDetails("categoryId must be a UUID")
	}

	return &id, nil
}
