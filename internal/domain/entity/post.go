package entity

import (
	"time"

	"github.com/google/uuid"
)

// Post is a blog entry owned by exactly one author. Mutations (update,
// delete, pin-toggle) are only permitted for the author; the check lives in
// the usecase layer, not here.
type Post struct {
	ID         uuid.UUID  // The unique ID of the post.
	AuthorID   uuid.UUID  // The user that owns this post.
	Title      string     // Post title.
	Content    string     // Post body.
	CategoryID *uuid.UUID // Optional category tag.
	Category   *Category  // Resolved category, populated on reads.
	ImageURL   string     // Optional path of an uploaded header image.
	IsPinned   bool       // Whether the author pinned this post.
	Comments   []*Comment // Comments in arrival order (oldest first).
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Comment belongs to exactly one post and one author. Comments are appended
// in arrival order and never reordered; deletion is by ID, never by position.
type Comment struct {
	ID         uuid.UUID // The unique ID of the comment.
	PostID     uuid.UUID // The post this comment belongs to.
	UserID     uuid.UUID // The user that wrote this comment.
	AuthorName string    // Resolved display name of the comment author, populated on reads.
	Content    string    // Comment body.
	CreatedAt  time.Time
}

// Category is a named tag referenced by posts. Categories carry no ownership
// semantics and are globally readable.
type Category struct {
	ID          uuid.UUID
	Name        string
	Description string
	CreatedAt   time.Time
}
