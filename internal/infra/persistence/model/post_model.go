package model

import (
	"time"

	"github.com/google/uuid"
)

// PostModel mirrors the 'posts' table. CategoryID is nullable; deleting a
// post cascades to its comments at the database level.
type PostModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	AuthorID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	Title      string     `gorm:"type:varchar(255);not null"`
	Content    string     `gorm:"type:text;not null"`
	CategoryID *uuid.UUID `gorm:"type:uuid;index"`
	ImageURL   string     `gorm:"type:varchar(500)"`
	IsPinned   bool       `gorm:"not null;default:false"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Category *CategoryModel `gorm:"foreignKey:CategoryID"`
	Comments []CommentModel `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
}

// TableName explicitly sets the table name for GORM.
func (PostModel) TableName() string {
	return "posts"
}

// CommentModel mirrors the 'comments' table. Each comment is its own row, so
// concurrent appends to the same post are independent inserts.
type CommentModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	PostID    uuid.UUID `gorm:"type:uuid;not null;index"`
	UserID    uuid.UUID `gorm:"type:uuid;not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time

	User *UserModel `gorm:"foreignKey:UserID"`
}

// TableName explicitly sets the table name for GORM.
func (CommentModel) TableName() string {
	return "comments"
}

// CategoryModel mirrors the 'categories' table.
type CategoryModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	Name        string    `gorm:"type:varchar(100);unique;not null"`
	Description string    `gorm:"type:text"`
	CreatedAt   time.Time
}

// TableName explicitly sets the table name for GORM.
func (CategoryModel) TableName() string {
	return "categories"
}
