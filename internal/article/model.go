package article

import (
	"time"

	"quill/app/internal/category"
	"quill/app/internal/user"
)

// Article is a content entry moving between draft and published states.
// PublishedAt is present exactly when IsPublished is true.
type Article struct {
	ID          uint       `gorm:"primaryKey"`
	Title       string     `gorm:"size:255;not null"`
	Slug        string     `gorm:"size:255;uniqueIndex:idx_articles_slug;not null"`
	Content     string     `gorm:"type:text;not null"`
	Excerpt     string     `gorm:"type:text"`
	IsPublished bool       `gorm:"not null;default:false"`
	PublishedAt *time.Time
	AuthorID    uint  `gorm:"not null;index"`
	CategoryID  *uint `gorm:"index"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`

	Author   *user.User         `gorm:"foreignKey:AuthorID"`
	Category *category.Category `gorm:"foreignKey:CategoryID"`
}

// TableName defines the table name for the Article model.
func (Article) TableName() string {
	return "articles"
}

// IsDraft reports whether the article is in the draft state.
func (a *Article) IsDraft() bool {
	return !a.IsPublished
}

// Publish transitions the article from draft to published, stamping
// PublishedAt. Publishing an already published article is a no-op; the
// original timestamp is preserved.
func (a *Article) Publish() {
	if a.IsPublished {
		return
	}

	now := time.Now().UTC()
	a.IsPublished = true
	a.PublishedAt = &now
}

// Unpublish transitions the article back to draft, clearing PublishedAt.
// Unpublishing a draft is a no-op.
func (a *Article) Unpublish() {
	if !a.IsPublished {
		return
	}

	a.IsPublished = false
	a.PublishedAt = nil
}
