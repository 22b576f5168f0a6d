package category

import "time"

// Category organizes articles. Slugs are unique within the category
// namespace; names are not constrained, identically named categories resolve
// to distinct slugs.
type Category struct {
	ID          uint      `gorm:"primaryKey"`
	Name        string    `gorm:"size:100;not null"`
	Slug        string    `gorm:"size:100;uniqueIndex:idx_categories_slug;not null"`
	Description string    `gorm:"type:text"`
	IsActive    bool      `gorm:"not null;default:true"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName defines the table name for the Category model.
func (Category) TableName() string {
	return "categories"
}
