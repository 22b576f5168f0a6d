package article

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"quill/app/internal/faults"
)

// Filter narrows article listings. Zero values leave a dimension
// unconstrained.
type Filter struct {
	PublishedOnly bool
	AuthorID      uint
	CategoryID    uint
	Query         string
	Skip          int
	Limit         int
}

// Repository defines persistence operations for articles.
type Repository interface {
	Create(ctx context.Context, article *Article) error
	Save(ctx context.Context, article *Article) error
	Delete(ctx context.Context, id uint) (bool, error)
	GetByID(ctx context.Context, id uint) (*Article, error)
	GetBySlug(ctx context.Context, slug string) (*Article, error)
	SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error)
	List(ctx context.Context, filter Filter) ([]Article, int64, error)
}

// GormRepository persists articles using a Gorm database connection.
type GormRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewRepository constructs a Gorm-backed repository implementation.
func NewRepository(db *gorm.DB, logger *logrus.Logger) (*GormRepository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &GormRepository{db: db, logger: logger}, nil
}

var _ Repository = (*GormRepository)(nil)

// Migrate applies the article schema. User and category schemas must be
// migrated first for the foreign keys to resolve.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return eris.New("gorm DB is required")
	}

	if err := db.WithContext(ctx).AutoMigrate(&Article{}); err != nil {
		return eris.Wrap(err, "auto migrating article schema")
	}

	return nil
}

// Create stores a new article. A slug collision surfaces as a database
// conflict for the service-level retry.
func (r *GormRepository) Create(ctx context.Context, article *Article) error {
	if article == nil {
		return eris.New("article is nil")
	}

	if err := r.db.WithContext(ctx).Create(article).Error; err != nil {
		r.logError(logrus.Fields{"slug": article.Slug}, err, "creating article")
		if eris.Is(err, gorm.ErrDuplicatedKey) {
			return faults.Wrap(faults.KindDatabase, err, "article slug conflict")
		}
		return faults.Wrap(faults.KindDatabase, err, "creating article")
	}

	return nil
}

// Save persists the full state of an existing article.
func (r *GormRepository) Save(ctx context.Context, article *Article) error {
	if article == nil {
		return eris.New("article is nil")
	}

	err := r.db.WithContext(ctx).Omit("Author", "Category").Save(article).Error
	if err != nil {
		r.logError(logrus.Fields{"article_id": article.ID}, err, "saving article")
		if eris.Is(err, gorm.ErrDuplicatedKey) {
			return faults.Wrap(faults.KindDatabase, err, "article slug conflict")
		}
		return faults.Wrap(faults.KindDatabase, err, "saving article")
	}

	return nil
}

// Delete removes the article, reporting whether a row existed.
func (r *GormRepository) Delete(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&Article{}, id)
	if result.Error != nil {
		r.logError(logrus.Fields{"article_id": id}, result.Error, "deleting article")
		return false, faults.Wrap(faults.KindDatabase, result.Error, "deleting article")
	}

	return result.RowsAffected > 0, nil
}

// GetByID returns the article for the id, or nil when not found.
func (r *GormRepository) GetByID(ctx context.Context, id uint) (*Article, error) {
	var found Article
	err := r.db.WithContext(ctx).Preload("Author").Preload("Category").First(&found, id).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"article_id": id}, err, "fetching article by id")
		return nil, faults.Wrap(faults.KindDatabase, err, "fetching article by id")
	}

	return &found, nil
}

// GetBySlug returns the article for the slug, or nil when not found.
func (r *GormRepository) GetBySlug(ctx context.Context, slug string) (*Article, error) {
	var found Article
	err := r.db.WithContext(ctx).Preload("Author").Preload("Category").First(&found, "slug = ?", slug).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"slug": slug}, err, "fetching article by slug")
		return nil, faults.Wrap(faults.KindDatabase, err, "fetching article by slug")
	}

	return &found, nil
}

// SlugExists reports whether a slug is taken, optionally excluding the row
// being updated.
func (r *GormRepository) SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error) {
	query := r.db.WithContext(ctx).Model(&Article{}).Where("slug = ?", slug)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		r.logError(logrus.Fields{"slug": slug}, err, "checking article slug existence")
		return false, faults.Wrap(faults.KindDatabase, err, "checking article slug existence")
	}

	return count > 0, nil
}

// List returns a page of articles matching the filter with the total count.
// Published listings are ordered most recently published first; everything
// else falls back to creation order.
func (r *GormRepository) List(ctx context.Context, filter Filter) ([]Article, int64, error) {
	query := r.db.WithContext(ctx).Model(&Article{})

	if filter.PublishedOnly {
		query = query.Where("is_published = ?", true)
	}
	if filter.AuthorID != 0 {
		query = query.Where("author_id = ?", filter.AuthorID)
	}
	if filter.CategoryID != 0 {
		query = query.Where("category_id = ?", filter.CategoryID)
	}
	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		query = query.Where("title LIKE ? OR content LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		r.logError(nil, err, "counting articles")
		return nil, 0, faults.Wrap(faults.KindDatabase, err, "counting articles")
	}

	order := "created_at DESC"
	if filter.PublishedOnly {
		order = "published_at DESC"
	}

	var articles []Article
	err := query.
		Preload("Author").
		Preload("Category").
		Order(order).
		Offset(filter.Skip).
		Limit(filter.Limit).
		Find(&articles).Error
	if err != nil {
		r.logError(nil, err, "listing articles")
		return nil, 0, faults.Wrap(faults.KindDatabase, err, "listing articles")
	}

	return articles, total, nil
}

func (r *GormRepository) logError(fields logrus.Fields, err error, message string) {
	if r.logger == nil {
		return
	}

	entry := r.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
