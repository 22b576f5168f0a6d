package category

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"quill/app/internal/faults"
)

// Repository defines persistence operations for categories.
type Repository interface {
	Create(ctx context.Context, category *Category) error
	GetByID(ctx context.Context, id uint) (*Category, error)
	GetBySlug(ctx context.Context, slug string) (*Category, error)
	SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error)
	List(ctx context.Context, activeOnly bool, skip, limit int) ([]Category, int64, error)
}

// GormRepository persists categories using a Gorm database connection.
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

// Migrate applies the category schema.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return eris.New("gorm DB is required")
	}

	if err := db.WithContext(ctx).AutoMigrate(&Category{}); err != nil {
		return eris.Wrap(err, "auto migrating category schema")
	}

	return nil
}

// Create stores a new category. A slug collision surfaces as a database
// conflict for the service-level retry.
func (r *GormRepository) Create(ctx context.Context, category *Category) error {
	if category == nil {
		return eris.New("category is nil")
	}

	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		r.logError(logrus.Fields{"slug": category.Slug}, err, "creating category")
		if eris.Is(err, gorm.ErrDuplicatedKey) {
			return faults.Wrap(faults.KindDatabase, err, "category slug conflict")
		}
		return faults.Wrap(faults.KindDatabase, err, "creating category")
	}

	return nil
}

// GetByID returns the category for the id, or nil when not found.
func (r *GormRepository) GetByID(ctx context.Context, id uint) (*Category, error) {
	var category Category
	err := r.db.WithContext(ctx).First(&category, id).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"category_id": id}, err, "fetching category by id")
		return nil, faults.Wrap(faults.KindDatabase, err, "fetching category by id")
	}

	return &category, nil
}

// GetBySlug returns the category for the slug, or nil when not found.
func (r *GormRepository) GetBySlug(ctx context.Context, slug string) (*Category, error) {
	var category Category
	err := r.db.WithContext(ctx).First(&category, "slug = ?", slug).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"slug": slug}, err, "fetching category by slug")
		return nil, faults.Wrap(faults.KindDatabase, err, "fetching category by slug")
	}

	return &category, nil
}

// SlugExists reports whether a slug is taken, optionally excluding the row
// being updated.
func (r *GormRepository) SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error) {
	query := r.db.WithContext(ctx).Model(&Category{}).Where("slug = ?", slug)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		r.logError(logrus.Fields{"slug": slug}, err, "checking category slug existence")
		return false, faults.Wrap(faults.KindDatabase, err, "checking category slug existence")
	}

	return count > 0, nil
}

// List returns categories ordered by name with the total matching count.
func (r *GormRepository) List(ctx context.Context, activeOnly bool, skip, limit int) ([]Category, int64, error) {
	query := r.db.WithContext(ctx).Model(&Category{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		r.logError(nil, err, "counting categories")
		return nil, 0, faults.Wrap(faults.KindDatabase, err, "counting categories")
	}

	var categories []Category
	err := query.Order("name ASC").Offset(skip).Limit(limit).Find(&categories).Error
	if err != nil {
		r.logError(nil, err, "listing categories")
		return nil, 0, faults.Wrap(faults.KindDatabase, err, "listing categories")
	}

	return categories, total, nil
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
