package user

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"quill/app/internal/faults"
)

// Repository defines persistence operations for users.
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uint) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	UpdateLastLogin(ctx context.Context, id uint, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id uint, hash string) error
}

// GormRepository persists users using a Gorm database connection.
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

// Migrate applies the user schema.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return eris.New("gorm DB is required")
	}

	if err := db.WithContext(ctx).AutoMigrate(&User{}); err != nil {
		return eris.Wrap(err, "auto migrating user schema")
	}

	return nil
}

// Create stores a new user. Emails are stored lowercase.
func (r *GormRepository) Create(ctx context.Context, user *User) error {
	if user == nil {
		return eris.New("user is nil")
	}

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		r.logError(logrus.Fields{"email": user.Email}, err, "creating user")
		if eris.Is(err, gorm.ErrDuplicatedKey) {
			return faults.Wrap(faults.KindDatabase, err, "user already exists")
		}
		return faults.Wrap(faults.KindDatabase, err, "creating user")
	}

	return nil
}

// GetByID returns the user for the id, or nil when not found.
func (r *GormRepository) GetByID(ctx context.Context, id uint) (*User, error) {
	var user User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"user_id": id}, err, "fetching user by id")
		return nil, faults.Wrap(faults.KindDatabase, err, "fetching user by id")
	}

	return &user, nil
}

// GetByEmail returns the user for the email, or nil when not found.
func (r *GormRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))

	var user User
	err := r.db.WithContext(ctx).First(&user, "email = ?", normalized).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"email": normalized}, err, "fetching user by email")
		return nil, faults.Wrap(faults.KindDatabase, err, "fetching user by email")
	}

	return &user, nil
}

// EmailExists reports whether an account already uses the email.
func (r *GormRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))

	var count int64
	err := r.db.WithContext(ctx).Model(&User{}).Where("email = ?", normalized).Count(&count).Error
	if err != nil {
		r.logError(logrus.Fields{"email": normalized}, err, "checking email existence")
		return false, faults.Wrap(faults.KindDatabase, err, "checking email existence")
	}

	return count > 0, nil
}

// UsernameExists reports whether an account already uses the username.
func (r *GormRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Count(&count).Error
	if err != nil {
		r.logError(logrus.Fields{"username": username}, err, "checking username existence")
		return false, faults.Wrap(faults.KindDatabase, err, "checking username existence")
	}

	return count > 0, nil
}

// UpdateLastLogin records the time of a successful authentication.
func (r *GormRepository) UpdateLastLogin(ctx context.Context, id uint, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("last_login", at).Error
	if err != nil {
		r.logError(logrus.Fields{"user_id": id}, err, "updating last login")
		return faults.Wrap(faults.KindDatabase, err, "updating last login")
	}

	return nil
}

// UpdatePasswordHash replaces the stored password digest.
func (r *GormRepository) UpdatePasswordHash(ctx context.Context, id uint, hash string) error {
	err := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("password_hash", hash).Error
	if err != nil {
		r.logError(logrus.Fields{"user_id": id}, err, "updating password hash")
		return faults.Wrap(faults.KindDatabase, err, "updating password hash")
	}

	return nil
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
