package user

import (
	"strings"
	"time"
)

// User is an account that authors content.
type User struct {
	ID           uint       `gorm:"primaryKey"`
	Email        string     `gorm:"size:255;uniqueIndex:idx_users_email;not null"`
	Username     string     `gorm:"size:30;uniqueIndex:idx_users_username;not null"`
	PasswordHash string     `gorm:"size:255;not null"`
	FirstName    string     `gorm:"size:50"`
	LastName     string     `gorm:"size:50"`
	IsActive     bool       `gorm:"not null;default:true"`
	IsStaff      bool       `gorm:"not null;default:false"`
	IsSuperuser  bool       `gorm:"not null;default:false"`
	CreatedAt    time.Time  `gorm:"not null"`
	UpdatedAt    time.Time  `gorm:"not null"`
	LastLogin    *time.Time
}

// TableName defines the table name for the User model.
func (User) TableName() string {
	return "users"
}

// FullName joins the user's first and last names.
func (u *User) FullName() string {
	parts := make([]string, 0, 2)
	for _, part := range []string{u.FirstName, u.LastName} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " ")
}

// DisplayName is the full name when present, otherwise the username.
func (u *User) DisplayName() string {
	if name := u.FullName(); name != "" {
		return name
	}
	return u.Username
}
