package user

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"quill/app/internal/auth"
	"quill/app/internal/faults"
	"quill/app/internal/validate"
)

// Service defines registration and authentication operations.
type Service interface {
	Register(ctx context.Context, input validate.Registration) (*Summary, error)
	Authenticate(ctx context.Context, input validate.Login) (*Session, error)
	ChangePassword(ctx context.Context, userID uint, currentPassword, newPassword string) error
	GetByID(ctx context.Context, id uint) (*User, error)
}

// Summary is the caller-facing view of an account.
type Summary struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	FullName    string `json:"full_name"`
	IsStaff     bool   `json:"is_staff,omitempty"`
	IsSuperuser bool   `json:"is_superuser,omitempty"`
}

// Session is the result of a successful authentication.
type Session struct {
	User      Summary `json:"user"`
	Token     string  `json:"token"`
	ExpiresIn int64   `json:"expires_in"`
}

type service struct {
	repo      Repository
	hasher    *auth.PasswordHasher
	tokens    *auth.TokenManager
	logger    *logrus.Logger
	sentryHub *sentry.Hub
}

var _ Service = (*service)(nil)

// NewService wires the user service with its dependencies.
func NewService(repo Repository, hasher *auth.PasswordHasher, tokens *auth.TokenManager, logger *logrus.Logger, hub *sentry.Hub) (Service, error) {
	if repo == nil {
		return nil, eris.New("user repository is required")
	}
	if hasher == nil {
		return nil, eris.New("password hasher is required")
	}
	if tokens == nil {
		return nil, eris.New("token manager is required")
	}

	return &service{
		repo:      repo,
		hasher:    hasher,
		tokens:    tokens,
		logger:    logger,
		sentryHub: hub,
	}, nil
}

func (s *service) Register(ctx context.Context, input validate.Registration) (*Summary, error) {
	if err := validate.ValidateRegistration(input); err != nil {
		return nil, err
	}

	emailTaken, err := s.repo.EmailExists(ctx, input.Email)
	if err != nil {
		s.recordError(logrus.Fields{"operation": "user_registration"}, err, "checking email availability")
		return nil, eris.Wrap(err, "registering user")
	}
	if emailTaken {
		return nil, faults.New(faults.KindValidation, "email address already exists").
			WithUserMessage("Registration failed. Please check your input.")
	}

	usernameTaken, err := s.repo.UsernameExists(ctx, input.Username)
	if err != nil {
		s.recordError(logrus.Fields{"operation": "user_registration"}, err, "checking username availability")
		return nil, eris.Wrap(err, "registering user")
	}
	if usernameTaken {
		return nil, faults.New(faults.KindValidation, "username already exists").
			WithUserMessage("Registration failed. Please check your input.")
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		s.recordError(logrus.Fields{"operation": "user_registration"}, err, "hashing password")
		return nil, eris.Wrap(err, "registering user")
	}

	account := &User{
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: hash,
		FirstName:    validate.SanitizeString(input.FirstName, 50),
		LastName:     validate.SanitizeString(input.LastName, 50),
		IsActive:     true,
	}

	if err := s.repo.Create(ctx, account); err != nil {
		s.recordError(logrus.Fields{"operation": "user_registration"}, err, "persisting user")
		return nil, eris.Wrap(err, "registering user")
	}

	summary := summarize(account)
	return &summary, nil
}

func (s *service) Authenticate(ctx context.Context, input validate.Login) (*Session, error) {
	if err := validate.ValidateLogin(input); err != nil {
		return nil, err
	}

	account, err := s.repo.GetByEmail(ctx, input.Email)
	if err != nil {
		s.recordError(logrus.Fields{"operation": "user_authentication"}, err, "fetching account")
		return nil, eris.Wrap(err, "authenticating user")
	}

	if account == nil {
		return nil, authFailure("invalid email or password")
	}

	if !account.IsActive {
		return nil, authFailure("account is deactivated")
	}

	if !s.hasher.Verify(input.Password, account.PasswordHash) {
		return nil, authFailure("invalid email or password")
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, account.ID, now); err != nil {
		s.recordError(logrus.Fields{"operation": "user_authentication", "user_id": account.ID}, err, "updating last login")
		return nil, eris.Wrap(err, "authenticating user")
	}

	token, err := s.tokens.Issue(account.ID, account.Email)
	if err != nil {
		s.recordError(logrus.Fields{"operation": "user_authentication", "user_id": account.ID}, err, "issuing access token")
		return nil, eris.Wrap(err, "authenticating user")
	}

	return &Session{
		User:      summarize(account),
		Token:     token,
		ExpiresIn: s.tokens.TTLSeconds(),
	}, nil
}

func (s *service) ChangePassword(ctx context.Context, userID uint, currentPassword, newPassword string) error {
	account, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		s.recordError(logrus.Fields{"operation": "password_change", "user_id": userID}, err, "fetching account")
		return eris.Wrap(err, "changing password")
	}

	if account == nil {
		return faults.New(faults.KindAuthentication, "user not found")
	}

	if !s.hasher.Verify(currentPassword, account.PasswordHash) {
		return faults.New(faults.KindAuthentication, "current password is incorrect")
	}

	if !validate.ValidatePassword(newPassword) {
		return faults.New(faults.KindValidation, "new password doesn't meet requirements")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		s.recordError(logrus.Fields{"operation": "password_change", "user_id": userID}, err, "hashing new password")
		return eris.Wrap(err, "changing password")
	}

	if err := s.repo.UpdatePasswordHash(ctx, userID, hash); err != nil {
		s.recordError(logrus.Fields{"operation": "password_change", "user_id": userID}, err, "persisting new password")
		return eris.Wrap(err, "changing password")
	}

	return nil
}

func (s *service) GetByID(ctx context.Context, id uint) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func authFailure(reason string) error {
	return faults.New(faults.KindAuthentication, reason).
		WithUserMessage("Authentication failed. Please check your credentials.")
}

func summarize(account *User) Summary {
	return Summary{
		ID:          account.ID,
		Email:       account.Email,
		Username:    account.Username,
		FullName:    account.FullName(),
		IsStaff:     account.IsStaff,
		IsSuperuser: account.IsSuperuser,
	}
}

func (s *service) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if s.sentryHub != nil {
		s.sentryHub.CaptureException(err)
	}
}
