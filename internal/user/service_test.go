package user

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"quill/app/internal/auth"
	"quill/app/internal/db"
	"quill/app/internal/faults"
	"quill/app/internal/validate"
)

const testPassword = "Str0ng!Pass"

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	conn, err := db.Open(db.Options{Path: filepath.Join(t.TempDir(), "users.db")})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(conn); err != nil {
			t.Errorf("closing test database: %v", err)
		}
	})

	if err := Migrate(context.Background(), conn); err != nil {
		t.Fatalf("migrating users: %v", err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	repo, err := NewRepository(conn, logger)
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}

	// Minimum cost keeps the bcrypt work factor out of the test runtime.
	hasher := auth.NewPasswordHasher(4)

	tokens, err := auth.NewTokenManager(auth.TokenSettings{Secret: "test-secret", TTL: time.Hour})
	if err != nil {
		t.Fatalf("NewTokenManager returned error: %v", err)
	}

	svc, err := NewService(repo, hasher, tokens, logger, nil)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}

	return svc, conn
}

func registration(email, username string) validate.Registration {
	return validate.Registration{
		Email:     email,
		Username:  username,
		Password:  testPassword,
		FirstName: "Ada",
		LastName:  "Lovelace",
	}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	summary, err := svc.Register(ctx, registration("ada@example.com", "ada"))
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if summary.Email != "ada@example.com" || summary.Username != "ada" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.FullName != "Ada Lovelace" {
		t.Fatalf("expected full name, got %q", summary.FullName)
	}

	session, err := svc.Authenticate(ctx, validate.Login{Email: "ada@example.com", Password: testPassword})
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if session.Token == "" {
		t.Fatal("expected a token")
	}
	if session.ExpiresIn != 3600 {
		t.Fatalf("expected 3600s expiry, got %d", session.ExpiresIn)
	}

	account, err := svc.GetByID(ctx, session.User.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if account.LastLogin == nil {
		t.Fatal("expected last login to be recorded")
	}
	if account.PasswordHash == testPassword {
		t.Fatal("expected password to be stored hashed")
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, registration("ada@example.com", "ada")); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	_, err := svc.Register(ctx, registration("ada@example.com", "different"))
	if !faults.IsKind(err, faults.KindValidation) {
		t.Fatalf("expected validation error for duplicate email, got %v", err)
	}
	if faults.UserMessage(err) != "Registration failed. Please check your input." {
		t.Fatalf("unexpected user message: %q", faults.UserMessage(err))
	}

	_, err = svc.Register(ctx, registration("other@example.com", "ada"))
	if !faults.IsKind(err, faults.KindValidation) {
		t.Fatalf("expected validation error for duplicate username, got %v", err)
	}
}

func TestRegisterRejectsWeakInput(t *testing.T) {
	svc, _ := newTestService(t)

	weak := registration("ada@example.com", "ada")
	weak.Password = "password"
	if _, err := svc.Register(context.Background(), weak); !faults.IsKind(err, faults.KindSecurity) {
		t.Fatalf("expected security error for weak password, got %v", err)
	}
}

func TestAuthenticateFailures(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, registration("ada@example.com", "ada")); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	_, err := svc.Authenticate(ctx, validate.Login{Email: "ada@example.com", Password: "Wr0ng!Pass"})
	if !faults.IsKind(err, faults.KindAuthentication) {
		t.Fatalf("expected authentication error for wrong password, got %v", err)
	}
	if faults.UserMessage(err) != "Authentication failed. Please check your credentials." {
		t.Fatalf("unexpected user message: %q", faults.UserMessage(err))
	}

	_, err = svc.Authenticate(ctx, validate.Login{Email: "ghost@example.com", Password: testPassword})
	if !faults.IsKind(err, faults.KindAuthentication) {
		t.Fatalf("expected authentication error for unknown email, got %v", err)
	}

	if err := conn.Model(&User{}).Where("email = ?", "ada@example.com").Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivating account: %v", err)
	}

	_, err = svc.Authenticate(ctx, validate.Login{Email: "ada@example.com", Password: testPassword})
	if !faults.IsKind(err, faults.KindAuthentication) {
		t.Fatalf("expected authentication error for deactivated account, got %v", err)
	}
}

func TestAuthenticateNormalisesEmailCase(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, registration("ada@example.com", "ada")); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if _, err := svc.Authenticate(ctx, validate.Login{Email: "ADA@Example.COM", Password: testPassword}); err != nil {
		t.Fatalf("expected case-insensitive email match, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Register(ctx, registration("ada@example.com", "ada"))
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	err = svc.ChangePassword(ctx, created.ID, "Wr0ng!Pass", "N3w!Passw0rd")
	if !faults.IsKind(err, faults.KindAuthentication) {
		t.Fatalf("expected authentication error for wrong current password, got %v", err)
	}

	err = svc.ChangePassword(ctx, created.ID, testPassword, "short")
	if !faults.IsKind(err, faults.KindValidation) {
		t.Fatalf("expected validation error for weak new password, got %v", err)
	}

	if err := svc.ChangePassword(ctx, created.ID, testPassword, "N3w!Passw0rd"); err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}

	if _, err := svc.Authenticate(ctx, validate.Login{Email: "ada@example.com", Password: testPassword}); err == nil {
		t.Fatal("expected old password to be rejected")
	}
	if _, err := svc.Authenticate(ctx, validate.Login{Email: "ada@example.com", Password: "N3w!Passw0rd"}); err != nil {
		t.Fatalf("expected new password to authenticate, got %v", err)
	}

	err = svc.ChangePassword(ctx, 9999, testPassword, "N3w!Passw0rd")
	if !faults.IsKind(err, faults.KindAuthentication) {
		t.Fatalf("expected authentication error for unknown user, got %v", err)
	}
}
