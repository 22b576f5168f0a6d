package validate

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"quill/app/internal/faults"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

	passwordLower   = regexp.MustCompile(`[a-z]`)
	passwordUpper   = regexp.MustCompile(`[A-Z]`)
	passwordDigit   = regexp.MustCompile(`\d`)
	passwordSpecial = regexp.MustCompile(`[@$!%*?&]`)

	controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// Registration is the validated payload for user registration.
type Registration struct {
	Email     string
	Username  string
	Password  string
	FirstName string
	LastName  string
}

// Login is the validated payload for authentication.
type Login struct {
	Email    string
	Password string
}

// ValidateRegistration checks the registration payload against the schema
// rules. Schema-level rejections are security violations, matching the
// classification applied to every schema failure.
func ValidateRegistration(in Registration) error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Email,
			validation.Required.Error("email_required"),
			is.Email.Error("invalid_email_format"),
		),
		validation.Field(&in.Username,
			validation.Required.Error("username_required"),
			validation.Length(3, 30).Error("username_length"),
			validation.Match(usernamePattern).Error("username_charset"),
		),
		validation.Field(&in.Password,
			validation.Required.Error("password_required"),
			validation.Length(8, 128).Error("password_length"),
			validation.By(passwordStrengthRule),
		),
		validation.Field(&in.FirstName, validation.Length(0, 50).Error("first_name_length")),
		validation.Field(&in.LastName, validation.Length(0, 50).Error("last_name_length")),
	)
	if err != nil {
		return schemaViolation(err)
	}
	return nil
}

// ValidateLogin checks the login payload.
func ValidateLogin(in Login) error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Email,
			validation.Required.Error("email_required"),
			is.Email.Error("invalid_email_format"),
		),
		validation.Field(&in.Password,
			validation.Required.Error("password_required"),
		),
	)
	if err != nil {
		return schemaViolation(err)
	}
	return nil
}

// ValidatePassword reports whether a password satisfies the strength rules:
// 8..128 chars with at least one lowercase, uppercase, digit, and special
// character.
func ValidatePassword(password string) bool {
	if len(password) < 8 || len(password) > 128 {
		return false
	}
	return passwordStrengthRule(password) == nil
}

func passwordStrengthRule(value any) error {
	password, _ := value.(string)
	if password == "" {
		return nil
	}

	if !passwordLower.MatchString(password) ||
		!passwordUpper.MatchString(password) ||
		!passwordDigit.MatchString(password) ||
		!passwordSpecial.MatchString(password) {
		return validation.NewError(
			"password_strength",
			"password must contain uppercase, lowercase, number, and special character",
		)
	}
	return nil
}

// SanitizeString scrubs general string input: removes null bytes and control
// characters, trims whitespace, truncates to maxLength.
func SanitizeString(value string, maxLength int) string {
	sanitized := controlChars.ReplaceAllString(value, "")
	sanitized = strings.TrimSpace(sanitized)

	if runes := []rune(sanitized); maxLength > 0 && len(runes) > maxLength {
		sanitized = string(runes[:maxLength])
	}

	return sanitized
}

func schemaViolation(err error) error {
	details := map[string]any{}
	if fieldErrors, ok := err.(validation.Errors); ok {
		for field, fieldErr := range fieldErrors {
			details[field] = fieldErr.Error()
		}
	}

	return faults.Wrap(faults.KindSecurity, err, "invalid input data").WithDetails(details)
}
