package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rotisserie/eris"
)

var (
	// ErrInvalidToken is returned when a token fails validation.
	ErrInvalidToken = eris.New("invalid token")
	// ErrExpiredToken is returned when a token has expired.
	ErrExpiredToken = eris.New("token has expired")
)

// TokenSettings configures access token issuance.
type TokenSettings struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// Claims are the JWT claims carried by an access token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates HS256 access tokens.
type TokenManager struct {
	settings TokenSettings
	now      func() time.Time
}

// NewTokenManager constructs a token manager.
func NewTokenManager(settings TokenSettings) (*TokenManager, error) {
	if settings.Secret == "" {
		return nil, eris.New("token secret is required")
	}
	if settings.TTL <= 0 {
		return nil, eris.New("token TTL must be greater than zero")
	}

	return &TokenManager{settings: settings, now: time.Now}, nil
}

// Issue creates a signed access token for the user.
func (m *TokenManager) Issue(userID uint, email string) (string, error) {
	now := m.now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.settings.Issuer,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.settings.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.settings.Secret))
	if err != nil {
		return "", eris.Wrap(err, "signing token")
	}
	return signed, nil
}

// Validate parses the token and returns the authenticated user id.
func (m *TokenManager) Validate(tokenString string) (uint, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(m.settings.Secret), nil
	}, jwt.WithTimeFunc(func() time.Time { return m.now() }))
	if err != nil {
		if eris.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrExpiredToken
		}
		return 0, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return 0, ErrInvalidToken
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}

	return uint(userID), nil
}

// TTLSeconds returns the access token lifetime in seconds.
func (m *TokenManager) TTLSeconds() int64 {
	return int64(m.settings.TTL.Seconds())
}
