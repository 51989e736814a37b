package services

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAuthDisabled       = errors.New("admin auth is not configured")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

const adminTokenTTL = 24 * time.Hour

// AdminAuthService authenticates the single admin account from environment
// configuration and issues short-lived JWTs for the back office.
type AdminAuthService struct {
	adminEmail   string
	passwordHash string
	signingKey   []byte
	now          func() time.Time
}

func NewAdminAuthService(adminEmail, passwordHash, signingKey string) *AdminAuthService {
	return &AdminAuthService{
		adminEmail:   strings.ToLower(strings.TrimSpace(adminEmail)),
		passwordHash: passwordHash,
		signingKey:   []byte(signingKey),
		now:          time.Now,
	}
}

// Enabled reports whether an admin account is configured.
func (s *AdminAuthService) Enabled() bool {
	return s.adminEmail != "" && s.passwordHash != "" && len(s.signingKey) > 0
}

// Login verifies the credentials and returns a signed token. The email
// comparison is constant time alongside the bcrypt check so a probe cannot
// distinguish a wrong email from a wrong password.
func (s *AdminAuthService) Login(email, password string) (string, error) {
	if !s.Enabled() {
		return "", ErrAuthDisabled
	}

	email = strings.ToLower(strings.TrimSpace(email))
	emailMatch := subtle.ConstantTimeCompare([]byte(email), []byte(s.adminEmail)) == 1
	hashErr := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password))
	if !emailMatch || hashErr != nil {
		return "", ErrInvalidCredentials
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   s.adminEmail,
		Issuer:    "mateabags-storefront",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(adminTokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken parses and validates a token, returning the admin email.
func (s *AdminAuthService) VerifyToken(tokenString string) (string, error) {
	if !s.Enabled() {
		return "", ErrAuthDisabled
	}

	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject != s.adminEmail {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
