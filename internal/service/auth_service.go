package service

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"tabletop/internal/model"
)

var (
	ErrInvalidCredentials = errors.New("invalid password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// AuthService gates administrative actions behind the shared admin password
// or a bearer token issued for it.
type AuthService struct {
	adminPassword string
	jwtSecret     []byte
	tokenTTL      time.Duration
}

// NewAuthService creates a new auth service. An empty password disables
// every administrative action.
func NewAuthService(adminPassword, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		adminPassword: adminPassword,
		jwtSecret:     []byte(jwtSecret),
		tokenTTL:      tokenTTL,
	}
}

// CheckPassword compares in constant time.
func (s *AuthService) CheckPassword(password string) bool {
	if s.adminPassword == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(s.adminPassword)) == 1
}

// Login exchanges the admin password for a signed token
func (s *AuthService) Login(password string) (*model.LoginResponse, error) {
	if !s.CheckPassword(password) || len(s.jwtSecret) == 0 {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	expires := now.Add(s.tokenTTL)
	claims := &model.AdminClaims{
		AdminID: "admin_" + uuid.New().String()[:8],
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}

	return &model.LoginResponse{
		Token:     tokenString,
		ExpiresAt: expires.Unix(),
	}, nil
}

// ValidateAdminToken validates an admin JWT and returns claims
func (s *AuthService) ValidateAdminToken(tokenString string) (*model.AdminClaims, error) {
	if s.adminPassword == "" || len(s.jwtSecret) == 0 {
		return nil, ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &model.AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.AdminClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Authorize accepts either the password or a valid bearer token.
func (s *AuthService) Authorize(password, bearerToken string) error {
	if s.CheckPassword(password) {
		return nil
	}
	if bearerToken != "" {
		if _, err := s.ValidateAdminToken(bearerToken); err == nil {
			return nil
		}
	}
	return ErrForbidden
}
