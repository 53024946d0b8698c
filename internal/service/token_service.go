package service

import (
	"errors"
	"time"

	"golfacademy/training-planner/internal/domain"

	"github.com/golang-jwt/jwt/v4" // Import JWT library
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrTokenGeneration = errors.New("failed to generate access token")
	ErrInvalidRole     = errors.New("unknown role")
)

// TokenService mints access tokens for operators and integration scripts.
// End-user tokens come from the academy's identity service and carry the
// same claims.
type TokenService interface {
	Issue(userID string, role domain.Role, tenantID primitive.ObjectID) (string, error)
}

type tokenService struct {
	jwtSecret     string
	jwtExpiration time.Duration
	now           Clock
}

// NewTokenService creates a new instance of tokenService.
func NewTokenService(jwtSecret string, jwtExpiration time.Duration, now Clock) (TokenService, error) {
	if jwtSecret == "" {
		return nil, errors.New("JWT secret cannot be empty")
	}
	if jwtExpiration <= 0 {
		jwtExpiration = time.Hour // Default to 1 hour if not set properly
	}
	if now == nil {
		now = time.Now
	}
	return &tokenService{jwtSecret: jwtSecret, jwtExpiration: jwtExpiration, now: now}, nil
}

// tokenClaims mirrors the payload the API middleware verifies.
type tokenClaims struct {
	UserID   string      `json:"uid"`
	Role     domain.Role `json:"role"`
	TenantID string      `json:"tid"`
	jwt.RegisteredClaims
}

func (s *tokenService) Issue(userID string, role domain.Role, tenantID primitive.ObjectID) (string, error) {
	// 1. Validate Inputs
	switch role {
	case domain.RoleAdmin, domain.RoleCoach, domain.RolePlayer:
	default:
		return "", ErrInvalidRole
	}
	if userID == "" || tenantID.IsZero() {
		return "", errors.New("user ID and tenant cannot be empty")
	}

	// 2. Build the claims
	issuedAt := s.now()
	claims := &tokenClaims{
		UserID:   userID,
		Role:     role,
		TenantID: tenantID.Hex(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.jwtExpiration)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			Issuer:    "training-planner",
		},
	}

	// 3. Sign the token with the secret key
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", ErrTokenGeneration
	}
	return signed, nil
}
