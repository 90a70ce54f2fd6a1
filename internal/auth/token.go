package auth

import (
	"errors"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"
)

// TokenManager validates JWT tokens issued by the external auth
// collaborator. This service never issues tokens itself.
type TokenManager struct {
	secret []byte
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret)}
}

// Claims describes the JWT payload supplied by the auth collaborator.
type Claims struct {
	ActorRef string      `json:"sub"`
	Role     domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
