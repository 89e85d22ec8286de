package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the decoded content of an access token.
type Claims struct {
	UserID    uint
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies HS256 access tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// GenerateToken returns a signed token and its claims. Every token carries a
// unique jti so it can be revoked on logout.
func (t *TokenIssuer) GenerateToken(userID uint, email, role string) (string, *Claims, error) {
	now := t.now()
	claims := &Claims{
		UserID:    userID,
		Role:      role,
		TokenID:   uuid.NewString(),
		ExpiresAt: now.Add(t.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       userID,
		"email":    email,
		"userType": role,
		"jti":      claims.TokenID,
		"iat":      now.Unix(),
		"exp":      claims.ExpiresAt.Unix(),
	})
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// ValidateToken checks the signature and expiry and extracts the claims.
func (t *TokenIssuer) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	id, ok := mc["id"].(float64)
	if !ok || id <= 0 {
		return nil, errors.New("token has no user id")
	}
	role, _ := mc["userType"].(string)
	jti, _ := mc["jti"].(string)
	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, errors.New("token has no expiry")
	}

	return &Claims{
		UserID:    uint(id),
		Role:      role,
		TokenID:   jti,
		ExpiresAt: exp.Time,
	}, nil
}
