package auth

import (
	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v4"
	"github.com/rookgm/pcmart/internal/models"
	"time"
)

const defaultTokenTTL = 24 * time.Hour

type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// AuthToken issues and verifies HS256 tokens
type AuthToken struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewAuthToken creates new AuthToken instance
func NewAuthToken(key []byte) *AuthToken {
	return &AuthToken{key: key, ttl: defaultTokenTTL, now: time.Now}
}

// CreateToken creates signed token for payload
func (at *AuthToken) CreateToken(payload *models.TokenPayload) (string, error) {
	now := at.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   payload.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(at.ttl)),
		},
		Role: payload.Role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(at.key)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

// VerifyToken checks token signature and expiration and returns its payload
func (at *AuthToken) VerifyToken(tokenString string) (*models.TokenPayload, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return at.key, nil
	})
	if err != nil || !token.Valid {
		return nil, models.ErrInvalidToken
	}
	if c.Subject == "" {
		return nil, models.ErrInvalidToken
	}

	return &models.TokenPayload{UserID: c.Subject, Role: c.Role}, nil
}
