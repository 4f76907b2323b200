package local

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/staffsync/staff-management/internal/identity"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims carries the principal snapshot inside a session token.
type Claims struct {
	UID      string `json:"uid"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Verified bool   `json:"verified"`
	jwt.RegisteredClaims
}

// TokenGenerator mints and validates HS256 session tokens.
type TokenGenerator struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenGenerator(secret string, ttl time.Duration) *TokenGenerator {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &TokenGenerator{secret: []byte(secret), ttl: ttl}
}

func (g *TokenGenerator) Issue(p identity.Principal) (string, time.Time, error) {
	expiresAt := time.Now().Add(g.ttl)
	claims := Claims{
		UID:      p.UID,
		Email:    p.Email,
		Name:     p.Name,
		Verified: p.Verified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

func (g *TokenGenerator) Validate(tokenString string) (identity.Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return g.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return identity.Principal{}, ErrTokenExpired
		}
		return identity.Principal{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return identity.Principal{}, ErrInvalidToken
	}
	return identity.Principal{
		UID:      claims.UID,
		Email:    claims.Email,
		Name:     claims.Name,
		Verified: claims.Verified,
	}, nil
}
