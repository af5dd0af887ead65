package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"

	"github.com/edcore/school-admin-guard/internal/core/domain"
)

var (
	// ErrInvalidSessionToken indicates the token is malformed or its signature failed.
	ErrInvalidSessionToken = errors.New("invalid session token")
	// ErrExpiredSessionToken indicates the token is past its expiry.
	ErrExpiredSessionToken = errors.New("session token expired")
)

// SessionClaims are the JWT claims carried by a dashboard session token.
type SessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer creates and validates HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer with the shared signing secret.
func NewTokenIssuer(secret, issuer string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("signing secret is required")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &TokenIssuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithClock overrides the internal clock, used in tests.
func (t *TokenIssuer) WithClock(clock func() time.Time) {
	if clock != nil {
		t.now = clock
	}
}

// Issue signs a session token for the account.
func (t *TokenIssuer) Issue(account domain.Account) (string, error) {
	if account.ID == "" {
		return "", fmt.Errorf("account id is required")
	}

	now := t.now().UTC()
	claims := SessionClaims{
		Role: string(account.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   account.ID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Validate parses a session token and returns its claims.
func (t *TokenIssuer) Validate(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return t.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredSessionToken
		}
		return nil, ErrInvalidSessionToken
	}
	if !token.Valid {
		return nil, ErrInvalidSessionToken
	}
	return claims, nil
}
