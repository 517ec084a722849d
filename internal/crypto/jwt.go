package crypto

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer   = "outr.club"
	tokenAudience = "outr-api"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Identity is the subject a token is issued for.
type Identity struct {
	UserID    int64
	Email     string
	Username  string
	SessionID string
}

// Claims represents the JWT claims carried by a bearer token. The registered
// ID (jti) holds the server-side session id.
type Claims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"userId"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// SessionID returns the session the token was issued with.
func (c *Claims) SessionID() string {
	return c.ID
}

// TokenIssuer signs and verifies HS256 bearer tokens with a process-wide secret.
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

// NewTokenIssuer creates a TokenIssuer for the given secret.
func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), now: time.Now}
}

// WithClock returns a copy of the issuer that reads time from now.
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	c := *i
	c.now = now
	return &c
}

// Issue creates a signed token for id that expires after ttl.
func (i *TokenIssuer) Issue(id Identity, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id.SessionID,
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID:   id.UserID,
		Email:    id.Email,
		Username: id.Username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify parses and validates a token string, returning the claims if the
// signature, issuer, audience and expiry all check out.
func (i *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
