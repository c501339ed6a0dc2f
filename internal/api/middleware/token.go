package middleware

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ableconnect/connect-agent/internal/core/domain"
)

const issuer = "connect-agent"

// Claims are carried by agent-issued tokens. Subject is the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Tokens issues the bearer tokens that guard the loopback API. The backend
// session lives in the gateway's cookie jar; the token only binds a UI to
// the agent's session user.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for u and returns it with its expiry.
func (t *Tokens) Issue(u *domain.User) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	claims := Claims{
		Role: string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}
