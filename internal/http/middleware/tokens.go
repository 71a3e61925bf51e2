// README: Bearer tokens; a signed JWT naming the session id and the identity it was issued for.
package middleware

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"semas/internal/modules/directory"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims represents the JWT payload we issue and expect.
type Claims struct {
	SID  string         `json:"sid"`
	Role directory.Role `json:"role"`
	jwt.RegisteredClaims
}

type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token binding sid to user.
func (t *Tokens) Issue(sid string, user directory.User) (string, error) {
	now := t.now()
	claims := &Claims{
		SID:  sid,
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *Tokens) Parse(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(tok *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.SID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
