// Package auth gates the operator surface behind a static user/PIN pair.
// A successful login yields a signed, expiring session token; handlers
// receive the verified Session as an explicit value, never through ambient
// global state.
package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrBadCredentials = errors.New("wrong user or PIN")
	ErrInvalidToken   = errors.New("invalid or expired session token")
)

// Session is the authenticated state passed into the core entry points.
type Session struct {
	User          string
	Authenticated bool
}

// Config holds the static credential pair and token parameters.
type Config struct {
	User       string
	PIN        string
	Secret     []byte
	SessionTTL time.Duration
}

type Authenticator struct {
	cfg Config
}

func NewAuthenticator(cfg Config) *Authenticator {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	return &Authenticator{cfg: cfg}
}

// Login checks the credential pair in constant time and issues an HS256
// session token on success.
func (a *Authenticator) Login(user, pin string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(a.cfg.User)) == 1
	pinOK := subtle.ConstantTimeCompare([]byte(pin), []byte(a.cfg.PIN)) == 1
	if !userOK || !pinOK {
		return "", ErrBadCredentials
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.SessionTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.cfg.Secret)
}

// Verify parses the token and returns the session it represents.
func (a *Authenticator) Verify(tokenString string) (Session, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return a.cfg.Secret, nil
		})
	if err != nil || !token.Valid {
		return Session{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return Session{}, ErrInvalidToken
	}
	return Session{User: claims.Subject, Authenticated: true}, nil
}
