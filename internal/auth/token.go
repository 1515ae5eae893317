// Package auth verifies the bearer tokens that identify players
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrMissingToken is returned when the request carries no token
	ErrMissingToken = errors.New("missing token")
	// ErrInvalidToken is returned for tokens that fail verification
	ErrInvalidToken = errors.New("invalid token")
)

// Identity is the authenticated player behind a connection
type Identity struct {
	UserID   string
	Username string
}

type playerClaims struct {
	jwt.RegisteredClaims
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// TokenAuth verifies HS256 tokens issued by the login service
type TokenAuth struct {
	secret []byte
	clock  clockwork.Clock
}

// NewTokenAuth creates a verifier for tokens signed with secret
func NewTokenAuth(secret string, clock clockwork.Clock) *TokenAuth {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &TokenAuth{
		secret: []byte(secret),
		clock:  clock,
	}
}

// Verify parses and validates token and returns the identity it carries
func (a *TokenAuth) Verify(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrMissingToken
	}

	var parsed playerClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.clock.Now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if strings.TrimSpace(parsed.UserID) == "" {
		return Identity{}, fmt.Errorf("%w: userId claim is required", ErrInvalidToken)
	}

	return Identity{
		UserID:   parsed.UserID,
		Username: parsed.Username,
	}, nil
}

// Issue signs a token for id that expires after ttl
func (a *TokenAuth) Issue(id Identity, ttl time.Duration) (string, error) {
	now := a.clock.Now()
	claims := playerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:   id.UserID,
		Username: id.Username,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// TokenFromRequest reads the token from the "token" query parameter, which
// browsers use for websocket handshakes, or from an Authorization header.
func TokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}

	return ""
}
