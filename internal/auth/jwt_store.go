package auth

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

// jwtKeyInfo binds the derived key to its purpose so the same secret can
// feed other keys without reuse.
const jwtKeyInfo = "stockroom session token"

// minSecretLen is the shortest secret accepted for signing sessions.
const minSecretLen = 16

// sessionClaims is the JWT payload for a stateless session.
type sessionClaims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Image string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// JWTStore issues self-contained HS256 session tokens. Nothing is stored
// server side, so Revoke only relies on the caller clearing the cookie.
type JWTStore struct {
	key        []byte
	cookieName string
	ttl        time.Duration
	now        func() time.Time
}

// NewJWTStore derives the signing key from secret with HKDF-SHA256.
func NewJWTStore(secret, cookieName string, ttl time.Duration) (*JWTStore, error) {
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("session secret must be at least %d characters", minSecretLen)
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(jwtKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("deriving signing key: %w", err)
	}
	return &JWTStore{key: key, cookieName: cookieName, ttl: ttl, now: time.Now}, nil
}

// TTL returns the session lifetime.
func (s *JWTStore) TTL() time.Duration { return s.ttl }

// Issue signs a token for id.
func (s *JWTStore) Issue(_ context.Context, id Identity) (string, *Session, error) {
	now := s.now().UTC()
	exp := now.Add(s.ttl)

	claims := sessionClaims{
		Name:  id.Name,
		Email: id.Email,
		Image: id.Image,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", nil, fmt.Errorf("signing session token: %w", err)
	}

	session := &Session{
		UserID:  id.ID,
		Name:    id.Name,
		Email:   id.Email,
		Image:   id.Image,
		Expires: time.Unix(exp.Unix(), 0).UTC(),
	}
	return signed, session, nil
}

// Session parses and verifies the request's token. Malformed, tampered and
// expired tokens all resolve to no session.
func (s *JWTStore) Session(_ context.Context, r *http.Request) (*Session, error) {
	raw := TokenFrom(r, s.cookieName)
	if raw == "" {
		return nil, nil
	}

	var claims sessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) ||
			errors.Is(err, jwt.ErrTokenSignatureInvalid) ||
			errors.Is(err, jwt.ErrTokenExpired) ||
			errors.Is(err, jwt.ErrTokenInvalidClaims) ||
			errors.Is(err, jwt.ErrTokenUnverifiable) {
			return nil, nil
		}
		return nil, fmt.Errorf("parsing session token: %w", err)
	}

	session := &Session{
		UserID:  claims.Subject,
		Name:    claims.Name,
		Email:   claims.Email,
		Image:   claims.Image,
		Expires: claims.ExpiresAt.Time.UTC(),
	}
	if !session.Valid(s.now()) {
		return nil, nil
	}
	return session, nil
}

// Revoke is a no-op: a signed token stays valid until it expires.
func (s *JWTStore) Revoke(context.Context, string) error {
	return nil
}
