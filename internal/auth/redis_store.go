package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// sessionKeyPrefix is the Redis key prefix for session data.
const sessionKeyPrefix = "session:"

// sessionTokenBytes is the number of random bytes in a session token,
// hex-encoded to 64 characters.
const sessionTokenBytes = 32

// RedisStore keeps sessions in Redis under an opaque random token. The
// token is the key and the JSON-encoded Session is the value.
type RedisStore struct {
	redis      *redis.Client
	cookieName string
	ttl        time.Duration
	now        func() time.Time
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(rdb *redis.Client, cookieName string, ttl time.Duration) *RedisStore {
	return &RedisStore{redis: rdb, cookieName: cookieName, ttl: ttl, now: time.Now}
}

// TTL returns the session lifetime.
func (s *RedisStore) TTL() time.Duration { return s.ttl }

// Issue stores a new session for id with the configured TTL.
func (s *RedisStore) Issue(ctx context.Context, id Identity) (string, *Session, error) {
	token, err := generateSessionToken()
	if err != nil {
		return "", nil, fmt.Errorf("generating session token: %w", err)
	}

	session := &Session{
		UserID:  id.ID,
		Name:    id.Name,
		Email:   id.Email,
		Image:   id.Image,
		Expires: s.now().Add(s.ttl).UTC(),
	}

	data, err := json.Marshal(session)
	if err != nil {
		return "", nil, fmt.Errorf("marshaling session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKeyPrefix+token, data, s.ttl).Err(); err != nil {
		return "", nil, fmt.Errorf("storing session in Redis: %w", err)
	}
	return token, session, nil
}

// Session looks up the request's token in Redis.
func (s *RedisStore) Session(ctx context.Context, r *http.Request) (*Session, error) {
	token := TokenFrom(r, s.cookieName)
	if token == "" {
		return nil, nil
	}

	data, err := s.redis.Get(ctx, sessionKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session from Redis: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshaling session: %w", err)
	}
	if !session.Valid(s.now()) {
		return nil, nil
	}
	return &session, nil
}

// Revoke deletes the session, effectively signing the user out.
func (s *RedisStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.redis.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("deleting session from Redis: %w", err)
	}
	return nil
}

// generateSessionToken creates a cryptographically random hex-encoded token.
func generateSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
