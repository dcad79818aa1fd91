package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	issuer        = "listings-cms"
	sessionPrefix = "session:"
	RoleAdmin     = "admin"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrRevoked      = errors.New("token revoked or expired")
)

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// TokenStore keeps the JTIs of live sessions so logout can revoke them.
type TokenStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, key string) error
}

type RedisTokenStore struct {
	rdb redis.UniversalClient
}

func NewRedisTokenStore(rdb redis.UniversalClient) *RedisTokenStore {
	return &RedisTokenStore{rdb: rdb}
}

func (s *RedisTokenStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *RedisTokenStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	return n == 1, err
}

func (s *RedisTokenStore) Del(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// Manager issues and validates admin session tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
	store  TokenStore
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration, store TokenStore) (*Manager, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("session secret must be at least 32 characters")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		store:  store,
		now:    time.Now,
	}, nil
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

func (m *Manager) Issue(ctx context.Context, username string) (*Session, error) {
	now := m.now()
	jti := uuid.NewString()
	exp := now.Add(m.ttl)

	claims := Claims{
		Username: username,
		Role:     RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, err
	}

	if err := m.store.Set(ctx, sessionPrefix+jti, username, m.ttl); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	return &Session{Token: signed, Username: username, ExpiresAt: exp}, nil
}

func (m *Manager) Validate(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Prevent algorithm confusion attacks
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Role != RoleAdmin {
		return nil, ErrInvalidToken
	}

	exists, err := m.store.Exists(ctx, sessionPrefix+claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check session: %w", err)
	}
	if !exists {
		return nil, ErrRevoked
	}

	return claims, nil
}

func (m *Manager) Revoke(ctx context.Context, claims *Claims) error {
	return m.store.Del(ctx, sessionPrefix+claims.ID)
}
