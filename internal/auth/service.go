package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/fletero-erp/fletero-erp/internal/platform/httpx"
)

const tokenKeyPrefix = "auth:token:"

// Service authenticates operators and manages bearer tokens in Redis.
type Service struct {
	repo     Repository
	redis    *redis.Client
	tokenTTL time.Duration
}

// NewService constructs the auth service.
func NewService(repo Repository, redisClient *redis.Client, tokenTTL time.Duration) *Service {
	return &Service{repo: repo, redis: redisClient, tokenTTL: tokenTTL}
}

// Authenticate verifies credentials and returns the matching user.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, httpx.ErrUnauthorized
	}
	return user, nil
}

// IssueToken creates an opaque bearer token bound to the user id.
func (s *Service) IssueToken(ctx context.Context, userID int64) (string, error) {
	token := uuid.NewString()
	key := tokenKeyPrefix + token
	if err := s.redis.Set(ctx, key, userID, s.tokenTTL).Err(); err != nil {
		return "", fmt.Errorf("auth: store token: %w", err)
	}
	return token, nil
}

// ResolveToken returns the user id a token belongs to.
func (s *Service) ResolveToken(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, httpx.ErrUnauthorized
	}
	raw, err := s.redis.Get(ctx, tokenKeyPrefix+token).Result()
	if err == redis.Nil {
		return 0, httpx.ErrUnauthorized
	}
	if err != nil {
		return 0, fmt.Errorf("auth: resolve token: %w", err)
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return 0, httpx.ErrUnauthorized
	}
	return userID, nil
}

// RevokeToken invalidates a bearer token.
func (s *Service) RevokeToken(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.redis.Del(ctx, tokenKeyPrefix+token).Err()
}
