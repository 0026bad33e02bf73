package stores

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authengine/domain"
	"github.com/MrEthical07/authengine/internal"
)

// TokenSessionStore keeps records of type T addressed by a secret token.
// Keys are the SHA-256 of the token.
type TokenSessionStore[T any] struct {
	redis  redis.UniversalClient
	prefix string
}

// NewActivateAccountSessionStore stores activation sessions under prefix "aac".
func NewActivateAccountSessionStore(client redis.UniversalClient) *TokenSessionStore[domain.ActivateAccountSession] {
	return &TokenSessionStore[domain.ActivateAccountSession]{redis: client, prefix: "aac"}
}

// NewForgotPasswordSessionStore stores forgot-password sessions under prefix "afp".
func NewForgotPasswordSessionStore(client redis.UniversalClient) *TokenSessionStore[domain.ForgotPasswordSession] {
	return &TokenSessionStore[domain.ForgotPasswordSession]{redis: client, prefix: "afp"}
}

func (s *TokenSessionStore[T]) key(token string) string {
	return s.prefix + ":" + internal.HashToken(token)
}

// Create stores v under token; an existing record for the same token yields
// domain.ErrAlreadyExists.
func (s *TokenSessionStore[T]) Create(ctx context.Context, token string, v *T, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ok, err := s.redis.SetNX(ctx, s.key(token), data, ttl).Result()
	if err != nil {
		return backendErr(err)
	}
	if !ok {
		return domain.ErrAlreadyExists
	}
	return nil
}

func (s *TokenSessionStore[T]) Read(ctx context.Context, token string) (*T, error) {
	data, err := s.redis.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		return nil, backendErr(err)
	}
	return decodeToken[T](data)
}

// Consume returns the record and removes it atomically.
func (s *TokenSessionStore[T]) Consume(ctx context.Context, token string) (*T, error) {
	data, err := s.redis.GetDel(ctx, s.key(token)).Bytes()
	if err != nil {
		return nil, backendErr(err)
	}
	return decodeToken[T](data)
}

func (s *TokenSessionStore[T]) Delete(ctx context.Context, token string) error {
	if err := s.redis.Del(ctx, s.key(token)).Err(); err != nil {
		return backendErr(err)
	}
	return nil
}

func decodeToken[T any](data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
