package stores

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authengine/domain"
	"github.com/MrEthical07/authengine/internal"
)

const counterField = "counter"

// FailedAttemptStore counts recent authentication failures per username.
// The counter lives in a hash and the source IPs in a sibling set; both
// share one TTL refreshed on every increment.
type FailedAttemptStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewFailedAttemptStore(client redis.UniversalClient, prefix string) *FailedAttemptStore {
	if prefix == "" {
		prefix = "ffa"
	}
	return &FailedAttemptStore{redis: client, prefix: prefix}
}

// keys hash the username so no username can address another user's keys.
func (s *FailedAttemptStore) keys(username string) (counter, ips string) {
	base := s.prefix + ":" + internal.HashToken(username)
	return base, base + ":ips"
}

func (s *FailedAttemptStore) Increment(ctx context.Context, username, ip string, ttl time.Duration) (*domain.FailedAuthAttemptSession, error) {
	counterKey, ipsKey := s.keys(username)

	var (
		incr    *redis.IntCmd
		members *redis.StringSliceCmd
	)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.HIncrBy(ctx, counterKey, counterField, 1)
		if ip != "" {
			pipe.SAdd(ctx, ipsKey, ip)
			pipe.Expire(ctx, ipsKey, ttl)
		}
		pipe.Expire(ctx, counterKey, ttl)
		members = pipe.SMembers(ctx, ipsKey)
		return nil
	})
	if err != nil {
		return nil, backendErr(err)
	}

	ips := members.Val()
	sort.Strings(ips)
	return &domain.FailedAuthAttemptSession{Counter: incr.Val(), IPs: ips}, nil
}

func (s *FailedAttemptStore) Read(ctx context.Context, username string) (*domain.FailedAuthAttemptSession, error) {
	counterKey, ipsKey := s.keys(username)

	var (
		counter *redis.StringCmd
		members *redis.StringSliceCmd
	)
	_, err := s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		counter = pipe.HGet(ctx, counterKey, counterField)
		members = pipe.SMembers(ctx, ipsKey)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, backendErr(err)
	}

	n, err := counter.Int64()
	if err != nil {
		return nil, backendErr(err)
	}
	ips := members.Val()
	sort.Strings(ips)
	return &domain.FailedAuthAttemptSession{Counter: n, IPs: ips}, nil
}

func (s *FailedAttemptStore) Delete(ctx context.Context, username string) error {
	counterKey, ipsKey := s.keys(username)
	if err := s.redis.Del(ctx, counterKey, ipsKey).Err(); err != nil {
		return backendErr(err)
	}
	return nil
}
