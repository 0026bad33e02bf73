package stores

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authengine/domain"
	"github.com/MrEthical07/authengine/internal"
)

const maxUpdateRetries = 4

// AuthSessionStore keeps one on-going authentication session per (username, device).
type AuthSessionStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewAuthSessionStore(client redis.UniversalClient, prefix string) *AuthSessionStore {
	if prefix == "" {
		prefix = "aos"
	}
	return &AuthSessionStore{redis: client, prefix: prefix}
}

// key hashes both parts; fixed-width digests keep ("a:b", "c") and
// ("a", "b:c") apart.
func (s *AuthSessionStore) key(username, deviceID string) string {
	return s.prefix + ":" + internal.HashToken(username) + ":" + internal.HashToken(deviceID)
}

func (s *AuthSessionStore) Create(ctx context.Context, username, deviceID string, sess *domain.AuthSession, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(sess)
	if err != nil {
		return false, err
	}
	ok, err := s.redis.SetNX(ctx, s.key(username, deviceID), data, ttl).Result()
	if err != nil {
		return false, backendErr(err)
	}
	return ok, nil
}

func (s *AuthSessionStore) Read(ctx context.Context, username, deviceID string) (*domain.AuthSession, error) {
	data, err := s.redis.Get(ctx, s.key(username, deviceID)).Bytes()
	if err != nil {
		return nil, backendErr(err)
	}
	var sess domain.AuthSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *AuthSessionStore) Update(ctx context.Context, username, deviceID string, sess *domain.AuthSession, ttl time.Duration) error {
	key := s.key(username, deviceID)

	for i := 0; i < maxUpdateRetries; i++ {
		next := *sess
		next.Version++

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}
			var current domain.AuthSession
			if err := json.Unmarshal(data, &current); err != nil {
				return err
			}
			if current.Version != sess.Version {
				return domain.ErrConflict
			}

			encoded, err := json.Marshal(&next)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, ttl)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return err
			}
			return backendErr(err)
		}
		sess.Version = next.Version
		return nil
	}

	return domain.ErrConflict
}

func (s *AuthSessionStore) Delete(ctx context.Context, username, deviceID string) error {
	if err := s.redis.Del(ctx, s.key(username, deviceID)).Err(); err != nil {
		return backendErr(err)
	}
	return nil
}
