package stores

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authengine/domain"
	"github.com/MrEthical07/authengine/internal"
)

// consumeUnlockScript returns and deletes the session only when the stored
// token digest matches ARGV[1].
const consumeUnlockScript = `
if redis.call("HGET", KEYS[1], "token") ~= ARGV[1] then
  return false
end
local v = redis.call("HGET", KEYS[1], "session")
redis.call("DEL", KEYS[1])
return v
`

const releaseUnlockScript = `
local v = redis.call("HGET", KEYS[1], "session")
redis.call("DEL", KEYS[1])
return v
`

var (
	consumeUnlockLua = redis.NewScript(consumeUnlockScript)
	releaseUnlockLua = redis.NewScript(releaseUnlockScript)
)

// UnlockSessionStore keeps one unlock session per account in a hash holding
// the session and the digest of the unlock token id bound to it. Arming a new
// unlock overwrites the hash, so older tokens stop matching.
type UnlockSessionStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewUnlockSessionStore stores unlock sessions under prefix "aul".
func NewUnlockSessionStore(client redis.UniversalClient) *UnlockSessionStore {
	return &UnlockSessionStore{redis: client, prefix: "aul"}
}

func (s *UnlockSessionStore) key(accountID string) string {
	return s.prefix + ":" + internal.HashToken(accountID)
}

func (s *UnlockSessionStore) Create(ctx context.Context, tokenID string, v *domain.UnlockSession, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	key := s.key(v.AccountID)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "token", internal.HashToken(tokenID), "session", data)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return backendErr(err)
	}
	return nil
}

func (s *UnlockSessionStore) Read(ctx context.Context, accountID string) (*domain.UnlockSession, error) {
	data, err := s.redis.HGet(ctx, s.key(accountID), "session").Bytes()
	if err != nil {
		return nil, backendErr(err)
	}
	return decodeToken[domain.UnlockSession](data)
}

// Consume yields domain.ErrNotFound when the account has no unlock session
// or when tokenID is not the one it is bound to.
func (s *UnlockSessionStore) Consume(ctx context.Context, accountID, tokenID string) (*domain.UnlockSession, error) {
	return s.take(ctx, consumeUnlockLua, accountID, internal.HashToken(tokenID))
}

func (s *UnlockSessionStore) Release(ctx context.Context, accountID string) (*domain.UnlockSession, error) {
	return s.take(ctx, releaseUnlockLua, accountID)
}

func (s *UnlockSessionStore) take(ctx context.Context, script *redis.Script, accountID string, args ...any) (*domain.UnlockSession, error) {
	data, err := script.Run(ctx, s.redis, []string{s.key(accountID)}, args...).Text()
	if err != nil {
		return nil, backendErr(err)
	}
	return decodeToken[domain.UnlockSession]([]byte(data))
}
