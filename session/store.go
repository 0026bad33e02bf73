package session

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authengine/domain"
)

// ErrRedisUnavailable wraps Redis transport and server errors.
var ErrRedisUnavailable = errors.New("redis unavailable")

// deleteAllScript removes every session listed in the account index and the
// index itself, returning how many session keys existed.
const deleteAllScript = `
local members = redis.call("ZRANGE", KEYS[1], 0, -1)
local n = 0
for _, sid in ipairs(members) do
  n = n + redis.call("DEL", ARGV[1] .. sid)
end
redis.call("DEL", KEYS[1])
return n
`

var deleteAllLua = redis.NewScript(deleteAllScript)

// Store is the Redis registry of ActiveUserSession rows. Each session is a
// JSON value with a TTL; a per-account sorted set scored by expiry indexes
// them. Keys share the {accountID} hash tag so the index and its sessions
// live in one cluster slot.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "aus"
	}
	return &Store{redis: client, prefix: prefix}
}

func (s *Store) sessionPrefix(accountID string) string {
	return s.prefix + ":{" + accountID + "}:"
}

func (s *Store) key(accountID string, issuedAt int64) string {
	return s.sessionPrefix(accountID) + strconv.FormatInt(issuedAt, 10)
}

func (s *Store) indexKey(accountID string) string {
	return s.prefix + ":{" + accountID + "}"
}

func (s *Store) Create(ctx context.Context, sess *domain.ActiveUserSession, ttl time.Duration) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	idx := s.indexKey(sess.AccountID)
	nowMs := strconv.FormatInt(time.Now().UnixMilli(), 10)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.AccountID, sess.IssuedAt), data, ttl)
		pipe.ZAdd(ctx, idx, redis.Z{
			Score:  float64(sess.ExpiresAt.UnixMilli()),
			Member: strconv.FormatInt(sess.IssuedAt, 10),
		})
		pipe.ZRemRangeByScore(ctx, idx, "-inf", nowMs)
		pipe.Expire(ctx, idx, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *Store) Read(ctx context.Context, accountID string, issuedAt int64) (*domain.ActiveUserSession, error) {
	data, err := s.redis.Get(ctx, s.key(accountID, issuedAt)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	var sess domain.ActiveUserSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// ReadAll returns the live sessions of an account ordered by issue time.
// Index entries whose session key already expired are pruned.
func (s *Store) ReadAll(ctx context.Context, accountID string) ([]domain.ActiveUserSession, error) {
	idx := s.indexKey(accountID)
	members, err := s.redis.ZRangeByScore(ctx, idx, &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(time.Now().UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = s.sessionPrefix(accountID) + m
	}
	values, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	out := make([]domain.ActiveUserSession, 0, len(values))
	var stale []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, members[i])
			continue
		}
		var sess domain.ActiveUserSession
		if err := json.Unmarshal([]byte(raw), &sess); err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	if len(stale) > 0 {
		_ = s.redis.ZRem(ctx, idx, stale...).Err()
	}

	slices.SortFunc(out, func(a, b domain.ActiveUserSession) int {
		return cmp.Compare(a.IssuedAt, b.IssuedAt)
	})
	return out, nil
}

func (s *Store) Delete(ctx context.Context, accountID string, issuedAt int64) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(accountID, issuedAt))
		pipe.ZRem(ctx, s.indexKey(accountID), strconv.FormatInt(issuedAt, 10))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *Store) DeleteAll(ctx context.Context, accountID string) (int, error) {
	n, err := deleteAllLua.Run(ctx, s.redis, []string{s.indexKey(accountID)}, s.sessionPrefix(accountID)).Int()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n, nil
}
