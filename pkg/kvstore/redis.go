package kvstore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Each key is a hash {value, version}. Deleting drops the value field and
// keeps the version so recreated keys continue the sequence.
var redisSetScript = redis.NewScript(`
local current = tonumber(redis.call('HGET', KEYS[1], 'version') or '0')
local live = redis.call('HEXISTS', KEYS[1], 'value') == 1
local expected = tonumber(ARGV[2])
if expected == 0 and live then
  return -1
end
if expected > 0 and ((not live) or current ~= expected) then
  return -1
end
local next = current + 1
redis.call('HSET', KEYS[1], 'value', ARGV[1], 'version', next)
return next
`)

// RedisStore keeps documents in Redis hashes under an optional prefix.
type RedisStore struct {
	client   redis.UniversalClient
	prefix   string
	maxBytes int64
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, prefix string, maxBytes int64) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, maxBytes: maxBytes}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + key
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Document, error) {
	fields, err := s.client.HMGet(ctx, s.key(key), "value", "version").Result()
	if err != nil {
		return nil, fmt.Errorf("redis hmget %s: %w", key, err)
	}
	if len(fields) != 2 || fields[0] == nil {
		return nil, ErrNotFound
	}
	value, ok := fields[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: key %s: unexpected value type %T", ErrMalformed, key, fields[0])
	}
	rawVersion, _ := fields[1].(string)
	version, err := strconv.ParseInt(rawVersion, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: key %s: bad version %q", ErrMalformed, key, rawVersion)
	}
	return &Document{Value: []byte(value), Version: version}, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, expectedVersion int64) (int64, error) {
	if err := checkQuota(s.maxBytes, value); err != nil {
		return 0, err
	}
	version, err := redisSetScript.Run(ctx, s.client, []string{s.key(key)}, string(value), expectedVersion).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis set %s: %w", key, err)
	}
	if version < 0 {
		return 0, ErrVersionConflict
	}
	return version, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.HDel(ctx, s.key(key), "value").Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
