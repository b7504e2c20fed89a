package decrypt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

const redisKeyPrefix = "fhe:auth:"

// RedisStore shares authorizations between processes. Entries expire together
// with the authorization they hold.
type RedisStore struct {
	cli *redis.Client
	now func() time.Time
}

func NewRedisStore(addr string) *RedisStore {
	return NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: addr}))
}

func NewRedisStoreWithClient(cli *redis.Client) *RedisStore {
	return &RedisStore{cli: cli, now: time.Now}
}

func (r *RedisStore) Get(ctx context.Context, key string) (*Authorization, error) {
	blob, err := r.cli.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		return nil, errors.Wrap(err, "failed to read authorization from redis")
	}

	var auth Authorization
	if err := json.Unmarshal(blob, &auth); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal authorization")
	}

	return &auth, nil
}

func (r *RedisStore) Put(ctx context.Context, key string, auth *Authorization) error {
	ttl := auth.ExpiresAt().Sub(r.now())
	if ttl <= 0 {
		return nil
	}

	blob, err := json.Marshal(auth)
	if err != nil {
		return errors.Wrap(err, "failed to marshal authorization")
	}

	if err := r.cli.SetEX(ctx, redisKeyPrefix+key, blob, ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to write authorization to redis")
	}

	return nil
}

func (r *RedisStore) Close() error {
	return r.cli.Close()
}
