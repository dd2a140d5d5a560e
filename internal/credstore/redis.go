package credstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"payrollctl/pkg/auth"
)

// DefaultRedisKeyPrefix namespaces the persisted keys in a shared Redis.
const DefaultRedisKeyPrefix = "payrollctl:"

// RedisPersister stores the three keys as plain Redis strings.
type RedisPersister struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisPersister uses client with keys under prefix. An empty prefix
// selects DefaultRedisKeyPrefix.
func NewRedisPersister(client redis.UniversalClient, prefix string) *RedisPersister {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisPersister{client: client, prefix: prefix}
}

// Name implements Persister.
func (p *RedisPersister) Name() string { return "redis" }

func (p *RedisPersister) key(k string) string { return p.prefix + k }

// Load implements Persister.
func (p *RedisPersister) Load(ctx context.Context) (auth.Credential, error) {
	vals, err := p.client.MGet(ctx, p.key(KeyAccessToken), p.key(KeyRefreshToken), p.key(KeyUser)).Result()
	if err != nil {
		return auth.Credential{}, fmt.Errorf("failed to read credential from redis: %w", err)
	}
	return decodeRecords(redisBytes(vals[0]), redisBytes(vals[1]), redisBytes(vals[2]))
}

// Save implements Persister. All keys are written in one transaction.
func (p *RedisPersister) Save(ctx context.Context, cred auth.Credential) error {
	records, err := encodeRecords(cred)
	if err != nil {
		return err
	}
	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range Keys {
			pipe.Set(ctx, p.key(key), records[key], 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write credential to redis: %w", err)
	}
	return nil
}

// Delete implements Persister.
func (p *RedisPersister) Delete(ctx context.Context) error {
	keys := make([]string, 0, len(Keys))
	for _, k := range Keys {
		keys = append(keys, p.key(k))
	}
	if err := p.client.Del(ctx, keys...).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to delete credential from redis: %w", err)
	}
	return nil
}

func redisBytes(v interface{}) []byte {
	switch s := v.(type) {
	case string:
		return []byte(s)
	case []byte:
		return s
	default:
		return nil
	}
}
