package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore implements Store over a shared Redis instance. Batches commit
// through a MULTI/EXEC pipeline, so a batch is either fully visible or not
// at all; Watch maps onto Redis WATCH.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr, password string, db int, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return newRedisStore(client, logger)
}

// NewRedisStoreFromURL connects using a redis:// URL.
func NewRedisStoreFromURL(url string, logger *zap.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return newRedisStore(redis.NewClient(opts), logger)
}

func newRedisStore(client *redis.Client, logger *zap.Logger) (*RedisStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client, logger: logger}, nil
}

// Get retrieves a string value.
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// Set writes a string value, optionally with an expiry.
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Delete removes keys unconditionally.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// Exists reports whether the key is present.
func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetMembers returns every member of a set.
func (s *RedisStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	return s.client.SMembers(ctx, key).Result()
}

// SetCard returns a set's cardinality.
func (s *RedisStore) SetCard(ctx context.Context, key string) (int64, error) {
	return s.client.SCard(ctx, key).Result()
}

// GetInt reads an integer value, 0 when the key is absent.
func (s *RedisStore) GetInt(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Apply commits the batch through a single MULTI/EXEC pipeline.
func (s *RedisStore) Apply(ctx context.Context, batch *Batch) error {
	if batch.Len() == 0 {
		return nil
	}

	pipe := s.client.TxPipeline()
	stageOps(ctx, pipe, batch)

	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error("Failed to apply batch atomically",
			zap.Int("ops", batch.Len()),
			zap.Error(err))
		return err
	}

	s.logger.Debug("Applied batch", zap.Int("ops", batch.Len()))
	return nil
}

// Watch runs fn under WATCH on key; the batch it returns commits only if
// key is untouched by other writers, otherwise ErrTxConflict.
func (s *RedisStore) Watch(ctx context.Context, key string, fn func(r Reader) (*Batch, error)) error {
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		batch, err := fn(txReader{tx: tx})
		if err != nil {
			return err
		}
		if batch == nil || batch.Len() == 0 {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			stageOps(ctx, pipe, batch)
			return nil
		})
		return err
	}, key)

	if err == redis.TxFailedErr {
		return ErrTxConflict
	}
	return err
}

// stageOps queues a batch's operations onto a pipeline.
func stageOps(ctx context.Context, pipe redis.Pipeliner, batch *Batch) {
	for _, op := range batch.Ops() {
		switch op.Kind {
		case OpSet:
			pipe.Set(ctx, op.Key, op.Value, op.TTL)
		case OpDelete:
			pipe.Del(ctx, op.Key)
		case OpSetAdd:
			pipe.SAdd(ctx, op.Key, op.Value)
		case OpSetRemove:
			pipe.SRem(ctx, op.Key, op.Value)
		case OpIncrBy:
			pipe.IncrBy(ctx, op.Key, op.Delta)
		case OpExpire:
			pipe.Expire(ctx, op.Key, op.TTL)
		}
	}
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// txReader adapts a watched transaction to the Reader interface.
type txReader struct {
	tx *redis.Tx
}

func (r txReader) Get(ctx context.Context, key string) (string, error) {
	val, err := r.tx.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}
