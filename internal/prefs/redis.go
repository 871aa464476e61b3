package prefs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

const defaultKeyPrefix = "routedash:prefs:"

// RedisStore keeps preferences in Redis behind a circuit breaker.
type RedisStore struct {
	client  redis.Cmdable
	prefix  string
	breaker *gobreaker.CircuitBreaker
}

// NewRedisStore wraps an existing client. An empty prefix uses the default.
func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}

	st := gobreaker.Settings{Name: "prefs-redis"}
	st.Interval = 60 * time.Second
	st.Timeout = 30 * time.Second
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 3
	}
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Preference store breaker changed state")
	}

	return &RedisStore{client: client, prefix: prefix, breaker: gobreaker.NewCircuitBreaker(st)}
}

// OpenRedisStore dials addr and verifies the connection.
func OpenRedisStore(addr, password string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	log.Info().Str("addr", addr).Int("db", db).Msg("Connected to Redis preference store")
	return NewRedisStore(rdb, ""), nil
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	// A missing key is a normal answer and must not count against the breaker.
	v, err := s.breaker.Execute(func() (interface{}, error) {
		val, err := s.client.Get(ctx, s.key(key)).Result()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []byte(val), nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	if v == nil {
		return nil, ErrNotFound
	}
	return v.([]byte), nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.client.Set(ctx, s.key(key), string(value), 0).Err()
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.client.Del(ctx, s.key(key)).Err()
	})
	if err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// Close releases the client's connection pool when the store owns one.
func (s *RedisStore) Close() error {
	if c, ok := s.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// State reports the breaker state for health output.
func (s *RedisStore) State() string {
	return s.breaker.State().String()
}
