package predictions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/aristath/augur/internal/domain"
)

// RedisStore keeps one msgpack value per strategy under prefix+"value:"+name
// and a set of cached names under prefix+"index". Names never reach the index
// key, whatever they are.
type RedisStore struct {
	client *redis.Client
	prefix string
	log    zerolog.Logger
}

// NewRedisClient parses a redis:// URL and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

// NewRedisStore creates a store on an existing client.
func NewRedisStore(client *redis.Client, prefix string, log zerolog.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
		log:    log.With().Str("repo", "redis_predictions").Logger(),
	}
}

func (s *RedisStore) key(strategy string) string {
	return s.prefix + "value:" + strategy
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "index"
}

// Put overwrites a strategy's entry and records it in the index.
func (s *RedisStore) Put(ctx context.Context, p domain.CachedPrediction) error {
	payload, err := encode(p)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(p.Strategy), payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", p.Strategy, err)
	}
	if err := s.client.SAdd(ctx, s.indexKey(), p.Strategy).Err(); err != nil {
		return fmt.Errorf("redis index %s: %w", p.Strategy, err)
	}
	return nil
}

// Get returns nil, nil on a cache miss.
func (s *RedisStore) Get(ctx context.Context, strategy string) (*domain.CachedPrediction, error) {
	payload, err := s.client.Get(ctx, s.key(strategy)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", strategy, err)
	}
	return decode(payload)
}

// List returns every indexed entry. Names whose value has expired or been
// deleted out of band are skipped.
func (s *RedisStore) List(ctx context.Context) ([]domain.CachedPrediction, error) {
	names, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis index: %w", err)
	}
	sort.Strings(names)

	out := make([]domain.CachedPrediction, 0, len(names))
	for _, name := range names {
		p, err := s.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		if p == nil {
			s.log.Debug().Str("strategy", name).Msg("Indexed prediction missing")
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}
