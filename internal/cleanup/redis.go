package cleanup

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisStore keeps tasks in Redis so pending deletions survive restarts.
// Due times live in a sorted set scored by Unix milliseconds, task bodies
// in a hash keyed by task ID.
type RedisStore struct {
	client *redis.Client
	due    string
	tasks  string
}

// NewRedisStore connects to Redis and checks the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisStoreFromClient(client, cfg.Prefix), nil
}

// NewRedisStoreFromClient wraps an existing client. An empty prefix
// defaults to "billtext:cleanup:".
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "billtext:cleanup:"
	}
	return &RedisStore{
		client: client,
		due:    prefix + "due",
		tasks:  prefix + "tasks",
	}
}

func (r *RedisStore) Put(ctx context.Context, t Task) error {
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, r.tasks, t.ID, body)
		p.ZAdd(ctx, r.due, redis.Z{Score: float64(t.DueAt.UnixMilli()), Member: t.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis put task: %w", err)
	}
	return nil
}

func (r *RedisStore) Due(ctx context.Context, now time.Time, limit int) ([]Task, error) {
	by := &redis.ZRangeBy{Min: "-inf", Max: strconv.FormatInt(now.UnixMilli(), 10)}
	if limit > 0 {
		by.Count = int64(limit)
	}
	ids, err := r.client.ZRangeByScore(ctx, r.due, by).Result()
	if err != nil {
		return nil, fmt.Errorf("redis due tasks: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	bodies, err := r.client.HMGet(ctx, r.tasks, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis task bodies: %w", err)
	}

	tasks := make([]Task, 0, len(ids))
	for i, b := range bodies {
		s, ok := b.(string)
		if !ok {
			// Body vanished; drop the dangling index entry.
			r.client.ZRem(ctx, r.due, ids[i])
			continue
		}
		var t Task
		if err := json.Unmarshal([]byte(s), &t); err != nil {
			return nil, fmt.Errorf("decode task %s: %w", ids[i], err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRem(ctx, r.due, id)
		p.HDel(ctx, r.tasks, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete task: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
