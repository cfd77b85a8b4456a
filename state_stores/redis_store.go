package state_stores

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/alan791205/ohara/config"
	"github.com/redis/go-redis/v9"
	"google.golang.org/protobuf/proto"
)

type RedisStateStore struct {
	ctx    context.Context
	ttl    time.Duration
	client *redis.Client
}

func NewRedisStateStore(ctx context.Context, config config.RedisStateStoreConfig) *RedisStateStore {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	return &RedisStateStore{
		ctx:    ctx,
		ttl:    config.Expiry,
		client: client,
	}
}

func (s *RedisStateStore) Get(key string, new func() proto.Message) (proto.Message, bool, error) {
	data, err := s.client.Get(s.ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return new(), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	msg := new()
	if msg == nil {
		return nil, false, nil
	}
	if err := proto.Unmarshal(data, msg); err != nil {
		return nil, false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return msg, true, nil
}

func (s *RedisStateStore) Set(key string, msg proto.Message, ttl time.Duration) error {
	if ttl == 0 {
		ttl = s.ttl
	}
	if ttl < 0 {
		ttl = 0
	}
	data, err := proto.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.client.Set(s.ctx, key, data, ttl).Err()
}

func (s *RedisStateStore) Delete(key string) error {
	return s.client.Del(s.ctx, key).Err()
}

func (s *RedisStateStore) Keys(prefix string) ([]string, error) {
	keys := []string{}
	iter := s.client.Scan(s.ctx, 0, escapeGlob(prefix)+"*", 100).Iterator()
	for iter.Next(s.ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	slices.Sort(keys)
	return slices.Compact(keys), nil
}

func (s *RedisStateStore) Close() {
	if err := s.client.Close(); err != nil {
		slog.Error("redis state store: close failed", "error", err)
	}
}

func escapeGlob(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
