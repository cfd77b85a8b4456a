package state_stores

import (
	"context"
	"fmt"
	"time"

	"github.com/alan791205/ohara/config"
	"google.golang.org/protobuf/proto"
)

type StateStore interface {
	// Get reports found=false with a nil error for a missing or expired key.
	Get(key string, new func() proto.Message) (proto.Message, bool, error)
	Set(key string, msg proto.Message, ttl time.Duration) error
	Delete(key string) error
	// Keys lists the live keys starting with prefix, sorted.
	Keys(prefix string) ([]string, error)
	Close()
}

func NewStateStore(ctx context.Context, cfg config.StateStoreConfig) (StateStore, error) {
	switch cfg.Type {
	case config.RedisStateStoreType:
		return NewRedisStateStore(ctx, cfg.Redis), nil
	case config.SQLiteStateStoreType:
		store, err := NewSQLiteStateStore(ctx, cfg.SQLite)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.InMemoryStateStoreType, "":
		return NewInMemoryStateStore(cfg.InMemory), nil
	}
	return nil, fmt.Errorf("invalid state store type: %s", cfg.Type)
}
