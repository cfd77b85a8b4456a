package sources

import (
	"context"
	"fmt"

	"github.com/alan791205/ohara/config"
	"github.com/reugn/go-streams"
)

type Source interface {
	streams.Source
}

// NewSource builds the source described by cfg. origin identifies this
// instance on the shared event bus.
func NewSource(ctx context.Context, cfg config.SourceConfig, connectors map[config.ID]chan any, origin string) (Source, error) {
	switch cfg.Type {
	case config.SourceTypeRedis:
		source, err := NewRedisSource(ctx, cfg.Redis, origin)
		if err != nil {
			return nil, err
		}
		return source, nil
	case config.SourceTypeConnector:
		return NewConnectorSource(ctx, cfg.Connector, connectors)
	}
	return nil, fmt.Errorf("invalid source type: %s", cfg.Type)
}
