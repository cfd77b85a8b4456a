package sinks

import (
	"context"
	"fmt"

	"github.com/alan791205/ohara/config"
	"github.com/alan791205/ohara/event_server"
	"github.com/reugn/go-streams"
)

type Sink interface {
	streams.Sink
}

// NewSink builds the sink described by cfg. server may be nil when no http
// sink is configured.
func NewSink(
	ctx context.Context,
	cfg config.SinkConfig,
	connectors map[config.ID]chan any,
	server *event_server.EventServer,
	origin string,
) (Sink, error) {
	switch cfg.Type {
	case config.SinkTypeConsole:
		return NewLogSink(ctx, cfg.Console), nil
	case config.SinkTypeConnector:
		return NewConnectorSink(ctx, cfg.Connector, connectors)
	case config.SinkTypeHTTP:
		if server == nil {
			return nil, fmt.Errorf("sink %q: http sink requires an event server", cfg.ID)
		}
		return NewHttpSink(ctx, server), nil
	case config.SinkTypeRedis:
		sink, err := NewRedisSink(ctx, cfg.Redis, origin)
		if err != nil {
			return nil, err
		}
		return sink, nil
	case config.SinkTypeFileSystem:
		sink, err := NewParquetSink(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return sink, nil
	}
	return nil, fmt.Errorf("invalid sink type: %s", cfg.Type)
}
