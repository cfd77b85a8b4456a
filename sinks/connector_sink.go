package sinks

import (
	"context"
	"fmt"

	"github.com/alan791205/ohara/config"
	streams "github.com/reugn/go-streams/extension"
)

// NewConnectorSink writes to the in-process channel registered as cfg.ID.
func NewConnectorSink(ctx context.Context, cfg config.ConnectorConfig, connectors map[config.ID]chan any) (Sink, error) {
	out, ok := connectors[cfg.ID]
	if !ok {
		return nil, fmt.Errorf("connector %q not registered", cfg.ID)
	}
	return streams.NewChanSink(out), nil
}
