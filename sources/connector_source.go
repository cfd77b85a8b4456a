package sources

import (
	"context"
	"fmt"

	"github.com/alan791205/ohara/config"
	streams "github.com/reugn/go-streams/extension"
)

// NewConnectorSource reads from the in-process channel registered as cfg.ID.
func NewConnectorSource(ctx context.Context, cfg config.ConnectorConfig, connectors map[config.ID]chan any) (Source, error) {
	in, ok := connectors[cfg.ID]
	if !ok {
		return nil, fmt.Errorf("connector %q not registered", cfg.ID)
	}
	return streams.NewChanSource(in), nil
}
