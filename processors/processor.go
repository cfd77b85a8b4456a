package processors

import (
	"context"

	"github.com/alan791205/ohara/config"
	"github.com/reugn/go-streams"
)

type Processor interface {
	streams.Flow
}

func NewProcessor(ctx context.Context, route config.RouteConfig) Processor {
	return NewEventFilter(ctx, route.Kinds, route.Pipelines)
}
