package event_flow

import (
	"context"
	"fmt"

	"github.com/alan791205/ohara/config"
	"github.com/alan791205/ohara/event_server"
	"github.com/alan791205/ohara/processors"
	"github.com/alan791205/ohara/sinks"
	"github.com/alan791205/ohara/sources"
	"github.com/reugn/go-streams"
	"github.com/reugn/go-streams/flow"
)

// OutletID names the connector the pipeline service writes its events to.
const OutletID config.ID = "outlet"

type Route struct {
	ID        config.ID
	sources   []sources.Source
	processor processors.Processor
	sinks     []sinks.Sink
}

// Flow moves pipeline events from their sources through a filter to every
// sink of each configured route.
type Flow struct {
	routes     []*Route
	connectors map[config.ID]chan any
	server     *event_server.EventServer
	origin     string
}

type FlowOption func(*Flow)

// WithConnector registers an existing channel under id instead of letting
// the flow create one.
func WithConnector(id config.ID, ch chan any) FlowOption {
	return func(f *Flow) {
		if ch != nil {
			f.connectors[id] = ch
		}
	}
}

func WithEventServer(server *event_server.EventServer) FlowOption {
	return func(f *Flow) {
		f.server = server
	}
}

func WithOrigin(origin string) FlowOption {
	return func(f *Flow) {
		f.origin = origin
	}
}

func NewFlow(ctx context.Context, cfg config.EventFlowConfig, opts ...FlowOption) (*Flow, error) {
	f := &Flow{connectors: make(map[config.ID]chan any)}
	for _, opt := range opts {
		opt(f)
	}

	for _, id := range cfg.Connectors() {
		if _, ok := f.connectors[id]; !ok {
			f.connectors[id] = make(chan any)
		}
	}

	// a channel element is received once, so one route per connector source
	readers := map[config.ID]config.ID{}
	for _, routeConfig := range cfg.Routes {
		if len(routeConfig.Sinks) == 0 {
			return nil, fmt.Errorf("route %q: no sinks", routeConfig.ID)
		}
		route := &Route{ID: routeConfig.ID}
		for _, sourceConfig := range routeConfig.Sources {
			if sourceConfig.Type == config.SourceTypeConnector {
				if other, ok := readers[sourceConfig.Connector.ID]; ok {
					return nil, fmt.Errorf("route %q: connector %q is already read by route %q",
						routeConfig.ID, sourceConfig.Connector.ID, other)
				}
				readers[sourceConfig.Connector.ID] = routeConfig.ID
			}
			source, err := sources.NewSource(ctx, sourceConfig, f.connectors, f.origin)
			if err != nil {
				return nil, fmt.Errorf("route %q: source %q: %w", routeConfig.ID, sourceConfig.ID, err)
			}
			route.sources = append(route.sources, source)
		}
		for _, sinkConfig := range routeConfig.Sinks {
			sink, err := sinks.NewSink(ctx, sinkConfig, f.connectors, f.server, f.origin)
			if err != nil {
				return nil, fmt.Errorf("route %q: sink %q: %w", routeConfig.ID, sinkConfig.ID, err)
			}
			route.sinks = append(route.sinks, sink)
		}
		route.processor = processors.NewProcessor(ctx, routeConfig)
		f.routes = append(f.routes, route)
	}
	return f, nil
}

// Connector returns the channel registered under id.
func (f *Flow) Connector(id config.ID) (chan any, bool) {
	ch, ok := f.connectors[id]
	return ch, ok
}

func (f *Flow) Run() {
	for _, route := range f.routes {
		go route.Run()
	}
}

func (r *Route) Run() {
	sourceFlows := []streams.Flow{}
	for _, source := range r.sources {
		sourceFlows = append(sourceFlows, source.Via(flow.NewPassThrough()))
	}
	mergeFlow := flow.Merge(sourceFlows...).Via(r.processor)
	sinkFlows := flow.FanOut(mergeFlow, len(r.sinks))
	for i, sink := range r.sinks {
		go sinkFlows[i].To(sink)
	}
}

// DefaultConfig is used when no events section is configured: the outlet
// is logged and, when an event server runs, pushed to the console.
func DefaultConfig(withEventServer bool) config.EventFlowConfig {
	outlet := config.SourceConfig{
		ID:        OutletID,
		Type:      config.SourceTypeConnector,
		Connector: config.ConnectorConfig{ID: OutletID},
	}
	sinkConfigs := []config.SinkConfig{{
		ID:      "log",
		Type:    config.SinkTypeConsole,
		Console: config.ConsoleSinkConfig{Level: config.ConsoleSinkLevelDebug},
	}}
	if withEventServer {
		sinkConfigs = append(sinkConfigs, config.SinkConfig{ID: "live", Type: config.SinkTypeHTTP})
	}
	return config.EventFlowConfig{
		Sources: map[config.ID]config.SourceConfig{OutletID: outlet},
		Sinks:   map[config.ID]config.SinkConfig{},
		Routes: []config.RouteConfig{{
			ID:      "default",
			Sources: []config.SourceConfig{outlet},
			Sinks:   sinkConfigs,
		}},
	}
}
