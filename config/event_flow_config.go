package config

import (
	"fmt"
	"maps"
	"slices"
)

type EventKind string

const (
	EventKindGraphUpdated    EventKind = "graph_updated"
	EventKindConnectorSaved  EventKind = "connector_saved"
	EventKindConnectorState  EventKind = "connector_state"
	EventKindPipelineDeleted EventKind = "pipeline_deleted"
)

// Event routes

type RouteConfigYaml struct {
	Sources   []ID        `yaml:"sources"`
	Kinds     []EventKind `yaml:"kinds"`
	Pipelines []ID        `yaml:"pipelines"`
	Sinks     []ID        `yaml:"sinks"`
}

type RouteConfig struct {
	ID        ID
	Sources   []SourceConfig
	Kinds     []EventKind
	Pipelines []ID
	Sinks     []SinkConfig
}

type EventFlowConfigYaml struct {
	Sources map[ID]SourceConfig    `yaml:"sources"`
	Sinks   map[ID]SinkConfig      `yaml:"sinks"`
	Routes  map[ID]RouteConfigYaml `yaml:"routes"`
}

type EventFlowConfig struct {
	Sources map[ID]SourceConfig
	Sinks   map[ID]SinkConfig
	Routes  []RouteConfig
}

// Materialize resolves the source and sink ids referenced by each route.
// Ids are also accepted as connector names: a route reading or writing an
// id that is not declared gets a connector source or sink of that name.
func (c *EventFlowConfigYaml) Materialize() (EventFlowConfig, error) {
	out := EventFlowConfig{
		Sources: make(map[ID]SourceConfig, len(c.Sources)),
		Sinks:   make(map[ID]SinkConfig, len(c.Sinks)),
	}
	for id, source := range c.Sources {
		source.ID = id
		if source.Type == "" {
			return out, fmt.Errorf("source %q: missing type", id)
		}
		out.Sources[id] = source
	}
	for id, sink := range c.Sinks {
		sink.ID = id
		if sink.Type == "" {
			return out, fmt.Errorf("sink %q: missing type", id)
		}
		out.Sinks[id] = sink
	}

	for _, id := range slices.Sorted(maps.Keys(c.Routes)) {
		route := c.Routes[id]
		materialized := RouteConfig{ID: id, Kinds: route.Kinds, Pipelines: route.Pipelines}
		if len(route.Sources) == 0 {
			return out, fmt.Errorf("route %q: no sources", id)
		}
		for _, sourceID := range route.Sources {
			source, ok := out.Sources[sourceID]
			if !ok {
				source = SourceConfig{
					ID:        sourceID,
					Type:      SourceTypeConnector,
					Connector: ConnectorConfig{ID: sourceID},
				}
			}
			materialized.Sources = append(materialized.Sources, source)
		}
		for _, sinkID := range route.Sinks {
			sink, ok := out.Sinks[sinkID]
			if !ok {
				sink = SinkConfig{
					ID:        sinkID,
					Type:      SinkTypeConnector,
					Connector: ConnectorConfig{ID: sinkID},
				}
			}
			materialized.Sinks = append(materialized.Sinks, sink)
		}
		out.Routes = append(out.Routes, materialized)
	}
	return out, nil
}

// Connector ids referenced by any route.
func (c EventFlowConfig) Connectors() []ID {
	seen := map[ID]bool{}
	var ids []ID
	add := func(id ID) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, route := range c.Routes {
		for _, source := range route.Sources {
			if source.Type == SourceTypeConnector {
				add(source.Connector.ID)
			}
		}
		for _, sink := range route.Sinks {
			if sink.Type == SinkTypeConnector {
				add(sink.Connector.ID)
			}
		}
	}
	return ids
}

// Reads reports whether some route takes its events from connector id.
func (c EventFlowConfig) Reads(id ID) bool {
	for _, route := range c.Routes {
		for _, source := range route.Sources {
			if source.Type == SourceTypeConnector && source.Connector.ID == id {
				return true
			}
		}
	}
	return false
}
