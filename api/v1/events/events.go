package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/alan791205/ohara/config"
	"github.com/alan791205/ohara/graphs"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Base interface for all events
type Event interface {
	GetKind() config.EventKind
	GetPipelineId() string
	GetOrigin() string
	GetTimestamp() *timestamppb.Timestamp
	GetAttributes() map[string]any
}

type Header struct {
	PipelineId string                 `json:"pipeline_id"`
	Origin     string                 `json:"origin,omitempty"`
	Timestamp  *timestamppb.Timestamp `json:"-"`
}

func NewHeader(pipelineID config.ID, origin string) Header {
	return Header{
		PipelineId: string(pipelineID),
		Origin:     origin,
		Timestamp:  timestamppb.Now(),
	}
}

func (h Header) GetPipelineId() string                { return h.PipelineId }
func (h Header) GetOrigin() string                    { return h.Origin }
func (h Header) GetTimestamp() *timestamppb.Timestamp { return h.Timestamp }

type GraphUpdatedEvent struct {
	Header
	NodeId string       `json:"node_id,omitempty"`
	Graph  graphs.Graph `json:"graph"`
}

type ConnectorSavedEvent struct {
	Header
	ConnectorId string   `json:"connector_id"`
	ClassName   string   `json:"class_name"`
	Topics      []string `json:"topics"`
}

type ConnectorStateEvent struct {
	Header
	ConnectorId string `json:"connector_id"`
	State       string `json:"state"`
}

type PipelineDeletedEvent struct {
	Header
}

func (e *GraphUpdatedEvent) GetKind() config.EventKind    { return config.EventKindGraphUpdated }
func (e *ConnectorSavedEvent) GetKind() config.EventKind  { return config.EventKindConnectorSaved }
func (e *ConnectorStateEvent) GetKind() config.EventKind  { return config.EventKindConnectorState }
func (e *PipelineDeletedEvent) GetKind() config.EventKind { return config.EventKindPipelineDeleted }

func (e *GraphUpdatedEvent) GetAttributes() map[string]any {
	return map[string]any{
		"node_id": e.NodeId,
		"nodes":   len(e.Graph),
	}
}

func (e *ConnectorSavedEvent) GetAttributes() map[string]any {
	return map[string]any{
		"connector_id": e.ConnectorId,
		"class_name":   e.ClassName,
		"topics":       e.Topics,
	}
}

func (e *ConnectorStateEvent) GetAttributes() map[string]any {
	return map[string]any{
		"connector_id": e.ConnectorId,
		"state":        e.State,
	}
}

func (e *PipelineDeletedEvent) GetAttributes() map[string]any {
	return map[string]any{}
}

// GetEventMap flattens an event into the string keyed attributes used for
// logging and subscription matching.
func GetEventMap(event Event) map[string]any {
	m := event.GetAttributes()
	m["kind"] = string(event.GetKind())
	m["pipeline_id"] = event.GetPipelineId()
	if ts := event.GetTimestamp(); ts != nil {
		m["timestamp"] = ts.AsTime().Unix()
	}
	return m
}

type envelope struct {
	Kind      config.EventKind `json:"kind"`
	Timestamp time.Time        `json:"timestamp"`
	Payload   json.RawMessage  `json:"payload"`
}

// Marshal encodes an event together with its kind so Unmarshal can restore
// the concrete type.
func Marshal(event Event) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	env := envelope{Kind: event.GetKind(), Payload: payload}
	if ts := event.GetTimestamp(); ts != nil {
		env.Timestamp = ts.AsTime()
	}
	return json.Marshal(env)
}

func Unmarshal(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	var event Event
	var header *Header
	switch env.Kind {
	case config.EventKindGraphUpdated:
		e := &GraphUpdatedEvent{}
		event, header = e, &e.Header
	case config.EventKindConnectorSaved:
		e := &ConnectorSavedEvent{}
		event, header = e, &e.Header
	case config.EventKindConnectorState:
		e := &ConnectorStateEvent{}
		event, header = e, &e.Header
	case config.EventKindPipelineDeleted:
		e := &PipelineDeletedEvent{}
		event, header = e, &e.Header
	default:
		return nil, fmt.Errorf("unknown event kind %q", env.Kind)
	}
	if err := json.Unmarshal(env.Payload, event); err != nil {
		return nil, err
	}
	if !env.Timestamp.IsZero() {
		header.Timestamp = timestamppb.New(env.Timestamp)
	}
	return event, nil
}
