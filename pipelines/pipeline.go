package pipelines

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/alan791205/ohara/api/v1/events"
	"github.com/alan791205/ohara/config"
	"github.com/alan791205/ohara/connectors"
	"github.com/alan791205/ohara/graphs"
	"github.com/alan791205/ohara/state_stores"
	"github.com/google/uuid"
)

var (
	ErrPipelineNotFound  = errors.New("pipeline not found")
	ErrConnectorNotFound = errors.New("connector not found")
	ErrPipelineRunning   = errors.New("pipeline is running")
	ErrUnknownKind       = errors.New("unknown node kind")
	ErrNotTopic          = errors.New("node is not a topic")
	ErrNoTopic           = errors.New("connector has no topic")
	ErrInvalidName       = errors.New("invalid name")
)

const keyPrefix = "pipeline:"

func key(id config.ID) string { return keyPrefix + string(id) }

type Pipeline struct {
	ID                config.ID                          `json:"id"`
	Name              string                             `json:"name"`
	WorkerClusterName string                             `json:"workerClusterName"`
	Graph             graphs.Graph                       `json:"graph"`
	Connectors        map[config.ID]connectors.Connector `json:"connectors"`
	Running           bool                               `json:"running"`
	UpdatedAt         time.Time                          `json:"updatedAt"`
}

// RoleOf tells whether a connector of the given class writes to its topic
// (source) or reads from it (sink).
func RoleOf(kind string) graphs.Role {
	if graphs.IsSource(kind) {
		return graphs.RoleSource
	}
	return graphs.RoleSink
}

func (p Pipeline) node(id config.ID) (graphs.GraphNode, bool) {
	return graphs.FindByGraphID(p.Graph, id)
}

func (p Pipeline) connector(id config.ID) (connectors.Connector, error) {
	c, ok := p.Connectors[id]
	if !ok {
		return connectors.Connector{}, fmt.Errorf("%w: %q in pipeline %q", ErrConnectorNotFound, id, p.ID)
	}
	return c.Clone(), nil
}

// Service owns the pipeline records. Every change is persisted to the state
// store and announced on the outlet.
type Service struct {
	ctx       context.Context
	store     state_stores.StateStore
	outlet    chan<- any
	origin    string
	saveDelay time.Duration
	now       func() time.Time

	mu sync.Mutex

	draftsMu sync.Mutex
	drafts   map[string]*connectors.AutoSaver
}

type Option func(*Service)

// WithOutlet sets the channel events are written to.
func WithOutlet(outlet chan<- any) Option {
	return func(s *Service) {
		s.outlet = outlet
	}
}

// WithOrigin tags emitted events with the id of this instance.
func WithOrigin(origin string) Option {
	return func(s *Service) {
		s.origin = origin
	}
}

func WithSaveDelay(d time.Duration) Option {
	return func(s *Service) {
		s.saveDelay = d
	}
}

func NewService(ctx context.Context, store state_stores.StateStore, opts ...Option) *Service {
	s := &Service{
		ctx:       ctx,
		store:     store,
		saveDelay: connectors.DefaultSaveDelay,
		now:       time.Now,
		drafts:    make(map[string]*connectors.AutoSaver),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) load(id config.ID) (Pipeline, error) {
	p, found, err := state_stores.Load[Pipeline](s.store, key(id))
	if err != nil {
		return Pipeline{}, err
	}
	if !found {
		return Pipeline{}, fmt.Errorf("%w: %q", ErrPipelineNotFound, id)
	}
	if p.Connectors == nil {
		p.Connectors = map[config.ID]connectors.Connector{}
	}
	return p, nil
}

func (s *Service) save(p *Pipeline) error {
	p.UpdatedAt = s.now().UTC()
	return state_stores.Save(s.store, key(p.ID), p)
}

// update runs fn on the stored pipeline, persists the result and emits the
// events fn returned. Nothing is saved when fn fails.
func (s *Service) update(id config.ID, fn func(p *Pipeline) ([]events.Event, error)) (Pipeline, error) {
	s.mu.Lock()
	p, err := s.load(id)
	if err != nil {
		s.mu.Unlock()
		return Pipeline{}, err
	}
	emitted, err := fn(&p)
	if err != nil {
		s.mu.Unlock()
		return Pipeline{}, err
	}
	if err := s.save(&p); err != nil {
		s.mu.Unlock()
		return Pipeline{}, fmt.Errorf("save pipeline %q: %w", id, err)
	}
	s.mu.Unlock()

	s.emit(emitted...)
	return p, nil
}

func (s *Service) emit(emitted ...events.Event) {
	if s.outlet == nil {
		return
	}
	for _, event := range emitted {
		select {
		case s.outlet <- event:
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Service) header(id config.ID) events.Header {
	return events.NewHeader(id, s.origin)
}

func (s *Service) graphUpdated(p *Pipeline, nodeID config.ID) events.Event {
	return &events.GraphUpdatedEvent{
		Header: s.header(p.ID),
		NodeId: string(nodeID),
		Graph:  slices.Clone(p.Graph),
	}
}

func (s *Service) connectorSaved(pipelineID config.ID, c connectors.Connector) events.Event {
	topics := make([]string, 0, len(c.Topics))
	for _, t := range c.Topics {
		topics = append(topics, string(t))
	}
	return &events.ConnectorSavedEvent{
		Header:      s.header(pipelineID),
		ConnectorId: string(c.ID),
		ClassName:   c.ClassName,
		Topics:      topics,
	}
}

func (s *Service) connectorState(pipelineID config.ID, c connectors.Connector) events.Event {
	return &events.ConnectorStateEvent{
		Header:      s.header(pipelineID),
		ConnectorId: string(c.ID),
		State:       string(c.State),
	}
}

func (s *Service) Create(name, workerClusterName string) (Pipeline, error) {
	if name == "" {
		return Pipeline{}, fmt.Errorf("%w: pipeline name is required", ErrInvalidName)
	}
	p := Pipeline{
		ID:                config.ID(uuid.New().String()),
		Name:              name,
		WorkerClusterName: workerClusterName,
		Graph:             graphs.Graph{},
		Connectors:        map[config.ID]connectors.Connector{},
	}
	s.mu.Lock()
	err := s.save(&p)
	s.mu.Unlock()
	if err != nil {
		return Pipeline{}, err
	}
	slog.Info("pipeline created", "pipeline_id", p.ID, "name", name)
	return p, nil
}

// Seed stores a pipeline declared in the config file. An existing record with
// the same id is kept.
func (s *Service) Seed(cfg config.PipelineConfig) (Pipeline, error) {
	if cfg.ID == "" {
		return Pipeline{}, fmt.Errorf("%w: seeded pipeline needs an id", ErrInvalidName)
	}
	existing, err := s.Get(cfg.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrPipelineNotFound) {
		return Pipeline{}, err
	}

	name := cfg.Name
	if name == "" {
		name = string(cfg.ID)
	}
	p := Pipeline{
		ID:                cfg.ID,
		Name:              name,
		WorkerClusterName: cfg.WorkerCluster,
		Graph:             graphs.Graph{},
		Connectors:        map[config.ID]connectors.Connector{},
	}
	for _, n := range cfg.Nodes {
		nodeType, ok := graphs.TypeOf(n.Kind)
		if !ok {
			return Pipeline{}, fmt.Errorf("pipeline %q node %q: %w: %q", cfg.ID, n.ID, ErrUnknownKind, n.Kind)
		}
		node := graphs.GraphNode{ID: n.ID, Type: nodeType, Name: n.Name, Kind: n.Kind, To: n.To, Icon: n.Icon}
		graph, err := graphs.Add(p.Graph, node)
		if err != nil {
			return Pipeline{}, fmt.Errorf("pipeline %q: %w", cfg.ID, err)
		}
		p.Graph = graph
		if nodeType == graphs.NodeTypeSource || nodeType == graphs.NodeTypeSink {
			c := connectors.New(n.ID, n.Kind)
			c.Name = n.Name
			c.Configs = connectors.Config(cfg.Connectors[n.ID]).Clone()
			if n.To != "" && n.To != graphs.Unset && nodeType == graphs.NodeTypeSource {
				c.Topics = []config.ID{n.To}
			}
			p.Connectors[n.ID] = c
		}
	}
	// sink connectors read the topic pointing at them
	for _, n := range p.Graph {
		if n.Type != graphs.NodeTypeTopic {
			continue
		}
		if c, ok := p.Connectors[n.To]; ok && RoleOf(c.ClassName) == graphs.RoleSink {
			c.Topics = []config.ID{n.ID}
			p.Connectors[n.To] = c
		}
	}
	if err := graphs.Validate(p.Graph); err != nil {
		return Pipeline{}, fmt.Errorf("pipeline %q: %w", cfg.ID, err)
	}

	s.mu.Lock()
	err = s.save(&p)
	s.mu.Unlock()
	if err != nil {
		return Pipeline{}, err
	}
	slog.Info("pipeline seeded", "pipeline_id", p.ID, "nodes", len(p.Graph))
	return p, nil
}

func (s *Service) Get(id config.ID) (Pipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(id)
}

func (s *Service) List() ([]Pipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := state_stores.LoadAll[Pipeline](s.store, keyPrefix)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(all, func(a, b Pipeline) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), strings.Compare(string(a.ID), string(b.ID)))
	})
	return all, nil
}

func (s *Service) Delete(id config.ID) error {
	s.mu.Lock()
	p, err := s.load(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if p.Running {
		s.mu.Unlock()
		return fmt.Errorf("%w: stop pipeline %q before deleting it", ErrPipelineRunning, id)
	}
	if err := s.store.Delete(key(id)); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.dropDrafts(id)
	slog.Info("pipeline deleted", "pipeline_id", id)
	s.emit(&events.PipelineDeletedEvent{Header: s.header(id)})
	return nil
}

func (s *Service) Rename(id config.ID, name string) (Pipeline, error) {
	if name == "" {
		return Pipeline{}, fmt.Errorf("%w: pipeline name is required", ErrInvalidName)
	}
	return s.update(id, func(p *Pipeline) ([]events.Event, error) {
		p.Name = name
		return nil, nil
	})
}

// Start runs every connector of a valid graph and locks the pipeline
// against edits.
func (s *Service) Start(id config.ID) (Pipeline, error) {
	// pending edits land before the pipeline locks
	if err := s.flushPipeline(id); err != nil {
		return Pipeline{}, err
	}
	return s.update(id, func(p *Pipeline) ([]events.Event, error) {
		if err := graphs.Validate(p.Graph); err != nil {
			return nil, err
		}
		var emitted []events.Event
		for _, cid := range slices.Sorted(maps.Keys(p.Connectors)) {
			c := p.Connectors[cid]
			if _, ok := c.Topic(); !ok {
				return nil, fmt.Errorf("%w: %q", ErrNoTopic, cid)
			}
			c.State = connectors.StateRunning
			setState(p, c)
			emitted = append(emitted, s.connectorState(p.ID, c))
		}
		p.Running = true
		return append(emitted, s.graphUpdated(p, "")), nil
	})
}

func (s *Service) Stop(id config.ID) (Pipeline, error) {
	return s.update(id, func(p *Pipeline) ([]events.Event, error) {
		var emitted []events.Event
		for _, cid := range slices.Sorted(maps.Keys(p.Connectors)) {
			c := p.Connectors[cid]
			if c.State == "" {
				continue
			}
			c.State = ""
			setState(p, c)
			emitted = append(emitted, s.connectorState(p.ID, c))
		}
		p.Running = false
		return append(emitted, s.graphUpdated(p, "")), nil
	})
}
