package workers

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/alan791205/ohara/config"
	"github.com/alan791205/ohara/graphs"
	"github.com/alan791205/ohara/state_stores"
	"github.com/go-playground/validator/v10"
)

var (
	ErrWorkerNotFound = errors.New("worker cluster not found")
	ErrWorkerExists   = errors.New("worker cluster already exists")
	ErrInvalidWorker  = errors.New("invalid worker cluster")
)

const keyPrefix = "worker:"

type ConnectorDefinition struct {
	ClassName string `json:"className" validate:"required"`
	Version   string `json:"version"`
}

// Worker is a connect worker cluster pipelines can run on.
type Worker struct {
	Name            string                `json:"name" validate:"required,max=30,alphanum,lowercase"`
	NodeNames       []string              `json:"nodeNames" validate:"required,min=1,dive,hostname_rfc1123"`
	StatusTopicName string                `json:"statusTopicName"`
	ConfigTopicName string                `json:"configTopicName"`
	OffsetTopicName string                `json:"offsetTopicName"`
	Sources         []ConnectorDefinition `json:"sources" validate:"dive"`
	Sinks           []ConnectorDefinition `json:"sinks" validate:"dive"`
}

func (w *Worker) setDefaults() {
	if w.StatusTopicName == "" {
		w.StatusTopicName = w.Name + "-status-topic"
	}
	if w.ConfigTopicName == "" {
		w.ConfigTopicName = w.Name + "-config-topic"
	}
	if w.OffsetTopicName == "" {
		w.OffsetTopicName = w.Name + "-offset-topic"
	}
	if w.Sources == nil {
		w.Sources = []ConnectorDefinition{}
	}
	if w.Sinks == nil {
		w.Sinks = []ConnectorDefinition{}
	}
}

// Registry keeps the worker clusters known to the console.
type Registry struct {
	mu       sync.Mutex
	store    state_stores.StateStore
	validate *validator.Validate
	hidden   []string
}

// NewRegistry returns a registry whose connector listings leave out the
// hidden class names.
func NewRegistry(store state_stores.StateStore, hidden []string) *Registry {
	return &Registry{
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		hidden:   slices.Clone(hidden),
	}
}

func FromConfig(cfg config.WorkerConfig) Worker {
	w := Worker{
		Name:            cfg.Name,
		NodeNames:       slices.Clone(cfg.NodeNames),
		StatusTopicName: cfg.StatusTopicName,
		ConfigTopicName: cfg.ConfigTopicName,
		OffsetTopicName: cfg.OffsetTopicName,
	}
	for _, d := range cfg.Sources {
		w.Sources = append(w.Sources, ConnectorDefinition{ClassName: d.ClassName, Version: d.Version})
	}
	for _, d := range cfg.Sinks {
		w.Sinks = append(w.Sinks, ConnectorDefinition{ClassName: d.ClassName, Version: d.Version})
	}
	return w
}

func (r *Registry) Create(w Worker) (Worker, error) {
	if err := r.validate.Struct(w); err != nil {
		return Worker{}, fmt.Errorf("%w: %v", ErrInvalidWorker, err)
	}
	w.setDefaults()

	r.mu.Lock()
	defer r.mu.Unlock()
	_, found, err := state_stores.Load[Worker](r.store, keyPrefix+w.Name)
	if err != nil {
		return Worker{}, err
	}
	if found {
		return Worker{}, fmt.Errorf("%w: %q", ErrWorkerExists, w.Name)
	}
	if err := state_stores.Save(r.store, keyPrefix+w.Name, w); err != nil {
		return Worker{}, err
	}
	slog.Info("worker cluster created", "name", w.Name, "nodes", len(w.NodeNames))
	return w, nil
}

// Seed creates w unless a cluster of that name exists.
func (r *Registry) Seed(w Worker) (Worker, error) {
	existing, err := r.Get(w.Name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrWorkerNotFound) {
		return Worker{}, err
	}
	return r.Create(w)
}

func (r *Registry) Get(name string) (Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, found, err := state_stores.Load[Worker](r.store, keyPrefix+name)
	if err != nil {
		return Worker{}, err
	}
	if !found {
		return Worker{}, fmt.Errorf("%w: %q", ErrWorkerNotFound, name)
	}
	return w, nil
}

func (r *Registry) List() ([]Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return state_stores.LoadAll[Worker](r.store, keyPrefix)
}

func (r *Registry) Delete(name string) error {
	if _, err := r.Get(name); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Delete(keyPrefix + name)
}

// Connector is a class that can be added to a pipeline on a cluster.
type Connector struct {
	ClassName string          `json:"className"`
	Version   string          `json:"version"`
	Type      graphs.NodeType `json:"type"`
}

// Connectors lists the source and sink classes of the cluster, minus the
// hidden ones.
func (r *Registry) Connectors(name string) ([]Connector, error) {
	w, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	var out []Connector
	add := func(defs []ConnectorDefinition, t graphs.NodeType) {
		for _, d := range defs {
			if slices.Contains(r.hidden, d.ClassName) {
				continue
			}
			out = append(out, Connector{ClassName: d.ClassName, Version: d.Version, Type: t})
		}
	}
	add(w.Sources, graphs.NodeTypeSource)
	add(w.Sinks, graphs.NodeTypeSink)
	return out, nil
}
