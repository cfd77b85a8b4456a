package pipelines

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alan791205/ohara/api/v1/events"
	"github.com/alan791205/ohara/config"
	"github.com/alan791205/ohara/connectors"
	"github.com/alan791205/ohara/graphs"
)

// SaveConnector stores c and moves the graph edge to its topic. Saving is
// refused while the pipeline runs. A pending draft of c is discarded.
func (s *Service) SaveConnector(id config.ID, c connectors.Connector) (Pipeline, error) {
	p, err := s.saveConnector(id, c)
	if err == nil {
		s.dropDraft(id, c.ID)
	}
	return p, err
}

func (s *Service) saveConnector(id config.ID, c connectors.Connector) (Pipeline, error) {
	return s.update(id, func(p *Pipeline) ([]events.Event, error) {
		if p.Running {
			return nil, fmt.Errorf("%w: cannot update connector %q", ErrPipelineRunning, c.ID)
		}
		current, err := p.connector(c.ID)
		if err != nil {
			return nil, err
		}
		c = c.Clone()
		c.State = current.State
		if c.ClassName == "" {
			c.ClassName = current.ClassName
		}
		if c.Topics == nil {
			c.Topics = []config.ID{}
		}

		node, ok := p.node(c.ID)
		if !ok {
			return nil, fmt.Errorf("%w: %q", graphs.ErrDanglingReference, c.ID)
		}
		topicID, hasTopic := c.Topic()
		if hasTopic {
			topic, ok := p.node(topicID)
			if !ok {
				return nil, fmt.Errorf("%w: topic %q", graphs.ErrDanglingReference, topicID)
			}
			if topic.Type != graphs.NodeTypeTopic {
				return nil, fmt.Errorf("%w: %q", ErrNotTopic, topicID)
			}
		}

		if RoleOf(c.ClassName) == graphs.RoleSource {
			node.To = graphs.Unset
			if hasTopic {
				node.To = topicID
			}
			p.Graph = graphs.Replace(p.Graph, node, node.ID)
		} else if hasTopic {
			topic, _ := p.node(topicID)
			graph, err := graphs.UpdateTopic(p.Graph, c.ID, &topic, graphs.RoleSink)
			if err != nil {
				return nil, err
			}
			p.Graph = graph
		}
		if c.Name != "" && c.Name != node.Name {
			node, _ = p.node(c.ID)
			node.Name = c.Name
			p.Graph = graphs.Replace(p.Graph, node, node.ID)
		}

		p.Connectors[c.ID] = c
		return []events.Event{s.connectorSaved(p.ID, c), s.graphUpdated(p, c.ID)}, nil
	})
}

func (s *Service) Connector(id, connectorID config.ID) (connectors.Connector, error) {
	p, err := s.Get(id)
	if err != nil {
		return connectors.Connector{}, err
	}
	return p.connector(connectorID)
}

func draftKey(id, connectorID config.ID) string {
	return string(id) + "/" + string(connectorID)
}

// ConnectorEdit is one change from the connector form. Unset fields are left
// alone.
type ConnectorEdit struct {
	Name    *string
	Configs connectors.Config
	Schema  []connectors.Column
	Column  *connectors.ColumnEdit
}

// EditConnector applies form changes to the connector's draft. The draft is
// saved once edits have paused for the save delay. Editing is refused while
// the pipeline runs.
func (s *Service) EditConnector(id, connectorID config.ID, edit ConnectorEdit) (connectors.Connector, error) {
	p, err := s.Get(id)
	if err != nil {
		return connectors.Connector{}, err
	}
	if p.Running {
		return connectors.Connector{}, fmt.Errorf("%w: cannot edit connector %q", ErrPipelineRunning, connectorID)
	}
	current, err := p.connector(connectorID)
	if err != nil {
		return connectors.Connector{}, err
	}
	saver := s.autoSaver(id, current)

	draft := saver.Draft()
	if edit.Column != nil {
		if err := draft.EditSchema(edit.Column.Apply); err != nil {
			return connectors.Connector{}, err
		}
	}
	if edit.Schema != nil {
		draft.SetSchema(edit.Schema)
	}
	if edit.Name != nil {
		draft.SetName(*edit.Name)
	}
	draft.Merge(edit.Configs)
	saver.Touch()
	return draft.Edits().Apply(current), nil
}

func (s *Service) autoSaver(id config.ID, c connectors.Connector) *connectors.AutoSaver {
	s.draftsMu.Lock()
	defer s.draftsMu.Unlock()
	k := draftKey(id, c.ID)
	if saver, ok := s.drafts[k]; ok {
		return saver
	}
	connectorID := c.ID
	save := func(ctx context.Context, edits connectors.Edits) error {
		_, err := s.applyEdits(id, connectorID, edits)
		return err
	}
	saver := connectors.NewAutoSaver(s.ctx, connectors.NewDraft(c), save, s.saveDelay)
	s.drafts[k] = saver
	return saver
}

// applyEdits writes the drafted form fields onto the stored connector.
func (s *Service) applyEdits(id, connectorID config.ID, edits connectors.Edits) (Pipeline, error) {
	return s.update(id, func(p *Pipeline) ([]events.Event, error) {
		if p.Running {
			return nil, fmt.Errorf("%w: cannot update connector %q", ErrPipelineRunning, connectorID)
		}
		current, err := p.connector(connectorID)
		if err != nil {
			return nil, err
		}
		c := edits.Apply(current)
		p.Connectors[c.ID] = c

		emitted := []events.Event{s.connectorSaved(p.ID, c)}
		if node, ok := p.node(c.ID); ok && c.Name != "" && c.Name != node.Name {
			node.Name = c.Name
			p.Graph = graphs.Replace(p.Graph, node, node.ID)
			emitted = append(emitted, s.graphUpdated(p, c.ID))
		}
		return emitted, nil
	})
}

// Flush saves every pending draft.
func (s *Service) Flush() error {
	return flushAll(s.pendingDrafts(""))
}

func (s *Service) flushPipeline(id config.ID) error {
	return flushAll(s.pendingDrafts(string(id) + "/"))
}

func (s *Service) pendingDrafts(prefix string) []*connectors.AutoSaver {
	s.draftsMu.Lock()
	defer s.draftsMu.Unlock()
	var savers []*connectors.AutoSaver
	for k, saver := range s.drafts {
		if strings.HasPrefix(k, prefix) {
			savers = append(savers, saver)
		}
	}
	return savers
}

func flushAll(savers []*connectors.AutoSaver) error {
	var errs []error
	for _, saver := range savers {
		if err := saver.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) dropDrafts(id config.ID) {
	s.draftsMu.Lock()
	defer s.draftsMu.Unlock()
	for k, saver := range s.drafts {
		if strings.HasPrefix(k, string(id)+"/") {
			saver.Cancel()
			delete(s.drafts, k)
		}
	}
}

func (s *Service) dropDraft(id, connectorID config.ID) {
	s.draftsMu.Lock()
	defer s.draftsMu.Unlock()
	k := draftKey(id, connectorID)
	if saver, ok := s.drafts[k]; ok {
		saver.Cancel()
		delete(s.drafts, k)
	}
}

func setState(p *Pipeline, c connectors.Connector) {
	p.Connectors[c.ID] = c
	if node, ok := p.node(c.ID); ok {
		node.State = string(c.State)
		p.Graph = graphs.Replace(p.Graph, node, node.ID)
	}
}

// StartConnector marks the connector running. It needs a topic to run.
func (s *Service) StartConnector(id, connectorID config.ID) (Pipeline, error) {
	return s.update(id, func(p *Pipeline) ([]events.Event, error) {
		c, err := p.connector(connectorID)
		if err != nil {
			return nil, err
		}
		if _, ok := c.Topic(); !ok {
			return nil, fmt.Errorf("%w: %q", ErrNoTopic, connectorID)
		}
		c.State = connectors.StateRunning
		setState(p, c)
		return []events.Event{s.connectorState(p.ID, c), s.graphUpdated(p, c.ID)}, nil
	})
}

// StopConnector clears the connector state.
func (s *Service) StopConnector(id, connectorID config.ID) (Pipeline, error) {
	return s.update(id, func(p *Pipeline) ([]events.Event, error) {
		c, err := p.connector(connectorID)
		if err != nil {
			return nil, err
		}
		c.State = ""
		setState(p, c)
		return []events.Event{s.connectorState(p.ID, c), s.graphUpdated(p, c.ID)}, nil
	})
}
