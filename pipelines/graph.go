package pipelines

import (
	"fmt"
	"slices"

	"github.com/alan791205/ohara/api/v1/events"
	"github.com/alan791205/ohara/config"
	"github.com/alan791205/ohara/connectors"
	"github.com/alan791205/ohara/graphs"
	"github.com/google/uuid"
)

// AddNode appends a node of the given kind. Connector kinds also get a blank
// connector record.
func (s *Service) AddNode(id config.ID, kind, name string) (Pipeline, graphs.GraphNode, error) {
	nodeType, ok := graphs.TypeOf(kind)
	if !ok {
		return Pipeline{}, graphs.GraphNode{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	node := graphs.GraphNode{
		ID:   config.ID(uuid.New().String()),
		Type: nodeType,
		Name: name,
		Kind: kind,
		To:   graphs.Unset,
	}
	p, err := s.update(id, func(p *Pipeline) ([]events.Event, error) {
		if p.Running {
			return nil, fmt.Errorf("%w: %q", ErrPipelineRunning, p.ID)
		}
		graph, err := graphs.Add(p.Graph, node)
		if err != nil {
			return nil, err
		}
		p.Graph = graph
		if nodeType == graphs.NodeTypeSource || nodeType == graphs.NodeTypeSink {
			c := connectors.New(node.ID, kind)
			c.Name = name
			p.Connectors[node.ID] = c
		}
		return []events.Event{s.graphUpdated(p, node.ID)}, nil
	})
	return p, node, err
}

// RemoveNode drops a node, its connector record and every reference to it.
func (s *Service) RemoveNode(id, nodeID config.ID) (Pipeline, error) {
	defer s.dropDraft(id, nodeID)
	return s.update(id, func(p *Pipeline) ([]events.Event, error) {
		if p.Running {
			return nil, fmt.Errorf("%w: %q", ErrPipelineRunning, p.ID)
		}
		graph, err := graphs.Remove(p.Graph, nodeID)
		if err != nil {
			return nil, err
		}
		p.Graph = graph
		delete(p.Connectors, nodeID)
		for cid, c := range p.Connectors {
			if slices.Contains(c.Topics, nodeID) {
				c.Topics = slices.DeleteFunc(slices.Clone(c.Topics), func(t config.ID) bool { return t == nodeID })
				p.Connectors[cid] = c
			}
		}
		return []events.Event{s.graphUpdated(p, nodeID)}, nil
	})
}

func (s *Service) Activate(id, nodeID config.ID) (Pipeline, error) {
	return s.update(id, func(p *Pipeline) ([]events.Event, error) {
		if _, ok := p.node(nodeID); !ok {
			return nil, fmt.Errorf("%w: %q", graphs.ErrNodeNotFound, nodeID)
		}
		p.Graph = graphs.Activate(p.Graph, nodeID)
		return nil, nil
	})
}

// SelectTopic links connectorID and topicID on the graph and records the
// topic on the connector. An empty topicID leaves the graph unchanged.
func (s *Service) SelectTopic(id, connectorID, topicID config.ID, role graphs.Role) (Pipeline, error) {
	return s.update(id, func(p *Pipeline) ([]events.Event, error) {
		if p.Running {
			return nil, fmt.Errorf("%w: %q", ErrPipelineRunning, p.ID)
		}
		c, err := p.connector(connectorID)
		if err != nil {
			return nil, err
		}
		if topicID == "" {
			return nil, nil
		}
		topic, ok := p.node(topicID)
		if !ok {
			return nil, fmt.Errorf("%w: topic %q", graphs.ErrDanglingReference, topicID)
		}
		if topic.Type != graphs.NodeTypeTopic {
			return nil, fmt.Errorf("%w: %q", ErrNotTopic, topicID)
		}
		graph, err := graphs.UpdateTopic(p.Graph, connectorID, &topic, role)
		if err != nil {
			return nil, err
		}
		p.Graph = graph
		c.Topics = []config.ID{topicID}
		p.Connectors[connectorID] = c
		return []events.Event{s.graphUpdated(p, connectorID)}, nil
	})
}
