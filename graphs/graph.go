package graphs

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/alan791205/ohara/config"
)

// Unset is the edge target of a node that is not linked downstream yet.
const Unset config.ID = "?"

type NodeType string

const (
	NodeTypeSource NodeType = "source"
	NodeTypeSink   NodeType = "sink"
	NodeTypeTopic  NodeType = "topic"
	NodeTypeStream NodeType = "stream"
)

// Kind tags used by the console for nodes that are not connectors.
const (
	KindTopic  = "topic"
	KindStream = "streamApp"
)

type Role string

const (
	RoleSource Role = "source"
	RoleSink   Role = "sink"
)

type GraphNode struct {
	ID       config.ID `json:"id"`
	Type     NodeType  `json:"type"`
	Name     string    `json:"name,omitempty"`
	Kind     string    `json:"kind,omitempty"`
	To       config.ID `json:"to"`
	IsActive bool      `json:"isActive"`
	Icon     string    `json:"icon,omitempty"`
	State    string    `json:"state,omitempty"`
}

// Graph is the ordered list of nodes drawn on a pipeline page.
type Graph []GraphNode

// Update is a single node replacement, keyed by the id of the node it replaces.
type Update struct {
	Node     GraphNode
	TargetID config.ID
}

func IsSource(kind string) bool { return strings.Contains(kind, "Source") }

func IsSink(kind string) bool { return strings.Contains(kind, "Sink") }

func IsTopic(kind string) bool { return kind == KindTopic }

func IsStream(kind string) bool { return kind == KindStream }

// TypeOf classifies a connector class name or kind tag.
func TypeOf(kind string) (NodeType, bool) {
	switch {
	case IsTopic(kind):
		return NodeTypeTopic, true
	case IsStream(kind):
		return NodeTypeStream, true
	case IsSource(kind):
		return NodeTypeSource, true
	case IsSink(kind):
		return NodeTypeSink, true
	}
	return "", false
}

func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeSource, NodeTypeSink, NodeTypeTopic, NodeTypeStream:
		return true
	}
	return false
}

// FindByGraphID returns the first node with the given id.
func FindByGraphID(g Graph, id config.ID) (GraphNode, bool) {
	i := slices.IndexFunc(g, func(n GraphNode) bool { return n.ID == id })
	if i < 0 {
		return GraphNode{}, false
	}
	return g[i], true
}

// LinkTopic computes the edge change caused by selecting topic for the
// connector connectorID. A source connector points at the topic; for any
// other role the topic points at the connector. A nil topic or a topic
// without an id yields a nil update.
func LinkTopic(g Graph, connectorID config.ID, topic *GraphNode, role Role) (*Update, error) {
	if topic == nil || topic.ID == "" {
		return nil, nil
	}

	if role == RoleSource {
		connector, ok := FindByGraphID(g, connectorID)
		if !ok {
			return nil, fmt.Errorf("%w: connector %q", ErrDanglingReference, connectorID)
		}
		if _, ok := FindByGraphID(g, topic.ID); !ok {
			return nil, fmt.Errorf("%w: topic %q", ErrDanglingReference, topic.ID)
		}
		connector.To = topic.ID
		return &Update{Node: connector, TargetID: connector.ID}, nil
	}

	current, ok := FindByGraphID(g, topic.ID)
	if !ok {
		return nil, fmt.Errorf("%w: topic %q", ErrDanglingReference, topic.ID)
	}
	if _, ok := FindByGraphID(g, connectorID); !ok {
		return nil, fmt.Errorf("%w: connector %q", ErrDanglingReference, connectorID)
	}
	current.To = connectorID
	return &Update{Node: current, TargetID: current.ID}, nil
}

// UpdateTopic applies LinkTopic and returns the resulting graph. The input
// graph is never modified.
func UpdateTopic(g Graph, connectorID config.ID, topic *GraphNode, role Role) (Graph, error) {
	update, err := LinkTopic(g, connectorID, topic, role)
	if err != nil {
		return g, err
	}
	if update == nil {
		return g, nil
	}
	return Replace(g, update.Node, update.TargetID), nil
}

// Replace returns a copy of g with the node targetID swapped for node.
func Replace(g Graph, node GraphNode, targetID config.ID) Graph {
	out := make(Graph, len(g))
	for i, n := range g {
		if n.ID == targetID {
			out[i] = node
			continue
		}
		out[i] = n
	}
	return out
}

// Activate returns a copy of g where only the node id is active.
func Activate(g Graph, id config.ID) Graph {
	out := make(Graph, len(g))
	for i, n := range g {
		n.IsActive = n.ID == id
		out[i] = n
	}
	return out
}

func Add(g Graph, node GraphNode) (Graph, error) {
	if _, ok := FindByGraphID(g, node.ID); ok {
		return g, fmt.Errorf("%w: %q", ErrDuplicateNode, node.ID)
	}
	if node.To == "" {
		node.To = Unset
	}
	out := make(Graph, 0, len(g)+1)
	out = append(out, g...)
	return append(out, node), nil
}

// Remove drops the node id and unlinks every edge that pointed at it.
func Remove(g Graph, id config.ID) (Graph, error) {
	if _, ok := FindByGraphID(g, id); !ok {
		return g, fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}
	out := make(Graph, 0, len(g)-1)
	for _, n := range g {
		if n.ID == id {
			continue
		}
		if n.To == id {
			n.To = Unset
		}
		out = append(out, n)
	}
	return out, nil
}

// Validate reports every duplicate id, invalid type and dangling edge in g.
func Validate(g Graph) error {
	var errs []error
	seen := make(map[config.ID]struct{}, len(g))
	for _, n := range g {
		if n.ID == "" {
			errs = append(errs, ErrInvalidNodeID)
			continue
		}
		if _, ok := seen[n.ID]; ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDuplicateNode, n.ID))
		}
		seen[n.ID] = struct{}{}
		if !n.Type.Valid() {
			errs = append(errs, fmt.Errorf("%w: %q on node %q", ErrInvalidNodeType, n.Type, n.ID))
		}
	}
	for _, n := range g {
		if n.To == Unset || n.To == "" {
			continue
		}
		if _, ok := seen[n.To]; !ok {
			errs = append(errs, fmt.Errorf("%w: %q -> %q", ErrDanglingReference, n.ID, n.To))
		}
	}
	return errors.Join(errs...)
}
