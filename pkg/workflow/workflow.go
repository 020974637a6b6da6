package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// Workflow is the named, described graph of nodes and edges. It is the
// unit of persistence.
type Workflow struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Nodes       []Node `json:"nodes"`
	Edges       []Edge `json:"edges"`
}

// NewWorkflow creates an empty workflow. An empty name becomes "Untitled".
func NewWorkflow(name, description string) *Workflow {
	if strings.TrimSpace(name) == "" {
		name = DefaultWorkflowName
	}
	return &Workflow{
		Name:        name,
		Description: description,
		Nodes:       make([]Node, 0),
		Edges:       make([]Edge, 0),
	}
}

// Clone returns a deep copy of the workflow
func (w *Workflow) Clone() *Workflow {
	c := &Workflow{
		Name:        w.Name,
		Description: w.Description,
		Nodes:       make([]Node, len(w.Nodes)),
		Edges:       make([]Edge, len(w.Edges)),
	}
	for i, n := range w.Nodes {
		c.Nodes[i] = n.Clone()
	}
	copy(c.Edges, w.Edges)
	return c
}

// NodeIndex returns the index of the node with the given ID, or -1
func (w *Workflow) NodeIndex(id string) int {
	for i := range w.Nodes {
		if w.Nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// EdgeIndex returns the index of the edge with the given ID, or -1
func (w *Workflow) EdgeIndex(id string) int {
	for i := range w.Edges {
		if w.Edges[i].ID == id {
			return i
		}
	}
	return -1
}

// HasNode reports whether a node with the given ID exists
func (w *Workflow) HasNode(id string) bool {
	return w.NodeIndex(id) >= 0
}

// HasEdge reports whether an edge with the given ID exists
func (w *Workflow) HasEdge(id string) bool {
	return w.EdgeIndex(id) >= 0
}

// AddNode appends a node. Integrity (unique IDs) is the caller's
// responsibility; see CheckIntegrity.
func (w *Workflow) AddNode(node Node) error {
	if node.ID == "" {
		return errors.New("cannot add node with empty ID")
	}
	if node.Data == nil {
		return fmt.Errorf("node %s: missing data", node.ID)
	}
	if node.Data.Kind() != node.Type {
		return fmt.Errorf("node %s: %s data on %s node", node.ID, node.Data.Kind(), node.Type)
	}
	w.Nodes = append(w.Nodes, node)
	return nil
}

// RemoveNode removes a node and every edge connected to it. It returns the
// IDs of the removed edges, and false if the node was not present.
func (w *Workflow) RemoveNode(nodeID string) ([]string, bool) {
	idx := w.NodeIndex(nodeID)
	if idx < 0 {
		return nil, false
	}
	w.Nodes = append(w.Nodes[:idx:idx], w.Nodes[idx+1:]...)

	var removed []string
	kept := make([]Edge, 0, len(w.Edges))
	for _, edge := range w.Edges {
		if edge.Touches(nodeID) {
			removed = append(removed, edge.ID)
			continue
		}
		kept = append(kept, edge)
	}
	w.Edges = kept
	return removed, true
}

// AddEdge appends an edge after checking both endpoints exist. Parallel
// edges and self-loops are allowed.
func (w *Workflow) AddEdge(edge Edge) error {
	if edge.ID == "" {
		return errors.New("cannot add edge with empty ID")
	}
	if !w.HasNode(edge.Source) {
		return fmt.Errorf("source node %s: %w", edge.Source, ErrNotFound)
	}
	if !w.HasNode(edge.Target) {
		return fmt.Errorf("target node %s: %w", edge.Target, ErrNotFound)
	}
	w.Edges = append(w.Edges, edge)
	return nil
}

// RemoveEdge removes an edge, reporting whether it was present
func (w *Workflow) RemoveEdge(edgeID string) bool {
	idx := w.EdgeIndex(edgeID)
	if idx < 0 {
		return false
	}
	w.Edges = append(w.Edges[:idx:idx], w.Edges[idx+1:]...)
	return true
}

// CheckIntegrity verifies the structural invariants: unique node IDs,
// unique edge IDs, payloads matching node kinds, and edges whose endpoints
// exist. It returns every violation found.
func (w *Workflow) CheckIntegrity() []string {
	var problems []string

	nodeIDs := make(map[string]bool, len(w.Nodes))
	for i, node := range w.Nodes {
		if node.ID == "" {
			problems = append(problems, fmt.Sprintf("nodes[%d]: empty node ID", i))
			continue
		}
		if nodeIDs[node.ID] {
			problems = append(problems, fmt.Sprintf("duplicate node ID: %s", node.ID))
		}
		nodeIDs[node.ID] = true
		if node.Data == nil || node.Data.Kind() != node.Type {
			problems = append(problems, fmt.Sprintf("node %s: data does not match type %s", node.ID, node.Type))
		}
	}

	edgeIDs := make(map[string]bool, len(w.Edges))
	for i, edge := range w.Edges {
		if edge.ID == "" {
			problems = append(problems, fmt.Sprintf("edges[%d]: empty edge ID", i))
		} else if edgeIDs[edge.ID] {
			problems = append(problems, fmt.Sprintf("duplicate edge ID: %s", edge.ID))
		}
		edgeIDs[edge.ID] = true
		if !nodeIDs[edge.Source] {
			problems = append(problems, fmt.Sprintf("edge %s references missing source node: %s", edge.ID, edge.Source))
		}
		if !nodeIDs[edge.Target] {
			problems = append(problems, fmt.Sprintf("edge %s references missing target node: %s", edge.ID, edge.Target))
		}
	}

	return problems
}
