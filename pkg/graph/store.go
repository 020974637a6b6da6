// Package graph owns the canonical workflow graph. All mutations go through
// Store, which keeps node and edge ids unique, cascades node removal to
// edges, and notifies observers after every completed operation.
//
// A Store is not safe for concurrent use; callers funnel mutations through
// a single goroutine.
package graph

import (
	"fmt"

	"github.com/dshills/llmflow/pkg/registry"
	"github.com/dshills/llmflow/pkg/workflow"
	"go.uber.org/zap"
)

// maxIDAttempts bounds retries when a generator returns an id in use
const maxIDAttempts = 16

// edgeIDPrefix is passed to the IDGenerator for edges
const edgeIDPrefix = "edge"

// IDGenerator returns a candidate id for a new node or edge. The prefix is
// the node kind or "edge".
type IDGenerator func(prefix string) string

// DefaultIDGenerator produces uuid based ids such as "llmNode-<uuid>"
func DefaultIDGenerator(prefix string) string {
	if prefix == edgeIDPrefix {
		return workflow.NewEdgeID().String()
	}
	return workflow.NewNodeID(workflow.NodeKind(prefix)).String()
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the store logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger.Named("graph")
		}
	}
}

// WithRegistry sets the registry consulted for default node data
func WithRegistry(r *registry.Registry) Option {
	return func(s *Store) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithIDGenerator replaces the id generator, mainly for deterministic tests
func WithIDGenerator(gen IDGenerator) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithObserver subscribes an observer at construction time
func WithObserver(obs Observer) Option {
	return func(s *Store) {
		s.Subscribe(obs)
	}
}

type subscription struct {
	id  int
	obs Observer
}

// Store is the single owner of the mutable workflow
type Store struct {
	wf        *workflow.Workflow
	registry  *registry.Registry
	newID     IDGenerator
	logger    *zap.Logger
	observers []subscription
	nextSubID int
}

// New creates a store holding a copy of wf, or an empty workflow if wf is nil
func New(wf *workflow.Workflow, opts ...Option) *Store {
	s := &Store{
		registry: registry.Default(),
		newID:    DefaultIDGenerator,
		logger:   zap.NewNop(),
	}
	if wf == nil {
		s.wf = workflow.NewWorkflow("", "")
	} else {
		s.wf = wf.Clone()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers obs and returns a function that removes it
func (s *Store) Subscribe(obs Observer) (unsubscribe func()) {
	if obs == nil {
		return func() {}
	}
	s.nextSubID++
	id := s.nextSubID
	s.observers = append(s.observers, subscription{id: id, obs: obs})

	return func() {
		for i, sub := range s.observers {
			if sub.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notify(e Event) {
	e.NodeCount = len(s.wf.Nodes)
	e.EdgeCount = len(s.wf.Edges)

	// observers may unsubscribe while being notified
	subs := make([]subscription, len(s.observers))
	copy(subs, s.observers)
	for _, sub := range subs {
		sub.obs.OnGraphEvent(e)
	}
}

func (s *Store) uniqueID(prefix string, taken func(string) bool) string {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := s.newID(prefix)
		if id != "" && !taken(id) {
			return id
		}
		s.logger.Debug("id collision, retrying", zap.String("id", id), zap.Int("attempt", attempt+1))
	}
	for {
		id := DefaultIDGenerator(prefix)
		if !taken(id) {
			return id
		}
	}
}

// AddNode adds a node of the given kind at position and returns its id.
// A nil data takes the registry default for kind. The store keeps its own
// copy of data.
func (s *Store) AddNode(kind workflow.NodeKind, data workflow.NodeData, position workflow.Position) (string, error) {
	if data == nil {
		d, err := s.registry.DefaultData(kind)
		if err != nil {
			return "", err
		}
		data = d
	} else {
		if data.Kind() != kind {
			return "", fmt.Errorf("add node: %s data for %s node", data.Kind(), kind)
		}
		data = data.Clone()
	}

	id := s.uniqueID(string(kind), s.wf.HasNode)
	node := workflow.Node{ID: id, Type: kind, Position: position, Data: data}
	if err := s.wf.AddNode(node); err != nil {
		return "", fmt.Errorf("add node: %w", err)
	}

	s.notify(Event{Kind: EventNodeAdded, NodeID: id})
	return id, nil
}

// UpdateNode shallow-merges patch into the node's data. Unknown keys are
// ignored. A value that does not fit its field returns ErrInvalidPatch and
// leaves the node unchanged.
func (s *Store) UpdateNode(id string, patch workflow.DataPatch) error {
	idx := s.wf.NodeIndex(id)
	if idx < 0 {
		return fmt.Errorf("update node %s: %w", id, workflow.ErrNotFound)
	}

	updated, err := workflow.ApplyPatch(s.wf.Nodes[idx].Data, patch)
	if err != nil {
		return fmt.Errorf("update node %s: %w", id, err)
	}
	s.wf.Nodes[idx].Data = updated

	s.notify(Event{Kind: EventNodeUpdated, NodeID: id})
	return nil
}

// ReplaceNodeData swaps the node's whole payload for a copy of data
func (s *Store) ReplaceNodeData(id string, data workflow.NodeData) error {
	idx := s.wf.NodeIndex(id)
	if idx < 0 {
		return fmt.Errorf("replace node data %s: %w", id, workflow.ErrNotFound)
	}
	if data == nil || data.Kind() != s.wf.Nodes[idx].Type {
		return fmt.Errorf("replace node data %s: %w: payload does not match %s", id, workflow.ErrInvalidPatch, s.wf.Nodes[idx].Type)
	}
	s.wf.Nodes[idx].Data = data.Clone()

	s.notify(Event{Kind: EventNodeUpdated, NodeID: id})
	return nil
}

// MoveNode sets the node's canvas position
func (s *Store) MoveNode(id string, position workflow.Position) error {
	idx := s.wf.NodeIndex(id)
	if idx < 0 {
		return fmt.Errorf("move node %s: %w", id, workflow.ErrNotFound)
	}
	s.wf.Nodes[idx].Position = position

	s.notify(Event{Kind: EventNodeMoved, NodeID: id})
	return nil
}

// RemoveNode removes the node and every edge touching it as one operation.
// Removing an absent node does nothing and reports false.
func (s *Store) RemoveNode(id string) bool {
	removed, ok := s.wf.RemoveNode(id)
	if !ok {
		return false
	}

	s.logger.Debug("node removed", zap.String("node_id", id), zap.Int("cascaded_edges", len(removed)))
	s.notify(Event{Kind: EventNodeRemoved, NodeID: id, RemovedEdges: removed})
	return true
}

// Connect adds a directed edge from source to target and returns its id.
// Either endpoint missing returns ErrNotFound and leaves the graph as is.
// Self-loops and parallel edges are allowed.
func (s *Store) Connect(source, target string) (string, error) {
	if !s.wf.HasNode(source) {
		return "", fmt.Errorf("connect: source node %s: %w", source, workflow.ErrNotFound)
	}
	if !s.wf.HasNode(target) {
		return "", fmt.Errorf("connect: target node %s: %w", target, workflow.ErrNotFound)
	}

	id := s.uniqueID(edgeIDPrefix, s.wf.HasEdge)
	if err := s.wf.AddEdge(workflow.NewEdge(id, source, target)); err != nil {
		return "", fmt.Errorf("connect: %w", err)
	}

	s.notify(Event{Kind: EventEdgeAdded, EdgeID: id})
	return id, nil
}

// Disconnect removes the edge if present and reports whether it was
func (s *Store) Disconnect(edgeID string) bool {
	if !s.wf.RemoveEdge(edgeID) {
		return false
	}
	s.notify(Event{Kind: EventEdgeRemoved, EdgeID: edgeID})
	return true
}

// SetEdgePresentation merges the set fields of p into the edge. It does
// nothing if the edge is absent or p is empty.
func (s *Store) SetEdgePresentation(edgeID string, p workflow.Presentation) bool {
	idx := s.wf.EdgeIndex(edgeID)
	if idx < 0 || p.IsEmpty() {
		return false
	}
	p.Apply(&s.wf.Edges[idx])

	s.notify(Event{Kind: EventEdgeUpdated, EdgeID: edgeID})
	return true
}

// SetMetadata sets the workflow name and description. A blank name becomes
// "Untitled".
func (s *Store) SetMetadata(name, description string) {
	fresh := workflow.NewWorkflow(name, description)
	s.wf.Name = fresh.Name
	s.wf.Description = fresh.Description

	s.notify(Event{Kind: EventMetadataChanged})
}

// Replace swaps the entire workflow for a copy of wf. A workflow that
// breaks id uniqueness or edge endpoints is rejected and the current one
// kept.
func (s *Store) Replace(wf *workflow.Workflow) error {
	if wf == nil {
		return fmt.Errorf("replace: nil workflow")
	}
	if problems := wf.CheckIntegrity(); len(problems) > 0 {
		return &workflow.MalformedWorkflowError{Reason: "integrity violation", Problems: problems}
	}

	next := wf.Clone()
	if next.Name == "" {
		next.Name = workflow.DefaultWorkflowName
	}
	s.wf = next

	s.logger.Debug("workflow replaced",
		zap.String("name", next.Name),
		zap.Int("nodes", len(next.Nodes)),
		zap.Int("edges", len(next.Edges)))
	s.notify(Event{Kind: EventWorkflowReplaced})
	return nil
}

// Snapshot returns a deep copy of the current workflow
func (s *Store) Snapshot() *workflow.Workflow {
	return s.wf.Clone()
}

// Node returns a copy of the node with the given id
func (s *Store) Node(id string) (workflow.Node, bool) {
	idx := s.wf.NodeIndex(id)
	if idx < 0 {
		return workflow.Node{}, false
	}
	return s.wf.Nodes[idx].Clone(), true
}

// Edge returns a copy of the edge with the given id
func (s *Store) Edge(id string) (workflow.Edge, bool) {
	idx := s.wf.EdgeIndex(id)
	if idx < 0 {
		return workflow.Edge{}, false
	}
	return s.wf.Edges[idx], true
}

// NodeIDs returns node ids in insertion order
func (s *Store) NodeIDs() []string {
	ids := make([]string, len(s.wf.Nodes))
	for i, n := range s.wf.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// EdgeIDs returns edge ids in insertion order
func (s *Store) EdgeIDs() []string {
	ids := make([]string, len(s.wf.Edges))
	for i, e := range s.wf.Edges {
		ids[i] = e.ID
	}
	return ids
}

// Name returns the workflow name
func (s *Store) Name() string {
	return s.wf.Name
}

// Registry returns the node type registry used for defaults
func (s *Store) Registry() *registry.Registry {
	return s.registry
}
