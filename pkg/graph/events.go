package graph

// EventKind identifies the mutation an Event reports
type EventKind string

const (
	EventNodeAdded        EventKind = "node_added"
	EventNodeUpdated      EventKind = "node_updated"
	EventNodeMoved        EventKind = "node_moved"
	EventNodeRemoved      EventKind = "node_removed"
	EventEdgeAdded        EventKind = "edge_added"
	EventEdgeUpdated      EventKind = "edge_updated"
	EventEdgeRemoved      EventKind = "edge_removed"
	EventMetadataChanged  EventKind = "metadata_changed"
	EventWorkflowReplaced EventKind = "workflow_replaced"
)

// Event describes one completed store operation. NodeCount and EdgeCount
// are the graph size after the operation.
type Event struct {
	Kind   EventKind
	NodeID string
	EdgeID string

	// RemovedEdges lists the edges dropped together with a node
	RemovedEdges []string

	NodeCount int
	EdgeCount int
}

// Observer receives store events. Events are delivered synchronously,
// after the mutation is complete, in subscription order.
type Observer interface {
	OnGraphEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface
type ObserverFunc func(Event)

// OnGraphEvent calls f(e)
func (f ObserverFunc) OnGraphEvent(e Event) {
	f(e)
}

// Observers fans one event out to several observers in order
type Observers []Observer

// OnGraphEvent delivers e to every observer
func (o Observers) OnGraphEvent(e Event) {
	for _, obs := range o {
		obs.OnGraphEvent(e)
	}
}
