package workflow

import (
	"errors"

	"github.com/google/uuid"
)

// Common workflow errors
var (
	// ErrNotFound is returned when an operation references a node or edge
	// that is not present in the graph
	ErrNotFound = errors.New("not found")

	// ErrMalformedWorkflow is returned when a workflow document cannot be
	// parsed into the expected shape
	ErrMalformedWorkflow = errors.New("malformed workflow")

	// ErrInvalidPatch is returned when a data patch value cannot be applied
	// to the node's data type
	ErrInvalidPatch = errors.New("invalid data patch")
)

// DefaultWorkflowName is used when a document carries no name
const DefaultWorkflowName = "Untitled"

// NodeID is a unique identifier for a node within a workflow
type NodeID string

// String returns the string representation of the NodeID
func (n NodeID) String() string {
	return string(n)
}

// NewNodeID generates a new unique NodeID prefixed with the node kind
func NewNodeID(kind NodeKind) NodeID {
	return NodeID(string(kind) + "-" + uuid.New().String())
}

// EdgeID is a unique identifier for an edge within a workflow
type EdgeID string

// String returns the string representation of the EdgeID
func (e EdgeID) String() string {
	return string(e)
}

// NewEdgeID generates a new unique EdgeID
func NewEdgeID() EdgeID {
	return EdgeID("edge-" + uuid.New().String())
}

// Position is a canvas coordinate. Units are whatever the renderer uses;
// the model only stores and round-trips them.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
