package editor

import (
	"fmt"

	"github.com/dshills/llmflow/pkg/graph"
	"github.com/dshills/llmflow/pkg/workflow"
)

// EdgeMenuState is the state of the edge label/style menu
type EdgeMenuState int

const (
	EdgeMenuClosed EdgeMenuState = iota
	EdgeMenuViewing
	EdgeMenuEditingLabel
)

func (s EdgeMenuState) String() string {
	switch s {
	case EdgeMenuViewing:
		return "viewing"
	case EdgeMenuEditingLabel:
		return "editing"
	default:
		return "closed"
	}
}

// EdgeEditor edits the label and style of the selected edge. It opens when
// an edge is selected and closes, discarding any pending label, when the
// selection moves elsewhere.
type EdgeEditor struct {
	store  *graph.Store
	state  EdgeMenuState
	edgeID string
	anchor Point
	buffer []rune
}

// NewEdgeEditor creates an editor that follows sel
func NewEdgeEditor(store *graph.Store, sel *SelectionController) *EdgeEditor {
	e := &EdgeEditor{store: store}
	sel.OnChange(e.selectionChanged)
	return e
}

func (e *EdgeEditor) selectionChanged(_, next Selection) {
	e.buffer = nil
	if next.Kind != SelectionEdge {
		e.state = EdgeMenuClosed
		e.edgeID = ""
		e.anchor = Point{}
		return
	}
	e.state = EdgeMenuViewing
	e.edgeID = next.ID
	e.anchor = next.Anchor
}

// State returns the menu state
func (e *EdgeEditor) State() EdgeMenuState { return e.state }

// EdgeID returns the edge the menu is open for, or ""
func (e *EdgeEditor) EdgeID() string { return e.edgeID }

// Anchor returns where the menu was opened
func (e *EdgeEditor) Anchor() Point { return e.anchor }

// Buffer returns the uncommitted label text
func (e *EdgeEditor) Buffer() string { return string(e.buffer) }

func (e *EdgeEditor) edge() (workflow.Edge, error) {
	if e.state == EdgeMenuClosed {
		return workflow.Edge{}, ErrNoSelection
	}
	edge, ok := e.store.Edge(e.edgeID)
	if !ok {
		return workflow.Edge{}, fmt.Errorf("edge %s: %w", e.edgeID, workflow.ErrNotFound)
	}
	return edge, nil
}

// BeginLabelEdit switches to label editing with the current label in the
// buffer
func (e *EdgeEditor) BeginLabelEdit() error {
	edge, err := e.edge()
	if err != nil {
		return err
	}
	if e.state == EdgeMenuEditingLabel {
		return nil
	}
	e.buffer = []rune(edge.Data.Label)
	e.state = EdgeMenuEditingLabel
	return nil
}

// SetBuffer replaces the pending label
func (e *EdgeEditor) SetBuffer(text string) error {
	if e.state != EdgeMenuEditingLabel {
		return fmt.Errorf("set label: not editing")
	}
	e.buffer = []rune(text)
	return nil
}

// InsertRune appends r to the pending label
func (e *EdgeEditor) InsertRune(r rune) {
	if e.state == EdgeMenuEditingLabel {
		e.buffer = append(e.buffer, r)
	}
}

// Backspace drops the last rune of the pending label
func (e *EdgeEditor) Backspace() {
	if e.state == EdgeMenuEditingLabel && len(e.buffer) > 0 {
		e.buffer = e.buffer[:len(e.buffer)-1]
	}
}

// Commit writes the pending label to the edge and returns to viewing
func (e *EdgeEditor) Commit() error {
	if e.state != EdgeMenuEditingLabel {
		return fmt.Errorf("commit label: not editing")
	}
	if _, err := e.edge(); err != nil {
		return err
	}
	label := string(e.buffer)
	e.store.SetEdgePresentation(e.edgeID, workflow.WithLabel(label))
	e.buffer = nil
	e.state = EdgeMenuViewing
	return nil
}

// Cancel discards the pending label and returns to viewing
func (e *EdgeEditor) Cancel() {
	if e.state == EdgeMenuEditingLabel {
		e.buffer = nil
		e.state = EdgeMenuViewing
	}
}

// ToggleDashed flips the dashed style immediately
func (e *EdgeEditor) ToggleDashed() error {
	edge, err := e.edge()
	if err != nil {
		return err
	}
	e.store.SetEdgePresentation(e.edgeID, workflow.WithDashed(!edge.Data.Dashed))
	return nil
}

// ToggleAnimated flips the animated flag immediately
func (e *EdgeEditor) ToggleAnimated() error {
	edge, err := e.edge()
	if err != nil {
		return err
	}
	e.store.SetEdgePresentation(e.edgeID, workflow.WithAnimated(!edge.Animated))
	return nil
}
