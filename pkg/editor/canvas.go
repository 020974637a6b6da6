package editor

import "github.com/dshills/llmflow/pkg/workflow"

// Renderer draws the editor. The terminal canvas is one implementation;
// tests use recorders. RenderGraph is called with the editor locked and must
// not call back into it.
type Renderer interface {
	RenderGraph(View) error
}

// RendererFunc adapts a function to Renderer
type RendererFunc func(View) error

// RenderGraph calls f(v)
func (f RendererFunc) RenderGraph(v View) error { return f(v) }

// EdgeMenuView describes the edge menu for rendering
type EdgeMenuView struct {
	State  EdgeMenuState
	EdgeID string
	Anchor Point
	Buffer string
}

// PanelView describes the property panel for rendering
type PanelView struct {
	NodeID   string
	Kind     workflow.NodeKind
	Fields   []Field
	Focus    int
	Warnings []workflow.Issue
}

// View is a read-only snapshot of everything a renderer needs
type View struct {
	Workflow  *workflow.Workflow
	Selection Selection
	EdgeMenu  EdgeMenuView
	Panel     PanelView
	Status    string
	Loading   bool
}

// Gesture is a user action delivered by a canvas adapter
type Gesture interface {
	gesture()
}

// NodeClick selects a node
type NodeClick struct {
	NodeID string
}

// EdgeClick selects an edge and opens its menu at Point
type EdgeClick struct {
	EdgeID string
	Point  Point
}

// BackgroundClick clears the selection
type BackgroundClick struct{}

// NodeDrag moves a node
type NodeDrag struct {
	NodeID string
	To     workflow.Position
}

// ConnectDrag draws an edge between two nodes
type ConnectDrag struct {
	Source string
	Target string
}

// PaletteAdd drops a new node of Kind at At
type PaletteAdd struct {
	Kind workflow.NodeKind
	At   workflow.Position
}

// Keys understood by KeyPress
const (
	KeyDelete    = "Delete"
	KeyBackspace = "Backspace"
	KeyEscape    = "Escape"
)

// KeyPress is a key that reached the canvas. InTextInput is set when a
// text field has focus.
type KeyPress struct {
	Key         string
	InTextInput bool
}

func (NodeClick) gesture()       {}
func (EdgeClick) gesture()       {}
func (BackgroundClick) gesture() {}
func (NodeDrag) gesture()        {}
func (ConnectDrag) gesture()     {}
func (PaletteAdd) gesture()      {}
func (KeyPress) gesture()        {}

// mutates reports whether g can change the workflow
func mutates(g Gesture) bool {
	switch g := g.(type) {
	case NodeDrag, ConnectDrag, PaletteAdd:
		return true
	case KeyPress:
		return (g.Key == KeyDelete || g.Key == KeyBackspace) && !g.InTextInput
	}
	return false
}
