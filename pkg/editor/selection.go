package editor

import (
	"fmt"

	"github.com/dshills/llmflow/pkg/graph"
	"github.com/dshills/llmflow/pkg/workflow"
)

// Point is a canvas coordinate, used as a menu anchor
type Point struct {
	X float64
	Y float64
}

// SelectionKind distinguishes what is selected
type SelectionKind int

const (
	SelectionNone SelectionKind = iota
	SelectionNode
	SelectionEdge
)

func (k SelectionKind) String() string {
	switch k {
	case SelectionNode:
		return "node"
	case SelectionEdge:
		return "edge"
	default:
		return "none"
	}
}

// Selection is the current selection. At most one node or one edge is
// selected. Anchor is only meaningful for edges.
type Selection struct {
	Kind   SelectionKind
	ID     string
	Anchor Point
}

// IsNode reports whether the node with id is selected
func (s Selection) IsNode(id string) bool {
	return s.Kind == SelectionNode && s.ID == id
}

// IsEdge reports whether the edge with id is selected
func (s Selection) IsEdge(id string) bool {
	return s.Kind == SelectionEdge && s.ID == id
}

// SelectionListener is called after the selection changes
type SelectionListener func(prev, next Selection)

type selectionListener struct {
	id int
	fn SelectionListener
}

// SelectionController tracks the selected node or edge. It watches the
// store and clears a selection whose item disappears.
type SelectionController struct {
	store     *graph.Store
	current   Selection
	listeners []selectionListener
	nextID    int
}

// NewSelectionController creates a controller bound to store
func NewSelectionController(store *graph.Store) *SelectionController {
	c := &SelectionController{store: store}
	store.Subscribe(c)
	return c
}

// Current returns the selection
func (c *SelectionController) Current() Selection {
	return c.current
}

// OnChange registers fn and returns a function that removes it
func (c *SelectionController) OnChange(fn SelectionListener) (remove func()) {
	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, selectionListener{id: id, fn: fn})
	return func() {
		for i, l := range c.listeners {
			if l.id == id {
				c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

func (c *SelectionController) set(next Selection) {
	prev := c.current
	if prev == next {
		return
	}
	c.current = next

	listeners := make([]selectionListener, len(c.listeners))
	copy(listeners, c.listeners)
	for _, l := range listeners {
		l.fn(prev, next)
	}
}

// SelectNode selects a node, clearing any edge selection
func (c *SelectionController) SelectNode(id string) error {
	if _, ok := c.store.Node(id); !ok {
		return fmt.Errorf("select node %s: %w", id, workflow.ErrNotFound)
	}
	c.set(Selection{Kind: SelectionNode, ID: id})
	return nil
}

// SelectEdge selects an edge. at is where the menu should open; it is not
// stored in the workflow.
func (c *SelectionController) SelectEdge(id string, at Point) error {
	if _, ok := c.store.Edge(id); !ok {
		return fmt.Errorf("select edge %s: %w", id, workflow.ErrNotFound)
	}
	c.set(Selection{Kind: SelectionEdge, ID: id, Anchor: at})
	return nil
}

// Clear deselects everything
func (c *SelectionController) Clear() {
	c.set(Selection{})
}

// DeleteSelected removes the selected node (with its edges) or edge and
// clears the selection. It does nothing while focus is in a text input,
// and reports whether anything was removed.
func (c *SelectionController) DeleteSelected(inTextInput bool) bool {
	if inTextInput {
		return false
	}

	sel := c.current
	var removed bool
	switch sel.Kind {
	case SelectionNode:
		removed = c.store.RemoveNode(sel.ID)
	case SelectionEdge:
		removed = c.store.Disconnect(sel.ID)
	default:
		return false
	}
	c.Clear()
	return removed
}

// OnGraphEvent drops the selection when its item is gone
func (c *SelectionController) OnGraphEvent(e graph.Event) {
	sel := c.current
	switch sel.Kind {
	case SelectionNode:
		if _, ok := c.store.Node(sel.ID); !ok {
			c.Clear()
		}
	case SelectionEdge:
		if _, ok := c.store.Edge(sel.ID); !ok {
			c.Clear()
		}
	}
}
