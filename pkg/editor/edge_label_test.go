package editor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEdgeEditor_FollowsSelection(t *testing.T) {
	s, llm, _, edge := newFixture(t)
	sel := NewSelectionController(s)
	ed := NewEdgeEditor(s, sel)

	assert.Equal(t, EdgeMenuClosed, ed.State())

	require.NoError(t, sel.SelectEdge(edge, Point{X: 5, Y: 6}))
	assert.Equal(t, EdgeMenuViewing, ed.State())
	assert.Equal(t, edge, ed.EdgeID())
	assert.Equal(t, Point{X: 5, Y: 6}, ed.Anchor())

	require.NoError(t, sel.SelectNode(llm))
	assert.Equal(t, EdgeMenuClosed, ed.State())
	assert.Empty(t, ed.EdgeID())
}

func TestEdgeEditor_CommitLabel(t *testing.T) {
	s, _, _, edge := newFixture(t)
	sel := NewSelectionController(s)
	ed := NewEdgeEditor(s, sel)
	require.NoError(t, sel.SelectEdge(edge, Point{}))

	require.NoError(t, ed.BeginLabelEdit())
	assert.Equal(t, EdgeMenuEditingLabel, ed.State())
	assert.Empty(t, ed.Buffer())

	for _, r := range "querx" {
		ed.InsertRune(r)
	}
	ed.Backspace()
	ed.InsertRune('y')
	assert.Equal(t, "query", ed.Buffer())

	// nothing is written until commit
	e, _ := s.Edge(edge)
	assert.Empty(t, e.Data.Label)

	require.NoError(t, ed.Commit())
	assert.Equal(t, EdgeMenuViewing, ed.State())
	e, _ = s.Edge(edge)
	assert.Equal(t, "query", e.Data.Label)

	// editing again starts from the stored label
	require.NoError(t, ed.BeginLabelEdit())
	assert.Equal(t, "query", ed.Buffer())
}

func TestEdgeEditor_CancelAndDiscard(t *testing.T) {
	s, llm, _, edge := newFixture(t)
	sel := NewSelectionController(s)
	ed := NewEdgeEditor(s, sel)
	require.NoError(t, sel.SelectEdge(edge, Point{}))

	require.NoError(t, ed.BeginLabelEdit())
	require.NoError(t, ed.SetBuffer("draft"))
	ed.Cancel()
	assert.Equal(t, EdgeMenuViewing, ed.State())
	e, _ := s.Edge(edge)
	assert.Empty(t, e.Data.Label)

	// leaving the selection drops the pending edit
	require.NoError(t, ed.BeginLabelEdit())
	require.NoError(t, ed.SetBuffer("draft"))
	require.NoError(t, sel.SelectNode(llm))
	assert.Equal(t, EdgeMenuClosed, ed.State())
	assert.Empty(t, ed.Buffer())
	e, _ = s.Edge(edge)
	assert.Empty(t, e.Data.Label)
}

func TestEdgeEditor_Toggles(t *testing.T) {
	s, _, _, edge := newFixture(t)
	sel := NewSelectionController(s)
	ed := NewEdgeEditor(s, sel)
	require.NoError(t, sel.SelectEdge(edge, Point{}))

	require.NoError(t, ed.ToggleDashed())
	require.NoError(t, ed.ToggleAnimated())
	e, _ := s.Edge(edge)
	assert.True(t, e.Data.Dashed)
	assert.False(t, e.Animated)

	require.NoError(t, ed.ToggleDashed())
	e, _ = s.Edge(edge)
	assert.False(t, e.Data.Dashed)
}

func TestEdgeEditor_Closed(t *testing.T) {
	s, _, _, _ := newFixture(t)
	ed := NewEdgeEditor(s, NewSelectionController(s))

	assert.True(t, errors.Is(ed.BeginLabelEdit(), ErrNoSelection))
	assert.True(t, errors.Is(ed.ToggleDashed(), ErrNoSelection))
	assert.True(t, errors.Is(ed.ToggleAnimated(), ErrNoSelection))
	assert.Error(t, ed.Commit())
	assert.Error(t, ed.SetBuffer("x"))
}

func TestEdgeEditor_ClosesWhenEdgeRemoved(t *testing.T) {
	s, _, _, edge := newFixture(t)
	sel := NewSelectionController(s)
	ed := NewEdgeEditor(s, sel)
	require.NoError(t, sel.SelectEdge(edge, Point{}))
	require.NoError(t, ed.BeginLabelEdit())

	require.True(t, s.Disconnect(edge))
	assert.Equal(t, EdgeMenuClosed, ed.State())
}
