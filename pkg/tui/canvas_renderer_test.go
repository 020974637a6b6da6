package tui

import (
	"fmt"
	"testing"

	"github.com/dshills/llmflow/pkg/editor"
	"github.com/dshills/llmflow/pkg/graph"
	"github.com/dshills/llmflow/pkg/models"
	"github.com/dshills/llmflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() graph.IDGenerator {
	n := 0
	return func(prefix string) string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// newTestStore holds llmNode-1 at cell (25,4) connected to toolNode-2 at
// cell (25,12) by edge-3
func newTestStore(t *testing.T) *graph.Store {
	t.Helper()
	s := graph.New(nil, graph.WithIDGenerator(sequentialIDs()))

	llm, err := s.AddNode(workflow.KindLanguageModel, &workflow.LanguageModelData{
		Label: "GPT-4", Model: "gpt-4", Temperature: 0.7, MaxTokens: 2048,
		SystemPrompt: "You are a helpful assistant.",
	}, workflow.Position{X: 250, Y: 100})
	require.NoError(t, err)

	tool, err := s.AddNode(workflow.KindTool, &workflow.ToolData{
		Label: "Web Search", ToolType: workflow.ToolSearch,
		Parameters: []workflow.Parameter{{Name: "query", Type: workflow.ParamString, Required: true}},
	}, workflow.Position{X: 250, Y: 300})
	require.NoError(t, err)

	_, err = s.Connect(llm, tool)
	require.NoError(t, err)
	return s
}

var testProviders = []models.Provider{{ProviderName: "openai", Model: "gpt-4"}}

func newRenderedEditor(t *testing.T) (*editor.Editor, *CanvasRenderer, *fakeScreen) {
	t.Helper()
	screen := newFakeScreen(100, 30)
	r := NewCanvasRenderer(screen, NewViewport(0, 0), nil)
	ed := editor.New(newTestStore(t), r, editor.WithProviders(testProviders))
	ed.Render()
	return ed, r, screen
}

func TestCanvasRenderer_Nodes(t *testing.T) {
	_, r, screen := newRenderedEditor(t)

	box, ok := r.NodeBox("llmNode-1")
	require.True(t, ok)
	assert.Equal(t, Rect{X: 25, Y: 4, Width: 12, Height: 3}, box)
	assert.Equal(t, '┌', screen.at(25, 4))
	assert.Contains(t, screen.row(5), "GPT-4")

	box, ok = r.NodeBox("toolNode-2")
	require.True(t, ok)
	assert.Equal(t, 12, box.Y)
	assert.Contains(t, screen.row(13), "Web Search")
	assert.Equal(t, 1, screen.shows)
}

func TestCanvasRenderer_Edges(t *testing.T) {
	ed, _, screen := newRenderedEditor(t)

	assert.Contains(t, screen.text(), "▼")
	assert.Contains(t, screen.text(), "│")

	ed.Store().SetEdgePresentation("edge-3", workflow.WithLabel("results"))
	ed.Store().SetEdgePresentation("edge-3", workflow.WithDashed(true))
	assert.Contains(t, screen.text(), "results")
	assert.Contains(t, screen.text(), "╎")
}

func TestCanvasRenderer_SelfLoop(t *testing.T) {
	ed, r, screen := newRenderedEditor(t)
	_, err := ed.Store().Connect("llmNode-1", "llmNode-1")
	require.NoError(t, err)

	box, _ := r.NodeBox("llmNode-1")
	assert.Equal(t, '↻', screen.at(box.X+box.Width, box.Y+1))
}

func TestCanvasRenderer_Selection(t *testing.T) {
	ed, _, screen := newRenderedEditor(t)

	require.NoError(t, ed.Dispatch(editor.NodeClick{NodeID: "llmNode-1"}))
	assert.Equal(t, '╔', screen.at(25, 4))

	panel := screen.text()
	assert.Contains(t, panel, "Language Model")
	assert.Contains(t, panel, "Temperature")
	assert.Contains(t, panel, "0.7")
	assert.Contains(t, panel, "< gpt-4 >")
	assert.Contains(t, screen.row(0)[100-panelWidth:], "Language Model")

	require.NoError(t, ed.Dispatch(editor.NodeClick{NodeID: "toolNode-2"}))
	assert.Contains(t, screen.text(), "query: string *")
	assert.Equal(t, '┌', screen.at(25, 4))
}

func TestCanvasRenderer_PanelWarnings(t *testing.T) {
	ed, _, screen := newRenderedEditor(t)
	require.NoError(t, ed.Dispatch(editor.NodeClick{NodeID: "llmNode-1"}))
	require.NoError(t, ed.Update(func() error { return ed.Panel().SetModel("llama-3") }))

	assert.Contains(t, screen.text(), "! model")
}

func TestCanvasRenderer_EdgeMenu(t *testing.T) {
	ed, _, screen := newRenderedEditor(t)

	require.NoError(t, ed.Dispatch(editor.EdgeClick{EdgeID: "edge-3", Point: editor.Point{X: 500, Y: 200}}))
	assert.Contains(t, screen.row(8), "Edge")
	assert.Contains(t, screen.row(9), "Label:")
	assert.Contains(t, screen.text(), "animated: yes")

	require.NoError(t, ed.Update(ed.EdgeEditor().BeginLabelEdit))
	require.NoError(t, ed.Update(func() error { return ed.EdgeEditor().SetBuffer("draft") }))
	ed.Render()
	assert.Contains(t, screen.text(), "Label: draft_")
}

func TestCanvasRenderer_StatusBar(t *testing.T) {
	ed, r, screen := newRenderedEditor(t)

	status := screen.row(29)
	assert.Contains(t, status, "NORMAL")
	assert.Contains(t, status, "Untitled")
	assert.Contains(t, status, "nodes:2 edges:1")
	assert.Contains(t, status, "Tab: node")

	r.SetOverlay(Overlay{Mode: ModeInsert})
	ed.SetStatus("Saved x.json")
	status = screen.row(29)
	assert.Contains(t, status, "INSERT")
	assert.Contains(t, status, "Saved x.json")
}

func TestCanvasRenderer_Palette(t *testing.T) {
	ed, r, screen := newRenderedEditor(t)
	r.SetOverlay(Overlay{Mode: ModePalette, PaletteIndex: 1})
	ed.Render()

	text := screen.text()
	assert.Contains(t, text, "Add Node")
	assert.Contains(t, text, "Language Model - Prompt a language model")
	assert.Contains(t, text, "Tool - Call a tool")
}

func TestCanvasRenderer_ClipsToScreen(t *testing.T) {
	screen := newFakeScreen(20, 6)
	r := NewCanvasRenderer(screen, NewViewport(0, 0), nil)
	ed := editor.New(newTestStore(t), r)

	assert.NotPanics(t, ed.Render)
	for pos := range screen.cells {
		assert.True(t, pos[0] >= 0 && pos[0] < 20 && pos[1] >= 0 && pos[1] < 6, "cell %v outside screen", pos)
	}
}

func TestLinePoints(t *testing.T) {
	assert.Equal(t, [][2]int{{0, 0}, {1, 0}, {2, 0}}, linePoints(0, 0, 2, 0))
	assert.Equal(t, [][2]int{{0, 2}, {0, 1}, {0, 0}}, linePoints(0, 2, 0, 0))
	assert.Equal(t, [][2]int{{0, 0}, {1, 1}, {2, 2}}, linePoints(0, 0, 2, 2))
	assert.Equal(t, [][2]int{{3, 3}}, linePoints(3, 3, 3, 3))
}

func TestGlyphs(t *testing.T) {
	assert.Equal(t, '─', lineGlyph(1, 0, false))
	assert.Equal(t, '╌', lineGlyph(-1, 0, true))
	assert.Equal(t, '│', lineGlyph(0, 1, false))
	assert.Equal(t, '╲', lineGlyph(1, 1, false))
	assert.Equal(t, '╱', lineGlyph(1, -1, false))
	assert.Equal(t, '▶', arrowGlyph(3, 1))
	assert.Equal(t, '◀', arrowGlyph(-3, 1))
	assert.Equal(t, '▲', arrowGlyph(0, -2))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 5))
	assert.Equal(t, "hel…", truncate("hello", 4))
	assert.Equal(t, "", truncate("hello", 0))
	assert.Equal(t, 3, textWidth("🧠 "))
}
