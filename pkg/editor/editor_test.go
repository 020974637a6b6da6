package editor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	llmerrors "github.com/dshills/llmflow/pkg/errors"
	"github.com/dshills/llmflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type viewRecorder struct {
	views []View
	err   error
}

func (r *viewRecorder) RenderGraph(v View) error {
	r.views = append(r.views, v)
	return r.err
}

func (r *viewRecorder) last(t *testing.T) View {
	t.Helper()
	require.NotEmpty(t, r.views)
	return r.views[len(r.views)-1]
}

func newTestEditor(t *testing.T) (*Editor, *viewRecorder, string, string, string) {
	t.Helper()
	s, llm, tool, edge := newFixture(t)
	rec := &viewRecorder{}
	ed := New(s, rec, WithProviders(testProviders), WithLogger(zaptest.NewLogger(t)))
	return ed, rec, llm, tool, edge
}

func TestEditor_RendersOnChanges(t *testing.T) {
	ed, rec, llm, _, _ := newTestEditor(t)

	require.NoError(t, ed.Dispatch(NodeClick{NodeID: llm}))
	v := rec.last(t)
	assert.True(t, v.Selection.IsNode(llm))
	assert.Equal(t, llm, v.Panel.NodeID)
	assert.Equal(t, workflow.KindLanguageModel, v.Panel.Kind)
	assert.Len(t, v.Panel.Fields, 5)

	n := len(rec.views)
	require.NoError(t, ed.Dispatch(NodeDrag{NodeID: llm, To: workflow.Position{X: 10, Y: 20}}))
	assert.Greater(t, len(rec.views), n)
	v = rec.last(t)
	assert.Equal(t, workflow.Position{X: 10, Y: 20}, v.Workflow.Nodes[0].Position)
}

func TestEditor_RenderErrorIsNotFatal(t *testing.T) {
	ed, rec, llm, _, _ := newTestEditor(t)
	rec.err = errors.New("terminal gone")
	assert.NoError(t, ed.Dispatch(NodeClick{NodeID: llm}))
}

func TestEditor_Gestures(t *testing.T) {
	ed, rec, llm, tool, edge := newTestEditor(t)

	require.NoError(t, ed.Dispatch(EdgeClick{EdgeID: edge, Point: Point{X: 3, Y: 4}}))
	v := rec.last(t)
	assert.Equal(t, EdgeMenuViewing, v.EdgeMenu.State)
	assert.Equal(t, Point{X: 3, Y: 4}, v.EdgeMenu.Anchor)
	assert.Empty(t, v.Panel.NodeID)

	require.NoError(t, ed.Dispatch(BackgroundClick{}))
	assert.Equal(t, SelectionNone, rec.last(t).Selection.Kind)
	assert.Equal(t, EdgeMenuClosed, rec.last(t).EdgeMenu.State)

	require.NoError(t, ed.Dispatch(ConnectDrag{Source: tool, Target: llm}))
	assert.Len(t, ed.Store().Snapshot().Edges, 2)

	err := ed.Dispatch(ConnectDrag{Source: tool, Target: "missing"})
	assert.True(t, errors.Is(err, workflow.ErrNotFound))

	require.NoError(t, ed.Dispatch(PaletteAdd{Kind: workflow.KindTool, At: workflow.Position{X: 1, Y: 1}}))
	wf := ed.Store().Snapshot()
	require.Len(t, wf.Nodes, 3)
	assert.True(t, ed.Selection().Current().IsNode(wf.Nodes[2].ID))

	// Delete in a text input is ignored
	require.NoError(t, ed.Dispatch(KeyPress{Key: KeyDelete, InTextInput: true}))
	assert.Len(t, ed.Store().Snapshot().Nodes, 3)

	require.NoError(t, ed.Dispatch(KeyPress{Key: KeyBackspace}))
	assert.Len(t, ed.Store().Snapshot().Nodes, 2)
}

func TestEditor_EscapeClearsWhileEditingLabel(t *testing.T) {
	ed, rec, _, _, edge := newTestEditor(t)
	require.NoError(t, ed.Dispatch(EdgeClick{EdgeID: edge}))
	require.NoError(t, ed.Update(ed.EdgeEditor().BeginLabelEdit))
	require.NoError(t, ed.Update(func() error { return ed.EdgeEditor().SetBuffer("draft") }))

	require.NoError(t, ed.Dispatch(KeyPress{Key: KeyEscape}))
	assert.Equal(t, SelectionNone, ed.Selection().Current().Kind)
	assert.Equal(t, EdgeMenuClosed, ed.EdgeEditor().State())
	assert.Empty(t, ed.EdgeEditor().Buffer())

	got, ok := ed.Store().Edge(edge)
	require.True(t, ok)
	assert.Empty(t, got.Data.Label)
	assert.Equal(t, EdgeMenuClosed, rec.last(t).EdgeMenu.State)
}

// Scenario B: deleting a selected node also removes its edges
func TestEditor_DeleteSelectedNodeCascades(t *testing.T) {
	ed, rec, llm, _, _ := newTestEditor(t)

	require.NoError(t, ed.Dispatch(NodeClick{NodeID: llm}))
	require.NoError(t, ed.Dispatch(KeyPress{Key: KeyDelete}))

	v := rec.last(t)
	assert.Len(t, v.Workflow.Nodes, 1)
	assert.Empty(t, v.Workflow.Edges)
	assert.Equal(t, SelectionNone, v.Selection.Kind)
}

func TestEditor_SaveLoadRoundTrip(t *testing.T) {
	ed, _, _, _, edge := newTestEditor(t)
	ed.Store().SetEdgePresentation(edge, workflow.WithLabel("results"))
	want := ed.Store().Snapshot()

	var buf bytes.Buffer
	require.NoError(t, ed.Save(&buf))

	other, rec, _, _, _ := newTestEditor(t)
	require.NoError(t, other.Store().Replace(workflow.NewWorkflow("Scratch", "")))
	require.NoError(t, other.Load(context.Background(), &buf))

	assert.Equal(t, want, other.Store().Snapshot())
	assert.False(t, other.Loading())
	assert.Contains(t, rec.last(t).Status, "Loaded")
}

// Scenario D: a malformed file leaves the current workflow untouched
func TestEditor_LoadFailsClosed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "not json", doc: "{nodes: oops"},
		{name: "missing edges", doc: `{"name":"x","nodes":[]}`},
		{name: "dangling edge", doc: `{"name":"x","nodes":[],"edges":[{"id":"e","source":"a","target":"b"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ed, rec, _, _, _ := newTestEditor(t)
			before := ed.Store().Snapshot()

			err := ed.Load(context.Background(), strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, workflow.ErrMalformedWorkflow))

			assert.Equal(t, before, ed.Store().Snapshot())
			assert.Contains(t, rec.last(t).Status, "Load failed")
		})
	}
}

func TestEditor_LoadInProgress(t *testing.T) {
	ed, _, llm, _, _ := newTestEditor(t)

	var buf bytes.Buffer
	require.NoError(t, workflowJSON(&buf, "Incoming"))

	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() { done <- ed.Load(context.Background(), pr) }()

	require.Eventually(t, ed.Loading, time.Second, time.Millisecond)

	err := ed.Dispatch(NodeDrag{NodeID: llm, To: workflow.Position{X: 1, Y: 1}})
	assert.True(t, errors.Is(err, ErrLoadInProgress))
	assert.True(t, errors.Is(ed.Update(func() error { return nil }), ErrLoadInProgress))
	assert.True(t, errors.Is(ed.Load(context.Background(), strings.NewReader("{}")), ErrLoadInProgress))

	// selection does not touch the workflow and stays available
	assert.NoError(t, ed.Dispatch(NodeClick{NodeID: llm}))

	_, err = pw.Write(buf.Bytes())
	require.NoError(t, err)
	require.NoError(t, pw.Close())

	require.NoError(t, <-done)
	assert.Equal(t, "Incoming", ed.Store().Name())
	assert.Equal(t, SelectionNone, ed.Selection().Current().Kind)
}

func TestEditor_EditWaitingOnLockSeesLoad(t *testing.T) {
	ed, _, llm, _, _ := newTestEditor(t)
	before, _ := ed.Store().Node(llm)

	ed.mu.Lock()
	results := make(chan error, 2)
	go func() { results <- ed.Dispatch(NodeDrag{NodeID: llm, To: workflow.Position{X: 1, Y: 1}}) }()
	go func() {
		results <- ed.Update(func() error {
			return ed.Store().MoveNode(llm, workflow.Position{X: 2, Y: 2})
		})
	}()
	// a load begins while both edits may already be past the first check
	ed.loading.Store(true)
	ed.mu.Unlock()

	for i := 0; i < 2; i++ {
		select {
		case err := <-results:
			assert.ErrorIs(t, err, ErrLoadInProgress)
		case <-time.After(time.Second):
			t.Fatal("edit did not return")
		}
	}
	after, _ := ed.Store().Node(llm)
	assert.Equal(t, before.Position, after.Position)

	ed.loading.Store(false)
	require.NoError(t, ed.beginLoad())
	assert.ErrorIs(t, ed.beginLoad(), ErrLoadInProgress)
}

func TestEditor_LoadCancelled(t *testing.T) {
	ed, _, _, _, _ := newTestEditor(t)
	before := ed.Store().Snapshot()

	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ed.Load(ctx, pr)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, before, ed.Store().Snapshot())
	assert.False(t, ed.Loading())
}

func TestEditor_SaveToDir(t *testing.T) {
	ed, rec, _, _, _ := newTestEditor(t)
	ed.Store().SetMetadata("My Research  Flow", "")

	dir := filepath.Join(t.TempDir(), "out")
	path, err := ed.SaveToDir(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "My_Research_Flow.json"), path)
	assert.Contains(t, rec.last(t).Status, "Saved")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	got, err := workflow.Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, ed.Store().Snapshot(), got)

	other, _, _, _, _ := newTestEditor(t)
	require.NoError(t, other.LoadFile(context.Background(), path))
	assert.Equal(t, "My Research  Flow", other.Store().Name())
}

func TestEditor_FileErrors(t *testing.T) {
	ed, _, _, _, _ := newTestEditor(t)

	// a regular file where the directory should be
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err := ed.SaveToDir(blocker)
	require.Error(t, err)
	var opErr *llmerrors.OperationalError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "save workflow", opErr.Operation)
	assert.Equal(t, filepath.Join(blocker, "Untitled.json"), opErr.Path)

	err = ed.LoadFile(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "open workflow", opErr.Operation)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestEditor_NilRenderer(t *testing.T) {
	s, llm, _, _ := newFixture(t)
	ed := New(s, nil)
	assert.NoError(t, ed.Dispatch(NodeClick{NodeID: llm}))
	ed.Render()
	ed.SetStatus("ok")
	assert.Equal(t, "ok", ed.Status())
}

func workflowJSON(w io.Writer, name string) error {
	data, err := workflow.Serialize(workflow.NewWorkflow(name, ""))
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
