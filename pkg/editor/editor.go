// Package editor holds the interaction state of the workflow editor:
// selection, the edge label menu, and the property panel. Editor ties them
// to a graph.Store and a Renderer and is the entry point for canvas
// adapters.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	llmerrors "github.com/dshills/llmflow/pkg/errors"
	"github.com/dshills/llmflow/pkg/graph"
	"github.com/dshills/llmflow/pkg/models"
	"github.com/dshills/llmflow/pkg/storage"
	"github.com/dshills/llmflow/pkg/workflow"
	"go.uber.org/zap"
)

var (
	// ErrLoadInProgress is returned for edits attempted while a load is
	// being read
	ErrLoadInProgress = errors.New("load in progress")

	// ErrNoSelection is returned when an action needs a selected item
	ErrNoSelection = errors.New("nothing selected")
)

// Option configures an Editor
type Option func(*Editor)

// WithLogger sets the editor logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *Editor) {
		if logger != nil {
			e.logger = logger.Named("editor")
		}
	}
}

// WithProviders sets the models offered by the property panel
func WithProviders(providers []models.Provider) Option {
	return func(e *Editor) {
		e.providers = providers
	}
}

// Editor is the facade a canvas adapter talks to. Its methods may be
// called from several goroutines; mutations are serialized.
type Editor struct {
	mu        sync.Mutex
	store     *graph.Store
	selection *SelectionController
	edges     *EdgeEditor
	panel     *PropertyPanel
	renderer  Renderer
	logger    *zap.Logger
	providers []models.Provider
	loading   atomic.Bool
	status    string
}

// New creates an editor over store. The renderer is called after every
// store change and selection change; nil disables rendering.
func New(store *graph.Store, renderer Renderer, opts ...Option) *Editor {
	e := &Editor{
		store:    store,
		renderer: renderer,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.selection = NewSelectionController(store)
	e.edges = NewEdgeEditor(store, e.selection)
	e.panel = NewPropertyPanel(store, e.selection, e.providers)

	store.Subscribe(graph.ObserverFunc(func(graph.Event) { e.render() }))
	e.selection.OnChange(func(_, _ Selection) { e.render() })
	return e
}

// Store returns the underlying graph store
func (e *Editor) Store() *graph.Store { return e.store }

// Selection returns the selection controller
func (e *Editor) Selection() *SelectionController { return e.selection }

// EdgeEditor returns the edge label/style editor
func (e *Editor) EdgeEditor() *EdgeEditor { return e.edges }

// Panel returns the property panel
func (e *Editor) Panel() *PropertyPanel { return e.panel }

// Loading reports whether a load is in flight
func (e *Editor) Loading() bool { return e.loading.Load() }

// Status returns the status line text
func (e *Editor) Status() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// SetStatus replaces the status line and re-renders
func (e *Editor) SetStatus(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = msg
	e.render()
}

// View builds the current render snapshot
func (e *Editor) View() View {
	sel := e.selection.Current()
	v := View{
		Workflow:  e.store.Snapshot(),
		Selection: sel,
		EdgeMenu: EdgeMenuView{
			State:  e.edges.State(),
			EdgeID: e.edges.EdgeID(),
			Anchor: e.edges.Anchor(),
			Buffer: e.edges.Buffer(),
		},
		Status:  e.status,
		Loading: e.loading.Load(),
	}
	if node, ok := e.panel.Node(); ok {
		v.Panel = PanelView{
			NodeID:   node.ID,
			Kind:     node.Type,
			Fields:   e.panel.Fields(),
			Focus:    e.panel.Focus(),
			Warnings: e.panel.Warnings(),
		}
	}
	return v
}

func (e *Editor) render() {
	if e.renderer == nil {
		return
	}
	if err := e.renderer.RenderGraph(e.View()); err != nil {
		e.logger.Warn("render failed", zap.Error(err))
	}
}

// Render draws the current state
func (e *Editor) Render() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.render()
}

// Update runs fn with exclusive access to the editor state. Adapters use it
// for panel and edge menu edits. It fails with ErrLoadInProgress while a
// load is being read.
func (e *Editor) Update(fn func() error) error {
	if e.loading.Load() {
		return ErrLoadInProgress
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	// a load may have started while waiting for the lock
	if e.loading.Load() {
		return ErrLoadInProgress
	}
	return fn()
}

// Dispatch applies a canvas gesture. Gestures that would change the
// workflow fail with ErrLoadInProgress while a load is in flight.
func (e *Editor) Dispatch(g Gesture) error {
	if mutates(g) && e.loading.Load() {
		return ErrLoadInProgress
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if mutates(g) && e.loading.Load() {
		return ErrLoadInProgress
	}

	switch g := g.(type) {
	case NodeClick:
		return e.selection.SelectNode(g.NodeID)
	case EdgeClick:
		return e.selection.SelectEdge(g.EdgeID, g.Point)
	case BackgroundClick:
		e.selection.Clear()
	case NodeDrag:
		return e.store.MoveNode(g.NodeID, g.To)
	case ConnectDrag:
		_, err := e.store.Connect(g.Source, g.Target)
		return err
	case PaletteAdd:
		id, err := e.store.AddNode(g.Kind, nil, g.At)
		if err != nil {
			return err
		}
		return e.selection.SelectNode(id)
	case KeyPress:
		return e.keyPress(g)
	default:
		return fmt.Errorf("unsupported gesture %T", g)
	}
	return nil
}

func (e *Editor) keyPress(k KeyPress) error {
	switch k.Key {
	case KeyDelete, KeyBackspace:
		e.selection.DeleteSelected(k.InTextInput)
	case KeyEscape:
		// clearing also closes the edge menu and drops an unsaved label
		e.selection.Clear()
	}
	return nil
}

// Save writes the workflow as JSON to w
func (e *Editor) Save(w io.Writer) error {
	e.mu.Lock()
	snapshot := e.store.Snapshot()
	e.mu.Unlock()

	data, err := workflow.Serialize(snapshot)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write workflow: %w", err)
	}
	return nil
}

// SaveToDir writes the workflow into dir under FileName(name) and returns
// the path written
func (e *Editor) SaveToDir(dir string) (string, error) {
	e.mu.Lock()
	snapshot := e.store.Snapshot()
	e.mu.Unlock()

	data, err := workflow.Serialize(snapshot)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, workflow.FileName(snapshot.Name))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", e.operationFailed("save workflow", snapshot.Name, path, err)
	}
	if err := storage.WriteFileAtomic(path, data); err != nil {
		return "", e.operationFailed("save workflow", snapshot.Name, path, err)
	}

	e.logger.Info("workflow saved", zap.String("path", path))
	e.SetStatus("Saved " + path)
	return path, nil
}

type readResult struct {
	data []byte
	err  error
}

// Load reads a workflow from r and replaces the current one. The read runs
// in its own goroutine and is abandoned when ctx is done. A malformed
// document leaves the current workflow untouched.
func (e *Editor) Load(ctx context.Context, r io.Reader) error {
	if err := e.beginLoad(); err != nil {
		return err
	}
	defer e.loading.Store(false)

	results := make(chan readResult, 1)
	go func() {
		data, err := io.ReadAll(r)
		results <- readResult{data: data, err: err}
	}()

	var res readResult
	select {
	case <-ctx.Done():
		e.logger.Debug("load cancelled", zap.Error(ctx.Err()))
		return ctx.Err()
	case res = <-results:
	}
	if res.err != nil {
		return fmt.Errorf("read workflow: %w", res.err)
	}

	wf, err := workflow.Deserialize(res.data)
	if err != nil {
		e.logger.Warn("load rejected", zap.Error(err))
		e.SetStatus("Load failed: " + err.Error())
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.store.Replace(wf); err != nil {
		return err
	}
	e.status = fmt.Sprintf("Loaded %q", wf.Name)
	e.render()
	return nil
}

// beginLoad raises the loading flag under the lock, so an edit holding the
// lock finishes before the read starts and any later edit sees the flag
func (e *Editor) beginLoad() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loading.CompareAndSwap(false, true) {
		return ErrLoadInProgress
	}
	return nil
}

// LoadFile opens path and loads it
func (e *Editor) LoadFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return e.operationFailed("open workflow", "", path, err)
	}
	defer f.Close()
	return e.Load(ctx, f)
}

func (e *Editor) operationFailed(operation, name, path string, cause error) error {
	opErr := llmerrors.NewOperationalError(operation, name, path, cause)
	e.logger.Warn("file operation failed", opErr.Fields()...)
	return opErr
}
