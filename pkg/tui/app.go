package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dshills/goterm"
	"github.com/dshills/llmflow/pkg/editor"
	"github.com/dshills/llmflow/pkg/graph"
	"github.com/dshills/llmflow/pkg/models"
	"github.com/dshills/llmflow/pkg/workflow"
	"go.uber.org/zap"
)

// maxTokensKeyStep is how far Left/Right move the max tokens slider
const maxTokensKeyStep = 64

// resizeInterval is how often the loop checks for a terminal resize
const resizeInterval = 250 * time.Millisecond

// Option configures an App
type Option func(*App)

// WithLogger sets the application logger
func WithLogger(logger *zap.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger.Named("tui")
		}
	}
}

// WithInput replaces stdin as the key source
func WithInput(r io.Reader) Option {
	return func(a *App) {
		a.input = r
	}
}

// WithSaveDir sets the directory Ctrl+s writes to
func WithSaveDir(dir string) Option {
	return func(a *App) {
		a.saveDir = dir
	}
}

// App is the terminal workflow editor
type App struct {
	screen    Screen
	closer    io.Closer
	editor    *editor.Editor
	renderer  *CanvasRenderer
	keyboard  *KeyboardHandler
	logger    *zap.Logger
	input     io.Reader
	saveDir   string
	inputChan chan KeyEvent
	overlay   Overlay
	cancel    context.CancelFunc
	quit      bool
	width     int
	height    int
}

// NewApp initializes the terminal and creates an editor over store
func NewApp(store *graph.Store, providers []models.Provider, viewport Viewport, opts ...Option) (*App, error) {
	screen, err := goterm.Init()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %w", err)
	}
	app, err := newApp(screen, store, providers, viewport, opts...)
	if err != nil {
		screen.Close()
		return nil, err
	}
	app.closer = screen
	return app, nil
}

func newApp(screen Screen, store *graph.Store, providers []models.Provider, viewport Viewport, opts ...Option) (*App, error) {
	a := &App{
		screen:    screen,
		keyboard:  NewKeyboardHandler(),
		logger:    zap.NewNop(),
		input:     os.Stdin,
		saveDir:   ".",
		inputChan: make(chan KeyEvent, 100),
		overlay:   Overlay{Mode: ModeNormal},
	}
	for _, opt := range opts {
		opt(a)
	}

	a.renderer = NewCanvasRenderer(screen, viewport, store.Registry())
	a.editor = editor.New(store, a.renderer,
		editor.WithProviders(providers),
		editor.WithLogger(a.logger))

	if err := a.registerBindings(); err != nil {
		return nil, fmt.Errorf("failed to register keybindings: %w", err)
	}
	return a, nil
}

// Editor returns the editor the app drives
func (a *App) Editor() *editor.Editor { return a.editor }

// Mode returns the current input mode
func (a *App) Mode() Mode { return a.keyboard.GetMode() }

// Done reports whether the user asked to quit
func (a *App) Done() bool { return a.quit }

// Open loads a workflow file into the editor
func (a *App) Open(ctx context.Context, path string) error {
	return a.editor.LoadFile(ctx, path)
}

// Run starts the main loop and blocks until the user quits or ctx ends
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.cancel = cancel

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go a.readKeyboardInput(ctx)

	ticker := time.NewTicker(resizeInterval)
	defer ticker.Stop()

	a.width, a.height = a.screen.Size()
	a.refresh()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-sigChan:
			return nil

		case event := <-a.inputChan:
			a.HandleKey(event)
			if a.quit {
				return nil
			}

		case <-ticker.C:
			if w, h := a.screen.Size(); w != a.width || h != a.height {
				a.width, a.height = w, h
				a.refresh()
			}
		}
	}
}

// readKeyboardInput reads raw key presses until ctx ends or a read fails
// for good
func (a *App) readKeyboardInput(ctx context.Context) {
	buf := make([]byte, 32)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := a.input.Read(buf)
		if err != nil {
			if isTemporary(err) {
				continue
			}
			if !errors.Is(err, io.EOF) {
				a.logger.Warn("keyboard input failed", zap.Error(err))
			}
			a.cancel()
			return
		}
		if n == 0 {
			continue
		}

		select {
		case a.inputChan <- ParseKey(buf[:n]):
		case <-ctx.Done():
			return
		}
	}
}

// isTemporary reports whether a read may succeed if retried
func isTemporary(err error) bool {
	if errors.Is(err, syscall.EINTR) || errors.Is(err, syscall.EAGAIN) {
		return true
	}
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}

// Close restores the terminal. Calling it again does nothing.
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	if a.closer == nil {
		return nil
	}
	closer := a.closer
	a.closer = nil
	if err := closer.Close(); err != nil {
		return fmt.Errorf("failed to close screen: %w", err)
	}
	return nil
}

func (a *App) refresh() {
	a.overlay.Mode = a.keyboard.GetMode()
	a.renderer.SetOverlay(a.overlay)
	a.editor.Render()
}

// HandleKey applies one key press. Editing failures are reported on the
// status line rather than returned.
func (a *App) HandleKey(event KeyEvent) {
	if a.editor.Status() != "" {
		a.editor.SetStatus("")
	}
	if len(a.overlay.Help) > 0 {
		a.overlay.Help = nil
		if event.Key == '?' && !event.IsSpecial {
			a.refresh()
			return
		}
	}

	handled, err := a.keyboard.HandleKey(event)
	if err == nil && !handled && a.keyboard.GetMode() == ModeInsert && event.IsPrintable() {
		err = a.insertRune(event.Key)
	}
	if err != nil {
		a.logger.Debug("key failed", zap.String("key", event.String()), zap.Error(err))
		a.editor.SetStatus(err.Error())
	}
	a.refresh()
}

func (a *App) setMode(mode Mode) {
	a.keyboard.SetMode(mode)
	a.overlay.Mode = mode
}

func (a *App) selectedNode() (workflow.Node, bool) {
	sel := a.editor.Selection().Current()
	if sel.Kind != editor.SelectionNode {
		return workflow.Node{}, false
	}
	return a.editor.Store().Node(sel.ID)
}

// cycle steps through ids from current, wrapping at both ends
func cycle(ids []string, current string, delta int) string {
	n := len(ids)
	idx := -1
	for i, id := range ids {
		if id == current {
			idx = i
			break
		}
	}
	switch {
	case idx < 0 && delta > 0:
		idx = 0
	case idx < 0:
		idx = n - 1
	default:
		idx = ((idx+delta)%n + n) % n
	}
	return ids[idx]
}

func (a *App) cycleNode(delta int) error {
	ids := a.editor.Store().NodeIDs()
	if len(ids) == 0 {
		return errors.New("no nodes; press a to add one")
	}
	next := cycle(ids, a.editor.Selection().Current().ID, delta)
	return a.editor.Dispatch(editor.NodeClick{NodeID: next})
}

func (a *App) cycleEdge() error {
	ids := a.editor.Store().EdgeIDs()
	if len(ids) == 0 {
		return errors.New("no edges; press c on a node to connect it")
	}
	next := cycle(ids, a.editor.Selection().Current().ID, 1)
	return a.editor.Dispatch(editor.EdgeClick{EdgeID: next})
}

func (a *App) moveSelected(dx, dy int) error {
	node, ok := a.selectedNode()
	if !ok {
		return editor.ErrNoSelection
	}
	stepX, stepY := a.renderer.Viewport().Step()
	to := workflow.Position{
		X: node.Position.X + float64(dx)*stepX,
		Y: node.Position.Y + float64(dy)*stepY,
	}
	return a.editor.Dispatch(editor.NodeDrag{NodeID: node.ID, To: to})
}

// placement picks where a palette node goes: below the selected node, or
// on a grid by node count
func (a *App) placement() workflow.Position {
	vp := a.renderer.Viewport()
	if node, ok := a.selectedNode(); ok {
		_, stepY := vp.Step()
		return workflow.Position{X: node.Position.X, Y: node.Position.Y + float64(nodeHeight+2)*stepY}
	}
	n := len(a.editor.Store().NodeIDs())
	return vp.ToCanvas(2+(n%4)*(minNodeWidth+6), 1+(n/4)*(nodeHeight+2))
}

func (a *App) addFromPalette() error {
	kinds := a.editor.Store().Registry().Kinds()
	if a.overlay.PaletteIndex < 0 || a.overlay.PaletteIndex >= len(kinds) {
		return fmt.Errorf("no node type at %d", a.overlay.PaletteIndex)
	}
	kind := kinds[a.overlay.PaletteIndex]
	a.setMode(ModeNormal)
	return a.editor.Dispatch(editor.PaletteAdd{Kind: kind, At: a.placement()})
}

func (a *App) movePalette(delta int) {
	n := len(a.editor.Store().Registry().Kinds())
	if n == 0 {
		return
	}
	a.overlay.PaletteIndex = ((a.overlay.PaletteIndex+delta)%n + n) % n
}

func (a *App) startConnect() error {
	node, ok := a.selectedNode()
	if !ok {
		return errors.New("select a node to connect from")
	}
	a.overlay.ConnectFrom = node.ID
	a.setMode(ModeConnect)
	return nil
}

func (a *App) finishConnect() error {
	source := a.overlay.ConnectFrom
	a.overlay.ConnectFrom = ""
	a.setMode(ModeNormal)

	target, ok := a.selectedNode()
	if !ok {
		return errors.New("select a target node")
	}
	return a.editor.Dispatch(editor.ConnectDrag{Source: source, Target: target.ID})
}

func (a *App) cancelConnect() error {
	a.overlay.ConnectFrom = ""
	a.setMode(ModeNormal)
	return nil
}

func (a *App) editEdgeLabel() error {
	if err := a.editor.Update(a.editor.EdgeEditor().BeginLabelEdit); err != nil {
		return err
	}
	a.overlay.InputKey = ""
	a.setMode(ModeInsert)
	return nil
}

func (a *App) editField() error {
	field, ok := a.editor.Panel().FocusedField()
	if !ok {
		return editor.ErrNoSelection
	}
	a.overlay.InputKey = field.Key
	a.overlay.Input = field.Value
	a.setMode(ModeInsert)
	return nil
}

func (a *App) editingLabel() bool {
	return a.editor.EdgeEditor().State() == editor.EdgeMenuEditingLabel
}

func (a *App) insertRune(r rune) error {
	if a.editingLabel() {
		return a.editor.Update(func() error {
			a.editor.EdgeEditor().InsertRune(r)
			return nil
		})
	}
	a.overlay.Input += string(r)
	return nil
}

func (a *App) backspace() error {
	if a.editingLabel() {
		return a.editor.Update(func() error {
			a.editor.EdgeEditor().Backspace()
			return nil
		})
	}
	if in := []rune(a.overlay.Input); len(in) > 0 {
		a.overlay.Input = string(in[:len(in)-1])
	}
	return nil
}

func (a *App) commitInput() error {
	defer a.setMode(ModeNormal)
	if a.editingLabel() {
		return a.editor.Update(a.editor.EdgeEditor().Commit)
	}

	key, text := a.overlay.InputKey, a.overlay.Input
	a.overlay.InputKey, a.overlay.Input = "", ""
	return a.editor.Update(func() error {
		return a.editor.Panel().SetField(key, text)
	})
}

func (a *App) cancelInput() error {
	defer a.setMode(ModeNormal)
	a.overlay.InputKey, a.overlay.Input = "", ""
	if a.editingLabel() {
		return a.editor.Update(func() error {
			a.editor.EdgeEditor().Cancel()
			return nil
		})
	}
	return nil
}

// adjustField moves a slider or select field by delta steps
func (a *App) adjustField(delta int) error {
	panel := a.editor.Panel()
	field, ok := panel.FocusedField()
	if !ok {
		return editor.ErrNoSelection
	}

	return a.editor.Update(func() error {
		switch field.Kind {
		case editor.FieldSlider:
			node, _ := panel.Node()
			data, ok := node.Data.(*workflow.LanguageModelData)
			if !ok {
				return nil
			}
			if field.Key == editor.KeyTemperature {
				return panel.SetTemperature(data.Temperature + float64(delta)*field.Step)
			}
			return panel.SetMaxTokens(data.MaxTokens + delta*maxTokensKeyStep)
		case editor.FieldSelect:
			if len(field.Options) == 0 {
				return fmt.Errorf("no %s choices", field.Label)
			}
			next := cycle(field.Options, field.Value, delta)
			return panel.SetField(field.Key, next)
		}
		return nil
	})
}

func (a *App) save() error {
	path, err := a.editor.SaveToDir(a.saveDir)
	if err != nil {
		return err
	}
	if warnings := workflow.ScanForCredentials(a.editor.Store().Snapshot()); len(warnings) > 0 {
		a.editor.SetStatus(fmt.Sprintf("Saved %s (%d possible credentials: %s)", path, len(warnings), warnings[0].Location))
	}
	return nil
}

func (a *App) quitApp() error {
	a.quit = true
	if a.cancel != nil {
		a.cancel()
	}
	return nil
}

func (a *App) registerBindings() error {
	type binding struct {
		mode    Mode
		key     KeyEvent
		handler KeyHandler
		label   string
	}
	do := func(fn func() error) KeyHandler {
		return func(KeyEvent) error { return fn() }
	}
	dispatch := func(g editor.Gesture) KeyHandler {
		return func(KeyEvent) error { return a.editor.Dispatch(g) }
	}
	update := func(fn func() error) KeyHandler {
		return func(KeyEvent) error { return a.editor.Update(fn) }
	}
	move := func(dx, dy int) KeyHandler {
		return func(KeyEvent) error { return a.moveSelected(dx, dy) }
	}
	deleteKey := dispatch(editor.KeyPress{Key: editor.KeyDelete})
	shiftTab := KeyEvent{IsSpecial: true, Special: KeyTab, Shift: true}

	if err := a.keyboard.RegisterGlobalBinding(Ctrl('c'), do(a.quitApp), "Quit"); err != nil {
		return err
	}

	bindings := []binding{
		{ModeNormal, Char('q'), do(a.quitApp), "Quit"},
		{ModeNormal, Special(KeyTab), do(func() error { return a.cycleNode(1) }), "Select next node"},
		{ModeNormal, shiftTab, do(func() error { return a.cycleNode(-1) }), "Select previous node"},
		{ModeNormal, Char(']'), do(a.cycleEdge), "Select next edge"},
		{ModeNormal, Char('h'), move(-1, 0), "Move node left"},
		{ModeNormal, Char('j'), move(0, 1), "Move node down"},
		{ModeNormal, Char('k'), move(0, -1), "Move node up"},
		{ModeNormal, Char('l'), move(1, 0), "Move node right"},
		{ModeNormal, Char('a'), do(func() error { a.overlay.PaletteIndex = 0; a.setMode(ModePalette); return nil }), "Add node"},
		{ModeNormal, Char('c'), do(a.startConnect), "Connect from selected node"},
		{ModeNormal, Char('e'), do(a.editEdgeLabel), "Edit edge label"},
		{ModeNormal, Char('d'), update(func() error { return a.editor.EdgeEditor().ToggleDashed() }), "Toggle dashed edge"},
		{ModeNormal, Char('m'), update(func() error { return a.editor.EdgeEditor().ToggleAnimated() }), "Toggle animated edge"},
		{ModeNormal, Char('i'), do(a.editField), "Edit focused field"},
		{ModeNormal, Special(KeyUp), update(func() error { a.editor.Panel().PrevField(); return nil }), "Previous field"},
		{ModeNormal, Special(KeyDown), update(func() error { a.editor.Panel().NextField(); return nil }), "Next field"},
		{ModeNormal, Special(KeyLeft), do(func() error { return a.adjustField(-1) }), "Decrease or previous choice"},
		{ModeNormal, Special(KeyRight), do(func() error { return a.adjustField(1) }), "Increase or next choice"},
		{ModeNormal, Char('p'), update(a.editor.Panel().AddParameter), "Add parameter"},
		{ModeNormal, Char('P'), update(a.removeLastParameter), "Remove last parameter"},
		{ModeNormal, Char('x'), deleteKey, "Delete selection"},
		{ModeNormal, Special(KeyDelete), deleteKey, "Delete selection"},
		{ModeNormal, Special(KeyBackspace), dispatch(editor.KeyPress{Key: editor.KeyBackspace}), "Delete selection"},
		{ModeNormal, Special(KeyEscape), dispatch(editor.KeyPress{Key: editor.KeyEscape}), "Clear selection"},
		{ModeNormal, Ctrl('s'), do(a.save), "Save"},
		{ModeNormal, Char('?'), do(func() error { a.overlay.Help = helpLines(a.keyboard, ModeNormal); return nil }), "Help"},

		{ModeInsert, Special(KeyEnter), do(a.commitInput), "Commit"},
		{ModeInsert, Special(KeyEscape), do(a.cancelInput), "Cancel"},
		{ModeInsert, Special(KeyBackspace), do(a.backspace), "Delete character"},
		{ModeInsert, Special(KeyDelete), dispatch(editor.KeyPress{Key: editor.KeyDelete, InTextInput: true}), "Ignored while typing"},

		{ModePalette, Char('j'), do(func() error { a.movePalette(1); return nil }), "Next node type"},
		{ModePalette, Special(KeyDown), do(func() error { a.movePalette(1); return nil }), "Next node type"},
		{ModePalette, Char('k'), do(func() error { a.movePalette(-1); return nil }), "Previous node type"},
		{ModePalette, Special(KeyUp), do(func() error { a.movePalette(-1); return nil }), "Previous node type"},
		{ModePalette, Special(KeyEnter), do(a.addFromPalette), "Add node"},
		{ModePalette, Special(KeyEscape), do(func() error { a.setMode(ModeNormal); return nil }), "Close palette"},

		{ModeConnect, Special(KeyTab), do(func() error { return a.cycleNode(1) }), "Next target"},
		{ModeConnect, shiftTab, do(func() error { return a.cycleNode(-1) }), "Previous target"},
		{ModeConnect, Char('c'), do(a.finishConnect), "Connect"},
		{ModeConnect, Special(KeyEnter), do(a.finishConnect), "Connect"},
		{ModeConnect, Special(KeyEscape), do(a.cancelConnect), "Cancel connect"},
	}
	for _, b := range bindings {
		if err := a.keyboard.RegisterBinding(b.mode, b.key, b.handler, b.label); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) removeLastParameter() error {
	for _, f := range a.editor.Panel().Fields() {
		if f.Key != editor.KeyParameters {
			continue
		}
		if len(f.Params) == 0 {
			return errors.New("no parameters to remove")
		}
		return a.editor.Panel().RemoveParameter(len(f.Params) - 1)
	}
	return errors.New("selected node has no parameters")
}
