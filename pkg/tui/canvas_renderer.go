package tui

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/dshills/goterm"
	"github.com/dshills/llmflow/pkg/editor"
	"github.com/dshills/llmflow/pkg/registry"
	"github.com/dshills/llmflow/pkg/workflow"
)

// Layout constants in cells
const (
	panelWidth   = 36
	minNodeWidth = 12
	maxNodeWidth = 30
	nodeHeight   = 3
	menuWidth    = 32
)

// Theme holds the colors used by the canvas renderer
type Theme struct {
	Text     goterm.Color
	Dim      goterm.Color
	Border   goterm.Color
	Accent   goterm.Color
	Warning  goterm.Color
	PanelBg  goterm.Color
	StatusFg goterm.Color
	StatusBg goterm.Color
}

// DefaultTheme returns the dark theme
func DefaultTheme() Theme {
	return Theme{
		Text:     goterm.ColorRGB(220, 220, 220),
		Dim:      goterm.ColorRGB(136, 136, 136),
		Border:   goterm.ColorRGB(100, 100, 100),
		Accent:   goterm.ColorRGB(100, 200, 255),
		Warning:  goterm.ColorRGB(255, 200, 0),
		PanelBg:  goterm.ColorRGB(30, 30, 30),
		StatusFg: goterm.ColorRGB(0, 0, 0),
		StatusBg: goterm.ColorRGB(100, 200, 255),
	}
}

// Overlay is interaction state owned by the App rather than the editor:
// the input mode, a field being typed, the palette and a pending connect.
type Overlay struct {
	Mode         Mode
	InputKey     string
	Input        string
	PaletteIndex int
	ConnectFrom  string
	Help         []string
}

// CanvasRenderer draws editor views on a terminal screen. It implements
// editor.Renderer.
type CanvasRenderer struct {
	mu       sync.Mutex
	screen   Screen
	viewport Viewport
	theme    Theme
	registry *registry.Registry
	overlay  Overlay

	clip     Rect
	boxes    map[string]Rect
	midpoint map[string][2]int
}

var _ editor.Renderer = (*CanvasRenderer)(nil)

// NewCanvasRenderer creates a renderer drawing on screen
func NewCanvasRenderer(screen Screen, viewport Viewport, reg *registry.Registry) *CanvasRenderer {
	if reg == nil {
		reg = registry.Default()
	}
	return &CanvasRenderer{
		screen:   screen,
		viewport: viewport,
		theme:    DefaultTheme(),
		registry: reg,
		boxes:    make(map[string]Rect),
		midpoint: make(map[string][2]int),
	}
}

// SetOverlay replaces the overlay drawn on the next frame
func (r *CanvasRenderer) SetOverlay(o Overlay) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overlay = o
}

// Viewport returns the canvas mapping
func (r *CanvasRenderer) Viewport() Viewport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewport
}

// SetViewport replaces the canvas mapping
func (r *CanvasRenderer) SetViewport(v Viewport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.viewport = v
}

// NodeBox returns where a node was drawn in the last frame
func (r *CanvasRenderer) NodeBox(id string) (Rect, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	box, ok := r.boxes[id]
	return box, ok
}

// RenderGraph draws one frame
func (r *CanvasRenderer) RenderGraph(v editor.View) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.screen.Clear()
	width, height := r.screen.Size()

	canvasWidth := width
	if v.Panel.NodeID != "" {
		canvasWidth = width - panelWidth
	}
	r.clip = Rect{X: 0, Y: 0, Width: canvasWidth, Height: height - 1}

	r.layoutNodes(v.Workflow)
	for _, edge := range v.Workflow.Edges {
		r.drawEdge(edge, v.Selection.IsEdge(edge.ID))
	}
	for _, node := range v.Workflow.Nodes {
		r.drawNode(node, v.Selection.IsNode(node.ID))
	}
	if v.EdgeMenu.State != editor.EdgeMenuClosed {
		r.drawEdgeMenu(v)
	}

	r.clip = Rect{X: 0, Y: 0, Width: width, Height: height}
	if v.Panel.NodeID != "" {
		r.drawPanel(v.Panel, Rect{X: width - panelWidth, Y: 0, Width: panelWidth, Height: height - 1})
	}
	if r.overlay.Mode == ModePalette {
		r.drawPalette(width, height)
	}
	if len(r.overlay.Help) > 0 {
		r.drawHelp(r.overlay.Help, width, height)
	}
	r.drawStatus(v, width, height)

	return r.screen.Show()
}

func (r *CanvasRenderer) put(x, y int, ch rune, fg, bg goterm.Color, style goterm.Style) {
	if !r.clip.Contains(x, y) {
		return
	}
	r.screen.SetCell(x, y, goterm.NewCell(ch, fg, bg, style))
}

// text draws s from (x, y), clipped, and returns the cells used
func (r *CanvasRenderer) text(x, y int, s string, fg, bg goterm.Color, style goterm.Style) int {
	col := x
	for _, ch := range s {
		r.put(col, y, ch, fg, bg, style)
		col += runeWidth(ch)
	}
	return col - x
}

func (r *CanvasRenderer) fill(rect Rect, bg goterm.Color) {
	for y := rect.Y; y < rect.Y+rect.Height; y++ {
		for x := rect.X; x < rect.X+rect.Width; x++ {
			r.put(x, y, ' ', r.theme.Text, bg, goterm.StyleNone)
		}
	}
}

// frame draws a single-line border around rect with an optional title
func (r *CanvasRenderer) frame(rect Rect, title string, fg, bg goterm.Color, heavy bool) {
	h, v, tl, tr, bl, br := '─', '│', '┌', '┐', '└', '┘'
	if heavy {
		h, v, tl, tr, bl, br = '═', '║', '╔', '╗', '╚', '╝'
	}
	right := rect.X + rect.Width - 1
	bottom := rect.Y + rect.Height - 1
	for x := rect.X + 1; x < right; x++ {
		r.put(x, rect.Y, h, fg, bg, goterm.StyleNone)
		r.put(x, bottom, h, fg, bg, goterm.StyleNone)
	}
	for y := rect.Y + 1; y < bottom; y++ {
		r.put(rect.X, y, v, fg, bg, goterm.StyleNone)
		r.put(right, y, v, fg, bg, goterm.StyleNone)
	}
	r.put(rect.X, rect.Y, tl, fg, bg, goterm.StyleNone)
	r.put(right, rect.Y, tr, fg, bg, goterm.StyleNone)
	r.put(rect.X, bottom, bl, fg, bg, goterm.StyleNone)
	r.put(right, bottom, br, fg, bg, goterm.StyleNone)
	if title != "" {
		r.text(rect.X+2, rect.Y, " "+truncate(title, rect.Width-6)+" ", fg, bg, goterm.StyleBold)
	}
}

func (r *CanvasRenderer) nodeCaption(node workflow.Node) string {
	return r.registry.Icon(node.Type) + " " + node.Label()
}

func (r *CanvasRenderer) layoutNodes(wf *workflow.Workflow) {
	r.boxes = make(map[string]Rect, len(wf.Nodes))
	r.midpoint = make(map[string][2]int, len(wf.Edges))
	for _, node := range wf.Nodes {
		x, y := r.viewport.ToCell(node.Position)
		w := textWidth(r.nodeCaption(node)) + 4
		w = max(minNodeWidth, min(maxNodeWidth, w))
		r.boxes[node.ID] = Rect{X: x, Y: y, Width: w, Height: nodeHeight}
	}
}

func (r *CanvasRenderer) drawNode(node workflow.Node, selected bool) {
	box := r.boxes[node.ID]
	border := r.theme.Border
	style := goterm.StyleNone
	if selected {
		border = r.theme.Accent
		style = goterm.StyleBold
	}
	if node.ID == r.overlay.ConnectFrom {
		border = r.theme.Warning
	}
	r.fill(box, goterm.ColorDefault())
	r.frame(box, "", border, goterm.ColorDefault(), selected)
	r.text(box.X+2, box.Y+1, truncate(r.nodeCaption(node), box.Width-4), r.theme.Text, goterm.ColorDefault(), style)
}

func (r *CanvasRenderer) drawEdge(edge workflow.Edge, selected bool) {
	src, ok := r.boxes[edge.Source]
	if !ok {
		return
	}
	dst, ok := r.boxes[edge.Target]
	if !ok {
		return
	}

	fg := r.theme.Dim
	style := goterm.StyleNone
	if selected {
		fg = r.theme.Accent
		style = goterm.StyleBold
	}

	if edge.IsSelfLoop() {
		x, y := src.X+src.Width, src.Y+1
		r.put(x, y, '↻', fg, goterm.ColorDefault(), style)
		r.midpoint[edge.ID] = [2]int{x, y}
		if edge.Data.Label != "" {
			r.text(x+2, y, edge.Data.Label, fg, goterm.ColorDefault(), style)
		}
		return
	}

	x0, y0 := src.Center()
	x1, y1 := dst.Center()
	points := linePoints(x0, y0, x1, y1)

	var outside [][2]int
	for _, p := range points {
		if src.Contains(p[0], p[1]) || dst.Contains(p[0], p[1]) {
			continue
		}
		outside = append(outside, p)
	}
	if len(outside) == 0 {
		return
	}

	for i, p := range outside {
		var prev [2]int
		if i > 0 {
			prev = outside[i-1]
		} else {
			prev = [2]int{x0, y0}
		}
		glyph := lineGlyph(p[0]-prev[0], p[1]-prev[1], edge.Data.Dashed)
		if i == len(outside)-1 {
			glyph = arrowGlyph(x1-p[0], y1-p[1])
		}
		r.put(p[0], p[1], glyph, fg, goterm.ColorDefault(), style)
	}

	mid := outside[len(outside)/2]
	r.midpoint[edge.ID] = mid
	if edge.Data.Label != "" {
		label := " " + edge.Data.Label + " "
		r.text(mid[0]-textWidth(label)/2, mid[1], label, r.theme.Text, goterm.ColorDefault(), style)
	}
}

func (r *CanvasRenderer) drawEdgeMenu(v editor.View) {
	var edge workflow.Edge
	found := false
	for _, e := range v.Workflow.Edges {
		if e.ID == v.EdgeMenu.EdgeID {
			edge, found = e, true
			break
		}
	}
	if !found {
		return
	}

	var x, y int
	if v.EdgeMenu.Anchor != (editor.Point{}) {
		x, y = r.viewport.PointToCell(v.EdgeMenu.Anchor)
	} else {
		mid := r.midpoint[edge.ID]
		x, y = mid[0]+1, mid[1]+1
	}

	label := edge.Data.Label
	if v.EdgeMenu.State == editor.EdgeMenuEditingLabel {
		label = v.EdgeMenu.Buffer + "_"
	}

	rect := Rect{X: x, Y: y, Width: menuWidth, Height: 5}
	r.fill(rect, r.theme.PanelBg)
	r.frame(rect, "Edge", r.theme.Accent, r.theme.PanelBg, false)
	r.text(x+2, y+1, truncate("Label: "+label, menuWidth-4), r.theme.Text, r.theme.PanelBg, goterm.StyleNone)
	r.text(x+2, y+2, fmt.Sprintf("[e] label  [d] dashed: %s", yesNo(edge.Data.Dashed)), r.theme.Dim, r.theme.PanelBg, goterm.StyleNone)
	r.text(x+2, y+3, fmt.Sprintf("[m] animated: %s", yesNo(edge.Animated)), r.theme.Dim, r.theme.PanelBg, goterm.StyleNone)
}

func (r *CanvasRenderer) drawPanel(p editor.PanelView, rect Rect) {
	r.fill(rect, r.theme.PanelBg)
	title := "Properties"
	if d, ok := r.registry.Lookup(p.Kind); ok {
		title = d.Title
	}
	r.frame(rect, title, r.theme.Border, r.theme.PanelBg, false)

	inner := rect.Width - 4
	y := rect.Y + 1
	bottom := rect.Y + rect.Height - 1
	line := func(s string, fg goterm.Color, style goterm.Style) {
		if y >= bottom {
			return
		}
		r.text(rect.X+2, y, truncate(s, inner), fg, r.theme.PanelBg, style)
		y++
	}

	for i, f := range p.Fields {
		focused := i == p.Focus
		labelStyle := goterm.StyleNone
		if focused {
			labelStyle = goterm.StyleReverse
		}
		line(f.Label, r.theme.Dim, labelStyle)

		value := f.Value
		if r.overlay.Mode == ModeInsert && r.overlay.InputKey == f.Key && focused {
			value = r.overlay.Input + "_"
		}
		switch f.Kind {
		case editor.FieldSlider:
			line(sliderBar(f, inner-len(value)-1)+" "+value, r.theme.Text, goterm.StyleNone)
		case editor.FieldSelect:
			if value == "" {
				value = "(none)"
			}
			line("< "+value+" >", r.theme.Text, goterm.StyleNone)
			if focused && len(f.Options) > 0 {
				line(strings.Join(f.Options, " "), r.theme.Dim, goterm.StyleDim)
			}
		case editor.FieldParameters:
			if r.overlay.Mode == ModeInsert && r.overlay.InputKey == f.Key && focused {
				line(value, r.theme.Text, goterm.StyleNone)
				break
			}
			if len(f.Params) == 0 {
				line("(none)", r.theme.Dim, goterm.StyleNone)
			}
			for _, param := range f.Params {
				req := ""
				if param.Required {
					req = " *"
				}
				line(fmt.Sprintf("%s: %s%s", param.Name, param.Type, req), r.theme.Text, goterm.StyleNone)
			}
		default:
			for _, l := range strings.Split(value, "\n") {
				line(l, r.theme.Text, goterm.StyleNone)
			}
		}
		y++
	}

	for _, issue := range p.Warnings {
		line("! "+issue.Message, r.theme.Warning, goterm.StyleNone)
	}
}

func (r *CanvasRenderer) drawPalette(width, height int) {
	descriptors := r.registry.Descriptors()
	rect := Rect{Width: 56, Height: len(descriptors) + 2}
	rect.X = max(0, (width-rect.Width)/2)
	rect.Y = max(0, (height-rect.Height)/2)

	r.fill(rect, r.theme.PanelBg)
	r.frame(rect, "Add Node", r.theme.Accent, r.theme.PanelBg, false)
	for i, d := range descriptors {
		style := goterm.StyleNone
		if i == r.overlay.PaletteIndex {
			style = goterm.StyleReverse
		}
		entry := fmt.Sprintf("%s %s - %s", d.Icon, d.Title, d.Description)
		r.text(rect.X+2, rect.Y+1+i, truncate(entry, rect.Width-4), r.theme.Text, r.theme.PanelBg, style)
	}
}

func (r *CanvasRenderer) drawStatus(v editor.View, width, height int) {
	y := height - 1
	r.fill(Rect{X: 0, Y: y, Width: width, Height: 1}, r.theme.StatusBg)

	mode := r.overlay.Mode
	if mode == "" {
		mode = ModeNormal
	}
	msg := v.Status
	if v.Loading {
		msg = "loading..."
	}
	if msg == "" {
		msg = helpLine(mode)
	}
	status := fmt.Sprintf(" %s | %s | nodes:%d edges:%d | %s",
		strings.ToUpper(string(mode)), v.Workflow.Name, len(v.Workflow.Nodes), len(v.Workflow.Edges), msg)
	r.text(0, y, truncate(status, width), r.theme.StatusFg, r.theme.StatusBg, goterm.StyleNone)
}

func helpLine(mode Mode) string {
	switch mode {
	case ModeInsert:
		return "Enter: commit  Esc: cancel"
	case ModePalette:
		return "j/k: choose  Enter: add  Esc: close"
	case ModeConnect:
		return "Tab: pick target  c: connect  Esc: cancel"
	default:
		return "Tab: node  ]: edge  a: add  c: connect  i: edit  ^s: save  ?: help  q: quit"
	}
}

func sliderBar(f editor.Field, width int) string {
	width = max(4, min(width, 16))
	value, _ := strconv.ParseFloat(f.Value, 64)
	filled := 0
	if f.Max > f.Min {
		filled = int((value - f.Min) / (f.Max - f.Min) * float64(width))
	}
	filled = max(0, min(width, filled))
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// linePoints returns the cells of a line from (x0,y0) to (x1,y1) using
// Bresenham's algorithm
func linePoints(x0, y0, x1, y1 int) [][2]int {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}

	var points [][2]int
	e := dx + dy
	for {
		points = append(points, [2]int{x0, y0})
		if x0 == x1 && y0 == y1 {
			return points
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func lineGlyph(dx, dy int, dashed bool) rune {
	switch {
	case dy == 0:
		if dashed {
			return '╌'
		}
		return '─'
	case dx == 0:
		if dashed {
			return '╎'
		}
		return '│'
	case (dx > 0) == (dy > 0):
		return '╲'
	default:
		return '╱'
	}
}

func arrowGlyph(dx, dy int) rune {
	if abs(dx) >= abs(dy) {
		if dx >= 0 {
			return '▶'
		}
		return '◀'
	}
	if dy > 0 {
		return '▼'
	}
	return '▲'
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// runeWidth treats emoji as two cells wide
func runeWidth(r rune) int {
	if r >= 0x1F000 {
		return 2
	}
	return 1
}

func textWidth(s string) int {
	n := 0
	for _, r := range s {
		n += runeWidth(r)
	}
	return n
}

// truncate shortens s to at most width cells, marking the cut with "…"
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if textWidth(s) <= width {
		return s
	}
	var b strings.Builder
	used := 0
	for _, r := range s {
		w := runeWidth(r)
		if used+w > width-1 {
			break
		}
		b.WriteRune(r)
		used += w
	}
	b.WriteRune('…')
	return b.String()
}
