package tui

import (
	"math"

	"github.com/dshills/goterm"
	"github.com/dshills/llmflow/pkg/editor"
	"github.com/dshills/llmflow/pkg/workflow"
)

// Screen is the subset of goterm.Screen the renderer draws on
type Screen interface {
	Size() (width, height int)
	Clear()
	Show() error
	SetCell(x, y int, cell goterm.Cell)
	DrawText(x, y int, text string, fg, bg goterm.Color, style goterm.Style)
}

var _ Screen = (*goterm.Screen)(nil)

// Default canvas units per terminal cell
const (
	DefaultScaleX = 10.0
	DefaultScaleY = 25.0
)

// Viewport maps canvas coordinates to terminal cells
type Viewport struct {
	ScaleX  float64
	ScaleY  float64
	OffsetX float64
	OffsetY float64
}

// NewViewport creates a viewport with the given scales. Non-positive
// scales fall back to the defaults.
func NewViewport(scaleX, scaleY float64) Viewport {
	if scaleX <= 0 {
		scaleX = DefaultScaleX
	}
	if scaleY <= 0 {
		scaleY = DefaultScaleY
	}
	return Viewport{ScaleX: scaleX, ScaleY: scaleY}
}

// ToCell converts a canvas position to a cell
func (v Viewport) ToCell(p workflow.Position) (int, int) {
	x := int(math.Round((p.X - v.OffsetX) / v.ScaleX))
	y := int(math.Round((p.Y - v.OffsetY) / v.ScaleY))
	return x, y
}

// PointToCell converts a menu anchor to a cell
func (v Viewport) PointToCell(p editor.Point) (int, int) {
	return v.ToCell(workflow.Position{X: p.X, Y: p.Y})
}

// ToCanvas converts a cell back to a canvas position
func (v Viewport) ToCanvas(x, y int) workflow.Position {
	return workflow.Position{
		X: float64(x)*v.ScaleX + v.OffsetX,
		Y: float64(y)*v.ScaleY + v.OffsetY,
	}
}

// Step returns the canvas distance of one cell in each direction
func (v Viewport) Step() (dx, dy float64) {
	return v.ScaleX, v.ScaleY
}

// Rect represents a rectangular region on screen
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Contains checks if a point is within the rectangle
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width &&
		y >= r.Y && y < r.Y+r.Height
}

// Center returns the middle cell of the rectangle
func (r Rect) Center() (int, int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}
