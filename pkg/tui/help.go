package tui

import (
	"fmt"

	"github.com/dshills/goterm"
)

// helpLines lists the bindings of mode, global ones last
func helpLines(kh *KeyboardHandler, mode Mode) []string {
	var lines []string
	for _, b := range kh.GetBindings(mode) {
		lines = append(lines, fmt.Sprintf("%-10s %s", displayKey(b.Key), b.Label))
	}
	lines = append(lines, fmt.Sprintf("%-10s %s", "Ctrl-c", "Quit"))
	return lines
}

func displayKey(k KeyEvent) string {
	switch s := k.String(); s {
	case " ":
		return "Space"
	default:
		return s
	}
}

func (r *CanvasRenderer) drawHelp(lines []string, width, height int) {
	rect := Rect{Width: 48, Height: min(len(lines)+2, height-1)}
	rect.X = max(0, (width-rect.Width)/2)
	rect.Y = max(0, (height-1-rect.Height)/2)

	r.fill(rect, r.theme.PanelBg)
	r.frame(rect, "Keys", r.theme.Accent, r.theme.PanelBg, false)
	for i, line := range lines {
		if i >= rect.Height-2 {
			break
		}
		r.text(rect.X+2, rect.Y+1+i, truncate(line, rect.Width-4), r.theme.Text, r.theme.PanelBg, goterm.StyleNone)
	}
}
