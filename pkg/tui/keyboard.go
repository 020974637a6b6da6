package tui

import (
	"fmt"
	"sort"
	"sync"
)

// Mode represents the current keyboard input mode
type Mode string

const (
	// ModeNormal selects, moves and deletes
	ModeNormal Mode = "normal"
	// ModeInsert edits a panel field or an edge label
	ModeInsert Mode = "insert"
	// ModePalette picks a node type to add
	ModePalette Mode = "palette"
	// ModeConnect picks the target of a new edge
	ModeConnect Mode = "connect"
)

// Special key names
const (
	KeyEnter     = "Enter"
	KeyEscape    = "Escape"
	KeyTab       = "Tab"
	KeyBackspace = "Backspace"
	KeyDelete    = "Delete"
	KeyUp        = "Up"
	KeyDown      = "Down"
	KeyLeft      = "Left"
	KeyRight     = "Right"
)

// KeyEvent represents a keyboard input event
type KeyEvent struct {
	Key       rune   // The character pressed
	Ctrl      bool   // Ctrl modifier
	Shift     bool   // Shift modifier
	Alt       bool   // Alt modifier
	IsSpecial bool   // Whether this is a special key
	Special   string // Special key name (Enter, Escape, Tab, etc.)
}

// Special returns the event for a named special key
func Special(name string) KeyEvent {
	return KeyEvent{IsSpecial: true, Special: name}
}

// Char returns the event for a plain character
func Char(r rune) KeyEvent {
	return KeyEvent{Key: r, Shift: r >= 'A' && r <= 'Z'}
}

// Ctrl returns the event for Ctrl plus a letter
func Ctrl(r rune) KeyEvent {
	return KeyEvent{Key: r, Ctrl: true}
}

// String returns the lookup form of the event, e.g. "Ctrl-s" or "Shift-Tab"
func (e KeyEvent) String() string {
	return keyEventToString(e)
}

// IsPrintable reports whether the event inserts a character
func (e KeyEvent) IsPrintable() bool {
	return !e.IsSpecial && !e.Ctrl && !e.Alt && e.Key >= ' '
}

// KeyHandler is a function that handles a key event
type KeyHandler func(event KeyEvent) error

// KeyBinding represents a registered keybinding
type KeyBinding struct {
	Key      KeyEvent
	Handler  KeyHandler
	Mode     Mode
	IsGlobal bool   // If true, works in all modes
	Label    string // Description for help text
}

// KeyboardHandler dispatches key events to per-mode bindings
type KeyboardHandler struct {
	mu             sync.RWMutex
	currentMode    Mode
	bindings       map[Mode]map[string]*KeyBinding
	globalBindings map[string]*KeyBinding
}

// NewKeyboardHandler creates a handler in normal mode with no bindings
func NewKeyboardHandler() *KeyboardHandler {
	kh := &KeyboardHandler{
		currentMode:    ModeNormal,
		bindings:       make(map[Mode]map[string]*KeyBinding),
		globalBindings: make(map[string]*KeyBinding),
	}
	for _, mode := range []Mode{ModeNormal, ModeInsert, ModePalette, ModeConnect} {
		kh.bindings[mode] = make(map[string]*KeyBinding)
	}
	return kh
}

// SetMode changes the current input mode
func (kh *KeyboardHandler) SetMode(mode Mode) {
	kh.mu.Lock()
	defer kh.mu.Unlock()
	kh.currentMode = mode
}

// GetMode returns the current input mode
func (kh *KeyboardHandler) GetMode() Mode {
	kh.mu.RLock()
	defer kh.mu.RUnlock()
	return kh.currentMode
}

// RegisterBinding registers a new keybinding for a specific mode
func (kh *KeyboardHandler) RegisterBinding(mode Mode, key KeyEvent, handler KeyHandler, label string) error {
	kh.mu.Lock()
	defer kh.mu.Unlock()

	modeBindings, ok := kh.bindings[mode]
	if !ok {
		return fmt.Errorf("unknown mode %q", mode)
	}
	keyStr := keyEventToString(key)
	if _, exists := modeBindings[keyStr]; exists {
		return fmt.Errorf("keybinding conflict: %s already registered in %s mode", keyStr, mode)
	}

	modeBindings[keyStr] = &KeyBinding{
		Key:     key,
		Handler: handler,
		Mode:    mode,
		Label:   label,
	}
	return nil
}

// RegisterGlobalBinding registers a keybinding that works in all modes
func (kh *KeyboardHandler) RegisterGlobalBinding(key KeyEvent, handler KeyHandler, label string) error {
	kh.mu.Lock()
	defer kh.mu.Unlock()

	keyStr := keyEventToString(key)
	if _, exists := kh.globalBindings[keyStr]; exists {
		return fmt.Errorf("global keybinding conflict: %s already registered", keyStr)
	}

	kh.globalBindings[keyStr] = &KeyBinding{
		Key:      key,
		Handler:  handler,
		IsGlobal: true,
		Label:    label,
	}
	return nil
}

// HandleKey runs the binding for event, global bindings first. It reports
// whether a binding matched. Handlers run without the handler lock held so
// they may switch modes.
func (kh *KeyboardHandler) HandleKey(event KeyEvent) (bool, error) {
	keyStr := keyEventToString(event)

	kh.mu.RLock()
	binding, ok := kh.globalBindings[keyStr]
	if !ok {
		binding, ok = kh.bindings[kh.currentMode][keyStr]
	}
	kh.mu.RUnlock()

	if !ok {
		return false, nil
	}
	return true, binding.Handler(event)
}

// GetBindings returns the bindings of a mode sorted by key
func (kh *KeyboardHandler) GetBindings(mode Mode) []*KeyBinding {
	kh.mu.RLock()
	defer kh.mu.RUnlock()

	bindings := make([]*KeyBinding, 0, len(kh.bindings[mode]))
	for _, binding := range kh.bindings[mode] {
		bindings = append(bindings, binding)
	}
	sort.Slice(bindings, func(i, j int) bool {
		return keyEventToString(bindings[i].Key) < keyEventToString(bindings[j].Key)
	})
	return bindings
}

// keyEventToString converts a KeyEvent to a string for lookup
func keyEventToString(event KeyEvent) string {
	if event.IsSpecial {
		base := event.Special
		if event.Ctrl {
			base = "Ctrl-" + base
		}
		if event.Alt {
			base = "Alt-" + base
		}
		if event.Shift {
			base = "Shift-" + base
		}
		return base
	}

	key := string(event.Key)
	if event.Ctrl {
		key = fmt.Sprintf("Ctrl-%c", event.Key)
	}
	if event.Alt {
		key = fmt.Sprintf("Alt-%c", event.Key)
	}
	if event.Shift && event.Key >= 'a' && event.Key <= 'z' {
		// Shift+letter is represented as uppercase
		key = string(event.Key - 32)
	}
	return key
}

// ParseKey converts raw terminal input into a KeyEvent
func ParseKey(buf []byte) KeyEvent {
	if len(buf) == 0 {
		return KeyEvent{}
	}

	if buf[0] == 27 {
		if len(buf) > 2 && buf[1] == '[' {
			switch buf[2] {
			case 'A':
				return Special(KeyUp)
			case 'B':
				return Special(KeyDown)
			case 'C':
				return Special(KeyRight)
			case 'D':
				return Special(KeyLeft)
			case 'Z':
				return KeyEvent{IsSpecial: true, Special: KeyTab, Shift: true}
			case '3':
				if len(buf) > 3 && buf[3] == '~' {
					return Special(KeyDelete)
				}
			}
		}
		return Special(KeyEscape)
	}

	switch buf[0] {
	case 9:
		return Special(KeyTab)
	case 13, 10:
		return Special(KeyEnter)
	case 127, 8:
		return Special(KeyBackspace)
	}

	if buf[0] < 32 {
		return Ctrl(rune(buf[0] + 'a' - 1))
	}

	r := []rune(string(buf))
	return Char(r[0])
}
