package types

import "github.com/Rixmerz/MultiComputer/input"

// Kind names a command family; it doubles as the stream frame "type".
type Kind string

const (
	KindType     Kind = "type"
	KindSpecial  Kind = "special"
	KindShortcut Kind = "shortcut"
	KindMouse    Kind = "mouse"
)

// Command is one remote-control request. The concrete types below are the
// only implementations.
type Command interface {
	Kind() Kind
}

// TypeText types Text as-is.
type TypeText struct {
	Text string
}

// SpecialKey presses and releases a single named key.
type SpecialKey struct {
	Key SpecialKeyName
}

// Shortcut fires platform modifier + character.
type Shortcut struct {
	Name ShortcutName
}

// MouseAction is a pointer operation at absolute screen coordinates. ToX/ToY
// only matter for drag and Amount only for scroll.
type MouseAction struct {
	Action MouseOp
	X, Y   int
	Button input.Button
	ToX    int
	ToY    int
	Amount int
}

func (TypeText) Kind() Kind    { return KindType }
func (SpecialKey) Kind() Kind  { return KindSpecial }
func (Shortcut) Kind() Kind    { return KindShortcut }
func (MouseAction) Kind() Kind { return KindMouse }

type SpecialKeyName string

const (
	KeyBackspace SpecialKeyName = "backspace"
	KeyEnter     SpecialKeyName = "enter"
	KeyTab       SpecialKeyName = "tab"
	KeyEscape    SpecialKeyName = "escape"
	KeyDelete    SpecialKeyName = "delete"
	KeySpace     SpecialKeyName = "space"
)

type ShortcutName string

const (
	ShortcutSelectAll ShortcutName = "select_all"
	ShortcutCopy      ShortcutName = "copy"
	ShortcutPaste     ShortcutName = "paste"
	ShortcutCut       ShortcutName = "cut"
	ShortcutUndo      ShortcutName = "undo"
	ShortcutRedo      ShortcutName = "redo"
	ShortcutSave      ShortcutName = "save"
	ShortcutFind      ShortcutName = "find"
	ShortcutNew       ShortcutName = "new"
	ShortcutOpen      ShortcutName = "open"
	ShortcutPrint     ShortcutName = "print"
	ShortcutRefresh   ShortcutName = "refresh"
)

type MouseOp string

const (
	MouseMove      MouseOp = "move"
	MouseClick     MouseOp = "click"
	MouseDrag      MouseOp = "drag"
	MouseDragStart MouseOp = "drag_start"
	MouseDragMove  MouseOp = "drag_move"
	MouseDragEnd   MouseOp = "drag_end"
	MouseScroll    MouseOp = "scroll"
)

var (
	specialKeys = map[SpecialKeyName]bool{
		KeyBackspace: true, KeyEnter: true, KeyTab: true,
		KeyEscape: true, KeyDelete: true, KeySpace: true,
	}
	shortcuts = map[ShortcutName]bool{
		ShortcutSelectAll: true, ShortcutCopy: true, ShortcutPaste: true,
		ShortcutCut: true, ShortcutUndo: true, ShortcutRedo: true,
		ShortcutSave: true, ShortcutFind: true, ShortcutNew: true,
		ShortcutOpen: true, ShortcutPrint: true, ShortcutRefresh: true,
	}
	mouseOps = map[MouseOp]bool{
		MouseMove: true, MouseClick: true, MouseDrag: true,
		MouseDragStart: true, MouseDragMove: true, MouseDragEnd: true,
		MouseScroll: true,
	}
)

func (k SpecialKeyName) Valid() bool { return specialKeys[k] }
func (s ShortcutName) Valid() bool   { return shortcuts[s] }
func (m MouseOp) Valid() bool        { return mouseOps[m] }

// FastPath reports whether op answers with the minimal acknowledgement.
func (m MouseOp) FastPath() bool {
	return m == MouseMove || m == MouseScroll || m == MouseDragMove
}

// Monitor describes one attached display.
type Monitor struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Primary bool   `json:"primary"`
}

// ScreenGeometry is the size of the primary screen plus every monitor.
type ScreenGeometry struct {
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Monitors []Monitor `json:"monitors"`
}

// FallbackGeometry is used whenever the display cannot be queried.
func FallbackGeometry() ScreenGeometry {
	return ScreenGeometry{
		Width:  1920,
		Height: 1080,
		Monitors: []Monitor{{
			ID: 1, Name: "Primary Monitor (Fallback)",
			Width: 1920, Height: 1080, Primary: true,
		}},
	}
}

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Shape selects how much of a Result goes on the wire.
type Shape uint8

const (
	// ShapeFull carries a message and, for mouse actions, coordinates.
	ShapeFull Shape = iota
	// ShapeAck is a bare {"status":"success"}.
	ShapeAck
	// ShapeEmpty has no body at all.
	ShapeEmpty
)

// Result is the outcome of one dispatched command.
type Result struct {
	Err         error
	Shape       Shape
	Message     string
	Coordinates *Point
	To          *Point
}
