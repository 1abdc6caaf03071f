// Package input is the keyboard/mouse injection surface the rest of the
// server drives. Backend hides the OS primitives; Robot implements it with
// robotgo and Dry only logs, for hosts without a display.
package input

import (
	"errors"
	"strings"
)

type Button string

const (
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonMiddle Button = "middle"
)

// ParseButton maps a wire name to a Button. The empty string means left.
func ParseButton(s string) (Button, bool) {
	switch strings.ToLower(s) {
	case "", "left":
		return ButtonLeft, true
	case "right":
		return ButtonRight, true
	case "middle", "center":
		return ButtonMiddle, true
	default:
		return "", false
	}
}

// Key names understood by every backend. Single characters ("a".."z")
// are passed through as is.
const (
	KeyBackspace = "backspace"
	KeyEnter     = "enter"
	KeyTab       = "tab"
	KeyEscape    = "esc"
	KeyDelete    = "delete"
	KeySpace     = "space"
	KeyCtrl      = "ctrl"
	KeyCmd       = "cmd"
)

// ErrFailSafe is returned when the pointer sits in a screen corner and the
// failsafe is armed. Release primitives never return it.
var ErrFailSafe = errors.New("input: failsafe triggered, pointer in screen corner")

// Backend executes primitive input actions. Implementations are not safe for
// concurrent use; callers serialize access.
type Backend interface {
	KeyDown(key string) error
	KeyUp(key string) error
	// TypeString emits the whole string; per-character emission is the
	// backend's business.
	TypeString(text string) error

	MoveTo(x, y int) error
	Click(x, y int, btn Button) error
	MouseDown(btn Button) error
	MouseUp(btn Button) error
	// DragTo presses btn at the current position, moves to (x, y) and
	// releases. The button is released even when the move fails.
	DragTo(x, y int, btn Button) error
	// Scroll scrolls vertically by amount notches at (x, y). Positive is up.
	Scroll(x, y, amount int) error

	ScreenSize() (width, height int, err error)
}
