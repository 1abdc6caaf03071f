package input

import (
	"fmt"
	"time"

	"github.com/go-vgo/robotgo"
	"github.com/pion/logging"
)

// RobotOptions tunes the pauses robotgo is given between primitives.
type RobotOptions struct {
	// Pause follows every move, click and button toggle.
	Pause time.Duration
	// ScrollPause replaces Pause for scrolling, which arrives in bursts.
	ScrollPause time.Duration
	// DragDuration is roughly how long the smooth move of DragTo takes.
	DragDuration time.Duration
	FailSafe     bool
}

// Robot is the robotgo backed Backend.
type Robot struct {
	opts RobotOptions
	log  logging.LeveledLogger
}

func NewRobot(opts RobotOptions, log logging.LeveledLogger) *Robot {
	// pauses are applied here, not inside robotgo
	robotgo.MouseSleep = 0
	return &Robot{opts: opts, log: log}
}

// guard turns a panic from the native layer into an error.
func guard(op string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("input: %s: %v", op, r)
	}
}

func (r *Robot) pause(d time.Duration) {
	if d > 0 {
		robotgo.MilliSleep(int(d / time.Millisecond))
	}
}

// checkFailSafe reports ErrFailSafe when the pointer rests on a corner.
func (r *Robot) checkFailSafe() error {
	if !r.opts.FailSafe {
		return nil
	}
	x, y := robotgo.GetMousePos()
	w, h := robotgo.GetScreenSize()
	if InCorner(x, y, w, h) {
		r.log.Warnf("failsafe: pointer at (%d, %d)", x, y)
		return ErrFailSafe
	}
	return nil
}

// InCorner reports whether (x, y) is one of the four corners of a w x h screen.
func InCorner(x, y, w, h int) bool {
	if w <= 0 || h <= 0 {
		return x == 0 && y == 0
	}
	return (x == 0 || x == w-1) && (y == 0 || y == h-1)
}

func (r *Robot) KeyDown(key string) (err error) {
	defer guard("key down", &err)
	if err := r.checkFailSafe(); err != nil {
		return err
	}
	return robotgo.KeyToggle(key, "down")
}

func (r *Robot) KeyUp(key string) (err error) {
	defer guard("key up", &err)
	return robotgo.KeyToggle(key, "up")
}

func (r *Robot) TypeString(text string) (err error) {
	defer guard("type", &err)
	if err := r.checkFailSafe(); err != nil {
		return err
	}
	robotgo.TypeStr(text)
	return nil
}

func (r *Robot) MoveTo(x, y int) (err error) {
	defer guard("move", &err)
	if err := r.checkFailSafe(); err != nil {
		return err
	}
	robotgo.Move(x, y)
	r.pause(r.opts.Pause)
	return nil
}

func (r *Robot) Click(x, y int, btn Button) (err error) {
	defer guard("click", &err)
	if err := r.checkFailSafe(); err != nil {
		return err
	}
	robotgo.Move(x, y)
	robotgo.Click(string(btn), false)
	r.pause(r.opts.Pause)
	return nil
}

func (r *Robot) MouseDown(btn Button) (err error) {
	defer guard("mouse down", &err)
	if err := r.checkFailSafe(); err != nil {
		return err
	}
	if err := robotgo.Toggle(string(btn), "down"); err != nil {
		return err
	}
	r.pause(r.opts.Pause)
	return nil
}

func (r *Robot) MouseUp(btn Button) (err error) {
	defer guard("mouse up", &err)
	if err := robotgo.Toggle(string(btn), "up"); err != nil {
		return err
	}
	r.pause(r.opts.Pause)
	return nil
}

func (r *Robot) DragTo(x, y int, btn Button) (err error) {
	defer guard("drag", &err)
	if err := r.checkFailSafe(); err != nil {
		return err
	}
	if err := robotgo.Toggle(string(btn), "down"); err != nil {
		return err
	}
	defer func() {
		if uerr := robotgo.Toggle(string(btn), "up"); err == nil {
			err = uerr
		}
	}()

	// low and high bound robotgo's per-step delay, in milliseconds
	step := float64(r.opts.DragDuration/time.Millisecond) / 100
	if !robotgo.MoveSmooth(x, y, step, step) {
		return fmt.Errorf("input: smooth move to (%d, %d) failed", x, y)
	}
	r.pause(r.opts.Pause)
	return nil
}

func (r *Robot) Scroll(x, y, amount int) (err error) {
	defer guard("scroll", &err)
	if err := r.checkFailSafe(); err != nil {
		return err
	}
	robotgo.Move(x, y)
	robotgo.Scroll(0, amount, int(r.opts.ScrollPause/time.Millisecond))
	return nil
}

func (r *Robot) ScreenSize() (w, h int, err error) {
	defer guard("screen size", &err)
	w, h = robotgo.GetScreenSize()
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("input: invalid screen size %dx%d", w, h)
	}
	return w, h, nil
}
