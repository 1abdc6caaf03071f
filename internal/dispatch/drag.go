package dispatch

import (
	"errors"

	"github.com/Rixmerz/MultiComputer/input"
	"github.com/Rixmerz/MultiComputer/internal/types"
)

// dragSession is the real-time drag state. The zero value is Idle.
//
//	Idle --drag_start--> Dragging(button) --drag_end--> Idle
//	Dragging --drag_move--> Dragging
//
// geometry is captured at drag_start so drag_move can clamp without
// querying the display again.
type dragSession struct {
	active   bool
	button   input.Button
	geometry types.ScreenGeometry
}

// dragStart moves before pressing so the gesture never starts from the
// previous pointer position. An unfinished drag is released first.
func (d *Dispatcher) dragStart(x, y int, btn input.Button, geo types.ScreenGeometry) error {
	if d.drag.active {
		d.log.Warnf("drag_start while %s drag active, releasing it", d.drag.button)
		if err := d.abandonDrag(); err != nil {
			return err
		}
	}
	if err := d.backend.MoveTo(x, y); err != nil {
		return err
	}
	if err := d.backend.MouseDown(btn); err != nil {
		return err
	}
	d.drag = dragSession{active: true, button: btn, geometry: geo}
	return nil
}

// dragMove only moves; while Idle that is a plain move.
func (d *Dispatcher) dragMove(x, y int) error {
	return d.backend.MoveTo(x, y)
}

// dragEnd moves to the final position and releases the session button, or
// btn when Idle. The release is attempted even if the move fails.
func (d *Dispatcher) dragEnd(x, y int, btn input.Button) error {
	if d.drag.active {
		btn = d.drag.button
	}
	moveErr := d.backend.MoveTo(x, y)
	if errors.Is(moveErr, input.ErrFailSafe) {
		return moveErr
	}
	if err := d.backend.MouseUp(btn); err != nil {
		return err
	}
	d.drag = dragSession{}
	return moveErr
}

// abandonDrag releases the held button in place and returns to Idle.
func (d *Dispatcher) abandonDrag() error {
	if !d.drag.active {
		return nil
	}
	btn := d.drag.button
	d.drag = dragSession{}
	return d.backend.MouseUp(btn)
}

// oneShotDrag performs a self-contained drag from (x, y) to (toX, toY). When
// the backend's atomic drag fails it retries by hand: move to start, press,
// move to destination, release. It reports whether the manual path ran.
func (d *Dispatcher) oneShotDrag(x, y, toX, toY int, btn input.Button) (bool, error) {
	if err := d.backend.MoveTo(x, y); err != nil {
		return false, err
	}
	err := d.backend.DragTo(toX, toY, btn)
	if err == nil || errors.Is(err, input.ErrFailSafe) {
		return false, err
	}
	d.log.Debugf("atomic drag failed, dragging manually: %v", err)

	if err := d.backend.MoveTo(x, y); err != nil {
		return true, err
	}
	if err := d.backend.MouseDown(btn); err != nil {
		return true, err
	}
	moveErr := d.backend.MoveTo(toX, toY)
	if err := d.backend.MouseUp(btn); err != nil {
		return true, err
	}
	return true, moveErr
}
