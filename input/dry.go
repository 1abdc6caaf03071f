package input

import (
	"errors"

	"github.com/pion/logging"
)

var errNoDisplay = errors.New("input: dry backend has no display")

// Dry logs every primitive instead of injecting it. Useful on headless
// hosts and when developing the client.
type Dry struct {
	log logging.LeveledLogger
}

func NewDry(log logging.LeveledLogger) *Dry { return &Dry{log: log} }

func (d *Dry) KeyDown(key string) error {
	d.log.Infof("dry: key down %q", key)
	return nil
}

func (d *Dry) KeyUp(key string) error {
	d.log.Infof("dry: key up %q", key)
	return nil
}

func (d *Dry) TypeString(text string) error {
	d.log.Infof("dry: type %d chars", len([]rune(text)))
	return nil
}

func (d *Dry) MoveTo(x, y int) error {
	d.log.Tracef("dry: move (%d, %d)", x, y)
	return nil
}

func (d *Dry) Click(x, y int, btn Button) error {
	d.log.Infof("dry: %s click (%d, %d)", btn, x, y)
	return nil
}

func (d *Dry) MouseDown(btn Button) error {
	d.log.Infof("dry: %s down", btn)
	return nil
}

func (d *Dry) MouseUp(btn Button) error {
	d.log.Infof("dry: %s up", btn)
	return nil
}

func (d *Dry) DragTo(x, y int, btn Button) error {
	d.log.Infof("dry: %s drag to (%d, %d)", btn, x, y)
	return nil
}

func (d *Dry) Scroll(x, y, amount int) error {
	d.log.Tracef("dry: scroll %d at (%d, %d)", amount, x, y)
	return nil
}

func (d *Dry) ScreenSize() (int, int, error) { return 0, 0, errNoDisplay }
