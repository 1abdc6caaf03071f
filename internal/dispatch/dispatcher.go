// Package dispatch executes remote-control commands against an input
// backend.
//
// A Dispatcher is created once at startup and lives until the process exits.
// It owns the only mutable state of the server: the real-time drag session
// and the last-activity timestamp. Every backend call and every drag state
// change happens under one mutex, so commands arriving concurrently from
// HTTP, WebSocket and WebRTC execute one at a time in arrival order. A
// backend call that never returns stalls every later command; there is no
// timeout.
package dispatch

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Rixmerz/MultiComputer/input"
	"github.com/Rixmerz/MultiComputer/internal/types"
	"github.com/google/uuid"
	"github.com/pion/logging"
)

// Geometry supplies the current screen geometry. It must not fail.
type Geometry interface {
	Query() types.ScreenGeometry
}

// Host identifies the machine the input lands on.
type Host interface {
	IsApple() bool
}

type Options struct {
	Backend input.Backend
	Screen  Geometry
	Host    Host
	Logger  logging.LeveledLogger
	// Now defaults to time.Now.
	Now func() time.Time
}

type Dispatcher struct {
	mu      sync.Mutex
	backend input.Backend
	screen  Geometry
	drag    dragSession

	host     Host
	activity ActivityTracker
	log      logging.LeveledLogger
	now      func() time.Time

	hooksMu sync.RWMutex
	hooks   []Hook
}

func New(opts Options) *Dispatcher {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		backend: opts.Backend,
		screen:  opts.Screen,
		host:    opts.Host,
		log:     opts.Logger,
		now:     now,
	}
}

// OnEvent registers h to run after every dispatch, successful or not.
func (d *Dispatcher) OnEvent(h Hook) {
	d.hooksMu.Lock()
	defer d.hooksMu.Unlock()
	d.hooks = append(d.hooks, h)
}

// Activity exposes the last-activity tracker.
func (d *Dispatcher) Activity() *ActivityTracker { return &d.activity }

// Geometry queries the screen while holding the backend lock.
func (d *Dispatcher) Geometry() types.ScreenGeometry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.screen.Query()
}

// Dragging reports whether a real-time drag holds a button down.
func (d *Dispatcher) Dragging() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.drag.active
}

// Close releases a button still held by an unfinished real-time drag.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.drag.active {
		return nil
	}
	d.log.Warnf("releasing %s button held by unfinished drag", d.drag.button)
	return d.abandonDrag()
}

// Dispatch executes cmd and describes the outcome. It never panics on bad
// input; every failure comes back as Result.Err.
func (d *Dispatcher) Dispatch(cmd types.Command) types.Result {
	start := d.now()
	res, action := d.dispatch(cmd)
	if res.Err == nil {
		d.activity.Touch(d.now())
	}

	ev := Event{
		ID:       uuid.NewString(),
		Action:   action,
		OK:       res.Err == nil,
		FastPath: res.Err == nil && res.Shape != types.ShapeFull,
		Duration: d.now().Sub(start),
		At:       start,
	}
	if cmd != nil {
		ev.Kind = cmd.Kind()
	}
	if res.Err != nil {
		ev.Error = res.Err.Error()
	}
	d.emit(ev)
	return res
}

func (d *Dispatcher) dispatch(cmd types.Command) (types.Result, string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch c := cmd.(type) {
	case types.TypeText:
		return d.typeText(c), string(types.KindType)
	case types.SpecialKey:
		return d.specialKey(c), string(c.Key)
	case types.Shortcut:
		return d.shortcut(c), string(c.Name)
	case types.MouseAction:
		return d.mouse(c), string(c.Action)
	default:
		return invalid("unsupported command %T", cmd), ""
	}
}

func (d *Dispatcher) emit(ev Event) {
	d.hooksMu.RLock()
	hooks := d.hooks
	d.hooksMu.RUnlock()
	for _, h := range hooks {
		h(ev)
	}
}

func invalid(format string, args ...any) types.Result {
	return types.Result{Err: fmt.Errorf("%w: %s", types.ErrInvalidArgument, fmt.Sprintf(format, args...))}
}

// fail classifies a backend error. A failsafe trip also abandons any
// real-time drag so the button does not stay down.
func (d *Dispatcher) fail(err error) types.Result {
	if errors.Is(err, input.ErrFailSafe) {
		if rerr := d.abandonDrag(); rerr != nil {
			d.log.Errorf("release after failsafe: %v", rerr)
		}
		return types.Result{Err: types.ErrSafetyAbort}
	}
	return types.Result{Err: fmt.Errorf("%w: %v", types.ErrBackendFault, err)}
}

func (d *Dispatcher) typeText(c types.TypeText) types.Result {
	if c.Text == "" {
		return invalid("no text provided")
	}
	if err := d.backend.TypeString(c.Text); err != nil {
		return d.fail(err)
	}
	return types.Result{Message: "Typed: " + preview(c.Text, 50)}
}

func (d *Dispatcher) specialKey(c types.SpecialKey) types.Result {
	k, ok := specialKeys[c.Key]
	if !ok {
		return invalid("unrecognized special key %q", c.Key)
	}
	if err := d.tap(k.key); err != nil {
		return d.fail(err)
	}
	return types.Result{Message: "Special key: " + k.label}
}

func (d *Dispatcher) shortcut(c types.Shortcut) types.Result {
	sc, ok := shortcuts[c.Name]
	if !ok {
		return invalid("unrecognized shortcut %q", c.Name)
	}
	mod, modLabel := input.KeyCtrl, "Ctrl"
	if d.host.IsApple() {
		mod, modLabel = input.KeyCmd, "Cmd"
	}

	if err := d.backend.KeyDown(mod); err != nil {
		return d.fail(err)
	}
	err := d.tap(sc.key)
	if uerr := d.backend.KeyUp(mod); err == nil {
		err = uerr
	}
	if err != nil {
		return d.fail(err)
	}
	return types.Result{Message: fmt.Sprintf("Shortcut: %s + %s (%s)", modLabel, sc.keyLabel(), sc.label)}
}

// tap presses and releases key.
func (d *Dispatcher) tap(key string) error {
	if err := d.backend.KeyDown(key); err != nil {
		return err
	}
	return d.backend.KeyUp(key)
}

func (d *Dispatcher) mouse(c types.MouseAction) types.Result {
	if !c.Action.Valid() {
		return invalid("unrecognized action %q", c.Action)
	}
	if _, ok := input.ParseButton(string(c.Button)); !ok {
		return invalid("unrecognized button %q", c.Button)
	}
	btn := c.Button
	if btn == "" {
		btn = input.ButtonLeft
	}

	var geo types.ScreenGeometry
	if c.Action == types.MouseDragMove && d.drag.active {
		geo = d.drag.geometry
	} else {
		geo = d.screen.Query()
	}
	x, y := Clamp(c.X, c.Y, geo)
	res := types.Result{Coordinates: &types.Point{X: x, Y: y}}

	var err error
	switch c.Action {
	case types.MouseMove:
		err = d.backend.MoveTo(x, y)
	case types.MouseClick:
		err = d.backend.Click(x, y, btn)
		res.Message = fmt.Sprintf("Mouse %s click at (%d, %d)", btn, x, y)
	case types.MouseScroll:
		err = d.backend.Scroll(x, y, c.Amount)
	case types.MouseDrag:
		toX, toY := Clamp(c.ToX, c.ToY, geo)
		res.To = &types.Point{X: toX, Y: toY}
		var manual bool
		manual, err = d.oneShotDrag(x, y, toX, toY, btn)
		how := ""
		if manual {
			how = " (manual)"
		}
		res.Message = fmt.Sprintf("Mouse drag%s from (%d, %d) to (%d, %d)", how, x, y, toX, toY)
	case types.MouseDragStart:
		err = d.dragStart(x, y, btn, geo)
		res.Message = fmt.Sprintf("Drag start at (%d, %d)", x, y)
	case types.MouseDragMove:
		err = d.dragMove(x, y)
	case types.MouseDragEnd:
		err = d.dragEnd(x, y, btn)
		res.Message = fmt.Sprintf("Drag end at (%d, %d)", x, y)
	}
	if err != nil {
		return d.fail(err)
	}

	if c.Action.FastPath() {
		if c.Action == types.MouseDragMove {
			return types.Result{Shape: types.ShapeEmpty}
		}
		return types.Result{Shape: types.ShapeAck}
	}
	return res
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// HandleFrame decodes one stream frame, dispatches it and renders the reply.
// It returns nil when the command answers with no body.
func (d *Dispatcher) HandleFrame(data []byte) []byte {
	id, cmd, err := types.DecodeFrame(data)
	if err != nil {
		return types.ErrorReply(id, err)
	}
	return types.Reply(id, d.Dispatch(cmd))
}
