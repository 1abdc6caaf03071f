// Package screen answers "how big is the display" for coordinate clamping
// and the /screen endpoint.
package screen

import (
	"fmt"
	"image"

	"github.com/Rixmerz/MultiComputer/internal/types"
	"github.com/kbinani/screenshot"
	"github.com/pion/logging"
)

// Sizer reports the primary screen size. input.Backend satisfies it.
type Sizer interface {
	ScreenSize() (width, height int, err error)
}

// Displays enumerates attached monitors.
type Displays interface {
	Count() int
	Bounds(i int) image.Rectangle
}

type screenshotDisplays struct{}

func (screenshotDisplays) Count() int                   { return screenshot.NumActiveDisplays() }
func (screenshotDisplays) Bounds(i int) image.Rectangle { return screenshot.GetDisplayBounds(i) }

// Screenshot enumerates monitors through kbinani/screenshot.
func Screenshot() Displays { return screenshotDisplays{} }

// Provider queries the geometry on every call; nothing is cached.
type Provider struct {
	size     Sizer
	displays Displays
	log      logging.LeveledLogger
}

func NewProvider(size Sizer, displays Displays, log logging.LeveledLogger) *Provider {
	return &Provider{size: size, displays: displays, log: log}
}

// Query never fails: any problem yields types.FallbackGeometry.
func (p *Provider) Query() types.ScreenGeometry {
	w, h, err := p.size.ScreenSize()
	if err != nil || w <= 0 || h <= 0 {
		p.log.Warnf("screen size unavailable, using fallback: %v", err)
		return types.FallbackGeometry()
	}
	return types.ScreenGeometry{Width: w, Height: h, Monitors: p.monitors(w, h)}
}

func (p *Provider) monitors(w, h int) (mons []types.Monitor) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Warnf("monitor enumeration failed: %v", r)
			mons = nil
		}
		if len(mons) == 0 {
			mons = []types.Monitor{{ID: 1, Name: "Primary Monitor", Width: w, Height: h, Primary: true}}
		}
	}()

	n := p.displays.Count()
	primary := -1
	for i := 0; i < n; i++ {
		b := p.displays.Bounds(i)
		if b.Empty() {
			continue
		}
		if primary < 0 && b.Min == (image.Point{}) {
			primary = len(mons)
		}
		mons = append(mons, types.Monitor{
			ID:     i + 1,
			Name:   fmt.Sprintf("Monitor %d", i+1),
			X:      b.Min.X,
			Y:      b.Min.Y,
			Width:  b.Dx(),
			Height: b.Dy(),
		})
	}
	if len(mons) > 0 {
		if primary < 0 {
			primary = 0
		}
		mons[primary].Primary = true
		mons[primary].Name = "Primary Monitor"
	}
	return mons
}
