package dispatch

import "github.com/Rixmerz/MultiComputer/internal/types"

// Clamp bounds (x, y) to [0, width-1] x [0, height-1] of g.
func Clamp(x, y int, g types.ScreenGeometry) (int, int) {
	return bound(x, g.Width), bound(y, g.Height)
}

func bound(v, size int) int {
	return max(0, min(v, size-1))
}
