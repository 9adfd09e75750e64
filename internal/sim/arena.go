package sim

import (
	"math"

	"robotnav/internal/config"
	"robotnav/internal/marker"
)

// Arena is the walled rectangle the robot drives in.
type Arena struct {
	MinX, MinY, MaxX, MaxY float64
	Obstacles              []config.Obstacle
}

// NewArena encloses every marker with margin metres of free floor.
func NewArena(grid *marker.Grid, margin float64, obstacles []config.Obstacle) Arena {
	a := Arena{Obstacles: obstacles}
	for i, m := range grid.Markers() {
		if i == 0 {
			a.MinX, a.MaxX, a.MinY, a.MaxY = m.X, m.X, m.Y, m.Y
			continue
		}
		a.MinX, a.MaxX = math.Min(a.MinX, m.X), math.Max(a.MaxX, m.X)
		a.MinY, a.MaxY = math.Min(a.MinY, m.Y), math.Max(a.MaxY, m.Y)
	}
	a.MinX -= margin
	a.MinY -= margin
	a.MaxX += margin
	a.MaxY += margin
	return a
}

// Cast returns the distance from (x, y) along headingDeg to the first wall
// or obstacle.
func (a Arena) Cast(x, y, headingDeg float64) float64 {
	h := headingDeg * math.Pi / 180
	ux, uy := math.Cos(h), math.Sin(h)
	best := math.Inf(1)
	if ux > 0 {
		best = math.Min(best, (a.MaxX-x)/ux)
	} else if ux < 0 {
		best = math.Min(best, (a.MinX-x)/ux)
	}
	if uy > 0 {
		best = math.Min(best, (a.MaxY-y)/uy)
	} else if uy < 0 {
		best = math.Min(best, (a.MinY-y)/uy)
	}
	for _, o := range a.Obstacles {
		if t, ok := rayCircle(x, y, ux, uy, o); ok && t < best {
			best = t
		}
	}
	return math.Max(best, 0)
}

// rayCircle intersects a unit-direction ray with an obstacle.
func rayCircle(x, y, ux, uy float64, o config.Obstacle) (float64, bool) {
	cx, cy := o.X-x, o.Y-y
	b := cx*ux + cy*uy
	c := cx*cx + cy*cy - o.Radius*o.Radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	if c <= 0 {
		return 0, true
	}
	t := b - math.Sqrt(disc)
	if t < 0 {
		return 0, false
	}
	return t, true
}

// Collides reports whether a robot of the given radius at (x, y) touches a
// wall or an obstacle.
func (a Arena) Collides(x, y, radius float64) bool {
	if x-radius < a.MinX || x+radius > a.MaxX || y-radius < a.MinY || y+radius > a.MaxY {
		return true
	}
	for _, o := range a.Obstacles {
		if math.Hypot(o.X-x, o.Y-y) < o.Radius+radius {
			return true
		}
	}
	return false
}
