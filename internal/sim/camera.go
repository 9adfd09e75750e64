package sim

import (
	"math"
	"math/rand"

	"robotnav/internal/marker"
	"robotnav/internal/nav"
)

// Camera models the forward-facing tag detector mounted on the robot rim.
type Camera struct {
	FOVDeg        float64
	RangeM        float64
	DistanceNoise float64
	AngleNoiseDeg float64
}

// Observe returns a sighting for every marker inside the field of view.
// yaw and phi are the exact inverse of nav.EstimatePose plus Gaussian
// noise from rng; a nil rng gives noiseless readings.
func (c Camera) Observe(b Body, robotRadius float64, markers []marker.Marker, rng *rand.Rand) []nav.MarkerObservation {
	h := b.Heading * math.Pi / 180
	camX := b.X + robotRadius*math.Cos(h)
	camY := b.Y + robotRadius*math.Sin(h)

	var out []nav.MarkerObservation
	for _, m := range markers {
		// offset from marker to camera
		vx, vy := camX-m.X, camY-m.Y
		d := math.Hypot(vx, vy)
		if d == 0 || d > c.RangeM {
			continue
		}
		bearing := normalize(math.Atan2(-vy, -vx)*180/math.Pi - b.Heading)
		if math.Abs(bearing) > c.FOVDeg/2 {
			continue
		}
		yaw := math.Atan2(vx, -vy) * 180 / math.Pi
		phi := normalize(yaw + 90 - b.Heading)
		if rng != nil {
			d += rng.NormFloat64() * c.DistanceNoise
			yaw += rng.NormFloat64() * c.AngleNoiseDeg
			phi += rng.NormFloat64() * c.AngleNoiseDeg
		}
		out = append(out, nav.MarkerObservation{
			MarkerID: m.ID,
			Distance: math.Max(d, 0),
			Yaw:      yaw,
			Skew:     phi,
		})
	}
	return out
}
