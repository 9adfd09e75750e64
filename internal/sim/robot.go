package sim

import (
	"math"

	"robotnav/internal/nav"
)

// velocity is the unicycle twist for one drive command, in m/s and rad/s.
type velocity struct {
	linear  float64
	angular float64
}

// velocities are the motor bridge set points for each command.
var velocities = map[nav.Command]velocity{
	nav.CmdFront:      {0.1, 0},
	nav.CmdFrontLeft:  {0.1, 0.2},
	nav.CmdFrontRight: {0.1, -0.2},
	nav.CmdLeft:       {0, 0.3},
	nav.CmdRight:      {0, -0.3},
	nav.CmdSlowLeft:   {0, 0.2},
	nav.CmdSlowRight:  {0, -0.2},
	nav.CmdStop:       {0, 0},
}

// Body is the true pose of the simulated robot. Heading is in degrees,
// counter-clockwise from +x.
type Body struct {
	X       float64
	Y       float64
	Heading float64
}

// Step integrates cmd for dt seconds.
func (b Body) Step(cmd nav.Command, dt float64) Body {
	v := velocities[cmd]
	h := b.Heading * math.Pi / 180
	mid := h + v.angular*dt/2
	return Body{
		X:       b.X + v.linear*dt*math.Cos(mid),
		Y:       b.Y + v.linear*dt*math.Sin(mid),
		Heading: normalize(b.Heading + v.angular*dt*180/math.Pi),
	}
}

// normalize wraps deg into (-180, 180].
func normalize(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg <= -180 {
		deg += 360
	} else if deg > 180 {
		deg -= 360
	}
	return deg
}
