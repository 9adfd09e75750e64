package nav

import (
	"fmt"
	"math"
)

// Point is a fixed world position in metres.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// EstimatePose reconstructs the robot pose from a single marker sighting.
//
// The detector reports the camera's bearing around the marker (yaw, with 0
// meaning the camera sits on the marker's -y side), the distance between
// them and the skew of the marker in the image (phi). The camera sits
// robotRadius ahead of the robot centre along the heading. Every
// intermediate value is rounded to millimetres so that repeated sightings
// from the same spot give identical poses.
func EstimatePose(obs MarkerObservation, marker Point, robotRadius float64) (Pose, error) {
	if !obs.Visible() {
		return Pose{}, fmt.Errorf("%w: no marker in view", ErrUnknownMarker)
	}
	if math.IsNaN(obs.Distance) || math.IsInf(obs.Distance, 0) {
		return Pose{}, fmt.Errorf("%w: marker %d", ErrNoDistance, obs.MarkerID)
	}

	dist := round3(obs.Distance)
	yaw := round3(normalizeDeg(obs.Yaw))
	phi := round3(obs.Skew)

	camera := cameraPoint(marker, dist, yaw)
	heading := round3(normalizeDeg(headingFrom(yaw, phi)))
	center := offsetToCenter(camera, heading, robotRadius)

	return Pose{X: center.X, Y: center.Y, HeadingDeg: heading}, nil
}

// cameraPoint places the camera relative to the marker. The yaw residual
// modulo 90 gives a right triangle whose legs are added to the marker
// coordinates; the axis-aligned bearings are handled without trigonometry.
func cameraPoint(marker Point, dist, yaw float64) Point {
	x, y := marker.X, marker.Y
	beta := math.Mod(math.Abs(yaw), 90)
	if beta != 0 {
		a := dist * math.Cos(radians(beta))
		b := dist * math.Sin(radians(beta))
		sign := math.Copysign(1, yaw)
		if yaw >= -90 && yaw <= 90 {
			x += sign * b
			y -= a
		} else {
			x += sign * a
			y += b
		}
	} else {
		switch yaw {
		case 0:
			y -= dist
		case 90:
			x += dist
		case 180:
			y += dist
		case -90:
			x -= dist
		}
	}
	return Point{X: round3(x), Y: round3(y)}
}

// headingFrom recovers the heading from the bearing around the marker and
// the marker skew. Facing the marker straight on (phi == 0) means heading
// yaw+90.
func headingFrom(yaw, phi float64) float64 {
	if math.Mod(math.Abs(yaw), 90) != 0 {
		gamma := math.Abs(yaw)
		if gamma > 90 {
			gamma = 180 - gamma
		}
		theta := 90 - gamma
		switch {
		case yaw > -180 && yaw < -90:
			return -theta - phi
		case yaw > 90 && yaw < 180:
			return -180 + theta - phi
		case yaw > -90 && yaw < 0:
			return theta - phi
		default: // 0 < yaw < 90
			return 180 - theta - phi
		}
	}
	switch yaw {
	case 0:
		return 90 - phi
	case 90:
		// Start from +180 or -180 depending on which side the skew
		// points. With phi == 0 both name the same direction and 180 is
		// returned.
		if phi < 0 {
			return -180 - phi
		}
		return 180 - phi
	case 180:
		return -90 - phi
	default: // -90
		return -phi
	}
}

// offsetToCenter moves from the camera back to the robot centre, radius
// metres behind it along heading.
func offsetToCenter(camera Point, heading, radius float64) Point {
	switch {
	case heading == 0:
		return Point{X: round3(camera.X - radius), Y: camera.Y}
	case math.Abs(heading) == 90:
		return Point{X: camera.X, Y: round3(camera.Y - math.Copysign(radius, heading))}
	case heading == 180:
		return Point{X: round3(camera.X + radius), Y: camera.Y}
	}

	var vertical float64
	horizontalSign := 1.0
	switch {
	case heading < -90:
		vertical = radius * math.Cos(radians(math.Abs(heading)-90))
	case heading < 0:
		vertical = radius * math.Cos(radians(90-math.Abs(heading)))
		horizontalSign = -1
	case heading < 90:
		vertical = -radius * math.Cos(radians(90-heading))
		horizontalSign = -1
	default:
		vertical = -radius * math.Cos(radians(heading-90))
	}
	horizontal := horizontalSign * math.Sqrt(math.Max(0, radius*radius-vertical*vertical))
	return Point{X: round3(camera.X + horizontal), Y: round3(camera.Y + vertical)}
}

// SelectMarker picks the visible observation with the lowest marker id.
func SelectMarker(obs []MarkerObservation) (MarkerObservation, bool) {
	var best MarkerObservation
	found := false
	for _, o := range obs {
		if !o.Visible() {
			continue
		}
		if !found || o.MarkerID < best.MarkerID {
			best = o
			found = true
		}
	}
	return best, found
}

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// normalizeDeg maps any angle into (-180, 180].
func normalizeDeg(deg float64) float64 {
	a := math.Mod(deg, 360)
	if a <= -180 {
		a += 360
	} else if a > 180 {
		a -= 360
	}
	return a
}
