package nav

import "math"

// Steering bands in degrees of heading error.
const (
	FrontBandDeg     = 5.0
	FrontSideBandDeg = 60.0
)

// BearingError returns the signed angle from the heading to the target in
// (-180, 180]. Positive means the target is to the left.
func BearingError(pose Pose, target Target) float64 {
	bearing := degrees(math.Atan2(target.Y-pose.Y, target.X-pose.X))
	variation := math.Mod(bearing-pose.HeadingDeg+540, 360) - 180
	if variation <= -180 {
		variation += 360
	}
	return variation
}

// Steer picks the direction that turns the robot towards target.
func Steer(pose Pose, target Target) Direction {
	return DirectionForError(BearingError(pose, target))
}

// DirectionForError maps a heading error onto the five sectors. Errors up
// to 5 degrees count as straight ahead; up to 60 degrees the diagonal
// commands are used instead of a full turn.
func DirectionForError(variation float64) Direction {
	switch {
	case variation >= FrontSideBandDeg:
		return Left
	case variation > FrontBandDeg:
		return FrontLeft
	case variation <= -FrontSideBandDeg:
		return Right
	case variation < -FrontBandDeg:
		return FrontRight
	default:
		return Front
	}
}

// Distance is the euclidean distance between pose and target.
func Distance(pose Pose, target Target) float64 {
	return math.Hypot(target.X-pose.X, target.Y-pose.Y)
}

// Reached reports whether pose is within threshold metres of target.
func Reached(pose Pose, target Target, threshold float64) bool {
	return Distance(pose, target) <= threshold
}
