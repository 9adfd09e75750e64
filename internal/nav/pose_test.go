package nav

import (
	"errors"
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestEstimatePoseAxisAligned(t *testing.T) {
	cases := []struct {
		yaw  float64
		want Pose
	}{
		{0, Pose{X: 0, Y: -1.2, HeadingDeg: 90}},
		{90, Pose{X: 1.2, Y: 0, HeadingDeg: 180}},
		{180, Pose{X: 0, Y: 1.2, HeadingDeg: -90}},
		{-180, Pose{X: 0, Y: 1.2, HeadingDeg: -90}},
		{-90, Pose{X: -1.2, Y: 0, HeadingDeg: 0}},
	}
	for _, tc := range cases {
		got, err := EstimatePose(MarkerObservation{MarkerID: 4, Distance: 1, Yaw: tc.yaw}, Point{}, 0.2)
		if err != nil {
			t.Fatalf("yaw %v: %v", tc.yaw, err)
		}
		if !near(got.X, tc.want.X) || !near(got.Y, tc.want.Y) || !near(got.HeadingDeg, tc.want.HeadingDeg) {
			t.Fatalf("yaw %v: got %+v want %+v", tc.yaw, got, tc.want)
		}
	}
}

func TestEstimatePoseOblique(t *testing.T) {
	got, err := EstimatePose(MarkerObservation{MarkerID: 0, Distance: 1, Yaw: 30}, Point{}, 0.2)
	if err != nil {
		t.Fatalf("EstimatePose: %v", err)
	}
	want := Pose{X: 0.6, Y: -1.039, HeadingDeg: 120}
	if !near(got.X, want.X) || !near(got.Y, want.Y) || !near(got.HeadingDeg, want.HeadingDeg) {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestEstimatePoseMarkerOffset(t *testing.T) {
	base, _ := EstimatePose(MarkerObservation{MarkerID: 1, Distance: 0.7, Yaw: -45, Skew: 10}, Point{}, 0.2)
	moved, _ := EstimatePose(MarkerObservation{MarkerID: 1, Distance: 0.7, Yaw: -45, Skew: 10}, Point{X: 0.5, Y: -0.5}, 0.2)
	if !near(moved.X-base.X, 0.5) || !near(moved.Y-base.Y, -0.5) || moved.HeadingDeg != base.HeadingDeg {
		t.Fatalf("marker offset not applied: base %+v moved %+v", base, moved)
	}
}

// The centre must always sit radius metres behind the camera.
func TestEstimatePoseCameraOffset(t *testing.T) {
	for yaw := -170.0; yaw <= 180; yaw += 10 {
		for _, skew := range []float64{-20, 0, 15} {
			obs := MarkerObservation{MarkerID: 0, Distance: 1, Yaw: yaw, Skew: skew}
			pose, err := EstimatePose(obs, Point{}, 0.2)
			if err != nil {
				t.Fatalf("yaw %v: %v", yaw, err)
			}
			camera := cameraPoint(Point{}, 1, round3(normalizeDeg(yaw)))
			h := radians(pose.HeadingDeg)
			wantX := camera.X - 0.2*math.Cos(h)
			wantY := camera.Y - 0.2*math.Sin(h)
			if math.Abs(pose.X-wantX) > 2e-3 || math.Abs(pose.Y-wantY) > 2e-3 {
				t.Fatalf("yaw %v skew %v: centre %+v, want (%.3f, %.3f)", yaw, skew, pose, wantX, wantY)
			}
		}
	}
}

func TestEstimatePoseHeadingRange(t *testing.T) {
	for yaw := -179.0; yaw <= 180; yaw += 7 {
		for _, skew := range []float64{-80, -30, 0, 30, 80} {
			pose, err := EstimatePose(MarkerObservation{MarkerID: 0, Distance: 0.5, Yaw: yaw, Skew: skew}, Point{}, 0.2)
			if err != nil {
				t.Fatalf("yaw %v: %v", yaw, err)
			}
			if pose.HeadingDeg <= -180 || pose.HeadingDeg > 180 {
				t.Fatalf("yaw %v skew %v: heading %v out of range", yaw, skew, pose.HeadingDeg)
			}
		}
	}
}

func TestEstimatePoseRejects(t *testing.T) {
	if _, err := EstimatePose(MarkerObservation{MarkerID: NoMarker}, Point{}, 0.2); !errors.Is(err, ErrUnknownMarker) {
		t.Fatalf("expected ErrUnknownMarker, got %v", err)
	}
	if _, err := EstimatePose(MarkerObservation{MarkerID: 2, Distance: math.NaN()}, Point{}, 0.2); !errors.Is(err, ErrNoDistance) {
		t.Fatalf("expected ErrNoDistance, got %v", err)
	}
}

func TestSelectMarker(t *testing.T) {
	obs := []MarkerObservation{
		{MarkerID: NoMarker},
		{MarkerID: 7, Distance: 0.3},
		{MarkerID: 3, Distance: 0.9},
	}
	got, ok := SelectMarker(obs)
	if !ok || got.MarkerID != 3 {
		t.Fatalf("SelectMarker = %+v, %v", got, ok)
	}
	if _, ok := SelectMarker([]MarkerObservation{{MarkerID: NoMarker}}); ok {
		t.Fatalf("expected no marker")
	}
}
