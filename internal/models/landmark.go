package models

// LandmarkCount is the number of points in a pose skeleton frame.
const LandmarkCount = 33

// Landmark indices of the 33-point pose schema. The order is fixed.
const (
	Nose = iota
	LeftEyeInner
	LeftEye
	LeftEyeOuter
	RightEyeInner
	RightEye
	RightEyeOuter
	LeftEar
	RightEar
	MouthLeft
	MouthRight
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftPinky
	RightPinky
	LeftIndex
	RightIndex
	LeftThumb
	RightThumb
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootIndex
	RightFootIndex
)

// LandmarkPoint is a normalized body-joint coordinate with a visibility confidence
type LandmarkPoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// LandmarkFrame holds one skeleton. Missing points are zero-valued with
// visibility 0, never omitted, so a complete frame always has LandmarkCount points.
type LandmarkFrame []LandmarkPoint

// Complete reports whether the frame carries the full schema
func (f LandmarkFrame) Complete() bool {
	return len(f) >= LandmarkCount
}

// LandmarkSummary is a compact per-frame snapshot of joint angles (degrees),
// kick heights (percent of normalized range) and mean visibility [0,1].
type LandmarkSummary struct {
	RightKneeAngle    float64 `json:"right_knee_angle"`
	LeftKneeAngle     float64 `json:"left_knee_angle"`
	RightHipAngle     float64 `json:"right_hip_angle"`
	LeftHipAngle      float64 `json:"left_hip_angle"`
	RightKickHeight   float64 `json:"right_kick_height"`
	LeftKickHeight    float64 `json:"left_kick_height"`
	AverageVisibility float64 `json:"average_visibility"`
}

// Side identifies the kicking leg
type Side string

const (
	SideRight Side = "right"
	SideLeft  Side = "left"
)

// KickingSide returns the leg with the larger kick height. Ties choose right.
func (s LandmarkSummary) KickingSide() Side {
	if s.LeftKickHeight > s.RightKickHeight {
		return SideLeft
	}
	return SideRight
}

// KneeAngle returns the knee angle of the given side
func (s LandmarkSummary) KneeAngle(side Side) float64 {
	if side == SideLeft {
		return s.LeftKneeAngle
	}
	return s.RightKneeAngle
}

// HipAngle returns the hip angle of the given side
func (s LandmarkSummary) HipAngle(side Side) float64 {
	if side == SideLeft {
		return s.LeftHipAngle
	}
	return s.RightHipAngle
}

// KickHeight returns the kick height of the given side
func (s LandmarkSummary) KickHeight(side Side) float64 {
	if side == SideLeft {
		return s.LeftKickHeight
	}
	return s.RightKickHeight
}
