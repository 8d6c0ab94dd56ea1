package biomech

import (
	"math"

	"kick-analyzer/internal/models"
)

// FootPath is the trajectory class of the kicking foot
type FootPath string

const (
	PathLinear   FootPath = "linear"
	PathVertical FootPath = "vertical"
	PathCircular FootPath = "circular"
	PathHook     FootPath = "hook"
	PathArc      FootPath = "arc"
	// PathUnknown means too few lifted frames to classify a trajectory
	PathUnknown FootPath = "unknown"
)

// Signature is the expected geometry of one kick type. Band points are
// unused; only Min and Max are read.
type Signature struct {
	Kick        models.KickType
	HipRotation Band
	KneeChamber Band
	FootPath    FootPath
}

// DetectorConfig holds the signatures and matching tolerances
type DetectorConfig struct {
	// Signatures are scored in order; the first best score wins ties.
	Signatures []Signature
	// Threshold is the minimum match fraction for a confident detection
	Threshold float64
	// HipTolerance and KneeTolerance award half credit within this many
	// degrees of a band edge.
	HipTolerance  float64
	KneeTolerance float64
	// FootLift is how much higher (normalized units) one foot must be for
	// its leg to count as kicking.
	FootLift float64
	// MinPathFrames and MaxPathFrames bound the lifted frames used to
	// classify the foot path; the most recent ones are kept.
	MinPathFrames int
	MaxPathFrames int
}

// DefaultDetectorConfig returns the standard taekwondo kick signatures
func DefaultDetectorConfig() DetectorConfig {
	span := func(min, max float64) Band { return Band{Min: min, Max: max} }
	return DetectorConfig{
		Signatures: []Signature{
			{models.KickRoundhouse, span(45, 90), span(90, 140), PathCircular},
			{models.KickFront, span(0, 30), span(90, 130), PathLinear},
			{models.KickSide, span(80, 100), span(70, 120), PathLinear},
			{models.KickBack, span(150, 180), span(60, 100), PathLinear},
			{models.KickAxe, span(0, 45), span(150, 180), PathVertical},
			{models.KickHook, span(60, 120), span(100, 160), PathHook},
			{models.KickCrescent, span(30, 60), span(140, 180), PathArc},
			{models.KickSpinningHook, span(180, 360), span(90, 150), PathCircular},
		},
		Threshold:     0.65,
		HipTolerance:  20,
		KneeTolerance: 15,
		FootLift:      0.05,
		MinPathFrames: 10,
		MaxPathFrames: 30,
	}
}

// Detection is the outcome of kick type detection. Kick holds the best
// guess even when Detected is false; it is empty when no leg was lifted.
type Detection struct {
	Kick        models.KickType
	Detected    bool
	Confidence  float64
	Side        models.Side
	HipRotation float64
	KneeChamber float64
	FootPath    FootPath
	Scores      map[models.KickType]float64
}

// Detector identifies the kick type of a landmark sequence
type Detector struct {
	cfg DetectorConfig
}

func NewDetector(cfg DetectorConfig) *Detector {
	return &Detector{cfg: cfg}
}

// Detect scores the sequence's peak lifted frame against every signature
func (d *Detector) Detect(frames []models.LandmarkFrame) Detection {
	peak, side, ok := d.peakFrame(frames)
	if !ok {
		return Detection{}
	}

	det := Detection{
		Side:        side,
		HipRotation: HipRotation(peak),
		KneeChamber: kneeChamber(peak, side),
		FootPath:    d.footPath(frames, side),
		Scores:      make(map[models.KickType]float64, len(d.cfg.Signatures)),
	}

	for _, sig := range d.cfg.Signatures {
		score := d.match(sig, det) / 3
		det.Scores[sig.Kick] = score
		if det.Kick == "" || score > det.Confidence {
			det.Kick = sig.Kick
			det.Confidence = score
		}
	}
	det.Detected = det.Kick != "" && det.Confidence >= d.cfg.Threshold
	return det
}

func (d *Detector) match(sig Signature, det Detection) float64 {
	var score float64
	score += bandCredit(sig.HipRotation, det.HipRotation, d.cfg.HipTolerance)
	score += bandCredit(sig.KneeChamber, det.KneeChamber, d.cfg.KneeTolerance)

	switch {
	case det.FootPath == sig.FootPath:
		score++
	case det.FootPath == PathCircular && (sig.FootPath == PathHook || sig.FootPath == PathArc):
		score += 0.5
	}
	return score
}

// bandCredit is 1 inside the band, 0.5 within tolerance of either edge
func bandCredit(b Band, v, tolerance float64) float64 {
	if b.contains(v) {
		return 1
	}
	if math.Abs(v-b.Min) < tolerance || math.Abs(v-b.Max) < tolerance {
		return 0.5
	}
	return 0
}

// liftedSide reports which foot is raised above the other by the lift margin
func (d *Detector) liftedSide(f models.LandmarkFrame) (models.Side, float64, bool) {
	left, right := f[models.LeftFootIndex].Y, f[models.RightFootIndex].Y
	switch {
	case left < right-d.cfg.FootLift:
		return models.SideLeft, right - left, true
	case right < left-d.cfg.FootLift:
		return models.SideRight, left - right, true
	}
	return "", 0, false
}

// peakFrame is the complete frame with the largest foot lift, earliest on ties
func (d *Detector) peakFrame(frames []models.LandmarkFrame) (models.LandmarkFrame, models.Side, bool) {
	var (
		peak    models.LandmarkFrame
		side    models.Side
		maxLift float64
		found   bool
	)
	for _, f := range frames {
		if !f.Complete() {
			continue
		}
		s, lift, ok := d.liftedSide(f)
		if ok && (!found || lift > maxLift) {
			peak, side, maxLift, found = f, s, lift, true
		}
	}
	return peak, side, found
}

func (d *Detector) footPath(frames []models.LandmarkFrame, side models.Side) FootPath {
	foot := models.RightFootIndex
	if side == models.SideLeft {
		foot = models.LeftFootIndex
	}

	var path []models.LandmarkPoint
	for _, f := range frames {
		if !f.Complete() {
			continue
		}
		if s, _, ok := d.liftedSide(f); ok && s == side {
			path = append(path, f[foot])
		}
	}
	if d.cfg.MaxPathFrames > 0 && len(path) > d.cfg.MaxPathFrames {
		path = path[len(path)-d.cfg.MaxPathFrames:]
	}
	if len(path) < d.cfg.MinPathFrames || len(path) == 0 {
		return PathUnknown
	}

	minX, maxX := path[0].X, path[0].X
	minY, maxY := path[0].Y, path[0].Y
	for _, p := range path[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	xRange, yRange := maxX-minX, maxY-minY

	switch {
	case yRange > xRange*2:
		return PathVertical
	case xRange > yRange*2:
		return PathLinear
	default:
		return PathCircular
	}
}

// HipRotation is the absolute angle in degrees between the hip line and the
// shoulder line, unfolded so spinning techniques can exceed 180.
func HipRotation(f models.LandmarkFrame) float64 {
	hip := math.Atan2(f[models.RightHip].Y-f[models.LeftHip].Y, f[models.RightHip].X-f[models.LeftHip].X)
	shoulder := math.Atan2(f[models.RightShoulder].Y-f[models.LeftShoulder].Y, f[models.RightShoulder].X-f[models.LeftShoulder].X)
	return math.Abs(hip-shoulder) * 180 / math.Pi
}

// kneeChamber is the 3D hip-knee-ankle angle of the given leg. Degenerate
// segments yield 0.
func kneeChamber(f models.LandmarkFrame, side models.Side) float64 {
	hip, knee, ankle := f[models.RightHip], f[models.RightKnee], f[models.RightAnkle]
	if side == models.SideLeft {
		hip, knee, ankle = f[models.LeftHip], f[models.LeftKnee], f[models.LeftAnkle]
	}

	v1 := [3]float64{hip.X - knee.X, hip.Y - knee.Y, hip.Z - knee.Z}
	v2 := [3]float64{ankle.X - knee.X, ankle.Y - knee.Y, ankle.Z - knee.Z}
	n1 := math.Sqrt(v1[0]*v1[0] + v1[1]*v1[1] + v1[2]*v1[2])
	n2 := math.Sqrt(v2[0]*v2[0] + v2[1]*v2[1] + v2[2]*v2[2])
	if n1 < 1e-6 || n2 < 1e-6 {
		return 0
	}

	cos := (v1[0]*v2[0] + v1[1]*v2[1] + v1[2]*v2[2]) / (n1 * n2)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}
