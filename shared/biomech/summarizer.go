// Package biomech turns pose landmarks into joint angles, kick heights and
// the deterministic fallback analysis.
package biomech

import (
	"math"

	"kick-analyzer/internal/models"
)

// NeutralSummary is returned when a frame is absent or incomplete so
// downstream scoring stays well-defined.
var NeutralSummary = models.LandmarkSummary{
	RightKneeAngle:    90,
	LeftKneeAngle:     90,
	RightHipAngle:     85,
	LeftHipAngle:      85,
	RightKickHeight:   50,
	LeftKickHeight:    50,
	AverageVisibility: 0.5,
}

// Summarize reduces a frame to joint angles, kick heights and mean visibility
func Summarize(frame models.LandmarkFrame) models.LandmarkSummary {
	if !frame.Complete() {
		return NeutralSummary
	}

	return models.LandmarkSummary{
		RightKneeAngle:    Angle(frame[models.RightHip], frame[models.RightKnee], frame[models.RightAnkle]),
		LeftKneeAngle:     Angle(frame[models.LeftHip], frame[models.LeftKnee], frame[models.LeftAnkle]),
		RightHipAngle:     Angle(frame[models.RightShoulder], frame[models.RightHip], frame[models.RightKnee]),
		LeftHipAngle:      Angle(frame[models.LeftShoulder], frame[models.LeftHip], frame[models.LeftKnee]),
		RightKickHeight:   KickHeight(frame[models.RightHip], frame[models.RightAnkle]),
		LeftKickHeight:    KickHeight(frame[models.LeftHip], frame[models.LeftAnkle]),
		AverageVisibility: averageVisibility(frame[:models.LandmarkCount]),
	}
}

// Angle returns the angle at p2 formed by p1-p2-p3 in degrees, folded into [0,180]
func Angle(p1, p2, p3 models.LandmarkPoint) float64 {
	b1 := math.Atan2(p1.Y-p2.Y, p1.X-p2.X)
	b2 := math.Atan2(p3.Y-p2.Y, p3.X-p2.X)

	deg := math.Abs(b1-b2) * 180 / math.Pi
	if deg > 180 {
		deg = 360 - deg
	}
	return deg
}

// KickHeight is the vertical hip-to-ankle separation as a percentage of the
// normalized coordinate range. It is an extension proxy, not a metric height.
func KickHeight(hip, ankle models.LandmarkPoint) float64 {
	return math.Abs(hip.Y-ankle.Y) * 100
}

func averageVisibility(points []models.LandmarkPoint) float64 {
	if len(points) == 0 {
		return NeutralSummary.AverageVisibility
	}
	var sum float64
	for _, p := range points {
		sum += p.Visibility
	}
	return sum / float64(len(points))
}

// Sequence is the reduction of a whole landmark sequence
type Sequence struct {
	// Peak is the summary of the frame with the largest kick height
	Peak       models.LandmarkSummary
	Side       models.Side
	KneeAngle  models.Range
	HipFlexion models.Range
	KickHeight models.Range
	// PeakDisplacement is the largest frame-to-frame kicking ankle movement
	// in normalized units.
	PeakDisplacement float64
	Count            int
}

// SummarizeSequence summarizes every frame and aggregates the kicking side.
// An empty sequence reduces to a single neutral frame.
func SummarizeSequence(frames []models.LandmarkFrame) Sequence {
	summaries := make([]models.LandmarkSummary, 0, len(frames))
	for _, f := range frames {
		summaries = append(summaries, Summarize(f))
	}
	if len(summaries) == 0 {
		summaries = append(summaries, NeutralSummary)
	}

	peak := summaries[0]
	for _, s := range summaries[1:] {
		if maxHeight(s) > maxHeight(peak) {
			peak = s
		}
	}
	side := peak.KickingSide()

	seq := Sequence{
		Peak:  peak,
		Side:  side,
		Count: len(summaries),
	}
	seq.KneeAngle = rangeOf(summaries, func(s models.LandmarkSummary) float64 { return s.KneeAngle(side) })
	seq.HipFlexion = rangeOf(summaries, func(s models.LandmarkSummary) float64 { return s.HipAngle(side) })
	seq.KickHeight = rangeOf(summaries, func(s models.LandmarkSummary) float64 { return s.KickHeight(side) })
	seq.PeakDisplacement = peakDisplacement(frames, side)

	return seq
}

func maxHeight(s models.LandmarkSummary) float64 {
	return math.Max(s.RightKickHeight, s.LeftKickHeight)
}

func rangeOf(summaries []models.LandmarkSummary, value func(models.LandmarkSummary) float64) models.Range {
	r := models.Range{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for _, s := range summaries {
		v := value(s)
		sum += v
		r.Min = math.Min(r.Min, v)
		r.Max = math.Max(r.Max, v)
	}
	r.Avg = roundTo(sum/float64(len(summaries)), 1)
	r.Min = roundTo(r.Min, 1)
	r.Max = roundTo(r.Max, 1)
	return r
}

func peakDisplacement(frames []models.LandmarkFrame, side models.Side) float64 {
	ankle := models.RightAnkle
	if side == models.SideLeft {
		ankle = models.LeftAnkle
	}

	var peak float64
	var prev *models.LandmarkPoint
	for _, f := range frames {
		if !f.Complete() {
			prev = nil
			continue
		}
		p := f[ankle]
		if prev != nil {
			peak = math.Max(peak, math.Hypot(p.X-prev.X, p.Y-prev.Y))
		}
		prev = &p
	}
	return peak
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
