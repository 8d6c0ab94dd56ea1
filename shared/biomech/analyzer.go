package biomech

import (
	"fmt"
	"math"

	"kick-analyzer/internal/models"
	"kick-analyzer/shared/clock"
)

// Band awards Points when a value lies in [Min, Max], inclusive
type Band struct {
	Min    float64
	Max    float64
	Points int
}

func (b Band) contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Bands holds the domain expectations used by the fallback scorer
type Bands struct {
	KneeIdeal    Band
	KneeWide     Band
	KneeOutside  int
	HipIdeal     Band
	HipWide      Band
	HipOutside   int
	HeightHigh   Band
	HeightMedium Band
	HeightLow    int

	VisibilityThreshold float64
	BalanceVisible      int
	BalanceOccluded     int

	ChamberRecommendAngle float64
	HeightRecommendMin    float64
}

// DefaultBands returns the standard scoring bands
func DefaultBands() Bands {
	return Bands{
		KneeIdeal:   Band{Min: 90, Max: 120, Points: 85},
		KneeWide:    Band{Min: 80, Max: 130, Points: 75},
		KneeOutside: 65,
		HipIdeal:    Band{Min: 80, Max: 100, Points: 85},
		HipWide:     Band{Min: 70, Max: 110, Points: 75},
		HipOutside:  65,
		// kick height only has lower bounds
		HeightHigh:   Band{Min: 60, Max: math.Inf(1), Points: 90},
		HeightMedium: Band{Min: 40, Max: math.Inf(1), Points: 75},
		HeightLow:    60,

		VisibilityThreshold: 0.7,
		BalanceVisible:      85,
		BalanceOccluded:     70,

		ChamberRecommendAngle: 90,
		HeightRecommendMin:    50,
	}
}

// Scores are the component and composite scores of the fallback path
type Scores struct {
	Knee    int
	Hip     int
	Height  int
	Form    int
	Power   int
	Balance int
	Overall int
}

// Default phase split of a kick's total duration
const (
	chamberShare    = 0.35
	extensionShare  = 0.25
	retractionShare = 0.40
	defaultFPS      = 30
)

// Analyzer produces the deterministic local analysis
type Analyzer struct {
	bands Bands
	clock clock.Clock
}

func NewAnalyzer(bands Bands, clk clock.Clock) *Analyzer {
	if clk == nil {
		clk = clock.Real()
	}
	return &Analyzer{bands: bands, clock: clk}
}

// Score applies the banding to the kicking side of a summary
func (a *Analyzer) Score(s models.LandmarkSummary) Scores {
	side := s.KickingSide()
	b := a.bands

	sc := Scores{
		Knee:   twoBand(s.KneeAngle(side), b.KneeIdeal, b.KneeWide, b.KneeOutside),
		Hip:    twoBand(s.HipAngle(side), b.HipIdeal, b.HipWide, b.HipOutside),
		Height: twoBand(s.KickHeight(side), b.HeightHigh, b.HeightMedium, b.HeightLow),
	}

	sc.Form = roundMean(sc.Knee, sc.Hip)
	sc.Power = roundMean(sc.Hip, sc.Height)
	sc.Balance = b.BalanceOccluded
	if s.AverageVisibility > b.VisibilityThreshold {
		sc.Balance = b.BalanceVisible
	}
	sc.Overall = roundMean(sc.Form, sc.Power, sc.Balance)

	return sc
}

// Recommend emits the knee, height and visibility rules in that order
func (a *Analyzer) Recommend(s models.LandmarkSummary) []models.Recommendation {
	side := s.KickingSide()
	b := a.bands
	recs := make([]models.Recommendation, 0, 3)

	if s.KneeAngle(side) < b.ChamberRecommendAngle {
		recs = append(recs, models.Recommendation{
			Type:    models.RecommendationImprovement,
			Message: fmt.Sprintf("Chamber angle is tight (%.0f°). Lift the knee higher and open the chamber before extending.", s.KneeAngle(side)),
		})
	} else {
		recs = append(recs, models.Recommendation{
			Type:    models.RecommendationGood,
			Message: "Good chamber position. The knee is lifted well before extension.",
		})
	}

	if s.KickHeight(side) < b.HeightRecommendMin {
		recs = append(recs, models.Recommendation{
			Type:    models.RecommendationImprovement,
			Message: "Kick height is limited. Work on hip flexibility to reach higher targets.",
		})
	} else {
		recs = append(recs, models.Recommendation{
			Type:    models.RecommendationGood,
			Message: "Good kick height for the technique.",
		})
	}

	if s.AverageVisibility < b.VisibilityThreshold {
		recs = append(recs, models.Recommendation{
			Type:    models.RecommendationWarning,
			Message: "Some body landmarks were occluded or out of frame. Record with the full body visible for a more reliable analysis.",
		})
	}

	return recs
}

// EffectiveFPS returns fps, or 30 when the capture did not report a rate
func EffectiveFPS(fps int) int {
	if fps <= 0 {
		return defaultFPS
	}
	return fps
}

// EffectiveFrames returns the capture's frame count, falling back to the
// sequence length and then to a single frame.
func EffectiveFrames(frameCount, sequenceLen int) int {
	if frameCount > 0 {
		return frameCount
	}
	if sequenceLen > 0 {
		return sequenceLen
	}
	return 1
}

// Analyze builds the complete fallback result for a landmark sequence.
// frameCount and fps come from the capture; non-positive values fall back
// to the sequence length and 30 fps.
func (a *Analyzer) Analyze(kickType models.KickType, frames []models.LandmarkFrame, frameCount, fps int) *models.AnalysisResult {
	seq := SummarizeSequence(frames)
	scores := a.Score(seq.Peak)

	fps = EffectiveFPS(fps)
	frameCount = EffectiveFrames(frameCount, len(frames))
	total := float64(frameCount) / float64(fps)

	return &models.AnalysisResult{
		KickType:  kickType,
		Frames:    frameCount,
		FPS:       fps,
		Timestamp: a.clock.Now(),
		Metrics: models.Metrics{
			KneeAngle:      seq.KneeAngle,
			HipFlexion:     seq.HipFlexion,
			KickHeight:     seq.KickHeight,
			ChamberTime:    seconds(total * chamberShare),
			ExtensionTime:  seconds(total * extensionShare),
			RetractionTime: seconds(total * retractionShare),
			TotalTime:      seconds(total),
			PeakVelocity:   roundTo(seq.PeakDisplacement*float64(fps), 3),
			BalanceScore:   scores.Balance,
			FormScore:      scores.Form,
			PowerScore:     scores.Power,
			OverallScore:   scores.Overall,
		},
		Recommendations: a.Recommend(seq.Peak),
		TechnicalNotes: fmt.Sprintf("Local biomechanical analysis of %s: %s leg, %d summarized frames, peak knee %.0f°, hip %.0f°, height %.0f%%.",
			kickType.DisplayName(), seq.Side, seq.Count,
			seq.Peak.KneeAngle(seq.Side), seq.Peak.HipAngle(seq.Side), seq.Peak.KickHeight(seq.Side)),
		ConfidenceLevel: models.ConfidenceMedium,
		IsLocalFallback: true,
	}
}

func twoBand(v float64, tight, wide Band, outside int) int {
	switch {
	case tight.contains(v):
		return tight.Points
	case wide.contains(v):
		return wide.Points
	default:
		return outside
	}
}

func roundMean(values ...int) int {
	var sum int
	for _, v := range values {
		sum += v
	}
	return int(math.Round(float64(sum) / float64(len(values))))
}

// seconds rounds to milliseconds, never below one millisecond
func seconds(v float64) float64 {
	return math.Max(roundTo(v, 3), 0.001)
}
