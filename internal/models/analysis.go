package models

import "time"

// Confidence levels attached to an analysis result
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Recommendation types
const (
	RecommendationGood        = "good"
	RecommendationImprovement = "improvement"
	RecommendationWarning     = "warning"
)

// Feedback priorities
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Range is an avg/min/max triple over a sequence
type Range struct {
	Avg float64 `json:"avg"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Metrics holds the kinematic measurements and integer scores in [0,100].
// Times are in seconds.
type Metrics struct {
	KneeAngle      Range   `json:"kneeAngle"`
	HipFlexion     Range   `json:"hipFlexion"`
	KickHeight     Range   `json:"kickHeight"`
	ChamberTime    float64 `json:"chamberTime"`
	ExtensionTime  float64 `json:"extensionTime"`
	RetractionTime float64 `json:"retractionTime"`
	TotalTime      float64 `json:"totalTime"`
	PeakVelocity   float64 `json:"peakVelocity"`
	BalanceScore   int     `json:"balanceScore"`
	FormScore      int     `json:"formScore"`
	PowerScore     int     `json:"powerScore"`
	OverallScore   int     `json:"overallScore"`
}

type Recommendation struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// AnalysisResult is the unified answer of the remote and fallback paths
type AnalysisResult struct {
	KickType        KickType         `json:"kickType"`
	Frames          int              `json:"frames"`
	FPS             int              `json:"fps"`
	Timestamp       time.Time        `json:"timestamp"`
	Metrics         Metrics          `json:"metrics"`
	Recommendations []Recommendation `json:"recommendations"`
	TechnicalNotes  string           `json:"technicalNotes"`
	ConfidenceLevel string           `json:"confidenceLevel"`
	IsLocalFallback bool             `json:"isLocalFallback"`
}

// Clone returns a copy that shares no slices with the receiver
func (r *AnalysisResult) Clone() *AnalysisResult {
	if r == nil {
		return nil
	}
	c := *r
	if r.Recommendations != nil {
		c.Recommendations = append([]Recommendation(nil), r.Recommendations...)
	}
	return &c
}

// CoachingFeedback is one prioritized coaching recommendation
type CoachingFeedback struct {
	Priority       string `json:"priority"`
	Area           string `json:"area"`
	Recommendation string `json:"recommendation"`
	Drill          string `json:"drill"`
}
