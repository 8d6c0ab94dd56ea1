package models

import "time"

// SessionRecord is what the pipeline hands to persistence after an analysis
type SessionRecord struct {
	ID              string             `json:"id"`
	Athlete         string             `json:"athlete"`
	KickType        KickType           `json:"kick_type"`
	RecordedAt      time.Time          `json:"recorded_at"`
	OverallScore    int                `json:"overall_score"`
	FormScore       int                `json:"form_score"`
	PowerScore      int                `json:"power_score"`
	BalanceScore    int                `json:"balance_score"`
	Grade           string             `json:"grade"`
	IsLocalFallback bool               `json:"is_local_fallback"`
	Feedback        []CoachingFeedback `json:"feedback"`
}

// NewSessionRecord extracts the metrics subset needed for trend display
func NewSessionRecord(athlete string, result *AnalysisResult, feedback []CoachingFeedback) *SessionRecord {
	return &SessionRecord{
		Athlete:         athlete,
		KickType:        result.KickType,
		RecordedAt:      result.Timestamp,
		OverallScore:    result.Metrics.OverallScore,
		FormScore:       result.Metrics.FormScore,
		PowerScore:      result.Metrics.PowerScore,
		BalanceScore:    result.Metrics.BalanceScore,
		Grade:           GradeFor(result.Metrics.OverallScore).Letter,
		IsLocalFallback: result.IsLocalFallback,
		Feedback:        feedback,
	}
}

// LandmarkSession is a recorded technique as delivered by the tracking model
type LandmarkSession struct {
	Athlete  string          `json:"athlete"`
	KickType KickType        `json:"kick_type"`
	FPS      int             `json:"fps"`
	Frames   []LandmarkFrame `json:"frames"`
}
