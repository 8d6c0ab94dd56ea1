package ai

import (
	"math"
	"strings"
	"testing"

	"kick-analyzer/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisFingerprintStable(t *testing.T) {
	a := AnalysisFingerprint(roundhouseRequest())
	b := AnalysisFingerprint(roundhouseRequest())

	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "analysis:"))
}

func TestAnalysisFingerprintDistinguishesFields(t *testing.T) {
	base := roundhouseRequest()
	key := AnalysisFingerprint(base)

	otherKick := roundhouseRequest()
	otherKick.KickType = models.KickFront

	otherFPS := roundhouseRequest()
	otherFPS.FPS = 60

	otherFrames := roundhouseRequest()
	otherFrames.Frames = 19

	// identical prefix, differs only in the last landmark of a later frame
	longer := roundhouseRequest()
	tail := kickFrame(105, 70, 0.95)
	longer.Landmarks = append(longer.Landmarks, tail)
	longerChanged := roundhouseRequest()
	tail2 := kickFrame(105, 70, 0.95)
	tail2[models.RightFootIndex].Visibility = 0.5
	longerChanged.Landmarks = append(longerChanged.Landmarks, tail2)

	for _, req := range []AnalysisRequest{otherKick, otherFPS, otherFrames, longer} {
		assert.NotEqual(t, key, AnalysisFingerprint(req))
	}
	assert.NotEqual(t, AnalysisFingerprint(longer), AnalysisFingerprint(longerChanged))
}

func TestCoachingFingerprint(t *testing.T) {
	result := &models.AnalysisResult{KickType: models.KickRoundhouse, Metrics: models.Metrics{FormScore: 70}}
	history := []*models.SessionRecord{{ID: "a", OverallScore: 80}}

	fingerprint := func(r *models.AnalysisResult, h []*models.SessionRecord) string {
		t.Helper()
		key, err := CoachingFingerprint(r, h)
		require.NoError(t, err)
		return key
	}

	key := fingerprint(result, history)
	assert.True(t, strings.HasPrefix(key, "coaching:"))
	assert.Equal(t, key, fingerprint(result, history))
	assert.NotEqual(t, key, fingerprint(result, nil))

	changed := result.Clone()
	changed.Metrics.FormScore = 71
	assert.NotEqual(t, key, fingerprint(changed, history))
}

func TestCoachingFingerprintRejectsNaN(t *testing.T) {
	result := &models.AnalysisResult{KickType: models.KickRoundhouse}
	result.Metrics.KneeAngle.Avg = math.NaN()

	key, err := CoachingFingerprint(result, nil)
	assert.Error(t, err)
	assert.Empty(t, key)
}
