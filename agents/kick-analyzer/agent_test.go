package kickanalyzer

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"kick-analyzer/internal/models"
	"kick-analyzer/shared/clock"
	"kick-analyzer/shared/config"
	"kick-analyzer/shared/scheduler"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const remoteAnalysis = `Here you go:
{
  "metrics": {
    "kneeAngle": {"avg": 104.5, "min": 80.2, "max": 121.0},
    "hipFlexion": {"avg": 92.0, "min": 70.0, "max": 101.0},
    "kickHeight": {"avg": 64.0, "min": 30.0, "max": 72.0},
    "chamberTime": 0.21,
    "extensionTime": 0.15,
    "retractionTime": 0.24,
    "totalTime": 0.6,
    "peakVelocity": 8.4,
    "balanceScore": 91,
    "formScore": 88,
    "powerScore": 79,
    "overallScore": 90
  },
  "recommendations": [{"type": "good", "message": "Sharp chamber."}],
  "technicalNotes": "Solid roundhouse.",
  "confidenceLevel": "high"
}`

const remoteFeedback = `[{"priority": "high", "area": "Pivot", "recommendation": "Turn the support foot earlier.", "drill": "Pivot drill"}]`

// routedGenerator answers analysis and coaching prompts differently
type routedGenerator struct {
	mu    sync.Mutex
	calls int
}

func (g *routedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if strings.Contains(prompt, "SCORING CRITERIA") {
		return remoteAnalysis, nil
	}
	return remoteFeedback, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	return &config.Config{
		AI:        config.AIConfig{MaxAttempts: 3, RetryDelay: time.Minute},
		Cache:     config.CacheConfig{MaxEntries: 100, MaxAge: 30 * time.Minute},
		RateLimit: config.RateLimitConfig{MaxPerWindow: 15, Window: time.Minute, MinInterval: 4 * time.Second},
		Storage:   config.StorageConfig{Backend: "file", DataDir: filepath.Join(root, "data")},
		Agent:     config.AgentConfig{InboxDir: filepath.Join(root, "inbox"), HistoryLimit: 5},
	}
}

func kickFrame() models.LandmarkFrame {
	frame := make(models.LandmarkFrame, models.LandmarkCount)
	for i := range frame {
		frame[i] = models.LandmarkPoint{X: 0.5, Y: 0.5, Visibility: 0.9}
	}
	frame[models.RightShoulder] = models.LandmarkPoint{X: 0.5, Y: 0.0, Visibility: 0.9}
	frame[models.RightHip] = models.LandmarkPoint{X: 0.5, Y: 0.2, Visibility: 0.9}
	frame[models.RightKnee] = models.LandmarkPoint{X: 0.7, Y: 0.2, Visibility: 0.9}
	frame[models.RightAnkle] = models.LandmarkPoint{X: 0.9, Y: 0.9, Visibility: 0.9}
	frame[models.LeftShoulder] = models.LandmarkPoint{X: 0.4, Y: 0.0, Visibility: 0.9}
	frame[models.LeftHip] = models.LandmarkPoint{X: 0.4, Y: 0.2, Visibility: 0.9}
	frame[models.LeftKnee] = models.LandmarkPoint{X: 0.4, Y: 0.5, Visibility: 0.9}
	frame[models.LeftAnkle] = models.LandmarkPoint{X: 0.4, Y: 0.6, Visibility: 0.9}
	return frame
}

func writeSession(t *testing.T, dir, name string, session models.LandmarkSession) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	data, err := json.Marshal(session)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
}

func runAgent(t *testing.T, agent *KickAnalyzerAgent) SessionMetrics {
	t.Helper()
	var got SessionMetrics
	events := &scheduler.AgentEvents{
		OnSuccess: func(m scheduler.Metrics, _ time.Duration) {
			got = m.(SessionMetrics)
		},
	}
	require.NoError(t, agent.RunOnce(context.Background(), events))
	return got
}

func TestKickAnalyzerAgentName(t *testing.T) {
	agent := NewKickAnalyzerAgent(&config.Config{}, nil, quietLogger())
	assert.Equal(t, "Kick Analyzer", agent.Name())
}

func TestSessionMetricsGetSummary(t *testing.T) {
	tests := []struct {
		name     string
		metrics  SessionMetrics
		expected string
	}{
		{
			name:     "Empty inbox",
			metrics:  SessionMetrics{},
			expected: "found 0 sessions, processed 0 (0 remote, 0 fallback)",
		},
		{
			name:     "Mixed sources",
			metrics:  SessionMetrics{Found: 3, Processed: 3, Remote: 1, Fallback: 2},
			expected: "found 3 sessions, processed 3 (1 remote, 2 fallback)",
		},
		{
			name:     "With failures",
			metrics:  SessionMetrics{Found: 4, Processed: 2, Fallback: 2, Rejected: 1, Errors: 1},
			expected: "found 4 sessions, processed 2 (0 remote, 2 fallback), 1 rejected, 1 errors",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.metrics.GetSummary())
		})
	}
}

func TestRunOnceFallbackOnly(t *testing.T) {
	cfg := testConfig(t)
	agent := NewKickAnalyzerAgent(cfg, nil, quietLogger())
	require.NoError(t, agent.Initialize())

	writeSession(t, cfg.Agent.InboxDir, "ana.json", models.LandmarkSession{
		Athlete:  "Ana",
		KickType: models.KickRoundhouse,
		FPS:      30,
		Frames:   []models.LandmarkFrame{kickFrame(), kickFrame()},
	})
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Agent.InboxDir, "broken.json"), []byte("{not json"), 0644))

	metrics := runAgent(t, agent)
	assert.Equal(t, SessionMetrics{Found: 2, Processed: 1, Fallback: 1, Rejected: 1}, metrics)

	assert.FileExists(t, filepath.Join(cfg.Agent.InboxDir, processedDir, "ana.json"))
	assert.FileExists(t, filepath.Join(cfg.Agent.InboxDir, failedDir, "broken.json"))
	assert.NoFileExists(t, filepath.Join(cfg.Agent.InboxDir, "ana.json"))

	records, err := agent.store.GetRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "Ana", rec.Athlete)
	assert.Equal(t, models.KickRoundhouse, rec.KickType)
	assert.True(t, rec.IsLocalFallback)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, models.GradeFor(rec.OverallScore).Letter, rec.Grade)
	require.NotEmpty(t, rec.Feedback)
	assert.Equal(t, "Flexibility", rec.Feedback[len(rec.Feedback)-1].Area)
}

func TestRunOnceDefaultsAthleteFromFileName(t *testing.T) {
	cfg := testConfig(t)
	agent := NewKickAnalyzerAgent(cfg, nil, quietLogger())
	require.NoError(t, agent.Initialize())

	writeSession(t, cfg.Agent.InboxDir, "bo-lee.json", models.LandmarkSession{
		Frames: []models.LandmarkFrame{kickFrame()},
	})

	metrics := runAgent(t, agent)
	assert.Equal(t, 1, metrics.Processed)

	records, err := agent.store.GetRecent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "bo-lee", records[0].Athlete)
	assert.Equal(t, models.KickRoundhouse, records[0].KickType)
}

func TestRunOnceRemote(t *testing.T) {
	cfg := testConfig(t)
	agent := NewKickAnalyzerAgent(cfg, nil, quietLogger())
	gen := &routedGenerator{}
	agent.generator = gen
	agent.clock = clock.NewFake(time.Now())
	require.NoError(t, agent.Initialize())

	writeSession(t, cfg.Agent.InboxDir, "ana.json", models.LandmarkSession{
		Athlete:  "Ana",
		KickType: models.KickRoundhouse,
		FPS:      30,
		Frames:   []models.LandmarkFrame{kickFrame()},
	})

	metrics := runAgent(t, agent)
	assert.Equal(t, SessionMetrics{Found: 1, Processed: 1, Remote: 1}, metrics)
	assert.Equal(t, 2, gen.calls)

	records, err := agent.store.GetRecent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].IsLocalFallback)
	assert.Equal(t, 90, records[0].OverallScore)
	assert.Equal(t, "A+", records[0].Grade)
	require.Len(t, records[0].Feedback, 1)
	assert.Equal(t, "Pivot", records[0].Feedback[0].Area)
}

func TestRunOnceEmptyInbox(t *testing.T) {
	cfg := testConfig(t)
	agent := NewKickAnalyzerAgent(cfg, nil, quietLogger())
	require.NoError(t, agent.Initialize())

	metrics := runAgent(t, agent)
	assert.Equal(t, SessionMetrics{}, metrics)
}

// frontKickFrames lifts the right foot along a straight path with square
// hips and a 110 degree chamber.
func frontKickFrames() []models.LandmarkFrame {
	frames := make([]models.LandmarkFrame, 0, 12)
	c := 110 * math.Pi / 180
	tilt := 10 * math.Pi / 180
	for i := 0; i < 12; i++ {
		frame := kickFrame()
		frame[models.RightShoulder] = models.LandmarkPoint{X: 0.5 + 0.05*math.Cos(tilt), Y: 0.2 + 0.05*math.Sin(tilt), Visibility: 0.9}
		frame[models.LeftShoulder] = models.LandmarkPoint{X: 0.5 - 0.05*math.Cos(tilt), Y: 0.2 - 0.05*math.Sin(tilt), Visibility: 0.9}
		frame[models.LeftHip] = models.LandmarkPoint{X: 0.45, Y: 0.5, Visibility: 0.9}
		frame[models.RightHip] = models.LandmarkPoint{X: 0.55, Y: 0.5, Visibility: 0.9}
		frame[models.RightKnee] = models.LandmarkPoint{X: 0.75, Y: 0.5, Visibility: 0.9}
		frame[models.RightAnkle] = models.LandmarkPoint{X: 0.75 - 0.2*math.Cos(c), Y: 0.5 + 0.2*math.Sin(c), Visibility: 0.9}
		frame[models.LeftFootIndex] = models.LandmarkPoint{X: 0.45, Y: 0.95, Visibility: 0.9}
		frame[models.RightFootIndex] = models.LandmarkPoint{X: 0.3 + 0.04*float64(i), Y: 0.3, Visibility: 0.9}
		frames = append(frames, frame)
	}
	return frames
}

func TestRunOnceDetectsMissingKickType(t *testing.T) {
	tests := []struct {
		name     string
		session  models.LandmarkSession
		expected models.KickType
	}{
		{
			name:     "detected front kick",
			session:  models.LandmarkSession{Athlete: "Ana", FPS: 30, Frames: frontKickFrames()},
			expected: models.KickFront,
		},
		{
			name:     "no lifted foot falls back to roundhouse",
			session:  models.LandmarkSession{Athlete: "Ana", FPS: 30, Frames: []models.LandmarkFrame{kickFrame()}},
			expected: models.KickRoundhouse,
		},
		{
			name:     "explicit label is kept",
			session:  models.LandmarkSession{Athlete: "Ana", KickType: models.KickAxe, Frames: frontKickFrames()},
			expected: models.KickAxe,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			agent := NewKickAnalyzerAgent(cfg, nil, quietLogger())
			require.NoError(t, agent.Initialize())
			writeSession(t, cfg.Agent.InboxDir, "session.json", tt.session)

			metrics := runAgent(t, agent)
			require.Equal(t, 1, metrics.Processed)

			records, err := agent.store.GetRecent(context.Background(), 1)
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, tt.expected, records[0].KickType)
		})
	}
}
