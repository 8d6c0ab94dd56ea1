package ai

import (
	"context"
	"math"
	"sync"
	"time"

	"kick-analyzer/internal/models"
	"kick-analyzer/shared/cache"
	"kick-analyzer/shared/clock"
	"kick-analyzer/shared/ratelimit"

	"github.com/sirupsen/logrus"
)

const validAnalysisJSON = `{
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
  "recommendations": [
    {"type": "good", "message": "Sharp chamber."},
    {"type": "improvement", "message": "Rotate the support foot further."}
  ],
  "technicalNotes": "Solid roundhouse with slightly late pivot.",
  "confidenceLevel": "high"
}`

const validFeedbackJSON = `[
  {"priority": "high", "area": "Pivot", "recommendation": "Turn the support foot earlier.", "drill": "Pivot drill, 3x20"},
  {"priority": "low", "area": "Guard", "recommendation": "Keep the rear hand up.", "drill": "Mirror shadow kicks"}
]`

type reply struct {
	text string
	err  error
}

// scriptedGenerator plays back replies in order and repeats the last one
type scriptedGenerator struct {
	mu      sync.Mutex
	replies []reply
	prompts []string
	// entered and release let a test hold a call in flight
	entered chan struct{}
	release chan struct{}
}

func newScripted(replies ...reply) *scriptedGenerator {
	return &scriptedGenerator{replies: replies}
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	idx := len(g.prompts)
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	if g.entered != nil {
		g.entered <- struct{}{}
		<-g.release
	}

	if idx >= len(g.replies) {
		idx = len(g.replies) - 1
	}
	r := g.replies[idx]
	return r.text, r.err
}

func (g *scriptedGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

type countingRecorder struct {
	mu         sync.Mutex
	analyses   map[string]int
	coachings  map[string]int
	dispatches map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		analyses:   map[string]int{},
		coachings:  map[string]int{},
		dispatches: map[string]int{},
	}
}

func (r *countingRecorder) RecordAnalysis(source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyses[source]++
}

func (r *countingRecorder) RecordCoaching(source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.coachings[source]++
}

func (r *countingRecorder) RecordDispatch(kind, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatches[kind+":"+outcome]++
}

func testOptions(gen Generator) (Options, *clock.Fake) {
	clk := clock.NewFake(time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC))
	logger := newTestLogger()
	opts := Options{
		Limiter:  ratelimit.NewLimiter(ratelimit.DefaultConfig(), clk, logger),
		Cache:    cache.New[any](cache.DefaultMaxEntries, cache.DefaultMaxAge, clk),
		Policy:   DefaultRetryPolicy(),
		Clock:    clk,
		Logger:   logger,
		Recorder: newCountingRecorder(),
	}
	if gen != nil {
		opts.Generator = gen
	}
	return opts.WithDefaults(), clk
}

// kickFrame builds a complete frame with the right leg at the given geometry
func kickFrame(kneeAngle, kickHeight, visibility float64) models.LandmarkFrame {
	frame := make(models.LandmarkFrame, models.LandmarkCount)
	for i := range frame {
		frame[i] = models.LandmarkPoint{X: 0.5, Y: 0.5, Visibility: visibility}
	}
	set := func(idx int, x, y float64) {
		frame[idx] = models.LandmarkPoint{X: x, Y: y, Visibility: visibility}
	}

	h := kickHeight / 100
	bearing := (180 - kneeAngle) * math.Pi / 180

	set(models.RightShoulder, 0.5, 0.0)
	set(models.RightHip, 0.5, 0.2)
	set(models.RightKnee, 0.7, 0.2)
	set(models.RightAnkle, 0.7+h/math.Tan(bearing), 0.2+h)

	set(models.LeftShoulder, 0.45, 0.0)
	set(models.LeftHip, 0.45, 0.2)
	set(models.LeftKnee, 0.45, 0.35)
	set(models.LeftAnkle, 0.45, 0.5)
	return frame
}

func roundhouseRequest() AnalysisRequest {
	return AnalysisRequest{
		KickType:  models.KickRoundhouse,
		Landmarks: []models.LandmarkFrame{kickFrame(105, 70, 0.95)},
		Frames:    18,
		FPS:       30,
	}
}
