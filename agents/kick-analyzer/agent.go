package kickanalyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kick-analyzer/internal/models"
	"kick-analyzer/shared/ai"
	"kick-analyzer/shared/biomech"
	"kick-analyzer/shared/cache"
	"kick-analyzer/shared/clock"
	"kick-analyzer/shared/config"
	"kick-analyzer/shared/monitoring"
	"kick-analyzer/shared/ratelimit"
	"kick-analyzer/shared/scheduler"
	"kick-analyzer/shared/storage"

	"github.com/sirupsen/logrus"
)

const (
	processedDir = "processed"
	failedDir    = "failed"
)

// Session statuses reported to monitoring.Metrics
const (
	statusProcessed = "processed"
	statusRejected  = "rejected"
	statusError     = "error"
)

// SessionMetrics represents the metrics collected during an inbox run
type SessionMetrics struct {
	Found     int `json:"found"`
	Processed int `json:"processed"`
	Remote    int `json:"remote"`
	Fallback  int `json:"fallback"`
	Rejected  int `json:"rejected"`
	Errors    int `json:"errors"`
}

// GetSummary implements the scheduler.Metrics interface
func (m SessionMetrics) GetSummary() string {
	summary := fmt.Sprintf("found %d sessions, processed %d (%d remote, %d fallback)",
		m.Found, m.Processed, m.Remote, m.Fallback)
	if m.Rejected > 0 || m.Errors > 0 {
		summary += fmt.Sprintf(", %d rejected, %d errors", m.Rejected, m.Errors)
	}
	return summary
}

// KickAnalyzerAgent implements the scheduler.Agent interface. Each run
// drains the inbox of recorded landmark sessions.
type KickAnalyzerAgent struct {
	config  *config.Config
	logger  *logrus.Logger
	metrics *monitoring.Metrics
	clock   clock.Clock

	detector     *biomech.Detector
	generator    ai.Generator
	cache        *cache.Cache[any]
	orchestrator *ai.Orchestrator
	coach        *ai.Coach
	store        storage.Store
}

func NewKickAnalyzerAgent(cfg *config.Config, metrics *monitoring.Metrics, logger *logrus.Logger) *KickAnalyzerAgent {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}
	return &KickAnalyzerAgent{
		config:   cfg,
		logger:   logger,
		metrics:  metrics,
		clock:    clock.Real(),
		detector: biomech.NewDetector(biomech.DefaultDetectorConfig()),
	}
}

func (k *KickAnalyzerAgent) Name() string {
	return "Kick Analyzer"
}

func (k *KickAnalyzerAgent) Initialize() error {
	k.logger.Infof("Initializing %s...", k.Name())

	if k.generator == nil {
		gen, err := ai.NewGeminiGenerator(context.Background(), k.config.AI.GeminiAPIKey, k.config.AI.Model)
		switch {
		case err == nil:
			k.generator = gen
			k.logger.WithField("model", k.config.AI.Model).Info("Gemini generator initialized")
		case errors.Is(err, ai.ErrNotConfigured):
			k.logger.Warn("No Gemini API key, running with local analysis only")
		default:
			return fmt.Errorf("failed to create Gemini generator: %w", err)
		}
	}

	if k.orchestrator == nil {
		bands := biomech.DefaultBands()
		k.cache = cache.New[any](k.config.Cache.MaxEntries, k.config.Cache.MaxAge, k.clock)
		opts := ai.Options{
			Generator: k.generator,
			Limiter: ratelimit.NewLimiter(ratelimit.Config{
				MaxPerWindow: k.config.RateLimit.MaxPerWindow,
				Window:       k.config.RateLimit.Window,
				MinInterval:  k.config.RateLimit.MinInterval,
			}, k.clock, k.logger),
			Cache:    k.cache,
			Analyzer: biomech.NewAnalyzer(bands, k.clock),
			Bands:    bands,
			Policy: ai.RetryPolicy{
				MaxAttempts: k.config.AI.MaxAttempts,
				RetryDelay:  k.config.AI.RetryDelay,
			},
			Clock:    k.clock,
			Logger:   k.logger,
			Recorder: k.metrics,
		}.WithDefaults()

		k.orchestrator = ai.NewOrchestrator(opts)
		k.coach = ai.NewCoach(opts)
		k.logger.WithField("remote", k.orchestrator.RemoteEnabled()).Info("Analysis pipeline initialized")
	}

	if k.store == nil {
		store, err := k.openStore()
		if err != nil {
			return err
		}
		k.store = store
	}

	if err := os.MkdirAll(k.config.Agent.InboxDir, 0755); err != nil {
		return fmt.Errorf("failed to create inbox directory: %w", err)
	}

	return nil
}

func (k *KickAnalyzerAgent) openStore() (storage.Store, error) {
	switch k.config.Storage.Backend {
	case "redis":
		store, err := storage.NewRedisStore(k.config.Storage.Redis, k.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis session store: %w", err)
		}
		k.logger.WithField("address", k.config.Storage.Redis.Address).Info("Redis session store initialized")
		return store, nil
	default:
		store, err := storage.NewFileStore(k.config.Storage.DataDir, k.config.Storage.MaxAge)
		if err != nil {
			return nil, fmt.Errorf("failed to create session store: %w", err)
		}
		k.logger.WithField("sessions", store.Count()).Info("File session store initialized")
		return store, nil
	}
}

// Close releases the session store when it holds a connection
func (k *KickAnalyzerAgent) Close() error {
	if closer, ok := k.store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (k *KickAnalyzerAgent) RunOnce(ctx context.Context, events *scheduler.AgentEvents) error {
	startTime := time.Now()
	metrics := SessionMetrics{}

	paths, err := filepath.Glob(filepath.Join(k.config.Agent.InboxDir, "*.json"))
	if err != nil {
		if events != nil && events.OnCriticalFailure != nil {
			events.OnCriticalFailure(fmt.Errorf("failed to list inbox: %w", err), time.Since(startTime))
		}
		return fmt.Errorf("failed to list inbox: %w", err)
	}
	metrics.Found = len(paths)
	k.logger.WithField("sessions", len(paths)).Info("Scanning inbox")

	var failures []error
	for _, path := range paths {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		record, err := k.processFile(ctx, path)
		var rejected *rejectedError
		switch {
		case errors.As(err, &rejected):
			metrics.Rejected++
			k.metrics.RecordSession(statusRejected)
			k.logger.WithError(err).WithField("file", filepath.Base(path)).Warn("Rejected session file")
			if moveErr := k.move(path, failedDir); moveErr != nil {
				failures = append(failures, moveErr)
			}
		case err != nil:
			// the file stays in the inbox for the next run
			metrics.Errors++
			k.metrics.RecordSession(statusError)
			failures = append(failures, err)
			k.logger.WithError(err).WithField("file", filepath.Base(path)).Error("Failed to process session")
		default:
			metrics.Processed++
			if record.IsLocalFallback {
				metrics.Fallback++
			} else {
				metrics.Remote++
			}
			k.metrics.RecordSession(statusProcessed)
			if moveErr := k.move(path, processedDir); moveErr != nil {
				failures = append(failures, moveErr)
			}
		}
	}

	if evicted := k.cache.Sweep(); evicted > 0 {
		k.logger.WithField("evicted", evicted).Debug("Swept expired cache entries")
	}

	if len(failures) > 0 && events != nil && events.OnPartialFailure != nil {
		events.OnPartialFailure(errors.Join(failures...), time.Since(startTime))
	}

	duration := time.Since(startTime)
	if events != nil && events.OnSuccess != nil {
		events.OnSuccess(metrics, duration)
	}

	k.logger.WithFields(logrus.Fields{
		"processed": metrics.Processed,
		"rejected":  metrics.Rejected,
		"errors":    metrics.Errors,
		"duration":  duration,
	}).Info("Kick analysis run complete")

	return nil
}

// rejectedError marks a session file that can never be processed
type rejectedError struct {
	err error
}

func (e *rejectedError) Error() string { return e.err.Error() }
func (e *rejectedError) Unwrap() error { return e.err }

func (k *KickAnalyzerAgent) processFile(ctx context.Context, path string) (*models.SessionRecord, error) {
	session, err := k.readSession(path)
	if err != nil {
		return nil, err
	}

	history, err := k.store.GetRecent(ctx, k.config.Agent.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load session history: %w", err)
	}

	result := k.orchestrator.Analyze(ctx, ai.AnalysisRequest{
		KickType:  session.KickType,
		Landmarks: session.Frames,
		FPS:       session.FPS,
	})
	feedback := k.coach.Generate(ctx, result, history)

	saved, err := k.store.Save(ctx, models.NewSessionRecord(session.Athlete, result, feedback))
	if err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	k.logger.WithFields(logrus.Fields{
		"athlete":   saved.Athlete,
		"kick_type": saved.KickType,
		"overall":   saved.OverallScore,
		"grade":     saved.Grade,
		"fallback":  saved.IsLocalFallback,
	}).Info("Session analyzed")

	return saved, nil
}

func (k *KickAnalyzerAgent) readSession(path string) (*models.LandmarkSession, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var session models.LandmarkSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, &rejectedError{fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)}
	}
	if session.Athlete == "" {
		session.Athlete = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if session.KickType == "" {
		session.KickType = k.detectKick(session.Frames, filepath.Base(path))
	}
	return &session, nil
}

// detectKick labels an unlabelled session, defaulting to the roundhouse kick
// when no signature matches confidently.
func (k *KickAnalyzerAgent) detectKick(frames []models.LandmarkFrame, file string) models.KickType {
	det := k.detector.Detect(frames)
	log := k.logger.WithFields(logrus.Fields{
		"file":       file,
		"guess":      det.Kick,
		"confidence": det.Confidence,
		"foot_path":  det.FootPath,
	})
	if !det.Detected {
		log.Info("Kick type not detected, assuming roundhouse")
		return models.KickRoundhouse
	}
	log.Info("Kick type detected")
	return det.Kick
}

func (k *KickAnalyzerAgent) move(path, dir string) error {
	target := filepath.Join(k.config.Agent.InboxDir, dir)
	if err := os.MkdirAll(target, 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", dir, err)
	}
	if err := os.Rename(path, filepath.Join(target, filepath.Base(path))); err != nil {
		return fmt.Errorf("failed to move %s: %w", filepath.Base(path), err)
	}
	return nil
}
