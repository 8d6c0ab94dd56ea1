package ai

import (
	"context"
	"errors"

	"kick-analyzer/internal/models"
	"kick-analyzer/shared/biomech"
	"kick-analyzer/shared/cache"
	"kick-analyzer/shared/clock"
	"kick-analyzer/shared/ratelimit"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// AnalysisRequest is one recorded technique to analyze
type AnalysisRequest struct {
	KickType  models.KickType
	Landmarks []models.LandmarkFrame
	// Frames is the capture's frame count; zero means len(Landmarks).
	Frames int
	FPS    int
}

func (r AnalysisRequest) frameCount() int {
	return biomech.EffectiveFrames(r.Frames, len(r.Landmarks))
}

// Orchestrator answers analysis requests from the cache, the remote service
// or the local biomechanics fallback. It never fails.
type Orchestrator struct {
	dispatcher *dispatcher
	cache      *cache.Cache[any]
	limiter    *ratelimit.Limiter
	analyzer   *biomech.Analyzer
	bands      biomech.Bands
	clock      clock.Clock
	logger     *logrus.Logger
	recorder   Recorder
	inflight   singleflight.Group
}

func NewOrchestrator(opts Options) *Orchestrator {
	opts = opts.WithDefaults()
	return &Orchestrator{
		dispatcher: newDispatcher(opts),
		cache:      opts.Cache,
		limiter:    opts.Limiter,
		analyzer:   opts.Analyzer,
		bands:      opts.Bands,
		clock:      opts.Clock,
		logger:     opts.Logger,
		recorder:   opts.Recorder,
	}
}

// RemoteEnabled reports whether a remote service is configured
func (o *Orchestrator) RemoteEnabled() bool {
	return o.dispatcher.configured()
}

// Analyze returns a fully populated result. Concurrent calls for the same
// fingerprint share one computation. The caller owns the returned copy.
func (o *Orchestrator) Analyze(ctx context.Context, req AnalysisRequest) *models.AnalysisResult {
	key := AnalysisFingerprint(req)
	log := o.logger.WithFields(logrus.Fields{
		"kick_type": req.KickType,
		"frames":    req.frameCount(),
		"key":       key,
	})

	if result, ok := o.cached(key); ok {
		log.Debug("Analysis served from cache")
		o.recorder.RecordAnalysis(SourceCache)
		return result.Clone()
	}

	v, err, shared := o.inflight.Do(key, func() (any, error) {
		if result, ok := o.cached(key); ok {
			o.recorder.RecordAnalysis(SourceCache)
			return result, nil
		}
		result, err := o.compute(ctx, req, log)
		if err != nil {
			return result, err
		}
		o.cache.Put(key, result)
		return result, nil
	})
	if shared {
		log.Debug("Joined in-flight analysis")
	}
	if errors.Is(err, ErrCancelled) && ctx.Err() == nil {
		// another caller led the flight and was cancelled
		log.Debug("In-flight analysis was cancelled, analyzing again")
		return o.Analyze(ctx, req)
	}

	return v.(*models.AnalysisResult).Clone()
}

func (o *Orchestrator) cached(key string) (*models.AnalysisResult, bool) {
	v, ok := o.cache.Get(key)
	if !ok {
		return nil, false
	}
	result, ok := v.(*models.AnalysisResult)
	return result, ok
}

// compute returns ErrCancelled alongside a fallback result that must not be
// cached.
func (o *Orchestrator) compute(ctx context.Context, req AnalysisRequest, log *logrus.Entry) (*models.AnalysisResult, error) {
	if !o.dispatcher.configured() {
		log.Debug("Remote inference not configured, using local analysis")
		return o.fallback(req), nil
	}

	seq := biomech.SummarizeSequence(req.Landmarks)
	prompt := buildAnalysisPrompt(req, seq, o.bands)

	payload, err := dispatch(ctx, o.dispatcher, "analysis", prompt, ParseAnalysis)
	if errors.Is(err, ErrCancelled) {
		log.WithError(err).Info("Analysis cancelled, returning uncached local analysis")
		return o.fallback(req), err
	}
	if err != nil {
		log.WithError(err).Warn("Falling back to local biomechanics analysis")
		return o.fallback(req), nil
	}

	o.recorder.RecordAnalysis(SourceRemote)
	return &models.AnalysisResult{
		KickType:        req.KickType,
		Frames:          req.frameCount(),
		FPS:             biomech.EffectiveFPS(req.FPS),
		Timestamp:       o.clock.Now(),
		Metrics:         *payload.Metrics,
		Recommendations: payload.Recommendations,
		TechnicalNotes:  payload.TechnicalNotes,
		ConfidenceLevel: payload.ConfidenceLevel,
		IsLocalFallback: false,
	}, nil
}

func (o *Orchestrator) fallback(req AnalysisRequest) *models.AnalysisResult {
	o.recorder.RecordAnalysis(SourceFallback)
	return o.analyzer.Analyze(req.KickType, req.Landmarks, req.Frames, req.FPS)
}

// ClearCache drops every cached analysis and coaching answer
func (o *Orchestrator) ClearCache() {
	o.cache.Clear()
}

// ResetRateLimiter clears the dispatch ledger
func (o *Orchestrator) ResetRateLimiter() {
	o.limiter.Reset()
}
