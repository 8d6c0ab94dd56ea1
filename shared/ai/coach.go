package ai

import (
	"context"
	"errors"

	"kick-analyzer/internal/models"
	"kick-analyzer/shared/cache"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Feedback areas and the score below which they are flagged
const (
	AreaForm        = "Form"
	AreaPower       = "Power"
	AreaBalance     = "Balance"
	AreaFlexibility = "Flexibility"

	feedbackThreshold = 80
)

// Coach turns an analysis into prioritized coaching feedback
type Coach struct {
	dispatcher *dispatcher
	cache      *cache.Cache[any]
	logger     *logrus.Logger
	recorder   Recorder
	inflight   singleflight.Group
}

func NewCoach(opts Options) *Coach {
	opts = opts.WithDefaults()
	return &Coach{
		dispatcher: newDispatcher(opts),
		cache:      opts.Cache,
		logger:     opts.Logger,
		recorder:   opts.Recorder,
	}
}

// Generate never fails. Fallback analyses always get the rule set so no
// remote budget is spent elaborating on approximate data.
func (c *Coach) Generate(ctx context.Context, result *models.AnalysisResult, history []*models.SessionRecord) []models.CoachingFeedback {
	if result == nil || result.IsLocalFallback || !c.dispatcher.configured() {
		c.recorder.RecordCoaching(SourceFallback)
		return RuleFeedback(result)
	}

	log := c.logger.WithField("kick_type", result.KickType)

	key, err := CoachingFingerprint(result, history)
	if err != nil {
		log.WithError(err).Warn("Coaching cannot be cached, dispatching directly")
		feedback, _ := c.remote(ctx, result, history, log)
		return feedback
	}
	log = log.WithField("key", key)

	if feedback, ok := c.cached(key); ok {
		log.Debug("Coaching served from cache")
		c.recorder.RecordCoaching(SourceCache)
		return cloneFeedback(feedback)
	}

	v, err, _ := c.inflight.Do(key, func() (any, error) {
		if feedback, ok := c.cached(key); ok {
			c.recorder.RecordCoaching(SourceCache)
			return feedback, nil
		}

		feedback, err := c.remote(ctx, result, history, log)
		if err != nil {
			return feedback, err
		}
		c.cache.Put(key, feedback)
		return feedback, nil
	})
	if errors.Is(err, ErrCancelled) && ctx.Err() == nil {
		log.Debug("In-flight coaching was cancelled, generating again")
		return c.Generate(ctx, result, history)
	}

	return cloneFeedback(v.([]models.CoachingFeedback))
}

// remote dispatches the coaching prompt and falls back to the rules. The
// error is ErrCancelled when the rules stand in for a cancelled dispatch.
func (c *Coach) remote(ctx context.Context, result *models.AnalysisResult, history []*models.SessionRecord, log *logrus.Entry) ([]models.CoachingFeedback, error) {
	prompt := buildCoachingPrompt(result, history)
	feedback, err := dispatch(ctx, c.dispatcher, "coaching", prompt, ParseFeedback)
	switch {
	case errors.Is(err, ErrCancelled):
		log.WithError(err).Info("Coaching cancelled, returning uncached rules")
		c.recorder.RecordCoaching(SourceFallback)
		return RuleFeedback(result), err
	case err != nil:
		log.WithError(err).Warn("Falling back to rule-based coaching")
		c.recorder.RecordCoaching(SourceFallback)
		return RuleFeedback(result), nil
	}
	c.recorder.RecordCoaching(SourceRemote)
	return feedback, nil
}

func (c *Coach) cached(key string) ([]models.CoachingFeedback, bool) {
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	feedback, ok := v.([]models.CoachingFeedback)
	return feedback, ok
}

// RuleFeedback applies the deterministic rules in fixed order: form, power,
// balance, then an unconditional flexibility entry. A nil result is treated
// as all-zero scores.
func RuleFeedback(result *models.AnalysisResult) []models.CoachingFeedback {
	var m models.Metrics
	if result != nil {
		m = result.Metrics
	}

	feedback := make([]models.CoachingFeedback, 0, 4)

	if m.FormScore < feedbackThreshold {
		feedback = append(feedback, models.CoachingFeedback{
			Priority:       models.PriorityHigh,
			Area:           AreaForm,
			Recommendation: "Focus on chamber height and a full knee extension on every repetition.",
			Drill:          "Slow-motion chamber drill: 3 sets of 10 per leg, holding the chamber for 2 seconds before extending.",
		})
	}
	if m.PowerScore < feedbackThreshold {
		feedback = append(feedback, models.CoachingFeedback{
			Priority:       models.PriorityHigh,
			Area:           AreaPower,
			Recommendation: "Drive the hip through the target and snap the kick back to generate more power.",
			Drill:          "Heavy bag kicks: 5 rounds of 30 seconds at maximum intensity with full hip rotation.",
		})
	}
	if m.BalanceScore < feedbackThreshold {
		feedback = append(feedback, models.CoachingFeedback{
			Priority:       models.PriorityMedium,
			Area:           AreaBalance,
			Recommendation: "Stabilize the support leg and keep the guard up through the whole kick.",
			Drill:          "Single-leg stance holds: 3 sets of 30 seconds per leg, progressing to eyes closed.",
		})
	}

	feedback = append(feedback, models.CoachingFeedback{
		Priority:       models.PriorityMedium,
		Area:           AreaFlexibility,
		Recommendation: "Keep working on hip and hamstring flexibility to raise kick height safely.",
		Drill:          "Dynamic leg swings before training and 10 minutes of static hip stretches after.",
	})

	return feedback
}

func cloneFeedback(f []models.CoachingFeedback) []models.CoachingFeedback {
	return append([]models.CoachingFeedback(nil), f...)
}
