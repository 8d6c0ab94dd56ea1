package ai

import (
	"context"
	"errors"
	"fmt"

	"kick-analyzer/shared/biomech"
	"kick-analyzer/shared/cache"
	"kick-analyzer/shared/clock"
	"kick-analyzer/shared/ratelimit"

	"github.com/sirupsen/logrus"
)

var (
	// ErrAttemptsExhausted is returned once the retry budget is spent
	ErrAttemptsExhausted = errors.New("remote inference attempts exhausted")
	// ErrCancelled is returned when the caller's context ended mid-dispatch.
	// Results built after it must not be cached.
	ErrCancelled = errors.New("remote inference cancelled")
)

// Recorder receives pipeline counters. monitoring.Metrics implements it.
type Recorder interface {
	RecordAnalysis(source string)
	RecordCoaching(source string)
	RecordDispatch(kind, outcome string)
}

// Sources reported to the Recorder
const (
	SourceCache    = "cache"
	SourceRemote   = "remote"
	SourceFallback = "fallback"
)

type nopRecorder struct{}

func (nopRecorder) RecordAnalysis(string)         {}
func (nopRecorder) RecordCoaching(string)         {}
func (nopRecorder) RecordDispatch(string, string) {}

// Options wires the shared collaborators. The orchestrator and the coach
// built from the same Options share one cache and one limiter.
type Options struct {
	// Generator is the remote service; nil means fallback-only operation.
	Generator Generator
	Limiter   *ratelimit.Limiter
	Cache     *cache.Cache[any]
	Analyzer  *biomech.Analyzer
	Bands     biomech.Bands
	Policy    RetryPolicy
	Clock     clock.Clock
	Logger    *logrus.Logger
	Recorder  Recorder
}

// WithDefaults fills every unset collaborator. Call it once and pass the
// result to both constructors so they share state.
func (o Options) WithDefaults() Options {
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	if o.Limiter == nil {
		o.Limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig(), o.Clock, o.Logger)
	}
	if o.Cache == nil {
		o.Cache = cache.New[any](cache.DefaultMaxEntries, cache.DefaultMaxAge, o.Clock)
	}
	if o.Bands == (biomech.Bands{}) {
		o.Bands = biomech.DefaultBands()
	}
	if o.Analyzer == nil {
		o.Analyzer = biomech.NewAnalyzer(o.Bands, o.Clock)
	}
	if o.Policy.MaxAttempts <= 0 {
		o.Policy.MaxAttempts = DefaultMaxAttempts
	}
	if o.Policy.RetryDelay <= 0 {
		o.Policy.RetryDelay = DefaultRetryDelay
	}
	if o.Recorder == nil {
		o.Recorder = nopRecorder{}
	}
	return o
}

// dispatcher runs the retry state machine against the generator
type dispatcher struct {
	generator Generator
	limiter   *ratelimit.Limiter
	policy    RetryPolicy
	clock     clock.Clock
	logger    *logrus.Logger
	recorder  Recorder
}

func newDispatcher(o Options) *dispatcher {
	return &dispatcher{
		generator: o.Generator,
		limiter:   o.Limiter,
		policy:    o.Policy,
		clock:     o.Clock,
		logger:    o.Logger,
		recorder:  o.Recorder,
	}
}

func (d *dispatcher) configured() bool {
	return d != nil && d.generator != nil
}

// attempt acquires a limiter slot, calls the generator and classifies the result
func (d *dispatcher) attempt(ctx context.Context, prompt string) (string, Outcome, error) {
	if err := d.limiter.Acquire(ctx); err != nil {
		return "", OutcomeCancelled, err
	}

	text, err := d.generator.Generate(ctx, prompt)
	switch {
	case err == nil:
		return text, OutcomeSuccess, nil
	case ctx.Err() != nil:
		return "", OutcomeCancelled, err
	case IsRateLimited(err):
		return "", OutcomeRateLimited, err
	default:
		return "", OutcomeFailed, err
	}
}

// dispatch drives Idle -> Dispatching -> {Success | RetryableFailure ->
// BackoffWait -> Dispatching | TerminalFailure -> Fallback}. A payload that
// fails parse is a failed attempt like any transport error.
func dispatch[T any](ctx context.Context, d *dispatcher, kind, prompt string, parse func(string) (T, error)) (T, error) {
	var (
		zero    T
		value   T
		lastErr error
		outcome = OutcomeNone
		attempt int
		state   = StateIdle
	)

	if !d.configured() {
		return zero, ErrNotConfigured
	}

	log := d.logger.WithField("kind", kind)

	for {
		state = d.policy.Next(state, outcome, attempt)

		switch state {
		case StateDispatching:
			attempt++
			var text string
			text, outcome, lastErr = d.attempt(ctx, prompt)
			if outcome == OutcomeSuccess {
				value, lastErr = parse(text)
				if lastErr != nil {
					outcome = OutcomeFailed
				}
			}
			d.recorder.RecordDispatch(kind, outcome.String())

		case StateSuccess:
			log.WithField("attempt", attempt).Info("Remote inference succeeded")
			return value, nil

		case StateRetryableFailure:
			log.WithFields(logrus.Fields{
				"attempt": attempt,
				"outcome": outcome.String(),
			}).WithError(lastErr).Warn("Remote inference attempt failed, retrying")

		case StateBackoffWait:
			if delay := d.policy.Delay(outcome, attempt); delay > 0 {
				log.WithField("delay", delay).Info("Backing off after rate limit")
				if err := d.clock.Sleep(ctx, delay); err != nil {
					lastErr = err
				}
			}

		case StateTerminalFailure:
			log.WithFields(logrus.Fields{
				"attempts": attempt,
				"outcome":  outcome.String(),
			}).WithError(lastErr).Warn("Remote inference failed")

		case StateFallback:
			if outcome == OutcomeCancelled {
				return zero, fmt.Errorf("%w after %d attempts: %w", ErrCancelled, attempt, lastErr)
			}
			return zero, fmt.Errorf("%w after %d attempts: %v", ErrAttemptsExhausted, attempt, lastErr)

		default:
			return zero, fmt.Errorf("unexpected dispatch state %s", state)
		}
	}
}
