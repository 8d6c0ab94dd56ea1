package ai

import "time"

// State of a remote dispatch
type State int

const (
	StateIdle State = iota
	StateDispatching
	StateSuccess
	StateRetryableFailure
	StateBackoffWait
	StateTerminalFailure
	StateFallback
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDispatching:
		return "dispatching"
	case StateSuccess:
		return "success"
	case StateRetryableFailure:
		return "retryable-failure"
	case StateBackoffWait:
		return "backoff-wait"
	case StateTerminalFailure:
		return "terminal-failure"
	case StateFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Outcome of a single dispatch attempt
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSuccess
	OutcomeRateLimited
	// OutcomeFailed covers transport errors and malformed payloads
	OutcomeFailed
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "none"
	}
}

// Default retry budget
const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 60 * time.Second
)

// RetryPolicy is the transition table of the dispatch state machine
type RetryPolicy struct {
	MaxAttempts int
	// RetryDelay is multiplied by the attempt number after a rate-limit failure
	RetryDelay time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, RetryDelay: DefaultRetryDelay}
}

// Next returns the state that follows s. outcome is only consulted when
// leaving StateDispatching; attempt is the number of dispatches made so far.
func (p RetryPolicy) Next(s State, outcome Outcome, attempt int) State {
	switch s {
	case StateIdle:
		return StateDispatching
	case StateDispatching:
		switch outcome {
		case OutcomeSuccess:
			return StateSuccess
		case OutcomeCancelled:
			return StateTerminalFailure
		}
		if attempt >= p.MaxAttempts {
			return StateTerminalFailure
		}
		return StateRetryableFailure
	case StateRetryableFailure:
		return StateBackoffWait
	case StateBackoffWait:
		return StateDispatching
	case StateTerminalFailure:
		return StateFallback
	default:
		return s
	}
}

// Delay is the extra wait before the next attempt. Only rate-limit failures
// back off; other failures rely on the limiter's spacing alone.
func (p RetryPolicy) Delay(outcome Outcome, attempt int) time.Duration {
	if outcome != OutcomeRateLimited {
		return 0
	}
	return p.RetryDelay * time.Duration(attempt)
}
