package scheduler

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"kick-analyzer/shared/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMetrics string

func (m stubMetrics) GetSummary() string { return string(m) }

type stubAgent struct {
	err     error
	partial error
	runs    int
}

func (a *stubAgent) Name() string      { return "stub" }
func (a *stubAgent) Initialize() error { return nil }

func (a *stubAgent) RunOnce(ctx context.Context, events *AgentEvents) error {
	a.runs++
	if a.err != nil {
		return a.err
	}
	if a.partial != nil {
		events.OnPartialFailure(a.partial, time.Millisecond)
	}
	events.OnSuccess(stubMetrics("2 sessions processed"), time.Millisecond)
	return nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig() *config.Config {
	return &config.Config{Schedule: "@every 1h"}
}

func TestRunOnceSuccess(t *testing.T) {
	agent := &stubAgent{partial: errors.New("one file unreadable")}
	s := New(testConfig(), agent, nil, quietLogger())

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 1, agent.runs)
	assert.True(t, s.Monitor().IsHealthy())
	assert.Contains(t, s.Monitor().GetStatusSummary(), "2 sessions processed")
}

func TestRunOnceFailure(t *testing.T) {
	agent := &stubAgent{err: errors.New("inbox missing")}
	s := New(testConfig(), agent, nil, quietLogger())

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inbox missing")
	assert.False(t, s.Monitor().IsHealthy())
}

type reportingAgent struct{ stubAgent }

func (a *reportingAgent) RunOnce(ctx context.Context, events *AgentEvents) error {
	events.OnCriticalFailure(errors.New("store offline"), time.Millisecond)
	return nil
}

func TestRunOnceCriticalEventMarksUnhealthy(t *testing.T) {
	s := New(testConfig(), &reportingAgent{}, nil, quietLogger())

	require.NoError(t, s.RunOnce(context.Background()))
	assert.False(t, s.Monitor().IsHealthy())
	assert.Contains(t, s.Monitor().GetStatusSummary(), "stub: store offline")
}
