package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"kick-analyzer/shared/config"
	"kick-analyzer/shared/monitoring"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Metrics is the per-run result an agent reports on success
type Metrics interface {
	GetSummary() string
}

// AgentEvents lets an agent report outcomes while a run is in progress
type AgentEvents struct {
	OnSuccess         func(metrics Metrics, duration time.Duration)
	OnPartialFailure  func(err error, duration time.Duration)
	OnCriticalFailure func(err error, duration time.Duration)
}

// Agent is a batch job driven by the scheduler
type Agent interface {
	Name() string
	RunOnce(ctx context.Context, events *AgentEvents) error
	Initialize() error
}

// Scheduler runs one agent on a cron schedule and serves its health
type Scheduler struct {
	config  *config.Config
	monitor *monitoring.Monitor
	metrics *monitoring.Metrics
	agent   Agent
	cron    *cron.Cron
	logger  *logrus.Logger
}

func New(cfg *config.Config, agent Agent, metrics *monitoring.Metrics, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}

	// a tick that lands while a batch is still draining is dropped
	skipBusy := cron.SkipIfStillRunning(cron.PrintfLogger(logger))

	return &Scheduler{
		config:  cfg,
		monitor: monitoring.NewMonitor(logger),
		metrics: metrics,
		agent:   agent,
		logger:  logger,
		cron:    cron.New(cron.WithSeconds(), cron.WithChain(skipBusy)),
	}
}

// Monitor exposes the run health tracker
func (s *Scheduler) Monitor() *monitoring.Monitor {
	return s.monitor
}

// Start initializes the agent, serves health and metrics, and blocks running
// batches until ctx ends.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.agent.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize agent: %w", err)
	}

	port := strconv.Itoa(s.config.Monitoring.HealthPort)
	monitoring.NewHealthServer(s.monitor, s.metrics, port, s.logger).Start()

	if _, err := s.cron.AddFunc(s.config.Schedule, s.tick(ctx)); err != nil {
		return fmt.Errorf("failed to schedule %q: %w", s.config.Schedule, err)
	}

	log := s.logger.WithFields(logrus.Fields{
		"agent":    s.agent.Name(),
		"schedule": s.config.Schedule,
	})
	log.Info("Scheduler started")
	s.cron.Start()

	<-ctx.Done()
	<-s.cron.Stop().Done()
	log.Info("Scheduler stopped")
	return ctx.Err()
}

func (s *Scheduler) tick(ctx context.Context) func() {
	return func() {
		if err := s.RunOnce(ctx); err != nil {
			s.logger.WithError(err).WithField("agent", s.agent.Name()).Error("Scheduled batch failed")
		}
	}
}

// RunOnce executes a single batch and records its outcome on the monitor
func (s *Scheduler) RunOnce(ctx context.Context) error {
	name := s.agent.Name()
	started := time.Now()
	s.logger.WithField("agent", name).Info("Batch starting")

	if err := s.agent.RunOnce(ctx, s.events(name)); err != nil {
		s.monitor.RecordCriticalFailure(fmt.Errorf("%s failed: %w", name, err), time.Since(started))
		return fmt.Errorf("%s batch failed: %w", name, err)
	}
	return nil
}

func (s *Scheduler) events(name string) *AgentEvents {
	return &AgentEvents{
		OnSuccess: func(m Metrics, d time.Duration) {
			s.monitor.RecordSuccess(m.GetSummary(), d)
		},
		OnPartialFailure: func(err error, d time.Duration) {
			s.monitor.RecordPartialFailure(fmt.Errorf("%s: %w", name, err), d)
		},
		OnCriticalFailure: func(err error, d time.Duration) {
			s.monitor.RecordCriticalFailure(fmt.Errorf("%s: %w", name, err), d)
		},
	}
}
