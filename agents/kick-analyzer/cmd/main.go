package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	kickanalyzer "kick-analyzer/agents/kick-analyzer"
	"kick-analyzer/shared/config"
	"kick-analyzer/shared/monitoring"
	"kick-analyzer/shared/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	// Create context that responds to signals
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	metrics := monitoring.NewMetrics()
	agent := kickanalyzer.NewKickAnalyzerAgent(cfg, metrics, logger)
	defer agent.Close()
	s := scheduler.New(cfg, agent, metrics, logger)

	logger.WithField("remote", cfg.RemoteEnabled()).Info("Configuration loaded")

	if len(os.Args) > 1 && os.Args[1] == "--once" {
		logger.Info("Running once...")
		if err := agent.Initialize(); err != nil {
			logger.WithError(err).Fatal("Failed to initialize agent")
		}

		if err := s.RunOnce(ctx); err != nil {
			logger.WithError(err).Fatal("Failed to run")
		}
		return
	}

	logger.Info("Starting scheduler...")
	if err := s.Start(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).Fatal("Scheduler failed")
	}
}
