package monitoring

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type HealthServer struct {
	monitor *Monitor
	metrics *Metrics
	port    string
	logger  *logrus.Logger
}

func NewHealthServer(monitor *Monitor, metrics *Metrics, port string, logger *logrus.Logger) *HealthServer {
	if port == "" || port == "0" {
		port = "8080"
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &HealthServer{
		monitor: monitor,
		metrics: metrics,
		port:    port,
		logger:  logger,
	}
}

// Handler returns the routes served by the health server
func (h *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.healthHandler)
	mux.HandleFunc("/status", h.statusHandler)
	if h.metrics != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(h.metrics.Registry(), promhttp.HandlerOpts{}))
	}
	return mux
}

func (h *HealthServer) Start() {
	h.logger.WithField("port", h.port).Info("Health check server starting")
	go func() {
		if err := http.ListenAndServe(":"+h.port, h.Handler()); err != nil {
			h.logger.WithError(err).Error("Health server error")
		}
	}()
}

func (h *HealthServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if h.monitor.IsHealthy() {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK - %s", h.monitor.GetStatusSummary())
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, "Service unhealthy - %s", h.monitor.GetStatusSummary())
	}
}

func (h *HealthServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "%s", h.monitor.GetStatusSummary())
}
