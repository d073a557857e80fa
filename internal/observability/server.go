package observability

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// MetricsServerConfig holds configuration for the metrics server.
type MetricsServerConfig struct {
	// Port is the port to listen on.
	Port int

	// Path is the path to serve metrics on.
	Path string

	// ReadTimeout is the read timeout for the server.
	ReadTimeout time.Duration

	// WriteTimeout is the write timeout for the server.
	WriteTimeout time.Duration
}

// DefaultMetricsServerConfig returns a MetricsServerConfig with default values.
func DefaultMetricsServerConfig() *MetricsServerConfig {
	return &MetricsServerConfig{
		Port:         9091,
		Path:         "/metrics",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// MetricsServer serves the Prometheus scrape endpoint on its own
// listener, separate from the gateway traffic port. It stays
// reachable when the main listener is saturated.
type MetricsServer struct {
	config   *MetricsServerConfig
	metrics  *Metrics
	server   *http.Server
	logger   Logger
	stopOnce sync.Once
}

// NewMetricsServer creates a new metrics server.
func NewMetricsServer(config *MetricsServerConfig, metrics *Metrics, logger Logger) *MetricsServer {
	if config == nil {
		config = DefaultMetricsServerConfig()
	}
	if logger == nil {
		logger = NopLogger()
	}

	return &MetricsServer{
		config:  config,
		metrics: metrics,
		logger:  logger,
	}
}

// Start starts the metrics server and blocks until the context is
// cancelled or the listener fails.
func (s *MetricsServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(s.config.Path, s.metrics.Handler())

	okBody := []byte(`{"status":"ok"}`)
	okHandler := func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(okBody); err != nil {
			s.logger.Debug("failed to write probe response", Error(err))
		}
	}
	mux.HandleFunc("/health", okHandler)
	mux.HandleFunc("/ready", okHandler)
	mux.HandleFunc("/live", okHandler)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      mux,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("starting metrics server",
		Int("port", s.config.Port),
		String("path", s.config.Path),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.Stop(context.Background())
	case err := <-errCh:
		return err
	}
}

// Stop stops the metrics server.
func (s *MetricsServer) Stop(ctx context.Context) error {
	var stopErr error
	s.stopOnce.Do(func() {
		s.logger.Info("stopping metrics server")
		if s.server != nil {
			stopErr = s.server.Shutdown(ctx)
		}
	})
	return stopErr
}
