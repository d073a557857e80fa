package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/searchsvc/gateway/internal/config"
	"github.com/searchsvc/gateway/internal/observability"
	"github.com/searchsvc/gateway/internal/tlsconf"
)

// Listener runs the main HTTP(S) server. TLS termination is a
// startup-time choice; when enabled the certificate comes from a
// hot-reloading file provider.
type Listener struct {
	server      *http.Server
	tlsEnabled  bool
	tlsProvider *tlsconf.FileProvider
	logger      observability.Logger
}

// NewListener builds the listener from server configuration.
func NewListener(cfg config.ServerConfig, handler http.Handler, logger observability.Logger) (*Listener, error) {
	l := &Listener{
		logger: logger,
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Addr, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout.Duration(),
		WriteTimeout: cfg.WriteTimeout.Duration(),
		IdleTimeout:  cfg.IdleTimeout.Duration(),
	}

	if cfg.TLS.Enabled {
		provider, err := tlsconf.NewFileProvider(cfg.TLS.CertFile, cfg.TLS.KeyFile,
			tlsconf.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("load tls certificate: %w", err)
		}
		if cfg.TLS.WatchFiles {
			if err := provider.Watch(); err != nil {
				_ = provider.Close()
				return nil, fmt.Errorf("watch tls certificate: %w", err)
			}
		}

		tlsConfig, err := tlsconf.ServerConfig(cfg.TLS, provider)
		if err != nil {
			_ = provider.Close()
			return nil, err
		}

		l.tlsEnabled = true
		l.tlsProvider = provider
		server.TLSConfig = tlsConfig
	}

	l.server = server
	return l, nil
}

// Addr returns the configured listen address.
func (l *Listener) Addr() string {
	return l.server.Addr
}

// Serve blocks until the server stops. http.ErrServerClosed from a
// graceful shutdown is not an error.
func (l *Listener) Serve() error {
	l.logger.Info("listener starting",
		observability.String("addr", l.server.Addr),
		observability.Bool("tls", l.tlsEnabled),
	)

	var err error
	if l.tlsEnabled {
		// Certificate and key come from the provider's GetCertificate.
		err = l.server.ListenAndServeTLS("", "")
	} else {
		err = l.server.ListenAndServe()
	}

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains the server and stops the certificate watcher.
func (l *Listener) Shutdown(ctx context.Context) error {
	err := l.server.Shutdown(ctx)
	if l.tlsProvider != nil {
		if cerr := l.tlsProvider.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
