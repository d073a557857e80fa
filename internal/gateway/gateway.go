package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/searchsvc/gateway/internal/auth/apikey"
	"github.com/searchsvc/gateway/internal/auth/jwt"
	"github.com/searchsvc/gateway/internal/authz"
	"github.com/searchsvc/gateway/internal/backend"
	"github.com/searchsvc/gateway/internal/cache"
	"github.com/searchsvc/gateway/internal/config"
	"github.com/searchsvc/gateway/internal/handler"
	"github.com/searchsvc/gateway/internal/health"
	"github.com/searchsvc/gateway/internal/middleware"
	"github.com/searchsvc/gateway/internal/observability"
	"github.com/searchsvc/gateway/internal/router"
	"github.com/searchsvc/gateway/internal/secrets"
)

// Gateway is the assembled process: every component built from
// configuration and wired together, ready to serve.
type Gateway struct {
	cfg     *config.Config
	logger  observability.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer

	secretStore   secrets.Provider
	searchClient  *backend.SearchClient
	stateClient   *backend.StateClient
	responseCache cache.Cache
	checker       *health.Checker
	limiter       *middleware.Limiter

	handler       http.Handler
	listener      *Listener
	metricsServer *observability.MetricsServer
}

// Option is a functional option for the gateway.
type Option func(*Gateway)

// WithLogger sets the logger shared by every component.
func WithLogger(logger observability.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithMetrics sets the metrics registry.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = metrics
	}
}

// WithTracer sets the tracer. A nil tracer disables the tracing
// middleware.
func WithTracer(tracer *observability.Tracer) Option {
	return func(g *Gateway) {
		g.tracer = tracer
	}
}

// New builds the gateway from configuration. The context bounds
// startup work such as secret fetches.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Gateway, error) {
	g := &Gateway{
		cfg:    cfg,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.metrics == nil {
		g.metrics = observability.NewMetrics(cfg.ServiceName)
	}

	secretStore, err := secrets.NewProvider(cfg.Secrets, g.logger)
	if err != nil {
		return nil, fmt.Errorf("build secrets provider: %w", err)
	}
	g.secretStore = secretStore

	jwtSecret, err := secretStore.Get(ctx, cfg.Auth.SecretName)
	if err != nil {
		return nil, fmt.Errorf("fetch jwt secret %q: %w", cfg.Auth.SecretName, err)
	}

	verifier, err := jwt.NewVerifier(jwtSecret,
		jwt.WithAudiences(cfg.Auth.Audiences...),
		jwt.WithAlgorithms(cfg.Auth.Algorithms...),
		jwt.WithClockSkew(cfg.Auth.ClockSkew.Duration()),
		jwt.WithVerifierLogger(g.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("build token verifier: %w", err)
	}

	signer, err := jwt.NewSigner(jwtSecret,
		jwt.WithIssuer(cfg.Auth.Issuer),
		jwt.WithDefaultAudiences(cfg.Auth.Audiences...),
		jwt.WithDefaultTTL(cfg.Auth.TokenTTL.Duration()),
		jwt.WithSignerLogger(g.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("build token signer: %w", err)
	}

	if err := g.buildBackends(ctx); err != nil {
		return nil, err
	}

	if err := g.buildCache(); err != nil {
		return nil, err
	}

	g.buildChecker()

	table, err := g.buildTable(signer)
	if err != nil {
		return nil, err
	}

	chain, err := g.buildChain(table, verifier)
	if err != nil {
		return nil, err
	}
	g.handler = newEngine(chain)

	listener, err := NewListener(cfg.Server, g.handler, g.logger)
	if err != nil {
		return nil, fmt.Errorf("build listener: %w", err)
	}
	g.listener = listener

	if cfg.Metrics.Enabled {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		serverCfg := observability.DefaultMetricsServerConfig()
		serverCfg.Port = cfg.Metrics.Port
		serverCfg.Path = path
		g.metricsServer = observability.NewMetricsServer(serverCfg, g.metrics, g.logger)
	}

	return g, nil
}

// buildBackends constructs the search and state clients, resolving
// their bearer tokens from the secrets provider.
func (g *Gateway) buildBackends(ctx context.Context) error {
	searchOpts, err := g.backendOptions(ctx, g.cfg.Backends.Search)
	if err != nil {
		return fmt.Errorf("configure search backend: %w", err)
	}
	searchClient, err := backend.NewSearchClient(g.cfg.Backends.Search, searchOpts...)
	if err != nil {
		return fmt.Errorf("build search client: %w", err)
	}
	g.searchClient = searchClient

	stateOpts, err := g.backendOptions(ctx, g.cfg.Backends.State)
	if err != nil {
		return fmt.Errorf("configure state backend: %w", err)
	}
	stateClient, err := backend.NewStateClient(g.cfg.Backends.State, stateOpts...)
	if err != nil {
		return fmt.Errorf("build state client: %w", err)
	}
	g.stateClient = stateClient
	return nil
}

func (g *Gateway) backendOptions(ctx context.Context, cfg config.BackendConfig) ([]backend.Option, error) {
	opts := []backend.Option{
		backend.WithLogger(g.logger),
		backend.WithMetrics(g.metrics),
	}
	if cfg.TokenSecret != "" {
		token, err := g.secretStore.Get(ctx, cfg.TokenSecret)
		if err != nil {
			return nil, fmt.Errorf("fetch backend token %q: %w", cfg.TokenSecret, err)
		}
		opts = append(opts, backend.WithToken(string(token)))
	}
	return opts, nil
}

func (g *Gateway) buildCache() error {
	cacheMetrics := cache.NewMetrics()
	for _, collector := range cacheMetrics.Collectors() {
		if err := g.metrics.RegisterCollector(collector); err != nil {
			g.logger.Warn("cache collector registration failed",
				observability.Error(err))
		}
	}

	responseCache, err := cache.New(g.cfg.Cache, cache.Options{
		Logger:  g.logger,
		Metrics: cacheMetrics,
	})
	if err != nil {
		return fmt.Errorf("build cache: %w", err)
	}
	g.responseCache = responseCache
	return nil
}

// buildChecker registers readiness checks. Backend reachability is
// critical; the cache degrades service but does not fail it.
func (g *Gateway) buildChecker() {
	checker := health.NewChecker(health.WithCheckerLogger(g.logger))
	checker.RegisterCheck("search", g.searchClient.Ping)
	checker.RegisterCheck("state", g.stateClient.Ping)
	if g.cfg.Cache.Enabled && g.cfg.Cache.Backend == cache.BackendRedis {
		checker.RegisterCheck("cache", g.responseCache.Ping, health.NonCritical())
	}
	g.checker = checker
}

// buildTable constructs the immutable route table.
func (g *Gateway) buildTable(signer jwt.Signer) (*router.Table, error) {
	searchOpts := []handler.SearchOption{
		handler.WithSearchLogger(g.logger),
		handler.WithSearchLimits(g.cfg.Search),
	}
	if g.cfg.Cache.Enabled {
		searchOpts = append(searchOpts,
			handler.WithSearchCache(g.responseCache, g.cfg.Cache.TTL.Duration()))
	}
	searchHandler := handler.NewSearchHandler(g.searchClient, searchOpts...)

	tokenHandler := handler.NewTokenHandler(signer, g.stateClient,
		handler.WithTokenTTL(g.cfg.Auth.TokenTTL.Duration()),
		handler.WithTokenLogger(g.logger),
	)

	stateHandler := handler.NewStateHandler(g.stateClient,
		handler.WithStateLogger(g.logger),
	)

	routes := []router.Route{
		{
			Method:      http.MethodGet,
			Pattern:     "/search",
			Requirement: router.Requirement{Auth: router.AuthRequired, Scope: jwt.ScopeSearch},
			Handler:     searchHandler,
		},
		{
			Method:      http.MethodGet,
			Pattern:     "/token",
			Requirement: router.Requirement{Auth: router.AuthRefresh},
			Handler:     tokenHandler.Refresh(),
		},
		{
			Method:      http.MethodPost,
			Pattern:     "/token",
			Requirement: router.Requirement{Auth: router.AuthRequired, Scope: jwt.ScopeToken},
			Handler:     tokenHandler.Issue(),
		},
		{
			Method:      http.MethodGet,
			Pattern:     "/state/{key}",
			Requirement: router.Requirement{Auth: router.AuthRequired, Scope: jwt.ScopeStats},
			Handler:     stateHandler.Get(),
		},
		{
			Method:      http.MethodPut,
			Pattern:     "/state/{key}",
			Requirement: router.Requirement{Auth: router.AuthRequired, Scope: jwt.ScopeToken},
			Handler:     stateHandler.Put(),
		},
		{
			Method:      http.MethodDelete,
			Pattern:     "/state/{key}",
			Requirement: router.Requirement{Auth: router.AuthRequired, Scope: jwt.ScopeToken},
			Handler:     stateHandler.Delete(),
		},
		{
			Method:      http.MethodGet,
			Pattern:     "/health",
			Requirement: router.Requirement{Auth: router.AuthNone},
			Handler:     g.checker.HealthHandler(),
		},
		{
			Method:      http.MethodGet,
			Pattern:     "/ready",
			Requirement: router.Requirement{Auth: router.AuthNone},
			Handler:     g.checker.ReadyHandler(),
		},
		{
			Method:      http.MethodGet,
			Pattern:     "/live",
			Requirement: router.Requirement{Auth: router.AuthNone},
			Handler:     g.checker.LiveHandler(),
		},
	}

	table, err := router.NewTable(routes)
	if err != nil {
		return nil, fmt.Errorf("build route table: %w", err)
	}
	return table, nil
}

// buildChain composes the middleware stack around the dispatcher.
// Order matters: recovery wraps everything, identification and
// observability precede policy, and the backpressure stages guard the
// timeout-bounded dispatch.
func (g *Gateway) buildChain(table *router.Table, verifier jwt.Verifier) (http.Handler, error) {
	authOpts := []middleware.AuthOption{
		middleware.WithAuthLogger(g.logger),
		middleware.WithAuthMetrics(g.metrics),
	}
	if len(g.cfg.Auth.APIKeys) > 0 {
		keys, err := apikey.NewVerifier(g.cfg.Auth.APIKeys, apikey.WithLogger(g.logger))
		if err != nil {
			return nil, fmt.Errorf("build api key verifier: %w", err)
		}
		authOpts = append(authOpts, middleware.WithAPIKeys(keys))
	}
	if len(g.cfg.Authz.Policies) > 0 {
		engine, err := authz.NewEngine(g.cfg.Authz, authz.WithLogger(g.logger))
		if err != nil {
			return nil, fmt.Errorf("compile authorization policies: %w", err)
		}
		authOpts = append(authOpts, middleware.WithPolicies(engine))
	}

	mws := []middleware.Middleware{
		middleware.Recovery(g.logger),
		middleware.RequestID(),
	}
	if g.tracer != nil && g.cfg.Tracing.Enabled {
		mws = append(mws, observability.TracingMiddleware(g.tracer))
	}
	mws = append(mws,
		middleware.AccessLog(g.logger),
		observability.MetricsMiddleware(g.metrics),
		middleware.RateLimit(g.cfg.RateLimit,
			middleware.WithRateLimitLogger(g.logger),
			middleware.WithRateLimitMetrics(g.metrics),
			middleware.WithRateLimitTable(table),
		),
		middleware.Auth(table, verifier, authOpts...),
	)
	if g.cfg.Backpressure.Enabled {
		g.limiter = middleware.NewLimiter(g.cfg.Backpressure,
			middleware.WithLimiterLogger(g.logger))
		guardOpts := []middleware.GuardOption{
			middleware.WithGuardLogger(g.logger),
			middleware.WithGuardMetrics(g.metrics),
		}
		mws = append(mws,
			middleware.LoadShed(g.limiter, guardOpts...),
			middleware.Admission(g.limiter, guardOpts...),
		)
	}
	mws = append(mws,
		middleware.Timeout(g.cfg.Backpressure.RequestTimeout.Duration(), g.logger),
	)

	dispatcher := router.NewDispatcher(table, router.WithLogger(g.logger))
	return middleware.Chain(dispatcher, mws...), nil
}

// Handler exposes the assembled HTTP handler, mainly for tests that
// drive the full stack without a network listener.
func (g *Gateway) Handler() http.Handler {
	return g.handler
}

// Checker exposes the health checker.
func (g *Gateway) Checker() *health.Checker {
	return g.checker
}

// Run serves until the context is cancelled or a listener fails, then
// shuts everything down within the configured grace period.
func (g *Gateway) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		if err := g.listener.Serve(); err != nil {
			errCh <- fmt.Errorf("listener: %w", err)
		}
	}()

	metricsCtx, cancelMetrics := context.WithCancel(ctx)
	defer cancelMetrics()
	if g.metricsServer != nil {
		go func() {
			if err := g.metricsServer.Start(metricsCtx); err != nil {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	g.checker.SetStarted()
	g.logger.Info("gateway started",
		observability.String("addr", g.listener.Addr()),
	)

	var runErr error
	select {
	case <-ctx.Done():
		g.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		g.logger.Error("listener failed", observability.Error(runErr))
	}

	grace := g.cfg.Server.ShutdownGrace.Duration()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := g.listener.Shutdown(shutdownCtx); err != nil {
		g.logger.Error("listener shutdown failed", observability.Error(err))
		if runErr == nil {
			runErr = err
		}
	}
	if g.metricsServer != nil {
		if err := g.metricsServer.Stop(shutdownCtx); err != nil {
			g.logger.Error("metrics server shutdown failed", observability.Error(err))
		}
	}
	g.close()

	g.logger.Info("gateway stopped")
	return runErr
}

// close releases component resources after the listeners drained.
func (g *Gateway) close() {
	if g.responseCache != nil {
		if err := g.responseCache.Close(); err != nil {
			g.logger.Warn("cache close failed", observability.Error(err))
		}
	}
	if g.secretStore != nil {
		if err := g.secretStore.Close(); err != nil {
			g.logger.Warn("secrets provider close failed", observability.Error(err))
		}
	}
}
