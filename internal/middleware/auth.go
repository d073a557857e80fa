package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/searchsvc/gateway/internal/auth"
	"github.com/searchsvc/gateway/internal/auth/apikey"
	"github.com/searchsvc/gateway/internal/auth/jwt"
	"github.com/searchsvc/gateway/internal/authz"
	"github.com/searchsvc/gateway/internal/observability"
	"github.com/searchsvc/gateway/internal/router"
	"github.com/searchsvc/gateway/internal/util"
)

const bearerPrefix = "Bearer "

// authGuard verifies request credentials against the matched route's
// requirement before the request reaches the backpressure guards.
type authGuard struct {
	table    *router.Table
	verifier jwt.Verifier
	apiKeys  *apikey.Verifier
	policies authz.Engine
	logger   observability.Logger
	metrics  *observability.Metrics
}

// AuthOption is a functional option for the auth middleware.
type AuthOption func(*authGuard)

// WithAuthLogger sets the logger.
func WithAuthLogger(logger observability.Logger) AuthOption {
	return func(g *authGuard) {
		g.logger = logger
	}
}

// WithAuthMetrics sets the metrics sink.
func WithAuthMetrics(metrics *observability.Metrics) AuthOption {
	return func(g *authGuard) {
		g.metrics = metrics
	}
}

// WithAPIKeys accepts configured API keys on routes that allow them.
func WithAPIKeys(keys *apikey.Verifier) AuthOption {
	return func(g *authGuard) {
		g.apiKeys = keys
	}
}

// WithPolicies evaluates CEL route policies after credential checks.
func WithPolicies(engine authz.Engine) AuthOption {
	return func(g *authGuard) {
		g.policies = engine
	}
}

// Auth returns the authentication middleware. The route table supplies
// the per-route requirement; paths matching no route carry no
// requirement and fall through to the dispatcher's 404. Probe paths
// are exempt.
func Auth(table *router.Table, verifier jwt.Verifier, opts ...AuthOption) Middleware {
	g := &authGuard{
		table:    table,
		verifier: verifier,
		logger:   observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			route, _, ok := g.table.Match(r.Method, r.URL.Path)
			if !ok || route.Requirement.Auth == router.AuthNone {
				next.ServeHTTP(w, r)
				return
			}

			g.serve(w, r, route, next)
		})
	}
}

func (g *authGuard) serve(w http.ResponseWriter, r *http.Request, route *router.Route, next http.Handler) {
	req := route.Requirement

	if req.Auth == router.AuthRequired && g.apiKeys != nil && g.apiKeys.Enabled() {
		if presented := r.Header.Get(apikey.HeaderAPIKey); presented != "" {
			g.serveAPIKey(w, r, req, presented, next)
			return
		}
	}

	token, reason := bearerToken(r)
	if token == "" {
		g.unauthorized(w, r, reason, "missing or malformed authorization header")
		return
	}

	verifyOpts := make([]jwt.VerifyOption, 0, 2)
	if req.Auth == router.AuthRefresh {
		verifyOpts = append(verifyOpts, jwt.SkipExpiry())
	}
	if req.Scope != "" {
		verifyOpts = append(verifyOpts, jwt.RequireScope(req.Scope))
	}

	claims, err := g.verifier.Verify(r.Context(), token, verifyOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrInsufficientScope) {
			g.forbidden(w, r, claims, util.ForbiddenReasonInsufficientScope)
			return
		}
		g.unauthorized(w, r, authReason(err), "invalid token")
		return
	}

	if !g.evaluatePolicies(w, r, route, claims) {
		return
	}

	ctx := auth.ContextWithClaims(r.Context(), claims)
	next.ServeHTTP(w, r.WithContext(ctx))
}

func (g *authGuard) serveAPIKey(w http.ResponseWriter, r *http.Request, req router.Requirement, presented string, next http.Handler) {
	key, err := g.apiKeys.Verify(r.Context(), presented)
	if err != nil {
		g.unauthorized(w, r, util.AuthReasonTokenInvalid, "invalid api key")
		return
	}
	if req.Scope != "" && !key.HasScope(req.Scope) {
		g.forbidden(w, r, nil, util.ForbiddenReasonInsufficientScope)
		return
	}

	ctx := auth.ContextWithAPIKey(r.Context(), key)
	next.ServeHTTP(w, r.WithContext(ctx))
}

// evaluatePolicies runs the CEL engine when configured. Reports whether
// the request may proceed; on deny it has already written the 403.
func (g *authGuard) evaluatePolicies(w http.ResponseWriter, r *http.Request, route *router.Route, claims *jwt.Claims) bool {
	if g.policies == nil || !g.policies.Enabled() {
		return true
	}

	decision, err := g.policies.Evaluate(r.Context(), &authz.Request{
		Claims: claimsMap(claims),
		Method: r.Method,
		Path:   r.URL.Path,
		Route:  route.Pattern,
	})
	if err != nil || !decision.Allowed {
		if err != nil {
			g.logger.Error("policy evaluation failed",
				observability.String("route", route.Pattern),
				observability.Error(err),
			)
		}
		g.forbidden(w, r, claims, util.ForbiddenReasonPolicyDenied)
		return false
	}
	return true
}

func (g *authGuard) unauthorized(w http.ResponseWriter, r *http.Request, reason, message string) {
	g.logger.Warn("authentication failed",
		observability.String("method", r.Method),
		observability.String("path", r.URL.Path),
		observability.String("reason", reason),
		observability.String("request_id", util.RequestIDFromContext(r.Context())),
	)
	if g.metrics != nil {
		g.metrics.RecordAuthFailure(reason)
	}

	w.Header().Set("WWW-Authenticate", "Bearer")
	util.WriteError(r.Context(), w, http.StatusUnauthorized,
		util.CodeUnauthorized, message)
}

func (g *authGuard) forbidden(w http.ResponseWriter, r *http.Request, claims *jwt.Claims, reason string) {
	subject := ""
	if claims != nil {
		subject = claims.Subject
	}
	g.logger.Warn("authorization denied",
		observability.String("method", r.Method),
		observability.String("path", r.URL.Path),
		observability.String("subject", subject),
		observability.String("reason", reason),
	)
	if g.metrics != nil {
		g.metrics.RecordAuthFailure(reason)
	}

	util.WriteError(r.Context(), w, http.StatusForbidden,
		util.CodeForbidden, "access denied")
}

// bearerToken extracts the compact JWS from the Authorization header.
// The empty return carries the failure reason for the metric label.
func bearerToken(r *http.Request) (string, string) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", util.AuthReasonMissingHeader
	}
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", util.AuthReasonInvalidHeader
	}
	return strings.TrimSpace(header[len(bearerPrefix):]), ""
}

// authReason maps a verification error to its metric label.
func authReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return util.AuthReasonTokenExpired
	case errors.Is(err, jwt.ErrTokenNotYetValid):
		return util.AuthReasonTokenImmature
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return util.AuthReasonAudience
	default:
		return util.AuthReasonTokenInvalid
	}
}

// claimsMap flattens claims into the shape the policy engine exposes
// as the `claims` variable.
func claimsMap(c *jwt.Claims) map[string]interface{} {
	if c == nil {
		return map[string]interface{}{}
	}

	m := map[string]interface{}{
		"iss":   c.Issuer,
		"sub":   c.Subject,
		"aud":   []string(c.Audience),
		"scope": []string(c.Scope),
	}
	if c.ExpiresAt != nil {
		m["exp"] = c.ExpiresAt.Unix()
	}
	if c.IssuedAt != nil {
		m["iat"] = c.IssuedAt.Unix()
	}
	if c.JWTID != "" {
		m["jti"] = c.JWTID
	}
	return m
}
