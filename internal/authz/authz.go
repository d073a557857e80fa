// Package authz evaluates optional per-route CEL policies after
// authentication. Policies are compiled once at startup; an empty
// policy set allows every request.
package authz

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/searchsvc/gateway/internal/config"
	"github.com/searchsvc/gateway/internal/observability"
)

// Decision is the outcome of a policy evaluation.
type Decision struct {
	// Allowed indicates if the request may proceed.
	Allowed bool

	// Policy is the name of the policy that denied the request,
	// empty when allowed.
	Policy string
}

// Request carries the attributes a policy can inspect.
type Request struct {
	// Claims are the verified token claims as a generic map.
	Claims map[string]interface{}

	// Method is the HTTP method.
	Method string

	// Path is the request path.
	Path string

	// Route is the matched route pattern.
	Route string
}

// Engine evaluates route policies.
type Engine interface {
	// Evaluate runs every policy bound to the route. All bound
	// policies must pass for the request to be allowed.
	Evaluate(ctx context.Context, req *Request) (*Decision, error)

	// Enabled reports whether any policies are configured.
	Enabled() bool
}

type policy struct {
	name    string
	route   string
	program cel.Program
}

type celEngine struct {
	policies []policy
	byRoute  map[string][]int
	logger   observability.Logger
}

// EngineOption is a functional option for the engine.
type EngineOption func(*celEngine)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) EngineOption {
	return func(e *celEngine) {
		e.logger = logger
	}
}

// NewEngine compiles the configured policies into an engine.
// Compilation errors are fatal so bad expressions surface at startup.
func NewEngine(cfg config.AuthzConfig, opts ...EngineOption) (Engine, error) {
	e := &celEngine{
		byRoute: make(map[string][]int),
		logger:  observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}

	env, err := newEnv()
	if err != nil {
		return nil, fmt.Errorf("create cel environment: %w", err)
	}

	for _, pc := range cfg.Policies {
		ast, issues := env.Compile(pc.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("compile policy %s: %w", pc.Name, issues.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return nil, fmt.Errorf("compile policy %s: expression must produce a bool", pc.Name)
		}

		program, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("program policy %s: %w", pc.Name, err)
		}

		e.policies = append(e.policies, policy{
			name:    pc.Name,
			route:   pc.Route,
			program: program,
		})
		e.byRoute[pc.Route] = append(e.byRoute[pc.Route], len(e.policies)-1)
	}

	return e, nil
}

func newEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("claims", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("method", cel.StringType),
		cel.Variable("path", cel.StringType),
	)
}

// Evaluate runs every policy bound to the request's route. Policies
// bound to "*" apply to every route.
func (e *celEngine) Evaluate(_ context.Context, req *Request) (*Decision, error) {
	if len(e.policies) == 0 {
		return &Decision{Allowed: true}, nil
	}

	indexes := make([]int, 0, 4)
	indexes = append(indexes, e.byRoute["*"]...)
	indexes = append(indexes, e.byRoute[req.Route]...)

	claims := req.Claims
	if claims == nil {
		claims = map[string]interface{}{}
	}
	evalCtx := map[string]interface{}{
		"claims": claims,
		"method": req.Method,
		"path":   req.Path,
	}

	for _, i := range indexes {
		p := &e.policies[i]

		result, _, err := p.program.Eval(evalCtx)
		if err != nil {
			e.logger.Warn("policy evaluation error",
				observability.String("policy", p.name),
				observability.Error(err),
			)
			return &Decision{Allowed: false, Policy: p.name}, nil
		}

		allowed, ok := result.Value().(bool)
		if !ok || !allowed {
			e.logger.Debug("policy denied request",
				observability.String("policy", p.name),
				observability.String("route", req.Route),
				observability.String("method", req.Method),
			)
			return &Decision{Allowed: false, Policy: p.name}, nil
		}
	}

	return &Decision{Allowed: true}, nil
}

// Enabled reports whether any policies are configured.
func (e *celEngine) Enabled() bool {
	return len(e.policies) > 0
}

var _ Engine = (*celEngine)(nil)
