package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/searchsvc/gateway/internal/auth"
	"github.com/searchsvc/gateway/internal/auth/jwt"
	"github.com/searchsvc/gateway/internal/backend"
	"github.com/searchsvc/gateway/internal/observability"
	"github.com/searchsvc/gateway/internal/util"
)

// maxTokenBodyBytes bounds the token-issue request body.
const maxTokenBodyBytes = 16 << 10

// userKeyPrefix locates user records in the state store.
const userKeyPrefix = "users/"

// StateGetter is the slice of the state client the token handler
// needs.
type StateGetter interface {
	Get(ctx context.Context, key string) (*backend.Entity, error)
}

// TokenResponse is the body of a successful refresh or issue.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

// issueRequest is the POST /token body.
type issueRequest struct {
	Subject  string   `json:"sub"`
	Scope    []string `json:"scope"`
	ValidFor string   `json:"validFor,omitempty"`
}

// userRecord is the state-store shape of a user entry.
type userRecord struct {
	Locked bool `json:"locked"`
}

// TokenHandler serves GET /token (refresh) and POST /token (issue).
type TokenHandler struct {
	signer jwt.Signer
	states StateGetter
	ttl    time.Duration
	logger observability.Logger
}

// TokenOption is a functional option for the token handler.
type TokenOption func(*TokenHandler)

// WithTokenTTL overrides the default token lifetime.
func WithTokenTTL(ttl time.Duration) TokenOption {
	return func(h *TokenHandler) {
		h.ttl = ttl
	}
}

// WithTokenLogger sets the logger.
func WithTokenLogger(logger observability.Logger) TokenOption {
	return func(h *TokenHandler) {
		h.logger = logger
	}
}

// NewTokenHandler creates the token handler.
func NewTokenHandler(signer jwt.Signer, states StateGetter, opts ...TokenOption) *TokenHandler {
	h := &TokenHandler{
		signer: signer,
		states: states,
		ttl:    jwt.DefaultTokenTTL,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Refresh re-issues a token for the already verified caller. The auth
// middleware validated signature and audience with expiry ignored, so
// an expired but otherwise sound token can be renewed here, subject to
// the user still existing and not being locked.
func (h *TokenHandler) Refresh() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := auth.ClaimsFromContext(r.Context())
		if claims == nil {
			util.WriteError(r.Context(), w, http.StatusUnauthorized,
				util.CodeUnauthorized, "missing credentials")
			return
		}

		if !h.subjectActive(w, r, claims.Subject) {
			return
		}

		h.issue(w, r, claims.Subject, claims.Scope)
	})
}

// Issue mints a token for the subject named in the request body. The
// caller was authenticated by the auth middleware with scope token or
// a configured API key.
func (h *TokenHandler) Issue() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req issueRequest
		decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTokenBodyBytes))
		if err := decoder.Decode(&req); err != nil {
			util.WriteError(r.Context(), w, http.StatusBadRequest,
				util.CodeBadRequest, "invalid request body")
			return
		}

		if req.Subject == "" {
			util.WriteError(r.Context(), w, http.StatusBadRequest,
				util.CodeBadRequest, "sub is required")
			return
		}
		scope, err := normalizeScope(req.Scope)
		if err != nil {
			util.RespondError(w, r, err)
			return
		}

		ttl := h.ttl
		if req.ValidFor != "" {
			parsed, err := time.ParseDuration(req.ValidFor)
			if err != nil || parsed <= 0 {
				util.WriteError(r.Context(), w, http.StatusBadRequest,
					util.CodeBadRequest, "validFor must be a positive duration")
				return
			}
			ttl = parsed
		}

		if !h.subjectActive(w, r, req.Subject) {
			return
		}

		h.issueWithTTL(w, r, req.Subject, scope, ttl)
	})
}

// subjectActive checks the user record in the state store. Reports
// whether the handler may proceed; on a denied or failed lookup the
// response has been written.
func (h *TokenHandler) subjectActive(w http.ResponseWriter, r *http.Request, subject string) bool {
	entity, err := h.states.Get(r.Context(), userKeyPrefix+subject)
	if err != nil {
		if backend.IsKind(err, backend.KindNotFound) {
			util.WriteError(r.Context(), w, http.StatusForbidden,
				util.CodeForbidden, "access denied")
			return false
		}
		h.logger.Error("user lookup failed",
			observability.String("subject", subject),
			observability.Error(err),
		)
		respondBackendError(w, r, err)
		return false
	}

	var record userRecord
	if err := json.Unmarshal(entity.Value, &record); err != nil {
		h.logger.Error("malformed user record",
			observability.String("subject", subject),
			observability.Error(err),
		)
		util.WriteError(r.Context(), w, http.StatusBadGateway,
			util.CodeBadGateway, "upstream request failed")
		return false
	}
	if record.Locked {
		util.WriteError(r.Context(), w, http.StatusForbidden,
			util.CodeForbidden, "access denied")
		return false
	}
	return true
}

func (h *TokenHandler) issue(w http.ResponseWriter, r *http.Request, subject string, scope jwt.Scope) {
	h.issueWithTTL(w, r, subject, scope, h.ttl)
}

func (h *TokenHandler) issueWithTTL(w http.ResponseWriter, r *http.Request, subject string, scope jwt.Scope, ttl time.Duration) {
	expiresAt := time.Now().Add(ttl)
	claims := &jwt.Claims{
		Subject:   subject,
		Scope:     scope,
		ExpiresAt: jwt.NewTime(expiresAt),
	}

	token, err := h.signer.Sign(r.Context(), claims, jwt.WithGeneratedJTI())
	if err != nil {
		h.logger.Error("token signing failed",
			observability.String("subject", subject),
			observability.Error(err),
		)
		util.WriteError(r.Context(), w, http.StatusInternalServerError,
			util.CodeInternal, "internal server error")
		return
	}

	_ = util.WriteJSON(w, http.StatusCreated, TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
	})
}

// normalizeScope validates requested scope values against the
// well-known set.
func normalizeScope(values []string) (jwt.Scope, error) {
	if len(values) == 0 {
		return nil, util.NewValidationError("scope is required")
	}

	scope := make(jwt.Scope, 0, len(values))
	for _, v := range values {
		switch v {
		case jwt.ScopeSearch, jwt.ScopeStats, jwt.ScopeToken:
			scope = append(scope, v)
		default:
			return nil, util.NewValidationError("unknown scope " + v)
		}
	}
	return scope, nil
}
