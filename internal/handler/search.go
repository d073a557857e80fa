package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/searchsvc/gateway/internal/backend"
	"github.com/searchsvc/gateway/internal/cache"
	"github.com/searchsvc/gateway/internal/config"
	"github.com/searchsvc/gateway/internal/observability"
	"github.com/searchsvc/gateway/internal/util"
)

// Search term length bounds, in runes.
const (
	minTermLen = 3
	maxTermLen = 100
)

// defaultSearchLimit caps results when the caller does not set one.
const defaultSearchLimit = 30

// cacheableParams are the query parameters that participate in the
// cache key.
var cacheableParams = []string{"q", "query", "type", "kind", "limit", "conjunction"}

// validTypes are the accepted values of the type parameter.
var validTypes = map[string]struct{}{
	"item":     {},
	"location": {},
	"module":   {},
}

// Searcher is the slice of the search backend client the handler
// needs.
type Searcher interface {
	Query(ctx context.Context, params backend.QueryParams) ([]backend.Document, error)
}

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	Count int                `json:"count"`
	Data  []backend.Document `json:"data"`
}

// SearchHandler serves GET /search.
type SearchHandler struct {
	search       Searcher
	cache        cache.Cache
	cacheTTL     time.Duration
	minTermLen   int
	maxTermLen   int
	defaultLimit int
	logger       observability.Logger
}

// SearchOption is a functional option for the search handler.
type SearchOption func(*SearchHandler)

// WithSearchCache enables response caching with the given TTL.
func WithSearchCache(c cache.Cache, ttl time.Duration) SearchOption {
	return func(h *SearchHandler) {
		h.cache = c
		h.cacheTTL = ttl
	}
}

// WithSearchLogger sets the logger.
func WithSearchLogger(logger observability.Logger) SearchOption {
	return func(h *SearchHandler) {
		h.logger = logger
	}
}

// WithSearchLimits overrides the term length bounds and default result
// limit from configuration. Zero fields keep the built-in defaults.
func WithSearchLimits(cfg config.SearchConfig) SearchOption {
	return func(h *SearchHandler) {
		if cfg.QueryMinLength > 0 {
			h.minTermLen = cfg.QueryMinLength
		}
		if cfg.QueryMaxLength > 0 {
			h.maxTermLen = cfg.QueryMaxLength
		}
		if cfg.DefaultLimit > 0 {
			h.defaultLimit = cfg.DefaultLimit
		}
	}
}

// NewSearchHandler creates the search handler.
func NewSearchHandler(search Searcher, opts ...SearchOption) *SearchHandler {
	h := &SearchHandler{
		search:       search,
		minTermLen:   minTermLen,
		maxTermLen:   maxTermLen,
		defaultLimit: defaultSearchLimit,
		logger:       observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP implements http.Handler.
func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	params, err := h.parseQuery(r)
	if err != nil {
		util.RespondError(w, r, err)
		return
	}

	cacheKey := ""
	if h.cache != nil {
		cacheKey = cache.Key(r.Method, r.URL.Path, r.URL.Query(), cacheableParams)
		if payload, err := h.cache.Get(r.Context(), cacheKey); err == nil {
			w.Header().Set("X-Cache", "HIT")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(payload)
			return
		}
	}

	docs, err := h.search.Query(r.Context(), params)
	if err != nil {
		respondBackendError(w, r, err)
		return
	}

	response := SearchResponse{Count: len(docs), Data: docs}
	payload, err := json.Marshal(response)
	if err != nil {
		util.WriteError(r.Context(), w, http.StatusInternalServerError,
			util.CodeInternal, "internal server error")
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(r.Context(), cacheKey, payload, h.cacheTTL); err != nil {
			h.logger.Warn("cache store failed", observability.Error(err))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// parseQuery validates the query string into backend parameters.
func (h *SearchHandler) parseQuery(r *http.Request) (backend.QueryParams, error) {
	query := r.URL.Query()

	term := query.Get("q")
	if term == "" {
		term = query.Get("query")
	}
	term = strings.TrimSpace(term)
	if n := utf8.RuneCountInString(term); n < h.minTermLen || n > h.maxTermLen {
		return backend.QueryParams{}, util.NewValidationError(fmt.Sprintf(
			"query term must be between %d and %d characters", h.minTermLen, h.maxTermLen))
	}

	params := backend.QueryParams{
		Term:  term,
		Kind:  query.Get("kind"),
		Limit: h.defaultLimit,
	}

	if t := query.Get("type"); t != "" {
		if _, ok := validTypes[t]; !ok {
			return backend.QueryParams{}, util.NewValidationError(
				"type must be one of item, location, module")
		}
		params.Type = t
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return backend.QueryParams{}, util.NewValidationError(
				"limit must be a positive integer")
		}
		params.Limit = limit
	}

	if raw := query.Get("conjunction"); raw != "" {
		conj, err := strconv.ParseBool(raw)
		if err != nil {
			return backend.QueryParams{}, util.NewValidationError(
				"conjunction must be a boolean")
		}
		params.Conjunction = conj
	}

	return params, nil
}

// respondBackendError maps a backend error kind to the envelope.
func respondBackendError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case backend.IsKind(err, backend.KindInvalid):
		util.WriteError(r.Context(), w, http.StatusBadRequest,
			util.CodeBadRequest, "invalid request")
	case backend.IsKind(err, backend.KindNotFound):
		util.WriteError(r.Context(), w, http.StatusNotFound,
			util.CodeNotFound, "resource not found")
	case backend.IsKind(err, backend.KindConflict):
		util.WriteError(r.Context(), w, http.StatusConflict,
			util.CodeConflict, "revision conflict")
	default:
		util.WriteError(r.Context(), w, http.StatusBadGateway,
			util.CodeBadGateway, "upstream request failed")
	}
}
