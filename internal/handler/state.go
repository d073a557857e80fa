package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/searchsvc/gateway/internal/backend"
	"github.com/searchsvc/gateway/internal/observability"
	"github.com/searchsvc/gateway/internal/util"
)

// maxStateBodyBytes bounds a PUT /state/{key} body.
const maxStateBodyBytes = 1 << 20

// StateStore is the slice of the state client the handler needs.
type StateStore interface {
	Get(ctx context.Context, key string) (*backend.Entity, error)
	Put(ctx context.Context, key string, value json.RawMessage, revision string) (string, error)
	Delete(ctx context.Context, key string) error
}

// stateWriteResponse is the PUT response body.
type stateWriteResponse struct {
	Key      string `json:"key"`
	Revision string `json:"revision"`
}

// StateHandler serves the /state/{key} CRUD routes.
type StateHandler struct {
	states StateStore
	logger observability.Logger
}

// StateOption is a functional option for the state handler.
type StateOption func(*StateHandler)

// WithStateLogger sets the logger.
func WithStateLogger(logger observability.Logger) StateOption {
	return func(h *StateHandler) {
		h.logger = logger
	}
}

// NewStateHandler creates the state handler.
func NewStateHandler(states StateStore, opts ...StateOption) *StateHandler {
	h := &StateHandler{
		states: states,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// pathKey extracts the {key} path parameter set by the dispatcher.
func pathKey(r *http.Request) (string, bool) {
	params := util.PathParamsFromContext(r.Context())
	key, ok := params["key"]
	return key, ok && key != ""
}

// Get serves GET /state/{key}.
func (h *StateHandler) Get() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, ok := pathKey(r)
		if !ok {
			util.WriteError(r.Context(), w, http.StatusBadRequest,
				util.CodeBadRequest, "state key is required")
			return
		}

		entity, err := h.states.Get(r.Context(), key)
		if err != nil {
			respondBackendError(w, r, err)
			return
		}

		_ = util.WriteJSON(w, http.StatusOK, entity)
	})
}

// Put serves PUT /state/{key}. The request body is stored verbatim as
// the entity value; an If-Match header makes the write conditional on
// the current revision.
func (h *StateHandler) Put() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, ok := pathKey(r)
		if !ok {
			util.WriteError(r.Context(), w, http.StatusBadRequest,
				util.CodeBadRequest, "state key is required")
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxStateBodyBytes))
		if err != nil {
			util.WriteError(r.Context(), w, http.StatusBadRequest,
				util.CodeBadRequest, "invalid request body")
			return
		}
		if !json.Valid(body) {
			util.WriteError(r.Context(), w, http.StatusBadRequest,
				util.CodeBadRequest, "request body must be valid JSON")
			return
		}

		revision, err := h.states.Put(r.Context(), key, body, r.Header.Get("If-Match"))
		if err != nil {
			respondBackendError(w, r, err)
			return
		}

		_ = util.WriteJSON(w, http.StatusOK, stateWriteResponse{
			Key:      key,
			Revision: revision,
		})
	})
}

// Delete serves DELETE /state/{key}.
func (h *StateHandler) Delete() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, ok := pathKey(r)
		if !ok {
			util.WriteError(r.Context(), w, http.StatusBadRequest,
				util.CodeBadRequest, "state key is required")
			return
		}

		if err := h.states.Delete(r.Context(), key); err != nil {
			respondBackendError(w, r, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}
