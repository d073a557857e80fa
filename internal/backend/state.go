package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/searchsvc/gateway/internal/config"
)

// Entity is one entry in the state store.
type Entity struct {
	Key      string          `json:"key"`
	Value    json.RawMessage `json:"value"`
	Revision string          `json:"revision,omitempty"`
}

// StateClient reads and writes entities in the state backend.
type StateClient struct {
	*client
}

// NewStateClient creates the state backend client.
func NewStateClient(cfg config.BackendConfig, opts ...Option) (*StateClient, error) {
	c, err := newClient("state", cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &StateClient{client: c}, nil
}

func statePath(key string) string {
	return "/state/" + url.PathEscape(key)
}

// Get fetches an entity by key.
func (c *StateClient) Get(ctx context.Context, key string) (*Entity, error) {
	resp, err := c.do(ctx, http.MethodGet, statePath(key), nil, nil, nil)
	if err != nil {
		return nil, err
	}

	entity := &Entity{}
	if err := json.Unmarshal(resp.body, entity); err != nil {
		return nil, newError(c.name, KindUnavailable, "decode response", err)
	}
	entity.Key = key

	return entity, nil
}

// putResponse is the state backend's write acknowledgement.
type putResponse struct {
	Revision string `json:"revision"`
}

// Put writes an entity value. When revision is non-empty it is sent as
// If-Match so the backend can reject concurrent writers with 409.
func (c *StateClient) Put(ctx context.Context, key string, value json.RawMessage, revision string) (string, error) {
	var header http.Header
	if revision != "" {
		header = http.Header{"If-Match": []string{revision}}
	}

	resp, err := c.do(ctx, http.MethodPut, statePath(key), nil, value, header)
	if err != nil {
		return "", err
	}

	var decoded putResponse
	if len(resp.body) > 0 {
		if err := json.Unmarshal(resp.body, &decoded); err != nil {
			return "", newError(c.name, KindUnavailable, "decode response", err)
		}
	}

	return decoded.Revision, nil
}

// Delete removes an entity by key.
func (c *StateClient) Delete(ctx context.Context, key string) error {
	_, err := c.do(ctx, http.MethodDelete, statePath(key), nil, nil, nil)
	return err
}
