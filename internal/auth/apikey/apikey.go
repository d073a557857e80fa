// Package apikey provides static API key verification for the
// token-issue route. Keys are configured with digests, never raw
// values, and compared in constant time.
package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/searchsvc/gateway/internal/config"
	"github.com/searchsvc/gateway/internal/observability"
)

// HeaderAPIKey is the header carrying the API key.
const HeaderAPIKey = "X-API-Key"

// Digest scheme prefixes accepted in configuration.
const (
	schemeSHA256 = "sha256:"
	schemeBcrypt = "bcrypt:"
	schemePlain  = "plain:"
)

// Sentinel errors for API key verification.
var (
	// ErrKeyNotFound indicates that no configured key matches.
	ErrKeyNotFound = errors.New("api key not found")
	// ErrInvalidDigest indicates a malformed digest in configuration.
	ErrInvalidDigest = errors.New("invalid api key digest")
)

// Key is one configured API key with its granted scopes.
type Key struct {
	Name   string
	Scopes []string
}

// HasScope checks if the key grants a scope.
func (k *Key) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if strings.EqualFold(s, scope) {
			return true
		}
	}
	return false
}

// entry is a parsed configured key.
type entry struct {
	key    Key
	scheme string
	digest []byte
}

// Verifier checks presented API keys against the configured set.
type Verifier struct {
	entries []entry
	logger  observability.Logger
}

// VerifierOption is a functional option for the verifier.
type VerifierOption func(*Verifier)

// WithLogger sets the logger for the verifier.
func WithLogger(logger observability.Logger) VerifierOption {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// NewVerifier creates a verifier from configured keys.
func NewVerifier(keys []config.APIKeyConfig, opts ...VerifierOption) (*Verifier, error) {
	v := &Verifier{
		entries: make([]entry, 0, len(keys)),
		logger:  observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(v)
	}

	for _, cfg := range keys {
		e, err := parseEntry(cfg)
		if err != nil {
			return nil, err
		}
		v.entries = append(v.entries, e)
	}

	return v, nil
}

func parseEntry(cfg config.APIKeyConfig) (entry, error) {
	e := entry{key: Key{Name: cfg.Name, Scopes: cfg.Scopes}}

	switch {
	case strings.HasPrefix(cfg.Digest, schemeSHA256):
		raw, err := hex.DecodeString(strings.TrimPrefix(cfg.Digest, schemeSHA256))
		if err != nil {
			return entry{}, fmt.Errorf("%w: key %s: %v", ErrInvalidDigest, cfg.Name, err)
		}
		if len(raw) != sha256.Size {
			return entry{}, fmt.Errorf("%w: key %s: sha256 digest must be %d bytes", ErrInvalidDigest, cfg.Name, sha256.Size)
		}
		e.scheme = schemeSHA256
		e.digest = raw

	case strings.HasPrefix(cfg.Digest, schemeBcrypt):
		e.scheme = schemeBcrypt
		e.digest = []byte(strings.TrimPrefix(cfg.Digest, schemeBcrypt))

	case strings.HasPrefix(cfg.Digest, schemePlain):
		e.scheme = schemePlain
		e.digest = []byte(strings.TrimPrefix(cfg.Digest, schemePlain))

	default:
		return entry{}, fmt.Errorf("%w: key %s: unknown digest scheme", ErrInvalidDigest, cfg.Name)
	}

	return e, nil
}

// Verify checks a presented key value against every configured entry
// and returns the matching key. All comparisons are constant time.
func (v *Verifier) Verify(_ context.Context, presented string) (*Key, error) {
	if presented == "" {
		return nil, ErrKeyNotFound
	}

	presentedSHA := sha256.Sum256([]byte(presented))

	for i := range v.entries {
		e := &v.entries[i]
		if e.matches(presented, presentedSHA[:]) {
			v.logger.Debug("api key accepted",
				observability.String("key", e.key.Name),
			)
			return &e.key, nil
		}
	}

	return nil, ErrKeyNotFound
}

func (e *entry) matches(presented string, presentedSHA []byte) bool {
	switch e.scheme {
	case schemeSHA256:
		return subtle.ConstantTimeCompare(e.digest, presentedSHA) == 1
	case schemeBcrypt:
		return bcrypt.CompareHashAndPassword(e.digest, []byte(presented)) == nil
	case schemePlain:
		return subtle.ConstantTimeCompare(e.digest, []byte(presented)) == 1
	default:
		return false
	}
}

// Enabled reports whether any keys are configured.
func (v *Verifier) Enabled() bool {
	return len(v.entries) > 0
}
