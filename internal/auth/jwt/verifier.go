package jwt

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"hash"
	"strings"
	"time"

	"github.com/searchsvc/gateway/internal/observability"
)

// DefaultClockSkew is the leeway applied to exp/nbf/iat checks.
const DefaultClockSkew = 10 * time.Second

// Verifier verifies bearer tokens and returns their claims.
type Verifier interface {
	// Verify verifies a compact JWS token and returns its claims.
	Verify(ctx context.Context, token string, opts ...VerifyOption) (*Claims, error)
}

// VerifyOptions are the per-call verification options.
type VerifyOptions struct {
	// SkipExpiry disables the exp check. Used by the token-refresh
	// route, which re-issues from an expired token after checking the
	// subject against the state store.
	SkipExpiry bool

	// RequiredScope, when non-empty, must be present in the token scope.
	RequiredScope string
}

// VerifyOption mutates VerifyOptions.
type VerifyOption func(*VerifyOptions)

// SkipExpiry disables expiry checking for this verification.
func SkipExpiry() VerifyOption {
	return func(o *VerifyOptions) {
		o.SkipExpiry = true
	}
}

// RequireScope requires the given scope value to be present.
func RequireScope(scope string) VerifyOption {
	return func(o *VerifyOptions) {
		o.RequiredScope = scope
	}
}

// verifier implements Verifier over an HMAC shared secret.
type verifier struct {
	secret     []byte
	algorithms []string
	audiences  []string
	clockSkew  time.Duration
	logger     observability.Logger
}

// VerifierOption is a functional option for the verifier.
type VerifierOption func(*verifier)

// WithAlgorithms sets the algorithm allow-list. Defaults to the full
// HMAC family.
func WithAlgorithms(algs ...string) VerifierOption {
	return func(v *verifier) {
		v.algorithms = algs
	}
}

// WithAudiences sets the audiences the token must intersect. Empty
// skips the audience check.
func WithAudiences(audiences ...string) VerifierOption {
	return func(v *verifier) {
		v.audiences = audiences
	}
}

// WithClockSkew sets the leeway for time-based claim checks.
func WithClockSkew(skew time.Duration) VerifierOption {
	return func(v *verifier) {
		v.clockSkew = skew
	}
}

// WithVerifierLogger sets the logger for the verifier.
func WithVerifierLogger(logger observability.Logger) VerifierOption {
	return func(v *verifier) {
		v.logger = logger
	}
}

// NewVerifier creates a verifier over the given shared secret.
func NewVerifier(secret []byte, opts ...VerifierOption) (Verifier, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("shared secret is required")
	}

	v := &verifier{
		secret:     secret,
		algorithms: []string{AlgHS256, AlgHS384, AlgHS512},
		clockSkew:  DefaultClockSkew,
		logger:     observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(v)
	}

	return v, nil
}

// tokenHeader is the decoded JOSE header.
type tokenHeader struct {
	Algorithm string `json:"alg"`
	Type      string `json:"typ"`
}

// Verify verifies a compact JWS token and returns its claims.
func (v *verifier) Verify(_ context.Context, token string, opts ...VerifyOption) (*Claims, error) {
	options := VerifyOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	if token == "" {
		return nil, ErrEmptyToken
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrTokenMalformed
	}

	header, err := decodeHeader(parts[0])
	if err != nil {
		return nil, NewVerificationError("failed to decode header", err)
	}

	if err := v.checkAlgorithm(header.Algorithm); err != nil {
		return nil, err
	}

	if err := v.verifySignature(header.Algorithm, parts[0]+"."+parts[1], parts[2]); err != nil {
		return nil, err
	}

	claims, err := decodeClaims(parts[1])
	if err != nil {
		return nil, NewVerificationError("failed to decode claims", err)
	}

	if err := v.checkClaims(claims, options); err != nil {
		return nil, err
	}

	v.logger.Debug("token verified",
		observability.String("subject", claims.Subject),
		observability.Strings("scope", claims.Scope),
	)

	return claims, nil
}

func decodeHeader(encoded string) (*tokenHeader, error) {
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode header: %w", err)
	}

	var header tokenHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	return &header, nil
}

func decodeClaims(encoded string) (*Claims, error) {
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}

	var claims Claims
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, fmt.Errorf("failed to parse payload: %w", err)
	}

	return &claims, nil
}

// checkAlgorithm enforces the algorithm allow-list.
func (v *verifier) checkAlgorithm(alg string) error {
	for _, allowed := range v.algorithms {
		if alg == allowed {
			return nil
		}
	}
	return NewVerificationError(fmt.Sprintf("algorithm %s is not allowed", alg), ErrUnsupportedAlgorithm)
}

// verifySignature recomputes the HMAC over the signing input and
// compares in constant time.
func (v *verifier) verifySignature(alg, signingInput, signature string) error {
	sigBytes, err := base64.RawURLEncoding.DecodeString(signature)
	if err != nil {
		return NewVerificationError("failed to decode signature", ErrTokenInvalidSignature)
	}

	mac := hmac.New(hashFuncFor(alg), v.secret)
	mac.Write([]byte(signingInput))
	expected := mac.Sum(nil)

	if !hmac.Equal(sigBytes, expected) {
		return NewVerificationError("HMAC signature verification failed", ErrTokenInvalidSignature)
	}

	return nil
}

func hashFuncFor(alg string) func() hash.Hash {
	switch alg {
	case AlgHS384:
		return sha512.New384
	case AlgHS512:
		return sha512.New
	default:
		return sha256.New
	}
}

// checkClaims validates time-based claims, audience and scope.
func (v *verifier) checkClaims(claims *Claims, opts VerifyOptions) error {
	if !opts.SkipExpiry {
		if err := claims.ValidWithSkew(v.clockSkew); err != nil {
			return NewVerificationError("time-based claim check failed", err)
		}
	} else if claims.NotBefore != nil && time.Now().Before(claims.NotBefore.Time.Add(-v.clockSkew)) {
		// Even the refresh path rejects tokens from the future.
		return NewVerificationError("time-based claim check failed", ErrTokenNotYetValid)
	}

	if len(v.audiences) > 0 {
		if !claims.Audience.ContainsAny(v.audiences...) {
			return NewVerificationError("token audience does not match", ErrTokenInvalidAudience)
		}
	}

	if claims.Subject == "" {
		return NewVerificationError("subject claim is required", ErrTokenMissingClaim)
	}

	if opts.RequiredScope != "" && !claims.Scope.Has(opts.RequiredScope) {
		return NewVerificationError(
			fmt.Sprintf("scope %s is required", opts.RequiredScope),
			ErrInsufficientScope,
		)
	}

	return nil
}

var _ Verifier = (*verifier)(nil)
