package jwt

import (
	"context"
	"crypto/hmac"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/searchsvc/gateway/internal/observability"
)

// DefaultTokenTTL is the expiry applied when neither the signer nor
// the signing options specify one.
const DefaultTokenTTL = 60 * time.Minute

// Signer mints signed tokens.
type Signer interface {
	// Sign creates a signed compact JWS from the claims. Missing iat,
	// exp and aud are filled from signer defaults.
	Sign(ctx context.Context, claims *Claims, opts ...SignOption) (string, error)
}

// SignOptions are the per-call signing options.
type SignOptions struct {
	// TTL overrides the signer's default token lifetime.
	TTL time.Duration

	// GenerateJTI assigns a random token ID when the claims carry none.
	GenerateJTI bool
}

// SignOption mutates SignOptions.
type SignOption func(*SignOptions)

// WithTTL overrides the token lifetime for this token.
func WithTTL(ttl time.Duration) SignOption {
	return func(o *SignOptions) {
		o.TTL = ttl
	}
}

// WithGeneratedJTI assigns a random jti when the claims carry none.
func WithGeneratedJTI() SignOption {
	return func(o *SignOptions) {
		o.GenerateJTI = true
	}
}

// signer implements Signer over an HMAC shared secret.
type signer struct {
	secret    []byte
	algorithm string
	issuer    string
	audiences []string
	ttl       time.Duration
	logger    observability.Logger
}

// SignerOption is a functional option for the signer.
type SignerOption func(*signer)

// WithSignerAlgorithm sets the signing algorithm. Defaults to HS256.
func WithSignerAlgorithm(alg string) SignerOption {
	return func(s *signer) {
		s.algorithm = alg
	}
}

// WithIssuer sets the iss claim applied to minted tokens.
func WithIssuer(issuer string) SignerOption {
	return func(s *signer) {
		s.issuer = issuer
	}
}

// WithDefaultAudiences sets the aud claim applied when the claims carry
// none.
func WithDefaultAudiences(audiences ...string) SignerOption {
	return func(s *signer) {
		s.audiences = audiences
	}
}

// WithDefaultTTL sets the default token lifetime.
func WithDefaultTTL(ttl time.Duration) SignerOption {
	return func(s *signer) {
		s.ttl = ttl
	}
}

// WithSignerLogger sets the logger for the signer.
func WithSignerLogger(logger observability.Logger) SignerOption {
	return func(s *signer) {
		s.logger = logger
	}
}

// NewSigner creates a signer over the given shared secret.
func NewSigner(secret []byte, opts ...SignerOption) (Signer, error) {
	if len(secret) == 0 {
		return nil, NewSigningError("shared secret is required", nil)
	}

	s := &signer{
		secret:    secret,
		algorithm: AlgHS256,
		ttl:       DefaultTokenTTL,
		logger:    observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	switch s.algorithm {
	case AlgHS256, AlgHS384, AlgHS512:
	default:
		return nil, NewSigningError("unsupported signing algorithm "+s.algorithm, ErrUnsupportedAlgorithm)
	}

	return s, nil
}

// Sign creates a signed compact JWS from the claims.
func (s *signer) Sign(_ context.Context, claims *Claims, opts ...SignOption) (string, error) {
	options := SignOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	filled := s.fillDefaults(claims, options)

	headerJSON, err := json.Marshal(tokenHeader{Algorithm: s.algorithm, Type: "JWT"})
	if err != nil {
		return "", NewSigningError("failed to marshal header", err)
	}

	claimsJSON, err := json.Marshal(filled)
	if err != nil {
		return "", NewSigningError("failed to marshal claims", err)
	}

	signingInput := base64.RawURLEncoding.EncodeToString(headerJSON) +
		"." + base64.RawURLEncoding.EncodeToString(claimsJSON)

	mac := hmac.New(hashFuncFor(s.algorithm), s.secret)
	mac.Write([]byte(signingInput))
	signature := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	s.logger.Debug("token signed",
		observability.String("subject", filled.Subject),
		observability.Time("expires_at", filled.ExpiresAt.Time),
	)

	return signingInput + "." + signature, nil
}

// fillDefaults returns a copy of the claims with iat, exp, iss, aud
// and optionally jti filled from signer defaults. The input claims are
// never mutated.
func (s *signer) fillDefaults(claims *Claims, opts SignOptions) *Claims {
	filled := *claims

	now := time.Now()
	if filled.IssuedAt == nil {
		filled.IssuedAt = NewTime(now)
	}

	if filled.ExpiresAt == nil {
		ttl := opts.TTL
		if ttl <= 0 {
			ttl = s.ttl
		}
		filled.ExpiresAt = NewTime(now.Add(ttl))
	}

	if filled.Issuer == "" {
		filled.Issuer = s.issuer
	}

	if len(filled.Audience) == 0 && len(s.audiences) > 0 {
		filled.Audience = Audience(s.audiences)
	}

	if filled.JWTID == "" && opts.GenerateJTI {
		filled.JWTID = uuid.New().String()
	}

	return &filled
}

var _ Signer = (*signer)(nil)
