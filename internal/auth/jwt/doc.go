// Package jwt implements bearer token verification and issuing for the
// gateway.
//
// Tokens are JWS compact-serialized JWTs signed with the HMAC family
// (HS256 primary, HS384/HS512 accepted) over a shared secret supplied
// by the secrets provider. Verification is pure CPU work: three-part
// split, algorithm allow-list, constant-time signature comparison, then
// claim validation with a configurable clock skew.
//
// The token-refresh path verifies signature and audience while
// deliberately ignoring expiry; see the SkipExpiry verify option.
package jwt
