package jwt

import (
	"encoding/json"
	"strings"
	"time"
)

// Well-known scope values issued by the gateway.
const (
	ScopeSearch = "search"
	ScopeStats  = "stats"
	ScopeToken  = "token"
)

// Claims is the authenticated identity attached to a request after
// verification. Immutable once attached to a request context.
type Claims struct {
	Issuer    string   `json:"iss,omitempty"`
	Subject   string   `json:"sub,omitempty"`
	Audience  Audience `json:"aud,omitempty"`
	ExpiresAt *Time    `json:"exp,omitempty"`
	NotBefore *Time    `json:"nbf,omitempty"`
	IssuedAt  *Time    `json:"iat,omitempty"`
	JWTID     string   `json:"jti,omitempty"`
	Scope     Scope    `json:"scope,omitempty"`
}

// Time wraps time.Time to marshal as unix seconds, the JWT numeric
// date format.
type Time struct {
	time.Time
}

// NewTime creates a Time from a time.Time.
func NewTime(t time.Time) *Time {
	return &Time{Time: t}
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Time) UnmarshalJSON(data []byte) error {
	var timestamp float64
	if err := json.Unmarshal(data, &timestamp); err != nil {
		return err
	}
	t.Time = time.Unix(int64(timestamp), 0)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Unix())
}

// Audience represents the aud claim, which may appear as a string or
// an array of strings on the wire.
type Audience []string

// UnmarshalJSON implements json.Unmarshaler.
func (a *Audience) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*a = Audience{single}
		return nil
	}

	var multiple []string
	if err := json.Unmarshal(data, &multiple); err != nil {
		return err
	}
	*a = Audience(multiple)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (a Audience) MarshalJSON() ([]byte, error) {
	if len(a) == 1 {
		return json.Marshal(a[0])
	}
	return json.Marshal([]string(a))
}

// Contains checks if the audience contains a specific value.
func (a Audience) Contains(aud string) bool {
	for _, v := range a {
		if v == aud {
			return true
		}
	}
	return false
}

// ContainsAny checks if the audience contains any of the specified
// values.
func (a Audience) ContainsAny(auds ...string) bool {
	for _, aud := range auds {
		if a.Contains(aud) {
			return true
		}
	}
	return false
}

// Scope represents the scope claim. On the wire it may be an array of
// strings or a single space-separated string; values always serialize
// lowercase.
type Scope []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *Scope) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = normalizeScopes(strings.Fields(single))
		return nil
	}

	var multiple []string
	if err := json.Unmarshal(data, &multiple); err != nil {
		return err
	}
	*s = normalizeScopes(multiple)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s Scope) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string(normalizeScopes(s)))
}

func normalizeScopes(values []string) Scope {
	out := make(Scope, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Has checks if the scope contains a specific value, case-insensitively.
func (s Scope) Has(scope string) bool {
	scope = strings.ToLower(scope)
	for _, v := range s {
		if strings.ToLower(v) == scope {
			return true
		}
	}
	return false
}

// ValidWithSkew validates the time-based claims with clock skew
// tolerance.
func (c *Claims) ValidWithSkew(skew time.Duration) error {
	now := time.Now()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time.Add(skew)) {
		return ErrTokenExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time.Add(-skew)) {
		return ErrTokenNotYetValid
	}

	if c.IssuedAt != nil && now.Add(skew).Before(c.IssuedAt.Time) {
		return ErrTokenNotYetValid
	}

	return nil
}
