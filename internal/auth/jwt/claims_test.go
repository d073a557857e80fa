package jwt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAudienceUnmarshal(t *testing.T) {
	t.Parallel()

	var a Audience
	require.NoError(t, json.Unmarshal([]byte(`"search-api"`), &a))
	assert.Equal(t, Audience{"search-api"}, a)

	require.NoError(t, json.Unmarshal([]byte(`["search-api","stats-api"]`), &a))
	assert.Equal(t, Audience{"search-api", "stats-api"}, a)

	assert.Error(t, json.Unmarshal([]byte(`42`), &a))
}

func TestAudienceMarshal(t *testing.T) {
	t.Parallel()

	out, err := json.Marshal(Audience{"search-api"})
	require.NoError(t, err)
	assert.Equal(t, `"search-api"`, string(out), "single audience marshals as string")

	out, err = json.Marshal(Audience{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, string(out))
}

func TestScopeUnmarshal(t *testing.T) {
	t.Parallel()

	var s Scope
	require.NoError(t, json.Unmarshal([]byte(`["Search","STATS"]`), &s))
	assert.Equal(t, Scope{"search", "stats"}, s, "scope values normalize lowercase")

	require.NoError(t, json.Unmarshal([]byte(`"search stats token"`), &s))
	assert.Equal(t, Scope{"search", "stats", "token"}, s, "space-separated string form")
}

func TestScopeHas(t *testing.T) {
	t.Parallel()

	s := Scope{"search", "token"}
	assert.True(t, s.Has("search"))
	assert.True(t, s.Has("SEARCH"))
	assert.False(t, s.Has("stats"))
}

func TestTimeRoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Now().Truncate(time.Second)
	out, err := json.Marshal(NewTime(now))
	require.NoError(t, err)

	var parsed Time
	require.NoError(t, json.Unmarshal(out, &parsed))
	assert.True(t, parsed.Equal(now))
}

func TestValidWithSkew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		claims  Claims
		skew    time.Duration
		wantErr error
	}{
		{
			name:   "valid",
			claims: Claims{ExpiresAt: NewTime(time.Now().Add(time.Hour))},
		},
		{
			name:    "expired",
			claims:  Claims{ExpiresAt: NewTime(time.Now().Add(-time.Minute))},
			wantErr: ErrTokenExpired,
		},
		{
			name:   "expired within skew",
			claims: Claims{ExpiresAt: NewTime(time.Now().Add(-5 * time.Second))},
			skew:   10 * time.Second,
		},
		{
			name:    "not before in future",
			claims:  Claims{NotBefore: NewTime(time.Now().Add(time.Hour))},
			wantErr: ErrTokenNotYetValid,
		},
		{
			name:    "issued in future",
			claims:  Claims{IssuedAt: NewTime(time.Now().Add(time.Hour))},
			wantErr: ErrTokenNotYetValid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.claims.ValidWithSkew(tt.skew)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
