package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDurationUnmarshalYAML(t *testing.T) {
	t.Parallel()

	var v struct {
		Timeout Duration `yaml:"timeout"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(`timeout: "1h30m"`), &v))
	assert.Equal(t, 90*time.Minute, v.Timeout.Duration())

	require.NoError(t, yaml.Unmarshal([]byte(`timeout: ""`), &v))
	assert.Equal(t, time.Duration(0), v.Timeout.Duration())

	assert.Error(t, yaml.Unmarshal([]byte(`timeout: "soon"`), &v))
}

func TestDurationMarshalYAML(t *testing.T) {
	t.Parallel()

	out, err := yaml.Marshal(Duration(5 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, "5s\n", string(out))
}

func TestDurationJSONRoundTrip(t *testing.T) {
	t.Parallel()

	d := Duration(250 * time.Millisecond)
	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"250ms"`, string(data))

	var parsed Duration
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, d, parsed)

	require.NoError(t, json.Unmarshal([]byte("null"), &parsed))
	assert.Equal(t, Duration(0), parsed)
}
