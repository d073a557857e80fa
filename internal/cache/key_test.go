package cache

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyDeterministic(t *testing.T) {
	t.Parallel()

	q := url.Values{"q": {"rifle"}, "limit": {"10"}}
	a := Key("GET", "/search", q, []string{"q", "limit"})
	b := Key("GET", "/search", q, []string{"limit", "q"})

	assert.Equal(t, a, b, "parameter order does not matter")
	assert.Len(t, a, 64, "sha256 hex digest")
}

func TestKeyCaseFolding(t *testing.T) {
	t.Parallel()

	a := Key("GET", "/search", url.Values{"q": {"Rifle"}}, []string{"q"})
	b := Key("GET", "/search", url.Values{"q": {"rifle"}}, []string{"q"})

	assert.Equal(t, a, b, "query values are case-folded")
}

func TestKeyDistinguishes(t *testing.T) {
	t.Parallel()

	base := Key("GET", "/search", url.Values{"q": {"rifle"}}, []string{"q"})

	assert.NotEqual(t, base, Key("GET", "/search", url.Values{"q": {"ammo"}}, []string{"q"}))
	assert.NotEqual(t, base, Key("GET", "/other", url.Values{"q": {"rifle"}}, []string{"q"}))
	assert.NotEqual(t, base, Key("POST", "/search", url.Values{"q": {"rifle"}}, []string{"q"}))
}

func TestKeyIgnoresUnselectedParams(t *testing.T) {
	t.Parallel()

	a := Key("GET", "/search", url.Values{"q": {"rifle"}, "trace": {"1"}}, []string{"q"})
	b := Key("GET", "/search", url.Values{"q": {"rifle"}}, []string{"q"})

	assert.Equal(t, a, b, "unselected parameters do not affect the key")
}
