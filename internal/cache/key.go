package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

var keyFolder = cases.Fold()

// Key builds a deterministic cache key from the request method, path,
// and the selected query parameters. Values are Unicode case-folded so
// "Rifle" and "rifle" share an entry, then digested to a fixed-length
// hex string.
func Key(method, path string, query url.Values, params []string) string {
	var b strings.Builder
	b.WriteString(method)
	b.WriteByte(':')
	b.WriteString(path)

	names := make([]string, 0, len(params))
	names = append(names, params...)
	sort.Strings(names)

	for _, name := range names {
		values, ok := query[name]
		if !ok {
			continue
		}
		for _, v := range values {
			b.WriteByte(':')
			b.WriteString(name)
			b.WriteByte('=')
			b.WriteString(keyFolder.String(v))
		}
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
