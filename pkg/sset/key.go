package sset

import (
	"net/url"
	"strings"
)

// BuildKey shapes the backend key for a sorted set:
//
//	"{SSET:" + database + "}/" + urlEncode(idPath[0]) + ":" + urlEncode(idPath[1]) + ...
//
// The braces form a Redis cluster hash tag so every sorted set within one
// database lands on the same shard, enabling multi-key transactions. Each
// id-path segment is percent-encoded so ':' inside a user id cannot alias
// the delimiter.
func BuildKey(database string, idPath []string) (string, error) {
	if len(idPath) == 0 {
		return "", NewKeyShapeError("id-path must be non-empty")
	}

	segs := make([]string, len(idPath))
	for i, id := range idPath {
		segs[i] = url.QueryEscape(id)
	}

	var b strings.Builder
	b.WriteString("{SSET:")
	b.WriteString(database)
	b.WriteString("}/")
	b.WriteString(strings.Join(segs, ":"))
	return b.String(), nil
}
