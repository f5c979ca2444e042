package tieredcache

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Key joins the cache's namespace prefix with the given parts:
// {prefix}:{part}:{part}... Empty parts are kept so key shapes stay aligned
// across call sites.
func (c *Cache[V]) Key(parts ...string) string {
	return strings.Join(append([]string{c.cfg.Prefix}, parts...), ":")
}

// QueryKey produces a deterministic key segment for a query-shaped value,
// e.g. pagination and filter parameters of a list endpoint. It encodes the
// value as canonical JSON (encoding/json emits map keys in sorted order), so
// semantically equal queries always produce the same segment and different
// queries produce different ones.
//
// The value must be JSON-marshalable; anything else falls back to the Go
// syntax representation, which is still deterministic for comparable values.
func QueryKey(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(data)
}
