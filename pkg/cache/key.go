package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key identifies a cached SODA response by resource path and query
// parameters.
type Key struct {
	// Resource is the dataset resource path (e.g. "/resource/y8y3-fqfu.json").
	Resource string

	// Params are the SODA query parameters ($where, $limit, ...).
	Params url.Values
}

// String generates a deterministic cache key string.
// Format: soda:resource:param1=val1:param2=val2
//
// Example:
//
//	soda:resource/y8y3-fqfu.json:$limit=1000:$where=...
func (k Key) String() string {
	parts := []string{"soda"}

	resource := strings.Trim(k.Resource, "/")
	if resource != "" {
		parts = append(parts, resource)
	}

	// Params sorted for determinism.
	if len(k.Params) > 0 {
		paramKeys := make([]string, 0, len(k.Params))
		for key := range k.Params {
			paramKeys = append(paramKeys, key)
		}
		sort.Strings(paramKeys)

		for _, key := range paramKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.Params.Get(key)))
		}
	}

	return strings.Join(parts, ":")
}
