package ratelimit

import "strings"

// MatchEndpoint resolves the limit configuration for a request. Exact path
// and method matches win; entries whose path ends in "/" match as prefixes,
// so "/campaigns/" covers "/campaigns/{id}". The health check is never
// limited.
func MatchEndpoint(path, method string, configs []EndpointConfig) *EndpointConfig {
	if path == "/health" && method == "GET" {
		return &EndpointConfig{}
	}

	for i := range configs {
		if configs[i].Method == method && configs[i].Path == path {
			return &configs[i]
		}
	}
	for i := range configs {
		c := &configs[i]
		if c.Method == method && strings.HasSuffix(c.Path, "/") && strings.HasPrefix(path, c.Path) {
			return c
		}
	}
	return nil
}
