package ratelimit

import "strings"

// unlimitedPaths are never throttled.
var unlimitedPaths = map[string]bool{
	"/health": true,
}

// MatchEndpoint returns the configuration for path and method, or nil when the
// default limit applies. Exact paths win over prefixes; a prefix ends with "/".
func MatchEndpoint(path, method string, configs []EndpointConfig) *EndpointConfig {
	if method == "GET" && unlimitedPaths[path] {
		return &EndpointConfig{Path: path, Method: method}
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
