package config

import (
	"strings"
	"time"
)

// CacheConfig drives the public read cache. Methods lists what is served
// from the cache; a successful request with any other method purges it.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string // route, route_query, method_route, method_route_query
	Prefix       string
	MaxBodyBytes int
}

var cacheKeyStrategies = map[string]bool{
	"route": true, "route_query": true, "method_route": true, "method_route_query": true,
}

func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      parseMethods(getenv("CACHE_METHODS", "GET")),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		KeyStrategy:  strings.ToLower(getenv("CACHE_KEY_STRATEGY", "route_query")),
		Prefix:       strings.TrimSuffix(getenv("CACHE_PREFIX", "cache"), ":"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
	if !cacheKeyStrategies[cfg.KeyStrategy] {
		cfg.KeyStrategy = "route_query"
	}
	if len(cfg.Methods) == 0 {
		cfg.Methods = map[string]bool{"GET": true}
	}
	return cfg
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, f := range strings.FieldsFunc(strings.ToUpper(s), func(r rune) bool { return r == ',' || r == ' ' }) {
		m[f] = true
	}
	return m
}
