package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig configures one token bucket profile. Profiles are named
// (e.g. "api", "auth", "webhook") and read RATE_LIMIT_<NAME>_* variables,
// falling back to the shared RATE_LIMIT_* ones.
type RateLimitConfig struct {
	Name           string
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig builds the profile called name with the given
// default capacity.
func LoadRateLimitConfig(name string, defCapacity int) RateLimitConfig {
	key := func(suffix string) string {
		scoped := "RATE_LIMIT_" + strings.ToUpper(name) + "_" + suffix
		if os.Getenv(scoped) != "" {
			return scoped
		}
		return "RATE_LIMIT_" + suffix
	}
	def := RateLimitConfig{
		Name:           name,
		Enabled:        envBool(key("ENABLED"), true),
		Capacity:       envInt(key("CAPACITY"), defCapacity),
		RefillTokens:   envInt(key("REFILL_TOKENS"), 1),
		RefillInterval: envDur(key("REFILL_INTERVAL"), time.Second),
		TTL:            envDur(key("TTL"), 10*time.Minute),
		KeyStrategy:    envStr(key("KEY_STRATEGY"), "auto"),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl") + ":" + name,
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	if def.Capacity < 1 {
		def.Capacity = 1
	}
	if def.RefillTokens < 1 {
		def.RefillTokens = 1
	}
	if def.RefillInterval <= 0 {
		def.RefillInterval = time.Second
	}
	if minTTL := 5 * def.RefillInterval; def.TTL < minTTL {
		def.TTL = minTTL
	}
	return def
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
