// Package songlink is a client for the song.link cross-platform link API.
package songlink

import "time"

// DefaultBaseURL is the public song.link links endpoint.
const DefaultBaseURL = "https://api.song.link/v1-alpha.1/links"

// Config holds song.link client settings.
type Config struct {
	// Name labels the circuit breaker and metrics. Clients with separate
	// limiters should use distinct names.
	Name    string
	BaseURL string
	// RatePerMinute caps outgoing requests. Zero or less disables pacing.
	RatePerMinute int
	Timeout       time.Duration
	// CacheTTL is how long per-URL platform links are reused.
	CacheTTL time.Duration
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Name:          "songlink",
		BaseURL:       DefaultBaseURL,
		RatePerMinute: 60,
		Timeout:       10 * time.Second,
		CacheTTL:      6 * time.Hour,
	}
}
