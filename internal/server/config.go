package server

import "time"

// Config holds server configuration.
type Config struct {
	// Server settings
	Host string
	Port int

	// API settings
	PathPrefix string

	// CORS settings
	CORSEnabled bool
	CORSOrigins []string

	// Authentication settings
	AuthEnabled bool
	AuthHeader  string
	APIKey      string

	// RateLimit is requests per minute per IP; 0 disables limiting.
	RateLimit int

	// Session settings
	SessionTTL    time.Duration // idle lifetime of a page's session
	FieldsTTL     time.Duration // field metadata cache lifetime
	BootTimeout   time.Duration // bound on a background boot
	ActionTimeout time.Duration // bound on retry, reload, blur and submit

	// HTTP timeouts
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:          "localhost",
		Port:          8080,
		PathPrefix:    "/api/v1",
		AuthHeader:    "X-API-Key",
		RateLimit:     300,
		SessionTTL:    30 * time.Minute,
		FieldsTTL:     10 * time.Minute,
		BootTimeout:   time.Minute,
		ActionTimeout: time.Minute,
		ReadTimeout:   10 * time.Second,
		WriteTimeout:  0, // streams stay open
		IdleTimeout:   120 * time.Second,
	}
}
