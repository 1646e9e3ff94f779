// Package config reads runtime settings from the environment and viper.
package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/agentstation/recordsync/pkg/errors"
	"github.com/agentstation/recordsync/pkg/gate"
)

// Setting keys.
const (
	KeyBridgeURL        = "bridge_url"
	KeyBridgeToken      = "bridge_token"
	KeyBridgeAuth       = "bridge_auth"
	KeyBridgeTimeout    = "bridge_timeout"
	KeyRequestTimeout   = "bridge_request_timeout"
	KeyBridgeRateLimit  = "bridge_rate_limit"
	KeyBridgeBurst      = "bridge_burst"
	KeyPollInterval     = "poll_interval"
	KeyHandshakeTimeout = "handshake_timeout"
	KeyHandshakeMethod  = "bridge_handshake_method"
	KeyKindsFile        = "kinds_file"
)

// Defaults for settings without a gate counterpart.
const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultRateLimit      = 2.0
	DefaultBurst          = 2
)

// GetString is a helper to get string values from Viper.
// It checks both OS environment variables and Viper configuration.
func GetString(key string) string {
	osValue := os.Getenv(strings.ToUpper(key))
	viperValue := viper.GetString(key)

	if viperValue == "" && osValue != "" {
		return osValue
	}
	return viperValue
}

// GetDuration returns a duration setting or def when unset or malformed.
func GetDuration(key string, def time.Duration) time.Duration {
	raw := GetString(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return def
	}
	return d
}

// GetFloat returns a float setting or def when unset or malformed.
func GetFloat(key string, def float64) float64 {
	raw := GetString(key)
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return f
}

// GetInt returns an int setting or def when unset or malformed.
func GetInt(key string, def int) int {
	raw := GetString(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// BridgeSettings configures the HTTP host bridge.
type BridgeSettings struct {
	URL              string        `json:"url" yaml:"url"`
	Token            string        `json:"-" yaml:"-"`
	Auth             string        `json:"auth,omitempty" yaml:"auth,omitempty"`
	Timeout          time.Duration `json:"timeout" yaml:"timeout"`
	RequestTimeout   time.Duration `json:"request_timeout" yaml:"request_timeout"`
	PollInterval     time.Duration `json:"poll_interval" yaml:"poll_interval"`
	HandshakeTimeout time.Duration `json:"handshake_timeout" yaml:"handshake_timeout"`
	HandshakeMethod  string        `json:"handshake_method,omitempty" yaml:"handshake_method,omitempty"`
	RateLimit        float64       `json:"rate_limit" yaml:"rate_limit"`
	Burst            int           `json:"burst" yaml:"burst"`
}

// Bridge reads and validates the bridge settings.
func Bridge() (BridgeSettings, error) {
	s := BridgeSettings{
		URL:              strings.TrimRight(GetString(KeyBridgeURL), "/"),
		Token:            GetString(KeyBridgeToken),
		Auth:             GetString(KeyBridgeAuth),
		Timeout:          GetDuration(KeyBridgeTimeout, gate.DefaultTimeout),
		RequestTimeout:   GetDuration(KeyRequestTimeout, DefaultRequestTimeout),
		PollInterval:     GetDuration(KeyPollInterval, gate.DefaultPollInterval),
		HandshakeTimeout: GetDuration(KeyHandshakeTimeout, gate.DefaultHandshakeTimeout),
		HandshakeMethod:  strings.TrimSpace(GetString(KeyHandshakeMethod)),
		RateLimit:        GetFloat(KeyBridgeRateLimit, DefaultRateLimit),
		Burst:            GetInt(KeyBridgeBurst, DefaultBurst),
	}
	return s, s.Validate()
}

// Validate checks the settings are usable.
func (s BridgeSettings) Validate() error {
	if s.URL == "" {
		return errors.NewConfigError("bridge", "BRIDGE_URL is not set", nil)
	}
	u, err := url.Parse(s.URL)
	if err != nil {
		return errors.NewConfigError("bridge", "invalid BRIDGE_URL", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.NewConfigError("bridge", "BRIDGE_URL must be http or https", nil)
	}
	if s.RateLimit < 0 || s.Burst < 0 {
		return errors.NewConfigError("bridge", "rate limit and burst must not be negative", nil)
	}
	if s.HandshakeTimeout > s.Timeout {
		return errors.NewConfigError("bridge", "handshake timeout must not exceed the bridge timeout", nil)
	}
	return nil
}
