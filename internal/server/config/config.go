// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the web installer server.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the public HTTP endpoint.
//   - ExternalURL: public base URL written into firmware-facing documents
//     (descriptor portal URL, container download URL).
//   - DatabaseDSN: PostgreSQL DSN (pgx) for the task store; when empty the
//     server falls back to the in-memory store.
//   - SecretKey: HMAC secret for signing container retrieval tokens (HS256).
//     Do not use test defaults in prod.
//   - RetrievalTokenValidityDuration: lifetime of retrieval tokens.
//   - MarketBaseURL / MarketRequestTimeout: vendor store API settings.
//   - S3RootUser / S3RootPassword: credentials for the S3-compatible backend.
//   - S3Bucket / S3Region / S3BaseEndpoint: object storage settings; an empty
//     endpoint selects the in-memory package store.
type Config struct {
	EndpointAddrHTTP               string
	ExternalURL                    string
	DatabaseDSN                    string
	SecretKey                      string
	RetrievalTokenValidityDuration time.Duration
	MarketBaseURL                  string
	MarketRequestTimeout           time.Duration
	S3RootUser                     string
	S3RootPassword                 string
	S3Bucket                       string
	S3Region                       string
	S3BaseEndpoint                 string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.ExternalURL = "http://127.0.0.1:8080"
	c.DatabaseDSN = ""
	c.SecretKey = "secretKey"
	c.RetrievalTokenValidityDuration = 15 * time.Minute
	c.MarketBaseURL = "https://store.camera-apps.example.com/portal"
	c.MarketRequestTimeout = 30 * time.Second
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "packages"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = ""
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
