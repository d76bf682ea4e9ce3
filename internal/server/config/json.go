package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/openpmca/webinstaller/internal/flagx"
	"github.com/openpmca/webinstaller/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "15m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, its fields are copied into the
// runtime Config struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddrHTTP               string         `json:"endpoint_addr_http"`
	ExternalURL                    string         `json:"external_url"`
	DatabaseDSN                    string         `json:"database_dsn"`
	SecretKey                      string         `json:"secret_key"`
	RetrievalTokenValidityDuration timex.Duration `json:"retrieval_token_validity_duration"`
	MarketBaseURL                  string         `json:"market_base_url"`
	MarketRequestTimeout           timex.Duration `json:"market_request_timeout"`
	S3RootUser                     string         `json:"s3_root_user"`
	S3RootPassword                 string         `json:"s3_root_password"`
	S3Bucket                       string         `json:"s3_bucket"`
	S3Region                       string         `json:"s3_region"`
	S3BaseEndpoint                 string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path is taken from the -c or -config command-line flags; if
// neither is set, no JSON file is loaded. If the file cannot be read or
// contains invalid JSON, the function panics.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.ExternalURL = c.ExternalURL
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.RetrievalTokenValidityDuration = time.Duration(c.RetrievalTokenValidityDuration.Duration)
	config.MarketBaseURL = c.MarketBaseURL
	config.MarketRequestTimeout = time.Duration(c.MarketRequestTimeout.Duration)
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
}
