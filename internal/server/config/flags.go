package config

import (
	"flag"
	"os"
	"time"

	"github.com/openpmca/webinstaller/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-x string   external base URL handed to camera firmware
//	-d string   PostgreSQL DSN (empty selects the in-memory task store)
//	-s string   retrieval token HMAC secret key
//	-t int      retrieval token validity, minutes
//	-m string   vendor store portal base URL
//	-w int      vendor store request timeout, seconds
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (empty selects the in-memory package store)
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers and converted to time.Duration
//     values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-x", "-d", "-s", "-t", "-m", "-w", "-u", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.ExternalURL, "x", config.ExternalURL, "external base URL")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	retrievalTokenValidityDuration := fs.Int("t", int(config.RetrievalTokenValidityDuration.Minutes()), "retrieval_token_validity_duration (in minutes)")

	fs.StringVar(&config.MarketBaseURL, "m", config.MarketBaseURL, "vendor store base URL")
	marketRequestTimeout := fs.Int("w", int(config.MarketRequestTimeout.Seconds()), "vendor store request timeout (in seconds)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.RetrievalTokenValidityDuration = time.Duration(*retrievalTokenValidityDuration) * time.Minute
	config.MarketRequestTimeout = time.Duration(*marketRequestTimeout) * time.Second
}
