// Package config provides configuration management for the dailyindex
// service. It handles loading configuration from multiple sources,
// validation, and provides a typed API for the rest of the application.
//
// # Configuration Sources
//
// Configuration is built from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern DAILYINDEX_<SECTION>_<FIELD>:
//
//	DAILYINDEX_SERVER_PORT=8000
//	DAILYINDEX_DATA_SEED_FILE=data/daxsp.csv
//	DAILYINDEX_DATA_VALID_INDICES=DAX,SP500
//	DAILYINDEX_LOGGING_LEVEL=debug
//	DAILYINDEX_TELEMETRY_ENABLE_TRACING=true
//
// DAILYINDEX_CONFIG_FILE points at an explicit YAML file; otherwise
// config.yaml and configs/config.yaml are tried.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// For tests, Default returns a configuration that needs no environment or
// files.
package config
