// Package config provides centralized configuration management for the
// portfolio analytics platform.
//
// # Configuration Sources
//
// Configuration is assembled in order of increasing precedence:
//
//	1. Default values (Default)
//	2. A YAML file (PA_CONFIG_FILE, config.yaml or configs/config.yaml)
//	3. Environment variables
//
// # Environment Variables
//
// Every field is read from PA_<SECTION>_<NAME>, and falls back to the bare
// name when the prefixed variable is unset:
//
//	PA_SERVER_API_PORT=9000   or   API_PORT=9000
//	PA_CACHE_CACHE_TTL=3600   or   CACHE_TTL=3600
//	ALPHAVANTAGE_API_KEY=...
//	RISK_FREE_RATE=0.03
//
// # Domain Tables
//
// constants.go carries the market capitalisation buckets, lifecycle
// thresholds, sector classifications and base P/E multiples shared by the
// equity domain.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
