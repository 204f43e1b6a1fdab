// Package config provides centralized configuration management for the
// sitekit server. It handles loading configuration from multiple sources,
// validation, and provides a type-safe API for accessing configuration
// values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration file (YAML)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern SITEKIT_* for namespacing:
//
//	SITEKIT_SERVER_PORT=8080
//	SITEKIT_TEMPLATES_DIR=templates
//	SITEKIT_TEMPLATES_APPEND_SLASH=true
//	SITEKIT_LOGGING_LEVEL=info
//	SITEKIT_TOOLBAR_ENABLED=true
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// For tests, config.Default() returns a configuration with sensible
// defaults that does not require environment variables or files.
package config
