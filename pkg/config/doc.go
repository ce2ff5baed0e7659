// Package config provides configuration management for tuffyctl.
//
// This package handles loading the provisioning settings from an optional
// YAML file and from environment variables.
//
// # Configuration Sources
//
// Configuration is loaded, in increasing precedence:
//
//   - Built-in defaults (the stock Tuffy setup)
//   - Configuration file (TUFFY_CONFIG_PATH/tuffy.yml)
//   - Environment variables
//
// # Key Configuration Options
//
//   - POSTGRES_USER / POSTGRES_PASSWORD: administrative credentials
//   - PGHOST / PGPORT / PGSSLMODE: server location
//   - TUFFY_DATABASE / TUFFY_OWNER / TUFFY_OWNER_PASSWORD: provisioned objects
//   - TUFFY_EXTENSIONS: comma-separated extension list
//   - DATABASE_URL: full admin connection URL override (see pkg/db)
package config
