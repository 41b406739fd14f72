// Package config provides centralized configuration management for the
// segmentation service and CLI. It loads settings from multiple sources,
// validates them, and exposes a type-safe API to the rest of the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. A YAML configuration file (SEGMENT_CONFIG, config.yaml or configs/config.yaml)
//	3. Default values (lowest priority)
//
// The binaries additionally load a .env file before calling Load.
//
// # Environment Variables
//
// All environment variables follow the pattern SEGMENT_<SECTION>_<FIELD>:
//
//	SEGMENT_SERVER_PORT=8080
//	SEGMENT_SEGMENTATION_SEED_END=299
//	SEGMENT_SEGMENTATION_WORKERS=4
//	SEGMENT_DATABASE_ENABLED=true
//	SEGMENT_DATABASE_URL=postgres://...
//	SEGMENT_KAFKA_BROKERS=broker-1:9092,broker-2:9092
//
// # Validation
//
// Every section carries validator tags that are checked by Validate, so a
// configuration returned by Load always satisfies, for example, a non-empty
// seed range and at least two clusters.
//
// # Path Management
//
// Paths resolves the data, report and log directories relative to the
// executable location:
//
//	paths, err := config.ResolvePaths(cfg.Paths)
//	reportPath := paths.GetReportPath("summary.json")
//
// # Testing
//
// Use Default() to obtain a configuration with sensible defaults that does
// not depend on the environment or on files.
package config
