// Package config loads, normalizes, and validates Skimmer configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// BACKUP_RETENTION_DAYS. The Config type centralizes every knob the scheduler
// daemon, backup manager, and CLI need, so trigger directories, retention
// windows, and the scrape job invocation are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
