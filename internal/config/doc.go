// Package config loads, normalizes, and validates audiotool configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// AUDIOTOOL_CACHE_DIR. The Config type centralizes every knob the CLI and the
// integrity checker need, so the cache database, lock file, run logs, and
// exports are all discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
