// Package config loads, normalizes, and validates Orbit configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional .env file, and honours
// environment fallbacks such as RAWG_API_KEY and ORBIT_PG_DSN. The Config type
// centralizes every knob the CLI and the watch loop need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
