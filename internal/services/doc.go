// Package services defines shared utilities consumed by the matcher, the
// cloud sync layer, and the launcher.
//
// Key responsibilities:
//   - Context helpers that stamp game IDs, operation names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (transient vs. needs user action) without string matching.
//
// Use these helpers when wiring new integrations so error handling and
// observability stay uniform across the application.
package services
