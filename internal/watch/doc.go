// Package watch runs the long-lived background loop behind `orbit watch`.
//
// A Runner holds an exclusive file lock so only one loop runs per data
// directory, pulls the cloud copy once at start, then applies remote
// changes as they arrive. When auto-matching is configured, a gocron job
// periodically matches entries that are still unmatched. Cancelling the
// context stops the loop and flushes any pending push.
package watch
