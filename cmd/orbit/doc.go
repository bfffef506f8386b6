// Package main hosts the Orbit CLI entrypoint and command graph.
//
// The Cobra-based command tree manages the local game library, runs title
// matching against RAWG, plays games while recording playtime, and drives
// cloud sync. It centralizes configuration resolution, store and sync
// wiring, and output formatting so subcommands can focus on user experience.
//
// Keep this package lean: add new functionality to the internal packages
// first, then surface it through dedicated commands or flags here.
package main
