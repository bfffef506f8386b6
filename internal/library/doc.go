// Package library owns the game record model, the local SQLite library store
// and the conflict merge used when a cloud snapshot meets local state.
//
// Records are keyed by an opaque UUID assigned on creation. Playtime only ever
// grows across merges; recency (LastPlayed, falling back to DateAdded) decides
// which copy's other fields survive. The store also carries a small key/value
// table for process state such as the sync device id.
package library
