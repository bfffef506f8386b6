// Package textutil provides the title cleanup and similarity helpers used by
// the matcher.
//
// NormalizeTitle turns filename or repack style titles ("Cyberpunk.2077.v2.1-CODEX")
// into search queries. TitleSimilarity scores a query against a candidate with
// a coarse cascade (exact, substring, token containment) whose thresholds the
// resolver is tuned against. TitleFromPath derives a display title from an
// executable path.
package textutil
