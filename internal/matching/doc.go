// Package matching links loosely named library entries to RAWG catalog
// records and folds the catalog metadata into them.
//
// Resolver normalizes a raw title, searches RAWG, scores the first few hits
// with textutil.TitleSimilarity and accepts the best one at or above
// AcceptThreshold. Results are memoized per normalized title for the life of
// the process; failed lookups are not memoized so a later attempt can
// succeed. Matching never returns an error to its caller: network and decode
// failures are logged and reported as "no match".
//
// MergeEnrichment applies a match to a record with user-entered values
// winning field by field, while the match linkage is always stamped.
// Matcher ties the resolver to the library store for single, batch and
// rematch flows.
package matching
