// Package rawg provides the minimal RAWG Video Games Database client used by
// the title matcher.
//
// It covers game search, game detail, screenshots and trailer lookups. Every
// request carries the configured API key and runs under the client's HTTP
// timeout so a stalled catalog never blocks the library. Options allow tests
// to supply an httptest server without touching production code.
package rawg
