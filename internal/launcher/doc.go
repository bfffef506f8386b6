// Package launcher starts a library entry's executable and records the
// session in the library: elapsed minutes are added to playtime, the
// last-played time is stamped and a not-started entry moves to playing.
package launcher
