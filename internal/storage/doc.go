// Package storage persists built document trees in SQLite so repeated
// course builds over the same repository skip discovery and
// classification.
//
// The cache is advisory. Every failure mode, from a missing database file
// to a corrupt metadata column, surfaces as an error the caller treats as
// a cache miss; the pipeline then rebuilds from source and overwrites the
// stored tree. SaveTree replaces a repository's documents wholesale inside
// one transaction, so a reader never observes a half-written tree.
//
// Two SQLite drivers are supported behind build tags:
//
//	CGO_ENABLED=1 go build -tags "sqlite_cgo" ./...   (mattn/go-sqlite3)
//	CGO_ENABLED=0 go build ./...                       (modernc.org/sqlite)
//
// The default pure Go driver needs no C toolchain; the CGO driver is
// faster when one is available.
package storage
