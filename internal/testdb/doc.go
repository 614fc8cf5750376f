// Package testdb provides a migrated PostgreSQL database for integration
// tests. It connects to MOODBOARD_TEST_DB_URL when set and otherwise starts
// a disposable pgvector container.
//
// Tests must be built with the integration tag:
//
//	go test -tags=integration ./...
package testdb
