// Package database provides SQLite connectivity for Doorlatch.
//
// This package manages:
//   - Opening the database file with WAL mode and busy timeout
//   - Restrictive file permissions (0600) on the database file
//   - Schema migrations from embedded SQL files
//   - Health checks for the readiness endpoint
//
// SQLite is configured for a single writer with concurrent readers,
// which matches the request-per-call concurrency model of the service:
// conflicting writes serialise at the storage layer.
package database
