// Package session issues and validates the bearer tokens that protect
// the admin API.
//
// Two authorities implement the same interface. MemoryAuthority stores
// opaque random tokens server-side, so a restart signs everyone out and
// revocation is immediate. JWTAuthority signs stateless tokens that
// survive restarts, at the cost of a best-effort in-memory revocation
// set. Configuration selects one at startup.
package session
