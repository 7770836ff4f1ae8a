package session

import "errors"

// Sentinel errors for session operations.
var (
	// ErrUnauthorized is returned for missing, malformed, expired, or
	// revoked credentials. Callers map it to an HTTP 401; it is never
	// a panic or an internal error.
	ErrUnauthorized = errors.New("session: unauthorized")
)

// Authority issues and validates the credential that gates administrative
// operations. A credential moves forward-only: issued, then valid, then
// expired or revoked - there is no way back.
//
// Two implementations exist, selected by configuration:
//   - MemoryAuthority: opaque server-held session tokens (lost on restart)
//   - JWTAuthority: self-describing signed tokens validated by signature
type Authority interface {
	// Issue creates a credential for the username. Called only after
	// successful password verification.
	Issue(username string) (string, error)

	// Authorize validates a credential and resolves it back to the
	// originating username. Returns ErrUnauthorized on any failure.
	Authorize(token string) (string, error)

	// Revoke invalidates a credential (explicit logout). Idempotent;
	// revoking an unknown or already-revoked token is not an error.
	Revoke(token string)
}
