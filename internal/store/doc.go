// Package store provides persistence for Doorlatch secrets: hashed
// access PINs and administrator accounts.
//
// Repositories follow an interface-plus-SQLite-implementation pattern
// with explicit *sql.DB injection - no package-level database handles.
// All operations are durable before returning; I/O failures surface as
// wrapped errors and are never swallowed.
//
// Design notes:
//   - PINs delete by stable record ID. Salted hashes are
//     non-deterministic, so delete-by-plaintext cannot work.
//   - Admin username uniqueness is enforced by the schema
//     (UNIQUE constraint), surfaced as ErrUsernameExists.
//   - Duplicate PINs are permitted; the keypad cannot distinguish
//     two identical codes anyway.
package store
