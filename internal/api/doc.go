// Package api implements the HTTP REST API for Doorlatch.
//
// This package provides:
//   - The keypad endpoint (POST /api/v1/access/check), unauthenticated
//     because the PIN itself is the credential
//   - Admin authentication (login/logout/me) with bearer tokens
//   - Credential management endpoints for PINs and admin accounts
//   - Access history queries backed by the audit log
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - TLS support for production deployments
//
// # Security
//
// Admin routes require a bearer token issued at login and validated by
// the configured session authority. Login attempts are rate limited per
// source address; throttled callers get 429 with Retry-After. Error
// responses for the keypad and login paths deliberately reveal nothing
// beyond granted/denied and invalid credentials.
package api
