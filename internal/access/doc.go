// Package access is the decision engine behind the door.
//
// It owns the three security-sensitive flows: keypad PIN checks against
// the stored hash set, admin login with rate limiting and uniform
// credential errors, and the credential management operations the admin
// API exposes. Every decision is written to the audit log and, when a
// broker is configured, announced over MQTT for the relay controller.
package access
