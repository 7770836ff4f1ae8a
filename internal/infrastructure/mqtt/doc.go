// Package mqtt publishes access decisions and service status to an MQTT
// broker.
//
// The service never talks to door hardware directly. Instead, every
// credential check result is announced on doorlatch/access/decision and
// a relay controller subscribed to the broker actuates the strike.
// Service liveness is visible on doorlatch/system/status via a retained
// message and a Last Will that distinguishes crashes from shutdowns.
//
// The whole package is optional: when mqtt.enabled is false in the
// configuration, decisions are only written to the audit log.
package mqtt
