// Package storage keeps an append-only audit trail of reminder lifecycle
// events (armed, delivered, failed, disarmed).
//
// Triggers themselves are never persisted; a restart drops every armed
// reminder. The audit log only records what happened.
package storage
