// Package notifier delivers fired reminders to chat channels.
//
// # Transport
//
// Delivery goes through the kit.Adapter registered for the message's
// platform. Each message gets exactly one send attempt, bounded by
// SendTimeout and paced by a token-bucket limiter shared across platforms.
// Failures are returned wrapped in ErrDelivery and published as
// reminder.failed; they are never retried.
//
// # History
//
// The service keeps a small in-memory history of recent attempts for
// operator visibility.
package notifier
