package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": JSON Lines file at Path
//   - "sqlite": SQLite database file at Path
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Audit actions.
const (
	ActionArmed     = "armed"
	ActionDelivered = "delivered"
	ActionFailed    = "failed"
	ActionDisarmed  = "disarmed"
)

// AuditEntry is one reminder lifecycle record.
// Keep it compact and schema-stable.
type AuditEntry struct {
	At          time.Time `json:"at"`
	ReminderID  string    `json:"reminder_id"`
	Platform    string    `json:"platform,omitempty"`
	RequesterID string    `json:"requester_id,omitempty"`
	ChannelID   string    `json:"channel_id,omitempty"`
	Event       string    `json:"event,omitempty"`
	Action      string    `json:"action"`
	FireAt      time.Time `json:"fire_at,omitempty"`
	Error       string    `json:"error,omitempty"`
}
