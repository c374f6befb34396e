package notifier

import (
	"time"

	kit "remindbot/internal/transport"
)

// Config controls outbound delivery.
type Config struct {
	RatePerSec  int
	SendTimeout time.Duration
}

// Message is one reminder text bound for a channel.
type Message struct {
	RefID     string // reminder id, for events and audit
	Platform  kit.Platform
	ChannelID string
	Text      string
}

type HistoryItem struct {
	At       time.Time
	RefID    string
	Platform kit.Platform
	OK       bool
	Error    string
}

// DeliveryEvent is published on the event bus after every send attempt.
type DeliveryEvent struct {
	RefID     string        `json:"ref_id"`
	Platform  kit.Platform  `json:"platform"`
	ChannelID string        `json:"channel_id"`
	MessageID string        `json:"message_id,omitempty"`
	At        time.Time     `json:"at"`
	Took      time.Duration `json:"took"`
	Error     string        `json:"error,omitempty"`
}
