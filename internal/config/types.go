package config

// DefaultTimezone is used when neither the config file nor TZ names one.
const DefaultTimezone = "Asia/Manila"

type Config struct {
	// Timezone is the IANA zone every reminder is resolved and fired in.
	// It is read once at startup; a reload that changes it is rejected.
	Timezone string `json:"timezone"`

	Discord   DiscordConfig   `json:"discord"`
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`

	Notifier *NotifierConfig `json:"notifier,omitempty"`
	Storage  *StorageConfig  `json:"storage,omitempty"`
}

// DiscordConfig controls the interactions webhook and the REST client.
//
// Secrets are usually injected from the environment (see ApplyEnv) rather
// than written to the file.
type DiscordConfig struct {
	Enabled   bool   `json:"enabled"`
	AppID     string `json:"app_id,omitempty"`
	Token     string `json:"token,omitempty"`
	PublicKey string `json:"public_key,omitempty"` // hex-encoded ed25519 key

	// VerifySignatures disables ed25519 checks when false (local development).
	VerifySignatures bool `json:"verify_signatures"`

	// ListenAddr defaults to ":3000".
	ListenAddr string `json:"listen_addr,omitempty"`
}

type TelegramConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token,omitempty"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
	Chat    LoggingChat `json:"chat"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingChat mirrors WARN+ log lines into a chat channel.
type LoggingChat struct {
	Enabled    bool   `json:"enabled"`
	Platform   string `json:"platform"` // "discord" or "telegram"
	Channel    string `json:"channel"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

type SchedulerConfig struct {
	Enabled bool `json:"enabled"`
}

// NotifierConfig controls outbound reminder delivery.
//
// Durations are Go duration strings. Each reminder gets exactly one send
// attempt; there is no retry setting.
type NotifierConfig struct {
	RatePerSec  int    `json:"rate_per_sec"`
	SendTimeout string `json:"send_timeout"`
}

// StorageConfig controls the reminder audit log.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./remindbot.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}
