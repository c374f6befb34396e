package app

import (
	"fmt"
	"strings"
	"time"

	"remindbot/internal/config"
	"remindbot/internal/notifier"
	"remindbot/internal/storage"
	logx "remindbot/pkg/logx"
)

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)

	switch driver {
	case "file":
		if path == "" {
			path = "./remindbot.audit.jsonl"
		}
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: "sqlite", Path: path, BusyTimeout: busy}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	if cfg == nil || cfg.Notifier == nil {
		return notifier.Config{}, nil
	}
	timeout, err := config.ParseDurationField("notifier.send_timeout", cfg.Notifier.SendTimeout)
	if err != nil {
		return notifier.Config{}, err
	}
	return notifier.Config{RatePerSec: cfg.Notifier.RatePerSec, SendTimeout: timeout}, nil
}

func mapLogConfig(cfg *config.Config) logx.Config {
	lc := cfg.Logging
	return logx.Config{
		Level:   lc.Level,
		Console: lc.Console,
		File: logx.FileConfig{
			Enabled: lc.File.Enabled,
			Path:    lc.File.Path,
		},
		Chat: logx.ChatConfig{
			Enabled:    lc.Chat.Enabled,
			Channel:    lc.Chat.Channel,
			MinLevel:   lc.Chat.MinLevel,
			RatePerSec: lc.Chat.RatePerSec,
		},
	}
}
