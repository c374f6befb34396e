package config

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

// ApplyDefaults fills the fields a minimal config may leave out.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	if strings.TrimSpace(cfg.Timezone) == "" {
		cfg.Timezone = DefaultTimezone
	}
	if strings.TrimSpace(cfg.Discord.ListenAddr) == "" {
		cfg.Discord.ListenAddr = ":3000"
	}
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Notifier == nil {
		cfg.Notifier = &NotifierConfig{RatePerSec: 5, SendTimeout: "10s"}
	}
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", name, err)
	}
	return loc, nil
}

// Validate checks a fully loaded config (file + env + defaults).
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	if _, err := cfg.Location(); err != nil {
		errs = append(errs, err)
	}
	if !cfg.Discord.Enabled && !cfg.Telegram.Enabled {
		errs = append(errs, errors.New("at least one of discord.enabled or telegram.enabled must be true"))
	}
	if cfg.Discord.Enabled {
		if cfg.Discord.VerifySignatures {
			if _, err := ParsePublicKey(cfg.Discord.PublicKey); err != nil {
				errs = append(errs, fmt.Errorf("discord.public_key: %w", err))
			}
		}
		if strings.TrimSpace(cfg.Discord.Token) == "" {
			errs = append(errs, errors.New("discord.token is required (or set DISCORD_TOKEN)"))
		}
	}
	if cfg.Telegram.Enabled && strings.TrimSpace(cfg.Telegram.Token) == "" {
		errs = append(errs, errors.New("telegram.token is required (or set TELEGRAM_TOKEN)"))
	}
	if _, err := ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout); err != nil {
		errs = append(errs, err)
	}
	if cfg.Notifier != nil {
		if _, err := ParseDurationField("notifier.send_timeout", cfg.Notifier.SendTimeout); err != nil {
			errs = append(errs, err)
		}
		if cfg.Notifier.RatePerSec < 0 {
			errs = append(errs, errors.New("notifier.rate_per_sec must be >= 0"))
		}
	}
	if cfg.Storage != nil {
		switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
		case "", "none", "file", "sqlite":
		default:
			errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver))
		}
		if _, err := ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
			errs = append(errs, err)
		}
	}
	if cfg.Logging.Chat.Enabled {
		switch strings.ToLower(strings.TrimSpace(cfg.Logging.Chat.Platform)) {
		case "discord", "telegram":
		default:
			errs = append(errs, fmt.Errorf("logging.chat.platform: unknown platform %q", cfg.Logging.Chat.Platform))
		}
	}
	return errors.Join(errs...)
}

// ValidateReload rejects changes that only take effect at startup.
func ValidateReload(oldCfg, newCfg *Config) error {
	if err := Validate(newCfg); err != nil {
		return err
	}
	if oldCfg == nil {
		return nil
	}
	if strings.TrimSpace(oldCfg.Timezone) != strings.TrimSpace(newCfg.Timezone) {
		return fmt.Errorf("timezone cannot change at runtime (%q -> %q); restart to apply", oldCfg.Timezone, newCfg.Timezone)
	}
	return nil
}

// ParsePublicKey decodes a hex ed25519 public key.
func ParsePublicKey(raw string) (ed25519.PublicKey, error) {
	b, err := hex.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("want %d bytes, got %d", ed25519.PublicKeySize, len(b))
	}
	return ed25519.PublicKey(b), nil
}
