package config

import (
	"os"
	"strconv"
	"strings"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays deployment secrets and platform settings from the
// environment. Non-empty variables win over file values.
//
//	DISCORD_TOKEN       discord.token
//	DISCORD_PUBLIC_KEY  discord.public_key (PUBLIC_KEY also accepted)
//	DISCORD_APP_ID      discord.app_id (APP_ID also accepted)
//	PRODUCTION          discord.verify_signatures when set to a non-zero number
//	PORT                discord.listen_addr as ":<port>"
//	TZ                  timezone
//	TELEGRAM_TOKEN      telegram.token
func ApplyEnv(cfg *Config, lookup LookupFunc) {
	if cfg == nil {
		return
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return ""
	}

	if v := get("DISCORD_TOKEN"); v != "" {
		cfg.Discord.Token = v
	}
	if v := get("DISCORD_PUBLIC_KEY", "PUBLIC_KEY"); v != "" {
		cfg.Discord.PublicKey = v
	}
	if v := get("DISCORD_APP_ID", "APP_ID"); v != "" {
		cfg.Discord.AppID = v
	}
	if v := get("PRODUCTION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Discord.VerifySignatures = n != 0
		}
	}
	if v := get("PORT"); v != "" {
		cfg.Discord.ListenAddr = ":" + strings.TrimPrefix(v, ":")
	}
	if v := get("TZ"); v != "" {
		cfg.Timezone = v
	}
	if v := get("TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
}
