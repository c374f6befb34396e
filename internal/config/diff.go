package config

import (
	"reflect"
	"sort"
	"strings"

	logx "remindbot/pkg/logx"
)

// SummarizeConfigChange returns the changed section names and safe
// structured attrs for logging. Tokens and keys are never included.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)

	if strings.TrimSpace(oldCfg.Timezone) != strings.TrimSpace(newCfg.Timezone) {
		changed = append(changed, "timezone")
		attrs = append(attrs, logx.String("timezone", newCfg.Timezone))
	}

	od, nd := oldCfg.Discord, newCfg.Discord
	if od.Enabled != nd.Enabled || od.AppID != nd.AppID || od.ListenAddr != nd.ListenAddr ||
		od.VerifySignatures != nd.VerifySignatures ||
		od.Token != nd.Token || od.PublicKey != nd.PublicKey {
		changed = append(changed, "discord")
		attrs = append(attrs,
			logx.Bool("discord.enabled", nd.Enabled),
			logx.String("discord.listen_addr", nd.ListenAddr),
			logx.Bool("discord.verify_signatures", nd.VerifySignatures),
			logx.Bool("discord.token_set", nd.Token != ""),
		)
	}

	ot, nt := oldCfg.Telegram, newCfg.Telegram
	if ot.Enabled != nt.Enabled || strings.TrimSpace(ot.PollTimeout) != strings.TrimSpace(nt.PollTimeout) || ot.Token != nt.Token {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram.enabled", nt.Enabled),
			logx.String("telegram.poll_timeout", strings.TrimSpace(nt.PollTimeout)),
			logx.Bool("telegram.token_set", nt.Token != ""),
		)
	}

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logx.chat_enabled", newCfg.Logging.Chat.Enabled),
		)
	}

	if oldCfg.Scheduler != newCfg.Scheduler {
		changed = append(changed, "scheduler")
		attrs = append(attrs, logx.Bool("scheduler.enabled", newCfg.Scheduler.Enabled))
	}

	if !reflect.DeepEqual(oldCfg.Notifier, newCfg.Notifier) {
		changed = append(changed, "notifier")
		if n := newCfg.Notifier; n != nil {
			attrs = append(attrs,
				logx.Int("notifier.rate_per_sec", n.RatePerSec),
				logx.String("notifier.send_timeout", n.SendTimeout),
			)
		}
	}

	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
		if s := newCfg.Storage; s != nil {
			attrs = append(attrs,
				logx.String("storage.driver", strings.TrimSpace(s.Driver)),
				logx.Bool("storage.path_set", strings.TrimSpace(s.Path) != ""),
			)
		}
	}

	sort.Strings(changed)
	return changed, attrs
}
