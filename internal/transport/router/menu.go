package router

import (
	"strings"
	"unicode"

	kit "remindbot/internal/transport"
)

// sanitizeCommandName converts a command name into a Telegram-safe bot command.
// Telegram command names are restricted to [a-z0-9_]{1,32}.
func sanitizeCommandName(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	lastUnderscore := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if r == '_' || r == '-' || unicode.IsSpace(r) || r == '/' {
			if b.Len() > 0 && !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
			continue
		}
	}

	out := strings.Trim(b.String(), "_")
	if len(out) > 32 {
		out = strings.TrimRight(out[:32], "_")
	}
	if out == "" {
		return ""
	}
	// Telegram clients generally expect commands to start with a letter.
	if out[0] >= '0' && out[0] <= '9' {
		out = strings.TrimRight(("cmd_" + out)[:min(32, len(out)+4)], "_")
	}
	return out
}

// MenuCommands returns the command menu for platforms that show one.
func (m *Manager) MenuCommands() []kit.BotCommand {
	cmds := m.Commands()
	out := make([]kit.BotCommand, 0, len(cmds))
	seen := map[string]bool{}
	for _, c := range cmds {
		name := sanitizeCommandName(c.Name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		desc := strings.ReplaceAll(strings.TrimSpace(c.Description), "\n", " ")
		if desc == "" {
			desc = name
		}
		if len(desc) > 256 {
			desc = desc[:256]
		}
		out = append(out, kit.BotCommand{Command: name, Description: desc})
		if len(out) >= 100 {
			break
		}
	}
	return out
}
