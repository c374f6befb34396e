package transport

import (
	"context"
	"strconv"
	"strings"
)

type Platform string

const (
	PlatformDiscord  Platform = "discord"
	PlatformTelegram Platform = "telegram"
)

// Invocation is one slash command as received from a chat platform.
//
// Discord delivers typed options (Options), text platforms deliver the raw
// tokens after the command word (Args). A command handler reads whichever is
// populated.
type Invocation struct {
	Platform  Platform
	ID        string // platform interaction/message id, for logs only
	Command   string
	UserID    string
	Username  string
	Mention   string // platform rendering of "ping this user"
	ChannelID string

	Options map[string]string
	Args    []string
}

// Option returns a named option and whether it was present.
func (inv *Invocation) Option(name string) (string, bool) {
	if inv == nil || inv.Options == nil {
		return "", false
	}
	v, ok := inv.Options[name]
	return v, ok
}

// IntOption parses a named option as an integer.
// ok is false when the option is absent; err is set when it is present but not numeric.
func (inv *Invocation) IntOption(name string) (v int, ok bool, err error) {
	raw, ok := inv.Option(name)
	if !ok {
		return 0, false, nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false, nil
	}
	v, err = strconv.Atoi(raw)
	if err != nil {
		return 0, true, err
	}
	return v, true, nil
}

// Reply is the synchronous acknowledgment returned to the invoking request.
type Reply struct {
	Content string `json:"content"`
}

type MessageRef struct {
	Platform  Platform
	ChannelID string
	MessageID string
}

type SendOptions struct {
	DisablePreview bool
}

// Handler answers a command invocation. It must not block on anything that
// happens after the acknowledgment (e.g. the reminder firing).
type Handler interface {
	Handle(ctx context.Context, inv *Invocation) Reply
}

type HandlerFunc func(ctx context.Context, inv *Invocation) Reply

func (f HandlerFunc) Handle(ctx context.Context, inv *Invocation) Reply { return f(ctx, inv) }

type Adapter interface {
	Platform() Platform

	Start(ctx context.Context, h Handler) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, channelID string, text string, opt *SendOptions) (MessageRef, error)
}

// BotCommand represents a single command menu entry.
type BotCommand struct {
	Command     string
	Description string
}

// CommandMenuUpdater is an optional interface that adapters can implement
// to update platform-specific command menus (Telegram setMyCommands).
type CommandMenuUpdater interface {
	UpdateMenuCommands(ctx context.Context, cmds []BotCommand) error
}
