package adapter

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	rtsup "remindbot/internal/runtime/supervisor"
	kit "remindbot/internal/transport"
	"remindbot/internal/transport/router"
	logx "remindbot/pkg/logx"
)

type Config struct {
	Token       string
	PollTimeout time.Duration

	// Offline skips the getMe call on construction (tests).
	Offline bool
}

type Adapter struct {
	cfg Config
	log logx.Logger

	bot *tele.Bot

	runMu   sync.Mutex
	running bool
	handler kit.Handler

	// sup owns adapter internal goroutines (poll loop, stop watcher).
	// It is created on Start() and cancelled on Stop().
	sup *rtsup.Supervisor

	menuMu   sync.Mutex
	menuHash uint64
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Poller:  &tele.LongPoller{Timeout: timeout},
		Offline: cfg.Offline,
		OnError: func(err error, _ tele.Context) {
			log.Warn("telebot error", logx.Err(err))
		},
	})
	if err != nil {
		return nil, err
	}
	a := &Adapter{cfg: cfg, log: log, bot: b}
	a.bot.Handle(tele.OnText, a.onText)
	return a, nil
}

func (a *Adapter) Platform() kit.Platform { return kit.PlatformTelegram }

// Supervisor returns the adapter's internal supervisor (nil if not started).
func (a *Adapter) Supervisor() *rtsup.Supervisor {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	return a.sup
}

func (a *Adapter) currentHandler() kit.Handler {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	return a.handler
}

func (a *Adapter) onText(c tele.Context) error {
	h := a.currentHandler()
	if h == nil {
		return nil
	}
	inv, ok := invocationFromMessage(c.Message())
	if !ok {
		return nil
	}

	ctx := context.Background()
	if sup := a.Supervisor(); sup != nil {
		ctx = sup.Context()
	}
	reply := h.Handle(ctx, inv)
	if strings.TrimSpace(reply.Content) == "" {
		return nil
	}
	_, err := a.send(c.Chat(), c.Message().ThreadID, reply.Content, true)
	return err
}

// invocationFromMessage turns a slash-command message into an Invocation.
func invocationFromMessage(m *tele.Message) (*kit.Invocation, bool) {
	if m == nil || m.Sender == nil || m.Chat == nil {
		return nil, false
	}
	cmd, args, ok := router.ParseCommandLine(m.Text)
	if !ok {
		return nil, false
	}
	return &kit.Invocation{
		Platform:  kit.PlatformTelegram,
		ID:        strconv.Itoa(m.ID),
		Command:   cmd,
		UserID:    strconv.FormatInt(m.Sender.ID, 10),
		Username:  displayName(m.Sender),
		Mention:   mention(m.Sender),
		ChannelID: strconv.FormatInt(m.Chat.ID, 10),
		Args:      args,
	}, true
}

func displayName(u *tele.User) string {
	if u.Username != "" {
		return u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func mention(u *tele.User) string {
	if u.Username != "" {
		return "@" + u.Username
	}
	if name := displayName(u); name != "" {
		return name
	}
	return strconv.FormatInt(u.ID, 10)
}

func (a *Adapter) Start(ctx context.Context, h kit.Handler) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return nil
	}
	a.running = true
	a.handler = h
	a.sup = rtsup.New(ctx,
		rtsup.WithLogger(a.log.With(logx.String("comp", "telegram.adapter"))),
		// adapter errors should not take down the whole app.
		rtsup.WithCancelOnError(false),
	)
	sup := a.sup
	a.runMu.Unlock()

	sup.Go0("telebot.stop_on_cancel", func(c context.Context) {
		<-c.Done()
		a.bot.Stop()
	})

	// Telebot's Start() can exit unexpectedly; restart it while the context is alive.
	sup.GoRestart("telebot.poll", func(c context.Context) error {
		a.log.Info("polling started")
		a.bot.Start()
		a.log.Info("polling stopped")
		if c.Err() != nil {
			return nil
		}
		return errors.New("telegram poller exited")
	}, rtsup.WithRestartBackoff(500*time.Millisecond, 10*time.Second))

	return nil
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	sup := a.sup
	a.sup = nil
	wasRunning := a.running
	a.running = false
	a.handler = nil
	a.runMu.Unlock()

	if !wasRunning || sup == nil {
		return nil
	}
	a.log.Info("stopping")
	sup.Cancel()

	// Keep shutdown snappy even if getUpdates long-poll is still waiting.
	grace := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem > 0 && rem < grace {
			grace = rem
		}
	}
	wctx, cancel := context.WithTimeout(ctx, grace)
	defer cancel()
	if err := sup.Wait(wctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			a.log.Warn("telegram stop timed out", logx.Err(err))
			return nil
		}
		a.log.Debug("telegram stopped with supervisor error", logx.Err(err))
	}
	return nil
}

const textLimit = 4000

// splitText splits long messages into chunks Telegram accepts, preferring
// newline boundaries.
func splitText(s string, limit int) []string {
	if limit <= 0 {
		limit = textLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}

	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := min(start+limit, len(rs))
		if end < len(rs) {
			for i := end - 1; i > start; i-- {
				// Avoid extremely small chunks.
				if rs[i] == '\n' && i-start >= limit/3 {
					end = i + 1
					break
				}
			}
		}
		out = append(out, strings.TrimRight(string(rs[start:end]), "\n"))
		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}

func (a *Adapter) SendText(ctx context.Context, channelID string, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if opt == nil {
		opt = &kit.SendOptions{}
	}
	id, err := strconv.ParseInt(strings.TrimSpace(channelID), 10, 64)
	if err != nil {
		return kit.MessageRef{}, fmt.Errorf("telegram chat id %q: %w", channelID, err)
	}
	if err := ctx.Err(); err != nil {
		return kit.MessageRef{}, err
	}
	return a.send(&tele.Chat{ID: id}, 0, text, opt.DisablePreview)
}

func (a *Adapter) send(chat *tele.Chat, threadID int, text string, noPreview bool) (kit.MessageRef, error) {
	var first kit.MessageRef
	for i, chunk := range splitText(text, textLimit) {
		msg, err := a.bot.Send(chat, chunk, &tele.SendOptions{
			DisableWebPagePreview: noPreview,
			ThreadID:              threadID,
		})
		if err != nil {
			return first, err
		}
		if i == 0 {
			first = kit.MessageRef{
				Platform:  kit.PlatformTelegram,
				ChannelID: strconv.FormatInt(chat.ID, 10),
				MessageID: strconv.Itoa(msg.ID),
			}
		}
	}
	return first, nil
}

// UpdateMenuCommands updates Telegram's command menu (setMyCommands).
// It only performs a network call when the command list changes.
func (a *Adapter) UpdateMenuCommands(ctx context.Context, cmds []kit.BotCommand) error {
	a.menuMu.Lock()
	defer a.menuMu.Unlock()

	sum := menuHash(cmds)
	if sum == a.menuHash {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	out := make([]tele.Command, 0, len(cmds))
	for _, c := range cmds {
		if c.Command == "" {
			continue
		}
		out = append(out, tele.Command{Text: c.Command, Description: c.Description})
	}
	if err := a.bot.SetCommands(out); err != nil {
		return fmt.Errorf("telegram setMyCommands: %w", err)
	}
	a.menuHash = sum
	a.log.Info("menu commands updated", logx.Int("count", len(out)))
	return nil
}

func menuHash(cmds []kit.BotCommand) uint64 {
	h := fnv.New64a()
	for _, c := range cmds {
		h.Write([]byte(c.Command))
		h.Write([]byte{0})
		h.Write([]byte(c.Description))
		h.Write([]byte{0})
	}
	return h.Sum64()
}
