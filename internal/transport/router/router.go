package router

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	kit "remindbot/internal/transport"
	logx "remindbot/pkg/logx"
)

// InvalidInteraction is the reply for anything that is not a known command.
const InvalidInteraction = "Invalid interaction. Please try again."

// DefaultTimeout keeps handlers inside Discord's three second reply window.
const DefaultTimeout = 2500 * time.Millisecond

type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Timeout     time.Duration // optional per-command override
	Handle      HandlerFunc
}

// Request is one routed invocation.
type Request struct {
	Inv     *kit.Invocation
	Command string
	Args    []string // positional tokens (text platforms)
	Flags   map[string]string
	ReqID   string
	Logger  logx.Logger
}

// Value looks up a named argument: typed option first, then --name flag,
// then the positional token at pos (pos < 0 disables the fallback).
func (r *Request) Value(name string, pos int) (string, bool) {
	if v, ok := r.Inv.Option(name); ok {
		return v, true
	}
	if v, ok := r.Flags[name]; ok {
		return v, true
	}
	if pos >= 0 && pos < len(r.Args) {
		return r.Args[pos], true
	}
	return "", false
}

// Manager routes invocations from every adapter to registered commands.
// It implements kit.Handler.
type Manager struct {
	log     logx.Logger
	timeout time.Duration

	mu    sync.RWMutex
	cmds  map[string]*Command
	alias map[string]*Command
	order []string
}

type Option func(*Manager)

func WithTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

func NewManager(log logx.Logger, opts ...Option) *Manager {
	if log.IsZero() {
		log = logx.Nop()
	}
	m := &Manager{
		log:     log,
		timeout: DefaultTimeout,
		cmds:    map[string]*Command{},
		alias:   map[string]*Command{},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// SetRegistry replaces the command set. A help command is always added.
func (m *Manager) SetRegistry(cmds []Command) {
	helper := Command{
		Name:        "help",
		Aliases:     []string{"h", "start"},
		Description: "show available commands",
		Usage:       "/help",
		Handle: func(_ context.Context, _ *Request) (kit.Reply, error) {
			return kit.Reply{Content: m.helpText()}, nil
		},
	}
	cmds = append(cmds, helper)

	byName := map[string]*Command{}
	alias := map[string]*Command{}
	order := make([]string, 0, len(cmds))
	for _, c := range cmds {
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if name == "" || c.Handle == nil {
			continue
		}
		cc := c // copy
		cc.Name = name
		byName[name] = &cc
		order = append(order, name)
		for _, a := range c.Aliases {
			a = strings.ToLower(strings.TrimSpace(a))
			if a == "" || strings.Contains(a, " ") {
				continue
			}
			alias[a] = &cc
		}
	}

	m.mu.Lock()
	m.cmds = byName
	m.alias = alias
	m.order = order
	m.mu.Unlock()
}

// Commands returns the registered commands in registration order.
func (m *Manager) Commands() []Command {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Command, 0, len(m.order))
	for _, n := range m.order {
		out = append(out, *m.cmds[n])
	}
	return out
}

func (m *Manager) lookup(word string) (*Command, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.cmds[word]; ok {
		return c, true
	}
	c, ok := m.alias[word]
	return c, ok
}

// Handle routes inv and returns the synchronous reply. Unknown commands get
// InvalidInteraction.
func (m *Manager) Handle(ctx context.Context, inv *kit.Invocation) kit.Reply {
	if inv == nil {
		return kit.Reply{Content: InvalidInteraction}
	}
	word := commandWord(inv.Command)
	cmd, ok := m.lookup(word)
	if !ok {
		m.log.Debug("unknown command", logx.String("cmd", word), logx.String("platform", string(inv.Platform)))
		return kit.Reply{Content: InvalidInteraction}
	}

	pos, flags := parseFlags(inv.Args)
	rid := newReqID()
	req := &Request{
		Inv:     inv,
		Command: cmd.Name,
		Args:    pos,
		Flags:   flags,
		ReqID:   rid,
		Logger: m.log.With(
			logx.String("rid", rid),
			logx.String("platform", string(inv.Platform)),
			logx.String("user", inv.Username),
			logx.String("cmd", cmd.Name),
		),
	}

	timeout := m.timeout
	if cmd.Timeout > 0 {
		timeout = cmd.Timeout
	}
	final := Chain(
		cmd.Handle,
		MWPanicRecover(m.log),
		MWRequestLog(m.log),
		MWTimeout(timeout),
	)
	reply, _ := final(ctx, req)
	if strings.TrimSpace(reply.Content) == "" {
		reply.Content = InvalidInteraction
	}
	return reply
}

func (m *Manager) helpText() string {
	cmds := m.Commands()
	sort.SliceStable(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	lines := []string{"Available commands:"}
	for _, c := range cmds {
		line := "/" + c.Name
		if c.Description != "" {
			line += " - " + c.Description
		}
		lines = append(lines, line)
		if c.Usage != "" {
			lines = append(lines, "  usage: "+c.Usage)
		}
	}
	return strings.Join(lines, "\n")
}

// ParseCommandLine splits a text message into a command word and its raw
// arguments. ok is false when text is not a slash command.
func ParseCommandLine(text string) (cmd string, args []string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}
	parts := TokenizeCommandLine(text)
	if len(parts) == 0 {
		return "", nil, false
	}
	word := commandWord(parts[0])
	if word == "" {
		return "", nil, false
	}
	return word, parts[1:], true
}
