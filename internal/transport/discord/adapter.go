package discord

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	rtsup "remindbot/internal/runtime/supervisor"
	kit "remindbot/internal/transport"
	"remindbot/internal/transport/router"
	logx "remindbot/pkg/logx"
)

const maxBodyBytes = 1 << 20

type Config struct {
	AppID            string
	Token            string
	PublicKey        ed25519.PublicKey
	VerifySignatures bool
	ListenAddr       string
}

// Adapter serves the interactions webhook and posts messages over REST.
type Adapter struct {
	cfg  Config
	log  logx.Logger
	rest *Client

	mu   sync.Mutex
	srv  *http.Server
	ln   net.Listener
	sup  *rtsup.Supervisor
	addr string
}

// New builds an adapter. rest may be nil; a client for cfg.Token is created.
func New(cfg Config, log logx.Logger, rest *Client) *Adapter {
	if log.IsZero() {
		log = logx.Nop()
	}
	if rest == nil {
		rest = NewClient(cfg.Token)
	}
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = ":3000"
	}
	return &Adapter{cfg: cfg, log: log, rest: rest}
}

func (a *Adapter) Platform() kit.Platform { return kit.PlatformDiscord }

// Addr is the bound listen address once started.
func (a *Adapter) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addr
}

// Routes returns the HTTP surface bound to h.
func (a *Adapter) Routes(h kit.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "Hello, World!, "+a.cfg.AppID)
	})
	mux.HandleFunc("GET /hi", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "hello")
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	mux.Handle("POST /interactions", a.interactions(h))
	return mux
}

func (a *Adapter) interactions(h kit.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if a.cfg.VerifySignatures && !Verify(a.cfg.PublicKey, r.Header, body) {
			a.log.Warn("bad request signature", logx.String("remote", r.RemoteAddr))
			http.Error(w, "Bad request signature", http.StatusUnauthorized)
			return
		}

		var ix Interaction
		if err := json.Unmarshal(body, &ix); err != nil || ix.Type == 0 {
			a.log.Warn("missing interaction info", logx.Err(err))
			writeJSON(w, invalidResponse())
			return
		}

		switch ix.Type {
		case InteractionPing:
			writeJSON(w, InteractionResponse{Type: ResponsePong})
		case InteractionApplicationCommand:
			inv, ok := invocation(&ix)
			if !ok {
				a.log.Warn("missing interaction data", logx.String("id", ix.ID))
				writeJSON(w, invalidResponse())
				return
			}
			reply := h.Handle(r.Context(), inv)
			writeJSON(w, InteractionResponse{
				Type: ResponseChannelMessageWithSource,
				Data: &ResponseData{Content: reply.Content},
			})
		default:
			writeJSON(w, invalidResponse())
		}
	}
}

func invalidResponse() InteractionResponse {
	return InteractionResponse{
		Type: ResponseChannelMessageWithSource,
		Data: &ResponseData{Content: router.InvalidInteraction},
	}
}

// invocation maps an application command to an Invocation. It requires a
// command name, an invoking user and a channel.
func invocation(ix *Interaction) (*kit.Invocation, bool) {
	if ix.Data == nil || strings.TrimSpace(ix.Data.Name) == "" || ix.ChannelID == "" {
		return nil, false
	}
	var u *User
	switch {
	case ix.Member != nil && ix.Member.User != nil:
		u = ix.Member.User
	case ix.User != nil:
		u = ix.User
	}
	if u == nil || u.ID == "" {
		return nil, false
	}

	opts := make(map[string]string, len(ix.Data.Options))
	for _, o := range ix.Data.Options {
		opts[o.Name] = o.String()
	}
	return &kit.Invocation{
		Platform:  kit.PlatformDiscord,
		ID:        ix.ID,
		Command:   ix.Data.Name,
		UserID:    u.ID,
		Username:  u.Username,
		Mention:   "<@" + u.ID + ">",
		ChannelID: ix.ChannelID,
		Options:   opts,
	}, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// Start binds the listener and serves until ctx is done or Stop is called.
func (a *Adapter) Start(ctx context.Context, h kit.Handler) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.srv != nil {
		return nil
	}

	ln, err := net.Listen("tcp", a.cfg.ListenAddr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           a.Routes(h),
		ReadHeaderTimeout: 5 * time.Second,
	}
	sup := rtsup.New(ctx,
		rtsup.WithLogger(a.log.With(logx.String("comp", "discord.http"))),
		rtsup.WithCancelOnError(false),
	)
	a.srv, a.ln, a.sup, a.addr = srv, ln, sup, ln.Addr().String()

	sup.Go("http.serve", func(context.Context) error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	sup.Go0("http.shutdown_on_cancel", func(c context.Context) {
		<-c.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	})
	a.log.Info("listening", logx.String("addr", a.addr))
	return nil
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	srv, sup := a.srv, a.sup
	a.srv, a.ln, a.sup, a.addr = nil, nil, nil, ""
	a.mu.Unlock()
	if srv == nil {
		return nil
	}

	err := srv.Shutdown(ctx)
	sup.Cancel()
	if werr := sup.Wait(ctx); werr != nil && !errors.Is(werr, context.Canceled) {
		a.log.Debug("http supervisor stopped with error", logx.Err(werr))
	}
	a.log.Info("stopped")
	return err
}

func (a *Adapter) SendText(ctx context.Context, channelID string, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
	m, err := a.rest.CreateMessage(ctx, channelID, text)
	if err != nil {
		return kit.MessageRef{}, err
	}
	return kit.MessageRef{Platform: kit.PlatformDiscord, ChannelID: channelID, MessageID: m.ID}, nil
}
