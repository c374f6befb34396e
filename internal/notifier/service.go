package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"remindbot/internal/eventbus"
	kit "remindbot/internal/transport"
	logx "remindbot/pkg/logx"
)

var (
	ErrDelivery     = errors.New("notifier: delivery failed")
	ErrNoAdapter    = errors.New("notifier: no adapter for platform")
	ErrEmptyMessage = errors.New("notifier: empty message")
)

const historyCap = 300

// Service sends reminder texts through platform adapters.
// It is safe for concurrent use.
type Service struct {
	mu       sync.Mutex
	log      logx.Logger
	bus      eventbus.Bus
	cfg      Config
	limiter  *rate.Limiter
	adapters map[kit.Platform]kit.Adapter

	hmu     sync.Mutex
	history []HistoryItem
}

func New(cfg Config, log logx.Logger, bus eventbus.Bus, adapters ...kit.Adapter) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.Nop()
	}
	s := &Service{
		log:      log,
		bus:      bus,
		adapters: map[kit.Platform]kit.Adapter{},
	}
	for _, a := range adapters {
		s.Register(a)
	}
	s.applyLocked(cfg)
	return s
}

// Register adds or replaces the adapter for a.Platform().
func (s *Service) Register(a kit.Adapter) {
	if a == nil {
		return
	}
	s.mu.Lock()
	s.adapters[a.Platform()] = a
	s.mu.Unlock()
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 5
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	s.cfg = cfg
	// burst = rate so a handful of reminders due on the same minute go out together.
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

// Send makes one delivery attempt. Errors wrap ErrDelivery.
func (s *Service) Send(ctx context.Context, m Message) error {
	if strings.TrimSpace(m.Text) == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	ad := s.adapters[m.Platform]
	lim := s.limiter
	timeout := s.cfg.SendTimeout
	s.mu.Unlock()

	if ad == nil {
		err := fmt.Errorf("%w: %w %q", ErrDelivery, ErrNoAdapter, m.Platform)
		s.record(m, kit.MessageRef{}, 0, err)
		return err
	}

	if err := lim.Wait(ctx); err != nil {
		err = fmt.Errorf("%w: rate limit: %w", ErrDelivery, err)
		s.record(m, kit.MessageRef{}, 0, err)
		return err
	}

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	ref, err := ad.SendText(callCtx, m.ChannelID, m.Text, nil)
	cancel()
	took := time.Since(start)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	s.record(m, ref, took, err)
	return err
}

func (s *Service) record(m Message, ref kit.MessageRef, took time.Duration, err error) {
	now := time.Now()
	ev := DeliveryEvent{
		RefID:     m.RefID,
		Platform:  m.Platform,
		ChannelID: m.ChannelID,
		MessageID: ref.MessageID,
		At:        now,
		Took:      took,
	}
	item := HistoryItem{At: now, RefID: m.RefID, Platform: m.Platform, OK: err == nil}
	typ := eventbus.ReminderDelivered
	if err != nil {
		ev.Error = err.Error()
		item.Error = ev.Error
		typ = eventbus.ReminderFailed
		s.log.Warn("reminder delivery failed",
			logx.String("ref", m.RefID),
			logx.String("platform", string(m.Platform)),
			logx.String("channel", m.ChannelID),
			logx.Err(err),
		)
	} else {
		s.log.Debug("reminder delivered",
			logx.String("ref", m.RefID),
			logx.String("platform", string(m.Platform)),
			logx.Duration("took", took),
		)
	}
	s.bus.Publish(eventbus.Event{Type: typ, Time: now, Data: ev})

	s.hmu.Lock()
	s.history = append(s.history, item)
	if len(s.history) > historyCap {
		s.history = s.history[len(s.history)-historyCap:]
	}
	s.hmu.Unlock()
}

func (s *Service) Snapshot() []HistoryItem {
	s.hmu.Lock()
	out := append([]HistoryItem(nil), s.history...)
	s.hmu.Unlock()
	return out
}
