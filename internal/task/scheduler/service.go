package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"remindbot/internal/eventbus"
	logx "remindbot/pkg/logx"
)

type Option func(*Service)

// WithClock replaces the wall clock used by the fire-time date guard.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(cfg Config, log logx.Logger, bus eventbus.Bus, opts ...Option) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.Nop()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	s := &Service{
		log:      log,
		bus:      bus,
		cfg:      cfg,
		loc:      loc,
		now:      time.Now,
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		registry: map[string][]*trigger{},
	}
	for _, o := range opts {
		o(s)
	}
	cl := cronLogger{log: log}
	s.c = cron.New(
		cron.WithParser(s.parser),
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl)),
	)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

func (s *Service) Enabled() bool { return s.cfg.Enabled }

func (s *Service) Location() *time.Location { return s.loc }

// Start begins waking armed triggers. Triggers armed before Start are kept
// and become live here. Jobs run under a context derived from ctx.
func (s *Service) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	if !s.cfg.Enabled {
		s.log.Info("service disabled")
		return
	}
	prev := s.cancel
	s.ctx, s.cancel = context.WithCancel(ctx)
	prev()
	s.c.Start()
	s.log.Info("service started", logx.String("tz", s.loc.String()), logx.Int("armed", s.countLocked()))
}

// Stop stops cron and waits for in-flight jobs until ctx is done.
// Armed triggers are dropped; they are not persisted.
func (s *Service) Stop(ctx context.Context) {
	start := time.Now()
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	pending := s.countLocked()
	s.mu.Unlock()

	select {
	case <-s.c.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("stop timed out waiting for running triggers")
	}
	s.cancel()
	s.log.Info("service stopped", logx.Duration("took", time.Since(start)), logx.Int("dropped", pending))
}

func (s *Service) countLocked() int {
	n := 0
	for _, ts := range s.registry {
		n += len(ts)
	}
	return n
}

func (s *Service) publish(typ string, info TriggerInfo) {
	s.bus.Publish(eventbus.Event{Type: typ, Time: s.now(), Data: info})
}
