package reminder

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"remindbot/internal/notifier"
	"remindbot/internal/task/scheduler"
	kit "remindbot/internal/transport"
	logx "remindbot/pkg/logx"
)

// Scheduler arms one-shot triggers.
type Scheduler interface {
	Arm(spec scheduler.Spec) (scheduler.TriggerInfo, error)
	Pending(prefix string) []scheduler.TriggerInfo
}

// Dispatcher delivers the fire message. One attempt, no retry.
type Dispatcher interface {
	Send(ctx context.Context, m notifier.Message) error
}

// Pending is one armed reminder as shown by /reminders.
type Pending struct {
	ID    string
	Event string
	At    time.Time
}

// Service turns reminder requests into armed triggers.
type Service struct {
	log   logx.Logger
	loc   *time.Location
	now   func() time.Time
	sched Scheduler
	out   Dispatcher
}

type Option func(*Service)

// WithClock replaces time.Now; the request is evaluated against it.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(loc *time.Location, sched Scheduler, out Dispatcher, log logx.Logger, opts ...Option) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{log: log, loc: loc, now: time.Now, sched: sched, out: out}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Location() *time.Location { return s.loc }

// Handle validates req, arms its trigger and returns the acknowledgment.
// A rejected request arms nothing; its reply carries the rejection text.
func (s *Service) Handle(ctx context.Context, req Request) (kit.Reply, error) {
	var (
		r   Reminder
		err error
	)
	switch req.Mode {
	case ModeAbsolute:
		r, err = s.RemindAt(ctx, req)
	case ModeRelative:
		r, err = s.RemindIn(ctx, req)
	default:
		err = errors.New("reminder: unknown mode")
	}
	if err != nil {
		return kit.Reply{Content: Rejection(err, req.Requester.Mention)}, err
	}
	return kit.Reply{Content: r.Acknowledgment()}, nil
}

// RemindAt handles an absolute request: event check, resolve, future check, arm.
func (s *Service) RemindAt(ctx context.Context, req Request) (Reminder, error) {
	if err := CheckEvent(req.Event); err != nil {
		return Reminder{}, err
	}
	now := s.now()
	at, err := ResolveAbsolute(req.Absolute, s.loc)
	if err != nil {
		return Reminder{}, err
	}
	if err := Validate(at, now); err != nil {
		return Reminder{}, err
	}
	return s.arm(ctx, req, ModeAbsolute, RelativeOffsets{}, at, now)
}

// RemindIn handles a relative request: event check, offset check, resolve, arm.
func (s *Service) RemindIn(ctx context.Context, req Request) (Reminder, error) {
	if err := CheckEvent(req.Event); err != nil {
		return Reminder{}, err
	}
	if err := CheckOffsets(req.Relative); err != nil {
		return Reminder{}, err
	}
	now := s.now()
	at, err := ResolveRelative(req.Relative, now, s.loc)
	if err != nil {
		return Reminder{}, err
	}
	if err := Validate(at, now); err != nil {
		return Reminder{}, err
	}
	return s.arm(ctx, req, ModeRelative, req.Relative, at, now)
}

func (s *Service) arm(_ context.Context, req Request, mode Mode, offsets RelativeOffsets, at, now time.Time) (Reminder, error) {
	r := Reminder{
		ID:        uuid.New(),
		Mode:      mode,
		Event:     strings.TrimSpace(req.Event),
		Requester: req.Requester,
		Offsets:   offsets,
		At:        at,
		CreatedAt: now,
	}

	log := s.log.With(
		logx.String("id", r.ID.String()),
		logx.String("mode", mode.String()),
		logx.String("user", r.Requester.Name),
		logx.String("user_id", r.Requester.ID),
	)

	// The job owns a copy of r; nothing from the request outlives this call.
	job := func(ctx context.Context) error { return s.deliver(ctx, r) }
	if _, err := s.sched.Arm(scheduler.Spec{ID: r.ID.String(), Key: r.Key(), At: r.At, Job: job}); err != nil {
		log.Error("arm failed", logx.Err(err))
		return Reminder{}, err
	}
	log.Info("reminder created", logx.String("event", r.Event), logx.Time("at", r.At))
	return r, nil
}

func (s *Service) deliver(ctx context.Context, r Reminder) error {
	s.log.Info("sending reminder",
		logx.String("id", r.ID.String()),
		logx.String("user", r.Requester.Name),
		logx.String("user_id", r.Requester.ID),
		logx.String("event", r.Event),
		logx.Time("at", r.At),
	)
	return s.out.Send(ctx, notifier.Message{
		RefID:     r.ID.String(),
		Platform:  r.Requester.Platform,
		ChannelID: r.Requester.ChannelID,
		Text:      r.FireMessage(),
	})
}

// List returns the requester's armed reminders, soonest first.
func (s *Service) List(q Requester) []Pending {
	prefix := RequesterPrefix(q)
	infos := s.sched.Pending(prefix)
	out := make([]Pending, 0, len(infos))
	for _, in := range infos {
		out = append(out, Pending{
			ID:    in.ID,
			Event: strings.TrimPrefix(in.Key, prefix),
			At:    in.At.In(s.loc),
		})
	}
	return out
}

// ListReply renders List for chat.
func (s *Service) ListReply(q Requester) kit.Reply {
	items := s.List(q)
	if len(items) == 0 {
		return kit.Reply{Content: q.Mention + ", you have no pending reminders."}
	}
	var b strings.Builder
	b.WriteString(q.Mention)
	b.WriteString(", your pending reminders:")
	for _, it := range items {
		b.WriteString("\n- `")
		b.WriteString(it.Event)
		b.WriteString("` at `")
		b.WriteString(FormatDateTime(it.At))
		b.WriteString("`")
	}
	return kit.Reply{Content: b.String()}
}
