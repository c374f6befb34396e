package reminder

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"remindbot/internal/notifier"
	"remindbot/internal/task/scheduler"
	kit "remindbot/internal/transport"
	logx "remindbot/pkg/logx"
)

type fakeScheduler struct {
	mu    sync.Mutex
	specs []scheduler.Spec
	err   error
}

func (f *fakeScheduler) Arm(spec scheduler.Spec) (scheduler.TriggerInfo, error) {
	if f.err != nil {
		return scheduler.TriggerInfo{}, f.err
	}
	f.mu.Lock()
	f.specs = append(f.specs, spec)
	f.mu.Unlock()
	return scheduler.TriggerInfo{ID: spec.ID, Key: spec.Key, At: spec.At, Pattern: scheduler.Pattern(spec.At), State: scheduler.StateArmed}, nil
}

func (f *fakeScheduler) Pending(prefix string) []scheduler.TriggerInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []scheduler.TriggerInfo
	for _, s := range f.specs {
		if strings.HasPrefix(s.Key, prefix) {
			out = append(out, scheduler.TriggerInfo{ID: s.ID, Key: s.Key, At: s.At})
		}
	}
	return out
}

type fakeDispatcher struct {
	mu   sync.Mutex
	msgs []notifier.Message
	err  error
}

func (f *fakeDispatcher) Send(_ context.Context, m notifier.Message) error {
	f.mu.Lock()
	f.msgs = append(f.msgs, m)
	f.mu.Unlock()
	return f.err
}

var alice = Requester{Platform: kit.PlatformDiscord, ID: "42", Name: "alice", Mention: "<@42>", ChannelID: "c1"}

func newService(now time.Time, sched Scheduler, out Dispatcher) *Service {
	return NewService(time.UTC, sched, out, logx.Nop(), WithClock(func() time.Time { return now }))
}

func TestScenarioAbsoluteAccepted(t *testing.T) {
	t.Parallel()
	sched := &fakeScheduler{}
	s := newService(time.Date(2030, time.May, 1, 0, 0, 0, 0, time.UTC), sched, &fakeDispatcher{})

	reply, err := s.Handle(context.Background(), Request{
		Mode:      ModeAbsolute,
		Event:     "Launch",
		Absolute:  AbsoluteFields{Year: ip(2099), Month: ip(0), Day: ip(1), Hour: ip(9), Minute: ip(0)},
		Requester: alice,
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	want := "<@42> has set an event: `Launch` on `01/01/2099`. I will remind you at `09:00 AM`."
	if reply.Content != want {
		t.Fatalf("reply = %q\nwant    %q", reply.Content, want)
	}
	if len(sched.specs) != 1 {
		t.Fatalf("armed %d triggers, want 1", len(sched.specs))
	}
	sp := sched.specs[0]
	if !sp.At.Equal(time.Date(2099, time.January, 1, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("fire instant = %v", sp.At)
	}
	if sp.Key != "discord:42|Launch" {
		t.Fatalf("key = %q", sp.Key)
	}
}

func TestScenarioAbsolutePast(t *testing.T) {
	t.Parallel()
	sched := &fakeScheduler{}
	s := newService(time.Date(2030, time.May, 1, 0, 0, 0, 0, time.UTC), sched, &fakeDispatcher{})

	reply, err := s.Handle(context.Background(), Request{
		Mode:      ModeAbsolute,
		Event:     "Launch",
		Absolute:  AbsoluteFields{Year: ip(2020), Month: ip(0), Day: ip(1)},
		Requester: alice,
	})
	if !errors.Is(err, ErrPastInstant) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(reply.Content, "can't make a reminder for the past.") {
		t.Fatalf("reply = %q", reply.Content)
	}
	if len(sched.specs) != 0 {
		t.Fatal("rejected request armed a trigger")
	}
}

func TestScenarioRelativeNoOffset(t *testing.T) {
	t.Parallel()
	sched := &fakeScheduler{}
	s := newService(time.Now(), sched, &fakeDispatcher{})

	reply, err := s.Handle(context.Background(), Request{Mode: ModeRelative, Event: "Standup", Requester: alice})
	if !errors.Is(err, ErrNoOffsetGiven) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(reply.Content, "need to add a time") {
		t.Fatalf("reply = %q", reply.Content)
	}
	if len(sched.specs) != 0 {
		t.Fatal("rejected request armed a trigger")
	}
}

func TestRelativeAccepted(t *testing.T) {
	t.Parallel()
	now := time.Date(2030, time.May, 1, 10, 0, 0, 0, time.UTC)
	sched := &fakeScheduler{}
	s := newService(now, sched, &fakeDispatcher{})

	reply, err := s.Handle(context.Background(), Request{
		Mode:      ModeRelative,
		Event:     "Standup",
		Relative:  RelativeOffsets{Days: 2, Minutes: 3},
		Requester: alice,
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	want := "<@42> has set an event: `Standup` in `2 days, 3 minutes`. I will remind you at `05/03/2030 10:03 AM`."
	if reply.Content != want {
		t.Fatalf("reply = %q\nwant    %q", reply.Content, want)
	}
	sp := sched.specs[0]
	if !sp.At.Equal(now.AddDate(0, 0, 2).Add(3 * time.Minute)) {
		t.Fatalf("fire instant = %v", sp.At)
	}
	if got := scheduler.Pattern(sp.At); got != "3 10 3 5 *" {
		t.Fatalf("pattern = %q", got)
	}
}

func TestRejectionsArmNothing(t *testing.T) {
	t.Parallel()
	now := time.Date(2030, time.May, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		req     Request
		wantErr error
		wantMsg string
	}{
		{
			name:    "missing event",
			req:     Request{Mode: ModeAbsolute, Absolute: AbsoluteFields{Year: ip(2099), Month: ip(0), Day: ip(1)}},
			wantErr: ErrMissingEventName,
			wantMsg: "didn't put a name for the event",
		},
		{
			name:    "missing date",
			req:     Request{Mode: ModeAbsolute, Event: "x", Absolute: AbsoluteFields{Year: ip(2099)}},
			wantErr: ErrMissingRequiredField,
			wantMsg: "need to add a date",
		},
		{
			name:    "bad date",
			req:     Request{Mode: ModeAbsolute, Event: "x", Absolute: AbsoluteFields{Year: ip(2099), Month: ip(1), Day: ip(31)}},
			wantErr: ErrInvalidDate,
			wantMsg: "that date doesn't exist",
		},
		{
			name:    "out of range",
			req:     Request{Mode: ModeRelative, Event: "x", Relative: RelativeOffsets{Minutes: 75}},
			wantErr: ErrInvalidField,
			wantMsg: "`minutes` is out of range",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sched := &fakeScheduler{}
			s := newService(now, sched, &fakeDispatcher{})
			tt.req.Requester = alice
			reply, err := s.Handle(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if !strings.Contains(reply.Content, tt.wantMsg) || !strings.HasPrefix(reply.Content, "Sorry, <@42>") {
				t.Fatalf("reply = %q", reply.Content)
			}
			if len(sched.specs) != 0 {
				t.Fatal("rejected request armed a trigger")
			}
		})
	}
}

func TestArmFailureReply(t *testing.T) {
	t.Parallel()
	s := newService(time.Now(), &fakeScheduler{err: scheduler.ErrDisabled}, &fakeDispatcher{})
	reply, err := s.Handle(context.Background(), Request{Mode: ModeRelative, Event: "x", Relative: RelativeOffsets{Minutes: 5}, Requester: alice})
	if !errors.Is(err, scheduler.ErrDisabled) {
		t.Fatalf("err = %v", err)
	}
	if reply.Content != "Sorry, <@42>. An error occurred. Please try again later." {
		t.Fatalf("reply = %q", reply.Content)
	}
}

func TestJobDeliversFireMessage(t *testing.T) {
	t.Parallel()
	sched := &fakeScheduler{}
	out := &fakeDispatcher{err: errors.New("down")}
	s := newService(time.Date(2030, time.May, 1, 0, 0, 0, 0, time.UTC), sched, out)

	if _, err := s.RemindAt(context.Background(), Request{
		Event:     "Launch",
		Absolute:  AbsoluteFields{Year: ip(2099), Month: ip(0), Day: ip(1), Hour: ip(9)},
		Requester: alice,
	}); err != nil {
		t.Fatalf("RemindAt: %v", err)
	}
	err := sched.specs[0].Job(context.Background())
	if err == nil {
		t.Fatal("delivery error not returned to the trigger")
	}
	if len(out.msgs) != 1 {
		t.Fatalf("sent %d messages, want 1", len(out.msgs))
	}
	m := out.msgs[0]
	if m.ChannelID != "c1" || m.Platform != kit.PlatformDiscord {
		t.Fatalf("message target = %+v", m)
	}
	if m.Text != "<@42>, here is your reminder for `Launch` happening on `01/01/2099`." {
		t.Fatalf("text = %q", m.Text)
	}
}

func TestListReadsLiveTriggers(t *testing.T) {
	t.Parallel()
	at := time.Date(2099, time.January, 1, 9, 0, 0, 0, time.UTC)
	clock := at.Add(-time.Hour)
	sched := scheduler.New(scheduler.Config{Enabled: true, Location: time.UTC}, logx.Nop(), nil,
		scheduler.WithClock(func() time.Time { return at }))
	defer sched.Stop(context.Background())

	out := &fakeDispatcher{}
	s := NewService(time.UTC, sched, out, logx.Nop(), WithClock(func() time.Time { return clock }))
	r, err := s.RemindAt(context.Background(), Request{
		Event:     "Launch",
		Absolute:  AbsoluteFields{Year: ip(2099), Month: ip(0), Day: ip(1), Hour: ip(9)},
		Requester: alice,
	})
	if err != nil {
		t.Fatalf("RemindAt: %v", err)
	}
	if got := s.List(alice); len(got) != 1 || got[0].Event != "Launch" || got[0].ID != r.ID.String() {
		t.Fatalf("List = %+v", got)
	}

	pending := sched.Pending(RequesterPrefix(alice))
	if len(pending) != 1 || pending[0].Pattern != "0 9 1 1 *" {
		t.Fatalf("pending = %+v", pending)
	}
	if len(s.List(Requester{Platform: kit.PlatformDiscord, ID: "7"})) != 0 {
		t.Fatal("List leaked another requester's reminders")
	}
}

func TestListReply(t *testing.T) {
	t.Parallel()
	sched := &fakeScheduler{}
	s := newService(time.Date(2030, time.May, 1, 0, 0, 0, 0, time.UTC), sched, &fakeDispatcher{})
	if got := s.ListReply(alice).Content; got != "<@42>, you have no pending reminders." {
		t.Fatalf("empty reply = %q", got)
	}
	if _, err := s.RemindIn(context.Background(), Request{Event: "Tea", Relative: RelativeOffsets{Hours: 1}, Requester: alice}); err != nil {
		t.Fatal(err)
	}
	got := s.ListReply(alice).Content
	if !strings.Contains(got, "`Tea` at `05/01/2030 01:00 AM`") {
		t.Fatalf("reply = %q", got)
	}
}
