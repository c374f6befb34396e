package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"remindbot/internal/eventbus"
	logx "remindbot/pkg/logx"
)

func newTestService(t *testing.T, clock *time.Time, bus eventbus.Bus) *Service {
	t.Helper()
	s := New(Config{Enabled: true, Location: time.UTC}, logx.Nop(), bus, WithClock(func() time.Time { return *clock }))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Stop(ctx)
	})
	return s
}

func onlyTrigger(t *testing.T, s *Service, key string) *trigger {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.registry[key]
	if len(list) != 1 {
		t.Fatalf("registry[%q] has %d triggers, want 1", key, len(list))
	}
	return list[0]
}

func TestPattern(t *testing.T) {
	t.Parallel()
	tests := []struct {
		at   time.Time
		want string
	}{
		{at: time.Date(2099, time.January, 1, 9, 0, 0, 0, time.UTC), want: "0 9 1 1 *"},
		{at: time.Date(2030, time.December, 31, 23, 59, 30, 0, time.UTC), want: "59 23 31 12 *"},
	}
	for _, tt := range tests {
		if got := Pattern(tt.at); got != tt.want {
			t.Fatalf("Pattern(%v) = %q, want %q", tt.at, got, tt.want)
		}
	}
}

func TestOnceScheduleOnlyYieldsTargetYear(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true, Location: time.UTC}, logx.Nop(), nil)
	at := time.Date(2099, time.January, 1, 9, 0, 0, 0, time.UTC)
	inner, err := s.parser.Parse(Pattern(at))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	sched := onceSchedule{inner: inner, year: at.Year()}

	if got := sched.Next(at.Add(-24 * time.Hour)); !got.Equal(at) {
		t.Fatalf("Next before target = %v, want %v", got, at)
	}
	// The same minute/hour/day/month next year must never match.
	if got := sched.Next(at); !got.IsZero() {
		t.Fatalf("Next after target = %v, want zero", got)
	}
}

func TestOnceScheduleReachesFarYears(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true, Location: time.UTC}, logx.Nop(), nil)
	now := time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		from time.Time
		at   time.Time
	}{
		{from: now, at: time.Date(2099, time.January, 1, 9, 0, 0, 0, time.UTC)},
		{from: now, at: time.Date(2027, time.December, 25, 9, 0, 0, 0, time.UTC)},
		{from: now, at: time.Date(2028, time.March, 1, 9, 0, 0, 0, time.UTC)},
		// 2100 is not a leap year, so the previous match is eight years earlier.
		{from: time.Date(2096, time.March, 1, 0, 0, 0, 0, time.UTC), at: time.Date(2104, time.February, 29, 9, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		inner, err := s.parser.Parse(Pattern(tt.at))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		sched := onceSchedule{inner: inner, year: tt.at.Year()}
		if got := sched.Next(tt.from); !got.Equal(tt.at) {
			t.Errorf("Next(%v) for %v = %v", tt.from, tt.at, got)
		}
		if got := sched.Next(tt.at); !got.IsZero() {
			t.Errorf("Next(%v) after target = %v, want zero", tt.at, got)
		}
	}
}

func TestJobContextFollowsStart(t *testing.T) {
	t.Parallel()
	at := time.Date(2099, time.January, 1, 9, 0, 0, 0, time.UTC)
	clock := at
	s := newTestService(t, &clock, nil)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	var jobErr error
	if _, err := s.Arm(Spec{ID: "r1", Key: "discord:1|Launch", At: at, Job: func(c context.Context) error {
		jobErr = c.Err()
		return nil
	}}); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	cancel()
	s.fire(onlyTrigger(t, s, "discord:1|Launch"))
	if !errors.Is(jobErr, context.Canceled) {
		t.Fatalf("job ctx err = %v, want canceled", jobErr)
	}
}

func TestFireRunsOnceAndDisarms(t *testing.T) {
	t.Parallel()
	at := time.Date(2099, time.January, 1, 9, 0, 0, 0, time.UTC)
	clock := at
	s := newTestService(t, &clock, nil)

	var calls atomic.Int32
	info, err := s.Arm(Spec{ID: "r1", Key: "discord:1|Launch", At: at, Job: func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}})
	if err != nil {
		t.Fatalf("Arm: %v", err)
	}
	if info.State != StateArmed || info.Pattern != "0 9 1 1 *" {
		t.Fatalf("unexpected info: %+v", info)
	}
	if got := s.Pending("discord:1|"); len(got) != 1 {
		t.Fatalf("Pending = %d, want 1", len(got))
	}

	tr := onlyTrigger(t, s, "discord:1|Launch")
	s.fire(tr)
	if calls.Load() != 1 {
		t.Fatalf("job calls = %d, want 1", calls.Load())
	}
	if State(tr.state.Load()) != StateDisarmed {
		t.Fatalf("state = %v, want disarmed", State(tr.state.Load()))
	}
	if got := s.Pending(""); len(got) != 0 {
		t.Fatalf("Pending after fire = %d, want 0", len(got))
	}
	if e := s.c.Entry(tr.entryID); e.ID != 0 {
		t.Fatalf("cron entry still registered: %+v", e)
	}

	// A second match of the same pattern (e.g. next year) does nothing.
	clock = at.AddDate(1, 0, 0)
	s.fire(tr)
	if calls.Load() != 1 {
		t.Fatalf("job ran again: calls = %d", calls.Load())
	}
}

func TestFailedJobStillDisarms(t *testing.T) {
	t.Parallel()
	at := time.Date(2099, time.March, 5, 12, 30, 0, 0, time.UTC)
	clock := at
	s := newTestService(t, &clock, nil)

	_, err := s.Arm(Spec{ID: "r1", Key: "k", At: at, Job: func(ctx context.Context) error {
		return errors.New("send failed")
	}})
	if err != nil {
		t.Fatalf("Arm: %v", err)
	}
	tr := onlyTrigger(t, s, "k")
	s.fire(tr)
	if State(tr.state.Load()) != StateDisarmed {
		t.Fatalf("state = %v, want disarmed", State(tr.state.Load()))
	}
	if snap := s.Snapshot(); snap.Failed != 1 || snap.Fired != 1 {
		t.Fatalf("snapshot counters = %+v", snap)
	}
}

func TestPanickingJobStillDisarms(t *testing.T) {
	t.Parallel()
	at := time.Date(2099, time.March, 5, 12, 30, 0, 0, time.UTC)
	clock := at
	s := newTestService(t, &clock, nil)

	if _, err := s.Arm(Spec{ID: "r1", Key: "k", At: at, Job: func(ctx context.Context) error { panic("boom") }}); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	tr := onlyTrigger(t, s, "k")
	s.fire(tr)
	if State(tr.state.Load()) != StateDisarmed {
		t.Fatalf("state = %v, want disarmed", State(tr.state.Load()))
	}
	if len(s.Pending("")) != 0 {
		t.Fatal("trigger left in registry")
	}
}

func TestFireGuardsFullDate(t *testing.T) {
	t.Parallel()
	at := time.Date(2099, time.June, 10, 8, 15, 0, 0, time.UTC)

	t.Run("early wake keeps trigger armed", func(t *testing.T) {
		t.Parallel()
		clock := at.AddDate(0, 0, -1)
		s := newTestService(t, &clock, nil)
		var calls atomic.Int32
		if _, err := s.Arm(Spec{ID: "r", Key: "k", At: at, Job: func(context.Context) error { calls.Add(1); return nil }}); err != nil {
			t.Fatalf("Arm: %v", err)
		}
		tr := onlyTrigger(t, s, "k")
		s.fire(tr)
		if calls.Load() != 0 {
			t.Fatal("job ran on the wrong date")
		}
		if State(tr.state.Load()) != StateArmed {
			t.Fatalf("state = %v, want armed", State(tr.state.Load()))
		}
	})

	t.Run("late wake disarms without running", func(t *testing.T) {
		t.Parallel()
		clock := at.AddDate(1, 0, 0)
		s := newTestService(t, &clock, nil)
		var calls atomic.Int32
		if _, err := s.Arm(Spec{ID: "r", Key: "k", At: at, Job: func(context.Context) error { calls.Add(1); return nil }}); err != nil {
			t.Fatalf("Arm: %v", err)
		}
		tr := onlyTrigger(t, s, "k")
		s.fire(tr)
		if calls.Load() != 0 {
			t.Fatal("job ran on the wrong date")
		}
		if State(tr.state.Load()) != StateDisarmed {
			t.Fatalf("state = %v, want disarmed", State(tr.state.Load()))
		}
		if s.Snapshot().Misfired != 1 {
			t.Fatal("misfire not counted")
		}
	})
}

func TestArmPublishesLifecycleEvents(t *testing.T) {
	t.Parallel()
	at := time.Date(2099, time.January, 1, 9, 0, 0, 0, time.UTC)
	clock := at
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(8)
	defer unsub()
	s := newTestService(t, &clock, bus)

	if _, err := s.Arm(Spec{ID: "r1", Key: "k", At: at, Job: func(context.Context) error { return nil }}); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	s.fire(onlyTrigger(t, s, "k"))

	want := []string{eventbus.ReminderArmed, eventbus.ReminderFired, eventbus.ReminderDisarmed}
	for _, typ := range want {
		select {
		case ev := <-ch:
			if ev.Type != typ {
				t.Fatalf("event = %q, want %q", ev.Type, typ)
			}
			if info, ok := ev.Data.(TriggerInfo); !ok || info.ID != "r1" {
				t.Fatalf("event data = %#v", ev.Data)
			}
		case <-time.After(time.Second):
			t.Fatalf("missing %q event", typ)
		}
	}
}

func TestArmRejections(t *testing.T) {
	t.Parallel()
	at := time.Date(2099, time.January, 1, 9, 0, 0, 0, time.UTC)

	disabled := New(Config{Enabled: false, Location: time.UTC}, logx.Nop(), nil)
	if _, err := disabled.Arm(Spec{Key: "k", At: at, Job: func(context.Context) error { return nil }}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("disabled Arm err = %v", err)
	}

	clock := at
	s := newTestService(t, &clock, nil)
	if _, err := s.Arm(Spec{Key: "k", At: at}); !errors.Is(err, ErrNoJob) {
		t.Fatalf("nil job err = %v", err)
	}

	s.Stop(context.Background())
	if _, err := s.Arm(Spec{Key: "k", At: at, Job: func(context.Context) error { return nil }}); !errors.Is(err, ErrStopped) {
		t.Fatalf("stopped Arm err = %v", err)
	}
}

func TestPendingFiltersByPrefixAndSorts(t *testing.T) {
	t.Parallel()
	clock := time.Date(2099, time.January, 1, 0, 0, 0, 0, time.UTC)
	s := newTestService(t, &clock, nil)
	noop := func(context.Context) error { return nil }

	for _, sp := range []Spec{
		{ID: "b", Key: "discord:1|B", At: clock.Add(2 * time.Hour), Job: noop},
		{ID: "a", Key: "discord:1|A", At: clock.Add(1 * time.Hour), Job: noop},
		{ID: "c", Key: "discord:2|C", At: clock.Add(30 * time.Minute), Job: noop},
	} {
		if _, err := s.Arm(sp); err != nil {
			t.Fatalf("Arm %s: %v", sp.ID, err)
		}
	}
	got := s.Pending("discord:1|")
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("Pending = %+v", got)
	}
}
