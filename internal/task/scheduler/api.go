package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/robfig/cron/v3"

	"remindbot/internal/eventbus"
	logx "remindbot/pkg/logx"
)

var errDatePassed = errors.New("target date passed before trigger fired")

// Arm registers a one-shot trigger for spec.At and returns immediately.
// The fire instant never changes after this call.
func (s *Service) Arm(spec Spec) (TriggerInfo, error) {
	if spec.Job == nil {
		return TriggerInfo{}, ErrNoJob
	}
	if !s.cfg.Enabled {
		return TriggerInfo{}, ErrDisabled
	}

	at := spec.At.In(s.loc)
	pattern := Pattern(at)
	inner, err := s.parser.Parse(pattern)
	if err != nil {
		return TriggerInfo{}, fmt.Errorf("parse pattern %q: %w", pattern, err)
	}

	t := &trigger{
		id:      spec.ID,
		key:     spec.Key,
		pattern: pattern,
		at:      at,
		armedAt: s.now(),
		job:     spec.Job,
	}
	t.state.Store(int32(StateArmed))

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return TriggerInfo{}, ErrStopped
	}
	t.entryID = s.c.Schedule(onceSchedule{inner: inner, year: at.Year()}, cron.FuncJob(func() { s.fire(t) }))
	s.registry[t.key] = append(s.registry[t.key], t)
	s.mu.Unlock()

	s.armed.Add(1)
	info := t.info()
	s.log.Info("trigger armed",
		logx.String("id", t.id),
		logx.String("key", t.key),
		logx.String("pattern", pattern),
		logx.Time("at", at),
	)
	s.publish(eventbus.ReminderArmed, info)
	return info, nil
}

// fire runs t's job at most once, then disarms t no matter how the job ended.
func (s *Service) fire(t *trigger) {
	if !t.state.CompareAndSwap(int32(StateArmed), int32(StateFired)) {
		return
	}

	now := s.now().In(s.loc)
	if !sameDate(now, t.at) {
		s.misfired.Add(1)
		if now.Before(t.at) {
			t.state.Store(int32(StateArmed))
			s.log.Warn("trigger woke before its date; still armed", logx.String("id", t.id), logx.Time("at", t.at), logx.Time("now", now))
			return
		}
		s.log.Warn("trigger missed its date; disarming", logx.String("id", t.id), logx.Time("at", t.at), logx.Time("now", now))
		s.disarm(t, errDatePassed)
		return
	}

	s.publish(eventbus.ReminderFired, t.info())
	s.fired.Add(1)

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			s.failed.Add(1)
			s.log.Warn("trigger job failed", logx.String("id", t.id), logx.String("key", t.key), logx.Err(err))
		}
		s.disarm(t, err)
	}()
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	err = t.job(ctx)
}

func (s *Service) disarm(t *trigger, cause error) {
	s.c.Remove(t.entryID)

	s.mu.Lock()
	list := s.registry[t.key]
	for i, x := range list {
		if x == t {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(s.registry, t.key)
	} else {
		s.registry[t.key] = list
	}
	s.mu.Unlock()

	t.state.Store(int32(StateDisarmed))
	info := t.info()
	if cause != nil {
		info.Err = cause.Error()
	}
	s.log.Debug("trigger disarmed", logx.String("id", t.id), logx.String("key", t.key))
	s.publish(eventbus.ReminderDisarmed, info)
}

// Pending lists armed triggers whose key starts with prefix, soonest first.
func (s *Service) Pending(prefix string) []TriggerInfo {
	s.mu.Lock()
	out := make([]TriggerInfo, 0)
	for key, list := range s.registry {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		for _, t := range list {
			info := t.info()
			info.Next = s.c.Entry(t.entryID).Next
			out = append(out, info)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].At.Equal(out[j].At) {
			return out[i].At.Before(out[j].At)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
