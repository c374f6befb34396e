package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"remindbot/internal/eventbus"
	logx "remindbot/pkg/logx"
)

var (
	ErrDisabled = errors.New("scheduler disabled")
	ErrStopped  = errors.New("scheduler stopped")
	ErrNoJob    = errors.New("trigger job is nil")
)

// Config controls the trigger service. Location is fixed for the process lifetime.
type Config struct {
	Enabled  bool
	Location *time.Location
}

// Job is the single-invocation callback of a trigger.
type Job func(ctx context.Context) error

type State int32

const (
	StateArmed State = iota + 1
	StateFired
	StateDisarmed
)

func (s State) String() string {
	switch s {
	case StateArmed:
		return "armed"
	case StateFired:
		return "fired"
	case StateDisarmed:
		return "disarmed"
	default:
		return "unknown"
	}
}

// Spec describes one trigger to arm.
type Spec struct {
	ID  string // unique per trigger, used in events and logs
	Key string // registry key, e.g. requester plus event
	At  time.Time
	Job Job
}

// TriggerInfo is a read-only view of a trigger.
type TriggerInfo struct {
	ID      string    `json:"id"`
	Key     string    `json:"key"`
	Pattern string    `json:"pattern"`
	At      time.Time `json:"at"`
	State   State     `json:"state"`
	ArmedAt time.Time `json:"armed_at"`
	Next    time.Time `json:"next,omitempty"`
	Err     string    `json:"err,omitempty"`
}

type trigger struct {
	id      string
	key     string
	pattern string
	at      time.Time
	armedAt time.Time
	job     Job
	entryID cron.EntryID

	state atomic.Int32
}

func (t *trigger) info() TriggerInfo {
	return TriggerInfo{
		ID:      t.id,
		Key:     t.key,
		Pattern: t.pattern,
		At:      t.at,
		State:   State(t.state.Load()),
		ArmedAt: t.armedAt,
	}
}

type Service struct {
	log logx.Logger
	bus eventbus.Bus
	cfg Config
	loc *time.Location
	now func() time.Time

	parser cron.Parser
	c      *cron.Cron

	mu       sync.Mutex
	started  bool
	stopped  bool
	ctx      context.Context
	cancel   context.CancelFunc
	registry map[string][]*trigger

	armed    atomic.Uint64
	fired    atomic.Uint64
	failed   atomic.Uint64
	misfired atomic.Uint64
}

type Snapshot struct {
	Enabled  bool
	Timezone string
	Running  bool

	Armed    uint64
	Fired    uint64
	Failed   uint64
	Misfired uint64

	Triggers []TriggerInfo
}
