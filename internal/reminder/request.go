package reminder

import (
	"time"

	"github.com/google/uuid"

	kit "remindbot/internal/transport"
)

type Mode int

const (
	ModeAbsolute Mode = iota + 1
	ModeRelative
)

func (m Mode) String() string {
	switch m {
	case ModeAbsolute:
		return "absolute"
	case ModeRelative:
		return "relative"
	default:
		return "unknown"
	}
}

// AbsoluteFields are the raw /remindat inputs. Nil means the user left the
// option out. Month is zero-based (0 = January).
type AbsoluteFields struct {
	Year   *int `json:"year" validate:"omitempty,min=1,max=9999"`
	Month  *int `json:"month" validate:"omitempty,min=0,max=11"`
	Day    *int `json:"day" validate:"omitempty,min=1,max=31"`
	Hour   *int `json:"hour" validate:"omitempty,min=0,max=23"`
	Minute *int `json:"minute" validate:"omitempty,min=0,max=59"`
}

// RelativeOffsets are the raw /remindin inputs; zero means omitted.
type RelativeOffsets struct {
	Days    uint `json:"days" validate:"max=36500"`
	Hours   uint `json:"hours" validate:"max=23"`
	Minutes uint `json:"minutes" validate:"max=59"`
}

func (o RelativeOffsets) IsZero() bool { return o.Days == 0 && o.Hours == 0 && o.Minutes == 0 }

// Requester identifies who asked and where the reminder goes.
type Requester struct {
	Platform  kit.Platform
	ID        string
	Name      string
	Mention   string
	ChannelID string
}

// Request is one reminder command as parsed from a chat invocation.
type Request struct {
	Mode      Mode
	Event     string
	Absolute  AbsoluteFields
	Relative  RelativeOffsets
	Requester Requester
}

// Reminder is the immutable context of an accepted request. It is built once
// after validation and copied into the trigger's job.
type Reminder struct {
	ID        uuid.UUID
	Mode      Mode
	Event     string
	Requester Requester
	Offsets   RelativeOffsets // relative mode only
	At        time.Time       // resolved instant in the configured location
	CreatedAt time.Time
}

// Key is the live-trigger registry key: requester plus event.
func (r Reminder) Key() string { return RequesterPrefix(r.Requester) + r.Event }

// RequesterPrefix is the registry key prefix shared by every reminder of one requester.
func RequesterPrefix(q Requester) string {
	return string(q.Platform) + ":" + q.ID + "|"
}

// Acknowledgment is the synchronous reply for an accepted request.
func (r Reminder) Acknowledgment() string {
	if r.Mode == ModeRelative {
		return r.Requester.Mention + " has set an event: `" + r.Event + "` in `" + Enumerate(r.Offsets.Amounts()) +
			"`. I will remind you at `" + FormatDateTime(r.At) + "`."
	}
	return r.Requester.Mention + " has set an event: `" + r.Event + "` on `" + FormatDate(r.At) +
		"`. I will remind you at `" + FormatClock(r.At) + "`."
}

// FireMessage is the text posted to the channel when the trigger fires.
func (r Reminder) FireMessage() string {
	if r.Mode == ModeRelative {
		return r.Requester.Mention + ", here is your reminder for `" + r.Event + "` happening at `" + FormatDateTime(r.At) + "`."
	}
	return r.Requester.Mention + ", here is your reminder for `" + r.Event + "` happening on `" + FormatDate(r.At) + "`."
}

// Amounts renders the offsets in days, hours, minutes order.
func (o RelativeOffsets) Amounts() []Amount {
	return []Amount{
		{N: o.Days, Noun: "day"},
		{N: o.Hours, Noun: "hour"},
		{N: o.Minutes, Noun: "minute"},
	}
}
