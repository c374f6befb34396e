package router

import (
	"context"
	"strconv"
	"strings"
	"time"

	"remindbot/internal/reminder"
	kit "remindbot/internal/transport"
)

// Reminders is the reminder service as seen by the command layer.
type Reminders interface {
	Handle(ctx context.Context, req reminder.Request) (kit.Reply, error)
	ListReply(q reminder.Requester) kit.Reply
}

// ReminderCommands builds /remindat, /remindin and /reminders.
//
// Positional order for text platforms:
//
//	/remindat <event> <year> <month> <date> [hour] [minute]
//	/remindin <event> <minutes> [hours] [days]
//
// Any argument can also be given as --name=value.
func ReminderCommands(svc Reminders) []Command {
	return []Command{
		{
			Name:        "remindat",
			Description: "remind you on a specific date and time",
			Usage:       "/remindat <event> <year> <month 0-11> <date> [hour] [minute]",
			Handle: func(ctx context.Context, req *Request) (kit.Reply, error) {
				r, err := absoluteRequest(req)
				if err != nil {
					return kit.Reply{Content: reminder.Rejection(err, req.Inv.Mention)}, err
				}
				return svc.Handle(ctx, r)
			},
		},
		{
			Name:        "remindin",
			Description: "remind you after some minutes, hours or days",
			Usage:       "/remindin <event> <minutes> [hours] [days]",
			Handle: func(ctx context.Context, req *Request) (kit.Reply, error) {
				r, err := relativeRequest(req)
				if err != nil {
					return kit.Reply{Content: reminder.Rejection(err, req.Inv.Mention)}, err
				}
				return svc.Handle(ctx, r)
			},
		},
		{
			Name:        "reminders",
			Aliases:     []string{"list"},
			Description: "list your pending reminders",
			Usage:       "/reminders",
			Handle: func(_ context.Context, req *Request) (kit.Reply, error) {
				return svc.ListReply(requester(req.Inv)), nil
			},
		},
	}
}

func requester(inv *kit.Invocation) reminder.Requester {
	return reminder.Requester{
		Platform:  inv.Platform,
		ID:        inv.UserID,
		Name:      inv.Username,
		Mention:   inv.Mention,
		ChannelID: inv.ChannelID,
	}
}

func absoluteRequest(req *Request) (reminder.Request, error) {
	out := reminder.Request{Mode: reminder.ModeAbsolute, Requester: requester(req.Inv)}
	out.Event, _ = req.Value("event", 0)
	if err := reminder.CheckEvent(out.Event); err != nil {
		return out, err
	}

	// An unreadable year, month or day counts as not given.
	var err error
	if out.Absolute.Year, err = intArg(req, "year", 1); err != nil {
		return out, missing("year")
	}
	if out.Absolute.Month, err = monthArg(req, 2); err != nil {
		return out, missing("month")
	}
	if out.Absolute.Day, err = dayArg(req, 3); err != nil {
		return out, missing("day")
	}
	if out.Absolute.Hour, err = intArg(req, "hour", 4); err != nil {
		return out, err
	}
	if out.Absolute.Minute, err = intArg(req, "minute", 5); err != nil {
		return out, err
	}
	return out, nil
}

func relativeRequest(req *Request) (reminder.Request, error) {
	out := reminder.Request{Mode: reminder.ModeRelative, Requester: requester(req.Inv)}
	out.Event, _ = req.Value("event", 0)
	if err := reminder.CheckEvent(out.Event); err != nil {
		return out, err
	}

	var err error
	if out.Relative.Minutes, err = uintArg(req, "minutes", 1); err != nil {
		return out, err
	}
	if out.Relative.Hours, err = uintArg(req, "hours", 2); err != nil {
		return out, err
	}
	if out.Relative.Days, err = uintArg(req, "days", 3); err != nil {
		return out, err
	}
	return out, nil
}

func invalid(name string) error {
	return &reminder.FieldError{Field: name, Err: reminder.ErrInvalidField}
}

func missing(name string) error {
	return &reminder.FieldError{Field: name, Err: reminder.ErrMissingRequiredField}
}

// intArg returns nil when the argument is absent or blank.
func intArg(req *Request, name string, pos int) (*int, error) {
	raw, ok := req.Value(name, pos)
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, invalid(name)
	}
	return &v, nil
}

// dayArg reads the day of month; Discord names the option "date".
func dayArg(req *Request, pos int) (*int, error) {
	if _, ok := req.Value("day", -1); ok {
		return intArg(req, "day", -1)
	}
	return intArg(req, "date", pos)
}

// monthArg accepts the zero-based month number or an English month name.
func monthArg(req *Request, pos int) (*int, error) {
	raw, ok := req.Value("month", pos)
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return nil, nil
	}
	if v, err := strconv.Atoi(raw); err == nil {
		return &v, nil
	}
	if len(raw) >= 3 {
		for m := time.January; m <= time.December; m++ {
			if strings.HasPrefix(strings.ToLower(m.String()), strings.ToLower(raw)) {
				v := int(m) - 1
				return &v, nil
			}
		}
	}
	return nil, invalid("month")
}

// uintArg treats absent or blank as zero and rejects negatives.
func uintArg(req *Request, name string, pos int) (uint, error) {
	p, err := intArg(req, name, pos)
	if err != nil || p == nil {
		return 0, err
	}
	if *p < 0 {
		return 0, invalid(name)
	}
	return uint(*p), nil
}
