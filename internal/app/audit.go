package app

import (
	"context"
	"strings"
	"time"

	"remindbot/internal/eventbus"
	"remindbot/internal/notifier"
	"remindbot/internal/storage"
	"remindbot/internal/task/scheduler"
	logx "remindbot/pkg/logx"
)

// auditEntry maps a lifecycle event to an audit record. ok is false for
// events that are not audited.
func auditEntry(e eventbus.Event) (storage.AuditEntry, bool) {
	out := storage.AuditEntry{At: e.Time}
	switch e.Type {
	case eventbus.ReminderArmed, eventbus.ReminderDisarmed:
		info, ok := e.Data.(scheduler.TriggerInfo)
		if !ok {
			return out, false
		}
		out.Action = storage.ActionArmed
		if e.Type == eventbus.ReminderDisarmed {
			out.Action = storage.ActionDisarmed
		}
		out.ReminderID = info.ID
		out.FireAt = info.At
		out.Error = info.Err
		out.Platform, out.RequesterID, out.Event = splitKey(info.Key)
	case eventbus.ReminderDelivered, eventbus.ReminderFailed:
		d, ok := e.Data.(notifier.DeliveryEvent)
		if !ok {
			return out, false
		}
		out.Action = storage.ActionDelivered
		if e.Type == eventbus.ReminderFailed {
			out.Action = storage.ActionFailed
		}
		out.ReminderID = d.RefID
		out.Platform = string(d.Platform)
		out.ChannelID = d.ChannelID
		out.Error = d.Error
	default:
		return out, false
	}
	return out, true
}

// splitKey reverses the registry key "platform:user|event".
func splitKey(key string) (platform, requester, event string) {
	who, event, _ := strings.Cut(key, "|")
	platform, requester, _ = strings.Cut(who, ":")
	return platform, requester, event
}

// runAudit copies lifecycle events into the store until ctx is done.
func runAudit(ctx context.Context, log logx.Logger, store storage.Store, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			entry, ok := auditEntry(e)
			if !ok {
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := store.AppendAudit(wctx, entry)
			cancel()
			if err != nil {
				log.Warn("audit append failed", logx.String("id", entry.ReminderID), logx.String("action", entry.Action), logx.Err(err))
			}
		}
	}
}
