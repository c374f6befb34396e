package router

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"remindbot/internal/reminder"
	kit "remindbot/internal/transport"
	logx "remindbot/pkg/logx"
)

type HandlerFunc func(ctx context.Context, req *Request) (kit.Reply, error)

type Middleware func(next HandlerFunc) HandlerFunc

func Chain(h HandlerFunc, m ...Middleware) HandlerFunc {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

func MWTimeout(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (kit.Reply, error) {
			if d <= 0 {
				return next(ctx, req)
			}
			cctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(cctx, req)
		}
	}
}

// MWPanicRecover turns a handler panic into the generic failure reply.
func MWPanicRecover(log logx.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (reply kit.Reply, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger := log
					if req != nil && !req.Logger.IsZero() {
						logger = req.Logger
					}
					logger.Error("panic recovered",
						logx.Any("panic", r),
						logx.String("stack", string(debug.Stack())),
					)
					err = fmt.Errorf("panic: %v", r)
					mention := ""
					if req != nil && req.Inv != nil {
						mention = req.Inv.Mention
					}
					reply = kit.Reply{Content: reminder.Rejection(err, mention)}
				}
			}()
			return next(ctx, req)
		}
	}
}

func MWRequestLog(log logx.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (kit.Reply, error) {
			start := time.Now()
			logger := log
			if req != nil && !req.Logger.IsZero() {
				logger = req.Logger
			}
			reply, err := next(ctx, req)
			d := time.Since(start)

			fields := []logx.Field{
				logx.String("platform", string(req.Inv.Platform)),
				logx.String("channel_id", req.Inv.ChannelID),
				logx.String("user_id", req.Inv.UserID),
				logx.String("cmd", req.Command),
				logx.Duration("dur", d),
			}
			if err != nil {
				// Rejections are user errors; keep them out of WARN.
				logger.Info("request rejected", append(fields, logx.Err(err))...)
			} else if d >= 750*time.Millisecond {
				logger.Info("request ok", fields...)
			} else {
				logger.Debug("request ok", fields...)
			}
			return reply, err
		}
	}
}
