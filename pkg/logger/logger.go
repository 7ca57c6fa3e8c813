package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/angelsplants/checkout-backend/pkg/env"
	pkgerrors "github.com/angelsplants/checkout-backend/pkg/errors"
)

// Options configures New. WarnStack attaches a stack trace to warnings as well
// as errors; Fields are stamped on every entry.
type Options struct {
	ServiceName string
	Level       zerolog.Level
	WarnStack   bool
	Output      io.Writer
	Fields      map[string]any
}

// Logger writes JSON lines through zerolog. Request-scoped fields travel in the
// context via zerolog's own context integration.
type Logger struct {
	base      zerolog.Logger
	warnStack bool
}

func New(opts Options) *Logger {
	if opts.Level == zerolog.NoLevel {
		opts.Level = zerolog.InfoLevel
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if env.Get("LOG_FORMAT", "json") == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	builder := zerolog.New(out).With().Timestamp().Str("service", opts.ServiceName)
	if len(opts.Fields) > 0 {
		builder = builder.Fields(opts.Fields)
	}
	return &Logger{
		base:      builder.Logger().Level(opts.Level),
		warnStack: opts.WarnStack,
	}
}

// ParseLevel falls back to info for empty or unknown values.
func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *Logger) from(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if entry := zerolog.Ctx(ctx); entry.GetLevel() != zerolog.Disabled {
			return entry
		}
	}
	return &l.base
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return l.from(ctx).With().Interface(key, value).Logger().WithContext(ctx)
}

func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return l.from(ctx).With().Fields(fields).Logger().WithContext(ctx)
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.WithField(ctx, "request_id", requestID)
}

func (l *Logger) WithUserID(ctx context.Context, userID string) context.Context {
	return l.WithField(ctx, "user_id", userID)
}

func (l *Logger) WithActorRole(ctx context.Context, role string) context.Context {
	return l.WithField(ctx, "actor_role", role)
}

// WithOrderID tags the context with the internal order id and, when known,
// the gateway order id it was registered under.
func (l *Logger) WithOrderID(ctx context.Context, orderID, gatewayOrderID string) context.Context {
	fields := map[string]any{}
	if orderID != "" {
		fields["order_id"] = orderID
	}
	if gatewayOrderID != "" {
		fields["gateway_order_id"] = gatewayOrderID
	}
	if len(fields) == 0 {
		return ctx
	}
	return l.WithFields(ctx, fields)
}

func (l *Logger) WithPaymentID(ctx context.Context, gatewayPaymentID string) context.Context {
	if gatewayPaymentID == "" {
		return ctx
	}
	return l.WithField(ctx, "gateway_payment_id", gatewayPaymentID)
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	l.from(ctx).Debug().Msg(msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	l.from(ctx).Info().Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	event := l.from(ctx).Warn()
	if l.warnStack {
		event.Str("stack", stackTrace())
	}
	event.Msg(msg)
}

// Error logs err with its code, unwrap chain and any Postgres diagnostics.
func (l *Logger) Error(ctx context.Context, msg string, err error) {
	event := l.from(ctx).Error()
	if err != nil {
		dump := pkgerrors.Dump(err)
		event.Err(err).Strs("error_chain", dump.Chain)
		if dump.Code != "" {
			event.Str("error_code", string(dump.Code))
		}
		if dump.PGCode != "" {
			event.Dict("pg", zerolog.Dict().
				Str("code", dump.PGCode).
				Str("constraint", dump.PGConstraint).
				Str("table", dump.PGTable).
				Str("column", dump.PGColumn).
				Str("detail", dump.PGDetail).
				Str("message", dump.PGMessage))
		}
	}
	event.Str("stack", stackTrace()).Msg(msg)
}

func stackTrace() string {
	return strings.TrimSpace(string(debug.Stack()))
}
