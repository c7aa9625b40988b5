package logger

import (
	"fmt"
	"log"
	"log/slog"
	"strings"
)

// New returns a *log.Logger that forwards to slog with a component attribute.
// Used where libraries want a stdlib logger (http.Server.ErrorLog).
func New(base *slog.Logger, component string, level slog.Level) *log.Logger {
	if base == nil {
		base = slog.Default()
	}
	return slog.NewLogLogger(base.With("component", component).Handler(), level)
}

// Printf adapts slog to printf-style logging interfaces such as cron's.
type Printf struct {
	log *slog.Logger
}

// NewPrintf tags every line with component.
func NewPrintf(base *slog.Logger, component string) Printf {
	if base == nil {
		base = slog.Default()
	}
	return Printf{log: base.With("component", component)}
}

// Printf logs at debug level.
func (p Printf) Printf(format string, args ...any) {
	p.log.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Info satisfies cron.Logger.
func (p Printf) Info(msg string, keysAndValues ...any) {
	p.log.Debug(msg, keysAndValues...)
}

// Error satisfies cron.Logger.
func (p Printf) Error(err error, msg string, keysAndValues ...any) {
	p.log.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
