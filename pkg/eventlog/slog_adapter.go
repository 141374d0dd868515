package eventlog

import (
	"context"
	"fmt"
	"log/slog"
)

// SlogAdapter writes events to an slog.Logger.
// Useful for development when you want to see signal events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("signal", event.Signal),
		slog.String("type", event.Type.String()),
	}

	switch event.Type {
	case TypeValue, TypeSetpoint:
		attrs = append(attrs,
			slog.String("old", fmt.Sprint(event.Old)),
			slog.String("new", fmt.Sprint(event.New)),
		)
	case TypeMeta, TypeConnection:
		if event.Connected != nil {
			attrs = append(attrs, slog.Bool("connected", *event.Connected))
		}
	case TypeAccess:
		if event.ReadAccess != nil {
			attrs = append(attrs, slog.Bool("read_access", *event.ReadAccess))
		}
		if event.WriteAccess != nil {
			attrs = append(attrs, slog.Bool("write_access", *event.WriteAccess))
		}
	case TypeError:
		attrs = append(attrs, slog.String("error", event.Error))
	}

	if event.Detail != "" {
		attrs = append(attrs, slog.String("detail", event.Detail))
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "signal event", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
