// Package commands implements the sigio-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/sigio-project/sigio-go/pkg/eventlog"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Signal string
	Type   *eventlog.Type
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event eventlog.Event) {
	// Header line: timestamp SIGNAL TYPE
	ts := event.Time.UTC().Format("2006-01-02T15:04:05.000000Z")
	fmt.Fprintf(w, "%s %-20s %s\n", ts, event.Signal, event.Type.String())

	// Type-specific details
	switch event.Type {
	case eventlog.TypeValue, eventlog.TypeSetpoint:
		if event.Old != nil {
			fmt.Fprintf(w, "  %v -> %v\n", event.Old, event.New)
		} else {
			fmt.Fprintf(w, "  -> %v\n", event.New)
		}

	case eventlog.TypeConnection:
		if event.Connected != nil {
			fmt.Fprintf(w, "  Connected: %t\n", *event.Connected)
		}

	case eventlog.TypeAccess:
		if event.ReadAccess != nil {
			fmt.Fprintf(w, "  Read: %t", *event.ReadAccess)
			if event.WriteAccess != nil {
				fmt.Fprintf(w, "  Write: %t", *event.WriteAccess)
			}
			fmt.Fprintln(w)
		}

	case eventlog.TypeError:
		fmt.Fprintf(w, "  Error: %s\n", event.Error)
	}

	if event.Detail != "" {
		fmt.Fprintf(w, "  Detail: %s\n", event.Detail)
	}

	fmt.Fprintln(w) // Blank line between events
}

// ParseTypeFlag parses an event type string from a command-line flag
// (case-insensitive).
func ParseTypeFlag(s string) (eventlog.Type, error) {
	return parseType(s)
}

// parseType parses an event type string (case-insensitive).
func parseType(s string) (eventlog.Type, error) {
	switch strings.ToLower(s) {
	case "value":
		return eventlog.TypeValue, nil
	case "setpoint":
		return eventlog.TypeSetpoint, nil
	case "meta":
		return eventlog.TypeMeta, nil
	case "connection":
		return eventlog.TypeConnection, nil
	case "access":
		return eventlog.TypeAccess, nil
	case "error":
		return eventlog.TypeError, nil
	default:
		return 0, fmt.Errorf("invalid type: %s (must be value, setpoint, meta, connection, access, or error)", s)
	}
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := eventlog.NewFilteredReader(path, eventlog.Filter{
		Signal: filter.Signal,
		Type:   filter.Type,
	})
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		formatEvent(output, event)
	}

	return nil
}
