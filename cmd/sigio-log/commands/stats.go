package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/sigio-project/sigio-go/pkg/eventlog"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents  int
	EventsByType map[eventlog.Type]int
	Signals      map[string]*SignalStats
	Errors       int
	TimeRange    struct {
		Start time.Time
		End   time.Time
	}
}

// SignalStats holds statistics for a single signal.
type SignalStats struct {
	FirstSeen    time.Time
	LastSeen     time.Time
	Events       int
	ValueUpdates int
	Disconnects  int
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := eventlog.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByType: make(map[eventlog.Type]int),
		Signals:      make(map[string]*SignalStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByType[event.Type]++

		// Track time range
		if stats.TimeRange.Start.IsZero() || event.Time.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Time
		}
		if event.Time.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Time
		}

		// Track per-signal stats
		ss, ok := stats.Signals[event.Signal]
		if !ok {
			ss = &SignalStats{
				FirstSeen: event.Time,
				LastSeen:  event.Time,
			}
			stats.Signals[event.Signal] = ss
		}
		ss.Events++
		if event.Time.After(ss.LastSeen) {
			ss.LastSeen = event.Time
		}
		if event.Type == eventlog.TypeValue {
			ss.ValueUpdates++
		}
		if event.Type == eventlog.TypeConnection && event.Connected != nil && !*event.Connected {
			ss.Disconnects++
		}

		// Count errors
		if event.Type == eventlog.TypeError {
			stats.Errors++
		}
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Signal Event Log Statistics ===")
	fmt.Fprintln(w)

	// Time range
	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	// Total events
	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	// Events by type
	fmt.Fprintln(w, "Events by Type:")
	for _, t := range []eventlog.Type{
		eventlog.TypeValue, eventlog.TypeSetpoint, eventlog.TypeMeta,
		eventlog.TypeConnection, eventlog.TypeAccess, eventlog.TypeError,
	} {
		if count := stats.EventsByType[t]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", t.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	// Signals
	fmt.Fprintf(w, "Signals: %d\n", len(stats.Signals))
	if len(stats.Signals) > 0 {
		// Sort by first seen time
		type sigInfo struct {
			name  string
			stats *SignalStats
		}
		sigs := make([]sigInfo, 0, len(stats.Signals))
		for name, ss := range stats.Signals {
			sigs = append(sigs, sigInfo{name, ss})
		}
		sort.Slice(sigs, func(i, j int) bool {
			return sigs[i].stats.FirstSeen.Before(sigs[j].stats.FirstSeen)
		})

		fmt.Fprintln(w, "")
		for _, s := range sigs {
			duration := s.stats.LastSeen.Sub(s.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", s.name, s.stats.Events, duration)
			if s.stats.ValueUpdates > 0 {
				fmt.Fprintf(w, "           Value updates: %d\n", s.stats.ValueUpdates)
			}
			if s.stats.Disconnects > 0 {
				fmt.Fprintf(w, "           Disconnects: %d\n", s.stats.Disconnects)
			}
		}
	}

	// Errors
	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
