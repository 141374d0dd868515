package commands

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sigio-project/sigio-go/pkg/eventlog"
)

// readAllEvents drains a log file into a slice.
func readAllEvents(t *testing.T, path string) []eventlog.Event {
	t.Helper()

	reader, err := eventlog.NewReader(path)
	if err != nil {
		t.Fatalf("failed to open log file: %v", err)
	}
	defer reader.Close()

	var events []eventlog.Event
	for {
		e, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("failed to read event: %v", err)
		}
		events = append(events, e)
	}
	return events
}

func TestFilterBySignal(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []eventlog.Event{
		{Time: ts, Signal: "motor", Type: eventlog.TypeValue, New: 1.0},
		{Time: ts, Signal: "temp", Type: eventlog.TypeValue, New: 22.5},
		{Time: ts, Signal: "motor", Type: eventlog.TypeSetpoint, New: 5.0},
	}

	path := createTestLogFile(t, events)
	out := filepath.Join(t.TempDir(), "filtered.slog")

	err := RunFilter(path, FilterOptions{Output: out, Signal: "motor"})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}

	filtered := readAllEvents(t, out)
	if len(filtered) != 2 {
		t.Fatalf("expected 2 events, got %d", len(filtered))
	}
	for _, e := range filtered {
		if e.Signal != "motor" {
			t.Errorf("unexpected signal %q in filtered output", e.Signal)
		}
	}
}

func TestFilterByType(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []eventlog.Event{
		{Time: ts, Signal: "motor", Type: eventlog.TypeValue, New: 1.0},
		{Time: ts, Signal: "motor", Type: eventlog.TypeSetpoint, New: 5.0},
	}

	path := createTestLogFile(t, events)
	out := filepath.Join(t.TempDir(), "filtered.slog")

	err := RunFilter(path, FilterOptions{Output: out, Type: "setpoint"})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}

	filtered := readAllEvents(t, out)
	if len(filtered) != 1 {
		t.Fatalf("expected 1 event, got %d", len(filtered))
	}
	if filtered[0].Type != eventlog.TypeSetpoint {
		t.Errorf("expected setpoint event, got %v", filtered[0].Type)
	}
}

func TestFilterByTimeRange(t *testing.T) {
	base := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []eventlog.Event{
		{Time: base, Signal: "a", Type: eventlog.TypeValue, New: 1.0},
		{Time: base.Add(time.Hour), Signal: "b", Type: eventlog.TypeValue, New: 2.0},
		{Time: base.Add(2 * time.Hour), Signal: "c", Type: eventlog.TypeValue, New: 3.0},
	}

	path := createTestLogFile(t, events)
	out := filepath.Join(t.TempDir(), "filtered.slog")

	err := RunFilter(path, FilterOptions{
		Output:    out,
		TimeStart: base.Add(30 * time.Minute).Format(time.RFC3339),
		TimeEnd:   base.Add(90 * time.Minute).Format(time.RFC3339),
	})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}

	filtered := readAllEvents(t, out)
	if len(filtered) != 1 {
		t.Fatalf("expected 1 event, got %d", len(filtered))
	}
	if filtered[0].Signal != "b" {
		t.Errorf("expected signal b, got %q", filtered[0].Signal)
	}
}

func TestFilterInvalidTime(t *testing.T) {
	path := createTestLogFile(t, nil)
	out := filepath.Join(t.TempDir(), "filtered.slog")

	err := RunFilter(path, FilterOptions{Output: out, TimeStart: "not-a-time"})
	if err == nil {
		t.Error("expected error for invalid time-start")
	}
}

func TestFilterInvalidType(t *testing.T) {
	path := createTestLogFile(t, nil)
	out := filepath.Join(t.TempDir(), "filtered.slog")

	err := RunFilter(path, FilterOptions{Output: out, Type: "bogus"})
	if err == nil {
		t.Error("expected error for invalid type")
	}
}
