package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sigio-project/sigio-go/pkg/eventlog"
)

func TestStatsCountsByType(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []eventlog.Event{
		{Time: ts, Signal: "motor", Type: eventlog.TypeValue, New: 1.0},
		{Time: ts, Signal: "motor", Type: eventlog.TypeValue, New: 2.0},
		{Time: ts, Signal: "motor", Type: eventlog.TypeSetpoint, New: 5.0},
		{Time: ts, Signal: "motor", Type: eventlog.TypeConnection, Connected: boolPtr(true)},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "VALUE:") {
		t.Error("expected VALUE type in output")
	}
	if !strings.Contains(output, "SETPOINT:") {
		t.Error("expected SETPOINT type in output")
	}
	if !strings.Contains(output, "CONNECTION:") {
		t.Error("expected CONNECTION type in output")
	}
}

func TestStatsTotalEvents(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []eventlog.Event{
		{Time: ts, Signal: "a", Type: eventlog.TypeValue, New: 1.0},
		{Time: ts, Signal: "a", Type: eventlog.TypeValue, New: 2.0},
		{Time: ts, Signal: "a", Type: eventlog.TypeValue, New: 3.0},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	if !strings.Contains(buf.String(), "Total Events: 3") {
		t.Errorf("expected 3 total events in output, got:\n%s", buf.String())
	}
}

func TestStatsCountsSignals(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []eventlog.Event{
		{Time: ts, Signal: "motor", Type: eventlog.TypeValue, New: 1.0},
		{Time: ts.Add(time.Second), Signal: "motor", Type: eventlog.TypeValue, New: 2.0},
		{Time: ts, Signal: "temp", Type: eventlog.TypeValue, New: 22.5},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Signals: 2") {
		t.Errorf("expected 2 signals in output, got:\n%s", output)
	}
	if !strings.Contains(output, "[motor] 2 events") {
		t.Errorf("expected motor signal details, got:\n%s", output)
	}
	if !strings.Contains(output, "Value updates: 2") {
		t.Errorf("expected value update count, got:\n%s", output)
	}
}

func TestStatsTimeRange(t *testing.T) {
	start := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 28, 11, 0, 0, 0, time.UTC)
	events := []eventlog.Event{
		{Time: start, Signal: "a", Type: eventlog.TypeValue, New: 1.0},
		{Time: end, Signal: "a", Type: eventlog.TypeValue, New: 2.0},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Duration:") {
		t.Error("expected Duration in output")
	}
	if !strings.Contains(output, "1h0m0s") {
		t.Errorf("expected 1h0m0s duration in output, got:\n%s", output)
	}
}

func TestStatsCountsDisconnectsAndErrors(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []eventlog.Event{
		{Time: ts, Signal: "motor", Type: eventlog.TypeConnection, Connected: boolPtr(false)},
		{Time: ts, Signal: "motor", Type: eventlog.TypeError, Error: "error 1"},
		{Time: ts, Signal: "motor", Type: eventlog.TypeError, Error: "error 2"},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Disconnects: 1") {
		t.Errorf("expected 1 disconnect in output, got:\n%s", output)
	}
	if !strings.Contains(output, "Errors: 2") {
		t.Errorf("expected 2 errors in output, got:\n%s", output)
	}
}
