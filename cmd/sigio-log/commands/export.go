package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sigio-project/sigio-go/pkg/eventlog"
)

// RunExport exports the log file to the specified format.
func RunExport(path, format, output string) error {
	reader, err := eventlog.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	// Determine output writer
	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "jsonl":
		return exportJSONL(reader, w)
	case "csv":
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

// jsonEvent is the JSONL export shape for an event.
type jsonEvent struct {
	Time        string `json:"time"`
	Signal      string `json:"signal"`
	Type        string `json:"type"`
	Old         any    `json:"old,omitempty"`
	New         any    `json:"new,omitempty"`
	Connected   *bool  `json:"connected,omitempty"`
	ReadAccess  *bool  `json:"read_access,omitempty"`
	WriteAccess *bool  `json:"write_access,omitempty"`
	Error       string `json:"error,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

func exportJSONL(reader *eventlog.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		je := jsonEvent{
			Time:        event.Time.UTC().Format("2006-01-02T15:04:05.000000Z"),
			Signal:      event.Signal,
			Type:        event.Type.String(),
			Old:         event.Old,
			New:         event.New,
			Connected:   event.Connected,
			ReadAccess:  event.ReadAccess,
			WriteAccess: event.WriteAccess,
			Error:       event.Error,
			Detail:      event.Detail,
		}
		if err := encoder.Encode(je); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	return nil
}

func exportCSV(reader *eventlog.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	// Write header
	header := []string{"time", "signal", "type", "old", "new", "connected", "read_access", "write_access", "error", "detail"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		row := []string{
			event.Time.UTC().Format("2006-01-02T15:04:05.000000Z"),
			event.Signal,
			event.Type.String(),
			anyToCSV(event.Old),
			anyToCSV(event.New),
			boolToCSV(event.Connected),
			boolToCSV(event.ReadAccess),
			boolToCSV(event.WriteAccess),
			event.Error,
			event.Detail,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}

func anyToCSV(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func boolToCSV(b *bool) string {
	if b == nil {
		return ""
	}
	return fmt.Sprintf("%t", *b)
}
