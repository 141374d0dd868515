// Package eventlog provides structured signal event capture.
//
// This package defines the Logger interface and Event types for recording
// signal-level events (value updates, setpoint writes, metadata changes,
// connection edges, errors). It is separate from operational logging
// (slog) - event capture provides a complete machine-readable trace for
// debugging and offline analysis.
//
// # Basic Usage
//
// Applications configure capture by providing a Logger implementation:
//
//	// For development: log to console via slog
//	opts.EventLog = eventlog.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	opts.EventLog, _ = eventlog.NewFileLogger("/var/log/sigio/run.slog")
//
//	// Both: use MultiLogger
//	opts.EventLog = eventlog.NewMultiLogger(
//	    eventlog.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # File Format
//
// Log files use CBOR encoding with integer keys. The Reader type streams
// events back out with optional filtering.
package eventlog
