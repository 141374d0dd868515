// Command sigio-mon is an interactive signal monitor.
//
// It loads a YAML configuration describing simulated channels and the
// signals bound to them, then drops into a command prompt for reading,
// writing, and monitoring those signals.
//
// Usage:
//
//	sigio-mon -config <file> [flags]
//
// Flags:
//
//	-config string      Configuration file path (required)
//	-log-level string   Log level: debug, info, warn, error (default "info")
//	-event-log string   Append signal events to a CBOR event log file
//
// Interactive Commands:
//
//	list                - List configured signals
//	get <name>          - Read a signal value
//	put <name> <value>  - Write a value
//	set <name> <value>  - Write and wait for the readback to settle
//	describe <name>     - Show signal schema and provenance
//	monitor <name>      - Print value changes as they happen
//	unmonitor <name>    - Stop monitoring
//	sim <point> <value> - Drive a simulated channel directly
//	offline <point>     - Disconnect a simulated channel
//	online <point>      - Reconnect a simulated channel
//	status              - Show monitor status
//	quit                - Exit
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sigio-project/sigio-go/pkg/channel/sim"
	"github.com/sigio-project/sigio-go/pkg/config"
	"github.com/sigio-project/sigio-go/pkg/dispatch"
	"github.com/sigio-project/sigio-go/pkg/eventlog"
)

var (
	configPath   string
	logLevel     string
	eventLogPath string
)

func init() {
	flag.StringVar(&configPath, "config", "", "Configuration file path (required)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&eventLogPath, "event-log", "", "Append signal events to a CBOR event log file")
}

func main() {
	flag.Parse()

	logger := setupLogging(logLevel)

	if configPath == "" {
		fmt.Fprintln(os.Stderr, "sigio-mon: -config is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	prov := sim.NewProvider()
	cfg.PopulateSim(prov)
	logger.Info("simulated provider populated", "points", len(cfg.Points))

	d := dispatch.New(cfg.Dispatcher.DispatchConfig())
	dispatch.Install(d, logger)
	defer dispatch.Teardown()

	var elog eventlog.Logger = eventlog.NoopLogger{}
	if eventLogPath != "" {
		fl, err := eventlog.NewFileLogger(eventLogPath)
		if err != nil {
			logger.Error("failed to open event log", "path", eventLogPath, "error", err)
			os.Exit(1)
		}
		defer fl.Close()
		elog = fl
		logger.Info("event log open", "path", eventLogPath)
	}

	signals, err := cfg.BuildSignals(prov, d)
	if err != nil {
		logger.Error("failed to build signals", "error", err)
		os.Exit(1)
	}
	logger.Info("signals connected", "count", len(signals))

	m, err := newMonitor(prov, signals, elog)
	if err != nil {
		logger.Error("failed to create monitor", "error", err)
		os.Exit(1)
	}

	// Route log output through readline so it does not clobber the prompt.
	logger = slog.New(slog.NewTextHandler(m.Stdout(), &slog.HandlerOptions{
		Level: parseLevel(logLevel),
	}))
	slog.SetDefault(logger)

	done := make(chan struct{})
	go func() {
		m.Run()
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal", "signal", sig.String())
	case <-done:
	}

	m.Close()

	for _, s := range signals {
		if destroyer, ok := s.(interface{ Destroy() }); ok {
			destroyer.Destroy()
		}
	}

	logger.Info("goodbye")
}

func setupLogging(level string) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
