package eventlog

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	connected := true
	event := Event{
		Time:      time.Now(),
		Signal:    "motor.readback",
		Type:      TypeValue,
		Old:       int64(1),
		New:       int64(2),
		Connected: &connected,
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.Signal != event.Signal {
		t.Errorf("Signal: got %q, want %q", decoded.Signal, event.Signal)
	}
	if decoded.Type != TypeValue {
		t.Errorf("Type: got %v, want %v", decoded.Type, TypeValue)
	}
	if decoded.Connected == nil || !*decoded.Connected {
		t.Error("Connected flag lost in round trip")
	}
}

func TestFileLoggerCreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.slog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	// File should exist
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("log file was not created")
	}
}

func TestFileLoggerAppends(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.slog")

	logger1, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	logger1.Log(Event{Time: time.Now(), Signal: "s1", Type: TypeValue})
	logger1.Close()

	logger2, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger second open failed: %v", err)
	}
	logger2.Log(Event{Time: time.Now(), Signal: "s2", Type: TypeMeta})
	logger2.Close()

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	var events []Event
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		events = append(events, event)
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Signal != "s1" {
		t.Errorf("first event Signal: got %q, want %q", events[0].Signal, "s1")
	}
	if events[1].Signal != "s2" {
		t.Errorf("second event Signal: got %q, want %q", events[1].Signal, "s2")
	}
}

func TestFileLoggerConcurrent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.slog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	const writers = 8
	const perWriter = 25

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				logger.Log(Event{Time: time.Now(), Signal: "c", Type: TypeValue})
			}
		}()
	}
	wg.Wait()
	logger.Close()

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	count := 0
	for {
		if _, err := reader.Next(); err != nil {
			break
		}
		count++
	}

	if count != writers*perWriter {
		t.Errorf("expected %d events, got %d", writers*perWriter, count)
	}
}

func TestFileLoggerClosedIgnoresLog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.slog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	logger.Close()
	if err := logger.Close(); err != nil {
		t.Errorf("second Close returned error: %v", err)
	}

	// Must not panic or write
	logger.Log(Event{Time: time.Now(), Signal: "s", Type: TypeValue})

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("expected empty file after close, got %d bytes", info.Size())
	}
}

func TestFilteredReader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.slog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	logger.Log(Event{Time: time.Now(), Signal: "a", Type: TypeValue})
	logger.Log(Event{Time: time.Now(), Signal: "b", Type: TypeMeta})
	logger.Log(Event{Time: time.Now(), Signal: "a", Type: TypeMeta})
	logger.Close()

	metaType := TypeMeta
	reader, err := NewFilteredReader(path, Filter{Signal: "a", Type: &metaType})
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer reader.Close()

	event, err := reader.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if event.Signal != "a" || event.Type != TypeMeta {
		t.Errorf("unexpected event: signal=%q type=%v", event.Signal, event.Type)
	}

	if _, err := reader.Next(); err != io.EOF {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestMultiLoggerFansOut(t *testing.T) {
	var a, b countingLogger

	multi := NewMultiLogger(&a, &b)
	multi.Log(Event{Time: time.Now(), Signal: "s", Type: TypeValue})
	multi.Log(Event{Time: time.Now(), Signal: "s", Type: TypeMeta})

	if a.count != 2 || b.count != 2 {
		t.Errorf("expected both loggers to receive 2 events, got %d and %d", a.count, b.count)
	}
}

type countingLogger struct {
	mu    sync.Mutex
	count int
}

func (c *countingLogger) Log(Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
}
