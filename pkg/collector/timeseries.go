package collector

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sigio-project/sigio-go/pkg/completion"
	"github.com/sigio-project/sigio-go/pkg/signal"
)

// Collector errors.
var (
	// ErrNotArmed is returned by Collect before a successful Kickoff.
	ErrNotArmed = errors.New("collector has not been kicked off")

	// ErrWaveformMismatch is returned when the value and timestamp
	// waveforms cannot be paired at all.
	ErrWaveformMismatch = errors.New("value and timestamp waveforms are empty")
)

// Control word values understood by the remote buffer.
const (
	ctlEraseStart = 0
	ctlStart      = 1
	ctlStop       = 2
)

// writableSignal is the write surface the collector drives.
type writableSignal interface {
	signal.Readable
	Put(value any, opts signal.PutOptions) error
}

// Sample is one collected point.
type Sample struct {
	// Time is the remote-side acquisition time.
	Time time.Time

	// Value is the sampled value.
	Value float64
}

// TimeseriesConfig wires a Timeseries to its five signals.
type TimeseriesConfig struct {
	// Name identifies the collector in collect results and run records.
	Name string

	// Control is the acquisition control word.
	Control writableSignal

	// NumPoints is the requested buffer depth.
	NumPoints writableSignal

	// CurPoint is the fill counter, read for progress reporting.
	CurPoint signal.Readable

	// Waveform holds the sampled values.
	Waveform signal.Readable

	// WaveformTS holds the per-sample timestamps as epoch seconds.
	WaveformTS signal.Readable

	// MaxPoints is written to NumPoints on Kickoff.
	MaxPoints int

	// Logger receives operational logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultMaxPoints is used when the config leaves MaxPoints unset.
const DefaultMaxPoints = 1000

// Timeseries drives a remote circular buffer and drains it into samples.
type Timeseries struct {
	name string

	control    writableSignal
	numPoints  writableSignal
	curPoint   signal.Readable
	waveform   signal.Readable
	waveformTS signal.Readable

	maxPoints int
	logger    *slog.Logger

	mu    sync.Mutex
	armed bool
}

// NewTimeseries validates the wiring and returns a collector.
func NewTimeseries(cfg TimeseriesConfig) (*Timeseries, error) {
	if cfg.Name == "" {
		return nil, errors.New("collector: Name is required")
	}
	if cfg.Control == nil || cfg.NumPoints == nil {
		return nil, errors.New("collector: Control and NumPoints signals are required")
	}
	if cfg.Waveform == nil || cfg.WaveformTS == nil {
		return nil, errors.New("collector: Waveform and WaveformTS signals are required")
	}

	maxPoints := cfg.MaxPoints
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Timeseries{
		name:       cfg.Name,
		control:    cfg.Control,
		numPoints:  cfg.NumPoints,
		curPoint:   cfg.CurPoint,
		waveform:   cfg.Waveform,
		waveformTS: cfg.WaveformTS,
		maxPoints:  maxPoints,
		logger:     logger,
	}, nil
}

// Name returns the collector name.
func (c *Timeseries) Name() string { return c.name }

// Kickoff arms the remote buffer: it writes the requested depth, then
// erases and starts acquisition. The returned future is already
// resolved; arming either worked synchronously or failed.
func (c *Timeseries) Kickoff() (*completion.Future, error) {
	if err := c.numPoints.Put(c.maxPoints, signal.PutOptions{}); err != nil {
		return nil, fmt.Errorf("collector %s: set depth: %w", c.name, err)
	}
	if err := c.control.Put(ctlEraseStart, signal.PutOptions{}); err != nil {
		return nil, fmt.Errorf("collector %s: erase/start: %w", c.name, err)
	}

	c.mu.Lock()
	c.armed = true
	c.mu.Unlock()

	c.logger.Debug("collector armed", "collector", c.name, "max_points", c.maxPoints)

	fut := completion.New()
	_ = fut.Resolve(true, nil)
	return fut, nil
}

// Complete reports acquisition completeness. The buffer fills on the
// remote side without further involvement, so the future is already
// resolved.
func (c *Timeseries) Complete() (*completion.Future, error) {
	c.mu.Lock()
	armed := c.armed
	c.mu.Unlock()
	if !armed {
		return nil, fmt.Errorf("%w: %s", ErrNotArmed, c.name)
	}
	fut := completion.New()
	_ = fut.Resolve(true, nil)
	return fut, nil
}

// Progress reads the fill counter. Zero with a nil error when the
// collector has no counter signal.
func (c *Timeseries) Progress() (int, error) {
	if c.curPoint == nil {
		return 0, nil
	}
	v, err := c.curPoint.Get()
	if err != nil {
		return 0, fmt.Errorf("collector %s: progress: %w", c.name, err)
	}
	f, ok := toFloat64(v)
	if !ok {
		return 0, fmt.Errorf("collector %s: non-numeric fill counter %v", c.name, v)
	}
	return int(f), nil
}

// Collect stops acquisition and drains the waveform pair into samples.
// Values and timestamps pair by index; a length mismatch is truncated
// to the shorter side.
func (c *Timeseries) Collect() ([]Sample, error) {
	c.mu.Lock()
	armed := c.armed
	c.armed = false
	c.mu.Unlock()
	if !armed {
		return nil, fmt.Errorf("%w: %s", ErrNotArmed, c.name)
	}

	if err := c.control.Put(ctlStop, signal.PutOptions{}); err != nil {
		return nil, fmt.Errorf("collector %s: stop: %w", c.name, err)
	}

	rawValues, err := c.waveform.Get()
	if err != nil {
		return nil, fmt.Errorf("collector %s: read waveform: %w", c.name, err)
	}
	rawTimes, err := c.waveformTS.Get()
	if err != nil {
		return nil, fmt.Errorf("collector %s: read timestamps: %w", c.name, err)
	}

	values := asFloats(rawValues)
	times := asFloats(rawTimes)
	n := len(values)
	if len(times) < n {
		n = len(times)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrWaveformMismatch, c.name)
	}

	samples := make([]Sample, n)
	for i := 0; i < n; i++ {
		sec := int64(times[i])
		nsec := int64((times[i] - float64(sec)) * 1e9)
		samples[i] = Sample{Time: time.Unix(sec, nsec), Value: values[i]}
	}

	c.logger.Debug("collector drained", "collector", c.name, "samples", n)
	return samples, nil
}

// Stop aborts acquisition without draining.
func (c *Timeseries) Stop() error {
	c.mu.Lock()
	c.armed = false
	c.mu.Unlock()

	if err := c.control.Put(ctlStop, signal.PutOptions{}); err != nil {
		return fmt.Errorf("collector %s: stop: %w", c.name, err)
	}
	return nil
}

// DescribeCollect reports the schema of Collect results, keyed by the
// collector name.
func (c *Timeseries) DescribeCollect() map[string]signal.Description {
	return map[string]signal.Description{
		c.name: {
			Source: "collector:" + c.name,
			DType:  "number",
			Shape:  []int{},
		},
	}
}

// asFloats coerces waveform payloads into a float slice. Unsupported
// payloads produce nil.
func asFloats(v any) []float64 {
	switch a := v.(type) {
	case []float64:
		return a
	case []float32:
		out := make([]float64, len(a))
		for i, f := range a {
			out[i] = float64(f)
		}
		return out
	case []int:
		out := make([]float64, len(a))
		for i, n := range a {
			out[i] = float64(n)
		}
		return out
	case []int64:
		out := make([]float64, len(a))
		for i, n := range a {
			out[i] = float64(n)
		}
		return out
	case []any:
		out := make([]float64, 0, len(a))
		for _, e := range a {
			f, ok := toFloat64(e)
			if !ok {
				return nil
			}
			out = append(out, f)
		}
		return out
	default:
		return nil
	}
}

// toFloat64 coerces scalar numerics.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
