// Package config loads declarative signal definitions from YAML and
// resolves them into constructor options.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sigio-project/sigio-go/pkg/channel"
	"github.com/sigio-project/sigio-go/pkg/channel/sim"
	"github.com/sigio-project/sigio-go/pkg/dispatch"
	"github.com/sigio-project/sigio-go/pkg/signal"
)

// ErrInvalidConfig is wrapped by all validation failures.
var ErrInvalidConfig = errors.New("invalid configuration")

// File is the root of a configuration document.
type File struct {
	// Dispatcher tunes the shared callback dispatcher.
	Dispatcher DispatcherSpec `yaml:"dispatcher"`

	// Signals declares the remote signals to build.
	Signals []SignalSpec `yaml:"signals"`

	// Points declares simulated channels, used by tools that run
	// against the in-memory provider.
	Points []PointSpec `yaml:"points"`
}

// DispatcherSpec tunes the callback dispatcher.
type DispatcherSpec struct {
	// QueueSize is the per-category queue depth. Zero means the
	// dispatcher default.
	QueueSize int `yaml:"queue_size"`
}

// SignalSpec declares one remote signal.
type SignalSpec struct {
	Name         string  `yaml:"name"`
	ReadChannel  string  `yaml:"read_channel"`
	WriteChannel string  `yaml:"write_channel"`
	Kind         string  `yaml:"kind"`
	Tolerance    float64 `yaml:"tolerance"`
	RTolerance   float64 `yaml:"rtolerance"`
	UseLimits    bool    `yaml:"use_limits"`
	PutComplete  bool    `yaml:"put_complete"`
	ReadOnly     bool    `yaml:"read_only"`
}

// PointSpec declares one simulated channel.
type PointSpec struct {
	Name         string   `yaml:"name"`
	Value        any      `yaml:"value"`
	Units        string   `yaml:"units"`
	Precision    *int     `yaml:"precision"`
	LowLimit     *float64 `yaml:"low_limit"`
	HighLimit    *float64 `yaml:"high_limit"`
	ReadOnly     bool     `yaml:"read_only"`
	Disconnected bool     `yaml:"disconnected"`
}

// Load parses and validates a configuration document.
func Load(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFile reads and parses a configuration file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Load(data)
}

func (f *File) validate() error {
	if f.Dispatcher.QueueSize < 0 {
		return fmt.Errorf("%w: dispatcher queue_size must not be negative", ErrInvalidConfig)
	}

	names := make(map[string]bool, len(f.Signals))
	for i, s := range f.Signals {
		if s.ReadChannel == "" {
			return fmt.Errorf("%w: signal %d: read_channel is required", ErrInvalidConfig, i)
		}
		name := s.Name
		if name == "" {
			name = s.ReadChannel
		}
		if names[name] {
			return fmt.Errorf("%w: duplicate signal name %q", ErrInvalidConfig, name)
		}
		names[name] = true

		if _, ok := signal.ParseKind(s.Kind); !ok {
			return fmt.Errorf("%w: signal %q: unknown kind %q", ErrInvalidConfig, name, s.Kind)
		}
		if s.Tolerance < 0 || s.RTolerance < 0 {
			return fmt.Errorf("%w: signal %q: tolerances must not be negative", ErrInvalidConfig, name)
		}
	}

	points := make(map[string]bool, len(f.Points))
	for i, p := range f.Points {
		if p.Name == "" {
			return fmt.Errorf("%w: point %d: name is required", ErrInvalidConfig, i)
		}
		if points[p.Name] {
			return fmt.Errorf("%w: duplicate point name %q", ErrInvalidConfig, p.Name)
		}
		points[p.Name] = true
	}
	return nil
}

// RemoteOptions resolves the spec into remote signal options.
func (s SignalSpec) RemoteOptions() signal.RemoteOptions {
	kind, _ := signal.ParseKind(s.Kind)
	return signal.RemoteOptions{
		ReadChannel:  s.ReadChannel,
		WriteChannel: s.WriteChannel,
		Name:         s.Name,
		Kind:         kind,
		Tolerance:    s.Tolerance,
		RTolerance:   s.RTolerance,
		UseLimits:    s.UseLimits,
		PutComplete:  s.PutComplete,
	}
}

// SimPoint resolves the spec into a simulated point definition.
func (p PointSpec) SimPoint() sim.Point {
	return sim.Point{
		Name:  p.Name,
		Value: p.Value,
		Metadata: channel.Metadata{
			Units:          p.Units,
			Precision:      p.Precision,
			LowerCtrlLimit: p.LowLimit,
			UpperCtrlLimit: p.HighLimit,
		},
		ReadOnly:     p.ReadOnly,
		Disconnected: p.Disconnected,
	}
}

// DispatchConfig resolves the dispatcher tuning.
func (d DispatcherSpec) DispatchConfig() dispatch.Config {
	return dispatch.Config{QueueSize: d.QueueSize}
}

// BuildSignals connects every declared signal against the provider.
// Read-only specs build RemoteSignalRO. On error, signals already built
// are destroyed.
func (f *File) BuildSignals(p channel.Provider, d *dispatch.Dispatcher) (map[string]signal.Readable, error) {
	built := make(map[string]signal.Readable, len(f.Signals))
	for _, spec := range f.Signals {
		opts := spec.RemoteOptions()

		var (
			sig signal.Readable
			err error
		)
		if spec.ReadOnly {
			sig, err = signal.NewRemoteRO(p, d, opts)
		} else {
			sig, err = signal.NewRemote(p, d, opts)
		}
		if err != nil {
			for _, s := range built {
				if destroyer, ok := s.(interface{ Destroy() }); ok {
					destroyer.Destroy()
				}
			}
			return nil, fmt.Errorf("config: build signal %q: %w", specName(spec), err)
		}
		built[specName(spec)] = sig
	}
	return built, nil
}

// PopulateSim defines every declared point on the simulated provider.
func (f *File) PopulateSim(p *sim.Provider) {
	for _, spec := range f.Points {
		p.Define(spec.SimPoint())
	}
}

func specName(s SignalSpec) string {
	if s.Name != "" {
		return s.Name
	}
	return s.ReadChannel
}
