package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"github.com/sigio-project/sigio-go/pkg/channel/sim"
	"github.com/sigio-project/sigio-go/pkg/eventlog"
	sig "github.com/sigio-project/sigio-go/pkg/signal"
)

// defaultSetTimeout bounds the settle wait for the set command.
const defaultSetTimeout = 10 * time.Second

// Monitor is the interactive command loop.
type Monitor struct {
	prov    *sim.Provider
	signals map[string]sig.Readable
	elog    eventlog.Logger
	rl      *readline.Instance

	mu      sync.Mutex
	watches map[string]int // signal name -> subscription id
}

// newMonitor creates the interactive monitor handler.
func newMonitor(prov *sim.Provider, signals map[string]sig.Readable, elog eventlog.Logger) (*Monitor, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "sigio> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Monitor{
		prov:    prov,
		signals: signals,
		elog:    elog,
		rl:      rl,
		watches: make(map[string]int),
	}, nil
}

// Stdout returns a writer that coordinates with the readline prompt.
// Use this for log output to avoid interfering with input.
func (m *Monitor) Stdout() io.Writer {
	return m.rl.Stdout()
}

// Close stops any active monitors and releases the terminal.
func (m *Monitor) Close() {
	m.mu.Lock()
	for name, id := range m.watches {
		if s, ok := m.signals[name]; ok {
			if sub, ok := s.(sig.Subscribable); ok {
				sub.Unsubscribe(id)
			}
		}
	}
	m.watches = make(map[string]int)
	m.mu.Unlock()

	m.rl.Close()
}

// Run starts the interactive command loop. It returns on quit or EOF.
func (m *Monitor) Run() {
	m.printHelp()

	for {
		line, err := m.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(m.rl.Stdout(), "Exiting...")
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			m.printHelp()

		case "list", "ls":
			m.cmdList()

		case "get", "g":
			m.cmdGet(args)

		case "put", "p":
			m.cmdPut(args)

		case "set":
			m.cmdSet(args)

		case "describe", "d":
			m.cmdDescribe(args)

		case "monitor", "mon":
			m.cmdMonitor(args)

		case "unmonitor", "unmon":
			m.cmdUnmonitor(args)

		case "sim":
			m.cmdSim(args)

		case "offline":
			m.cmdConnected(args, false)

		case "online":
			m.cmdConnected(args, true)

		case "status":
			m.cmdStatus()

		case "quit", "exit", "q":
			fmt.Fprintln(m.rl.Stdout(), "Exiting...")
			return

		default:
			fmt.Fprintf(m.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (m *Monitor) printHelp() {
	fmt.Fprintln(m.rl.Stdout(), `
Signal Monitor Commands:
  Signals:
    list                - List configured signals
    get <name>          - Read a signal value
    put <name> <value>  - Write a value
    set <name> <value>  - Write and wait for the readback to settle
    describe <name>     - Show signal schema and provenance

  Monitoring:
    monitor <name>      - Print value changes as they happen
    unmonitor <name>    - Stop monitoring

  Simulation:
    sim <point> <value> - Drive a simulated channel directly
    offline <point>     - Disconnect a simulated channel
    online <point>      - Reconnect a simulated channel

  General:
    status              - Show monitor status
    help                - Show this help
    quit                - Exit`)
}

// cmdList handles the list command.
func (m *Monitor) cmdList() {
	if len(m.signals) == 0 {
		fmt.Fprintln(m.rl.Stdout(), "No signals configured")
		return
	}

	names := make([]string, 0, len(m.signals))
	for name := range m.signals {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(m.rl.Stdout(), "\nSignals (%d):\n", len(names))
	for _, name := range names {
		s := m.signals[name]

		state := "local"
		if ca, ok := s.(sig.ConnectionAware); ok {
			if ca.Connected() {
				state = "connected"
			} else {
				state = "disconnected"
			}
		}

		access := "read-write"
		if _, ok := s.(sig.Writable); !ok {
			access = "read-only"
		}

		mark := " "
		m.mu.Lock()
		if _, watching := m.watches[name]; watching {
			mark = "*"
		}
		m.mu.Unlock()

		fmt.Fprintf(m.rl.Stdout(), "  %s %-20s %-12s %s\n", mark, name, state, access)
	}
}

// cmdGet handles the get command.
func (m *Monitor) cmdGet(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(m.rl.Stdout(), "Usage: get <name>")
		return
	}

	s := m.resolveSignal(args[0])
	if s == nil {
		fmt.Fprintf(m.rl.Stdout(), "Signal not found: %s\n", args[0])
		return
	}

	readings, err := s.Read()
	if err != nil {
		fmt.Fprintf(m.rl.Stdout(), "Read failed: %v\n", err)
		return
	}

	for name, r := range readings {
		fmt.Fprintf(m.rl.Stdout(), "%s = %v (at %s)\n",
			name, r.Value, r.Timestamp.Format("15:04:05.000"))
	}
}

// cmdPut handles the put command.
func (m *Monitor) cmdPut(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(m.rl.Stdout(), "Usage: put <name> <value>")
		return
	}

	s := m.resolveSignal(args[0])
	if s == nil {
		fmt.Fprintf(m.rl.Stdout(), "Signal not found: %s\n", args[0])
		return
	}

	w, ok := s.(sig.Writable)
	if !ok {
		fmt.Fprintf(m.rl.Stdout(), "Signal %s is read-only\n", s.Name())
		return
	}

	value := parseValue(strings.Join(args[1:], " "))
	if err := w.Put(value, sig.PutOptions{}); err != nil {
		fmt.Fprintf(m.rl.Stdout(), "Put failed: %v\n", err)
		return
	}

	fmt.Fprintln(m.rl.Stdout(), "OK")
}

// cmdSet handles the set command.
func (m *Monitor) cmdSet(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(m.rl.Stdout(), "Usage: set <name> <value>")
		return
	}

	s := m.resolveSignal(args[0])
	if s == nil {
		fmt.Fprintf(m.rl.Stdout(), "Signal not found: %s\n", args[0])
		return
	}

	w, ok := s.(sig.Writable)
	if !ok {
		fmt.Fprintf(m.rl.Stdout(), "Signal %s is read-only\n", s.Name())
		return
	}

	value := parseValue(strings.Join(args[1:], " "))

	fut, err := w.Set(value, defaultSetTimeout, 0)
	if err != nil {
		fmt.Fprintf(m.rl.Stdout(), "Set failed: %v\n", err)
		return
	}

	fmt.Fprintf(m.rl.Stdout(), "Settling %s to %v...\n", s.Name(), value)
	if err := fut.Wait(defaultSetTimeout + time.Second); err != nil {
		fmt.Fprintf(m.rl.Stdout(), "Settle failed: %v\n", err)
		return
	}

	fmt.Fprintln(m.rl.Stdout(), "Settled")
}

// cmdDescribe handles the describe command.
func (m *Monitor) cmdDescribe(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(m.rl.Stdout(), "Usage: describe <name>")
		return
	}

	s := m.resolveSignal(args[0])
	if s == nil {
		fmt.Fprintf(m.rl.Stdout(), "Signal not found: %s\n", args[0])
		return
	}

	descs, err := s.Describe()
	if err != nil {
		fmt.Fprintf(m.rl.Stdout(), "Describe failed: %v\n", err)
		return
	}

	for name, d := range descs {
		fmt.Fprintf(m.rl.Stdout(), "\n%s:\n", name)
		fmt.Fprintf(m.rl.Stdout(), "  Source: %s\n", d.Source)
		fmt.Fprintf(m.rl.Stdout(), "  Type:   %s\n", d.DType)
		if len(d.Shape) > 0 {
			fmt.Fprintf(m.rl.Stdout(), "  Shape:  %v\n", d.Shape)
		}
		if d.Units != "" {
			fmt.Fprintf(m.rl.Stdout(), "  Units:  %s\n", d.Units)
		}
		if d.Precision != nil {
			fmt.Fprintf(m.rl.Stdout(), "  Precision: %d\n", *d.Precision)
		}
		if d.LowerCtrlLimit != nil && d.UpperCtrlLimit != nil {
			fmt.Fprintf(m.rl.Stdout(), "  Limits: [%g, %g]\n", *d.LowerCtrlLimit, *d.UpperCtrlLimit)
		}
		if len(d.EnumStrs) > 0 {
			fmt.Fprintf(m.rl.Stdout(), "  Choices: %s\n", strings.Join(d.EnumStrs, ", "))
		}
		if d.DerivedFrom != "" {
			fmt.Fprintf(m.rl.Stdout(), "  Derived from: %s\n", d.DerivedFrom)
		}
	}
	fmt.Fprintln(m.rl.Stdout())
}

// cmdMonitor handles the monitor command.
func (m *Monitor) cmdMonitor(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(m.rl.Stdout(), "Usage: monitor <name>")
		return
	}

	s := m.resolveSignal(args[0])
	if s == nil {
		fmt.Fprintf(m.rl.Stdout(), "Signal not found: %s\n", args[0])
		return
	}

	sub, ok := s.(sig.Subscribable)
	if !ok {
		fmt.Fprintf(m.rl.Stdout(), "Signal %s does not support monitoring\n", s.Name())
		return
	}

	name := s.Name()

	m.mu.Lock()
	if _, exists := m.watches[name]; exists {
		m.mu.Unlock()
		fmt.Fprintf(m.rl.Stdout(), "Already monitoring %s\n", name)
		return
	}
	m.mu.Unlock()

	id, err := sub.Subscribe(sig.EventValue, func(ev sig.Event) {
		fmt.Fprintf(m.rl.Stdout(), "[%s] %s: %v -> %v\n",
			ev.Timestamp.Format("15:04:05.000"), ev.Signal, ev.OldValue, ev.Value)
		m.elog.Log(eventlog.Event{
			Time:   ev.Timestamp,
			Signal: ev.Signal,
			Type:   eventlog.TypeValue,
			Old:    ev.OldValue,
			New:    ev.Value,
		})
	}, true)
	if err != nil {
		fmt.Fprintf(m.rl.Stdout(), "Subscribe failed: %v\n", err)
		return
	}

	m.mu.Lock()
	m.watches[name] = id
	m.mu.Unlock()

	fmt.Fprintf(m.rl.Stdout(), "Monitoring %s\n", name)
}

// cmdUnmonitor handles the unmonitor command.
func (m *Monitor) cmdUnmonitor(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(m.rl.Stdout(), "Usage: unmonitor <name>")
		return
	}

	s := m.resolveSignal(args[0])
	if s == nil {
		fmt.Fprintf(m.rl.Stdout(), "Signal not found: %s\n", args[0])
		return
	}

	name := s.Name()

	m.mu.Lock()
	id, exists := m.watches[name]
	delete(m.watches, name)
	m.mu.Unlock()

	if !exists {
		fmt.Fprintf(m.rl.Stdout(), "Not monitoring %s\n", name)
		return
	}

	if sub, ok := s.(sig.Subscribable); ok {
		sub.Unsubscribe(id)
	}
	fmt.Fprintf(m.rl.Stdout(), "Stopped monitoring %s\n", name)
}

// cmdSim handles the sim command.
func (m *Monitor) cmdSim(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(m.rl.Stdout(), "Usage: sim <point> <value>")
		return
	}

	point := m.resolvePoint(args[0])
	if point == "" {
		fmt.Fprintf(m.rl.Stdout(), "Point not found: %s\n", args[0])
		return
	}

	m.prov.SetValue(point, parseValue(strings.Join(args[1:], " ")))
	fmt.Fprintf(m.rl.Stdout(), "%s = %v\n", point, m.prov.Value(point))
}

// cmdConnected handles the offline and online commands.
func (m *Monitor) cmdConnected(args []string, connected bool) {
	verb := "offline"
	if connected {
		verb = "online"
	}
	if len(args) < 1 {
		fmt.Fprintf(m.rl.Stdout(), "Usage: %s <point>\n", verb)
		return
	}

	point := m.resolvePoint(args[0])
	if point == "" {
		fmt.Fprintf(m.rl.Stdout(), "Point not found: %s\n", args[0])
		return
	}

	m.prov.SetConnected(point, connected)
	fmt.Fprintf(m.rl.Stdout(), "%s is now %s\n", point, verb)
}

// cmdStatus handles the status command.
func (m *Monitor) cmdStatus() {
	connected := 0
	total := 0
	for _, s := range m.signals {
		if ca, ok := s.(sig.ConnectionAware); ok {
			total++
			if ca.Connected() {
				connected++
			}
		}
	}

	m.mu.Lock()
	watching := len(m.watches)
	m.mu.Unlock()

	fmt.Fprintln(m.rl.Stdout(), "\nMonitor Status")
	fmt.Fprintln(m.rl.Stdout(), "-------------------------------------------")
	fmt.Fprintf(m.rl.Stdout(), "  Signals:    %d\n", len(m.signals))
	fmt.Fprintf(m.rl.Stdout(), "  Connected:  %d/%d\n", connected, total)
	fmt.Fprintf(m.rl.Stdout(), "  Monitoring: %d\n", watching)
	fmt.Fprintf(m.rl.Stdout(), "  Sim points: %d\n", len(m.prov.Names()))
	fmt.Fprintln(m.rl.Stdout())
}

// resolveSignal resolves a possibly partial signal name.
func (m *Monitor) resolveSignal(partial string) sig.Readable {
	// Exact match first
	if s, ok := m.signals[partial]; ok {
		return s
	}

	for name, s := range m.signals {
		if strings.Contains(name, partial) {
			return s
		}
	}
	return nil
}

// resolvePoint resolves a possibly partial simulated point name.
func (m *Monitor) resolvePoint(partial string) string {
	names := m.prov.Names()
	for _, name := range names {
		if name == partial {
			return name
		}
	}
	for _, name := range names {
		if strings.Contains(name, partial) {
			return name
		}
	}
	return ""
}

// parseValue interprets a command argument as int, float, bool, or string.
func parseValue(s string) any {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseBool(s); err == nil {
		return v
	}
	return strings.Trim(s, "\"'")
}
