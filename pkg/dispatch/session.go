package dispatch

import (
	"log/slog"
	"sync"
)

// Session-scoped dispatcher registration.
//
// The dispatcher is an explicitly constructed, caller-owned resource and
// is passed by reference into every signal that needs it. Install is a
// registration for processes that want one shared instance, not a lazily
// created hidden global.

var (
	sessionMu sync.Mutex
	session   *Dispatcher
)

// Install registers d as the process-scoped dispatcher. Installing while
// another live dispatcher is already registered is a logged no-op.
func Install(d *Dispatcher, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	sessionMu.Lock()
	defer sessionMu.Unlock()

	if session != nil && session.Alive() {
		logger.Debug("dispatcher already installed for this session")
		return
	}
	session = d
}

// Installed returns the registered session dispatcher, or nil.
func Installed() *Dispatcher {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	return session
}

// Teardown stops and unregisters the session dispatcher. Safe to call
// at process exit regardless of whether Install was ever called.
func Teardown() error {
	sessionMu.Lock()
	d := session
	session = nil
	sessionMu.Unlock()

	if d == nil {
		return nil
	}
	return d.Stop()
}
