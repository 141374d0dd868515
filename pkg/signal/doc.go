// Package signal implements live value sources over remote channels.
//
// # Signal Hierarchy
//
// There is no deep type layering; the package exposes a small set of
// concrete signal types plus capability interfaces:
//
//	Signal         in-process value holder with subscriber fan-out
//	RemoteSignal   mirrors one or two remote channels (readback and an
//	               optional distinct write target)
//	RemoteSignalRO read-only remote signal
//	DerivedSignal  value-transform wrapper over any other signal
//
// Consumers program against the capability interfaces (Readable,
// Writable, Subscribable, ConnectionAware); each concrete type
// implements exactly the subset it supports.
//
// # Readiness
//
// A remote signal is ready only when every underlying channel is
// simultaneously connected, has valid access rights, and has delivered
// its first metadata. Readiness drops immediately when any single
// channel disconnects, and WaitForConnection blocks on a reusable gate
// that reopens on every not-ready edge.
//
// # Concurrency
//
// All state mutation happens under the signal's lock; subscriber
// callbacks always run after the lock is released, so a subscriber may
// call back into the signal without deadlocking. Timed-out waits simply
// return: the underlying operation may still complete later and will
// still update cached state and resolve its future.
package signal
