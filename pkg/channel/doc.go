// Package channel defines the boundary to the remote control system.
//
// A Channel is one addressable live data point, reachable through
// connect/get/put/subscribe primitives supplied by a Provider. The
// provider owns the underlying client library and its communication
// contexts; this package only specifies the contract that signals
// consume.
//
// All callbacks (connection, access rights, monitor values, put
// completion) are delivered from provider-owned goroutines. Consumers
// that need serialized, context-pinned delivery wrap their callbacks
// with the dispatch package before registering them.
//
// The sim subpackage provides an in-memory Provider used by tests,
// examples and the sigio-mon CLI.
package channel
