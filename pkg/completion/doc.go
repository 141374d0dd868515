// Package completion provides one-shot futures for in-flight operations.
//
// A Future tracks a single asynchronous operation (a remote write, a
// set-and-settle loop) from submission to completion. It is resolved
// exactly once, from whichever goroutine learns the outcome first:
// the caller, a dispatcher worker delivering a put-completion callback,
// or a background settle task.
//
// # Waiting
//
// Callers may block on a Future with Wait. Timing out in Wait returns
// control to the caller but does NOT cancel the underlying operation:
// the operation may still resolve the Future later, and any callbacks
// registered before or after the timeout still fire. Callers must
// tolerate late resolution after giving up on a wait.
//
// # Callbacks
//
// Completion callbacks fire exactly once. A callback registered on an
// already-resolved Future is invoked synchronously at registration time;
// otherwise it runs on the goroutine that calls Resolve.
package completion
