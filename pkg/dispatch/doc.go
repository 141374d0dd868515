// Package dispatch serializes delivery of remote-channel callbacks.
//
// Remote client libraries deliver callbacks from internal threads whose
// communication context must not be crossed: a callback that arrives on
// a given context has to be processed by the one worker that owns that
// context, or the client's internal state can be corrupted. The
// Dispatcher therefore runs a small fixed pool of long-lived workers,
// one per callback category, each bound once at startup to the
// provider's context.
//
// Categories separate value monitors, metadata/access-rights updates,
// put completions and best-effort utility tasks so that a slow consumer
// in one category cannot starve the others. Within a category, tasks
// run strictly in submission order.
//
// Workers never block on application-level waits; they only block on
// their own queue. Application callbacks that panic are recovered and
// logged so one failing subscriber cannot halt dispatch or kill a
// worker.
package dispatch
