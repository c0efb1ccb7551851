// Package dispatch routes one inbound repository event to the plugins
// interested in its shape and runs them concurrently with isolated
// failure domains.
//
// Two pieces cooperate:
//
//   - Handlers is the fan-out engine: one entry point per handler
//     category. Each matching plugin runs in its own goroutine with a
//     fresh agent; a returned error or panic is captured into a failed
//     HandlerResult for that plugin alone. A barrier waits for every
//     invocation to settle before the per-plugin result map is assembled.
//   - Dispatcher is the demultiplexer: it validates the raw payload,
//     classifies the event name plus payload shape into exactly one
//     category (or none), delegates to the matching fan-out method, and
//     always emits the summary outputs on non-fatal completion.
//
// Error handling:
//   - Missing credential or invalid payload → invocation-level failure,
//     no handler runs
//   - Handler error or panic → failed HandlerResult for that plugin,
//     siblings unaffected
//   - Unrecognized event name or failed shape predicate → logged no-op,
//     reported as success
//
// There are no retries, no queueing, and no cancellation of slow
// handlers at this layer; a handler that needs a timeout owns it.
package dispatch
