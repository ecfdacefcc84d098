// Package gochan implements a typed, closable, multi-producer/multi-consumer
// message channel and a multi-way select operator, built from first
// principles on top of a mutex and sync.Cond rather than Go's native chan.
//
// The two core primitives are:
//
//   - Channel[T]: a bounded FIFO conduit. Producers Send, consumers Receive,
//     and either side may suspend on the channel's own wait lists when no
//     rendezvous is immediately possible. Close is idempotent and monotonic;
//     a closed channel drains its buffer before Receive starts returning
//     false.
//   - Select: a variadic, one-shot coordinator over a heterogeneous list of
//     CaseReceive/CaseSend/CaseDefault cases. It registers a notifier on
//     every participating channel, admits exactly one winner under
//     concurrent arrivals, and runs that case's action synchronously before
//     returning.
//
// On top of these, the package also provides a small set of composition
// utilities that dogfood Channel[T] and Select instead of native channels:
//
//   - Reader: a goroutine wrapper that repeatedly calls a read function and
//     forwards results onto a Channel[T], signalling terminal errors on a
//     ClosedChan.
//   - Writer: a goroutine wrapper that serializes writes from its own input
//     Channel[W] through a write function, signalling terminal errors on a
//     ClosedChan.
//   - Mapper / Pipe: connect an input Channel[I] to an output Channel[O]
//     through an optional transform.
//   - FanIn: merge any number of Channel[T] sources into one Channel[T]
//     using Select over one receive case per source.
//   - FanOut: distribute each input value to every registered output
//     Channel[T], optionally filtered.
//   - Reducer: collect values from a Channel[T] into a running collection
//     and reduce it, either manually or on a time window, the window being
//     a Select case fed by a ticker goroutine.
//   - Block/Component: lifecycle container for composing the above.
//
// All concurrency primitives are designed to be composable and provide
// fine-grained control over goroutine lifecycles, resource management, and
// error monitoring through completion signaling channels.
package gochan
