package gochan

import (
	"log"
	"time"
)

// CollectFunc adds input to collection, returning the updated collection
// and whether a flush should be triggered immediately.
type CollectFunc[T, C any] func(input T, collection C) (C, bool)

// ReduceFunc reduces a collection to its final output value.
type ReduceFunc[C, U any] func(collection C) U

type reducerCmdKind int

const (
	reducerStop reducerCmdKind = iota
	reducerFlush
)

// Reducer collects values of type T from an input Channel into a running
// collection of type C and reduces it to type U, either manually via Flush
// or automatically every FlushPeriod. The windowed flush is a Select over
// the data-receive case, a tick-receive case fed by a private ticker
// goroutine, and a stop case -- there is no native timeout-select here by
// design, only Select itself.
type Reducer[T, C, U any] struct {
	FlushPeriod time.Duration
	CollectFunc CollectFunc[T, C]
	ReduceFunc  ReduceFunc[C, U]

	pendingEvents C
	in            *Channel[T]
	selfOwnIn     bool
	out           *Channel[U]
	selfOwnOut    bool
	cmd           *Channel[reducerCmdKind]
	tick          *Channel[struct{}]
	tickStop      chan struct{}
	done          *Channel[error]
}

// ReducerOption configures a Reducer at construction time.
type ReducerOption[T, C, U any] func(*Reducer[T, C, U])

// WithFlushPeriod sets the flush period for the reducer.
func WithFlushPeriod[T, C, U any](period time.Duration) ReducerOption[T, C, U] {
	return func(r *Reducer[T, C, U]) { r.FlushPeriod = period }
}

// WithInputChan sets the channel the reducer reads from.
func WithInputChan[T, C, U any](ch *Channel[T]) ReducerOption[T, C, U] {
	return func(r *Reducer[T, C, U]) {
		r.in = ch
		r.selfOwnIn = false
	}
}

// WithOutputChan sets the channel the reducer writes reduced values to.
func WithOutputChan[T, C, U any](ch *Channel[U]) ReducerOption[T, C, U] {
	return func(r *Reducer[T, C, U]) {
		r.out = ch
		r.selfOwnOut = false
	}
}

// NewReducer creates and starts a Reducer. Input and output channels are
// created and owned by the Reducer unless overridden via WithInputChan /
// WithOutputChan.
func NewReducer[T, C, U any](collect CollectFunc[T, C], reduce ReduceFunc[C, U], opts ...ReducerOption[T, C, U]) *Reducer[T, C, U] {
	r := &Reducer[T, C, U]{
		FlushPeriod: 100 * time.Millisecond,
		CollectFunc: collect,
		ReduceFunc:  reduce,
		selfOwnIn:   true,
		selfOwnOut:  true,
		cmd:         New[reducerCmdKind](1),
		tick:        New[struct{}](1),
		tickStop:    make(chan struct{}),
		done:        New[error](1),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.in == nil {
		r.in = New[T](Unbounded)
	}
	if r.out == nil {
		r.out = New[U](Unbounded)
	}
	go r.tickLoop()
	go r.run()
	return r
}

// NewIDReducer creates a Reducer that simply collects values into a slice.
func NewIDReducer[T any](opts ...ReducerOption[T, []T, []T]) *Reducer[T, []T, []T] {
	collect := func(in T, coll []T) ([]T, bool) { return append(coll, in), false }
	reduce := func(coll []T) []T { return coll }
	return NewReducer(collect, reduce, opts...)
}

// RecvChan returns the channel reduced values can be received from.
func (r *Reducer[T, C, U]) RecvChan() *Channel[U] { return r.out }

// SendChan returns the channel values can be sent to for (eventual)
// reduction.
func (r *Reducer[T, C, U]) SendChan() *Channel[T] { return r.in }

// Send sends a value to this reducer for eventual reduction.
func (r *Reducer[T, C, U]) Send(v T) bool { return r.in.Send(v) }

// Flush requests an immediate reduction of whatever is currently pending,
// including values already waiting on the input channel.
func (r *Reducer[T, C, U]) Flush() { r.cmd.Send(reducerFlush) }

// Stop ends the reducer's loop and closes any channels it owns.
func (r *Reducer[T, C, U]) Stop() error {
	r.cmd.Send(reducerStop)
	close(r.tickStop)
	return nil
}

// IsRunning reports whether the reducer's loop is still active.
func (r *Reducer[T, C, U]) IsRunning() bool { return !r.done.IsClosed() }

// tickLoop feeds r.tick once per FlushPeriod until tickStop closes. It is
// the one place in the domain stack that still uses a native chan directly
// -- bridging a *time.Ticker's own native channel into r.tick, exactly as
// the teacher's reducer.go reads ticker.C directly inside its run loop.
func (r *Reducer[T, C, U]) tickLoop() {
	ticker := time.NewTicker(r.FlushPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.tick.TrySend(struct{}{})
		case <-r.tickStop:
			return
		}
	}
}

func (r *Reducer[T, C, U]) run() {
	defer r.cleanup()
	for {
		var (
			cmd      reducerCmdKind
			gotCmd   bool
			value    T
			gotValue bool
			closed   bool
		)
		Select(
			CaseReceive(r.cmd, &cmd, WithAction(func() { gotCmd = true })),
			CaseReceive(r.tick, nil, WithAction(func() { r.doFlush() })),
			CaseReceive(r.in, &value, WithClosed(&closed), WithAction(func() { gotValue = true })),
		)

		if gotCmd {
			switch cmd {
			case reducerStop:
				return
			case reducerFlush:
				for {
					v, ok := r.in.TryReceive()
					if !ok {
						break
					}
					var shouldFlush bool
					r.pendingEvents, shouldFlush = r.CollectFunc(v, r.pendingEvents)
					if shouldFlush {
						r.doFlush()
					}
				}
				r.doFlush()
			}
			continue
		}

		if gotValue {
			if closed {
				r.done.TrySend(ErrChannelClosed)
				return
			}
			var shouldFlush bool
			r.pendingEvents, shouldFlush = r.CollectFunc(value, r.pendingEvents)
			if shouldFlush {
				r.doFlush()
			}
		}
	}
}

func (r *Reducer[T, C, U]) doFlush() {
	log.Printf("gochan.Reducer: flushing pending events")
	reduced := r.ReduceFunc(r.pendingEvents)
	var zero C
	r.pendingEvents = zero
	r.out.Send(reduced)
}

func (r *Reducer[T, C, U]) cleanup() {
	if r.selfOwnIn {
		r.in.Close()
	}
	if r.selfOwnOut {
		r.out.Close()
	}
	r.done.Close()
}
