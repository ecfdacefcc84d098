package gochan

import (
	"errors"
	"log/slog"
	"net"
)

// ReadFunc is the type of the read method used by the Reader goroutine
// primitive. It mirrors the teacher's ReaderFunc[R], except the channel
// it feeds is a Channel[T] rather than a native chan.
type ReadFunc[R any] func() (msg R, err error)

// Message wraps a value read by Reader with its error and an optional
// source tag, exactly as the teacher's Message[T] does.
type Message[R any] struct {
	Value  R
	Error  error
	Source any
}

// ReaderOption configures a Reader at construction time.
type ReaderOption[R any] func(*Reader[R])

// WithOutputCapacity sets the capacity of the Reader's output Channel.
func WithOutputCapacity[R any](capacity int) ReaderOption[R] {
	return func(r *Reader[R]) { r.outCapacity = capacity }
}

// WithOnDone sets a callback run, on the Reader's own goroutine, once it
// has stopped and cleaned up.
func WithOnDone[R any](fn func(*Reader[R])) ReaderOption[R] {
	return func(r *Reader[R]) { r.OnDone = fn }
}

// WithReaderLogger attaches a logger for read-error diagnostics.
func WithReaderLogger[R any](l *slog.Logger) ReaderOption[R] {
	return func(r *Reader[R]) { r.logger = l }
}

// Reader is a goroutine wrapper that repeatedly calls Read and forwards
// each result, wrapped in a Message[R], onto an output Channel[Message[R]].
// A terminal read error (anything other than a net.Error timeout) stops the
// loop and is reported once on ClosedChan before both channels close.
type Reader[R any] struct {
	Read   ReadFunc[R]
	OnDone func(r *Reader[R])

	out         *Channel[Message[R]]
	closedChan  *Channel[error]
	stop        *Channel[struct{}]
	outCapacity int
	logger      *slog.Logger
}

// NewReader creates a Reader and starts its goroutine immediately, matching
// the teacher's "runners start on construction" convention.
func NewReader[R any](read ReadFunc[R], opts ...ReaderOption[R]) *Reader[R] {
	r := &Reader[R]{
		Read:       read,
		closedChan: New[error](1),
		stop:       New[struct{}](0),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.out = New[Message[R]](r.outCapacity)
	go r.run()
	return r
}

// OutputChan returns the Channel on which read results can be received.
func (r *Reader[R]) OutputChan() *Channel[Message[R]] { return r.out }

// ClosedChan returns the Channel on which the terminal read error (if any)
// is reported exactly once before it closes.
func (r *Reader[R]) ClosedChan() *Channel[error] { return r.closedChan }

// Stop signals the Reader to stop reading and returns without waiting; the
// loop cleans up on its own goroutine.
func (r *Reader[R]) Stop() error {
	r.stop.Close()
	return nil
}

// IsRunning reports false once the Reader's output channel is closed and
// drained.
func (r *Reader[R]) IsRunning() bool { return !r.out.IsClosed() }

func (r *Reader[R]) run() {
	defer r.cleanup()
	for {
		var stopped bool
		Select(
			CaseReceive(r.stop, nil, WithAction(func() { stopped = true })),
			CaseDefault(func() {}),
		)
		if stopped {
			return
		}

		msg, err := r.Read()
		timedOut := false
		if err != nil {
			if nerr, ok := err.(net.Error); ok {
				timedOut = nerr.Timeout()
			}
			r.debugf("read error", "error", err, "timedOut", timedOut, "netClosed", errors.Is(err, net.ErrClosed))
		}

		if !timedOut && !errors.Is(err, net.ErrClosed) {
			Select(
				CaseReceive(r.stop, nil, WithAction(func() { stopped = true })),
				CaseSend(r.out, Message[R]{Value: msg, Error: err}),
			)
			if stopped {
				return
			}
		}

		if err != nil && !timedOut {
			r.closedChan.TrySend(err)
			return
		}
	}
}

func (r *Reader[R]) cleanup() {
	if r.OnDone != nil {
		r.OnDone(r)
	}
	r.out.Close()
	r.closedChan.Close()
}

func (r *Reader[R]) debugf(msg string, args ...any) {
	if r.logger == nil {
		return
	}
	r.logger.Debug(msg, args...)
}
