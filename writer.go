package gochan

import "log/slog"

// WriteFunc is the type of the write callback used by the Writer goroutine
// primitive, mirroring the teacher's writer callback signature.
type WriteFunc[W any] func(val W) error

// WriterOption configures a Writer at construction time.
type WriterOption[W any] func(*Writer[W])

// WithInputCapacity sets the capacity of the Writer's input Channel.
func WithInputCapacity[W any](capacity int) WriterOption[W] {
	return func(w *Writer[W]) { w.inCapacity = capacity }
}

// WithWriterOnDone sets a callback run, on the Writer's own goroutine, once
// it has stopped and cleaned up.
func WithWriterOnDone[W any](fn func(*Writer[W])) WriterOption[W] {
	return func(w *Writer[W]) { w.OnDone = fn }
}

// WithWriterLogger attaches a logger for write-error diagnostics.
func WithWriterLogger[W any](l *slog.Logger) WriterOption[W] {
	return func(w *Writer[W]) { w.logger = l }
}

// Writer is a goroutine wrapper that serializes writes: it repeatedly
// receives values from its own input Channel[W] and calls Write with each,
// in order, until Stop is called or the input channel closes. A terminal
// write error stops the loop and is reported once on ClosedChan.
type Writer[W any] struct {
	Write  WriteFunc[W]
	OnDone func(w *Writer[W])

	in         *Channel[W]
	closedChan *Channel[error]
	stop       *Channel[struct{}]
	inCapacity int
	logger     *slog.Logger
}

// NewWriter creates a Writer and starts its goroutine immediately, matching
// the teacher's "runners start on construction" convention.
func NewWriter[W any](write WriteFunc[W], opts ...WriterOption[W]) *Writer[W] {
	w := &Writer[W]{
		Write:      write,
		closedChan: New[error](1),
		stop:       New[struct{}](0),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.in = New[W](w.inCapacity)
	go w.run()
	return w
}

// SendChan returns the Channel values can be sent to for serialized writing.
func (w *Writer[W]) SendChan() *Channel[W] { return w.in }

// ClosedChan returns the Channel on which a terminal write error (if any)
// is reported exactly once before it closes.
func (w *Writer[W]) ClosedChan() *Channel[error] { return w.closedChan }

// Stop signals the Writer to stop accepting writes and returns without
// waiting; the loop cleans up on its own goroutine.
func (w *Writer[W]) Stop() error {
	w.stop.Close()
	return nil
}

// IsRunning reports false once the Writer's input channel is closed and
// drained.
func (w *Writer[W]) IsRunning() bool { return !w.in.IsClosed() }

func (w *Writer[W]) run() {
	defer w.cleanup()
	for {
		var (
			value    W
			gotValue bool
			closed   bool
			stopped  bool
		)
		Select(
			CaseReceive(w.stop, nil, WithAction(func() { stopped = true })),
			CaseReceive(w.in, &value, WithClosed(&closed), WithAction(func() { gotValue = true })),
		)
		if stopped {
			return
		}
		if closed {
			return
		}
		if !gotValue {
			continue
		}
		if err := w.Write(value); err != nil {
			w.debugf("write error", "error", err)
			w.closedChan.TrySend(err)
			return
		}
	}
}

func (w *Writer[W]) cleanup() {
	if w.OnDone != nil {
		w.OnDone(w)
	}
	w.in.Close()
	w.closedChan.Close()
}

func (w *Writer[W]) debugf(msg string, args ...any) {
	if w.logger == nil {
		return
	}
	w.logger.Debug(msg, args...)
}
