package gochan

// MapFunc transforms a value from a Mapper's input type to its output type.
// skip suppresses the send for this value; stop ends the Mapper's loop
// after this value has been handled, exactly as the teacher's MapFunc does.
type MapFunc[I, O any] func(in I) (out O, skip bool, stop bool)

func idMapFunc[T any](in T) (T, bool, bool) { return in, false, false }

// Mapper connects an input Channel[I] to an output Channel[O] through
// MapFunc, running on its own goroutine until the input closes, MapFunc
// asks to stop, or Stop is called. Mapper does not own either channel and
// never closes them.
type Mapper[I, O any] struct {
	MapFunc MapFunc[I, O]
	OnDone  func(m *Mapper[I, O])

	input  *Channel[I]
	output *Channel[O]
	stop   *Channel[struct{}]
	done   *Channel[error]
}

// NewMapper creates and starts a Mapper between input and output.
func NewMapper[I, O any](input *Channel[I], output *Channel[O], mapFn MapFunc[I, O]) *Mapper[I, O] {
	m := &Mapper[I, O]{
		MapFunc: mapFn,
		input:   input,
		output:  output,
		stop:    New[struct{}](0),
		done:    New[error](1),
	}
	go m.run()
	return m
}

// NewPipe creates a Mapper with the identity transform, forwarding every
// value unchanged from input to output.
func NewPipe[T any](input, output *Channel[T]) *Mapper[T, T] {
	return NewMapper(input, output, idMapFunc[T])
}

// ClosedChan reports, exactly once, when the Mapper's loop has ended.
func (m *Mapper[I, O]) ClosedChan() *Channel[error] { return m.done }

// Stop ends the Mapper's loop without waiting for the input to close.
func (m *Mapper[I, O]) Stop() error {
	m.stop.Close()
	return nil
}

// IsRunning reports whether the Mapper's loop is still active.
func (m *Mapper[I, O]) IsRunning() bool { return !m.done.IsClosed() }

func (m *Mapper[I, O]) run() {
	defer m.cleanup()
	for {
		var (
			value    I
			gotValue bool
			closed   bool
			stopped  bool
		)
		Select(
			CaseReceive(m.stop, nil, WithAction(func() { stopped = true })),
			CaseReceive(m.input, &value, WithClosed(&closed), WithAction(func() { gotValue = true })),
		)
		if stopped {
			return
		}
		if closed {
			m.done.TrySend(ErrChannelClosed)
			return
		}
		if !gotValue {
			continue
		}
		outVal, skip, stop := m.MapFunc(value)
		if !skip {
			m.output.Send(outVal)
		}
		if stop {
			return
		}
	}
}

func (m *Mapper[I, O]) cleanup() {
	if m.OnDone != nil {
		m.OnDone(m)
	}
	m.done.Close()
}
