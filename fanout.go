package gochan

// FilterFunc decides whether a value should be delivered to a particular
// FanOut output; a nil FilterFunc delivers everything.
type FilterFunc[T any] func(v T) bool

type fanOutputCmdKind int

const (
	fanOutAddOutput fanOutputCmdKind = iota
	fanOutRemoveOutput
	fanOutStop
)

type fanOutOutput[T any] struct {
	ch     *Channel[T]
	filter FilterFunc[T]
}

type fanOutCmd[T any] struct {
	kind   fanOutputCmdKind
	output *fanOutOutput[T]
	target *Channel[T]
}

// FanOut distributes each value received on its input Channel[T] to every
// registered output Channel[T] whose FilterFunc (if any) accepts it.
type FanOut[T any] struct {
	in      *Channel[T]
	cmd     *Channel[fanOutCmd[T]]
	outputs []*fanOutOutput[T]
	done    *Channel[error]
}

// NewFanOut creates a FanOut reading from in. If in is nil, FanOut creates
// and owns its own unbounded input channel. FanOut starts running
// immediately upon creation.
func NewFanOut[T any](in *Channel[T]) *FanOut[T] {
	if in == nil {
		in = New[T](Unbounded)
	}
	fo := &FanOut[T]{
		in:   in,
		cmd:  New[fanOutCmd[T]](4),
		done: New[error](1),
	}
	go fo.run()
	return fo
}

// InputChan returns the channel FanOut reads values to distribute from.
func (fo *FanOut[T]) InputChan() *Channel[T] { return fo.in }

// Send is a convenience wrapper for sending to InputChan.
func (fo *FanOut[T]) Send(v T) bool { return fo.in.Send(v) }

// New registers and returns a new output channel, delivering values that
// pass filter (nil accepts everything).
func (fo *FanOut[T]) New(filter FilterFunc[T]) *Channel[T] {
	out := &fanOutOutput[T]{ch: New[T](Unbounded), filter: filter}
	fo.cmd.Send(fanOutCmd[T]{kind: fanOutAddOutput, output: out})
	return out.ch
}

// Remove deregisters and closes a previously registered output channel.
func (fo *FanOut[T]) Remove(target *Channel[T]) {
	fo.cmd.Send(fanOutCmd[T]{kind: fanOutRemoveOutput, target: target})
}

// ClosedChan reports, exactly once, when FanOut's loop has ended.
func (fo *FanOut[T]) ClosedChan() *Channel[error] { return fo.done }

// Stop ends the FanOut loop and closes every registered output channel.
func (fo *FanOut[T]) Stop() error {
	fo.cmd.Send(fanOutCmd[T]{kind: fanOutStop})
	return nil
}

// IsRunning reports whether FanOut's loop is still active.
func (fo *FanOut[T]) IsRunning() bool { return !fo.done.IsClosed() }

func (fo *FanOut[T]) run() {
	defer fo.cleanup()
	for {
		var (
			cmd    fanOutCmd[T]
			value  T
			gotCmd bool
			gotVal bool
			closed bool
		)
		Select(
			CaseReceive(fo.cmd, &cmd, WithAction(func() { gotCmd = true })),
			CaseReceive(fo.in, &value, WithClosed(&closed), WithAction(func() { gotVal = true })),
		)

		if gotCmd {
			switch cmd.kind {
			case fanOutStop:
				return
			case fanOutAddOutput:
				fo.outputs = append(fo.outputs, cmd.output)
			case fanOutRemoveOutput:
				fo.removeOutput(cmd.target)
			}
			continue
		}

		if !gotVal || closed {
			return
		}
		for _, out := range fo.outputs {
			if out.filter == nil || out.filter(value) {
				out.ch.Send(value)
			}
		}
	}
}

func (fo *FanOut[T]) removeOutput(target *Channel[T]) {
	for i, out := range fo.outputs {
		if out.ch == target {
			out.ch.Close()
			fo.outputs[i] = fo.outputs[len(fo.outputs)-1]
			fo.outputs = fo.outputs[:len(fo.outputs)-1]
			return
		}
	}
}

func (fo *FanOut[T]) cleanup() {
	for _, out := range fo.outputs {
		out.ch.Close()
	}
	fo.done.Close()
}
