package gochan

import "log"

type fanInCmdKind int

const (
	fanInAdd fanInCmdKind = iota
	fanInRemove
	fanInStop
)

type fanInCmd[T any] struct {
	kind    fanInCmdKind
	channel *Channel[T]
}

// FanIn merges any number of Channel[T] sources into a single output
// Channel[T], using one CaseReceive per source in a Select loop -- the
// dynamically sized, heterogeneous-at-runtime case list Select is built to
// support. Sources may be added and removed while FanIn is running.
type FanIn[T any] struct {
	OnChannelRemoved func(fi *FanIn[T], source *Channel[T])

	inputs     []*Channel[T]
	out        *Channel[T]
	selfOwnOut bool
	cmd        *Channel[fanInCmd[T]]
	done       *Channel[error]
}

// NewFanIn creates a FanIn merging into out. If out is nil, FanIn creates
// and owns its own unbounded output channel. FanIn starts running
// immediately upon creation, matching the teacher's runner convention.
func NewFanIn[T any](out *Channel[T]) *FanIn[T] {
	selfOwn := false
	if out == nil {
		out = New[T](Unbounded)
		selfOwn = true
	}
	fi := &FanIn[T]{
		out:        out,
		selfOwnOut: selfOwn,
		cmd:        New[fanInCmd[T]](4),
		done:       New[error](1),
	}
	go fi.run()
	return fi
}

// RecvChan returns the channel on which merged output can be received.
func (fi *FanIn[T]) RecvChan() *Channel[T] { return fi.out }

// Add registers one or more source channels to be merged into the output.
func (fi *FanIn[T]) Add(sources ...*Channel[T]) {
	for _, src := range sources {
		if src == nil {
			panic("gochan: cannot add nil channel to FanIn")
		}
		fi.cmd.Send(fanInCmd[T]{kind: fanInAdd, channel: src})
	}
}

// Remove stops merging the given source channel into the output.
func (fi *FanIn[T]) Remove(source *Channel[T]) {
	fi.cmd.Send(fanInCmd[T]{kind: fanInRemove, channel: source})
}

// Count returns the number of source channels currently being merged.
func (fi *FanIn[T]) Count() int { return len(fi.inputs) }

// ClosedChan reports, exactly once, when FanIn's loop has ended.
func (fi *FanIn[T]) ClosedChan() *Channel[error] { return fi.done }

// Stop ends the FanIn loop and closes the owned output channel, if any.
func (fi *FanIn[T]) Stop() error {
	fi.cmd.Send(fanInCmd[T]{kind: fanInStop})
	return nil
}

// IsRunning reports whether FanIn's loop is still active.
func (fi *FanIn[T]) IsRunning() bool { return !fi.done.IsClosed() }

func (fi *FanIn[T]) run() {
	defer fi.cleanup()
	for {
		var cmd fanInCmd[T]
		gotCmd := false
		cases := make([]SelectCase, 0, len(fi.inputs)+1)
		cases = append(cases, CaseReceive(fi.cmd, &cmd, WithAction(func() { gotCmd = true })))

		values := make([]T, len(fi.inputs))
		closedFlags := make([]bool, len(fi.inputs))
		winnerIdx := -1
		for i, src := range fi.inputs {
			idx := i
			cases = append(cases, CaseReceive(src, &values[idx], WithClosed(&closedFlags[idx]), WithAction(func() { winnerIdx = idx })))
		}

		Select(cases...)

		if gotCmd {
			switch cmd.kind {
			case fanInStop:
				return
			case fanInAdd:
				fi.inputs = append(fi.inputs, cmd.channel)
			case fanInRemove:
				fi.removeSource(cmd.channel)
			}
			continue
		}

		if winnerIdx < 0 {
			continue
		}
		src := fi.inputs[winnerIdx]
		if closedFlags[winnerIdx] {
			fi.removeSource(src)
			continue
		}
		fi.out.Send(values[winnerIdx])
	}
}

func (fi *FanIn[T]) removeSource(src *Channel[T]) {
	for i, in := range fi.inputs {
		if in == src {
			log.Printf("gochan.FanIn: removing source channel %v", src)
			fi.inputs[i] = fi.inputs[len(fi.inputs)-1]
			fi.inputs = fi.inputs[:len(fi.inputs)-1]
			if fi.OnChannelRemoved != nil {
				fi.OnChannelRemoved(fi, src)
			}
			return
		}
	}
}

func (fi *FanIn[T]) cleanup() {
	if fi.selfOwnOut {
		fi.out.Close()
	}
	fi.done.Close()
}
