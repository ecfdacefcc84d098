package gochan

import (
	"log/slog"
	"sync"
)

// Unbounded is the capacity value meaning "no fixed capacity": the buffer
// grows as needed, so Send never blocks (on a closed channel it returns
// false at once), matching spec.md's "default effectively unbounded"
// capacity.
const Unbounded = -1

// recvNotifier is the one-shot callback a Channel invokes to hand a value
// to a waiting receiver, directly (rendezvous) or via Close (closed=true,
// zero value). It must never be invoked again once it has returned true.
type recvNotifier[T any] func(v T, closed bool) (accepted bool)

// sendNotifier is the one-shot callback a Channel invokes to pull a value
// from a blocked sender, directly (rendezvous) or via Close (closed=true,
// in which case the returned value is ignored). It must never be invoked
// again once it has returned produced=true.
type sendNotifier[T any] func(closed bool) (v T, produced bool)

// Option configures a Channel at construction time.
type Option[T any] func(*Channel[T])

// WithLogger attaches a structured logger used for debug-level tracing of
// rollbacks (a receive notifier that rejected a value it was handed). Nil
// (the default) means no logging.
func WithLogger[T any](l *slog.Logger) Option[T] {
	return func(c *Channel[T]) { c.logger = l }
}

// WithName labels the channel for log lines and DebugInfo.
func WithName[T any](name string) Option[T] {
	return func(c *Channel[T]) { c.name = name }
}

// Channel is a bounded FIFO conduit of values of type T, implemented over
// its own mutex and sync.Cond rather than Go's native chan. Producers call
// Send, consumers call Receive, and a coordinating party calls Close to
// signal end-of-stream. Channel is safe for concurrent use by any number
// of goroutines, and must always be used through a pointer.
//
// A receive takes the value of a blocked sender before any buffered value,
// so once senders block on a full buffer, values are not received in the
// order they were sent.
type Channel[T any] struct {
	mu   sync.Mutex
	cond *sync.Cond

	buf      *ringBuffer[T]
	capacity int // Unbounded, or C >= 0

	closed bool

	recvWait *waitList[recvNotifier[T]]
	sendWait *waitList[sendNotifier[T]]

	idSeq uint64

	name   string
	logger *slog.Logger
}

// New creates a Channel with the given capacity. A capacity of 0 makes
// every Send rendezvous directly with a receiver or block; a negative
// capacity (Unbounded) means Send never blocks on a full buffer.
func New[T any](capacity int, opts ...Option[T]) *Channel[T] {
	initial := capacity
	if initial <= 0 {
		initial = 4
	}
	c := &Channel[T]{
		buf:      newRingBuffer[T](initial),
		capacity: capacity,
		recvWait: newWaitList[recvNotifier[T]](),
		sendWait: newWaitList[sendNotifier[T]](),
	}
	c.cond = sync.NewCond(&c.mu)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// hasRoomLocked reports whether the buffer has room for one more value.
// spec.md's literal room test is `size < capacity + receiver_count`, a
// relaxation letting a sender proceed while a receiver is already
// committed to taking the next slot. Under this implementation's single
// per-channel mutex, every call site either first drains the
// receive-wait-list to exhaustion in the same critical section or follows
// a buffer pop, which by invariant 1 means that list is already empty, so
// no in-flight "reserved" receiver can be mid-handoff
// when this is evaluated -- the relaxation term is always zero here and is
// omitted (see DESIGN.md).
func (c *Channel[T]) hasRoomLocked() bool {
	return c.capacity < 0 || c.buf.Len() < c.capacity
}

func (c *Channel[T]) allocID() uint64 {
	c.idSeq++
	return c.idSeq
}

// requeueResolvedSendLocked re-registers a value already pulled from a
// blocked sender's notifier at the head of the send-wait-list, as a
// synthetic sender that has already produced its value. Used when a
// receive resolves a sender-handoff synchronously but the receiving case
// then loses (another case of the same select already won): the sender
// already departed believing its Send succeeded, so the value cannot be
// handed back to it, and cannot be pushed into the buffer either -- the
// buffer was necessarily already full (invariant 2) at the moment this
// sender was popped, so pushing would overflow capacity on a zero- or
// full-capacity channel. Requeuing it as a pre-resolved sender keeps it
// first in line for the very next receive without touching the buffer.
func (c *Channel[T]) requeueResolvedSendLocked(v T) {
	taken := false
	id := c.allocID()
	c.sendWait.PushFront(id, func(closed bool) (T, bool) {
		if taken {
			var zero T
			return zero, false
		}
		taken = true
		return v, true
	})
}

func (c *Channel[T]) debugf(format string, args ...any) {
	if c.logger == nil {
		return
	}
	if c.name != "" {
		c.logger.Debug(c.name+": "+format, args...)
	} else {
		c.logger.Debug(format, args...)
	}
}

// recvOrNotify is the non-blocking half of Receive, shared with Select. It
// either resolves synchronously (returns id 0, having already invoked
// notify exactly once) or registers notify on the receive-wait-list and
// returns a nonzero id for later cancellation via unnotify.
func (c *Channel[T]) recvOrNotify(notify recvNotifier[T]) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recvOrNotifyLocked(notify)
}

func (c *Channel[T]) recvOrNotifyLocked(notify recvNotifier[T]) uint64 {
	// Waiting senders take priority over the buffer (direct rendezvous).
	for {
		_, senderNotify, ok := c.sendWait.PopFront()
		if !ok {
			break
		}
		v, produced := senderNotify(false)
		if !produced {
			continue
		}
		if notify(v, false) {
			c.cond.Broadcast()
			return 0
		}
		// Rollback: the sender already committed this value, but our own
		// case lost a concurrent race (another case of the same select
		// already won). The sender cannot be un-popped and the buffer was
		// necessarily full when this sender was taken (invariant 2), so
		// the value is requeued as an already-resolved sender rather than
		// pushed into the buffer.
		c.debugf("rollback after sender handoff rejected")
		c.requeueResolvedSendLocked(v)
		c.cond.Broadcast()
		return 0
	}

	if v, ok := c.buf.PopFront(); ok {
		if notify(v, false) {
			c.fillFromSendWaitLocked()
			c.cond.Broadcast()
			return 0
		}
		c.debugf("rollback after buffer pop rejected")
		c.buf.PushFront(v)
		return 0
	}

	if c.closed {
		var zero T
		notify(zero, true)
		return 0
	}

	id := c.allocID()
	c.recvWait.PushBack(id, notify)
	return id
}

// fillFromSendWaitLocked offers newly freed buffer room to any blocked
// senders, restoring invariant 2 after a buffer pop.
func (c *Channel[T]) fillFromSendWaitLocked() {
	for c.hasRoomLocked() {
		_, notify, ok := c.sendWait.PopFront()
		if !ok {
			return
		}
		v, produced := notify(false)
		if produced {
			c.buf.PushBack(v)
		}
	}
}

// sendOrNotify is the non-blocking half of Send, shared with Select.
func (c *Channel[T]) sendOrNotify(v T, notify sendNotifier[T]) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendOrNotifyLocked(v, notify)
}

func (c *Channel[T]) sendOrNotifyLocked(v T, notify sendNotifier[T]) uint64 {
	if c.closed {
		notify(true)
		return 0
	}

	for {
		_, recvNotify, ok := c.recvWait.PopFront()
		if !ok {
			break
		}
		if recvNotify(v, false) {
			notify(false)
			c.cond.Broadcast()
			return 0
		}
		// That receiver already completed elsewhere; nothing of ours was
		// handed over, so simply try the next one.
	}

	if c.hasRoomLocked() {
		c.buf.PushBack(v)
		notify(false)
		c.cond.Broadcast()
		return 0
	}

	id := c.allocID()
	c.sendWait.PushBack(id, notify)
	return id
}

// unnotify cancels a pending registration returned by recvOrNotify or
// sendOrNotify. It is idempotent: removing an id that already fired, or
// was already removed, is a harmless no-op that returns false.
func (c *Channel[T]) unnotify(id uint64) bool {
	if id == 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.recvWait.Remove(id) {
		return true
	}
	return c.sendWait.Remove(id)
}

// Send enqueues v, rendezvousing directly with a waiting receiver when
// possible, buffering when there is room, and blocking otherwise until a
// receiver arrives, room opens up, or the channel closes. It returns false
// without blocking if the channel is already closed -- this implementation
// deliberately does not panic on send-after-close.
func (c *Channel[T]) Send(v T) bool {
	c.mu.Lock()
	var done, success bool
	notify := func(closed bool) (T, bool) {
		if done {
			var zero T
			return zero, false
		}
		done = true
		success = !closed
		if !success {
			var zero T
			return zero, false
		}
		return v, true
	}
	id := c.sendOrNotifyLocked(v, notify)
	for id != 0 && !done {
		c.cond.Wait()
	}
	c.mu.Unlock()
	return success
}

// TrySend attempts to send without blocking, returning false if the
// channel is closed or has no room and no waiting receiver.
func (c *Channel[T]) TrySend(v T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	for {
		_, recvNotify, ok := c.recvWait.PopFront()
		if !ok {
			break
		}
		if recvNotify(v, false) {
			c.cond.Broadcast()
			return true
		}
	}
	if c.hasRoomLocked() {
		c.buf.PushBack(v)
		c.cond.Broadcast()
		return true
	}
	return false
}

// Receive dequeues the next value, rendezvousing directly with a blocked
// sender when possible, draining the buffer otherwise, and blocking until
// one of those becomes possible or the channel closes. ok is false only
// once the channel is closed and the buffer has drained, in which case the
// returned value is T's zero value.
func (c *Channel[T]) Receive() (T, bool) {
	c.mu.Lock()
	var (
		result T
		ok     bool
		done   bool
	)
	notify := func(v T, closed bool) bool {
		if done {
			return false
		}
		done = true
		if closed {
			var zero T
			result = zero
			ok = false
		} else {
			result = v
			ok = true
		}
		return true
	}
	id := c.recvOrNotifyLocked(notify)
	for id != 0 && !done {
		c.cond.Wait()
	}
	c.mu.Unlock()
	return result, ok
}

// TryReceive attempts to receive without blocking. ok is false if the
// channel is empty (and open), or closed and drained.
func (c *Channel[T]) TryReceive() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		_, sendNotify, ok := c.sendWait.PopFront()
		if !ok {
			break
		}
		v, produced := sendNotify(false)
		if produced {
			return v, true
		}
	}
	if v, ok := c.buf.PopFront(); ok {
		c.fillFromSendWaitLocked()
		c.cond.Broadcast()
		return v, true
	}
	var zero T
	return zero, false
}

// Close is idempotent. On the first call it flips closed, drains both wait
// lists by invoking every pending notifier with closed=true, and wakes
// every goroutine blocked in Send, Receive, or Select on this channel.
// A value a sender has already handed over but no receiver has taken yet
// is moved into the buffer. Further Sends return false immediately;
// Receive continues to drain any buffered values in FIFO order, then also
// returns false.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for {
		_, notify, ok := c.recvWait.PopFront()
		if !ok {
			break
		}
		var zero T
		notify(zero, true)
	}
	for {
		_, notify, ok := c.sendWait.PopFront()
		if !ok {
			break
		}
		if v, produced := notify(true); produced {
			c.buf.PushBack(v)
		}
	}
	c.cond.Broadcast()
}

// IsClosed reports whether the channel has been closed and fully drained;
// per spec.md it is true only once both conditions hold, so a closed
// channel still being drained reports false.
func (c *Channel[T]) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed && c.buf.Len() == 0
}

// Len returns the number of values currently buffered.
func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Len()
}

// Cap returns the channel's nominal capacity, or Unbounded.
func (c *Channel[T]) Cap() int {
	return c.capacity
}

// DebugInfo returns a snapshot useful for diagnostics and tests.
func (c *Channel[T]) DebugInfo() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return map[string]any{
		"name":        c.name,
		"len":         c.buf.Len(),
		"capacity":    c.capacity,
		"closed":      c.closed,
		"recvWaiters": c.recvWait.Len(),
		"sendWaiters": c.sendWait.Len(),
	}
}
