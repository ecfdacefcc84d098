package gochan

import "sync"

// session is the transient state shared by every case registered in a
// single Select call: a mutex, a condition variable, whether a winner has
// been decided yet, and what to run once it has. Every notifier a case
// registers on its channel holds a non-owning reference to exactly one
// session and must never be invoked after that session's Select call
// returns -- enforced here by always deregistering every pending case
// (via SelectCase.cancel) before Select returns, win or abandon.
type session struct {
	mu        sync.Mutex
	cond      *sync.Cond
	completed bool
	won       bool
	winner    func()
}

func newSession() *session {
	s := &session{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// SelectCase is one participant in a Select call. Values are produced by
// CaseReceive, CaseSend, and CaseDefault -- a minimal interface rather
// than a tagged union or variadic-template-style encoding, per the
// package's design notes on heterogeneous case lists.
type SelectCase interface {
	// register attaches this case to session s and returns the wait-id if
	// it had to be registered on a channel's wait list (0 if it resolved,
	// won or lost, synchronously).
	register(s *session) uint64
	// cancel deregisters a pending id obtained from register.
	cancel(id uint64)
	isDefault() bool
}

// CaseOption configures an optional action and/or closed-flag output on a
// CaseReceive or CaseSend.
type CaseOption func(*caseOptions)

type caseOptions struct {
	action func()
	closed *bool
}

// WithAction attaches an action run synchronously, on the Select caller's
// goroutine, if and only if this case wins.
func WithAction(action func()) CaseOption {
	return func(o *caseOptions) { o.action = action }
}

// WithClosed captures, on a winning case, whether the channel was closed
// (for a receive: closed-and-drained; for a send: closed before delivery).
func WithClosed(out *bool) CaseOption {
	return func(o *caseOptions) { o.closed = out }
}

func newCaseOptions(opts []CaseOption) caseOptions {
	var o caseOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type receiveCase[T any] struct {
	ch   *Channel[T]
	out  *T
	opts caseOptions
}

// CaseReceive builds a receive case for Select: if it wins, the received
// value is written to out (if non-nil) before any WithAction action runs.
func CaseReceive[T any](ch *Channel[T], out *T, opts ...CaseOption) SelectCase {
	return &receiveCase[T]{ch: ch, out: out, opts: newCaseOptions(opts)}
}

func (rc *receiveCase[T]) isDefault() bool { return false }

func (rc *receiveCase[T]) register(s *session) uint64 {
	notify := func(v T, closed bool) bool {
		s.mu.Lock()
		if s.completed {
			s.mu.Unlock()
			return false
		}
		s.completed = true
		s.won = true
		if rc.out != nil {
			*rc.out = v
		}
		if rc.opts.closed != nil {
			*rc.opts.closed = closed
		}
		s.winner = rc.opts.action
		s.mu.Unlock()
		s.cond.Broadcast()
		return true
	}
	return rc.ch.recvOrNotify(notify)
}

func (rc *receiveCase[T]) cancel(id uint64) { rc.ch.unnotify(id) }

type sendCase[T any] struct {
	ch   *Channel[T]
	v    T
	opts caseOptions
}

// CaseSend builds a send case for Select: if it wins, v has been handed to
// the channel (directly to a receiver or into its buffer) before any
// WithAction action runs.
func CaseSend[T any](ch *Channel[T], v T, opts ...CaseOption) SelectCase {
	return &sendCase[T]{ch: ch, v: v, opts: newCaseOptions(opts)}
}

func (sc *sendCase[T]) isDefault() bool { return false }

func (sc *sendCase[T]) register(s *session) uint64 {
	notify := func(closed bool) (T, bool) {
		var zero T
		s.mu.Lock()
		if s.completed {
			s.mu.Unlock()
			return zero, false
		}
		s.completed = true
		s.won = true
		if sc.opts.closed != nil {
			*sc.opts.closed = closed
		}
		s.winner = sc.opts.action
		s.mu.Unlock()
		s.cond.Broadcast()
		if closed {
			return zero, false
		}
		return sc.v, true
	}
	return sc.ch.sendOrNotify(sc.v, notify)
}

func (sc *sendCase[T]) cancel(id uint64) { sc.ch.unnotify(id) }

type defaultCase struct {
	action func()
}

// CaseDefault builds the default case: it runs iff no other case is ready
// at registration time. If supplied at all, it must be the last case
// passed to Select.
func CaseDefault(action func()) SelectCase {
	return &defaultCase{action: action}
}

func (d *defaultCase) isDefault() bool          { return true }
func (d *defaultCase) register(*session) uint64 { return 0 }
func (d *defaultCase) cancel(uint64)             {}

// Select commits to exactly one of cases and runs that case's action (if
// any) synchronously on the calling goroutine before returning. It blocks
// until some case is ready unless a CaseDefault is present, in which case
// the default runs immediately when nothing else is. Select returns true
// iff a non-default case won.
//
// Every non-default case is registered in argument order on its channel's
// wait list, even after an earlier case has already won -- a losing case
// that would otherwise have synchronously consumed a value causes that
// channel to roll the value back rather than lose it. On return, every
// case that registered a pending wait-id has had it cancelled.
func Select(cases ...SelectCase) bool {
	if len(cases) == 0 {
		return false
	}

	var def *defaultCase
	active := make([]SelectCase, 0, len(cases))
	for i, c := range cases {
		if dc, ok := c.(*defaultCase); ok {
			if i != len(cases)-1 {
				panic("gochan: default case must be the last case passed to Select")
			}
			def = dc
			continue
		}
		active = append(active, c)
	}

	s := newSession()
	ids := make([]uint64, len(active))
	defer func() {
		for i, c := range active {
			if ids[i] != 0 {
				c.cancel(ids[i])
			}
		}
	}()

	for i, c := range active {
		ids[i] = c.register(s)
	}

	s.mu.Lock()
	if !s.completed && def != nil {
		s.mu.Unlock()
		if def.action != nil {
			def.action()
		}
		return false
	}
	for !s.completed {
		s.cond.Wait()
	}
	winner, won := s.winner, s.won
	s.mu.Unlock()

	if winner != nil {
		winner()
	}
	return won
}
