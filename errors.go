package gochan

import "errors"

// ErrChannelClosed reports that a domain-stack component's run loop ended
// because an upstream Channel it was reading from closed. Channel[T].Send
// and Channel[T].Receive report closure through a bool return instead of
// this error (see Channel.Send); Mapper and Reducer, which otherwise have
// no way to distinguish "input closed" from "Stop was called", send this
// sentinel in that case (Mapper on its ClosedChan, Reducer on its
// unexported done channel). Reader has no
// upstream Channel to observe closing -- its ClosedChan instead carries
// the ReadFunc's own terminal error -- so it never sends this sentinel.
var ErrChannelClosed = errors.New("gochan: operation on closed channel")
