package gochan

// This file adapts the domain-stack types to the Component, InputComponent,
// and OutputComponent interfaces so they can be composed inside a Block.

// InputChan implements InputComponent for Mapper.
func (m *Mapper[I, O]) InputChan() *Channel[I] { return m.input }

// Send implements InputComponent for Mapper by sending directly on its
// input channel.
func (m *Mapper[I, O]) Send(v I) bool { return m.input.Send(v) }

// OutputChan implements OutputComponent for Mapper.
func (m *Mapper[I, O]) OutputChan() *Channel[O] { return m.output }

// InputChan implements InputComponent for Reducer.
func (r *Reducer[T, C, U]) InputChan() *Channel[T] { return r.SendChan() }

// OutputChan implements OutputComponent for Reducer.
func (r *Reducer[T, C, U]) OutputChan() *Channel[U] { return r.RecvChan() }

// OutputChan implements OutputComponent for FanIn.
func (fi *FanIn[T]) OutputChan() *Channel[T] { return fi.RecvChan() }
