package gochan

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriterSerializesWrites(t *testing.T) {
	results := make(chan int, 3)
	w := NewWriter(func(val int) error {
		results <- val
		return nil
	}, WithInputCapacity[int](4))
	defer w.Stop()

	w.SendChan().Send(1)
	w.SendChan().Send(2)
	w.SendChan().Send(3)

	withTimeout(t, func() {
		got := []int{<-results, <-results, <-results}
		assert.Equal(t, []int{1, 2, 3}, got)
	})
}

func TestWriterReportsTerminalErrorOnClosedChan(t *testing.T) {
	w := NewWriter(func(val int) error {
		return errWriteFailed
	}, WithInputCapacity[int](1))
	defer w.Stop()

	w.SendChan().Send(1)

	withTimeout(t, func() {
		err, ok := w.ClosedChan().Receive()
		assert.True(t, ok)
		assert.ErrorIs(t, err, errWriteFailed)
	})
}

func TestWriterStopEndsLoop(t *testing.T) {
	w := NewWriter(func(val int) error { return nil }, WithInputCapacity[int](4))
	w.Stop()

	withTimeout(t, func() {
		_, ok := w.SendChan().Receive()
		assert.False(t, ok)
	})
}

func TestWriterOnDoneCallback(t *testing.T) {
	called := make(chan bool, 1)
	w := NewWriter(func(val int) error {
		return errWriteFailed
	}, WithWriterOnDone(func(*Writer[int]) { called <- true }), WithInputCapacity[int](1))
	defer w.Stop()

	w.SendChan().Send(1)

	withTimeout(t, func() {
		assert.True(t, <-called)
	})
}

var errWriteFailed = errors.New("writer_test: write failed")
