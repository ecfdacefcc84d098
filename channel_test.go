package gochan

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"kr.dev/diff"
)

const testTimeout = 5 * time.Second

// withTimeout runs fn on its own goroutine and fails the test if it does
// not complete within testTimeout, the same deadlock guard the teacher's
// lifecycle_test.go applies around every blocking channel operation.
func withTimeout(t *testing.T, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(testTimeout):
		t.Fatal("test timed out")
	}
}

// checkInvariants asserts spec.md §3's channel invariants 1-3 hold against
// a single DebugInfo snapshot, taken atomically under the channel's own
// lock so it reflects one consistent instant regardless of concurrent
// activity around the call.
func checkInvariants[T any](t *testing.T, c *Channel[T]) {
	t.Helper()
	info := c.DebugInfo()
	size := info["len"].(int)
	capacity := info["capacity"].(int)
	closed := info["closed"].(bool)
	recvWaiters := info["recvWaiters"].(int)
	sendWaiters := info["sendWaiters"].(int)

	if recvWaiters > 0 {
		assert.Equal(t, 0, size, "invariant 1: a waiting receiver implies an empty buffer")
	}
	if capacity >= 0 && sendWaiters > 0 {
		assert.Equal(t, capacity, size, "invariant 2: a waiting sender implies a full buffer")
	}
	if closed {
		assert.Equal(t, 0, recvWaiters, "invariant 3: closed channel drains its receive-wait-list")
		assert.Equal(t, 0, sendWaiters, "invariant 3: closed channel drains its send-wait-list")
	}
}

// TestPropertyInvariantsHoldAcrossRandomOps runs a sequence of random
// TrySend/TryReceive/Close operations against one channel, checking
// invariants 1-3 after every single one -- the property-style exercise
// SPEC_FULL.md's data-model section describes.
func TestPropertyInvariantsHoldAcrossRandomOps(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	c := New[int](3)
	checkInvariants(t, c)
	for i := 0; i < 500; i++ {
		switch rng.Intn(3) {
		case 0:
			c.TrySend(i)
		case 1:
			c.TryReceive()
		case 2:
			c.Close()
		}
		checkInvariants(t, c)
	}
}

func TestSendReceiveRendezvous(t *testing.T) {
	c := New[int](0)
	withTimeout(t, func() {
		go c.Send(42)
		v, ok := c.Receive()
		assert.True(t, ok)
		diff.Test(t, t.Errorf, v, 42)
	})
}

func TestBufferedSendDoesNotBlock(t *testing.T) {
	c := New[int](2)
	withTimeout(t, func() {
		assert.True(t, c.Send(1))
		assert.True(t, c.Send(2))
	})
	assert.Equal(t, 2, c.Len())
}

func TestFIFOOrdering(t *testing.T) {
	c := New[int](10)
	for i := 0; i < 5; i++ {
		c.Send(i)
	}
	var got []int
	for i := 0; i < 5; i++ {
		v, ok := c.Receive()
		assert.True(t, ok)
		got = append(got, v)
	}
	diff.Test(t, t.Errorf, got, []int{0, 1, 2, 3, 4})
}

func TestCloseDrainsBufferThenFails(t *testing.T) {
	c := New[int](10)
	c.Send(1)
	c.Send(2)
	c.Close()

	v, ok := c.Receive()
	assert.True(t, ok)
	diff.Test(t, t.Errorf, v, 1)

	v, ok = c.Receive()
	assert.True(t, ok)
	diff.Test(t, t.Errorf, v, 2)

	v, ok = c.Receive()
	assert.False(t, ok)
	diff.Test(t, t.Errorf, v, 0)
}

func TestIsClosedOnlyTrueAfterDrain(t *testing.T) {
	c := New[int](10)
	c.Send(1)
	c.Close()
	assert.False(t, c.IsClosed(), "closed channel with pending buffer should report not-yet-closed")
	c.Receive()
	assert.True(t, c.IsClosed())
}

func TestSendAfterCloseReturnsFalseNoPanic(t *testing.T) {
	c := New[int](1)
	c.Close()
	assert.NotPanics(t, func() {
		assert.False(t, c.Send(1))
	})
}

func TestDoubleCloseIsIdempotent(t *testing.T) {
	c := New[int](1)
	assert.NotPanics(t, func() {
		c.Close()
		c.Close()
	})
}

func TestTrySendTryReceiveNonBlocking(t *testing.T) {
	c := New[int](1)
	assert.True(t, c.TrySend(1))
	assert.False(t, c.TrySend(2), "buffer is full and no receiver waiting")

	v, ok := c.TryReceive()
	assert.True(t, ok)
	diff.Test(t, t.Errorf, v, 1)

	_, ok = c.TryReceive()
	assert.False(t, ok, "buffer is empty and channel is open")
}

func TestUnboundedSendNeverBlocksOnBuffer(t *testing.T) {
	c := New[int](Unbounded)
	withTimeout(t, func() {
		for i := 0; i < 1000; i++ {
			assert.True(t, c.Send(i))
		}
	})
	assert.Equal(t, 1000, c.Len())
}

// TestConcurrentSendersReceiversNoLoss exercises many-to-many handoff
// (invariant: every sent value is received exactly once; the order in which
// values are received is not checked).
func TestConcurrentSendersReceiversNoLoss(t *testing.T) {
	c := New[int](4)
	const producers = 20
	const perProducer = 50
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				c.Send(base*perProducer + i)
			}
		}(p)
	}

	received := make(map[int]bool)
	var mu sync.Mutex
	var rwg sync.WaitGroup
	for r := 0; r < 4; r++ {
		rwg.Add(1)
		go func() {
			defer rwg.Done()
			for {
				v, ok := c.Receive()
				if !ok {
					return
				}
				mu.Lock()
				received[v] = true
				mu.Unlock()
			}
		}()
	}

	stopCheck := make(chan struct{})
	checkerDone := make(chan struct{})
	go func() {
		defer close(checkerDone)
		for {
			select {
			case <-stopCheck:
				return
			default:
			}
			checkInvariants(t, c)
			time.Sleep(time.Millisecond)
		}
	}()

	withTimeout(t, func() {
		wg.Wait()
		c.Close()
		rwg.Wait()
	})
	close(stopCheck)
	<-checkerDone

	assert.Equal(t, producers*perProducer, len(received))
}

func TestReceiveBlocksUntilSendArrives(t *testing.T) {
	c := New[int](0)
	result := make(chan int, 1)
	go func() {
		v, _ := c.Receive()
		result <- v
	}()
	time.Sleep(20 * time.Millisecond)
	c.Send(7)
	withTimeout(t, func() {
		diff.Test(t, t.Errorf, <-result, 7)
	})
}

func TestReceiveUnblocksOnClose(t *testing.T) {
	c := New[int](0)
	done := make(chan bool, 1)
	go func() {
		_, ok := c.Receive()
		done <- ok
	}()
	time.Sleep(20 * time.Millisecond)
	c.Close()
	withTimeout(t, func() {
		assert.False(t, <-done)
	})
}

func TestCapReportsConfiguredCapacity(t *testing.T) {
	c := New[int](7)
	diff.Test(t, t.Errorf, c.Cap(), 7)
	u := New[int](Unbounded)
	diff.Test(t, t.Errorf, u.Cap(), Unbounded)
}

func TestDebugInfoReflectsState(t *testing.T) {
	c := New[int](2, WithName[int]("test-chan"))
	c.Send(1)
	info := c.DebugInfo()
	diff.Test(t, t.Errorf, info["name"], "test-chan")
	diff.Test(t, t.Errorf, info["len"], 1)
	diff.Test(t, t.Errorf, info["capacity"], 2)
	diff.Test(t, t.Errorf, info["closed"], false)
}
