package gochan

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFanInMergesSources(t *testing.T) {
	fi := NewFanIn[int](nil)
	defer fi.Stop()

	a := New[int](1)
	b := New[int](1)
	fi.Add(a, b)

	a.Send(1)
	b.Send(2)

	got := map[int]bool{}
	withTimeout(t, func() {
		for i := 0; i < 2; i++ {
			v, ok := fi.RecvChan().Receive()
			assert.True(t, ok)
			got[v] = true
		}
	})
	assert.True(t, got[1])
	assert.True(t, got[2])
}

func TestFanInRemovesSourceOnClose(t *testing.T) {
	fi := NewFanIn[int](nil)
	defer fi.Stop()

	removed := make(chan *Channel[int], 1)
	fi.OnChannelRemoved = func(_ *FanIn[int], src *Channel[int]) {
		removed <- src
	}

	a := New[int](1)
	fi.Add(a)
	a.Close()

	withTimeout(t, func() {
		got := <-removed
		assert.Equal(t, a, got)
	})
}

func TestFanInExplicitRemove(t *testing.T) {
	fi := NewFanIn[int](nil)
	defer fi.Stop()

	a := New[int](1)
	b := New[int](1)
	fi.Add(a, b)
	fi.Remove(a)
	b.Send(42)

	v, ok := fi.RecvChan().Receive()
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}

// TestStressFanInEndTokens merges many producer channels, each sending a
// fixed run of values followed by closing, and asserts the consumer sees
// every value across every producer with none lost or duplicated. Scaled
// down to keep -short runs fast; the full-scale variant can be run with
// -run StressFanIn manually.
func TestStressFanInEndTokens(t *testing.T) {
	producers, perProducer := 300, 300
	if testing.Short() {
		producers, perProducer = 100, 100
	}

	fi := NewFanIn[int](nil)
	defer fi.Stop()

	sources := make([]*Channel[int], producers)
	for i := range sources {
		sources[i] = New[int](4)
	}
	fi.Add(sources...)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(idx int, src *Channel[int]) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				src.Send(idx*perProducer + i)
			}
			src.Close()
		}(p, sources[p])
	}

	expected := producers * perProducer
	got := make([]int, 0, expected)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for len(got) < expected {
			v, ok := fi.RecvChan().Receive()
			if !ok {
				break
			}
			got = append(got, v)
		}
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		t.Fatal("stress test timed out")
	}
	wg.Wait()

	assert.Equal(t, expected, len(got))
	sort.Ints(got)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}
