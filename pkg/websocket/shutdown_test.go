package websocket

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShutdownFireIsIdempotent(t *testing.T) {
	s := NewShutdown()
	assert.False(t, s.Fired())

	s.Fire()
	s.Fire()
	s.Fire()
	assert.True(t, s.Fired())

	select {
	case <-s.Done():
	default:
		t.Fatal("Done channel not closed after Fire")
	}
}

func TestShutdownConcurrentFire(t *testing.T) {
	s := NewShutdown()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Fire()
		}()
	}
	wg.Wait()
	assert.True(t, s.Fired())
}

func TestShutdownBroadcastsToAllWaiters(t *testing.T) {
	s := NewShutdown()
	const waiters = 8

	done := make(chan struct{}, waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			<-s.Done()
			done <- struct{}{}
		}()
	}

	s.Fire()
	for i := 0; i < waiters; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("waiter did not observe shutdown")
		}
	}
}
