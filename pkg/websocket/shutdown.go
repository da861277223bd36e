package websocket

import "sync"

// Shutdown is a single-shot broadcast signal. Every supervised task selects
// on Done; once fired it stays fired. Fire is idempotent, so it is never an
// error for two paths (explicit Close, context cancellation, sink closure)
// to race on it.
type Shutdown struct {
	once sync.Once
	ch   chan struct{}
}

// NewShutdown creates an unfired shutdown signal.
func NewShutdown() *Shutdown {
	return &Shutdown{ch: make(chan struct{})}
}

// Fire broadcasts the signal. Safe to call any number of times from any
// goroutine.
func (s *Shutdown) Fire() {
	s.once.Do(func() { close(s.ch) })
}

// Done returns a channel closed when the signal has fired.
func (s *Shutdown) Done() <-chan struct{} {
	return s.ch
}

// Fired reports whether the signal has fired.
func (s *Shutdown) Fired() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}
