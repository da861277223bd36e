package websocket

import (
	"sync"
	"sync/atomic"
	"time"
)

// State is the connection lifecycle state of a client.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// HealthStatus is a point-in-time snapshot of connection health. State and
// FailureReason are read together under the state lock so the pair is never
// torn; counters are monotone.
type HealthStatus struct {
	State                 State
	FailureReason         string
	TotalConnections      uint64
	SuccessfulConnections uint64
	FailedConnections     uint64
	ReconnectionAttempts  uint64
	PingFailures          uint64
	LastActivity          time.Time
	Uptime                time.Duration
	LastError             string
}

// maxErrorLen bounds the stored last-error string.
const maxErrorLen = 512

// connMetrics aggregates connection counters. Counters use relaxed atomics;
// the last-error string is guarded by its own mutex.
type connMetrics struct {
	totalConnections      atomic.Uint64
	successfulConnections atomic.Uint64
	failedConnections     atomic.Uint64
	reconnectionAttempts  atomic.Uint64
	pingFailures          atomic.Uint64

	errMu     sync.Mutex
	lastError string
}

func (m *connMetrics) recordConnectionAttempt() {
	m.totalConnections.Add(1)
}

func (m *connMetrics) recordConnectionSuccess() {
	m.successfulConnections.Add(1)
}

func (m *connMetrics) recordConnectionFailure(err error) {
	m.failedConnections.Add(1)
	m.setLastError(err)
}

func (m *connMetrics) recordReconnectionAttempt() {
	m.reconnectionAttempts.Add(1)
}

func (m *connMetrics) recordPingFailure() {
	m.pingFailures.Add(1)
}

func (m *connMetrics) setLastError(err error) {
	if err == nil {
		return
	}
	msg := err.Error()
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen]
	}
	m.errMu.Lock()
	m.lastError = msg
	m.errMu.Unlock()
}

func (m *connMetrics) lastErrorString() string {
	m.errMu.Lock()
	defer m.errMu.Unlock()
	return m.lastError
}
