package websocket

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/streamforge/marketstream/pkg/exchanges/interfaces"
	"github.com/streamforge/marketstream/pkg/logging"
)

// livenessFrame is a client-originated keep-alive frame queued to the writer.
// messageType 0 means a text frame; otherwise it is a WebSocket control
// frame type.
type livenessFrame struct {
	messageType int
	payload     []byte
	charged     bool
}

// pingSupervisor runs the per-exchange liveness protocol for one connection.
// Any inbound frame observed since the previous tick counts as liveness, so
// a busy connection never generates keep-alive traffic. When the connection
// stays silent past the policy timeout after a probe, the supervisor reports
// the connection dead and exits; the connection supervisor reacts by
// reconnecting.
type pingSupervisor struct {
	policy       interfaces.PingPolicy
	out          chan<- livenessFrame
	lastActivity *atomic.Int64
	shutdown     *Shutdown
	logger       logging.Logger

	// onDead reports the dead-connection verdict exactly once.
	onDead func(*ConnectionError)

	done chan struct{}
}

func newPingSupervisor(
	policy interfaces.PingPolicy,
	out chan<- livenessFrame,
	lastActivity *atomic.Int64,
	shutdown *Shutdown,
	logger logging.Logger,
	onDead func(*ConnectionError),
) *pingSupervisor {
	return &pingSupervisor{
		policy:       policy,
		out:          out,
		lastActivity: lastActivity,
		shutdown:     shutdown,
		logger:       logger,
		onDead:       onDead,
		done:         make(chan struct{}),
	}
}

// run drives the tick loop until the session context is cancelled, shutdown
// fires, or the connection is declared dead. A shutdown arriving after the
// loop has already exited is expected and silent.
func (p *pingSupervisor) run(ctx context.Context) {
	defer close(p.done)

	if p.policy.Interval <= 0 {
		select {
		case <-ctx.Done():
		case <-p.shutdown.Done():
		}
		return
	}

	ticker := time.NewTicker(p.policy.Interval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	var probeAt time.Time
	lastTick := time.Now()

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("ping supervisor stopped", logging.String("cause", "session closed"))
			return
		case <-p.shutdown.Done():
			p.logger.Debug("ping supervisor stopped", logging.String("cause", "shutdown"))
			return
		case now := <-ticker.C:
			if p.activitySince(lastTick) {
				lastTick = now
				deadline = nil
				continue
			}
			lastTick = now
			if deadline != nil {
				// A probe is already outstanding; wait for its verdict.
				continue
			}
			p.emit()
			probeAt = now
			if p.policy.Timeout > 0 {
				deadline = time.After(p.policy.Timeout)
			}
		case <-deadline:
			if p.activitySince(probeAt) {
				deadline = nil
				continue
			}
			p.logger.Warn("no inbound activity after liveness probe",
				logging.Duration("timeout", p.policy.Timeout))
			p.onDead(transportError("liveness timeout", nil))
			return
		}
	}
}

func (p *pingSupervisor) activitySince(t time.Time) bool {
	return p.lastActivity.Load() >= t.UnixNano()
}

// emit queues the policy's keep-alive frame. PingNone emits nothing; the
// timeout watch alone decides liveness.
func (p *pingSupervisor) emit() {
	var frame livenessFrame
	switch p.policy.Mode {
	case interfaces.PingNone:
		return
	case interfaces.PingControlFrame:
		frame = livenessFrame{messageType: websocket.PingMessage, charged: true}
	case interfaces.PongControlFrame:
		frame = livenessFrame{messageType: websocket.PongMessage, charged: true}
	case interfaces.PingText:
		frame = livenessFrame{payload: p.policy.Heartbeat, charged: true}
	}

	select {
	case p.out <- frame:
	default:
		// Writer backlogged; the probe is skipped, but the caller still arms
		// the timeout watch, so no further probe is sent until it resolves.
		p.logger.Debug("liveness frame dropped, writer busy")
	}
}
