package websocket

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/streamforge/marketstream/pkg/exchanges/interfaces"
	"github.com/streamforge/marketstream/pkg/logging"
)

// recordingLogger captures log entries so tests can assert on levels and
// message content. Derived loggers share the same entry store.
type recordingLogger struct {
	store  *logStore
	fields []logging.Field
}

type logStore struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	level   string
	message string
	fields  []logging.Field
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{store: &logStore{}}
}

func (l *recordingLogger) record(level, msg string, fields []logging.Field) {
	all := append(append([]logging.Field{}, l.fields...), fields...)
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	l.store.entries = append(l.store.entries, logEntry{level: level, message: msg, fields: all})
}

func (l *recordingLogger) Debug(msg string, fields ...logging.Field) { l.record("debug", msg, fields) }
func (l *recordingLogger) Info(msg string, fields ...logging.Field)  { l.record("info", msg, fields) }
func (l *recordingLogger) Warn(msg string, fields ...logging.Field)  { l.record("warn", msg, fields) }
func (l *recordingLogger) Error(msg string, fields ...logging.Field) { l.record("error", msg, fields) }

func (l *recordingLogger) WithFields(fields ...logging.Field) logging.Logger {
	return &recordingLogger{
		store:  l.store,
		fields: append(append([]logging.Field{}, l.fields...), fields...),
	}
}

// entriesAt returns every captured entry at the given level, rendered as
// "message key=value ...".
func (l *recordingLogger) entriesAt(level string) []string {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	var out []string
	for _, e := range l.store.entries {
		if e.level != level {
			continue
		}
		parts := []string{e.message}
		for _, f := range e.fields {
			parts = append(parts, fmt.Sprintf("%s=%v", f.Key, f.Value))
		}
		out = append(out, strings.Join(parts, " "))
	}
	return out
}

// stateRecorder collects the state transition trace.
type stateRecorder struct {
	mu     sync.Mutex
	states []State
}

func (r *stateRecorder) observe(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *stateRecorder) trace() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, len(r.states))
	copy(out, r.states)
	return out
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

// stubStrategy is a minimal strategy for supervisor tests that need direct
// control over policies and classification.
type stubStrategy struct {
	endpoint interfaces.Endpoint
	ping     interfaces.PingPolicy
	classify func([]byte) interfaces.Verdict
}

func newStubStrategy() *stubStrategy {
	return &stubStrategy{
		endpoint: interfaces.Endpoint{Exchange: "stub", Market: "test"},
	}
}

func (s *stubStrategy) Endpoint() interfaces.Endpoint     { return s.endpoint }
func (s *stubStrategy) PingPolicy() interfaces.PingPolicy { return s.ping }
func (s *stubStrategy) Compression() interfaces.Compression {
	return interfaces.CompressionNone
}

func (s *stubStrategy) Topics(channel interfaces.Channel, symbols []string) ([]string, error) {
	topics := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		topics = append(topics, strings.ToLower(symbol)+"."+channel.String())
	}
	return topics, nil
}

func (s *stubStrategy) CandlestickTopics(subs []interfaces.CandlestickSubscription) ([]string, error) {
	topics := make([]string, 0, len(subs))
	for _, sub := range subs {
		topics = append(topics, fmt.Sprintf("%s.kline.%d", strings.ToLower(sub.Symbol), sub.IntervalSeconds))
	}
	return topics, nil
}

func (s *stubStrategy) Encode(subscribe bool, topics []string, nextID func() uint64) [][]byte {
	op := "sub"
	if !subscribe {
		op = "unsub"
	}
	frames := make([][]byte, 0, len(topics))
	for _, topic := range topics {
		frames = append(frames, []byte(fmt.Sprintf(`{"id":%d,"op":%q,"topic":%q}`, nextID(), op, topic)))
	}
	return frames
}

func (s *stubStrategy) Classify(payload []byte) interfaces.Verdict {
	if s.classify != nil {
		return s.classify(payload)
	}
	return interfaces.Verdict{Kind: interfaces.VerdictData}
}
