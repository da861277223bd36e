package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// recordedFrame is one text frame received by the mock server, tagged with
// the ordinal of the connection it arrived on.
type recordedFrame struct {
	conn int
	data []byte
	at   time.Time
}

// mockServer is an httptest-backed WebSocket server for exercising the
// client: it records inbound frames per connection, can reject handshakes
// with an arbitrary HTTP status, drop live connections, and push frames to
// clients.
type mockServer struct {
	server *httptest.Server
	url    string

	mu        sync.Mutex
	conns     map[int]*websocket.Conn
	connCount int
	frames    []recordedFrame

	rejectStatus  int
	rejectHeaders map[string]string

	onConnect func(conn *websocket.Conn, ordinal int)
	onMessage func(conn *websocket.Conn, ordinal int, data []byte)
}

func newMockServer(t *testing.T) *mockServer {
	t.Helper()
	ms := &mockServer{conns: make(map[int]*websocket.Conn)}
	ms.server = httptest.NewServer(http.HandlerFunc(ms.handle))
	ms.url = "ws" + strings.TrimPrefix(ms.server.URL, "http")
	t.Cleanup(ms.close)
	return ms
}

func (ms *mockServer) close() {
	ms.mu.Lock()
	for _, conn := range ms.conns {
		_ = conn.Close()
	}
	ms.mu.Unlock()
	ms.server.Close()
}

func (ms *mockServer) setReject(status int, headers map[string]string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.rejectStatus = status
	ms.rejectHeaders = headers
}

func (ms *mockServer) connections() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.connCount
}

// framesFor returns the recorded text frames of one connection (1-based
// ordinal).
func (ms *mockServer) framesFor(ordinal int) []recordedFrame {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	var out []recordedFrame
	for _, f := range ms.frames {
		if f.conn == ordinal {
			out = append(out, f)
		}
	}
	return out
}

func (ms *mockServer) allFrames() []recordedFrame {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	out := make([]recordedFrame, len(ms.frames))
	copy(out, ms.frames)
	return out
}

// dropConnection severs one live connection without a close handshake,
// which the client observes as a connection reset.
func (ms *mockServer) dropConnection(ordinal int) {
	ms.mu.Lock()
	conn := ms.conns[ordinal]
	ms.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// send pushes a text frame to one live connection.
func (ms *mockServer) send(ordinal int, data []byte) error {
	ms.mu.Lock()
	conn := ms.conns[ordinal]
	ms.mu.Unlock()
	if conn == nil {
		return websocket.ErrCloseSent
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

var mockUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

func (ms *mockServer) handle(w http.ResponseWriter, r *http.Request) {
	ms.mu.Lock()
	reject := ms.rejectStatus
	headers := ms.rejectHeaders
	ms.mu.Unlock()

	if reject != 0 {
		for k, v := range headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(reject)
		return
	}

	conn, err := mockUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	ms.mu.Lock()
	ms.connCount++
	ordinal := ms.connCount
	ms.conns[ordinal] = conn
	onConnect := ms.onConnect
	ms.mu.Unlock()

	if onConnect != nil {
		onConnect(conn, ordinal)
	}

	defer func() {
		ms.mu.Lock()
		delete(ms.conns, ordinal)
		ms.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		ms.mu.Lock()
		ms.frames = append(ms.frames, recordedFrame{conn: ordinal, data: data, at: time.Now()})
		onMessage := ms.onMessage
		ms.mu.Unlock()

		if onMessage != nil {
			onMessage(conn, ordinal, data)
		}
	}
}
