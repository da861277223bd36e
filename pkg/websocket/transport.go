package websocket

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/net/proxy"

	"github.com/streamforge/marketstream/pkg/exchanges/interfaces"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	writeTimeout            = 10 * time.Second
	controlWriteTimeout     = 5 * time.Second
)

// transport wraps a live WebSocket connection. Reads happen from exactly one
// goroutine; data writes are serialized by writeMu so the session writer and
// the supervisor's restoration pass never interleave frames. Control writes
// go through WriteControl, which gorilla allows concurrently with everything
// else.
type transport struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// dialTransport opens the WebSocket, optionally tunneling through a SOCKS5
// proxy first. The returned response is non-nil when the server answered the
// upgrade with a plain HTTP status and is used for error classification.
func dialTransport(ctx context.Context, endpoint, proxyURL string, timeout time.Duration) (*transport, *http.Response, error) {
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: timeout,
	}

	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		forward, err := proxy.FromURL(parsed, proxy.Direct)
		if err != nil {
			return nil, nil, fmt.Errorf("proxy setup failed: %w", err)
		}
		dialer.NetDialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := forward.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return forward.Dial(network, addr)
		}
	}

	conn, resp, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, resp, err
	}
	return &transport{conn: conn}, resp, nil
}

// read blocks until the next data frame arrives. Control frames are consumed
// by the handlers installed via installControlHandlers.
func (t *transport) read() (int, []byte, error) {
	return t.conn.ReadMessage()
}

// writeText sends one text frame.
func (t *transport) writeText(data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_ = t.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

// writeControl sends a control frame. Safe concurrently with reads and data
// writes.
func (t *transport) writeControl(messageType int, data []byte) error {
	return t.conn.WriteControl(messageType, data, time.Now().Add(controlWriteTimeout))
}

// writeClose sends a normal-closure close frame to the peer.
func (t *transport) writeClose(reason string) error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	return t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(controlWriteTimeout))
}

// installControlHandlers wires inbound ping/pong control frames into the
// liveness path. Inbound pings are answered with a pong immediately; the
// reply is a response, not a client-originated frame, so it bypasses the
// outbound rate limit.
func (t *transport) installControlHandlers(onActivity func(), onPong func()) {
	t.conn.SetPingHandler(func(appData string) error {
		onActivity()
		err := t.writeControl(websocket.PongMessage, []byte(appData))
		if err == websocket.ErrCloseSent {
			return nil
		}
		if e, ok := err.(net.Error); ok && e.Timeout() {
			return nil
		}
		return err
	})
	t.conn.SetPongHandler(func(string) error {
		onActivity()
		onPong()
		return nil
	})
}

func (t *transport) close() error {
	return t.conn.Close()
}

// inflate decompresses an inbound binary frame according to the exchange's
// compression policy. CompressionNone returns the payload untouched.
func inflate(data []byte, c interfaces.Compression) ([]byte, error) {
	switch c {
	case interfaces.CompressionGzip:
		reader, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip init: %w", err)
		}
		defer reader.Close()
		out, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("gzip inflate: %w", err)
		}
		return out, nil
	case interfaces.CompressionDeflate:
		reader := flate.NewReader(bytes.NewReader(data))
		defer reader.Close()
		out, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("deflate inflate: %w", err)
		}
		return out, nil
	default:
		return data, nil
	}
}
