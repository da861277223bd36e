// Package binance implements the Binance family of WebSocket strategies:
// Spot, USDT-margined futures, and Coin-margined futures. The three markets
// share the combined-stream envelope and differ in endpoint URL and topic
// caps.
//
//   - Spot: https://binance-docs.github.io/apidocs/spot/en/#websocket-market-streams
//   - USDT futures: https://binance-docs.github.io/apidocs/futures/en/#websocket-market-streams
//   - Coin futures: https://binance-docs.github.io/apidocs/delivery/en/#websocket-market-streams
package binance

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/streamforge/marketstream/pkg/exchanges/interfaces"
	"github.com/streamforge/marketstream/pkg/ratelimit"
)

const (
	spotURL    = "wss://stream.binance.com:9443/stream"
	linearURL  = "wss://fstream.binance.com/stream"
	inverseURL = "wss://dstream.binance.com/stream"

	// Frames above 4096 bytes are rejected with `code: 3001, reason:
	// illegal request`.
	maxFrameBytes = 4096

	// Spot allows 1024 streams per connection and per subscribe command;
	// the futures endpoints cap at 200.
	spotMaxTopics    = 1024
	futuresMaxTopics = 200
)

// uplinkLimit is the 5-messages-per-second cap Binance enforces on inbound
// (client to server) WebSocket frames.
var uplinkLimit = ratelimit.Rate{Limit: 5, Interval: time.Second}

// supportedIntervals maps a candlestick interval in seconds onto the
// exchange tag.
var supportedIntervals = map[int]string{
	60:      "1m",
	180:     "3m",
	300:     "5m",
	900:     "15m",
	1800:    "30m",
	3600:    "1h",
	7200:    "2h",
	14400:   "4h",
	21600:   "6h",
	28800:   "8h",
	43200:   "12h",
	86400:   "1d",
	259200:  "3d",
	604800:  "1w",
	2592000: "1M",
}

const intervalList = "1m,3m,5m,15m,30m,1h,2h,4h,6h,8h,12h,1d,3d,1w,1M"

// Strategy provides the Binance-specific pieces of the streaming core:
// endpoint limits, the pong-based liveness protocol, topic expansion, and
// the SUBSCRIBE/UNSUBSCRIBE envelope.
type Strategy struct {
	endpoint interfaces.Endpoint
}

// NewSpot returns the Binance Spot market strategy.
func NewSpot() *Strategy {
	return &Strategy{endpoint: interfaces.Endpoint{
		Exchange:              "binance",
		Market:                "spot",
		URL:                   spotURL,
		MaxTopicsPerSubscribe: spotMaxTopics,
		MaxFrameBytes:         maxFrameBytes,
		UplinkLimit:           uplinkLimit,
	}}
}

// NewLinear returns the USDT-margined futures strategy.
func NewLinear() *Strategy {
	return &Strategy{endpoint: interfaces.Endpoint{
		Exchange:              "binance",
		Market:                "linear",
		URL:                   linearURL,
		MaxTopicsPerSubscribe: futuresMaxTopics,
		MaxFrameBytes:         maxFrameBytes,
		UplinkLimit:           uplinkLimit,
	}}
}

// NewInverse returns the Coin-margined futures strategy.
func NewInverse() *Strategy {
	return &Strategy{endpoint: interfaces.Endpoint{
		Exchange:              "binance",
		Market:                "inverse",
		URL:                   inverseURL,
		MaxTopicsPerSubscribe: futuresMaxTopics,
		MaxFrameBytes:         maxFrameBytes,
		UplinkLimit:           uplinkLimit,
	}}
}

func (s *Strategy) Endpoint() interfaces.Endpoint { return s.endpoint }

// PingPolicy: the server pings every ~3 minutes and disconnects after 10
// silent minutes. Unsolicited pong frames are allowed, so the client sends
// an empty pong every 3 minutes when the connection is otherwise idle.
func (s *Strategy) PingPolicy() interfaces.PingPolicy {
	return interfaces.PingPolicy{
		Mode:     interfaces.PongControlFrame,
		Interval: 180 * time.Second,
		Timeout:  600 * time.Second,
	}
}

func (s *Strategy) Compression() interfaces.Compression {
	return interfaces.CompressionNone
}

// Topics expands symbols into combined-stream names, e.g. "BTCUSDT" with
// the trade channel becomes "btcusdt@aggTrade".
func (s *Strategy) Topics(channel interfaces.Channel, symbols []string) ([]string, error) {
	var suffix string
	switch channel {
	case interfaces.ChannelTrade:
		suffix = "aggTrade"
	case interfaces.ChannelOrderbook:
		suffix = "depth@100ms"
	case interfaces.ChannelOrderbookTopK:
		suffix = "depth20"
	case interfaces.ChannelBBO:
		suffix = "bookTicker"
	case interfaces.ChannelTicker:
		suffix = "ticker"
	default:
		return nil, &interfaces.ChannelError{Exchange: s.endpoint.Exchange, Channel: channel}
	}

	topics := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if symbol == "" {
			return nil, interfaces.ErrInvalidSymbol
		}
		topics = append(topics, strings.ToLower(symbol)+"@"+suffix)
	}
	return topics, nil
}

// CandlestickTopics maps symbol/interval pairs onto kline streams, e.g.
// ("BTCUSDT", 60) becomes "btcusdt@kline_1m".
func (s *Strategy) CandlestickTopics(subs []interfaces.CandlestickSubscription) ([]string, error) {
	topics := make([]string, 0, len(subs))
	for _, sub := range subs {
		if sub.Symbol == "" {
			return nil, interfaces.ErrInvalidSymbol
		}
		tag, ok := supportedIntervals[sub.IntervalSeconds]
		if !ok {
			return nil, &interfaces.IntervalError{Seconds: sub.IntervalSeconds, Supported: intervalList}
		}
		topics = append(topics, strings.ToLower(sub.Symbol)+"@kline_"+tag)
	}
	return topics, nil
}

// subscribeCommand is the combined-stream command envelope.
type subscribeCommand struct {
	ID     uint64   `json:"id"`
	Method string   `json:"method"`
	Params []string `json:"params"`
}

// probeID over-estimates the id width during batch sizing so a frame never
// crosses the byte cap once the real id is substituted.
const probeID = 9999999999

// Encode renders SUBSCRIBE/UNSUBSCRIBE frames, chunked so no frame carries
// more topics than the market allows nor exceeds the 4096-byte cap. Each
// emitted frame gets the next command id.
func (s *Strategy) Encode(subscribe bool, topics []string, nextID func() uint64) [][]byte {
	if len(topics) == 0 {
		return nil
	}
	method := "SUBSCRIBE"
	if !subscribe {
		method = "UNSUBSCRIBE"
	}

	batches := interfaces.SplitTopics(topics, s.endpoint.MaxTopicsPerSubscribe, s.endpoint.MaxFrameBytes,
		func(batch []string) int {
			return len(renderCommand(probeID, method, batch))
		})

	frames := make([][]byte, 0, len(batches))
	for _, batch := range batches {
		frames = append(frames, renderCommand(nextID(), method, batch))
	}
	return frames
}

func renderCommand(id uint64, method string, params []string) []byte {
	frame, err := json.Marshal(subscribeCommand{ID: id, Method: method, Params: params})
	if err != nil {
		// Marshalling a struct of integers and strings cannot fail.
		panic(err)
	}
	return frame
}

// Classify routes an inbound payload. Combined-stream data carries "stream"
// and "data"; command acks carry a null "result"; rejections carry an
// "error" object.
func (s *Strategy) Classify(payload []byte) interfaces.Verdict {
	var msg struct {
		Stream string          `json:"stream"`
		Data   json.RawMessage `json:"data"`
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		} `json:"error"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return interfaces.Verdict{Kind: interfaces.VerdictOther, Reason: "not a JSON object"}
	}

	if msg.Error != nil {
		if isListenKeyError(msg.Error.Code, msg.Error.Msg) {
			return interfaces.Verdict{Kind: interfaces.VerdictAuthError, Reason: msg.Error.Msg}
		}
		return interfaces.Verdict{Kind: interfaces.VerdictProtocolError, Reason: msg.Error.Msg}
	}
	if msg.Stream != "" && len(msg.Data) > 0 {
		return interfaces.Verdict{Kind: interfaces.VerdictData}
	}
	if len(msg.Result) > 0 {
		return interfaces.Verdict{Kind: interfaces.VerdictAck}
	}
	return interfaces.Verdict{Kind: interfaces.VerdictOther}
}

// listenKeyExpired is the error code returned when a user-data listen key is
// unknown or expired.
const listenKeyExpired = -1125

func isListenKeyError(code int, msg string) bool {
	if code == listenKeyExpired {
		return true
	}
	return strings.Contains(strings.ToLower(msg), "listenkey")
}
