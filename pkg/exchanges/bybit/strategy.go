// Package bybit implements the Bybit v5 public WebSocket strategies for the
// Spot and USDT-perpetual markets. Unlike Binance, Bybit uses an
// application-level text heartbeat and an `op`/`args` command envelope.
//
//   - API doc: https://bybit-exchange.github.io/docs/v5/ws/connect
package bybit

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/streamforge/marketstream/pkg/exchanges/interfaces"
	"github.com/streamforge/marketstream/pkg/ratelimit"
)

const (
	spotURL   = "wss://stream.bybit.com/v5/public/spot"
	linearURL = "wss://stream.bybit.com/v5/public/linear"

	// The args array of one subscribe request is capped at 21000
	// characters; spot additionally caps the number of args per request.
	maxFrameBytes = 21000
	spotMaxTopics = 10
)

// dialLimit: do not build over 500 connections in 5 minutes per WebSocket
// domain.
var dialLimit = ratelimit.Rate{Limit: 500, Interval: 5 * time.Minute}

// supportedIntervals maps bar seconds onto Bybit kline tags (minutes, or
// D/W/M).
var supportedIntervals = map[int]string{
	60:      "1",
	180:     "3",
	300:     "5",
	900:     "15",
	1800:    "30",
	3600:    "60",
	7200:    "120",
	14400:   "240",
	21600:   "360",
	43200:   "720",
	86400:   "D",
	604800:  "W",
	2592000: "M",
}

const intervalList = "1,3,5,15,30,60,120,240,360,720 minutes and D,W,M"

// Strategy provides the Bybit-specific pieces of the streaming core.
type Strategy struct {
	endpoint interfaces.Endpoint
}

// NewSpot returns the Bybit Spot market strategy.
func NewSpot() *Strategy {
	return &Strategy{endpoint: interfaces.Endpoint{
		Exchange:              "bybit",
		Market:                "spot",
		URL:                   spotURL,
		MaxTopicsPerSubscribe: spotMaxTopics,
		MaxFrameBytes:         maxFrameBytes,
		DialLimit:             dialLimit,
	}}
}

// NewLinear returns the USDT-perpetual strategy.
func NewLinear() *Strategy {
	return &Strategy{endpoint: interfaces.Endpoint{
		Exchange:      "bybit",
		Market:        "linear",
		URL:           linearURL,
		MaxFrameBytes: maxFrameBytes,
		DialLimit:     dialLimit,
	}}
}

func (s *Strategy) Endpoint() interfaces.Endpoint { return s.endpoint }

// PingPolicy: Bybit expects a `{"op":"ping"}` heartbeat roughly every 20
// seconds and answers with a pong ack.
func (s *Strategy) PingPolicy() interfaces.PingPolicy {
	return interfaces.PingPolicy{
		Mode:      interfaces.PingText,
		Interval:  20 * time.Second,
		Timeout:   60 * time.Second,
		Heartbeat: []byte(`{"op":"ping"}`),
	}
}

func (s *Strategy) Compression() interfaces.Compression {
	return interfaces.CompressionNone
}

// Topics expands symbols into v5 topic names, e.g. "BTCUSDT" with the trade
// channel becomes "publicTrade.BTCUSDT". Bybit has no BBO or fixed-depth
// snapshot stream on these endpoints.
func (s *Strategy) Topics(channel interfaces.Channel, symbols []string) ([]string, error) {
	var prefix string
	switch channel {
	case interfaces.ChannelTrade:
		prefix = "publicTrade"
	case interfaces.ChannelOrderbook:
		prefix = "orderbook.50"
	case interfaces.ChannelTicker:
		prefix = "tickers"
	default:
		return nil, &interfaces.ChannelError{Exchange: s.endpoint.Exchange, Channel: channel}
	}

	topics := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if symbol == "" {
			return nil, interfaces.ErrInvalidSymbol
		}
		topics = append(topics, prefix+"."+strings.ToUpper(symbol))
	}
	return topics, nil
}

// CandlestickTopics maps symbol/interval pairs onto kline topics, e.g.
// ("BTCUSDT", 60) becomes "kline.1.BTCUSDT".
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
		topics = append(topics, "kline."+tag+"."+strings.ToUpper(sub.Symbol))
	}
	return topics, nil
}

// opCommand is the v5 command envelope. ReqID is the per-connection command
// identifier echoed back in acks.
type opCommand struct {
	ReqID string   `json:"req_id"`
	Op    string   `json:"op"`
	Args  []string `json:"args"`
}

const probeReqID = "9999999999"

// Encode renders subscribe/unsubscribe frames chunked to the v5 caps.
func (s *Strategy) Encode(subscribe bool, topics []string, nextID func() uint64) [][]byte {
	if len(topics) == 0 {
		return nil
	}
	op := "subscribe"
	if !subscribe {
		op = "unsubscribe"
	}

	batches := interfaces.SplitTopics(topics, s.endpoint.MaxTopicsPerSubscribe, s.endpoint.MaxFrameBytes,
		func(batch []string) int {
			return len(renderCommand(probeReqID, op, batch))
		})

	frames := make([][]byte, 0, len(batches))
	for _, batch := range batches {
		id := strconv.FormatUint(nextID(), 10)
		frames = append(frames, renderCommand(id, op, batch))
	}
	return frames
}

func renderCommand(reqID, op string, args []string) []byte {
	frame, err := json.Marshal(opCommand{ReqID: reqID, Op: op, Args: args})
	if err != nil {
		panic(err)
	}
	return frame
}

// Classify routes an inbound payload. Stream data carries "topic" and
// "data"; command and heartbeat acks carry "op"/"success"/"ret_msg".
func (s *Strategy) Classify(payload []byte) interfaces.Verdict {
	var msg struct {
		Topic   string          `json:"topic"`
		Data    json.RawMessage `json:"data"`
		Op      string          `json:"op"`
		Success *bool           `json:"success"`
		RetMsg  string          `json:"ret_msg"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return interfaces.Verdict{Kind: interfaces.VerdictOther, Reason: "not a JSON object"}
	}

	if msg.Topic != "" && len(msg.Data) > 0 {
		return interfaces.Verdict{Kind: interfaces.VerdictData}
	}
	if msg.Op == "pong" || strings.EqualFold(msg.RetMsg, "pong") {
		return interfaces.Verdict{Kind: interfaces.VerdictPong}
	}
	if msg.Success != nil {
		if *msg.Success {
			return interfaces.Verdict{Kind: interfaces.VerdictAck}
		}
		if strings.Contains(strings.ToLower(msg.RetMsg), "auth") {
			return interfaces.Verdict{Kind: interfaces.VerdictAuthError, Reason: msg.RetMsg}
		}
		return interfaces.Verdict{Kind: interfaces.VerdictProtocolError, Reason: msg.RetMsg}
	}
	return interfaces.Verdict{Kind: interfaces.VerdictOther}
}
