package interfaces

import (
	"time"

	"github.com/streamforge/marketstream/pkg/ratelimit"
)

// Channel identifies a logical market-data stream that a strategy expands
// into exchange-specific topics.
type Channel int

const (
	// ChannelTrade streams individual or aggregated trades.
	ChannelTrade Channel = iota

	// ChannelOrderbook streams incremental order book updates.
	ChannelOrderbook

	// ChannelOrderbookTopK streams top-of-book snapshots (e.g. top 20 levels).
	ChannelOrderbookTopK

	// ChannelBBO streams best bid/offer updates.
	ChannelBBO

	// ChannelTicker streams 24h rolling ticker statistics.
	ChannelTicker
)

func (c Channel) String() string {
	switch c {
	case ChannelTrade:
		return "trade"
	case ChannelOrderbook:
		return "orderbook"
	case ChannelOrderbookTopK:
		return "orderbook_topk"
	case ChannelBBO:
		return "bbo"
	case ChannelTicker:
		return "ticker"
	default:
		return "unknown"
	}
}

// CandlestickSubscription pairs a symbol with a bar interval in seconds.
// Strategies map the interval onto the exchange's native tag and return
// ErrInvalidInterval for intervals the exchange does not offer.
type CandlestickSubscription struct {
	Symbol          string
	IntervalSeconds int
}

// Endpoint describes a WebSocket endpoint and the limits the exchange
// enforces on it.
type Endpoint struct {
	// Exchange is the lowercase exchange identifier, e.g. "binance".
	Exchange string

	// Market distinguishes endpoints within an exchange, e.g. "spot",
	// "linear", "inverse".
	Market string

	// URL is the WebSocket endpoint URL.
	URL string

	// MaxTopicsPerSubscribe caps how many topics a single subscribe command
	// may carry. Zero means unlimited.
	MaxTopicsPerSubscribe int

	// MaxFrameBytes caps the serialized size of an outbound command frame.
	// Zero means unlimited.
	MaxFrameBytes int

	// UplinkLimit is the outbound frame budget the exchange enforces per
	// connection.
	UplinkLimit ratelimit.Rate

	// DialLimit is the connection-attempt budget per endpoint domain.
	DialLimit ratelimit.Rate
}

// PingMode selects how connection liveness is maintained.
type PingMode int

const (
	// PingNone relies on the server to ping; the client only monitors
	// inbound activity.
	PingNone PingMode = iota

	// PingControlFrame sends a WebSocket ping control frame.
	PingControlFrame

	// PongControlFrame sends an unsolicited WebSocket pong control frame.
	// Binance expects this shape.
	PongControlFrame

	// PingText sends an application-level heartbeat payload as a text frame.
	PingText
)

// PingPolicy specifies the liveness protocol for one endpoint.
type PingPolicy struct {
	Mode PingMode

	// Interval between client-originated liveness frames. For PingNone no
	// frame is sent, but Interval still paces the inbound-silence checks.
	// Zero disables liveness supervision entirely.
	Interval time.Duration

	// Timeout is how long the connection may stay silent after a liveness
	// emission before it is declared dead.
	Timeout time.Duration

	// Heartbeat is the text payload for PingText mode.
	Heartbeat []byte
}

// Compression selects the inflation applied to inbound binary frames before
// classification.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionDeflate
)

// VerdictKind classifies an inbound payload.
type VerdictKind int

const (
	// VerdictData is an application payload to forward to the consumer.
	VerdictData VerdictKind = iota

	// VerdictAck is a successful command acknowledgement, consumed
	// internally.
	VerdictAck

	// VerdictPong is an application-level heartbeat reply, counted as
	// liveness and consumed internally.
	VerdictPong

	// VerdictProtocolError is a structured server-side rejection (unknown
	// symbol, illegal parameter). Surfaced to the consumer; the connection
	// stays up.
	VerdictProtocolError

	// VerdictAuthError is a rejected user-data credential. Surfaced to the
	// consumer; public streams stay up.
	VerdictAuthError

	// VerdictOther is anything else; logged and dropped.
	VerdictOther
)

// Verdict is the result of classifying one inbound payload.
type Verdict struct {
	Kind   VerdictKind
	Reason string
}

// Strategy bundles everything exchange-specific the streaming core needs:
// where to connect, how to stay alive, how to name topics, and how to encode
// commands. Implementations must be safe for concurrent use.
type Strategy interface {
	// Endpoint returns the endpoint descriptor the client connects to.
	Endpoint() Endpoint

	// PingPolicy returns the liveness protocol for the endpoint.
	PingPolicy() PingPolicy

	// Compression returns the inflation applied to inbound binary frames.
	Compression() Compression

	// Topics expands symbols into exchange topics for a logical channel.
	// Returns ErrUnsupportedChannel when the exchange has no such stream.
	Topics(channel Channel, symbols []string) ([]string, error)

	// CandlestickTopics expands symbol/interval pairs into kline topics.
	// Returns ErrInvalidInterval for intervals the exchange does not offer.
	CandlestickTopics(subs []CandlestickSubscription) ([]string, error)

	// Encode translates a subscribe or unsubscribe for the given topics into
	// one or more wire frames, honoring the endpoint's topic and frame-size
	// caps. nextID yields monotonically increasing command identifiers
	// scoped to the current connection.
	Encode(subscribe bool, topics []string, nextID func() uint64) [][]byte

	// Classify inspects one inbound payload (after decompression) and
	// decides how the core should route it.
	Classify(payload []byte) Verdict
}
