package interfaces

import (
	"errors"
	"fmt"
)

// Common error variables shared by exchange strategies.
var (
	// ErrInvalidSymbol is returned when an empty or malformed trading pair
	// symbol is provided.
	ErrInvalidSymbol = errors.New("invalid trading pair symbol")

	// ErrInvalidInterval is returned when a candlestick interval is not
	// offered by the exchange.
	ErrInvalidInterval = errors.New("invalid candlestick interval")

	// ErrUnsupportedChannel is returned when the exchange has no stream for
	// the requested logical channel.
	ErrUnsupportedChannel = errors.New("channel not supported by exchange")
)

// IntervalError wraps ErrInvalidInterval with the offending value and the
// set of intervals the exchange accepts.
type IntervalError struct {
	Seconds   int
	Supported string
}

func (e *IntervalError) Error() string {
	return fmt.Sprintf("unsupported candlestick interval %ds, supported: %s", e.Seconds, e.Supported)
}

func (e *IntervalError) Unwrap() error { return ErrInvalidInterval }

// ChannelError wraps ErrUnsupportedChannel with exchange context.
type ChannelError struct {
	Exchange string
	Channel  Channel
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("%s does not offer a %s stream", e.Exchange, e.Channel)
}

func (e *ChannelError) Unwrap() error { return ErrUnsupportedChannel }
