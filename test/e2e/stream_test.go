package e2e

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamforge/marketstream/pkg/exchanges/binance"
	"github.com/streamforge/marketstream/pkg/exchanges/bybit"
	"github.com/streamforge/marketstream/pkg/exchanges/interfaces"
	"github.com/streamforge/marketstream/pkg/websocket"
)

// End-to-end smoke tests against live exchange endpoints. They need outbound
// network access, so they are skipped in -short mode and in CI unless
// E2E_LIVE is set.
//
//	E2E_LIVE=1 go test -v ./test/e2e
func liveTest(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}
	if os.Getenv("E2E_LIVE") == "" && os.Getenv("CI") != "" {
		t.Skip("skipping e2e test in CI without E2E_LIVE")
	}
}

func streamSome(t *testing.T, strategy interfaces.Strategy, subscribe func(*websocket.Client) error) {
	t.Helper()

	sink := make(chan websocket.Message, 1024)
	client := websocket.New(strategy, sink,
		websocket.WithDialTimeout(15*time.Second))

	require.NoError(t, subscribe(client))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- client.Run(ctx) }()

	received := 0
	deadline := time.After(30 * time.Second)
collect:
	for received < 5 {
		select {
		case msg, open := <-sink:
			if !open {
				break collect
			}
			if msg.Err == nil && len(msg.Data) > 0 {
				received++
			}
		case <-deadline:
			break collect
		}
	}

	require.NoError(t, client.Close())
	select {
	case <-runDone:
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after Close")
	}

	require.GreaterOrEqual(t, received, 5, "expected live market data")

	health := client.GetHealth()
	assert.Equal(t, uint64(1), health.SuccessfulConnections)
	assert.False(t, health.LastActivity.IsZero())
}

func TestBinanceSpotTradeStream(t *testing.T) {
	liveTest(t)
	streamSome(t, binance.NewSpot(), func(c *websocket.Client) error {
		return c.SubscribeTrade([]string{"BTCUSDT", "ETHUSDT"})
	})
}

func TestBinanceSpotBBOStream(t *testing.T) {
	liveTest(t)
	streamSome(t, binance.NewSpot(), func(c *websocket.Client) error {
		return c.SubscribeBBO([]string{"BTCUSDT"})
	})
}

func TestBinanceLinearCandlestickStream(t *testing.T) {
	liveTest(t)
	streamSome(t, binance.NewLinear(), func(c *websocket.Client) error {
		return c.SubscribeCandlestick([]interfaces.CandlestickSubscription{
			{Symbol: "BTCUSDT", IntervalSeconds: 60},
		})
	})
}

func TestBybitSpotTradeStream(t *testing.T) {
	liveTest(t)
	streamSome(t, bybit.NewSpot(), func(c *websocket.Client) error {
		return c.SubscribeTrade([]string{"BTCUSDT"})
	})
}
