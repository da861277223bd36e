// Package marketstream provides supervised WebSocket streaming clients for
// cryptocurrency exchange market data.
//
// The library maintains long-lived subscriptions over a single socket per
// endpoint: it multiplexes subscribe/unsubscribe commands, runs the
// exchange's liveness protocol, rate-limits outbound frames to the
// exchange's budget, reconnects with exponential backoff, and transparently
// restores every registered subscription on the fresh connection. Received
// payloads are passed to the application as-is through a bounded channel;
// decoding them into typed market events is out of scope.
//
// # Architecture
//
// Each client owns one connection and a small group of cooperating
// goroutines: a reader, a writer, a liveness supervisor, and the supervisor
// loop that reacts to their lifecycle events. Errors are classified —
// recoverable transport failures trigger reconnection, server throttles
// delay it, handshake rejections and TLS failures are terminal. A
// single-shot broadcast shutdown signal stops every task within a bounded
// grace period.
//
// Exchange specifics live behind the Strategy interface in
// pkg/exchanges/interfaces: endpoint limits, topic naming, command
// envelopes, and the ping protocol. Binance (spot and both futures
// markets) and Bybit v5 (spot and linear) strategies ship in
// pkg/exchanges/binance and pkg/exchanges/bybit.
//
// # Basic usage
//
//	sink := make(chan websocket.Message, 1024)
//	client := websocket.New(binance.NewSpot(), sink,
//		websocket.WithLogger(logging.NewLogger()))
//
//	if err := client.SubscribeTrade([]string{"BTCUSDT", "ETHUSDT"}); err != nil {
//		log.Fatal(err)
//	}
//
//	go func() {
//		for msg := range sink {
//			if msg.Err != nil {
//				// server-side rejection; the connection stays up
//				continue
//			}
//			process(msg.Data)
//		}
//	}()
//
//	// Blocks until Close is called or reconnection is exhausted.
//	if err := client.Run(ctx); err != nil {
//		log.Fatal(err)
//	}
//
// Connection health (state, attempt counters, last error, last activity) is
// available from GetHealth at any time, and pkg/metrics bridges it into a
// Prometheus collector.
package marketstream
