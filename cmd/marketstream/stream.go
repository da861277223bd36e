package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/streamforge/marketstream/pkg/config"
	"github.com/streamforge/marketstream/pkg/exchanges/binance"
	"github.com/streamforge/marketstream/pkg/exchanges/bybit"
	"github.com/streamforge/marketstream/pkg/exchanges/interfaces"
	"github.com/streamforge/marketstream/pkg/logging"
	"github.com/streamforge/marketstream/pkg/metrics"
	"github.com/streamforge/marketstream/pkg/websocket"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "marketstream",
		Short:         "Stream cryptocurrency market data over exchange WebSocket endpoints",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newStreamCommand())
	return root
}

func newStreamCommand() *cobra.Command {
	var (
		configPath string
		exchange   string
		market     string
		symbols    []string
		channels   []string
		proxy      string
		listenKey  string
		metricsOn  string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Connect, subscribe, and print received payloads to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if exchange != "" {
				cfg.Exchange = exchange
			}
			if market != "" {
				cfg.Market = market
			}
			if len(symbols) > 0 {
				cfg.Symbols = symbols
			}
			if len(channels) > 0 {
				cfg.Channels = channels
			}
			if proxy != "" {
				cfg.Proxy = proxy
			}
			if listenKey != "" {
				cfg.ListenKey = listenKey
			}
			if metricsOn != "" {
				cfg.MetricsListen = metricsOn
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runStream(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	cmd.Flags().StringVar(&exchange, "exchange", "", "exchange to connect to (binance, bybit)")
	cmd.Flags().StringVar(&market, "market", "", "market endpoint (spot, linear, inverse)")
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "symbols to subscribe, e.g. BTCUSDT,ETHUSDT")
	cmd.Flags().StringSliceVar(&channels, "channels", nil, "channels to subscribe (trade, orderbook, orderbook_topk, bbo, ticker)")
	cmd.Flags().StringVar(&proxy, "proxy", "", "SOCKS5 proxy URL")
	cmd.Flags().StringVar(&listenKey, "listen-key", "", "user-data listen key")
	cmd.Flags().StringVar(&metricsOn, "metrics", "", "address for the /metrics and /healthz server, e.g. :9100")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	return cmd
}

func buildStrategy(exchange, market string) (interfaces.Strategy, error) {
	switch exchange {
	case "binance":
		switch market {
		case "spot":
			return binance.NewSpot(), nil
		case "linear":
			return binance.NewLinear(), nil
		case "inverse":
			return binance.NewInverse(), nil
		}
	case "bybit":
		switch market {
		case "spot":
			return bybit.NewSpot(), nil
		case "linear":
			return bybit.NewLinear(), nil
		}
	}
	return nil, fmt.Errorf("no strategy for exchange %q market %q", exchange, market)
}

var channelNames = map[string]interfaces.Channel{
	"trade":          interfaces.ChannelTrade,
	"orderbook":      interfaces.ChannelOrderbook,
	"orderbook_topk": interfaces.ChannelOrderbookTopK,
	"bbo":            interfaces.ChannelBBO,
	"ticker":         interfaces.ChannelTicker,
}

func runStream(ctx context.Context, cfg *config.Config) error {
	logger := logging.NewLogger(logging.WithLevel(cfg.LogLevel))
	defer func() { _ = logging.Sync(logger) }()

	strategy, err := buildStrategy(cfg.Exchange, cfg.Market)
	if err != nil {
		return err
	}

	sink := make(chan websocket.Message, cfg.SinkBuffer)
	opts := []websocket.Option{
		websocket.WithLogger(logger),
		websocket.WithMaxReconnectAttempts(cfg.MaxReconnectAttempts),
	}
	if cfg.Proxy != "" {
		opts = append(opts, websocket.WithProxy(cfg.Proxy))
	}
	if cfg.DialTimeoutSeconds > 0 {
		opts = append(opts, websocket.WithDialTimeout(cfg.DialTimeout()))
	}
	client := websocket.New(strategy, sink, opts...)

	if err := subscribeAll(client, cfg); err != nil {
		return err
	}

	if cfg.MetricsListen != "" {
		startHealthServer(cfg.MetricsListen, cfg.Exchange+"-"+cfg.Market, client, logger)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		for msg := range sink {
			if msg.Err != nil {
				logger.Warn("server rejection", logging.Error(msg.Err))
				continue
			}
			os.Stdout.Write(msg.Data)
			os.Stdout.Write([]byte("\n"))
		}
	}()

	logger.Info("starting stream",
		logging.String("exchange", cfg.Exchange),
		logging.String("market", cfg.Market),
		logging.Int("symbols", len(cfg.Symbols)))

	err = client.Run(ctx)
	if err != nil {
		logger.Error("stream terminated", logging.Error(err))
	}
	return err
}

func subscribeAll(client *websocket.Client, cfg *config.Config) error {
	if len(cfg.Symbols) > 0 {
		for _, name := range cfg.Channels {
			channel, ok := channelNames[name]
			if !ok {
				return fmt.Errorf("unknown channel %q", name)
			}
			var err error
			switch channel {
			case interfaces.ChannelTrade:
				err = client.SubscribeTrade(cfg.Symbols)
			case interfaces.ChannelOrderbook:
				err = client.SubscribeOrderbook(cfg.Symbols)
			case interfaces.ChannelOrderbookTopK:
				err = client.SubscribeOrderbookTopK(cfg.Symbols)
			case interfaces.ChannelBBO:
				err = client.SubscribeBBO(cfg.Symbols)
			case interfaces.ChannelTicker:
				err = client.SubscribeTicker(cfg.Symbols)
			}
			if err != nil {
				return fmt.Errorf("subscribe %s: %w", name, err)
			}
		}

		if len(cfg.CandlestickIntervals) > 0 {
			var subs []interfaces.CandlestickSubscription
			for _, symbol := range cfg.Symbols {
				for _, interval := range cfg.CandlestickIntervals {
					subs = append(subs, interfaces.CandlestickSubscription{
						Symbol:          symbol,
						IntervalSeconds: interval,
					})
				}
			}
			if err := client.SubscribeCandlestick(subs); err != nil {
				return fmt.Errorf("subscribe candlesticks: %w", err)
			}
		}
	}

	if cfg.ListenKey != "" {
		if err := client.SubscribeUserData(cfg.ListenKey); err != nil {
			return fmt.Errorf("subscribe user data: %w", err)
		}
	}
	return nil
}

func startHealthServer(addr, name string, client *websocket.Client, logger logging.Logger) {
	collector := metrics.NewCollector()
	collector.Watch(name, client)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collector)

	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		health := client.GetHealth()
		w.Header().Set("Content-Type", "application/json")
		if health.State == websocket.StateFailed {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"state":                  health.State.String(),
			"failure_reason":         health.FailureReason,
			"total_connections":      health.TotalConnections,
			"successful_connections": health.SuccessfulConnections,
			"failed_connections":     health.FailedConnections,
			"reconnection_attempts":  health.ReconnectionAttempts,
			"ping_failures":          health.PingFailures,
			"uptime_seconds":         int64(health.Uptime / time.Second),
			"last_activity":          health.LastActivity,
			"last_error":             health.LastError,
		})
	})

	server := &http.Server{Addr: addr, Handler: router}
	go func() {
		logger.Info("health server listening", logging.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server stopped", logging.Error(err))
		}
	}()
}
