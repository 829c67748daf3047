// goldmined runs the gateway's three long-lived servers in one process:
// QuoteSource (tick distribution), BrokerServer (order routing, backed
// by the reference matching adapter), and a Prometheus metrics
// exporter. A background generator feeds synthetic ticks into
// QuoteSource so the demo has market data to subscribe to without a
// real exchange feed.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rishav/goldmine/internal/broker"
	"github.com/rishav/goldmine/internal/config"
	"github.com/rishav/goldmine/internal/fixedpoint"
	"github.com/rishav/goldmine/internal/metrics"
	"github.com/rishav/goldmine/internal/model"
	"github.com/rishav/goldmine/internal/quotesource"
	"github.com/rishav/goldmine/internal/refbroker"
	"github.com/rishav/goldmine/internal/refbroker/settlement"
	"github.com/rishav/goldmine/internal/transport"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file; defaults built in if omitted")
	symbolsFlag := flag.String("symbols", "AAPL,GOOGL,MSFT,AMZN,TSLA", "tradable symbols, comma separated")
	accountsFlag := flag.String("accounts", "TRADER1,TRADER2,MM1,MM2", "accounts the reference broker adapter will accept, comma separated")
	tickInterval := flag.Duration("tick-interval", 500*time.Millisecond, "interval between synthetic ticks per symbol")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "goldmined: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	logger, err := buildLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "goldmined: logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	symbols := splitNonEmpty(*symbolsFlag)
	accounts := splitNonEmpty(*accountsFlag)

	reg := transport.Default()
	mreg := metrics.New()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(mreg.Collectors()...)

	var cache *settlement.RedisPositionCache
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		cache = settlement.NewRedisPositionCache(rdb, "goldmine:positions")
		logger.Info("refbroker position cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	adapter := refbroker.New(accounts, symbols, cache, logger.Named("refbroker"))
	defer adapter.Stop()

	qsServer, err := quotesource.NewServer(reg, cfg.QuoteSource.ListenAddr, logger.Named("quotesource"))
	if err != nil {
		logger.Fatal("quotesource listen failed", zap.Error(err))
	}
	qsServer.SetMetrics(mreg)

	brokerServer, err := broker.NewServer(reg, cfg.Broker.ListenAddr, []broker.Adapter{adapter}, reg, cfg.Broker.TradeSinkAddr, logger.Named("broker"))
	if err != nil {
		logger.Fatal("broker listen failed", zap.Error(err))
	}
	brokerServer.SetMetrics(mreg)

	go qsServer.Serve()
	go brokerServer.Serve()

	genStop := make(chan struct{})
	genDone := make(chan struct{})
	go runTickGenerator(qsServer, symbols, *tickInterval, mreg, genStop, genDone)

	var metricsSrv *http.Server
	if cfg.Metrics.ListenAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: cfg.Metrics.ListenAddr, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	logger.Info("goldmined started",
		zap.String("quotesource_addr", cfg.QuoteSource.ListenAddr),
		zap.String("broker_addr", cfg.Broker.ListenAddr),
		zap.Strings("symbols", symbols),
		zap.Strings("accounts", accounts),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown signal received")

	close(genStop)
	<-genDone

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(ctx)
	}
	qsServer.Stop()
	brokerServer.Stop()
	logger.Info("goldmined stopped")
}

// runTickGenerator publishes a synthetic random-walk tick per symbol on
// every interval tick, standing in for a real exchange feed. Started as
// part of goldmined's demo wiring; a production deployment would
// replace this with a real market-data ingest feeding qsServer.Publish.
func runTickGenerator(qsServer *quotesource.Server, symbols []string, interval time.Duration, mreg *metrics.Registry, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prices := make(map[string]float64, len(symbols))
	for _, s := range symbols {
		prices[s] = 100 + rand.Float64()*100
	}

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			for _, symbol := range symbols {
				prices[symbol] += (rand.Float64() - 0.5) * 0.5
				if prices[symbol] < 1 {
					prices[symbol] = 1
				}
				tick := model.NewTick(fixedpoint.FromFloat(prices[symbol]), int32(100+rand.Intn(900)))
				qsServer.Publish(symbol, tick)
			}
		}
	}
}

func buildLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	if !cfg.JSON {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
