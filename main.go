package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"coinrates/internal/coinapi"
	"coinrates/internal/config"
	"coinrates/internal/metrics"
	"coinrates/internal/network"
	"coinrates/internal/ratelimit"
	"coinrates/internal/store"
)

func main() {
	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app holds everything a command needs, built once per invocation
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Collector

	marketData   *network.Executor
	exchangeRate *network.Executor
	client       *coinapi.Client
	redis        *store.Redis

	metricsServer *http.Server
}

type rootFlags struct {
	envFile     string
	logLevel    string
	metricsAddr string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		flags rootFlags
		a     = &app{}
	)

	cmd := &cobra.Command{
		Use:          "coinrates",
		Short:        "Fetch crypto exchange rates, history and exchange listings from CoinAPI",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context(), flags, stderr)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.shutdown(cmd.Context())
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "dotenv file to load (default .env if present)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	cmd.PersistentFlags().StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides METRICS_ADDR)")

	cmd.AddCommand(
		newRatesCmd(a),
		newHistoryCmd(a),
		newExchangesCmd(a),
		newIconsCmd(a),
	)
	return cmd
}

func (a *app) setup(ctx context.Context, flags rootFlags, stderr io.Writer) error {
	var envFiles []string
	if flags.envFile != "" {
		envFiles = append(envFiles, flags.envFile)
	}

	cfg, err := config.Load(envFiles...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if flags.metricsAddr != "" {
		cfg.MetricsAddr = flags.metricsAddr
	}
	a.cfg = cfg

	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	a.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)

	a.metrics = metrics.New()
	if cfg.MetricsAddr != "" {
		a.serveMetrics(cfg.MetricsAddr)
	}

	marketEndpoint := cfg.MarketDataEndpoint()
	rateEndpoint := cfg.ExchangeRateEndpoint()

	limiter := ratelimit.New()
	if cfg.RateLimitRPS > 0 {
		limiter.Set(marketEndpoint.Name, rate.Limit(cfg.RateLimitRPS), 1)
		limiter.Set(rateEndpoint.Name, rate.Limit(cfg.RateLimitRPS), 1)
	}

	opts := []network.Option{
		network.WithLimiter(limiter),
		network.WithMetrics(a.metrics),
		network.WithLogger(a.logger),
	}
	if a.marketData, err = network.NewExecutor(marketEndpoint, opts...); err != nil {
		return err
	}
	if a.exchangeRate, err = network.NewExecutor(rateEndpoint, opts...); err != nil {
		return err
	}

	clientOpts := []coinapi.ClientOption{
		coinapi.WithExchangeRateRequester(a.exchangeRate),
		coinapi.WithClientLogger(a.logger),
	}

	if cfg.RedisAddr != "" {
		r := store.NewRedis(store.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.RedisTTL(),
		})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := r.Ping(pingCtx)
		cancel()
		if err != nil {
			a.logger.Warn("redis unavailable, continuing without it", "addr", cfg.RedisAddr, "error", err)
			r.Close()
		} else {
			a.redis = r
			clientOpts = append(clientOpts, coinapi.WithCache(r, cfg.RedisTTL()))
		}
	}

	a.client = coinapi.NewClient(a.marketData, clientOpts...)
	return nil
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	a.metricsServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("serving metrics", "addr", addr)
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", "error", err)
		}
	}()
}

func (a *app) shutdown(ctx context.Context) error {
	var errs []error
	if a.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		errs = append(errs, a.metricsServer.Shutdown(shutdownCtx))
		cancel()
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.marketData != nil {
		errs = append(errs, a.marketData.Close())
	}
	if a.exchangeRate != nil {
		errs = append(errs, a.exchangeRate.Close())
	}
	return errors.Join(errs...)
}
