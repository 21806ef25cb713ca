// Command currentvalued serves one current value over HTTP.
//
// The value is fed from a Redis pub/sub channel when REDIS_URL is set, otherwise from
// an internal heartbeat. Clients read it from:
//
//	GET /current  JSON snapshot
//	GET /events   Server-Sent Events
//	GET /ws       WebSocket
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/currentvalue/internal/config"
	"github.com/dmitrymomot/currentvalue/internal/logger"
	"github.com/dmitrymomot/currentvalue/pkg/currentvalue"
	"github.com/dmitrymomot/currentvalue/pkg/redisfeed"
)

type appConfig struct {
	HTTPAddr          string        `env:"HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"1s"`
	StreamRateLimit   float64       `env:"STREAM_RATE_LIMIT" envDefault:"0"`
	StreamKeepAlive   time.Duration `env:"STREAM_KEEPALIVE" envDefault:"30s"`
	AllowAnyOrigin    bool          `env:"WS_ALLOW_ANY_ORIGIN" envDefault:"false"`
}

func main() {
	var (
		logCfg   logger.Config
		cfg      appConfig
		redisCfg redisfeed.Config
	)
	config.MustLoad(&logCfg)
	config.MustLoad(&cfg)
	config.MustLoad(&redisCfg)

	log := logger.New(logCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, cfg, redisCfg); err != nil {
		log.Error("daemon stopped with error", logger.Error(err))
		os.Exit(1)
	}
	log.Info("daemon stopped")
}

func run(ctx context.Context, log *slog.Logger, cfg appConfig, redisCfg redisfeed.Config) error {
	b := currentvalue.New(json.RawMessage(`null`), currentvalue.WithLogger(log))
	defer b.Finish()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newHandler(b, cfg, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	if redisCfg.ConnectionURL != "" {
		client, err := redisfeed.Connect(gctx, redisCfg)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		feed := redisfeed.NewFeed(client, redisCfg, redisfeed.JSONDecoder[json.RawMessage](),
			redisfeed.WithLogger(log))
		g.Go(func() error {
			if err := feed.Run(gctx, b); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else {
		log.Info("REDIS_URL not set, using heartbeat producer", logger.Duration(cfg.HeartbeatInterval))
		g.Go(func() error {
			return heartbeat(gctx, b, cfg.HeartbeatInterval)
		})
	}

	g.Go(func() error {
		log.Info("http server starting", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		// Completes every open stream so Shutdown does not wait on them.
		b.Finish()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
