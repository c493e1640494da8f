package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	_ "go.uber.org/automaxprocs"

	"github.com/trendlab/pulse/config"
	"github.com/trendlab/pulse/src/bridge"
	"github.com/trendlab/pulse/src/cache"
	"github.com/trendlab/pulse/src/hub"
	"github.com/trendlab/pulse/src/monitor"
	"github.com/trendlab/pulse/src/server"
	"github.com/trendlab/pulse/src/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr).With().Timestamp().Logger()
		l.Fatal().Err(err).Msg("configuration failed")
	}
	logger := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := hub.New(hub.Config{
		DispatchInterval:  cfg.DispatchInterval,
		DispatchBatchSize: cfg.DispatchBatchSize,
		SendBuffer:        cfg.SendBuffer,
		SampleInterval:    cfg.SampleInterval,
		ResetInterval:     cfg.ResetInterval,
		IdleTimeout:       cfg.IdleTimeout,
		EvictionInterval:  cfg.EvictionInterval,
	}, logger)

	kv, redisCache := newKV(ctx, cfg, logger)
	keeper := cache.NewEventKeeper(kv, cfg.CacheTTL)
	h.SetCache(keeper)

	svc := service.New(h, keeper, logger)

	// Cross-instance relay. Redis being down is not fatal; the hub runs
	// standalone and serves local traffic only.
	var relay *bridge.RedisBridge
	rb := bridge.NewRedisBridge(bridge.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Prefix:   cfg.RedisPrefix,
	}, h, logger)
	if err := rb.Start(); err != nil {
		logger.Warn().Err(err).Msg("redis bridge unavailable, running standalone")
	} else {
		relay = rb
		h.SetBridge(rb)
	}

	// System metrics feed: real pool stats when a database is configured,
	// static samples otherwise.
	var mon monitor.Monitor = monitor.Static{}
	var pool *monitor.PoolMonitor
	if cfg.DatabaseURL != "" {
		pool, err = monitor.NewPoolMonitor(ctx, cfg.DatabaseURL, cfg.SlowQueryThreshold, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("database monitor unavailable, reporting static samples")
		} else {
			mon = pool
		}
	}

	go h.Run(ctx)
	go svc.RunSystemMetrics(ctx, mon, cfg.SystemMetricInterval)

	srv := server.New(h, svc, keeper, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Listen(cfg.Addr) }()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}

	h.Shutdown()

	if relay != nil {
		if err := relay.Stop(); err != nil {
			logger.Error().Err(err).Msg("bridge stop error")
		}
	}
	if redisCache != nil {
		_ = redisCache.Close()
	}
	if pool != nil {
		pool.Close()
	}
	logger.Info().Msg("server stopped")
}

// newKV picks the cache backend: Redis when reachable, in-process otherwise.
func newKV(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (cache.Cache, *cache.Redis) {
	r, err := cache.NewRedis(ctx, cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Prefix:   cfg.RedisPrefix,
	}, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("redis cache unavailable, using in-process cache")
		return cache.NewMemory(cfg.MemoryCacheSize, cfg.CacheTTL), nil
	}
	return r, r
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}
