package cli

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rileyhilliard/streamwatch/internal/config"
	"github.com/rileyhilliard/streamwatch/internal/logger"
	"github.com/rileyhilliard/streamwatch/internal/simulator"
)

// redisConnectTimeout bounds the startup PING.
const redisConnectTimeout = 3 * time.Second

type simulateOptions struct {
	Listen   string
	Interval time.Duration
	Redis    bool
	SQLite   string
	Seed     uint64
}

// simulateCommand runs the development producer until interrupted.
func simulateCommand(ctx context.Context, opts simulateOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sim := cfg.Simulator
	if opts.Listen != "" {
		sim.Listen = opts.Listen
	}
	if opts.Interval > 0 {
		sim.Interval = opts.Interval
	}
	if opts.Redis {
		sim.Redis.Enabled = true
	}
	if opts.SQLite != "" {
		sim.SQLite.Path = opts.SQLite
	}

	log := logger.NewEnvLogger("[sim]")
	gin.SetMode(gin.ReleaseMode)

	simOpts := simulatorOptions(sim, cfg.Stream.Path, log)
	simOpts.Seed = opts.Seed

	if store, closeStore := historyStore(ctx, sim, log); store != nil {
		defer closeStore()
		simOpts.History = store
	}

	return simulator.NewServer(simOpts).Run(ctx, sim.Listen)
}

// historyStore picks the producer's history backend: Redis when enabled,
// then a SQLite file when a path is set. A backend that cannot be opened is
// logged and the in-memory history is used instead (nil store).
func historyStore(ctx context.Context, sim config.SimulatorConfig, log logger.Logger) (simulator.HistoryStore, func()) {
	if sim.Redis.Enabled {
		if store := redisHistory(ctx, sim, log); store != nil {
			return store, func() { _ = store.Close() }
		}
		return nil, nil
	}
	if sim.SQLite.Path != "" {
		path := config.ExpandTilde(sim.SQLite.Path)
		store, err := simulator.NewSQLiteHistory(path, sim.HistorySize, log)
		if err != nil {
			log.Warn("%v; keeping history in memory", err)
			return nil, nil
		}
		log.Info("persisting history to %s", path)
		return store, func() { _ = store.Close() }
	}
	return nil, nil
}

func redisHistory(ctx context.Context, sim config.SimulatorConfig, log logger.Logger) *simulator.RedisHistory {
	ctx, cancel := context.WithTimeout(ctx, redisConnectTimeout)
	defer cancel()

	store, err := simulator.NewRedisHistory(ctx, simulator.RedisOptions{
		Addr:     sim.Redis.Addr,
		Password: sim.Redis.Password,
		DB:       sim.Redis.DB,
		Key:      sim.Redis.Key,
		Limit:    sim.HistorySize,
		Logger:   log,
	})
	if err != nil {
		log.Warn("%v; keeping history in memory", err)
		return nil
	}
	log.Info("mirroring history to redis %s key %s", sim.Redis.Addr, sim.Redis.Key)
	return store
}
