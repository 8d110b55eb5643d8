package main

import (
	"context"
	"fmt"
	"path/filepath"

	"banditArena/business/arena"
	"banditArena/internal/repository/jsonl"
	psqlRepo "banditArena/internal/repository/postgres"
	redisRepo "banditArena/internal/repository/redis"
	"banditArena/pkg/config"
	"banditArena/pkg/database"
	redisdb "banditArena/pkg/database/redis"
	"banditArena/pkg/logger"
)

type stores struct {
	sink     arena.ResultSink
	source   arena.ResultSource
	progress arena.ProgressStore
	close    func()
}

// openStores builds the result sink and progress store selected by SINK and
// PROGRESS.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	s := &stores{}
	var closers []func()
	s.close = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.NeedsPostgres() {
		db, err := database.InitPostgres(cfg)
		if err != nil {
			return nil, err
		}
		closers = append(closers, func() { _ = database.ClosePostgres(db) })
		if err := psqlRepo.Migrate(db); err != nil {
			s.close()
			return nil, err
		}
		logger.Info("Database connected successfully")

		if cfg.Storage.Sink == config.SinkPostgres {
			repo := psqlRepo.NewTrialResultRepository(db)
			s.sink, s.source = repo, repo
		}
		if cfg.Storage.Progress == config.ProgressPostgres {
			s.progress = psqlRepo.NewTaskProgressRepository(db)
		}
	}

	if cfg.Storage.Sink == config.SinkJSONL {
		repo := jsonl.NewResultRepository(cfg.Storage.ResultsDir)
		s.sink, s.source = repo, repo
	}

	switch cfg.Storage.Progress {
	case config.ProgressFile:
		s.progress = jsonl.NewProgressRepository(filepath.Join(cfg.Storage.ResultsDir, "progress.json"))
	case config.ProgressRedis:
		client, err := redisdb.NewRedisClient(cfg)
		if err != nil {
			s.close()
			return nil, err
		}
		closers = append(closers, func() { _ = redisdb.CloseRedisClient(client) })
		s.progress = redisRepo.NewProgressRepository(client, cfg.Redis.RedisKey)
		logger.Info("Redis connected successfully")
	}

	return s, nil
}
