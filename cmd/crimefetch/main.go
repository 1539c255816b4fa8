// Command crimefetch pulls LA City crime records for a set of reporting
// districts and date range, then writes them to a CSV file.
//
// All configuration comes from CRIMEFETCH_* environment variables; see
// internal/config. The process exits 0 even when retrieval or export
// fails: failures are reported through the log only.
package main

import (
	"context"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/opencivic/crimefetch/internal/config"
	"github.com/opencivic/crimefetch/pkg/export"
	"github.com/opencivic/crimefetch/pkg/fetch"
	"github.com/opencivic/crimefetch/pkg/logging"
	"github.com/opencivic/crimefetch/pkg/soda"
)

const userAgent = "crimefetch/0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config failed before logging was configured; use a minimal
		// console logger for the one message.
		logger := logging.Setup(logging.DefaultConfig())
		logger.Error().Err(err).Msg("Invalid configuration")
		return
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})

	ctx := context.Background()
	run(ctx, cfg, logger)
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) {
	logger.Info().
		Strs("districts", cfg.Districts).
		Str("start_date", cfg.StartDate).
		Str("end_date", cfg.EndDate).
		Str("output", cfg.Output).
		Msg("LA City crime data querier")

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.RedisAddr).
				Msg("Redis unreachable, response caching disabled")
			redisClient.Close()
			redisClient = nil
		}
	}

	client, err := soda.New(soda.Config{
		BaseURL:   cfg.BaseURL,
		AppToken:  cfg.AppToken,
		Redis:     redisClient,
		CacheTTL:  cfg.CacheTTL,
		UserAgent: userAgent,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create SODA client")
		return
	}

	fetcher := fetch.New(client, fetchConfig(cfg))

	filter := soda.Filter{
		Districts: cfg.Districts,
		StartDate: cfg.StartDate,
		EndDate:   cfg.EndDate,
	}

	records := fetcher.Retrieve(ctx, filter)
	if len(records) == 0 {
		logger.Warn().Msg("No data retrieved")
		return
	}

	if err := export.WriteCSV(records, cfg.Output); err != nil {
		logger.Error().Err(err).Msg("Export failed")
		return
	}

	logger.Info().Str("output", cfg.Output).Msg("Data successfully exported")
}

// fetchConfig maps run configuration onto the fetcher's knobs.
func fetchConfig(cfg config.Config) fetch.Config {
	fc := fetch.DefaultConfig()
	fc.PageSize = cfg.PageSize
	fc.BulkLimit = cfg.BulkLimit
	fc.PageInterval = cfg.PageInterval
	return fc
}
