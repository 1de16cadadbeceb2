package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/redis"
	"github.com/vncsmyrnk/livepoll/internal/config"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
	"github.com/vncsmyrnk/livepoll/internal/core/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	var dbConf postgres.Config
	var timeout time.Duration

	flag.StringVar(&dbConf.Host, "db-host", cfg.Postgres.Host, "Database host")
	flag.StringVar(&dbConf.Port, "db-port", cfg.Postgres.Port, "Database port")
	flag.StringVar(&dbConf.User, "db-user", cfg.Postgres.User, "Database user")
	flag.StringVar(&dbConf.Password, "db-pass", cfg.Postgres.Password, "Database password")
	flag.StringVar(&dbConf.DBName, "db-name", cfg.Postgres.DB, "Database name")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "Maximum job duration")
	flag.Parse()

	// Use a timeout for the job execution to prevent it from hanging indefinitely
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := postgres.Open(ctx, dbConf.ConnString())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	retryOpt := postgres.WithRetry(cfg.StorageRetryAttempts, cfg.StorageRetryDelay)
	pollRepo := postgres.NewPollRepository(db, retryOpt)
	resultRepo := postgres.NewPollResultRepository(db, retryOpt)

	// Counts come from wherever the server records votes.
	var voteRepo ports.VoteRepository
	if cfg.VoteLedger == config.BackendRedis {
		client, err := redis.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		voteRepo = redis.NewVoteRepository(client, "livepoll")
	} else {
		voteRepo = postgres.NewVoteRepository(db, retryOpt)
	}

	ledger := services.NewVoteLedger(pollRepo, voteRepo, false)
	aggregator := services.NewResultsAggregator(pollRepo, ledger)
	summaryService := services.NewSummaryService(pollRepo, aggregator, resultRepo, logger)

	logger.Info("starting results snapshot job")
	start := time.Now()

	if err := summaryService.SummarizeAllVotes(ctx); err != nil {
		logger.Error("failed to summarize votes", "error", err)
		os.Exit(1)
	}

	logger.Info("results snapshot job completed", "duration_ms", time.Since(start).Milliseconds())
}
