package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/livepoll/internal/config"
)

const usage = "usage: migrations up | down | <migration name>"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if len(os.Args) < 2 {
		logger.Error(usage)
		os.Exit(2)
	}

	if err := run(os.Args[1], logger); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
}

func run(arg string, logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	basePath := filepath.Join(".", "internal", "adapters", "repository", "postgres", "migrations")
	files, err := postgres.MigrationFiles(basePath, arg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := postgres.Open(ctx, postgres.Config{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		DBName:   cfg.Postgres.DB,
	}.ConnString())
	if err != nil {
		return err
	}
	defer db.Close()

	for _, name := range files {
		if err := postgres.ExecMigration(ctx, db, basePath, name); err != nil {
			return err
		}
		logger.Info("migration file executed", "file", name)
	}
	return nil
}
