package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/time/rate"

	"github.com/vncsmyrnk/livepoll/internal/adapters/events"
	"github.com/vncsmyrnk/livepoll/internal/adapters/handler/http"
	"github.com/vncsmyrnk/livepoll/internal/adapters/live"
	"github.com/vncsmyrnk/livepoll/internal/adapters/messaging/rabbitmq"
	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/redis"
	"github.com/vncsmyrnk/livepoll/internal/config"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
	"github.com/vncsmyrnk/livepoll/internal/core/services"
	"github.com/vncsmyrnk/livepoll/internal/metrics"
)

const eventBufferSize = 1024

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	deps, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close()

	store := services.NewPollStore(deps.polls)
	ledger := services.NewVoteLedger(deps.polls, deps.votes, cfg.VoteUniqueVoter)
	results := services.NewResultsAggregator(deps.polls, ledger)

	hub := live.NewHub(results, logger)
	handlers := []ports.EventHandler{metrics.EventCounter{}, hub}
	if deps.publisher != nil {
		handlers = append(handlers, deps.publisher)
	}
	bus := events.NewBus(eventBufferSize, logger, handlers...)

	pollService := services.NewPollService(store, ledger, results, bus, logger)

	var (
		voters         ports.VoterTokenService
		sessionHandler *http.SessionHandler
	)
	if cfg.VoterTokenSecret != "" {
		voters, err = services.NewVoterTokenService(cfg.VoterTokenSecret, cfg.VoterTokenTTL)
		if err != nil {
			return err
		}
		sessionHandler = http.NewSessionHandler(voters, cfg.VoterTokenTTL, cfg.CookieDomain, cfg.CookieSecure)
	} else if cfg.VoteUniqueVoter {
		logger.Warn("VOTE_UNIQUE_VOTER is set but VOTER_TOKEN_SECRET is empty, every vote will be anonymous")
	}

	handler := http.NewHandler(
		http.RouterOptions{
			Logger:         logger,
			AllowedOrigins: cfg.CORSAllowedOrigins,
			VoteRateLimit:  rate.Limit(cfg.VoteRateLimit),
			VoteRateBurst:  cfg.VoteRateBurst,
			Ready:          deps.ready,
		},
		http.NewPollHandler(pollService),
		http.NewVoteHandler(pollService, voters),
		sessionHandler,
		http.NewLiveHandler(hub, cfg.CORSAllowedOrigins, logger),
	)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		hub.Run(workerCtx)
	}()
	go func() {
		defer wg.Done()
		bus.Run(workerCtx)
	}()

	server := &stdhttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening",
			"addr", cfg.HTTPAddr,
			"poll_store", cfg.PollStore,
			"vote_ledger", cfg.VoteLedger,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		stopWorkers()
		wg.Wait()
		return err
	}

	logger.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = server.Shutdown(shutdownCtx)

	// Stop the workers only once no handler can publish anymore, so the bus
	// drains every accepted event.
	stopWorkers()
	wg.Wait()

	return err
}

type backends struct {
	polls     ports.PollRepository
	votes     ports.VoteRepository
	publisher *rabbitmq.Publisher

	db     *sql.DB
	redis  *goredis.Client
	amqp   *amqp.Connection
	logger *slog.Logger
}

func openBackends(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backends, error) {
	b := &backends{logger: logger}
	retryOpt := postgres.WithRetry(cfg.StorageRetryAttempts, cfg.StorageRetryDelay)

	if cfg.PollStore == config.BackendPostgres {
		connStr := postgres.Config{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			DBName:   cfg.Postgres.DB,
		}.ConnString()

		db, err := postgres.Open(ctx, connStr)
		if err != nil {
			return nil, err
		}
		b.db = db
		b.polls = postgres.NewPollRepository(db, retryOpt)
	} else {
		b.polls = memory.NewPollRepository()
	}

	switch cfg.VoteLedger {
	case config.BackendPostgres:
		b.votes = postgres.NewVoteRepository(b.db, retryOpt)
	case config.BackendRedis:
		client, err := redis.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			b.close()
			return nil, err
		}
		b.redis = client
		b.votes = redis.NewVoteRepository(client, "livepoll")
	default:
		b.votes = memory.NewVoteRepository()
	}

	if cfg.RabbitMQURL != "" {
		conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, logger)
		if err != nil {
			b.close()
			return nil, err
		}
		b.amqp = conn

		publisher, err := rabbitmq.NewPublisher(conn, cfg.RabbitMQQueue)
		if err != nil {
			b.close()
			return nil, err
		}
		b.publisher = publisher
	}

	return b, nil
}

func (b *backends) ready(ctx context.Context) error {
	if b.db != nil {
		if err := b.db.PingContext(ctx); err != nil {
			return err
		}
	}
	if b.redis != nil {
		if err := b.redis.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (b *backends) close() {
	if b.publisher != nil {
		if err := b.publisher.Close(); err != nil {
			b.logger.Warn("failed to close rabbitmq channel", "error", err)
		}
	}
	if b.amqp != nil {
		_ = b.amqp.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.db != nil {
		_ = b.db.Close()
	}
}
