package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/bank-notifier/internal/api"
	"github.com/dvloznov/bank-notifier/internal/api/handlers"
	"github.com/dvloznov/bank-notifier/internal/app"
	"github.com/dvloznov/bank-notifier/internal/config"
	"github.com/dvloznov/bank-notifier/internal/ingest"
	"github.com/dvloznov/bank-notifier/internal/jobs/inmemory"
	"github.com/dvloznov/bank-notifier/internal/logger"
	"github.com/dvloznov/bank-notifier/internal/notification"
	"github.com/dvloznov/bank-notifier/internal/requestlog"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	log := logger.WithFields(logger.NewWithLevel(os.Stdout, cfg.LogLevel), map[string]interface{}{
		"service": "api",
	})

	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		log.Warn().Err(envErr).Msg("Failed to load .env file")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("Server exited with error")
		stop()
		os.Exit(1)
	}

	log.Info().Msg("Server exited")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	parser := notification.DefaultRouter(log)

	sink, err := app.NewSink(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close sink")
		}
	}()

	var (
		opts   []ingest.Option
		reqLog handlers.RequestLog
	)

	if cfg.RequestLogEnabled() {
		store, err := requestlog.Open(cfg.DBFilename)
		if err != nil {
			return fmt.Errorf("opening request log: %w", err)
		}
		defer store.Close()

		opts = append(opts, ingest.WithJournal(store))
		reqLog = store
		log.Info().Str("db", cfg.DBFilename).Msg("Request log enabled")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	var jobQueue *inmemory.Queue
	if cfg.SinkMode == config.ModeAsync {
		jobQueue = inmemory.NewQueue(cfg.QueueBuffer, jobStore,
			inmemory.WithWorkers(cfg.QueueWorkers),
			inmemory.WithMaxRetries(cfg.QueueMaxRetries),
			inmemory.WithLogger(log),
		)
		opts = append(opts, ingest.WithPublisher(jobQueue))
	}

	svc := ingest.NewService(parser, sink, log, opts...)

	// Workers outlive the signal so in-flight deliveries can finish during shutdown.
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	if jobQueue != nil {
		if err := jobQueue.Start(workerCtx, svc.Deliver); err != nil {
			return fmt.Errorf("starting job queue: %w", err)
		}
	}

	handler := api.NewHandler(api.Routes{
		Notifications: handlers.NewNotificationsHandler(svc, sink.Label, log),
		Health:        handlers.NewHealthHandler(parser.Packages),
		Jobs:          handlers.NewJobsHandler(jobStore, log),
		Requests:      handlers.NewRequestsHandler(reqLog, log),
		BasicAuthUser: cfg.BasicAuthUser,
		BasicAuthPass: cfg.BasicAuthPass,
	}, log)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().
			Str("port", cfg.Port).
			Str("sink", sink.Name()).
			Str("mode", cfg.SinkMode).
			Strs("packages", parser.Packages()).
			Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}

		// Stop job queue and wait for in-flight jobs
		if jobQueue != nil {
			if err := jobQueue.Stop(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Error stopping job queue")
			}
		}
		return nil
	})

	return g.Wait()
}
