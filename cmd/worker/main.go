package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dvloznov/bank-notifier/internal/amqp"
	"github.com/dvloznov/bank-notifier/internal/app"
	"github.com/dvloznov/bank-notifier/internal/config"
	"github.com/dvloznov/bank-notifier/internal/ingest"
	"github.com/dvloznov/bank-notifier/internal/logger"
	"github.com/dvloznov/bank-notifier/internal/notification"
	"github.com/joho/godotenv"
)

// The worker relays transaction events published by the API's amqp sink
// into WORKER_SINK_BACKEND (notion, bigquery or none).
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.WithFields(logger.NewWithLevel(os.Stdout, cfg.LogLevel), map[string]interface{}{
		"service": "worker",
	})

	if err := cfg.ValidateWorker(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, err := app.NewSink(ctx, cfg.ForWorker(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create downstream sink")
	}
	defer sink.Close()

	// Deliver only touches the sink; the parser is never consulted here.
	svc := ingest.NewService(notification.DefaultRouter(log), sink, log)

	consumer, err := amqp.NewConsumer(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPRoutingKey, cfg.QueueWorkers, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to AMQP")
	}
	defer consumer.Close()

	log.Info().
		Str("queue", cfg.AMQPQueue).
		Str("sink", sink.Name()).
		Msg("Starting worker service")

	// Workers keep their own context so the message in flight can finish.
	if err := consumer.Start(context.Background(), svc.Deliver); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for transaction events...")
	<-ctx.Done()

	log.Info().Msg("Shutting down worker service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := consumer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker service exited")
}
