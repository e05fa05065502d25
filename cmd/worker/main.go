package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fPolic/Connect4-MPI/config"
	"github.com/fPolic/Connect4-MPI/transport"
	"github.com/fPolic/Connect4-MPI/worker"
)

func main() {
	cfg := config.DefaultConfig()
	if err := cfg.Load(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Set up logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.GetBool(config.ConfigDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	log.Info().Interface("config", cfg.SanitizedSettings()).Msg("loaded config")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	id := cfg.GetInt(config.ConfigWorkerID)
	nc, err := transport.DialNATS(ctx, cfg.GetString(config.ConfigNatsURL), "connect4-worker-"+strconv.Itoa(id))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to nats")
	}
	defer nc.Close()

	link, err := transport.NewNATSLink(ctx, nc, cfg.GetString(config.ConfigNatsSubject), id)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to announce worker")
	}

	w := worker.NewAgent(link, worker.DefaultAgentConfig(cfg))
	if err := w.Run(ctx); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("worker failed")
	}
	log.Info().Msg("worker stopped")
}
