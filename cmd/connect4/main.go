package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/fPolic/Connect4-MPI/config"
	"github.com/fPolic/Connect4-MPI/coordinator"
	"github.com/fPolic/Connect4-MPI/shell"
	"github.com/fPolic/Connect4-MPI/transport"
	"github.com/fPolic/Connect4-MPI/worker"
)

var (
	GitVersion string
)

func setupLogging(debug bool) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	output.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}
	output.FormatMessage = func(i interface{}) string {
		return fmt.Sprintf("%s", i)
	}
	output.FormatFieldName = func(i interface{}) string {
		return fmt.Sprintf("%s:", i)
	}

	var logger zerolog.Logger
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		logger = zerolog.New(output).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		logger = zerolog.New(output).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	}
	zerolog.DefaultContextLogger = &logger
	log.Logger = logger
	logger.Debug().Msg("Debug logging is on")
}

func main() {
	cfg := config.DefaultConfig()
	if err := cfg.Load(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	setupLogging(cfg.GetBool(config.ConfigDebug))
	log.Info().Str("version", GitVersion).Interface("config", cfg.SanitizedSettings()).Msg("loaded config")

	if cfg.GetString(config.ConfigCPUProfile) != "" {
		f, err := os.Create(cfg.GetString(config.ConfigCPUProfile))
		if err != nil {
			panic("could not create CPU profile: " + err.Error())
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			panic("could not start CPU profile: " + err.Error())
		}
		defer pprof.StopCPUProfile()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	g, gctx := errgroup.WithContext(ctx)
	var hub transport.Hub
	workers := cfg.GetInt(config.ConfigWorkers)

	switch cfg.GetString(config.ConfigTransport) {
	case config.TransportNATS:
		nc, err := transport.DialNATS(ctx, cfg.GetString(config.ConfigNatsURL), "connect4-coordinator")
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer nc.Close()
		log.Info().Int("workers", workers).Msg("waiting for workers")
		hub, err = transport.NewNATSHub(ctx, nc, cfg.GetString(config.ConfigNatsSubject), workers)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to gather workers")
		}
	default:
		local, links := transport.NewLocal(workers)
		agentConfig := worker.DefaultAgentConfig(cfg)
		for _, l := range links {
			agent := worker.NewAgent(l, agentConfig)
			g.Go(func() error { return agent.Run(gctx) })
		}
		hub = local
	}

	coord := coordinator.New(hub, coordinator.ConfigFrom(cfg))
	sc, err := shell.NewShellController(cfg, coord, os.Stdout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up the board")
	}

	if err := sc.Loop(gctx); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("shell stopped")
	}

	if err := coord.Close(); err != nil {
		log.Error().Err(err).Msg("failed to shut down workers")
	}
	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("worker failed")
	}
	log.Info().Msg("gracefully shutting down")
}
