package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Vodeneev/oddsmerge/internal/escalation"
	"github.com/Vodeneev/oddsmerge/internal/evaluator"
	"github.com/Vodeneev/oddsmerge/internal/pipeline"
	"github.com/Vodeneev/oddsmerge/internal/pkg/alias"
	pkgconfig "github.com/Vodeneev/oddsmerge/internal/pkg/config"
	"github.com/Vodeneev/oddsmerge/internal/pkg/enums"
	"github.com/Vodeneev/oddsmerge/internal/pkg/health"
	"github.com/Vodeneev/oddsmerge/internal/pkg/logging"
	"github.com/Vodeneev/oddsmerge/internal/pkg/metrics"
	"github.com/Vodeneev/oddsmerge/internal/pkg/models"
	"github.com/Vodeneev/oddsmerge/internal/pkg/storage"
	"github.com/Vodeneev/oddsmerge/internal/resolver"
	"github.com/Vodeneev/oddsmerge/internal/sources"

	// Register all supported sources via init().
	_ "github.com/Vodeneev/oddsmerge/internal/sources/all"
)

const (
	defaultConfigPath = "configs/oddsmerge.yaml"

	exitError = 1
	exitAbort = 2
)

type flags struct {
	configPath string
	once       bool
	interval   time.Duration
	sports     string
}

func main() {
	err := run()
	switch {
	case err == nil:
	case resolver.IsAbort(err):
		slog.Warn("Stopped by operator", "error", err)
		os.Exit(exitAbort)
	default:
		slog.Error("oddsmerge failed", "error", err)
		os.Exit(exitError)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env", "error", err)
	}

	f := parseFlags()
	appConfig, err := pkgconfig.Load(f.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if f.sports != "" {
		appConfig.Resolver.Sports = strings.Split(f.sports, ",")
	}
	if f.interval > 0 {
		appConfig.Resolver.Interval = f.interval
	}

	logger, logCloser, err := logging.SetupLogger(&appConfig.Logging, "oddsmerge")
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logCloser.Close()

	sports, bad, ok := enums.ParseSports(appConfig.Resolver.Sports)
	if !ok {
		return fmt.Errorf("unknown sport %q", bad)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := alias.OpenBackend(ctx, appConfig.AliasStore.Backend, appConfig.AliasStore.Path, appConfig.AliasStore.DSN)
	if err != nil {
		return fmt.Errorf("failed to open alias store: %w", err)
	}
	defer backend.Close()

	table, err := alias.Open(ctx, backend, logger)
	if err != nil {
		return err
	}
	table.OnLearn = func(source string, kind alias.Kind) {
		metrics.AliasesLearned.WithLabelValues(source, kind.String()).Inc()
	}

	escalator, closeEscalator, err := newEscalator(appConfig.Resolver)
	if err != nil {
		return err
	}
	defer closeEscalator.Close()

	srcs, err := sources.Build(appConfig.Resolver.Sources, sources.Deps{
		Config:     appConfig,
		Bookmakers: bookmakerRegistry(appConfig.Bookmakers),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	var eval evaluator.Evaluator = evaluator.Disabled{}
	if appConfig.Evaluator.URL != "" {
		eval = evaluator.NewHTTP(appConfig.Evaluator, logger)
	} else {
		logger.Warn("evaluator.url is empty, profit evaluation disabled")
	}

	var publisher storage.EventPublisher = storage.NopPublisher{}
	if appConfig.Publisher.RedisAddr != "" {
		p, err := storage.NewStreamPublisher(appConfig.Publisher)
		if err != nil {
			return err
		}
		publisher = p
	}
	defer publisher.Close()

	if addr, ok := health.AddrFor(appConfig.Health.Port); ok {
		health.Run(ctx, addr, "oddsmerge", appConfig.Health.ReadHeaderTimeout)
	}

	handler := pipeline.New(pipeline.Options{
		Sources:          srcs,
		Resolver:         resolver.New(table, escalator, logger),
		Leagues:          table,
		Evaluator:        eval,
		Results:          storage.NewResultWriter(appConfig.ResultsDir),
		Publisher:        publisher,
		Sports:           sports,
		GatherNewLeagues: appConfig.Resolver.GatherNewLeagues,
		Logger:           logger,
	})

	logger.Info("Starting oddsmerge",
		"sources", appConfig.Resolver.Sources,
		"sports", appConfig.Resolver.Sports,
		"escalation", appConfig.Resolver.Escalation,
		"interval", appConfig.Resolver.Interval)

	return loop(ctx, handler, appConfig.Resolver.Interval, f.once, logger)
}

// loop runs cycles until ctx is done. Failed cycles are retried on the next
// tick unless an operator aborted.
func loop(ctx context.Context, h *pipeline.Handler, interval time.Duration, once bool, logger *slog.Logger) error {
	for {
		_, err := h.Run(ctx)
		switch {
		case ctx.Err() != nil:
			logger.Info("Shutting down")
			return nil
		case resolver.IsAbort(err):
			return err
		case once:
			return err
		}

		select {
		case <-ctx.Done():
			logger.Info("Shutting down")
			return nil
		case <-time.After(interval):
		}
	}
}

func parseFlags() flags {
	var f flags

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = defaultConfigPath
	}

	flag.StringVar(&f.configPath, "config", defaultConfig, "Path to config file (can be set via CONFIG_PATH env var)")
	flag.BoolVar(&f.once, "once", false, "Run a single cycle and exit")
	flag.DurationVar(&f.interval, "interval", 0, "Pause between cycles. 0 = use config")
	flag.StringVar(&f.sports, "sport", "", "Comma separated sports overriding resolver.sports (e.g. 'football,tennis')")
	flag.Parse()
	return f
}

func newEscalator(cfg pkgconfig.ResolverConfig) (resolver.Escalator, io.Closer, error) {
	switch cfg.Escalation {
	case "telegram":
		t, err := escalation.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start telegram escalation: %w", err)
		}
		return t, t, nil
	case "auto":
		return escalation.Auto{Threshold: cfg.AutoThreshold}, noClose{}, nil
	case "reject":
		return escalation.Static(resolver.Reject), noClose{}, nil
	default:
		return escalation.NewTerminal(os.Stdin, os.Stdout), noClose{}, nil
	}
}

func bookmakerRegistry(cfg pkgconfig.BookmakersConfig) *models.BookmakerRegistry {
	known := make([]models.Bookmaker, 0, len(cfg.Known))
	for _, b := range cfg.Known {
		known = append(known, toBookmaker(b))
	}
	return models.NewBookmakerRegistry(toBookmaker(cfg.Default), known...)
}

func toBookmaker(b pkgconfig.BookmakerConfig) models.Bookmaker {
	return models.Bookmaker{
		Name:             b.Name,
		Commission:       b.Commission,
		Balance:          b.Balance,
		PercentOfBalance: b.PercentOfBalance,
		MaxWagerCount:    b.MaxWagerCount,
	}
}

type noClose struct{}

func (noClose) Close() error { return nil }
