package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"sentinela/internal/ai"
	"sentinela/internal/cache"
	"sentinela/internal/config"
	"sentinela/internal/monitor"
	"sentinela/internal/sources"
	"sentinela/internal/storage"
	"sentinela/internal/targets"
	"sentinela/internal/utils"
)

var (
	configPath = flag.String("config", "config.toml", "Path to configuration file")
	debug      = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		fmt.Printf("\nReceived signal: %v\n", sig)
		fmt.Println("Shutting down gracefully...")
		cancel()
	}()

	if err := run(ctx); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run(ctx context.Context) error {
	fmt.Printf("Loading configuration from: %s\n", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	evaluator, embedder, err := buildAI(ctx, cfg)
	if err != nil {
		return err
	}

	adapters, err := buildAdapters(cfg, logger)
	if err != nil {
		return err
	}

	sink, err := buildSink(cfg)
	if err != nil {
		return err
	}

	ledger, err := storage.OpenLedger(cfg.Storage.LedgerPath)
	if err != nil {
		return err
	}
	defer ledger.Close()

	c := cache.Open(
		cfg.Storage.CachePath,
		config.Duration(cfg.Topics.Retention),
		config.Duration(cfg.Topics.Cooldown),
		logger,
	)

	articles := utils.NewArticleFetcher(config.Duration(cfg.Monitor.CheckInterval), 4000, logger)

	m := monitor.New(cfg, adapters, c, ledger, sink, evaluator, embedder, articles, logger)
	m.Start(ctx)

	fmt.Println("Monitor stopped successfully")
	return nil
}

func buildAI(ctx context.Context, cfg *config.Config) (ai.Evaluator, ai.Embedder, error) {
	var evaluator ai.Evaluator
	var err error

	switch cfg.AI.Backend {
	case "gemini":
		evaluator, err = ai.NewGemini(ctx)
	default:
		evaluator, err = ai.NewOllama()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create ai backend: %w", err)
	}

	if cfg.AI.RequestsPerMin > 0 {
		evaluator = ai.Limit(evaluator, cfg.AI.RequestsPerMin)
	}

	embedder, err := ai.NewOllamaEmbedder(cfg.AI.EmbedModel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return evaluator, embedder, nil
}

func buildAdapters(cfg *config.Config, logger *slog.Logger) ([]sources.Adapter, error) {
	var adapters []sources.Adapter

	socialClient := sources.NewSocialClient(cfg.Sources.SocialAPI, logger)
	for _, src := range cfg.Sources.Social {
		if !src.Enabled {
			continue
		}
		adapters = append(adapters, sources.NewSocialAdapter(src, socialClient, logger))
	}

	for _, src := range cfg.Sources.Feeds {
		if !src.Enabled {
			continue
		}
		adapters = append(adapters, sources.NewFeedAdapter(src, logger))
	}

	for _, src := range cfg.Sources.Scrapes {
		if !src.Enabled {
			continue
		}
		adapter, err := sources.NewScrapeAdapter(src, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create scrape source %s: %w", src.Name, err)
		}
		adapters = append(adapters, adapter)
	}

	return adapters, nil
}

func buildSink(cfg *config.Config) (monitor.Sink, error) {
	switch cfg.Sink.Type {
	case "discord", "":
		sink, err := targets.NewDiscordSink(cfg.Sink.Token, cfg.Sink.ChannelID)
		if err != nil {
			return nil, fmt.Errorf("failed to create discord sink: %w", err)
		}
		return sink, nil
	default:
		return nil, fmt.Errorf("unsupported sink type: %s", cfg.Sink.Type)
	}
}
