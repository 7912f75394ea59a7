// Package main runs the deckforge REST API server: the card repository,
// the LLM-backed deck builder, and the deck store behind one HTTP surface.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ramonehamilton/deckforge/internal/api"
	"github.com/ramonehamilton/deckforge/internal/builder"
	"github.com/ramonehamilton/deckforge/internal/cache"
	"github.com/ramonehamilton/deckforge/internal/config"
	"github.com/ramonehamilton/deckforge/internal/llm"
	"github.com/ramonehamilton/deckforge/internal/logging"
	"github.com/ramonehamilton/deckforge/internal/modify"
	"github.com/ramonehamilton/deckforge/internal/orchestrator"
	"github.com/ramonehamilton/deckforge/internal/quality"
	"github.com/ramonehamilton/deckforge/internal/repository"
	"github.com/ramonehamilton/deckforge/internal/storage"
	"github.com/ramonehamilton/deckforge/internal/vector"
	"github.com/ramonehamilton/deckforge/internal/version"
)

var (
	configPath = flag.String("config", "deckforge.toml", "Path to the TOML configuration file")
	dbPath     = flag.String("db-path", "", "Database path (overrides the config file)")
	port       = flag.Int("port", 0, "Listen port (overrides the config file)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.App.LogLevel,
		Development: cfg.App.DebugMode,
	})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbCfg := storage.DefaultConfig(cfg.Database.Path)
	dbCfg.AutoMigrate = cfg.Database.AutoMigrate
	db, err := storage.Open(dbCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("error closing database", zap.Error(err))
		}
	}()
	logger.Info("database opened", zap.String("path", cfg.Database.Path))

	cardStore := storage.NewCardStore(db)
	deckStore := storage.NewDeckStore(db)
	vectorStore := storage.NewVectorStore(db)

	tiered := cache.NewTiered(cache.TieredConfig{
		HotSize:            cfg.Cache.HotCapacity,
		WarmSize:           cfg.Cache.WarmCapacity,
		ColdSize:           cfg.Cache.ColdCapacity,
		PromotionThreshold: cfg.Cache.PromoteThreshold,
	})

	// The Gemini embedder needs a key; the characteristic embedder works
	// offline from card data alone.
	var embedder vector.Embedder = vector.NewCharacteristicEmbedder()
	if cfg.LLM.APIKey != "" {
		genaiEmbedder, err := vector.NewGenAIEmbedder(ctx, cfg.LLM.APIKey, "")
		if err != nil {
			logger.Warn("falling back to the characteristic embedder", zap.Error(err))
		} else {
			embedder = genaiEmbedder
		}
	}
	index := vector.NewIndex(vectorStore, embedder, logger)

	repo := repository.New(cardStore, index, tiered, logger)
	if n, err := repo.Count(ctx); err != nil {
		logger.Warn("catalog count failed", zap.Error(err))
	} else {
		logger.Info("catalog ready", zap.Int("cards", n))
	}

	var provider llm.Provider
	if cfg.LLM.APIKey == "" {
		logger.Warn("no LLM API key configured; deck plans will be land-only fills")
	} else {
		llmCfg := llm.DefaultConfig(cfg.LLM.APIKey)
		llmCfg.Model = cfg.LLM.Model
		llmCfg.MaxInFlight = int64(cfg.LLM.MaxInFlight)
		llmCfg.Temperature = float32(cfg.LLM.Temperature)
		gemini, err := llm.NewGeminiProvider(ctx, llmCfg, logger)
		if err != nil {
			return err
		}
		provider = gemini
	}

	b := builder.New(repo, provider, logger)
	analyzer := quality.NewAnalyzer(provider, logger)
	executor := modify.New(repo, provider, b, analyzer, logger)

	phaseTimeout, err := cfg.GetPhaseTimeout()
	if err != nil {
		return err
	}
	orch := orchestrator.New(b, analyzer, executor, deckStore, orchestrator.Config{
		QualityThreshold: cfg.Builder.QualityThreshold,
		MaxIterations:    cfg.Builder.MaxIterations,
		PhaseTimeout:     phaseTimeout,
	}, logger)

	requestTimeout, err := cfg.GetRequestTimeout()
	if err != nil {
		return err
	}
	server := api.NewServer(&api.Config{
		Addr:           cfg.Addr(),
		RequestTimeout: requestTimeout,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, orch, deckStore, logger)

	// Config edits retune the log level without a restart.
	go func() {
		if err := config.Watch(ctx, *configPath, logger, nil); err != nil {
			logger.Warn("config watcher stopped", zap.Error(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()
	logger.Info("deckforge running",
		zap.String("version", version.GetVersion()),
		zap.String("addr", cfg.Addr()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownTimeout, err := cfg.GetShutdownTimeout()
	if err != nil {
		shutdownTimeout = 0
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
