package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maroco/major-mentor/internal/config"
	"github.com/maroco/major-mentor/internal/core/domain"
	"github.com/maroco/major-mentor/internal/core/ports"
	"github.com/maroco/major-mentor/internal/core/usecase"
	"github.com/maroco/major-mentor/internal/infrastructure/embedcache"
	"github.com/maroco/major-mentor/internal/infrastructure/llm/ollama"
	"github.com/maroco/major-mentor/internal/infrastructure/queue/nats"
	"github.com/maroco/major-mentor/internal/infrastructure/registry"
	"github.com/maroco/major-mentor/internal/infrastructure/repository/postgres"
	"github.com/maroco/major-mentor/internal/infrastructure/resilience"
	"github.com/maroco/major-mentor/internal/infrastructure/vector/qdrant"
)

// App wires the engine together. Both binaries build one and pick the
// pieces they serve.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Registry    *registry.Registry
	Cache       *embedcache.Cache
	Queue       *nats.Queue
	Transcripts *postgres.TranscriptRepository

	Resolver  *usecase.EntityResolver
	ChatUC    ports.ChatService
	Gateway   ports.CourseRetriever
	Directory ports.DepartmentDirectory

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	reg, err := registry.Load(cfg.RegistryDataDir)
	if err != nil {
		return nil, fmt.Errorf("load name registry: %w", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	transcripts := postgres.NewTranscriptRepository(db)
	if err := transcripts.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure transcript schema: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("init index event queue: %w", err)
	}

	exec := resilience.NewExecutor(resilience.DefaultConfig(), logger)
	llm := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, exec)
	index := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, exec)
	cache := embedcache.New(llm, index, reg, logger)

	resolver := usecase.NewEntityResolver(reg)
	matcher := usecase.NewDepartmentMatcher(reg, llm, cache)
	gateway := usecase.NewRetrievalGateway(llm, index, reg, logger)
	validator := usecase.NewEntityValidator(reg, matcher, domain.ValidatorPolicy(cfg.ValidatorPolicy), cfg.ValidatorThreshold)
	toolbox := usecase.NewToolbox(resolver, matcher, gateway, reg, cfg.ChatRetrieveK, cfg.MatcherTopK)
	directory := usecase.NewDepartmentDirectoryUseCase(reg, matcher)

	chatUC := usecase.NewChatUseCase(
		llm,
		toolbox,
		resolver,
		gateway,
		validator,
		transcripts,
		domain.OrchestratorLimits{
			MaxSteps:           cfg.ChatMaxSteps,
			TurnTimeout:        time.Duration(cfg.ChatTurnTimeoutSeconds) * time.Second,
			RetrieveK:          cfg.ChatRetrieveK,
			SelectMin:          cfg.ChatSelectMin,
			SelectMax:          cfg.ChatSelectMax,
			ValidatorPolicy:    domain.ValidatorPolicy(cfg.ValidatorPolicy),
			ValidatorThreshold: cfg.ValidatorThreshold,
		},
		logger,
	)

	return &App{
		Config: cfg,
		Logger: logger,

		Registry:    reg,
		Cache:       cache,
		Queue:       queue,
		Transcripts: transcripts,

		Resolver:  resolver,
		ChatUC:    chatUC,
		Gateway:   gateway,
		Directory: directory,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

// WarmCache builds the department-embedding table. Matching degrades to
// lexical-only until the first successful build, so startup tolerates a
// failure here.
func (a *App) WarmCache(ctx context.Context) {
	if err := a.Cache.Rebuild(ctx); err != nil {
		a.Logger.Warn("embedding_cache_warmup_failed", "error", err)
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
