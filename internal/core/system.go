package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/RitaRen1003/medical-rag-system/internal/config"
	"github.com/RitaRen1003/medical-rag-system/internal/core/extraction"
	"github.com/RitaRen1003/medical-rag-system/internal/driver"
	"github.com/RitaRen1003/medical-rag-system/internal/llm"
	"github.com/RitaRen1003/medical-rag-system/internal/store"
	"github.com/RitaRen1003/medical-rag-system/internal/umls"
	apperrors "github.com/RitaRen1003/medical-rag-system/pkg/errors"
)

// System bundles the wired components of the service. Construct it once with
// NewSystem and share it between the CLI commands and the HTTP server.
type System struct {
	Config   *config.Config
	Driver   driver.GraphDriver
	Store    *store.GraphStore
	Pipeline *Pipeline
	Importer *Importer
	Enricher *Enricher
	Logger   *zap.Logger
}

// NewSystem validates the configuration and wires the graph store, the LLM
// clients and the terminology components. UMLS annotation is only wired when
// a local dictionary is configured; concept details and hierarchy lookups
// additionally need the UTS API key.
func NewSystem(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*System, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	drv, err := driver.NewNeo4jDriver(cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, cfg.Neo4j.Database, logger)
	if err != nil {
		return nil, err
	}

	llmClient, embedder, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		drv.Close(ctx)
		return nil, err
	}
	generator := llm.WithRetry(llmClient, llm.PolicyFromConfig(cfg.Retry))

	graphStore := store.New(drv, embedder, logger)

	var annotator ConceptAnnotator
	var relator ConceptRelator
	if cfg.UMLSEnabled() {
		matcher, err := umls.LoadDictionary(cfg.UMLS.Dictionary, cfg.UMLS.MinSimilarity)
		if err != nil {
			drv.Close(ctx)
			return nil, apperrors.NewConfigurationError(fmt.Sprintf("load UMLS dictionary: %v", err))
		}
		logger.Info("loaded UMLS dictionary",
			zap.String("path", cfg.UMLS.Dictionary),
			zap.Int("terms", matcher.Size()))

		var client *umls.Client
		if cfg.UMLS.APIKey != "" {
			opts := []umls.Option{umls.WithAPIKey(cfg.UMLS.APIKey)}
			if cfg.UMLS.BaseURL != "" {
				opts = append(opts, umls.WithBaseURL(cfg.UMLS.BaseURL))
			}
			client, err = umls.New(opts...)
			if err != nil {
				drv.Close(ctx)
				return nil, err
			}
		}

		processor := umls.NewProcessor(matcher, client, logger)
		annotator = processor
		if client != nil {
			relator = processor
		}
	}

	extractor := extraction.NewExtractor(generator, cfg.Prompts)

	return &System{
		Config:   cfg,
		Driver:   drv,
		Store:    graphStore,
		Pipeline: NewPipeline(graphStore, annotator, generator, cfg, logger),
		Importer: NewImporter(graphStore, extractor, cfg, logger),
		Enricher: NewEnricher(graphStore, annotator, relator, cfg, logger),
		Logger:   logger,
	}, nil
}

// Close releases the Neo4j driver.
func (s *System) Close(ctx context.Context) error {
	return s.Driver.Close(ctx)
}
