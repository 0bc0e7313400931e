package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/RitaRen1003/medical-rag-system/internal/config"
	"github.com/RitaRen1003/medical-rag-system/internal/llm"
	"github.com/RitaRen1003/medical-rag-system/internal/model"
	apperrors "github.com/RitaRen1003/medical-rag-system/pkg/errors"
)

// FactSearcher is the slice of the graph store the pipeline retrieves from.
type FactSearcher interface {
	SearchNodes(ctx context.Context, query string, limit int) ([]model.Fact, error)
	SearchEdges(ctx context.Context, query string, limit int) ([]model.Fact, error)
}

// ConceptAnnotator maps free text to UMLS concept mentions.
type ConceptAnnotator interface {
	Annotate(ctx context.Context, text string) ([]model.Term, error)
}

// AnswerOptions tune a single answer call.
type AnswerOptions struct {
	// IncludeUMLS toggles terminology annotation of the retrieved facts.
	IncludeUMLS bool
	// MaxFacts bounds the context; 0 falls back to the configured default.
	MaxFacts int
	// Timeout bounds the whole call; 0 means no deadline beyond the ctx.
	Timeout time.Duration
}

// DefaultAnswerOptions returns the options used when the caller passes none.
func DefaultAnswerOptions() AnswerOptions {
	return AnswerOptions{IncludeUMLS: true}
}

// Answer is a generated answer with its retrieval metadata.
type Answer struct {
	Text         string       `json:"text"`
	Query        string       `json:"query"`
	FactCount    int          `json:"fact_count"`
	EdgeCount    int          `json:"edge_count"`
	NodeCount    int          `json:"node_count"`
	ConceptCount int          `json:"concept_count"`
	Model        string       `json:"model"`
	Facts        []model.Fact `json:"facts,omitempty"`
}

// Pipeline answers medical questions from the knowledge graph: concurrent
// node and edge retrieval, optional terminology annotation, context
// assembly, one generation call.
type Pipeline struct {
	Searcher  FactSearcher
	Annotator ConceptAnnotator
	LLM       llm.LLMClient
	Config    *config.Config
	Logger    *zap.Logger
}

// NewPipeline wires a pipeline. annotator may be nil, which disables
// terminology annotation regardless of options.
func NewPipeline(searcher FactSearcher, annotator ConceptAnnotator, llmClient llm.LLMClient, cfg *config.Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		Searcher:  searcher,
		Annotator: annotator,
		LLM:       llmClient,
		Config:    cfg,
		Logger:    logger,
	}
}

// AnswerQuestion retrieves facts for query, optionally annotates them with
// UMLS concepts, and generates an answer grounded in the assembled context.
// With zero matching facts the generation call is still made in degraded
// mode. Retrieval and generation failures surface to the caller; a deadline
// expiry surfaces as a timeout error, never as a partial answer.
func (p *Pipeline) AnswerQuestion(ctx context.Context, query string, opts AnswerOptions) (*Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewValidationError("query must not be empty")
	}
	if opts.MaxFacts < 0 {
		return nil, apperrors.NewValidationError("max_facts must be positive")
	}
	if opts.MaxFacts == 0 {
		opts.MaxFacts = p.defaultMaxFacts()
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	facts, err := p.retrieve(ctx, query, opts.MaxFacts)
	if err != nil {
		if deadlineExpired(ctx) {
			return nil, apperrors.NewTimeoutError("fact retrieval")
		}
		return nil, err
	}

	if opts.IncludeUMLS && p.Annotator != nil {
		p.annotate(ctx, facts)
	}

	prompt := fmt.Sprintf(p.answerPrompt(), query, BuildContext(facts))

	text, err := p.LLM.Generate(ctx, p.systemPrompt(), prompt)
	if err != nil {
		if deadlineExpired(ctx) {
			return nil, apperrors.NewTimeoutError("answer generation")
		}
		return nil, apperrors.NewGenerationError(p.modelName(), err)
	}

	answer := &Answer{
		Text:         strings.TrimSpace(text),
		Query:        query,
		FactCount:    len(facts),
		ConceptCount: CountConcepts(facts),
		Model:        p.modelName(),
		Facts:        facts,
	}
	for _, fact := range facts {
		switch fact.Kind {
		case model.FactKindEdge:
			answer.EdgeCount++
		case model.FactKindNode:
			answer.NodeCount++
		}
	}

	p.Logger.Info("answered question",
		zap.String("query", query),
		zap.Int("facts", answer.FactCount),
		zap.Int("concepts", answer.ConceptCount),
		zap.Duration("elapsed", time.Since(start)))

	return answer, nil
}

// retrieve fans out the edge and node searches, joins them, and merges the
// results into one ranked, bounded fact list.
func (p *Pipeline) retrieve(ctx context.Context, query string, limit int) ([]model.Fact, error) {
	var (
		wg        sync.WaitGroup
		edgeFacts []model.Fact
		nodeFacts []model.Fact
		edgeErr   error
		nodeErr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		edgeFacts, edgeErr = p.Searcher.SearchEdges(ctx, query, limit)
	}()
	go func() {
		defer wg.Done()
		nodeFacts, nodeErr = p.Searcher.SearchNodes(ctx, query, limit)
	}()
	wg.Wait()

	if edgeErr != nil {
		return nil, edgeErr
	}
	if nodeErr != nil {
		return nil, nodeErr
	}

	return MergeFacts(edgeFacts, nodeFacts, limit), nil
}

// MergeFacts concatenates edge facts then node facts, stable-sorts by
// descending score, and truncates to limit. Ties keep insertion order, so
// identical inputs always yield identical context.
func MergeFacts(edgeFacts, nodeFacts []model.Fact, limit int) []model.Fact {
	merged := make([]model.Fact, 0, len(edgeFacts)+len(nodeFacts))
	merged = append(merged, edgeFacts...)
	merged = append(merged, nodeFacts...)

	sort.SliceStable(merged, func(a, b int) bool {
		return merged[a].Score > merged[b].Score
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// annotate attaches UMLS terms to each fact concurrently. A failed
// annotation leaves the fact bare; it never fails the answer.
func (p *Pipeline) annotate(ctx context.Context, facts []model.Fact) {
	var wg sync.WaitGroup
	for i := range facts {
		wg.Add(1)
		go func(fact *model.Fact) {
			defer wg.Done()
			terms, err := p.Annotator.Annotate(ctx, fact.Text)
			if err != nil {
				p.Logger.Warn("concept annotation failed",
					zap.String("fact_uuid", fact.UUID),
					zap.Error(err))
				return
			}
			fact.Terms = terms
		}(&facts[i])
	}
	wg.Wait()
}

func (p *Pipeline) defaultMaxFacts() int {
	if p.Config != nil && p.Config.Search.MaxFacts > 0 {
		return p.Config.Search.MaxFacts
	}
	return 10
}

func (p *Pipeline) systemPrompt() string {
	if p.Config != nil && p.Config.Prompts.AnswerSystem != "" {
		return p.Config.Prompts.AnswerSystem
	}
	return "You are a helpful biomedical expert assistant."
}

func (p *Pipeline) answerPrompt() string {
	if p.Config != nil && p.Config.Prompts.Answer != "" {
		return p.Config.Prompts.Answer
	}
	return "Question: %s\n\nContext:\n%s"
}

func (p *Pipeline) modelName() string {
	if p.Config != nil {
		return p.Config.LLM.Model
	}
	return ""
}

func deadlineExpired(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.DeadlineExceeded)
}
