package core

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/RitaRen1003/medical-rag-system/internal/config"
	"github.com/RitaRen1003/medical-rag-system/internal/model"
	apperrors "github.com/RitaRen1003/medical-rag-system/pkg/errors"
)

// ConceptStore is the slice of the graph store enrichment writes through.
type ConceptStore interface {
	ListEnrichable(ctx context.Context, label string, limit int) ([]model.NodeText, error)
	NodeByUUID(ctx context.Context, uuid string) (*model.NodeText, error)
	AddConcept(ctx context.Context, concept *model.ConceptNode) error
	LinkConcept(ctx context.Context, link *model.ConceptLink) error
	LinkConceptHierarchy(ctx context.Context, cui string, relations []model.ConceptRelation) (int, error)
}

// ConceptRelator resolves the broader/narrower relations of a concept.
type ConceptRelator interface {
	ConceptRelations(ctx context.Context, cui string) ([]model.ConceptRelation, error)
}

// EnrichResult summarizes one enrichment run.
type EnrichResult struct {
	Nodes          int           `json:"nodes"`
	Annotated      int           `json:"annotated"`
	Links          int           `json:"links"`
	HierarchyEdges int           `json:"hierarchy_edges"`
	Failed         int           `json:"failed"`
	Elapsed        time.Duration `json:"elapsed"`
}

// Enricher walks stored nodes, annotates their text with UMLS concepts, and
// links the concepts into the graph. With Hierarchy set and a relator
// configured it also materializes broader/narrower edges between concepts.
type Enricher struct {
	Store     ConceptStore
	Annotator ConceptAnnotator
	Relator   ConceptRelator
	Config    *config.Config
	Logger    *zap.Logger
	Hierarchy bool
}

func NewEnricher(store ConceptStore, annotator ConceptAnnotator, relator ConceptRelator, cfg *config.Config, logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{
		Store:     store,
		Annotator: annotator,
		Relator:   relator,
		Config:    cfg,
		Logger:    logger,
	}
}

// EnrichAll annotates every non-concept node, up to limit.
func (e *Enricher) EnrichAll(ctx context.Context, limit int) (*EnrichResult, error) {
	return e.EnrichByLabel(ctx, "", limit)
}

// EnrichByLabel annotates nodes carrying label (empty for all), linking the
// concepts found in their text. Per-node failures are counted and the run
// continues.
func (e *Enricher) EnrichByLabel(ctx context.Context, label string, limit int) (*EnrichResult, error) {
	start := time.Now()

	if e.Annotator == nil {
		return nil, apperrors.NewEnrichmentError("nodes", errors.New("no terminology matcher configured"))
	}

	nodes, err := e.Store.ListEnrichable(ctx, label, limit)
	if err != nil {
		return nil, err
	}

	e.Logger.Info("enriching nodes",
		zap.String("label", label),
		zap.Int("nodes", len(nodes)))

	result := &EnrichResult{Nodes: len(nodes)}
	seenCUIs := make(map[string]bool)
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	sem := make(chan struct{}, e.workers())

	for _, node := range nodes {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(node model.NodeText) {
			defer wg.Done()
			defer func() { <-sem }()

			cuis, err := e.enrichOne(ctx, node)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				e.Logger.Warn("node enrichment failed",
					zap.String("node_uuid", node.UUID),
					zap.Error(err))
				return
			}
			if len(cuis) > 0 {
				result.Annotated++
			}
			result.Links += len(cuis)
			for _, cui := range cuis {
				seenCUIs[cui] = true
			}
		}(node)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return result, apperrors.NewEnrichmentError(label, err)
	}

	if e.Hierarchy && e.Relator != nil {
		e.addHierarchies(ctx, result, seenCUIs)
	}

	result.Elapsed = time.Since(start)
	e.Logger.Info("enrichment complete",
		zap.Int("nodes", result.Nodes),
		zap.Int("annotated", result.Annotated),
		zap.Int("links", result.Links),
		zap.Int("hierarchy_edges", result.HierarchyEdges),
		zap.Int("failed", result.Failed),
		zap.Duration("elapsed", result.Elapsed))

	return result, nil
}

// EnrichNode annotates a single node by uuid and links its concepts.
// Returns the number of concepts linked.
func (e *Enricher) EnrichNode(ctx context.Context, nodeUUID string) (int, error) {
	if e.Annotator == nil {
		return 0, apperrors.NewEnrichmentError(nodeUUID, errors.New("no terminology matcher configured"))
	}

	node, err := e.Store.NodeByUUID(ctx, nodeUUID)
	if err != nil {
		if apperrors.GetAppError(err) != nil {
			return 0, err
		}
		return 0, apperrors.NewEnrichmentError(nodeUUID, err)
	}

	cuis, err := e.enrichOne(ctx, *node)
	if err != nil {
		return len(cuis), apperrors.NewEnrichmentError(nodeUUID, err)
	}
	return len(cuis), nil
}

// enrichOne annotates one node and links each distinct concept once,
// keeping the similarity of the first mention. Returns the linked CUIs.
func (e *Enricher) enrichOne(ctx context.Context, node model.NodeText) ([]string, error) {
	text := node.Text()
	if text == "" {
		return nil, nil
	}

	terms, err := e.Annotator.Annotate(ctx, text)
	if err != nil {
		return nil, err
	}

	var linked []string
	seen := make(map[string]bool, len(terms))
	for _, term := range terms {
		if term.CUI == "" || seen[term.CUI] {
			continue
		}
		seen[term.CUI] = true

		if err := e.Store.AddConcept(ctx, conceptNodeFromTerm(term)); err != nil {
			return linked, err
		}
		if err := e.Store.LinkConcept(ctx, &model.ConceptLink{
			NodeUUID:   node.UUID,
			CUI:        term.CUI,
			Similarity: term.Similarity,
		}); err != nil {
			return linked, err
		}
		linked = append(linked, term.CUI)
	}
	return linked, nil
}

// AddConceptHierarchy fetches the broader/narrower relations of cui and
// materializes them as edges, creating the related concept nodes first.
func (e *Enricher) AddConceptHierarchy(ctx context.Context, cui string) (int, error) {
	if e.Relator == nil {
		return 0, apperrors.NewEnrichmentError(cui, errors.New("no terminology relation source configured"))
	}

	relations, err := e.Relator.ConceptRelations(ctx, cui)
	if err != nil {
		return 0, err
	}

	for _, rel := range relations {
		if rel.Label != "RB" && rel.Label != "RN" {
			continue
		}
		name := rel.RelatedName
		if name == "" {
			name = rel.RelatedCUI
		}
		if err := e.Store.AddConcept(ctx, &model.ConceptNode{
			CUI:    rel.RelatedCUI,
			Name:   name,
			Source: "UMLS",
		}); err != nil {
			return 0, apperrors.NewEnrichmentError(cui, err)
		}
	}

	applied, err := e.Store.LinkConceptHierarchy(ctx, cui, relations)
	if err != nil {
		return applied, apperrors.NewEnrichmentError(cui, err)
	}
	return applied, nil
}

// addHierarchies runs the hierarchy pass sequentially over the CUIs linked
// during the run. Failures degrade per concept.
func (e *Enricher) addHierarchies(ctx context.Context, result *EnrichResult, seenCUIs map[string]bool) {
	cuis := make([]string, 0, len(seenCUIs))
	for cui := range seenCUIs {
		cuis = append(cuis, cui)
	}
	sort.Strings(cuis)

	for _, cui := range cuis {
		if ctx.Err() != nil {
			return
		}
		applied, err := e.AddConceptHierarchy(ctx, cui)
		if err != nil {
			result.Failed++
			e.Logger.Warn("hierarchy enrichment failed",
				zap.String("cui", cui),
				zap.Error(err))
			continue
		}
		result.HierarchyEdges += applied
	}
}

func conceptNodeFromTerm(term model.Term) *model.ConceptNode {
	concept := &model.ConceptNode{
		CUI:    term.CUI,
		Name:   term.Text,
		Source: "UMLS",
	}
	if term.Concept != nil {
		if term.Concept.Name != "" {
			concept.Name = term.Concept.Name
		}
		concept.SemanticTypes = term.Concept.SemanticTypes
		if len(term.Concept.Definitions) > 0 {
			concept.Definition = term.Concept.Definitions[0]
		}
		if term.Concept.Source != "" {
			concept.Source = term.Concept.Source
		}
	}
	return concept
}

func (e *Enricher) workers() int {
	if e.Config != nil && e.Config.Concurrency.EnrichWorkers > 0 {
		return e.Config.Concurrency.EnrichWorkers
	}
	return 1
}
