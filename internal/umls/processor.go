package umls

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/RitaRen1003/medical-rag-system/internal/model"
	apperrors "github.com/RitaRen1003/medical-rag-system/pkg/errors"
)

// Processor annotates text with UMLS concepts. The matcher is required; the
// client is optional and only adds concept details (definitions, semantic
// types) on top of the local dictionary hits.
type Processor struct {
	matcher *Matcher
	client  *Client
	logger  *zap.Logger
}

// NewProcessor wires a processor. client may be nil for offline use.
func NewProcessor(matcher *Matcher, client *Client, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{matcher: matcher, client: client, logger: logger}
}

// Annotate finds concept mentions in text and, when a client is configured,
// attaches concept details fetched once per distinct CUI. A failed lookup
// leaves the term bare rather than failing the whole annotation.
func (p *Processor) Annotate(ctx context.Context, text string) ([]model.Term, error) {
	terms := p.matcher.Match(text)
	if len(terms) == 0 || p.client == nil {
		return terms, nil
	}

	concepts := make(map[string]*model.Concept)
	for i := range terms {
		cui := terms[i].CUI
		concept, seen := concepts[cui]
		if !seen {
			concept = p.fetchConcept(ctx, cui)
			concepts[cui] = concept
		}
		terms[i].Concept = concept
	}

	return terms, nil
}

func (p *Processor) fetchConcept(ctx context.Context, cui string) *model.Concept {
	concept, err := p.client.ConceptDetails(ctx, cui)
	if err != nil {
		p.logger.Warn("concept lookup failed",
			zap.String("cui", cui),
			zap.Error(err))
		return nil
	}

	defs, err := p.client.Definitions(ctx, cui)
	if err != nil {
		p.logger.Warn("definition lookup failed",
			zap.String("cui", cui),
			zap.Error(err))
	} else {
		concept.Definitions = defs
	}

	return concept
}

// ConceptRelations returns the broader/narrower relations for a CUI. Unlike
// annotation this requires the remote client.
func (p *Processor) ConceptRelations(ctx context.Context, cui string) ([]model.ConceptRelation, error) {
	if p.client == nil {
		return nil, apperrors.NewEnrichmentError(cui, errors.New("no UMLS API client configured"))
	}

	relations, err := p.client.Relations(ctx, cui)
	if err != nil {
		return nil, apperrors.NewEnrichmentError(cui, err)
	}
	return relations, nil
}
