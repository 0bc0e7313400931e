package extraction

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/RitaRen1003/medical-rag-system/internal/config"
	"github.com/RitaRen1003/medical-rag-system/internal/core/common"
	"github.com/RitaRen1003/medical-rag-system/internal/llm"
	"github.com/RitaRen1003/medical-rag-system/internal/model"
)

const systemPrompt = "You extract structured facts from medical literature. Respond with JSON only."

// Extractor pulls medical entities and relation facts out of paper text
// with the LLM.
type Extractor struct {
	LLM     llm.LLMClient
	Prompts config.PromptsConfig
}

func NewExtractor(llmClient llm.LLMClient, prompts config.PromptsConfig) *Extractor {
	return &Extractor{
		LLM:     llmClient,
		Prompts: prompts,
	}
}

// Entities extracts the medical entities mentioned in text. Names are
// trimmed and deduplicated case-insensitively, first spelling wins.
func (e *Extractor) Entities(ctx context.Context, text string) ([]model.ExtractedEntity, error) {
	prompt := fmt.Sprintf(e.Prompts.ExtractionEntities, text)

	response, err := e.LLM.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("entity extraction: %w", err)
	}

	result, err := common.ParseJSON[model.ExtractedEntities](response)
	if err != nil {
		return nil, fmt.Errorf("entity extraction: %w", err)
	}

	seen := make(map[string]bool, len(result.Entities))
	entities := make([]model.ExtractedEntity, 0, len(result.Entities))
	for _, entity := range result.Entities {
		entity.Name = strings.TrimSpace(entity.Name)
		if entity.Name == "" {
			continue
		}
		key := strings.ToLower(entity.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		entity.Type = strings.TrimSpace(entity.Type)
		entity.Summary = strings.TrimSpace(entity.Summary)
		entities = append(entities, entity)
	}
	return entities, nil
}

// Relations extracts relation facts between previously extracted entities.
// Relations referencing unknown entities or missing a supporting fact are
// dropped.
func (e *Extractor) Relations(ctx context.Context, entities []model.ExtractedEntity, text string) ([]model.ExtractedRelation, error) {
	if len(entities) == 0 {
		return nil, nil
	}

	names := make([]string, len(entities))
	known := make(map[string]bool, len(entities))
	for i, entity := range entities {
		names[i] = entity.Name
		known[strings.ToLower(entity.Name)] = true
	}

	prompt := fmt.Sprintf(e.Prompts.ExtractionRelations, strings.Join(names, ", "), text)

	response, err := e.LLM.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("relation extraction: %w", err)
	}

	result, err := common.ParseJSON[model.ExtractedRelations](response)
	if err != nil {
		return nil, fmt.Errorf("relation extraction: %w", err)
	}

	relations := make([]model.ExtractedRelation, 0, len(result.Relations))
	for _, rel := range result.Relations {
		rel.Source = strings.TrimSpace(rel.Source)
		rel.Target = strings.TrimSpace(rel.Target)
		rel.Fact = strings.TrimSpace(rel.Fact)
		rel.Relation = NormalizeRelation(rel.Relation)
		if rel.Source == "" || rel.Target == "" || rel.Fact == "" || rel.Relation == "" {
			continue
		}
		if !known[strings.ToLower(rel.Source)] || !known[strings.ToLower(rel.Target)] {
			continue
		}
		relations = append(relations, rel)
	}
	return relations, nil
}

// NormalizeRelation folds a free-form relation label into UPPER_SNAKE_CASE.
func NormalizeRelation(label string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.TrimSpace(label) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToUpper(r))
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
