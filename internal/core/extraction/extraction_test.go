package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RitaRen1003/medical-rag-system/internal/config"
	"github.com/RitaRen1003/medical-rag-system/internal/model"
)

func testPrompts() config.PromptsConfig {
	return config.PromptsConfig{
		ExtractionEntities:  "entities from: %s",
		ExtractionRelations: "relations between %s in: %s",
	}
}

func TestEntities(t *testing.T) {
	mockLLM := &MockLLMClient{
		Response: `{
			"entities": [
				{"name": "Aspirin", "type": "drug", "summary": "A common NSAID."},
				{"name": "Myocardial Infarction", "type": "disease", "summary": "Heart attack."}
			]
		}`,
	}
	extractor := NewExtractor(mockLLM, testPrompts())

	entities, err := extractor.Entities(context.Background(), "Aspirin prevents myocardial infarction.")
	require.NoError(t, err)
	require.Len(t, entities, 2)

	assert.Equal(t, "Aspirin", entities[0].Name)
	assert.Equal(t, "drug", entities[0].Type)
	assert.Equal(t, "Myocardial Infarction", entities[1].Name)

	require.Len(t, mockLLM.Prompts, 1)
	assert.Equal(t, "entities from: Aspirin prevents myocardial infarction.", mockLLM.Prompts[0])
}

func TestEntitiesDeduplicatesByName(t *testing.T) {
	mockLLM := &MockLLMClient{
		Response: `{
			"entities": [
				{"name": "Aspirin", "type": "drug"},
				{"name": "aspirin", "type": "drug"},
				{"name": "  ", "type": "drug"}
			]
		}`,
	}
	extractor := NewExtractor(mockLLM, testPrompts())

	entities, err := extractor.Entities(context.Background(), "text")
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "Aspirin", entities[0].Name)
}

func TestEntitiesToleratesMarkdownFence(t *testing.T) {
	mockLLM := &MockLLMClient{
		Response: "```json\n{\"entities\": [{\"name\": \"MRSA\", \"type\": \"organism\"}]}\n```",
	}
	extractor := NewExtractor(mockLLM, testPrompts())

	entities, err := extractor.Entities(context.Background(), "text")
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "MRSA", entities[0].Name)
}

func TestEntitiesLLMError(t *testing.T) {
	extractor := NewExtractor(&MockLLMClient{Err: errors.New("rate limited")}, testPrompts())

	_, err := extractor.Entities(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entity extraction")
}

func TestEntitiesMalformedResponse(t *testing.T) {
	extractor := NewExtractor(&MockLLMClient{Response: "not json at all"}, testPrompts())

	_, err := extractor.Entities(context.Background(), "text")
	assert.Error(t, err)
}

func TestRelations(t *testing.T) {
	mockLLM := &MockLLMClient{
		Response: `{
			"relations": [
				{
					"source": "Aspirin",
					"target": "Myocardial Infarction",
					"relation": "reduces risk of",
					"fact": "Aspirin reduces the risk of myocardial infarction."
				}
			]
		}`,
	}
	extractor := NewExtractor(mockLLM, testPrompts())

	entities := []model.ExtractedEntity{
		{Name: "Aspirin"},
		{Name: "Myocardial Infarction"},
	}
	relations, err := extractor.Relations(context.Background(), entities, "some abstract")
	require.NoError(t, err)
	require.Len(t, relations, 1)

	assert.Equal(t, "Aspirin", relations[0].Source)
	assert.Equal(t, "REDUCES_RISK_OF", relations[0].Relation)
	assert.Equal(t, "Aspirin reduces the risk of myocardial infarction.", relations[0].Fact)

	require.Len(t, mockLLM.Prompts, 1)
	assert.Equal(t, "relations between Aspirin, Myocardial Infarction in: some abstract", mockLLM.Prompts[0])
}

func TestRelationsDropsUnknownEntities(t *testing.T) {
	mockLLM := &MockLLMClient{
		Response: `{
			"relations": [
				{"source": "Aspirin", "target": "Warfarin", "relation": "INTERACTS_WITH", "fact": "They interact."},
				{"source": "Aspirin", "target": "Fever", "relation": "TREATS", "fact": "Aspirin treats fever."}
			]
		}`,
	}
	extractor := NewExtractor(mockLLM, testPrompts())

	entities := []model.ExtractedEntity{{Name: "Aspirin"}, {Name: "Fever"}}
	relations, err := extractor.Relations(context.Background(), entities, "text")
	require.NoError(t, err)

	require.Len(t, relations, 1)
	assert.Equal(t, "Fever", relations[0].Target)
}

func TestRelationsWithoutEntitiesSkipsLLM(t *testing.T) {
	mockLLM := &MockLLMClient{Response: "should not be called"}
	extractor := NewExtractor(mockLLM, testPrompts())

	relations, err := extractor.Relations(context.Background(), nil, "text")
	require.NoError(t, err)
	assert.Empty(t, relations)
	assert.Empty(t, mockLLM.Prompts)
}

func TestNormalizeRelation(t *testing.T) {
	assert.Equal(t, "REDUCES_RISK_OF", NormalizeRelation("reduces risk of"))
	assert.Equal(t, "TREATS", NormalizeRelation("TREATS"))
	assert.Equal(t, "FIRST_LINE_THERAPY", NormalizeRelation(" first-line  therapy "))
	assert.Equal(t, "", NormalizeRelation("---"))
}
