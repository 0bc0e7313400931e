package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RitaRen1003/medical-rag-system/internal/config"
	"github.com/RitaRen1003/medical-rag-system/internal/core/extraction"
	apperrors "github.com/RitaRen1003/medical-rag-system/pkg/errors"
)

func importConfig() *config.Config {
	cfg := testConfig()
	cfg.Prompts.ExtractionEntities = "entities from: %s"
	cfg.Prompts.ExtractionRelations = "relations between %s in: %s"
	cfg.Import = config.ImportConfig{MinTextLength: 10, MaxTextLength: 1000}
	return cfg
}

func writeCorpus(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const twoPaperCorpus = `{
	"pmid-2": {
		"paper_title": "Aspirin in secondary prevention",
		"paper_authors": ["Smith J", "Lee K"],
		"paper_journal": "Lancet",
		"paper_year": 2021,
		"paper_abstract": "Aspirin reduces recurrent myocardial infarction.",
		"paper_full_text": "Full text long enough to keep."
	},
	"pmid-1": {
		"paper_title": "Aspirin pharmacology",
		"paper_authors": "Jones A; Wu B",
		"paper_journal": "BMJ",
		"paper_year": "2019",
		"paper_abstract": "Aspirin inhibits platelet aggregation.",
		"paper_full_text": "short"
	}
}`

func TestImportRun(t *testing.T) {
	// Papers import in sorted id order, so the queue pairs up per paper:
	// entities then relations for pmid-1, then the same for pmid-2.
	llm := &MockLLM{ResponseQueue: []string{
		`{"entities": [{"name": "Aspirin", "type": "drug"}, {"name": "Platelet Aggregation", "type": "process"}]}`,
		`{"relations": [{"source": "Aspirin", "target": "Platelet Aggregation", "relation": "inhibits", "fact": "Aspirin inhibits platelet aggregation."}]}`,
		`{"entities": [{"name": "aspirin", "type": "drug"}, {"name": "Myocardial Infarction", "type": "disease"}]}`,
		`{"relations": [{"source": "Aspirin", "target": "Myocardial Infarction", "relation": "reduces risk of", "fact": "Aspirin reduces recurrent MI."}]}`,
	}}
	writer := &MockGraphWriter{}
	cfg := importConfig()
	imp := NewImporter(writer, extraction.NewExtractor(llm, cfg.Prompts), cfg, nil)

	result, err := imp.Run(context.Background(), writeCorpus(t, twoPaperCorpus), true)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Papers)
	assert.Equal(t, 4, result.Entities)
	assert.Equal(t, 2, result.Relations)
	assert.Equal(t, 0, result.Failed)

	assert.True(t, writer.Cleared)
	assert.True(t, writer.Indexed)

	require.Len(t, writer.Papers, 2)
	assert.Equal(t, "pmid-1", writer.Papers[0].UUID)
	assert.Equal(t, []string{"Jones A", "Wu B"}, writer.Papers[0].Authors)
	assert.Equal(t, 2019, writer.Papers[0].Year)
	assert.Equal(t, "pmid-2", writer.Papers[1].UUID)
	assert.Equal(t, 2021, writer.Papers[1].Year)

	// Each extracted entity gets a MENTIONS edge wired to its canonical uuid.
	require.Len(t, writer.Mentions, 4)
	assert.Equal(t, "pmid-1", writer.Mentions[0].PaperUUID)
	assert.Equal(t, "entity-1", writer.Mentions[0].EntityUUID)

	require.Len(t, writer.Relations, 2)
	first := writer.Relations[0]
	assert.Equal(t, "entity-1", first.SourceUUID)
	assert.Equal(t, "entity-2", first.TargetUUID)
	assert.Equal(t, "INHIBITS", first.Name)
	assert.Equal(t, "Aspirin inhibits platelet aggregation.", first.Fact)
	assert.Equal(t, time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC), first.ValidAt)
}

func TestImportRunMergesEntitiesByName(t *testing.T) {
	llm := &MockLLM{ResponseQueue: []string{
		`{"entities": [{"name": "Aspirin", "type": "drug"}]}`,
		`{"relations": []}`,
		`{"entities": [{"name": "Aspirin", "type": "drug"}]}`,
		`{"relations": []}`,
	}}
	writer := &MockGraphWriter{}
	cfg := importConfig()
	imp := NewImporter(writer, extraction.NewExtractor(llm, cfg.Prompts), cfg, nil)

	_, err := imp.Run(context.Background(), writeCorpus(t, twoPaperCorpus), false)
	require.NoError(t, err)

	// One canonical node, one mention per paper.
	assert.Len(t, writer.Entities, 1)
	require.Len(t, writer.Mentions, 2)
	assert.Equal(t, "entity-1", writer.Mentions[0].EntityUUID)
	assert.Equal(t, "entity-1", writer.Mentions[1].EntityUUID)
	assert.False(t, writer.Cleared)
}

func TestImportRunDropsUnresolvableRelations(t *testing.T) {
	llm := &MockLLM{ResponseQueue: []string{
		`{"entities": [{"name": "Aspirin", "type": "drug"}]}`,
		`{"relations": [{"source": "Aspirin", "target": "Clopidogrel", "relation": "combined with", "fact": "f"}]}`,
	}}
	writer := &MockGraphWriter{}
	cfg := importConfig()
	imp := NewImporter(writer, extraction.NewExtractor(llm, cfg.Prompts), cfg, nil)

	corpus := `{"pmid-1": {"paper_title": "T", "paper_abstract": "A short abstract.", "paper_year": 2020}}`
	result, err := imp.Run(context.Background(), writeCorpus(t, corpus), false)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Relations)
	assert.Empty(t, writer.Relations)
}

func TestImportRunCountsPerPaperFailures(t *testing.T) {
	writer := &MockGraphWriter{
		PaperErrs: map[string]error{"pmid-2": errors.New("write refused")},
	}
	imp := NewImporter(writer, nil, importConfig(), nil)

	result, err := imp.Run(context.Background(), writeCorpus(t, twoPaperCorpus), false)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Papers)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, writer.Papers, 1)
	assert.Equal(t, "pmid-1", writer.Papers[0].UUID)
}

func TestImportRunWithoutExtractor(t *testing.T) {
	writer := &MockGraphWriter{}
	imp := NewImporter(writer, nil, importConfig(), nil)

	result, err := imp.Run(context.Background(), writeCorpus(t, twoPaperCorpus), false)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Papers)
	assert.Equal(t, 0, result.Entities)
	assert.Empty(t, writer.Entities)
	assert.Empty(t, writer.Relations)
}

func TestImportRunMissingCorpus(t *testing.T) {
	imp := NewImporter(&MockGraphWriter{}, nil, importConfig(), nil)

	_, err := imp.Run(context.Background(), filepath.Join(t.TempDir(), "absent.json"), false)
	require.Error(t, err)
	assert.True(t, apperrors.IsImport(err))
}

func TestImportRunMalformedCorpus(t *testing.T) {
	imp := NewImporter(&MockGraphWriter{}, nil, importConfig(), nil)

	_, err := imp.Run(context.Background(), writeCorpus(t, `{"pmid-1": [1, 2]}`), false)
	require.Error(t, err)
	assert.True(t, apperrors.IsImport(err))
	assert.Contains(t, err.Error(), "parse corpus")
}

func TestImportRunClearFailure(t *testing.T) {
	writer := &MockGraphWriter{ClearErr: errors.New("db down")}
	imp := NewImporter(writer, nil, importConfig(), nil)

	_, err := imp.Run(context.Background(), writeCorpus(t, twoPaperCorpus), true)
	require.Error(t, err)
	assert.True(t, apperrors.IsImport(err))
	assert.Empty(t, writer.Papers)
}

func TestImportRunIndicesFailure(t *testing.T) {
	writer := &MockGraphWriter{IndicesErr: errors.New("no fulltext support")}
	imp := NewImporter(writer, nil, importConfig(), nil)

	_, err := imp.Run(context.Background(), writeCorpus(t, twoPaperCorpus), false)
	require.Error(t, err)
	assert.True(t, apperrors.IsImport(err))
}

func TestBuildDocument(t *testing.T) {
	cfg := importConfig()
	imp := NewImporter(&MockGraphWriter{}, nil, cfg, nil)

	record := paperRecord{
		Title:    "Aspirin pharmacology",
		Authors:  []byte(`["Jones A", "Wu B"]`),
		Journal:  "BMJ",
		Year:     []byte(`2019`),
		Abstract: "Aspirin inhibits platelet aggregation.",
		FullText: "The body of the paper, comfortably past the minimum.",
	}

	doc := imp.buildDocument(record)
	assert.True(t, strings.HasPrefix(doc,
		"Title: Aspirin pharmacology\nAuthors: Jones A; Wu B\nJournal: BMJ\nYear: 2019\nAbstract: Aspirin inhibits platelet aggregation.\n\n"))
	assert.True(t, strings.HasSuffix(doc, "past the minimum."))
}

func TestBuildDocumentDropsShortText(t *testing.T) {
	imp := NewImporter(&MockGraphWriter{}, nil, importConfig(), nil)

	doc := imp.buildDocument(paperRecord{Title: "T", FullText: "tiny"})
	assert.True(t, strings.HasSuffix(doc, "Abstract: \n\n"))
}

func TestBuildDocumentTruncatesLongText(t *testing.T) {
	cfg := importConfig()
	cfg.Import.MaxTextLength = 20
	imp := NewImporter(&MockGraphWriter{}, nil, cfg, nil)

	doc := imp.buildDocument(paperRecord{Title: "T", FullText: strings.Repeat("a", 50)})
	assert.True(t, strings.HasSuffix(doc, "\n\n"+strings.Repeat("a", 20)))
}

func TestParseAuthors(t *testing.T) {
	assert.Equal(t, []string{"Jones A", "Wu B"}, parseAuthors([]byte(`["Jones A", "Wu B"]`)))
	assert.Equal(t, []string{"Jones A", "Wu B"}, parseAuthors([]byte(`"Jones A; Wu B"`)))
	assert.Equal(t, []string{"Solo"}, parseAuthors([]byte(`"Solo"`)))
	assert.Nil(t, parseAuthors([]byte(`42`)))
	assert.Nil(t, parseAuthors(nil))
}

func TestParseYear(t *testing.T) {
	assert.Equal(t, 2019, parseYear([]byte(`2019`)))
	assert.Equal(t, 2021, parseYear([]byte(`" 2021 "`)))
	assert.Equal(t, 0, parseYear([]byte(`"n.d."`)))
	assert.Equal(t, 0, parseYear(nil))
}
