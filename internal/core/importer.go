package core

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/RitaRen1003/medical-rag-system/internal/config"
	"github.com/RitaRen1003/medical-rag-system/internal/core/extraction"
	"github.com/RitaRen1003/medical-rag-system/internal/model"
	apperrors "github.com/RitaRen1003/medical-rag-system/pkg/errors"
)

// GraphWriter is the slice of the graph store the importer writes through.
type GraphWriter interface {
	Clear(ctx context.Context) error
	EnsureIndices(ctx context.Context) error
	AddPaper(ctx context.Context, paper *model.PaperNode) error
	AddEntity(ctx context.Context, entity *model.EntityNode) (string, error)
	AddMention(ctx context.Context, mention *model.MentionEdge) error
	AddRelation(ctx context.Context, edge *model.EntityEdge) error
}

// ImportResult summarizes one import run.
type ImportResult struct {
	Papers    int           `json:"papers"`
	Entities  int           `json:"entities"`
	Relations int           `json:"relations"`
	Failed    int           `json:"failed"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Importer loads a PubMed-style JSON corpus into the graph: paper nodes,
// LLM-extracted entities with MENTIONS edges, and relation facts.
type Importer struct {
	Store     GraphWriter
	Extractor *extraction.Extractor
	Config    *config.Config
	Logger    *zap.Logger
}

func NewImporter(store GraphWriter, extractor *extraction.Extractor, cfg *config.Config, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{
		Store:     store,
		Extractor: extractor,
		Config:    cfg,
		Logger:    logger,
	}
}

// paperRecord is one corpus entry. Authors and year arrive as either JSON
// strings or their structured forms depending on the corpus exporter.
type paperRecord struct {
	Title    string          `json:"paper_title"`
	Authors  json.RawMessage `json:"paper_authors"`
	Journal  string          `json:"paper_journal"`
	Year     json.RawMessage `json:"paper_year"`
	Abstract string          `json:"paper_abstract"`
	FullText string          `json:"paper_full_text"`
}

// Run imports the corpus at corpusPath. With clear set the store is wiped
// first, which is what makes re-imports idempotent. Per-paper failures are
// counted and the run continues; corpus and store-level failures abort with
// an import error.
func (imp *Importer) Run(ctx context.Context, corpusPath string, clear bool) (*ImportResult, error) {
	start := time.Now()

	records, err := loadCorpus(corpusPath)
	if err != nil {
		return nil, err
	}

	if clear {
		if err := imp.Store.Clear(ctx); err != nil {
			return nil, apperrors.NewImportError("clear store", err)
		}
	}
	if err := imp.Store.EnsureIndices(ctx); err != nil {
		return nil, apperrors.NewImportError("build indices", err)
	}

	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	imp.Logger.Info("importing corpus",
		zap.String("path", corpusPath),
		zap.Int("papers", len(ids)),
		zap.Bool("clear", clear))

	result := &ImportResult{}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	sem := make(chan struct{}, imp.workers())

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(paperID string, record paperRecord) {
			defer wg.Done()
			defer func() { <-sem }()

			entities, relations, err := imp.importPaper(ctx, paperID, record)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				imp.Logger.Warn("paper import failed",
					zap.String("paper_id", paperID),
					zap.Error(err))
				return
			}
			result.Papers++
			result.Entities += entities
			result.Relations += relations
		}(id, records[id])
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return result, apperrors.NewImportError("corpus import", err)
	}

	result.Elapsed = time.Since(start)
	imp.Logger.Info("import complete",
		zap.Int("papers", result.Papers),
		zap.Int("entities", result.Entities),
		zap.Int("relations", result.Relations),
		zap.Int("failed", result.Failed),
		zap.Duration("elapsed", result.Elapsed))

	return result, nil
}

func loadCorpus(path string) (map[string]paperRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewImportError("read corpus", err)
	}

	var records map[string]paperRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, apperrors.NewImportError("parse corpus", err)
	}
	return records, nil
}

// importPaper writes one paper and everything extracted from it. Returns
// the entity and relation counts.
func (imp *Importer) importPaper(ctx context.Context, paperID string, record paperRecord) (int, int, error) {
	title := strings.TrimSpace(record.Title)
	if title == "" {
		title = paperID
	}

	paper := &model.PaperNode{
		UUID:    paperID,
		Title:   title,
		Authors: parseAuthors(record.Authors),
		Journal: strings.TrimSpace(record.Journal),
		Year:    parseYear(record.Year),
		Summary: strings.TrimSpace(record.Abstract),
		Content: imp.buildDocument(record),
	}
	if err := imp.Store.AddPaper(ctx, paper); err != nil {
		return 0, 0, err
	}

	if imp.Extractor == nil || paper.Summary == "" {
		return 0, 0, nil
	}

	extracted, err := imp.Extractor.Entities(ctx, paper.Summary)
	if err != nil {
		return 0, 0, err
	}

	entityUUIDs := make(map[string]string, len(extracted))
	for _, entity := range extracted {
		entityUUID, err := imp.Store.AddEntity(ctx, &model.EntityNode{
			Name:    entity.Name,
			Type:    entity.Type,
			Summary: entity.Summary,
		})
		if err != nil {
			return 0, 0, err
		}
		entityUUIDs[strings.ToLower(entity.Name)] = entityUUID

		if err := imp.Store.AddMention(ctx, &model.MentionEdge{
			PaperUUID:  paper.UUID,
			EntityUUID: entityUUID,
		}); err != nil {
			return 0, 0, err
		}
	}

	relations, err := imp.Extractor.Relations(ctx, extracted, paper.Summary)
	if err != nil {
		return len(entityUUIDs), 0, err
	}

	saved := 0
	for _, rel := range relations {
		sourceUUID, okSource := entityUUIDs[strings.ToLower(rel.Source)]
		targetUUID, okTarget := entityUUIDs[strings.ToLower(rel.Target)]
		if !okSource || !okTarget {
			continue
		}

		if err := imp.Store.AddRelation(ctx, &model.EntityEdge{
			SourceUUID: sourceUUID,
			TargetUUID: targetUUID,
			Name:       rel.Relation,
			Fact:       rel.Fact,
			ValidAt:    paper.ValidAt,
		}); err != nil {
			return len(entityUUIDs), saved, err
		}
		saved++
	}

	return len(entityUUIDs), saved, nil
}

// buildDocument renders the metadata header plus the length-bounded full
// text. Full text below the minimum length is dropped entirely.
func (imp *Importer) buildDocument(record paperRecord) string {
	year := ""
	if y := parseYear(record.Year); y > 0 {
		year = strconv.Itoa(y)
	}

	header := fmt.Sprintf("Title: %s\nAuthors: %s\nJournal: %s\nYear: %s\nAbstract: %s\n\n",
		strings.TrimSpace(record.Title),
		strings.Join(parseAuthors(record.Authors), "; "),
		strings.TrimSpace(record.Journal),
		year,
		strings.TrimSpace(record.Abstract))

	text := record.FullText
	if utf8.RuneCountInString(text) < imp.minTextLength() {
		text = ""
	} else if limit := imp.maxTextLength(); limit > 0 && utf8.RuneCountInString(text) > limit {
		text = string([]rune(text)[:limit])
	}

	return header + text
}

func parseAuthors(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return trimNonEmpty(list)
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return trimNonEmpty(strings.Split(single, ";"))
	}
	return nil
}

func parseYear(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}

	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if y, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return y
		}
	}
	return 0
}

func trimNonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (imp *Importer) workers() int {
	if imp.Config != nil && imp.Config.Concurrency.ImportWorkers > 0 {
		return imp.Config.Concurrency.ImportWorkers
	}
	return 1
}

func (imp *Importer) minTextLength() int {
	if imp.Config != nil {
		return imp.Config.Import.MinTextLength
	}
	return 0
}

func (imp *Importer) maxTextLength() int {
	if imp.Config != nil {
		return imp.Config.Import.MaxTextLength
	}
	return 0
}
