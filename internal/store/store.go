package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/RitaRen1003/medical-rag-system/internal/driver"
	"github.com/RitaRen1003/medical-rag-system/internal/llm"
	"github.com/RitaRen1003/medical-rag-system/internal/model"
	apperrors "github.com/RitaRen1003/medical-rag-system/pkg/errors"
)

// ErrNodeNotFound is returned by NodeByUUID when no node carries the uuid.
var ErrNodeNotFound = errors.New("node not found")

// GraphStore persists and retrieves the medical knowledge graph. All writes
// are MERGE-based so re-running an import or enrichment never duplicates
// nodes or edges.
type GraphStore struct {
	Driver        driver.GraphDriver
	Embedder      llm.EmbedderClient
	Logger        *zap.Logger
	UUIDGenerator func() string
}

// New wires a GraphStore. embedder may be nil, which disables vector
// reranking and stores nodes without embeddings.
func New(d driver.GraphDriver, embedder llm.EmbedderClient, logger *zap.Logger) *GraphStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphStore{
		Driver:        d,
		Embedder:      embedder,
		Logger:        logger,
		UUIDGenerator: func() string { return uuid.New().String() },
	}
}

// EnsureIndices creates the constraints and full-text indexes the store
// depends on.
func (s *GraphStore) EnsureIndices(ctx context.Context) error {
	if err := s.Driver.BuildIndices(ctx); err != nil {
		return apperrors.NewRetrievalError("build indices", err)
	}
	return nil
}

// Clear removes every node and relationship.
func (s *GraphStore) Clear(ctx context.Context) error {
	if _, err := s.Driver.ExecuteQuery(ctx, driver.ClearGraphQuery, nil); err != nil {
		return fmt.Errorf("clear graph: %w", err)
	}
	return nil
}

// AddPaper upserts a paper node, merged by uuid. Missing identity fields are
// filled in place: a fresh uuid, created_at now, and valid_at at January 1
// of the publication year.
func (s *GraphStore) AddPaper(ctx context.Context, paper *model.PaperNode) error {
	if paper.UUID == "" {
		paper.UUID = s.newUUID()
	}
	if paper.CreatedAt.IsZero() {
		paper.CreatedAt = time.Now().UTC()
	}
	if paper.ValidAt.IsZero() {
		if paper.Year > 0 {
			paper.ValidAt = time.Date(paper.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		} else {
			paper.ValidAt = paper.CreatedAt
		}
	}

	authors := paper.Authors
	if authors == nil {
		authors = []string{}
	}

	params := map[string]interface{}{
		"uuid":       paper.UUID,
		"name":       paper.Title,
		"authors":    authors,
		"journal":    paper.Journal,
		"year":       paper.Year,
		"summary":    paper.Summary,
		"content":    paper.Content,
		"created_at": paper.CreatedAt,
		"valid_at":   paper.ValidAt,
	}
	if _, err := s.Driver.ExecuteQuery(ctx, driver.SavePaperNodeQuery, params); err != nil {
		return fmt.Errorf("save paper '%s': %w", paper.UUID, err)
	}
	return nil
}

// AddEntity upserts an entity node, merged by name, and returns the
// canonical uuid. When the name already exists the stored uuid wins over
// the candidate one, so callers must wire edges to the returned value.
func (s *GraphStore) AddEntity(ctx context.Context, entity *model.EntityNode) (string, error) {
	if entity.UUID == "" {
		entity.UUID = s.newUUID()
	}
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now().UTC()
	}
	if len(entity.NameEmbedding) == 0 {
		entity.NameEmbedding = s.embed(ctx, entity.Name)
	}

	params := map[string]interface{}{
		"uuid":           entity.UUID,
		"name":           entity.Name,
		"type":           entity.Type,
		"summary":        entity.Summary,
		"created_at":     entity.CreatedAt,
		"name_embedding": nil,
	}
	if len(entity.NameEmbedding) > 0 {
		params["name_embedding"] = entity.NameEmbedding
	}

	result, err := s.Driver.ExecuteQuery(ctx, driver.SaveEntityNodeQuery, params)
	if err != nil {
		return "", fmt.Errorf("save entity '%s': %w", entity.Name, err)
	}

	entity.UUID = uuidFromResult(result, entity.UUID)
	return entity.UUID, nil
}

// AddMention links a paper to an entity it mentions.
func (s *GraphStore) AddMention(ctx context.Context, mention *model.MentionEdge) error {
	if mention.UUID == "" {
		mention.UUID = s.newUUID()
	}
	if mention.CreatedAt.IsZero() {
		mention.CreatedAt = time.Now().UTC()
	}

	params := map[string]interface{}{
		"uuid":        mention.UUID,
		"paper_uuid":  mention.PaperUUID,
		"entity_uuid": mention.EntityUUID,
		"created_at":  mention.CreatedAt,
	}
	if _, err := s.Driver.ExecuteQuery(ctx, driver.SaveMentionEdgeQuery, params); err != nil {
		return fmt.Errorf("save mention %s -> %s: %w", mention.PaperUUID, mention.EntityUUID, err)
	}
	return nil
}

// AddRelation upserts a relation fact between two entities, merged by
// source, target, and relation name.
func (s *GraphStore) AddRelation(ctx context.Context, edge *model.EntityEdge) error {
	if edge.UUID == "" {
		edge.UUID = s.newUUID()
	}
	if edge.CreatedAt.IsZero() {
		edge.CreatedAt = time.Now().UTC()
	}
	if edge.ValidAt.IsZero() {
		edge.ValidAt = edge.CreatedAt
	}
	if len(edge.FactEmbedding) == 0 {
		edge.FactEmbedding = s.embed(ctx, edge.Fact)
	}

	params := map[string]interface{}{
		"uuid":           edge.UUID,
		"source_uuid":    edge.SourceUUID,
		"target_uuid":    edge.TargetUUID,
		"name":           edge.Name,
		"fact":           edge.Fact,
		"created_at":     edge.CreatedAt,
		"valid_at":       edge.ValidAt,
		"fact_embedding": nil,
	}
	if len(edge.FactEmbedding) > 0 {
		params["fact_embedding"] = edge.FactEmbedding
	}

	if _, err := s.Driver.ExecuteQuery(ctx, driver.SaveRelationEdgeQuery, params); err != nil {
		return fmt.Errorf("save relation '%s': %w", edge.Name, err)
	}
	return nil
}

// AddConcept upserts a UMLS concept node, merged by CUI. The concept's
// definition lands on the summary property so the full-text index covers it.
func (s *GraphStore) AddConcept(ctx context.Context, concept *model.ConceptNode) error {
	if concept.UUID == "" {
		concept.UUID = model.ConceptUUID(concept.CUI)
	}
	if concept.CreatedAt.IsZero() {
		concept.CreatedAt = time.Now().UTC()
	}

	semanticTypes := concept.SemanticTypes
	if semanticTypes == nil {
		semanticTypes = []string{}
	}

	params := map[string]interface{}{
		"uuid":           concept.UUID,
		"cui":            concept.CUI,
		"name":           concept.Name,
		"summary":        concept.Definition,
		"semantic_types": semanticTypes,
		"source":         concept.Source,
		"created_at":     concept.CreatedAt,
	}
	if _, err := s.Driver.ExecuteQuery(ctx, driver.SaveConceptNodeQuery, params); err != nil {
		return fmt.Errorf("save concept '%s': %w", concept.CUI, err)
	}
	return nil
}

// LinkConcept attaches a concept to a node with the mention similarity.
func (s *GraphStore) LinkConcept(ctx context.Context, link *model.ConceptLink) error {
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}

	params := map[string]interface{}{
		"uuid":       s.newUUID(),
		"node_uuid":  link.NodeUUID,
		"cui":        link.CUI,
		"similarity": link.Similarity,
		"created_at": link.CreatedAt,
	}
	if _, err := s.Driver.ExecuteQuery(ctx, driver.LinkConceptQuery, params); err != nil {
		return fmt.Errorf("link concept %s -> %s: %w", link.NodeUUID, link.CUI, err)
	}
	return nil
}

// LinkConceptHierarchy materializes broader (RB) and narrower (RN) UMLS
// relations as edges between concept nodes. Other relation labels are
// skipped. Both concepts must already exist. Returns the number of edges
// written.
func (s *GraphStore) LinkConceptHierarchy(ctx context.Context, cui string, relations []model.ConceptRelation) (int, error) {
	applied := 0
	for _, rel := range relations {
		var query string
		switch rel.Label {
		case "RB":
			query = driver.SaveBroaderEdgeQuery
		case "RN":
			query = driver.SaveNarrowerEdgeQuery
		default:
			continue
		}

		params := map[string]interface{}{
			"uuid":        s.newUUID(),
			"cui":         cui,
			"related_cui": rel.RelatedCUI,
			"created_at":  time.Now().UTC(),
		}
		if _, err := s.Driver.ExecuteQuery(ctx, query, params); err != nil {
			return applied, fmt.Errorf("link hierarchy %s -> %s: %w", cui, rel.RelatedCUI, err)
		}
		applied++
	}
	return applied, nil
}

// NodeByUUID fetches the text surface of a single node. Missing nodes
// return ErrNodeNotFound.
func (s *GraphStore) NodeByUUID(ctx context.Context, nodeUUID string) (*model.NodeText, error) {
	result, err := s.Driver.ExecuteQuery(ctx, driver.GetNodeByUUIDQuery, map[string]interface{}{"uuid": nodeUUID})
	if err != nil {
		return nil, apperrors.NewRetrievalError("node lookup", err)
	}
	if len(result.Records) == 0 {
		return nil, fmt.Errorf("node '%s': %w", nodeUUID, ErrNodeNotFound)
	}
	node := nodeTextFromRecord(result.Records[0])
	return &node, nil
}

// maxEnrichableNodes bounds an unlimited ListEnrichable call.
const maxEnrichableNodes = 10000

// ListEnrichable returns non-concept nodes in stable creation order,
// optionally filtered by label. limit <= 0 lists everything.
func (s *GraphStore) ListEnrichable(ctx context.Context, label string, limit int) ([]model.NodeText, error) {
	if limit <= 0 {
		limit = maxEnrichableNodes
	}

	result, err := s.Driver.ExecuteQuery(ctx, driver.ListEnrichableNodesQuery, map[string]interface{}{
		"label": label,
		"limit": limit,
	})
	if err != nil {
		return nil, apperrors.NewRetrievalError("list nodes", err)
	}

	nodes := make([]model.NodeText, 0, len(result.Records))
	for _, record := range result.Records {
		nodes = append(nodes, nodeTextFromRecord(record))
	}
	return nodes, nil
}

func nodeTextFromRecord(record *neo4j.Record) model.NodeText {
	return model.NodeText{
		UUID:    stringValue(record, "uuid"),
		Name:    stringValue(record, "name"),
		Summary: stringValue(record, "summary"),
		Content: stringValue(record, "content"),
		Labels:  stringSliceValue(record, "labels"),
	}
}

func (s *GraphStore) newUUID() string {
	if s.UUIDGenerator != nil {
		return s.UUIDGenerator()
	}
	return uuid.New().String()
}

// embed computes a vector for text, best effort. Failures are logged and
// leave the caller without an embedding rather than failing the write.
func (s *GraphStore) embed(ctx context.Context, text string) []float32 {
	if s.Embedder == nil || text == "" {
		return nil
	}
	vec, err := s.Embedder.Embed(ctx, text)
	if err != nil {
		s.Logger.Warn("embedding failed", zap.Error(err))
		return nil
	}
	return vec
}

func uuidFromResult(result neo4j.EagerResult, fallback string) string {
	if len(result.Records) == 0 {
		return fallback
	}
	if v, ok := result.Records[0].Get("uuid"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}
