package store

import (
	"context"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/RitaRen1003/medical-rag-system/internal/driver"
	"github.com/RitaRen1003/medical-rag-system/internal/model"
	apperrors "github.com/RitaRen1003/medical-rag-system/pkg/errors"
)

const (
	// DefaultSearchLimit caps a search when the caller passes no limit.
	DefaultSearchLimit = 10

	// rrfK dampens rank differences in reciprocal rank fusion.
	rrfK = 60

	// rrfOversample widens the keyword fetch so vector reranking has
	// candidates beyond the final cut.
	rrfOversample = 2
)

// SearchNodes runs a keyword search over paper, entity, and concept nodes.
// With an embedder configured the keyword ranking is fused with a vector
// ranking by reciprocal rank.
func (s *GraphStore) SearchNodes(ctx context.Context, query string, limit int) ([]model.Fact, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	result, err := s.Driver.ExecuteQuery(ctx, driver.SearchNodesQuery, map[string]interface{}{
		"query": escapeLucene(query),
		"limit": s.fetchSize(limit),
	})
	if err != nil {
		return nil, apperrors.NewRetrievalError("node search", err)
	}

	facts := make([]model.Fact, 0, len(result.Records))
	embeddings := make([][]float32, 0, len(result.Records))
	for _, record := range result.Records {
		fact := model.Fact{
			Kind:    model.FactKindNode,
			UUID:    stringValue(record, "uuid"),
			Name:    stringValue(record, "name"),
			Summary: stringValue(record, "summary"),
			Labels:  stringSliceValue(record, "labels"),
			Score:   floatValue(record, "score"),
		}
		fact.Text = fact.Summary
		if fact.Text == "" {
			fact.Text = fact.Name
		}
		facts = append(facts, fact)
		embeddings = append(embeddings, floatSliceValue(record, "embedding"))
	}

	facts = s.rerank(ctx, query, facts, embeddings)
	if len(facts) > limit {
		facts = facts[:limit]
	}
	return facts, nil
}

// SearchEdges runs a keyword search over relation facts, fused with a
// vector ranking the same way as SearchNodes.
func (s *GraphStore) SearchEdges(ctx context.Context, query string, limit int) ([]model.Fact, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	result, err := s.Driver.ExecuteQuery(ctx, driver.SearchEdgesQuery, map[string]interface{}{
		"query": escapeLucene(query),
		"limit": s.fetchSize(limit),
	})
	if err != nil {
		return nil, apperrors.NewRetrievalError("fact search", err)
	}

	facts := make([]model.Fact, 0, len(result.Records))
	embeddings := make([][]float32, 0, len(result.Records))
	for _, record := range result.Records {
		facts = append(facts, model.Fact{
			Kind:       model.FactKindEdge,
			UUID:       stringValue(record, "uuid"),
			Name:       stringValue(record, "name"),
			Text:       stringValue(record, "fact"),
			SourceName: stringValue(record, "source_name"),
			TargetName: stringValue(record, "target_name"),
			Score:      floatValue(record, "score"),
		})
		embeddings = append(embeddings, floatSliceValue(record, "embedding"))
	}

	facts = s.rerank(ctx, query, facts, embeddings)
	if len(facts) > limit {
		facts = facts[:limit]
	}
	return facts, nil
}

func (s *GraphStore) fetchSize(limit int) int {
	if s.Embedder == nil {
		return limit
	}
	return limit * rrfOversample
}

// rerank fuses the keyword ranking (the incoming order) with a vector
// ranking by reciprocal rank. Candidates without a stored embedding only
// score on the keyword side. Without an embedder, or when the query cannot
// be embedded, the keyword order stands.
func (s *GraphStore) rerank(ctx context.Context, query string, facts []model.Fact, embeddings [][]float32) []model.Fact {
	if s.Embedder == nil || len(facts) == 0 {
		return facts
	}

	queryVec, err := s.Embedder.Embed(ctx, query)
	if err != nil || len(queryVec) == 0 {
		if err != nil {
			s.Logger.Warn("query embedding failed, keeping keyword order", zap.Error(err))
		}
		return facts
	}

	type scored struct {
		idx int
		sim float64
	}
	sims := make([]scored, 0, len(facts))
	for i := range facts {
		if len(embeddings[i]) == 0 {
			continue
		}
		sims = append(sims, scored{idx: i, sim: cosineSimilarity(queryVec, embeddings[i])})
	}
	sort.SliceStable(sims, func(a, b int) bool { return sims[a].sim > sims[b].sim })

	vectorRank := make(map[int]int, len(sims))
	for rank, sc := range sims {
		vectorRank[sc.idx] = rank + 1
	}

	for i := range facts {
		score := 1.0 / float64(rrfK+i+1)
		if rank, ok := vectorRank[i]; ok {
			score += 1.0 / float64(rrfK+rank)
		}
		facts[i].Score = score
	}

	sort.SliceStable(facts, func(a, b int) bool {
		if facts[a].Score != facts[b].Score {
			return facts[a].Score > facts[b].Score
		}
		if facts[a].Name != facts[b].Name {
			return facts[a].Name < facts[b].Name
		}
		return facts[a].UUID < facts[b].UUID
	})
	return facts
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

const luceneSpecials = `+-&|!(){}[]^"~*?:\/`

// escapeLucene backslash-escapes operators so user text reaches the
// full-text index as plain terms.
func escapeLucene(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	for _, r := range query {
		if strings.ContainsRune(luceneSpecials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
