package store

import (
	"context"
	"time"

	"github.com/RitaRen1003/medical-rag-system/internal/driver"
	"github.com/RitaRen1003/medical-rag-system/internal/model"
	apperrors "github.com/RitaRen1003/medical-rag-system/pkg/errors"
)

const (
	mostConnectedLimit    = 5
	topSemanticTypesLimit = 5
)

// Stats collects a snapshot of the graph's shape and terminology coverage.
func (s *GraphStore) Stats(ctx context.Context) (*model.GraphStats, error) {
	stats := &model.GraphStats{CollectedAt: time.Now().UTC()}

	var err error
	if stats.TotalNodes, err = s.count(ctx, driver.CountNodesQuery); err != nil {
		return nil, err
	}
	if stats.TotalEdges, err = s.count(ctx, driver.CountEdgesQuery); err != nil {
		return nil, err
	}
	if stats.NodesByLabel, err = s.labelCounts(ctx, driver.NodesByLabelQuery, nil); err != nil {
		return nil, err
	}
	if stats.EdgesByType, err = s.labelCounts(ctx, driver.EdgesByTypeQuery, nil); err != nil {
		return nil, err
	}

	if err = s.degreeStats(ctx, stats); err != nil {
		return nil, err
	}
	if stats.MostConnected, err = s.mostConnected(ctx); err != nil {
		return nil, err
	}

	if stats.ConceptCount, err = s.count(ctx, driver.CountConceptsQuery); err != nil {
		return nil, err
	}
	if stats.EnrichableNodes, err = s.count(ctx, driver.CountEnrichableNodesQuery); err != nil {
		return nil, err
	}
	if stats.LinkedNodes, err = s.count(ctx, driver.CountLinkedNodesQuery); err != nil {
		return nil, err
	}
	if stats.TopSemanticTypes, err = s.labelCounts(ctx, driver.TopSemanticTypesQuery,
		map[string]interface{}{"limit": topSemanticTypesLimit}); err != nil {
		return nil, err
	}

	return stats, nil
}

func (s *GraphStore) count(ctx context.Context, query string) (int64, error) {
	result, err := s.Driver.ExecuteQuery(ctx, query, nil)
	if err != nil {
		return 0, apperrors.NewRetrievalError("stats collection", err)
	}
	if len(result.Records) == 0 {
		return 0, nil
	}
	return int64Value(result.Records[0], "count"), nil
}

func (s *GraphStore) labelCounts(ctx context.Context, query string, params map[string]interface{}) ([]model.LabelCount, error) {
	result, err := s.Driver.ExecuteQuery(ctx, query, params)
	if err != nil {
		return nil, apperrors.NewRetrievalError("stats collection", err)
	}

	counts := make([]model.LabelCount, 0, len(result.Records))
	for _, record := range result.Records {
		counts = append(counts, model.LabelCount{
			Label: stringValue(record, "label"),
			Count: int64Value(record, "count"),
		})
	}
	return counts, nil
}

func (s *GraphStore) degreeStats(ctx context.Context, stats *model.GraphStats) error {
	result, err := s.Driver.ExecuteQuery(ctx, driver.DegreeStatsQuery, nil)
	if err != nil {
		return apperrors.NewRetrievalError("stats collection", err)
	}
	if len(result.Records) == 0 {
		return nil
	}

	record := result.Records[0]
	stats.AvgDegree = floatValue(record, "avg_degree")
	stats.MaxDegree = int64Value(record, "max_degree")
	stats.IsolatedNodes = int64Value(record, "isolated")
	return nil
}

func (s *GraphStore) mostConnected(ctx context.Context) ([]model.NodeDegree, error) {
	result, err := s.Driver.ExecuteQuery(ctx, driver.MostConnectedQuery,
		map[string]interface{}{"limit": mostConnectedLimit})
	if err != nil {
		return nil, apperrors.NewRetrievalError("stats collection", err)
	}

	nodes := make([]model.NodeDegree, 0, len(result.Records))
	for _, record := range result.Records {
		nodes = append(nodes, model.NodeDegree{
			Name:   stringValue(record, "name"),
			Labels: stringSliceValue(record, "labels"),
			Degree: int64Value(record, "degree"),
		})
	}
	return nodes, nil
}
