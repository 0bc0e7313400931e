package core

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/RitaRen1003/medical-rag-system/internal/model"
)

func TestRenderStats(t *testing.T) {
	stats := &model.GraphStats{
		TotalNodes: 120,
		TotalEdges: 340,
		NodesByLabel: []model.LabelCount{
			{Label: "Entity", Count: 80},
			{Label: "Paper", Count: 25},
			{Label: "Concept", Count: 15},
		},
		EdgesByType: []model.LabelCount{
			{Label: "RELATES_TO", Count: 200},
			{Label: "MENTIONS", Count: 120},
			{Label: "HAS_UMLS_CONCEPT", Count: 20},
		},
		AvgDegree:     5.667,
		MaxDegree:     42,
		IsolatedNodes: 3,
		MostConnected: []model.NodeDegree{
			{Name: "Aspirin", Labels: []string{"Entity"}, Degree: 42},
			{Name: "Heparin", Degree: 17},
		},
		ConceptCount:    15,
		EnrichableNodes: 105,
		LinkedNodes:     75,
		TopSemanticTypes: []model.LabelCount{
			{Label: "Pharmacologic Substance", Count: 6},
			{Label: "Disease or Syndrome", Count: 5},
		},
		CollectedAt: time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC),
	}

	want := strings.Join([]string{
		"============================================================",
		"Knowledge Graph Statistics Report",
		"Generated at: 2026-03-14T09:30:00Z",
		"============================================================",
		"Total nodes: 120",
		"Total relationships: 340",
		"",
		"Nodes by label:",
		"  - Entity: 80",
		"  - Paper: 25",
		"  - Concept: 15",
		"",
		"Relationships by type:",
		"  - RELATES_TO: 200",
		"  - MENTIONS: 120",
		"  - HAS_UMLS_CONCEPT: 20",
		"",
		"Average node degree: 5.67",
		"Maximum node degree: 42",
		"Isolated nodes: 3",
		"",
		"Most connected nodes:",
		"  - Aspirin [Entity]: 42",
		"  - Heparin: 17",
		"",
		"UMLS concept nodes: 15",
		"Nodes with UMLS links: 75",
		"UMLS coverage: 71.4%",
		"",
		"Top semantic types:",
		"  - Pharmacologic Substance: 6",
		"  - Disease or Syndrome: 5",
		"============================================================",
		"",
	}, "\n")

	assert.Equal(t, want, RenderStats(stats))
}

func TestRenderStatsEmptyGraph(t *testing.T) {
	got := RenderStats(&model.GraphStats{CollectedAt: time.Now()})

	assert.Contains(t, got, "Total nodes: 0")
	assert.Contains(t, got, "UMLS coverage: 0.0%")
	assert.NotContains(t, got, "Nodes by label:")
	assert.NotContains(t, got, "Most connected nodes:")
	assert.NotContains(t, got, "Top semantic types:")
}
