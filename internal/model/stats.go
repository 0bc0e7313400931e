package model

import "time"

// LabelCount is a label or relationship type with its occurrence count.
type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// NodeDegree names a node together with its relationship count.
type NodeDegree struct {
	Name   string   `json:"name"`
	Labels []string `json:"labels,omitempty"`
	Degree int64    `json:"degree"`
}

// GraphStats is a read-only snapshot of the graph's shape and its
// terminology coverage.
type GraphStats struct {
	TotalNodes       int64        `json:"total_nodes"`
	TotalEdges       int64        `json:"total_edges"`
	NodesByLabel     []LabelCount `json:"nodes_by_label,omitempty"`
	EdgesByType      []LabelCount `json:"edges_by_type,omitempty"`
	AvgDegree        float64      `json:"avg_degree"`
	MaxDegree        int64        `json:"max_degree"`
	IsolatedNodes    int64        `json:"isolated_nodes"`
	MostConnected    []NodeDegree `json:"most_connected,omitempty"`
	ConceptCount     int64        `json:"concept_count"`
	EnrichableNodes  int64        `json:"enrichable_nodes"`
	LinkedNodes      int64        `json:"linked_nodes"`
	TopSemanticTypes []LabelCount `json:"top_semantic_types,omitempty"`
	CollectedAt      time.Time    `json:"collected_at"`
}

// CoveragePercent is the share of enrichable nodes carrying at least one
// concept link.
func (s *GraphStats) CoveragePercent() float64 {
	if s.EnrichableNodes == 0 {
		return 0
	}
	return float64(s.LinkedNodes) / float64(s.EnrichableNodes) * 100
}
